package store

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	models "storefront/model"
)

// DemoCatalog is the catalog the storefront opens with.
func DemoCatalog() []models.ProductInput {
	return []models.ProductInput{
		{Name: "Quantum Widget", Category: "Widgets", Price: decimal.RequireFromString("99.99"), Stock: 150},
		{Name: "Hyper-Sprocket", Category: "Sprockets", Price: decimal.RequireFromString("149.50"), Stock: 75},
		{Name: "Nano-Gear", Category: "Gears", Price: decimal.RequireFromString("45.00"), Stock: 300},
		{Name: "Flux Capacitor", Category: "Time Travel", Price: decimal.RequireFromString("1210000"), Stock: 1},
		{Name: "Ionic Diffuser", Category: "Widgets", Price: decimal.RequireFromString("24.99"), Stock: 500},
		{Name: "Plasma Injector", Category: "Sprockets", Price: decimal.RequireFromString("299.00"), Stock: 50},
	}
}

func DefaultProfiles() []models.Profile {
	return []models.Profile{
		{Role: models.RoleOwner, Name: "Admin User", Email: "admin@dapp.com", MemberSince: "2024-01-01", Balance: decimal.Zero},
		{Role: models.RoleCustomer, Name: "Valued Customer", Email: "customer@example.com", MemberSince: "2024-02-15", Balance: decimal.Zero},
	}
}

// Seed creates items only when the catalog is empty. It returns how many products were created.
func Seed(ctx context.Context, st Store, items []models.ProductInput) (int, error) {
	existing, err := st.ListProducts(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}
	for i, in := range items {
		if _, err := st.CreateProduct(ctx, in); err != nil {
			return i, fmt.Errorf("seed product %q: %w", in.Name, err)
		}
	}
	return len(items), nil
}
