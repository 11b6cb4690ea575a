package store

import (
	"context"

	models "storefront/model"
)

// Store owns the catalog, the cart, the order ledger and the profiles.
// Implementations guard all of them with one exclusion domain so that
// Commit is observed atomically.
type Store interface {
	CreateProduct(ctx context.Context, in models.ProductInput) (models.Product, error)
	UpdateProduct(ctx context.Context, id int64, patch models.ProductPatch) (models.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	GetProduct(ctx context.Context, id int64) (models.Product, error)
	ListProducts(ctx context.Context) ([]models.Product, error)

	AddToCart(ctx context.Context, productID int64) (models.CartLine, error)
	SetCartQuantity(ctx context.Context, productID int64, qty int) error
	GetCart(ctx context.Context) (models.Cart, error)

	// CheckStock fails with *InsufficientStockError for the first line the
	// catalog cannot cover. It mutates nothing.
	CheckStock(ctx context.Context, lines []models.CartLine) error
	// Commit re-validates the cart and stock, then decrements stock,
	// prepends the order, accrues owner revenue and clears the cart as one unit.
	Commit(ctx context.Context, order models.Order) error
	ListOrders(ctx context.Context) ([]models.Order, error)

	GetProfile(ctx context.Context, role models.Role) (models.Profile, error)
	UpdateProfile(ctx context.Context, role models.Role, patch models.ProfilePatch) (models.Profile, error)
	SetWalletAddress(ctx context.Context, role models.Role, address string) error

	Close() error
}
