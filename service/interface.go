package service

import (
	"context"

	models "storefront/model"
)

type ServiceInterface interface {
	CreateProduct(ctx context.Context, in models.ProductInput) (models.Product, error)
	UpdateProduct(ctx context.Context, id int64, patch models.ProductPatch) (models.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	ListProducts(ctx context.Context, f models.ProductFilter) ([]models.Product, error)
	Categories(ctx context.Context) ([]string, error)

	AddToCart(ctx context.Context, productID int64) (models.CartLine, error)
	SetCartQuantity(ctx context.Context, productID int64, qty int) error
	GetCart(ctx context.Context) (CartDTO, error)

	Checkout(ctx context.Context) (models.Order, error)
	CheckoutState() State
	Orders(ctx context.Context) ([]models.Order, error)

	Wallet() models.WalletSession
	ConnectWallet(ctx context.Context, role models.Role) (models.WalletSession, error)
	DisconnectWallet(ctx context.Context) error
	Logout(ctx context.Context) error

	Profile(ctx context.Context, role models.Role) (models.Profile, error)
	UpdateProfile(ctx context.Context, role models.Role, patch models.ProfilePatch) (models.Profile, error)
	OwnerDashboard(ctx context.Context) (models.OwnerDashboard, error)
	CustomerDashboard(ctx context.Context) (models.CustomerDashboard, error)
}
