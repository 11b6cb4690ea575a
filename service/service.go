package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	models "storefront/model"
	"storefront/notify"
	"storefront/obs"
	"storefront/store"
	"storefront/wallet"
)

type Service struct {
	store     store.Store
	wallet    wallet.Capability
	session   *wallet.Session
	events    notify.Publisher
	recipient string
	now       func() time.Time

	// cartMu is held shared by cart edits across the state check and the
	// store call, and exclusively by begin, so an edit either lands before
	// the checkout snapshots the cart or sees ErrCheckoutInProgress.
	cartMu sync.RWMutex
	mu     sync.Mutex
	state  State
}

type Option func(*Service)

// WithPublisher sends checkout, catalog and wallet outcomes to p.
func WithPublisher(p notify.Publisher) Option {
	return func(s *Service) { s.events = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService wires the store and the wallet capability. recipient is the
// address every checkout pays. w may be nil when no wallet is installed.
func NewService(s store.Store, w wallet.Capability, recipient string, opts ...Option) *Service {
	svc := &Service{
		store:     s,
		wallet:    w,
		session:   &wallet.Session{},
		events:    notify.Discard{},
		recipient: recipient,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(svc)
	}
	return svc
}

var _ ServiceInterface = (*Service)(nil)

func (s *Service) publish(typ, msg, orderID string) {
	s.events.Publish(notify.Event{Type: typ, Message: msg, OrderID: orderID, At: s.now()})
}

func validateInput(in models.ProductInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return &ValidationError{Field: "name", Reason: "required"}
	}
	if strings.TrimSpace(in.Category) == "" {
		return &ValidationError{Field: "category", Reason: "required"}
	}
	if in.Price.IsNegative() {
		return &ValidationError{Field: "price", Reason: "must be >= 0"}
	}
	if in.Stock < 0 {
		return &ValidationError{Field: "stock", Reason: "must be >= 0"}
	}
	return nil
}

func (s *Service) CreateProduct(ctx context.Context, in models.ProductInput) (models.Product, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Category = strings.TrimSpace(in.Category)
	if err := validateInput(in); err != nil {
		return models.Product{}, err
	}
	p, err := s.store.CreateProduct(ctx, in)
	if err != nil {
		return models.Product{}, err
	}
	obs.Logger.Info("product_created", "id", p.ID, "name", p.Name, "stock", p.Stock)
	s.publish(notify.CatalogChanged, "product "+p.Name+" created", "")
	return p, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id int64, patch models.ProductPatch) (models.Product, error) {
	if patch.Empty() {
		return models.Product{}, &ValidationError{Field: "patch", Reason: "no fields supplied"}
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return models.Product{}, &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if patch.Category != nil && strings.TrimSpace(*patch.Category) == "" {
		return models.Product{}, &ValidationError{Field: "category", Reason: "must not be empty"}
	}
	if patch.Price != nil && patch.Price.IsNegative() {
		return models.Product{}, &ValidationError{Field: "price", Reason: "must be >= 0"}
	}
	if patch.Stock != nil && *patch.Stock < 0 {
		return models.Product{}, &ValidationError{Field: "stock", Reason: "must be >= 0"}
	}
	p, err := s.store.UpdateProduct(ctx, id, patch)
	if err != nil {
		return models.Product{}, err
	}
	obs.Logger.Info("product_updated", "id", p.ID, "stock", p.Stock, "price", p.Price.String())
	s.publish(notify.CatalogChanged, "product "+p.Name+" updated", "")
	return p, nil
}

// DeleteProduct removes the product from the catalog only. Cart lines and
// orders that reference it keep their snapshots.
func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	if err := s.store.DeleteProduct(ctx, id); err != nil {
		return err
	}
	obs.Logger.Info("product_deleted", "id", id)
	s.publish(notify.CatalogChanged, "product deleted", "")
	return nil
}

func (s *Service) ListProducts(ctx context.Context, f models.ProductFilter) ([]models.Product, error) {
	rows, err := s.store.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Product, 0, len(rows))
	for _, p := range rows {
		if f.Match(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Service) Categories(ctx context.Context) ([]string, error) {
	rows, err := s.store.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	return models.Categories(rows), nil
}

// AddToCart does not consult stock; the checkout stock gate does.
func (s *Service) AddToCart(ctx context.Context, productID int64) (models.CartLine, error) {
	s.cartMu.RLock()
	defer s.cartMu.RUnlock()
	if s.busy() {
		return models.CartLine{}, ErrCheckoutInProgress
	}
	line, err := s.store.AddToCart(ctx, productID)
	if err != nil {
		return models.CartLine{}, err
	}
	obs.Logger.Debug("cart_add", "product_id", productID, "quantity", line.Quantity)
	return line, nil
}

// SetCartQuantity sets an absolute quantity; qty <= 0 removes the line.
func (s *Service) SetCartQuantity(ctx context.Context, productID int64, qty int) error {
	s.cartMu.RLock()
	defer s.cartMu.RUnlock()
	if s.busy() {
		return ErrCheckoutInProgress
	}
	return s.store.SetCartQuantity(ctx, productID, qty)
}

func (s *Service) GetCart(ctx context.Context) (CartDTO, error) {
	c, err := s.store.GetCart(ctx)
	if err != nil {
		return CartDTO{}, err
	}
	return newCartDTO(c), nil
}

func (s *Service) Orders(ctx context.Context) ([]models.Order, error) {
	return s.store.ListOrders(ctx)
}

func (s *Service) Wallet() models.WalletSession {
	return s.session.Snapshot()
}

// ConnectWallet prompts the capability and records the address on role's profile.
func (s *Service) ConnectWallet(ctx context.Context, role models.Role) (models.WalletSession, error) {
	acct, err := s.session.Connect(ctx, s.wallet)
	if err != nil {
		obs.Logger.Warn("wallet_connect_failed", "role", role, "error", err)
		return s.session.Snapshot(), &ExternalError{Op: "connect", Err: err}
	}
	if err := s.store.SetWalletAddress(ctx, role, acct.Address); err != nil {
		if derr := s.session.Disconnect(ctx, s.wallet); derr != nil {
			obs.Logger.Warn("wallet_disconnect_failed", "error", derr)
		}
		return s.session.Snapshot(), err
	}
	obs.Logger.Info("wallet_connected", "role", role, "address", acct.Address)
	s.publish(notify.WalletConnected, acct.Address, "")
	return s.session.Snapshot(), nil
}

func (s *Service) DisconnectWallet(ctx context.Context) error {
	if err := s.session.Disconnect(ctx, s.wallet); err != nil {
		obs.Logger.Warn("wallet_disconnect_failed", "error", err)
		return &ExternalError{Op: "disconnect", Err: err}
	}
	obs.Logger.Info("wallet_disconnected")
	s.publish(notify.WalletClosed, "", "")
	return nil
}

// Logout ends the panel session, disconnecting the wallet if it is connected.
func (s *Service) Logout(ctx context.Context) error {
	if !s.session.Snapshot().Connected {
		return nil
	}
	return s.DisconnectWallet(ctx)
}

func (s *Service) Profile(ctx context.Context, role models.Role) (models.Profile, error) {
	return s.store.GetProfile(ctx, role)
}

func (s *Service) UpdateProfile(ctx context.Context, role models.Role, patch models.ProfilePatch) (models.Profile, error) {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return models.Profile{}, &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if patch.Email != nil && !strings.Contains(*patch.Email, "@") {
		return models.Profile{}, &ValidationError{Field: "email", Reason: "must contain @"}
	}
	return s.store.UpdateProfile(ctx, role, patch)
}

func (s *Service) OwnerDashboard(ctx context.Context) (models.OwnerDashboard, error) {
	owner, err := s.store.GetProfile(ctx, models.RoleOwner)
	if err != nil {
		return models.OwnerDashboard{}, err
	}
	products, err := s.store.ListProducts(ctx)
	if err != nil {
		return models.OwnerDashboard{}, err
	}
	orders, err := s.store.ListOrders(ctx)
	if err != nil {
		return models.OwnerDashboard{}, err
	}
	d := models.OwnerDashboard{
		Revenue:      owner.Balance,
		ProductCount: len(products),
		OrderCount:   len(orders),
	}
	for _, p := range products {
		d.TotalStock += p.Stock
	}
	n := min(len(orders), models.RecentOrderCount)
	d.RecentOrders = orders[:n]
	return d, nil
}

func (s *Service) CustomerDashboard(ctx context.Context) (models.CustomerDashboard, error) {
	c, err := s.store.GetCart(ctx)
	if err != nil {
		return models.CustomerDashboard{}, err
	}
	products, err := s.store.ListProducts(ctx)
	if err != nil {
		return models.CustomerDashboard{}, err
	}
	return models.CustomerDashboard{
		CartItems:    c.ItemCount(),
		CartValue:    c.Total(),
		ProductCount: len(products),
	}, nil
}

// DTOs
type CartDTO struct {
	Items     []models.CartLine `json:"items"`
	Total     decimal.Decimal   `json:"total"`
	ItemCount int               `json:"item_count"`
}

func newCartDTO(c models.Cart) CartDTO {
	items := c.Lines
	if items == nil {
		items = []models.CartLine{}
	}
	return CartDTO{Items: items, Total: c.Total(), ItemCount: c.ItemCount()}
}
