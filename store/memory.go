package store

import (
	"context"
	"sync"

	models "storefront/model"
)

// MemoryStore keeps all state in process behind a single RWMutex.
type MemoryStore struct {
	mu sync.RWMutex

	products []models.Product
	// nextID only grows, so ids are never reused after a delete.
	nextID int64

	cart     []models.CartLine
	orders   []models.Order // newest first
	profiles map[models.Role]models.Profile
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		nextID:   1,
		profiles: make(map[models.Role]models.Profile),
	}
	for _, p := range DefaultProfiles() {
		s.profiles[p.Role] = p
	}
	return s
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) productIndex(id int64) int {
	for i := range s.products {
		if s.products[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *MemoryStore) cartIndex(productID int64) int {
	for i := range s.cart {
		if s.cart[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func (s *MemoryStore) CreateProduct(_ context.Context, in models.ProductInput) (models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := models.Product{
		ID:       s.nextID,
		Name:     in.Name,
		Category: in.Category,
		Price:    in.Price,
		Stock:    in.Stock,
	}
	s.nextID++
	s.products = append(s.products, p)
	return p, nil
}

func (s *MemoryStore) UpdateProduct(_ context.Context, id int64, patch models.ProductPatch) (models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.productIndex(id)
	if i < 0 {
		return models.Product{}, ErrProductNotFound
	}
	s.products[i] = patch.Apply(s.products[i])
	return s.products[i], nil
}

func (s *MemoryStore) DeleteProduct(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.productIndex(id)
	if i < 0 {
		return ErrProductNotFound
	}
	s.products = append(s.products[:i], s.products[i+1:]...)
	return nil
}

func (s *MemoryStore) GetProduct(_ context.Context, id int64) (models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.productIndex(id)
	if i < 0 {
		return models.Product{}, ErrProductNotFound
	}
	return s.products[i], nil
}

func (s *MemoryStore) ListProducts(_ context.Context) ([]models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Product, len(s.products))
	copy(out, s.products)
	return out, nil
}

// AddToCart bumps an existing line by one at its original price, or
// inserts a snapshot of the catalog product.
func (s *MemoryStore) AddToCart(_ context.Context, productID int64) (models.CartLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pi := s.productIndex(productID)
	if pi < 0 {
		return models.CartLine{}, ErrProductNotFound
	}
	if ci := s.cartIndex(productID); ci >= 0 {
		s.cart[ci].Quantity++
		return s.cart[ci], nil
	}
	line := models.NewCartLine(s.products[pi])
	s.cart = append(s.cart, line)
	return line, nil
}

func (s *MemoryStore) SetCartQuantity(_ context.Context, productID int64, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ci := s.cartIndex(productID)
	if qty <= 0 {
		if ci >= 0 {
			s.cart = append(s.cart[:ci], s.cart[ci+1:]...)
		}
		return nil
	}
	if ci < 0 {
		return ErrCartLineNotFound
	}
	s.cart[ci].Quantity = qty
	return nil
}

func (s *MemoryStore) GetCart(_ context.Context) (models.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.Cart{Lines: models.CopyLines(s.cart)}, nil
}

func (s *MemoryStore) stockOf(id int64) (int, bool) {
	i := s.productIndex(id)
	if i < 0 {
		return 0, false
	}
	return s.products[i].Stock, true
}

func (s *MemoryStore) CheckStock(_ context.Context, lines []models.CartLine) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return checkLines(lines, s.stockOf)
}

func (s *MemoryStore) Commit(_ context.Context, order models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !(models.Cart{Lines: s.cart}).Equal(models.Cart{Lines: order.Items}) {
		return ErrCartChanged
	}
	if err := checkLines(order.Items, s.stockOf); err != nil {
		return err
	}
	owner, ok := s.profiles[models.RoleOwner]
	if !ok {
		return ErrProfileNotFound
	}

	// Nothing below can fail.
	for _, l := range order.Items {
		i := s.productIndex(l.ProductID)
		s.products[i].Stock -= l.Quantity
	}
	s.orders = append([]models.Order{order.Clone()}, s.orders...)
	owner.Balance = owner.Balance.Add(order.Total)
	s.profiles[models.RoleOwner] = owner
	s.cart = nil
	return nil
}

func (s *MemoryStore) ListOrders(_ context.Context) ([]models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Order, len(s.orders))
	for i, o := range s.orders {
		out[i] = o.Clone()
	}
	return out, nil
}

func (s *MemoryStore) GetProfile(_ context.Context, role models.Role) (models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[role]
	if !ok {
		return models.Profile{}, ErrProfileNotFound
	}
	return p, nil
}

func (s *MemoryStore) UpdateProfile(_ context.Context, role models.Role, patch models.ProfilePatch) (models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[role]
	if !ok {
		return models.Profile{}, ErrProfileNotFound
	}
	p = patch.Apply(p)
	s.profiles[role] = p
	return p, nil
}

func (s *MemoryStore) SetWalletAddress(_ context.Context, role models.Role, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[role]
	if !ok {
		return ErrProfileNotFound
	}
	p.WalletAddress = address
	s.profiles[role] = p
	return nil
}
