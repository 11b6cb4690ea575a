package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"pgregory.net/rapid"

	models "storefront/model"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newStoreWith(t *testing.T, items ...models.ProductInput) (*MemoryStore, []models.Product) {
	t.Helper()
	s := NewMemoryStore()
	out := make([]models.Product, 0, len(items))
	for _, in := range items {
		p, err := s.CreateProduct(context.Background(), in)
		if err != nil {
			t.Fatalf("create product: %v", err)
		}
		out = append(out, p)
	}
	return s, out
}

func orderFor(t *testing.T, s *MemoryStore, id string) models.Order {
	t.Helper()
	cart, err := s.GetCart(context.Background())
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	return models.Order{ID: id, Items: cart.Lines, Total: cart.Total(), CustomerAddress: "0xabc", Timestamp: time.Now()}
}

func TestCreateProduct_IDsNeverReused(t *testing.T) {
	ctx := context.Background()
	s, ps := newStoreWith(t,
		models.ProductInput{Name: "a", Category: "c", Price: dec("1"), Stock: 1},
		models.ProductInput{Name: "b", Category: "c", Price: dec("1"), Stock: 1},
		models.ProductInput{Name: "c", Category: "c", Price: dec("1"), Stock: 1},
	)
	if err := s.DeleteProduct(ctx, ps[0].ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	p, err := s.CreateProduct(ctx, models.ProductInput{Name: "d", Category: "c", Price: dec("1"), Stock: 1})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for _, old := range ps {
		if p.ID == old.ID {
			t.Fatalf("id %d reused", p.ID)
		}
	}
	if p.ID != 4 {
		t.Fatalf("expected id 4, got %d", p.ID)
	}
}

func TestUpdateProduct_PartialFields(t *testing.T) {
	ctx := context.Background()
	s, ps := newStoreWith(t, models.ProductInput{Name: "Nano-Gear", Category: "Gears", Price: dec("45"), Stock: 300})
	stock := 10
	got, err := s.UpdateProduct(ctx, ps[0].ID, models.ProductPatch{Stock: &stock})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Stock != 10 || got.Name != "Nano-Gear" || !got.Price.Equal(dec("45")) {
		t.Fatalf("unexpected product: %+v", got)
	}
}

func TestUpdateDelete_UnknownID(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	name := "x"
	if _, err := s.UpdateProduct(ctx, 42, models.ProductPatch{Name: &name}); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
	if err := s.DeleteProduct(ctx, 42); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestAddToCart_KeepsFirstPrice(t *testing.T) {
	ctx := context.Background()
	s, ps := newStoreWith(t, models.ProductInput{Name: "w", Category: "c", Price: dec("10.00"), Stock: 5})
	if _, err := s.AddToCart(ctx, ps[0].ID); err != nil {
		t.Fatalf("add: %v", err)
	}
	price := dec("99.00")
	if _, err := s.UpdateProduct(ctx, ps[0].ID, models.ProductPatch{Price: &price}); err != nil {
		t.Fatalf("update: %v", err)
	}
	line, err := s.AddToCart(ctx, ps[0].ID)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if line.Quantity != 2 || !line.Price.Equal(dec("10.00")) {
		t.Fatalf("unexpected line: %+v", line)
	}
}

func TestAddToCart_UnknownProduct(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.AddToCart(context.Background(), 7); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestSetCartQuantity(t *testing.T) {
	ctx := context.Background()
	s, ps := newStoreWith(t, models.ProductInput{Name: "w", Category: "c", Price: dec("2"), Stock: 5})
	_, _ = s.AddToCart(ctx, ps[0].ID)

	if err := s.SetCartQuantity(ctx, ps[0].ID, 4); err != nil {
		t.Fatalf("set: %v", err)
	}
	cart, _ := s.GetCart(ctx)
	if cart.Lines[0].Quantity != 4 {
		t.Fatalf("expected absolute quantity 4, got %d", cart.Lines[0].Quantity)
	}
	if err := s.SetCartQuantity(ctx, ps[0].ID, 0); err != nil {
		t.Fatalf("set zero: %v", err)
	}
	cart, _ = s.GetCart(ctx)
	if !cart.Empty() || !cart.Total().IsZero() {
		t.Fatalf("expected empty cart, got %+v", cart)
	}
	if err := s.SetCartQuantity(ctx, ps[0].ID, 3); !errors.Is(err, ErrCartLineNotFound) {
		t.Fatalf("expected ErrCartLineNotFound, got %v", err)
	}
	if err := s.SetCartQuantity(ctx, ps[0].ID, -1); err != nil {
		t.Fatalf("removing an absent line should be a no-op, got %v", err)
	}
}

func TestCommit_Success(t *testing.T) {
	ctx := context.Background()
	s, ps := newStoreWith(t, models.ProductInput{Name: "w", Category: "c", Price: dec("10.00"), Stock: 2})
	_, _ = s.AddToCart(ctx, ps[0].ID)
	_, _ = s.AddToCart(ctx, ps[0].ID)

	o := orderFor(t, s, "0xhash")
	if !o.Total.Equal(dec("20.00")) {
		t.Fatalf("expected total 20.00, got %s", o.Total)
	}
	if err := s.Commit(ctx, o); err != nil {
		t.Fatalf("commit: %v", err)
	}

	p, _ := s.GetProduct(ctx, ps[0].ID)
	if p.Stock != 0 {
		t.Fatalf("expected stock 0, got %d", p.Stock)
	}
	orders, _ := s.ListOrders(ctx)
	if len(orders) != 1 || orders[0].ID != "0xhash" || !orders[0].Total.Equal(dec("20")) {
		t.Fatalf("unexpected ledger: %+v", orders)
	}
	cart, _ := s.GetCart(ctx)
	if !cart.Empty() {
		t.Fatalf("expected empty cart")
	}
	owner, _ := s.GetProfile(ctx, models.RoleOwner)
	if !owner.Balance.Equal(dec("20")) {
		t.Fatalf("expected revenue 20, got %s", owner.Balance)
	}
}

func TestCommit_InsufficientStockChangesNothing(t *testing.T) {
	ctx := context.Background()
	s, ps := newStoreWith(t,
		models.ProductInput{Name: "ok", Category: "c", Price: dec("1"), Stock: 10},
		models.ProductInput{Name: "short", Category: "c", Price: dec("10.00"), Stock: 2},
	)
	_, _ = s.AddToCart(ctx, ps[0].ID)
	for i := 0; i < 3; i++ {
		_, _ = s.AddToCart(ctx, ps[1].ID)
	}

	err := s.Commit(ctx, orderFor(t, s, "0x1"))
	var se *InsufficientStockError
	if !errors.As(err, &se) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if se.ProductID != ps[1].ID || se.Requested != 3 || se.Available != 2 {
		t.Fatalf("unexpected shortfall: %+v", se)
	}
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected errors.Is ErrInsufficientStock")
	}

	for _, want := range []struct {
		id    int64
		stock int
	}{{ps[0].ID, 10}, {ps[1].ID, 2}} {
		p, _ := s.GetProduct(ctx, want.id)
		if p.Stock != want.stock {
			t.Fatalf("stock of %d changed to %d", want.id, p.Stock)
		}
	}
	orders, _ := s.ListOrders(ctx)
	if len(orders) != 0 {
		t.Fatalf("ledger changed")
	}
	owner, _ := s.GetProfile(ctx, models.RoleOwner)
	if !owner.Balance.IsZero() {
		t.Fatalf("revenue changed")
	}
	cart, _ := s.GetCart(ctx)
	if cart.ItemCount() != 4 {
		t.Fatalf("cart changed: %+v", cart)
	}
}

func TestCommit_CartChanged(t *testing.T) {
	ctx := context.Background()
	s, ps := newStoreWith(t, models.ProductInput{Name: "w", Category: "c", Price: dec("1"), Stock: 10})
	_, _ = s.AddToCart(ctx, ps[0].ID)
	o := orderFor(t, s, "0x1")
	_, _ = s.AddToCart(ctx, ps[0].ID)
	if err := s.Commit(ctx, o); !errors.Is(err, ErrCartChanged) {
		t.Fatalf("expected ErrCartChanged, got %v", err)
	}
}

func TestCheckStock_DeletedProductHasNoneAvailable(t *testing.T) {
	ctx := context.Background()
	s, ps := newStoreWith(t, models.ProductInput{Name: "w", Category: "c", Price: dec("1"), Stock: 10})
	_, _ = s.AddToCart(ctx, ps[0].ID)
	_ = s.DeleteProduct(ctx, ps[0].ID)
	cart, _ := s.GetCart(ctx)
	err := s.CheckStock(ctx, cart.Lines)
	var se *InsufficientStockError
	if !errors.As(err, &se) || se.Available != 0 {
		t.Fatalf("expected shortfall with 0 available, got %v", err)
	}
}

func TestOrders_HistoryIsSnapshot(t *testing.T) {
	ctx := context.Background()
	s, ps := newStoreWith(t, models.ProductInput{Name: "Flux Capacitor", Category: "Time Travel", Price: dec("5"), Stock: 3})
	_, _ = s.AddToCart(ctx, ps[0].ID)
	if err := s.Commit(ctx, orderFor(t, s, "0x1")); err != nil {
		t.Fatalf("commit: %v", err)
	}
	name := "renamed"
	_, _ = s.UpdateProduct(ctx, ps[0].ID, models.ProductPatch{Name: &name})
	_ = s.DeleteProduct(ctx, ps[0].ID)

	orders, _ := s.ListOrders(ctx)
	if orders[0].Items[0].Name != "Flux Capacitor" || orders[0].Items[0].ProductID != ps[0].ID {
		t.Fatalf("history mutated: %+v", orders[0].Items)
	}
	orders[0].Items[0].Name = "tampered"
	again, _ := s.ListOrders(ctx)
	if again[0].Items[0].Name != "Flux Capacitor" {
		t.Fatalf("ListOrders leaked internal slice")
	}
}

func TestOrders_NewestFirst(t *testing.T) {
	ctx := context.Background()
	s, ps := newStoreWith(t, models.ProductInput{Name: "w", Category: "c", Price: dec("1"), Stock: 10})
	for _, id := range []string{"0x1", "0x2", "0x3"} {
		_, _ = s.AddToCart(ctx, ps[0].ID)
		if err := s.Commit(ctx, orderFor(t, s, id)); err != nil {
			t.Fatalf("commit %s: %v", id, err)
		}
	}
	orders, _ := s.ListOrders(ctx)
	if orders[0].ID != "0x3" || orders[2].ID != "0x1" {
		t.Fatalf("expected newest first, got %s..%s", orders[0].ID, orders[2].ID)
	}
}

func TestProfiles(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	email := "boss@dapp.com"
	p, err := s.UpdateProfile(ctx, models.RoleOwner, models.ProfilePatch{Email: &email})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if p.Email != email || p.Name != "Admin User" {
		t.Fatalf("unexpected profile: %+v", p)
	}
	if err := s.SetWalletAddress(ctx, models.RoleCustomer, "0xc0ffee"); err != nil {
		t.Fatalf("set wallet: %v", err)
	}
	c, _ := s.GetProfile(ctx, models.RoleCustomer)
	if c.WalletAddress != "0xc0ffee" {
		t.Fatalf("wallet address not stored")
	}
	if _, err := s.GetProfile(ctx, models.Role("admin")); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestSeed_OnlyWhenEmpty(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	n, err := Seed(ctx, s, DemoCatalog())
	if err != nil || n != 6 {
		t.Fatalf("seed: n=%d err=%v", n, err)
	}
	n, err = Seed(ctx, s, DemoCatalog())
	if err != nil || n != 0 {
		t.Fatalf("second seed should be skipped: n=%d err=%v", n, err)
	}
}

// Concurrent commits against a single unit of stock: exactly one wins.
func TestCommit_ConcurrentSingleWinner(t *testing.T) {
	ctx := context.Background()
	s, ps := newStoreWith(t, models.ProductInput{Name: "Flux Capacitor", Category: "Time Travel", Price: dec("1210000"), Stock: 1})
	_, _ = s.AddToCart(ctx, ps[0].ID)
	o := orderFor(t, s, "")

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			attempt := o
			attempt.ID = string(rune('a' + i))
			if err := s.Commit(ctx, attempt); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("expected exactly one winning commit, got %d", wins)
	}
	p, _ := s.GetProduct(ctx, ps[0].ID)
	if p.Stock != 0 {
		t.Fatalf("expected stock 0, got %d", p.Stock)
	}
}

func TestCartProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		s := NewMemoryStore()
		n := rapid.IntRange(1, 5).Draw(t, "products")
		prices := map[int64]decimal.Decimal{}
		for i := 0; i < n; i++ {
			cents := rapid.Int64Range(0, 1_000_000).Draw(t, "cents")
			p, _ := s.CreateProduct(ctx, models.ProductInput{
				Name: "p", Category: "c", Price: decimal.New(cents, -2), Stock: 10,
			})
			prices[p.ID] = p.Price
		}

		adds := map[int64]int{}
		steps := rapid.IntRange(0, 40).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			id := rapid.Int64Range(1, int64(n)).Draw(t, "id")
			if rapid.Bool().Draw(t, "set") {
				q := rapid.IntRange(-2, 6).Draw(t, "qty")
				err := s.SetCartQuantity(ctx, id, q)
				switch {
				case q <= 0:
					delete(adds, id)
				case adds[id] == 0:
					if !errors.Is(err, ErrCartLineNotFound) {
						t.Fatalf("expected ErrCartLineNotFound, got %v", err)
					}
				default:
					adds[id] = q
				}
				continue
			}
			if _, err := s.AddToCart(ctx, id); err != nil {
				t.Fatalf("add: %v", err)
			}
			adds[id]++
		}

		cart, _ := s.GetCart(ctx)
		if len(cart.Lines) != len(adds) {
			t.Fatalf("expected %d lines, got %d", len(adds), len(cart.Lines))
		}
		want := decimal.Zero
		items := 0
		seen := map[int64]bool{}
		for _, l := range cart.Lines {
			if seen[l.ProductID] {
				t.Fatalf("duplicate line for %d", l.ProductID)
			}
			seen[l.ProductID] = true
			if l.Quantity <= 0 || l.Quantity != adds[l.ProductID] {
				t.Fatalf("line %d quantity %d, want %d", l.ProductID, l.Quantity, adds[l.ProductID])
			}
			want = want.Add(prices[l.ProductID].Mul(decimal.NewFromInt(int64(l.Quantity))))
			items += l.Quantity
		}
		if !cart.Total().Equal(want) {
			t.Fatalf("total %s, want %s", cart.Total(), want)
		}
		if cart.ItemCount() != items {
			t.Fatalf("item count %d, want %d", cart.ItemCount(), items)
		}
	})
}
