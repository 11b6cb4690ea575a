package store

import (
	"errors"
	"fmt"

	models "storefront/model"
)

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrCartLineNotFound = errors.New("cart line not found")
	ErrProfileNotFound  = errors.New("profile not found")

	// ErrInsufficientStock matches every *InsufficientStockError.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrCartChanged is returned by Commit when the cart no longer matches the order being committed.
	ErrCartChanged = errors.New("cart changed during checkout")
)

// InsufficientStockError names the first cart line the catalog could not cover.
type InsufficientStockError struct {
	ProductID int64
	Name      string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("not enough stock for %s (product %d): requested %d, available %d",
		e.Name, e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// checkLines walks lines in order and reports the first shortfall.
// A product missing from the catalog has zero available.
func checkLines(lines []models.CartLine, stockOf func(id int64) (int, bool)) error {
	for _, l := range lines {
		available, ok := stockOf(l.ProductID)
		if !ok {
			available = 0
		}
		if available < l.Quantity {
			return &InsufficientStockError{
				ProductID: l.ProductID,
				Name:      l.Name,
				Requested: l.Quantity,
				Available: available,
			}
		}
	}
	return nil
}
