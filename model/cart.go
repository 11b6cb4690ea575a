package models

import "github.com/shopspring/decimal"

// CartLine is a product snapshot taken when it was first added, plus the held quantity.
type CartLine struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

func NewCartLine(p Product) CartLine {
	return CartLine{ProductID: p.ID, Name: p.Name, Category: p.Category, Price: p.Price, Quantity: 1}
}

func (l CartLine) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Cart struct {
	Lines []CartLine `json:"items"`
}

func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// ItemCount is the number of units held, not the number of lines.
func (c Cart) ItemCount() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

func (c Cart) Empty() bool { return len(c.Lines) == 0 }

// Equal reports whether both carts hold the same products in the same quantities and prices.
func (c Cart) Equal(o Cart) bool {
	if len(c.Lines) != len(o.Lines) {
		return false
	}
	for i := range c.Lines {
		a, b := c.Lines[i], o.Lines[i]
		if a.ProductID != b.ProductID || a.Quantity != b.Quantity || !a.Price.Equal(b.Price) {
			return false
		}
	}
	return true
}

// CopyLines returns a copy of lines that shares no backing array with the input.
func CopyLines(lines []CartLine) []CartLine {
	out := make([]CartLine, len(lines))
	copy(out, lines)
	return out
}
