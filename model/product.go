package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Price    decimal.Decimal `json:"price"`
	Stock    int             `json:"stock"`
}

// ProductInput carries the fields of a product that is about to be created.
type ProductInput struct {
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Price    decimal.Decimal `json:"price"`
	Stock    int             `json:"stock"`
}

// ProductPatch is a partial update: nil fields are left untouched.
type ProductPatch struct {
	Name     *string          `json:"name,omitempty"`
	Category *string          `json:"category,omitempty"`
	Price    *decimal.Decimal `json:"price,omitempty"`
	Stock    *int             `json:"stock,omitempty"`
}

// Apply returns p with the supplied fields of the patch replaced.
func (pp ProductPatch) Apply(p Product) Product {
	if pp.Name != nil {
		p.Name = *pp.Name
	}
	if pp.Category != nil {
		p.Category = *pp.Category
	}
	if pp.Price != nil {
		p.Price = *pp.Price
	}
	if pp.Stock != nil {
		p.Stock = *pp.Stock
	}
	return p
}

func (pp ProductPatch) Empty() bool {
	return pp.Name == nil && pp.Category == nil && pp.Price == nil && pp.Stock == nil
}

// AllCategories is the catalog filter value that matches every category.
const AllCategories = "All"

type ProductFilter struct {
	Category string
	Search   string
}

// Match reports whether p passes the category and case-insensitive name filters.
func (f ProductFilter) Match(p Product) bool {
	if f.Category != "" && f.Category != AllCategories && p.Category != f.Category {
		return false
	}
	if f.Search == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Search))
}

// Categories returns "All" followed by the distinct categories of ps in order of first appearance.
func Categories(ps []Product) []string {
	out := []string{AllCategories}
	seen := map[string]bool{}
	for _, p := range ps {
		if seen[p.Category] {
			continue
		}
		seen[p.Category] = true
		out = append(out, p.Category)
	}
	return out
}
