package models

import "github.com/shopspring/decimal"

// RecentOrderCount is how many orders the owner dashboard shows.
const RecentOrderCount = 3

type OwnerDashboard struct {
	Revenue      decimal.Decimal `json:"revenue"`
	ProductCount int             `json:"product_count"`
	TotalStock   int             `json:"total_stock"`
	OrderCount   int             `json:"order_count"`
	RecentOrders []Order         `json:"recent_orders"`
}

type CustomerDashboard struct {
	CartItems    int             `json:"cart_items"`
	CartValue    decimal.Decimal `json:"cart_value"`
	ProductCount int             `json:"product_count"`
}
