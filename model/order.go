package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is an immutable record of a completed purchase. ID is the transaction hash.
type Order struct {
	ID              string          `json:"id"`
	Items           []CartLine      `json:"items"`
	Total           decimal.Decimal `json:"total"`
	CustomerAddress string          `json:"customer_address"`
	Timestamp       time.Time       `json:"timestamp"`
}

func (o Order) Clone() Order {
	o.Items = CopyLines(o.Items)
	return o
}
