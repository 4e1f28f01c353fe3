package customers

import (
	"time"

	"github.com/shopspring/decimal"
)

// Customer is one credit account holder under a shop. The balance
// fields are denormalised ledger state: they are written exclusively
// by the ledger engine and only read here.
type Customer struct {
	ID          int64           `json:"id"`
	ShopID      int64           `json:"shop_id"`
	Name        string          `json:"name"`
	Phone       *string         `json:"phone,omitempty"`
	Email       *string         `json:"email,omitempty"`
	Address     *string         `json:"address,omitempty"`
	Notes       *string         `json:"notes,omitempty"`
	Balance     decimal.Decimal `json:"balance"`
	TotalCredit decimal.Decimal `json:"total_credit"`
	TotalPaid   decimal.Decimal `json:"total_paid"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
