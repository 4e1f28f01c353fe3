package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerbook/ledgerbook/internal/shared"
)

type CreateEntryRequest struct {
	Type           string          `json:"type" validate:"required,oneof=CREDIT PAYMENT"`
	// No required tag on Amount: missing decodes to zero and is
	// rejected by the engine's positive-amount check, same as "0".
	Amount decimal.Decimal `json:"amount"`
	Description    string          `json:"description,omitempty" validate:"omitempty,max=500"`
	PaymentMethod  string          `json:"payment_method,omitempty" validate:"omitempty,max=50"`
	OccurredAt     *time.Time      `json:"occurred_at,omitempty"`
	IdempotencyKey string          `json:"idempotency_key,omitempty" validate:"omitempty,max=100"`
}

type ReverseEntryRequest struct {
	Reason string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

type EntryResponse struct {
	ID            int64           `json:"id"`
	CustomerID    int64           `json:"customer_id"`
	Type          EntryType       `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	Description   string          `json:"description,omitempty"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
	IsDeleted     bool            `json:"is_deleted"`
	DeletedAt     *time.Time      `json:"deleted_at,omitempty"`
	DeletedReason string          `json:"deleted_reason,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

type AccountResponse struct {
	CustomerID  int64           `json:"customer_id"`
	Balance     decimal.Decimal `json:"balance"`
	TotalCredit decimal.Decimal `json:"total_credit"`
	TotalPaid   decimal.Decimal `json:"total_paid"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type CreateEntryResponse struct {
	Entry   EntryResponse   `json:"entry"`
	Account AccountResponse `json:"account"`
}

type ReverseEntryResponse struct {
	Account AccountResponse `json:"account"`
}

type ListEntriesResponse struct {
	Entries    []EntryResponse   `json:"entries"`
	Pagination shared.Pagination `json:"pagination"`
}

func toEntryResponse(e Entry) EntryResponse {
	return EntryResponse{
		ID:            e.ID,
		CustomerID:    e.CustomerID,
		Type:          e.Type,
		Amount:        e.Amount,
		BalanceAfter:  e.BalanceAfter,
		Description:   e.Description,
		PaymentMethod: e.PaymentMethod,
		OccurredAt:    e.OccurredAt,
		IsDeleted:     e.IsDeleted,
		DeletedAt:     e.DeletedAt,
		DeletedReason: e.DeletedReason,
		CreatedAt:     e.CreatedAt,
	}
}

func toAccountResponse(a Account) AccountResponse {
	return AccountResponse{
		CustomerID:  a.CustomerID,
		Balance:     a.Balance,
		TotalCredit: a.TotalCredit,
		TotalPaid:   a.TotalPaid,
		UpdatedAt:   a.UpdatedAt,
	}
}
