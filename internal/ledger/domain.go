package ledger

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// EntryType enumerates supported ledger entry kinds.
type EntryType string

const (
	// EntryTypeCredit increases what the customer owes the shop.
	EntryTypeCredit EntryType = "CREDIT"
	// EntryTypePayment decreases what the customer owes the shop.
	EntryTypePayment EntryType = "PAYMENT"
)

// Valid reports whether t names a known entry kind.
func (t EntryType) Valid() bool {
	return t == EntryTypeCredit || t == EntryTypePayment
}

// Signed returns the balance delta an entry of this type applies.
func (t EntryType) Signed(amount decimal.Decimal) decimal.Decimal {
	if t == EntryTypePayment {
		return amount.Neg()
	}
	return amount
}

// Account summarises the balance state of one customer under a shop.
// Positive balance means the customer owes the shop.
type Account struct {
	ShopID      int64
	CustomerID  int64
	Balance     decimal.Decimal
	TotalCredit decimal.Decimal
	TotalPaid   decimal.Decimal
	UpdatedAt   time.Time
}

// Entry models one credit or payment event against a customer account.
// Type and Amount are immutable after creation; the only permitted
// mutation is the soft-delete transition.
type Entry struct {
	ID            int64
	ShopID        int64
	CustomerID    int64
	Type          EntryType
	Amount        decimal.Decimal
	BalanceAfter  decimal.Decimal
	Description   string
	PaymentMethod string
	OccurredAt    time.Time
	IsDeleted     bool
	DeletedAt     *time.Time
	DeletedReason string
	CreatedAt     time.Time
}

// AccountDelta groups the field deltas applied atomically to an account.
type AccountDelta struct {
	Balance decimal.Decimal
	Credit  decimal.Decimal
	Paid    decimal.Decimal
}

// CreateEntryInput describes a request to record a ledger entry.
type CreateEntryInput struct {
	ShopID         int64
	CustomerID     int64
	Type           EntryType
	Amount         decimal.Decimal
	Description    string
	PaymentMethod  string
	OccurredAt     time.Time
	IdempotencyKey string
	ActorID        int64
}

// ReverseEntryInput describes a request to reverse (soft delete) an entry.
type ReverseEntryInput struct {
	ShopID  int64
	EntryID int64
	Reason  string
	ActorID int64
}

// EntryFilter filters entry listings.
type EntryFilter struct {
	ShopID         int64
	CustomerID     int64
	Type           EntryType
	From           time.Time
	To             time.Time
	IncludeDeleted bool
	Limit          int
	Offset         int
}

// Summary aggregates a shop's non-deleted entries by type.
type Summary struct {
	CreditTotal  decimal.Decimal `json:"credit_total"`
	CreditCount  int64           `json:"credit_count"`
	PaymentTotal decimal.Decimal `json:"payment_total"`
	PaymentCount int64           `json:"payment_count"`
}

var (
	// ErrCustomerNotFound indicates no customer under the given shop.
	ErrCustomerNotFound = errors.New("ledger: customer not found")
	// ErrEntryNotFound indicates a missing entry or wrong shop.
	ErrEntryNotFound = errors.New("ledger: entry not found")
	// ErrInvalidAmount rejects zero or negative amounts.
	ErrInvalidAmount = errors.New("ledger: amount must be positive")
	// ErrInvalidEntryType rejects unknown entry kinds.
	ErrInvalidEntryType = errors.New("ledger: unknown entry type")
	// ErrAlreadyReversed rejects reversal of a reversed entry.
	ErrAlreadyReversed = errors.New("ledger: entry already reversed")
	// ErrDuplicateEntry indicates the idempotency key was seen before.
	ErrDuplicateEntry = errors.New("ledger: duplicate entry submission")
	// ErrConflict indicates a transient serialization conflict.
	ErrConflict = errors.New("ledger: concurrent update conflict")
)
