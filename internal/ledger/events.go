package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// EntryPostedEvent represents a committed ledger entry ready for
// out-of-band processing (receipt notification and the like).
type EntryPostedEvent struct {
	EntryID      int64
	ShopID       int64
	CustomerID   int64
	Type         EntryType
	Amount       decimal.Decimal
	BalanceAfter decimal.Decimal
	OccurredAt   time.Time
}

// IntegrationHandler receives events after the atomic unit committed.
// Handler failures must not unwind the ledger write.
type IntegrationHandler interface {
	HandleEntryPosted(ctx context.Context, evt EntryPostedEvent) error
}
