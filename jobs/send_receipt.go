package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
)

// SendReceiptJob notifies the customer about a posted entry.
type SendReceiptJob struct {
	Logger *slog.Logger
}

// NewSendReceiptJob initialises the receipt handler.
func NewSendReceiptJob(logger *slog.Logger) *SendReceiptJob {
	return &SendReceiptJob{Logger: logger}
}

// Handle processes TaskLedgerSendReceipt tasks.
func (j *SendReceiptJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload SendReceiptPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	logger := slog.Default()
	if j != nil && j.Logger != nil {
		logger = j.Logger
	}
	// Placeholder: integrate with the SMS/WhatsApp provider in phase 2.
	logger.Info("send receipt",
		slog.Int64("shop_id", payload.ShopID),
		slog.Int64("customer_id", payload.CustomerID),
		slog.Int64("entry_id", payload.EntryID),
		slog.String("amount", payload.Amount),
	)
	return nil
}
