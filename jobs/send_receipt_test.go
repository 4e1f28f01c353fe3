package jobs

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

func TestSendReceiptLogsThroughLogger(t *testing.T) {
	var buf bytes.Buffer
	job := NewSendReceiptJob(slog.New(slog.NewTextHandler(&buf, nil)))

	task, err := NewSendReceiptTask(SendReceiptPayload{
		EntryID:      42,
		ShopID:       1,
		CustomerID:   7,
		EntryType:    "CREDIT",
		Amount:       "250",
		BalanceAfter: "250",
		OccurredAt:   time.Now(),
	})
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	require.Contains(t, buf.String(), "entry_id=42")
	require.Contains(t, buf.String(), "shop_id=1")
}

func TestSendReceiptSkipsRetryOnBadPayload(t *testing.T) {
	job := NewSendReceiptJob(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	task := asynq.NewTask(TaskLedgerSendReceipt, []byte("{not json"))

	err := job.Handle(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
}
