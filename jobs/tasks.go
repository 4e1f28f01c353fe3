package jobs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerIntegrityScan recomputes account balances from entries.
	TaskLedgerIntegrityScan = "ledger:integrity_scan"
	// TaskLedgerSendReceipt delivers a receipt for a posted entry.
	TaskLedgerSendReceipt = "ledger:send_receipt"
	// TaskIdempotencyCleanup prunes aged idempotency keys.
	TaskIdempotencyCleanup = "ledger:idempotency_cleanup"
)

// IntegrityScanPayload selects the scan scope. ShopID zero scans all shops.
type IntegrityScanPayload struct {
	ShopID int64 `json:"shop_id"`
}

// NewIntegrityScanTask constructs an Asynq task.
func NewIntegrityScanTask(shopID int64) (*asynq.Task, error) {
	data, err := json.Marshal(IntegrityScanPayload{ShopID: shopID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerIntegrityScan, data), nil
}

// SendReceiptPayload describes the receipt to deliver.
type SendReceiptPayload struct {
	EntryID      int64     `json:"entry_id"`
	ShopID       int64     `json:"shop_id"`
	CustomerID   int64     `json:"customer_id"`
	EntryType    string    `json:"entry_type"`
	Amount       string    `json:"amount"`
	BalanceAfter string    `json:"balance_after"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// NewSendReceiptTask constructs an Asynq task.
func NewSendReceiptTask(payload SendReceiptPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerSendReceipt, data), nil
}

// IdempotencyCleanupPayload carries the retention window in hours.
type IdempotencyCleanupPayload struct {
	RetentionHours int `json:"retention_hours"`
}

// NewIdempotencyCleanupTask constructs an Asynq task.
func NewIdempotencyCleanupTask(retentionHours int) (*asynq.Task, error) {
	data, err := json.Marshal(IdempotencyCleanupPayload{RetentionHours: retentionHours})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data), nil
}

// Client submits jobs to the queue.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) (*Client, error) {
	client := asynq.NewClient(redisOpts)
	return &Client{client: client}, nil
}

// EnqueueSendReceipt enqueues a send-receipt task.
func (c *Client) EnqueueSendReceipt(ctx context.Context, payload SendReceiptPayload) (*asynq.TaskInfo, error) {
	task, err := NewSendReceiptTask(payload)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault))
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}
