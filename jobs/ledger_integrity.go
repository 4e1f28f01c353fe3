package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	jobmetrics "github.com/ledgerbook/ledgerbook/internal/jobs"
)

// IntegrityScanJob recomputes every account balance from its non-deleted
// entries and compares against the stored fields. Drift means the
// ledger invariant was violated somewhere and needs investigation.
type IntegrityScanJob struct {
	Pool    *pgxpool.Pool
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewIntegrityScanJob initialises the integrity scan handler.
func NewIntegrityScanJob(pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *IntegrityScanJob {
	return &IntegrityScanJob{Pool: pool, Logger: logger, Metrics: metrics}
}

type accountDrift struct {
	ShopID     int64
	CustomerID int64
	Stored     decimal.Decimal
	Computed   decimal.Decimal
}

// Handle executes the integrity scan.
func (j *IntegrityScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Pool == nil {
		return errors.New("integrity scan: handler not configured")
	}
	var payload IntegrityScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.Metrics.Track(TaskLedgerIntegrityScan)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.Int64("shop_id", payload.ShopID))
	logger.Info("starting ledger integrity scan")

	shops, err := j.shopIDs(ctx, payload.ShopID)
	if err != nil {
		resultErr = err
		logger.Error("list shops failed", slog.Any("error", err))
		return resultErr
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	drifts := make([][]accountDrift, len(shops))
	for i, shopID := range shops {
		i, shopID := i, shopID
		g.Go(func() error {
			found, err := j.scanShop(gctx, shopID)
			if err != nil {
				return err
			}
			drifts[i] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		resultErr = err
		logger.Error("scan failed", slog.Any("error", err))
		return resultErr
	}

	total := 0
	for i, shopID := range shops {
		for _, d := range drifts[i] {
			logger.Error("ledger drift detected",
				slog.Int64("shop_id", d.ShopID),
				slog.Int64("customer_id", d.CustomerID),
				slog.String("stored_balance", d.Stored.String()),
				slog.String("computed_balance", d.Computed.String()),
			)
		}
		j.Metrics.AddDrift(shopID, len(drifts[i]))
		total += len(drifts[i])
	}
	logger.Info("ledger integrity scan finished",
		slog.Int("shops", len(shops)),
		slog.Int("drift_accounts", total),
	)
	return nil
}

func (j *IntegrityScanJob) shopIDs(ctx context.Context, shopID int64) ([]int64, error) {
	if shopID != 0 {
		return []int64{shopID}, nil
	}
	rows, err := j.Pool.Query(ctx, `SELECT DISTINCT shop_id FROM customers ORDER BY shop_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (j *IntegrityScanJob) scanShop(ctx context.Context, shopID int64) ([]accountDrift, error) {
	rows, err := j.Pool.Query(ctx, `SELECT c.id, c.balance, c.total_credit, c.total_paid,
COALESCE(SUM(e.amount) FILTER (WHERE e.entry_type='CREDIT' AND NOT e.is_deleted), 0),
COALESCE(SUM(e.amount) FILTER (WHERE e.entry_type='PAYMENT' AND NOT e.is_deleted), 0)
FROM customers c
LEFT JOIN ledger_entries e ON e.shop_id = c.shop_id AND e.customer_id = c.id
WHERE c.shop_id = $1
GROUP BY c.id, c.balance, c.total_credit, c.total_paid`, shopID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drifts []accountDrift
	for rows.Next() {
		var customerID int64
		var balance, totalCredit, totalPaid, credit, paid decimal.Decimal
		if err := rows.Scan(&customerID, &balance, &totalCredit, &totalPaid, &credit, &paid); err != nil {
			return nil, err
		}
		computed := credit.Sub(paid)
		if !balance.Equal(computed) || !totalCredit.Equal(credit) || !totalPaid.Equal(paid) {
			drifts = append(drifts, accountDrift{
				ShopID:     shopID,
				CustomerID: customerID,
				Stored:     balance,
				Computed:   computed,
			})
		}
	}
	return drifts, rows.Err()
}

func (j *IntegrityScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
