package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerbook/ledgerbook/internal/platform/db"
)

// Repository persists ledger data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by the service.
type TxRepository interface {
	GetAccountForUpdate(ctx context.Context, shopID, customerID int64) (Account, error)
	ApplyDelta(ctx context.Context, shopID, customerID int64, delta AccountDelta) (Account, error)
	InsertEntry(ctx context.Context, entry Entry) (int64, error)
	GetEntryForUpdate(ctx context.Context, shopID, entryID int64) (Entry, error)
	MarkReversed(ctx context.Context, entryID int64, at time.Time, reason string) error
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
// Serialization failures surface as ErrConflict so callers can retry
// the whole unit.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("ledger repository not initialised")
	}
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
	if err != nil {
		return mapConflict(err)
	}
	return nil
}

func mapConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 40001 serialization_failure, 40P01 deadlock_detected
		if pgErr.Code == "40001" || pgErr.Code == "40P01" {
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.Code)
		}
	}
	return err
}

// GetAccount returns the balance state of one customer.
func (r *Repository) GetAccount(ctx context.Context, shopID, customerID int64) (Account, error) {
	acct := Account{ShopID: shopID, CustomerID: customerID}
	err := r.pool.QueryRow(ctx, `SELECT balance, total_credit, total_paid, updated_at FROM customers WHERE shop_id=$1 AND id=$2`, shopID, customerID).
		Scan(&acct.Balance, &acct.TotalCredit, &acct.TotalPaid, &acct.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrCustomerNotFound
		}
		return Account{}, err
	}
	return acct, nil
}

// ListEntries returns entries matching the filter plus the total count.
func (r *Repository) ListEntries(ctx context.Context, filter EntryFilter) ([]Entry, int, error) {
	where := "WHERE shop_id=$1"
	args := []interface{}{filter.ShopID}
	argPos := 2

	if filter.CustomerID != 0 {
		where += fmt.Sprintf(" AND customer_id=$%d", argPos)
		args = append(args, filter.CustomerID)
		argPos++
	}
	if filter.Type != "" {
		where += fmt.Sprintf(" AND entry_type=$%d", argPos)
		args = append(args, filter.Type)
		argPos++
	}
	if !filter.From.IsZero() {
		where += fmt.Sprintf(" AND occurred_at >= $%d", argPos)
		args = append(args, filter.From)
		argPos++
	}
	if !filter.To.IsZero() {
		where += fmt.Sprintf(" AND occurred_at <= $%d", argPos)
		args = append(args, filter.To)
		argPos++
	}
	if !filter.IncludeDeleted {
		where += " AND is_deleted = FALSE"
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM ledger_entries "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT id, shop_id, customer_id, entry_type, amount, balance_after, description, payment_method, occurred_at, is_deleted, deleted_at, deleted_reason, created_at
FROM ledger_entries %s
ORDER BY occurred_at DESC, id DESC
LIMIT $%d OFFSET $%d`, where, argPos, argPos+1)
	args = append(args, limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var deletedReason *string
		if err := rows.Scan(&e.ID, &e.ShopID, &e.CustomerID, &e.Type, &e.Amount, &e.BalanceAfter, &e.Description, &e.PaymentMethod, &e.OccurredAt, &e.IsDeleted, &e.DeletedAt, &deletedReason, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		if deletedReason != nil {
			e.DeletedReason = *deletedReason
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// Summarize aggregates non-deleted entries per shop and period.
func (r *Repository) Summarize(ctx context.Context, shopID int64, from, to time.Time) (Summary, error) {
	var s Summary
	err := r.pool.QueryRow(ctx, `SELECT
COALESCE(SUM(amount) FILTER (WHERE entry_type='CREDIT'), 0),
COUNT(*) FILTER (WHERE entry_type='CREDIT'),
COALESCE(SUM(amount) FILTER (WHERE entry_type='PAYMENT'), 0),
COUNT(*) FILTER (WHERE entry_type='PAYMENT')
FROM ledger_entries
WHERE shop_id=$1 AND is_deleted = FALSE
AND occurred_at BETWEEN COALESCE($2, '-infinity') AND COALESCE($3, 'infinity')`,
		shopID, nullTime(from), nullTime(to)).
		Scan(&s.CreditTotal, &s.CreditCount, &s.PaymentTotal, &s.PaymentCount)
	if err != nil {
		return Summary{}, err
	}
	return s, nil
}

func (tx *txRepository) GetAccountForUpdate(ctx context.Context, shopID, customerID int64) (Account, error) {
	acct := Account{ShopID: shopID, CustomerID: customerID}
	err := tx.tx.QueryRow(ctx, `SELECT balance, total_credit, total_paid, updated_at FROM customers WHERE shop_id=$1 AND id=$2 FOR UPDATE`, shopID, customerID).
		Scan(&acct.Balance, &acct.TotalCredit, &acct.TotalPaid, &acct.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrCustomerNotFound
		}
		return Account{}, err
	}
	return acct, nil
}

func (tx *txRepository) ApplyDelta(ctx context.Context, shopID, customerID int64, delta AccountDelta) (Account, error) {
	acct := Account{ShopID: shopID, CustomerID: customerID}
	err := tx.tx.QueryRow(ctx, `UPDATE customers
SET balance = balance + $3, total_credit = total_credit + $4, total_paid = total_paid + $5, updated_at = NOW()
WHERE shop_id=$1 AND id=$2
RETURNING balance, total_credit, total_paid, updated_at`,
		shopID, customerID, delta.Balance, delta.Credit, delta.Paid).
		Scan(&acct.Balance, &acct.TotalCredit, &acct.TotalPaid, &acct.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrCustomerNotFound
		}
		return Account{}, err
	}
	return acct, nil
}

func (tx *txRepository) InsertEntry(ctx context.Context, entry Entry) (int64, error) {
	var id int64
	err := tx.tx.QueryRow(ctx, `INSERT INTO ledger_entries (shop_id, customer_id, entry_type, amount, balance_after, description, payment_method, occurred_at, is_deleted, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, FALSE, $9) RETURNING id`,
		entry.ShopID, entry.CustomerID, entry.Type, entry.Amount, entry.BalanceAfter, entry.Description, entry.PaymentMethod, entry.OccurredAt, entry.CreatedAt).Scan(&id)
	return id, err
}

func (tx *txRepository) GetEntryForUpdate(ctx context.Context, shopID, entryID int64) (Entry, error) {
	var e Entry
	var deletedReason *string
	err := tx.tx.QueryRow(ctx, `SELECT id, shop_id, customer_id, entry_type, amount, balance_after, description, payment_method, occurred_at, is_deleted, deleted_at, deleted_reason, created_at
FROM ledger_entries WHERE shop_id=$1 AND id=$2 FOR UPDATE`, shopID, entryID).
		Scan(&e.ID, &e.ShopID, &e.CustomerID, &e.Type, &e.Amount, &e.BalanceAfter, &e.Description, &e.PaymentMethod, &e.OccurredAt, &e.IsDeleted, &e.DeletedAt, &deletedReason, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, ErrEntryNotFound
		}
		return Entry{}, err
	}
	if deletedReason != nil {
		e.DeletedReason = *deletedReason
	}
	return e, nil
}

func (tx *txRepository) MarkReversed(ctx context.Context, entryID int64, at time.Time, reason string) error {
	tag, err := tx.tx.Exec(ctx, `UPDATE ledger_entries SET is_deleted=TRUE, deleted_at=$2, deleted_reason=$3 WHERE id=$1 AND is_deleted=FALSE`, entryID, at, reason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyReversed
	}
	return nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
