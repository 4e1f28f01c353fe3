package customers

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound           = errors.New("customers: record not found")
	ErrOutstandingBalance = errors.New("customers: balance must be settled first")
)

// Repository defines data access for customer records. Balance fields
// are read-only here; only the ledger engine mutates them.
type Repository interface {
	Get(ctx context.Context, shopID, id int64) (*Customer, error)
	List(ctx context.Context, req ListCustomersRequest) ([]Customer, int, error)
	Create(ctx context.Context, customer Customer) (int64, error)
	Update(ctx context.Context, shopID, id int64, updates map[string]interface{}) error
	DeleteIfSettled(ctx context.Context, shopID, id int64) (bool, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Get(ctx context.Context, shopID, id int64) (*Customer, error) {
	var c Customer
	err := r.pool.QueryRow(ctx, `SELECT id, shop_id, name, phone, email, address, notes, balance, total_credit, total_paid, is_active, created_at, updated_at
FROM customers WHERE shop_id=$1 AND id=$2`, shopID, id).
		Scan(&c.ID, &c.ShopID, &c.Name, &c.Phone, &c.Email, &c.Address, &c.Notes, &c.Balance, &c.TotalCredit, &c.TotalPaid, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *repository) List(ctx context.Context, req ListCustomersRequest) ([]Customer, int, error) {
	where := "WHERE shop_id = $1"
	args := []interface{}{req.ShopID}
	argPos := 2

	if req.IsActive != nil {
		where += fmt.Sprintf(" AND is_active = $%d", argPos)
		args = append(args, *req.IsActive)
		argPos++
	}
	if req.Search != nil && *req.Search != "" {
		where += fmt.Sprintf(" AND (name ILIKE $%d OR phone ILIKE $%d)", argPos, argPos)
		args = append(args, "%"+*req.Search+"%")
		argPos++
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM customers "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT id, shop_id, name, phone, email, address, notes, balance, total_credit, total_paid, is_active, created_at, updated_at
FROM customers %s ORDER BY name LIMIT $%d OFFSET $%d`, where, argPos, argPos+1)
	args = append(args, limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.ShopID, &c.Name, &c.Phone, &c.Email, &c.Address, &c.Notes, &c.Balance, &c.TotalCredit, &c.TotalPaid, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, 0, err
		}
		result = append(result, c)
	}
	return result, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, customer Customer) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO customers (shop_id, name, phone, email, address, notes, balance, total_credit, total_paid, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, 0, 0, 0, TRUE, NOW(), NOW()) RETURNING id`,
		customer.ShopID, customer.Name, customer.Phone, customer.Email, customer.Address, customer.Notes).Scan(&id)
	return id, err
}

func (r *repository) Update(ctx context.Context, shopID, id int64, updates map[string]interface{}) error {
	query := "UPDATE customers SET updated_at = NOW()"
	var args []interface{}
	argPos := 1

	for _, col := range []string{"name", "phone", "email", "address", "notes", "is_active"} {
		if v, ok := updates[col]; ok {
			query += fmt.Sprintf(", %s = $%d", col, argPos)
			args = append(args, v)
			argPos++
		}
	}

	query += fmt.Sprintf(" WHERE shop_id = $%d AND id = $%d", argPos, argPos+1)
	args = append(args, shopID, id)

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteIfSettled deletes the customer only when the balance is zero.
// The guard and the delete are one statement, so a concurrent ledger
// write cannot slip between check and removal.
func (r *repository) DeleteIfSettled(ctx context.Context, shopID, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM customers WHERE shop_id=$1 AND id=$2 AND balance = 0`, shopID, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
