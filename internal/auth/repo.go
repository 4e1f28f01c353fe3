package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerbook/ledgerbook/internal/shared"
)

// Repository loads API key records from PostgreSQL.
type Repository interface {
	FindByKeyID(ctx context.Context, keyID string) (*APIKey, error)
	TouchLastUsed(ctx context.Context, keyID string) error
	Insert(ctx context.Context, key APIKey) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) FindByKeyID(ctx context.Context, keyID string) (*APIKey, error) {
	var key APIKey
	err := r.pool.QueryRow(ctx, `SELECT key_id, shop_id, secret_hash, is_active, created_at, last_used_at FROM shop_api_keys WHERE key_id=$1`, keyID).
		Scan(&key.KeyID, &key.ShopID, &key.SecretHash, &key.IsActive, &key.CreatedAt, &key.LastUsedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &key, nil
}

func (r *repository) TouchLastUsed(ctx context.Context, keyID string) error {
	_, err := r.pool.Exec(ctx, `UPDATE shop_api_keys SET last_used_at=NOW() WHERE key_id=$1`, keyID)
	return err
}

func (r *repository) Insert(ctx context.Context, key APIKey) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO shop_api_keys (key_id, shop_id, secret_hash, is_active, created_at) VALUES ($1, $2, $3, $4, NOW())`,
		key.KeyID, key.ShopID, key.SecretHash, key.IsActive)
	return err
}
