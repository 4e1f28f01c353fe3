package auth

import "time"

// APIKey is one shop-scoped API credential. The secret is stored as a
// bcrypt hash; the plaintext exists only at issuance time.
type APIKey struct {
	KeyID      string
	ShopID     int64
	SecretHash string
	IsActive   bool
	CreatedAt  time.Time
	LastUsedAt *time.Time
}
