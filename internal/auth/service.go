package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ledgerbook/ledgerbook/internal/shared"
)

// Service verifies shop API credentials.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Authenticate resolves a bearer token of the form "<keyID>.<secret>"
// to the owning shop id.
func (s *Service) Authenticate(ctx context.Context, token string) (int64, error) {
	keyID, secret, found := strings.Cut(token, ".")
	if !found || keyID == "" || secret == "" {
		return 0, shared.ErrInvalidAPIKey
	}
	key, err := s.repo.FindByKeyID(ctx, keyID)
	if err != nil {
		return 0, shared.ErrInvalidAPIKey
	}
	if !key.IsActive {
		return 0, shared.ErrInvalidAPIKey
	}
	if err := bcrypt.CompareHashAndPassword([]byte(key.SecretHash), []byte(secret)); err != nil {
		return 0, shared.ErrInvalidAPIKey
	}
	_ = s.repo.TouchLastUsed(ctx, keyID)
	return key.ShopID, nil
}

// Issue mints a new API key for a shop and returns the one-time
// plaintext token. Only the bcrypt hash of the secret is stored.
func (s *Service) Issue(ctx context.Context, shopID int64) (string, error) {
	keyID := "lk_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	secret := uuid.NewString()
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	key := APIKey{
		KeyID:      keyID,
		ShopID:     shopID,
		SecretHash: string(hash),
		IsActive:   true,
	}
	if err := s.repo.Insert(ctx, key); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s.%s", keyID, secret), nil
}
