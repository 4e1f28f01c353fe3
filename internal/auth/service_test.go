package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ledgerbook/ledgerbook/internal/shared"
)

type memoryRepo struct {
	keys      map[string]APIKey
	touched   []string
	findCalls int
}

func (r *memoryRepo) FindByKeyID(ctx context.Context, keyID string) (*APIKey, error) {
	r.findCalls++
	key, ok := r.keys[keyID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &key, nil
}

func (r *memoryRepo) Insert(ctx context.Context, key APIKey) error {
	r.keys[key.KeyID] = key
	return nil
}

func (r *memoryRepo) TouchLastUsed(ctx context.Context, keyID string) error {
	r.touched = append(r.touched, keyID)
	return nil
}

func newRepoWithKey(t *testing.T, keyID, secret string, shopID int64, active bool) *memoryRepo {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.MinCost)
	require.NoError(t, err)
	return &memoryRepo{keys: map[string]APIKey{
		keyID: {KeyID: keyID, ShopID: shopID, SecretHash: string(hash), IsActive: active},
	}}
}

func TestAuthenticate(t *testing.T) {
	repo := newRepoWithKey(t, "lk_live_abc", "s3cret", 7, true)
	svc := NewService(repo)

	shopID, err := svc.Authenticate(context.Background(), "lk_live_abc.s3cret")
	require.NoError(t, err)
	require.EqualValues(t, 7, shopID)
	require.Equal(t, []string{"lk_live_abc"}, repo.touched)
}

func TestAuthenticateRejectsBadSecret(t *testing.T) {
	repo := newRepoWithKey(t, "lk_live_abc", "s3cret", 7, true)
	svc := NewService(repo)

	_, err := svc.Authenticate(context.Background(), "lk_live_abc.wrong")
	require.ErrorIs(t, err, shared.ErrInvalidAPIKey)
	require.Empty(t, repo.touched)
}

func TestAuthenticateRejectsInactiveKey(t *testing.T) {
	repo := newRepoWithKey(t, "lk_live_abc", "s3cret", 7, false)
	svc := NewService(repo)

	_, err := svc.Authenticate(context.Background(), "lk_live_abc.s3cret")
	require.ErrorIs(t, err, shared.ErrInvalidAPIKey)
}

func TestIssueRoundTrips(t *testing.T) {
	repo := &memoryRepo{keys: map[string]APIKey{}}
	svc := NewService(repo)

	token, err := svc.Issue(context.Background(), 9)
	require.NoError(t, err)
	require.Contains(t, token, ".")

	shopID, err := svc.Authenticate(context.Background(), token)
	require.NoError(t, err)
	require.EqualValues(t, 9, shopID)
}

func TestAuthenticateRejectsMalformedToken(t *testing.T) {
	repo := &memoryRepo{keys: map[string]APIKey{}}
	svc := NewService(repo)

	for _, token := range []string{"", "nodot", ".secretonly", "keyonly."} {
		_, err := svc.Authenticate(context.Background(), token)
		require.ErrorIs(t, err, shared.ErrInvalidAPIKey, "token %q", token)
	}
	require.Zero(t, repo.findCalls)
}
