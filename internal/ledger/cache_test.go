package ledger

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*SummaryCache, func()) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewSummaryCache(client, time.Minute)
	return cache, func() {
		_ = client.Close()
		mr.Close()
	}
}

func TestSummaryCacheFetch(t *testing.T) {
	cache, cleanup := newTestCache(t)
	defer cleanup()

	ctx := context.Background()
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)

	calls := 0
	loader := func(context.Context) (Summary, error) {
		calls++
		return Summary{CreditTotal: decimal.RequireFromString("500"), CreditCount: 3, PaymentTotal: decimal.Zero}, nil
	}

	summary, err := cache.Fetch(ctx, 1, from, to, loader)
	require.NoError(t, err)
	require.True(t, summary.CreditTotal.Equal(decimal.RequireFromString("500")))
	require.Equal(t, 1, calls)

	// Second fetch should hit the cached value.
	summary, err = cache.Fetch(ctx, 1, from, to, loader)
	require.NoError(t, err)
	require.EqualValues(t, 3, summary.CreditCount)
	require.Equal(t, 1, calls)
}

func TestSummaryCacheBumpInvalidates(t *testing.T) {
	cache, cleanup := newTestCache(t)
	defer cleanup()

	ctx := context.Background()
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)

	total := decimal.RequireFromString("100")
	calls := 0
	loader := func(context.Context) (Summary, error) {
		calls++
		return Summary{CreditTotal: total, PaymentTotal: decimal.Zero}, nil
	}

	_, err := cache.Fetch(ctx, 1, from, to, loader)
	require.NoError(t, err)
	require.Equal(t, 1, calls)

	require.NoError(t, cache.Bump(ctx, 1))
	total = decimal.RequireFromString("250")

	summary, err := cache.Fetch(ctx, 1, from, to, loader)
	require.NoError(t, err)
	require.Equal(t, 2, calls)
	require.True(t, summary.CreditTotal.Equal(decimal.RequireFromString("250")))
}

func TestSummaryCacheShopsAreIsolated(t *testing.T) {
	cache, cleanup := newTestCache(t)
	defer cleanup()

	ctx := context.Background()
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)

	calls := 0
	loader := func(context.Context) (Summary, error) {
		calls++
		return Summary{CreditTotal: decimal.Zero, PaymentTotal: decimal.Zero}, nil
	}

	_, err := cache.Fetch(ctx, 1, from, to, loader)
	require.NoError(t, err)
	_, err = cache.Fetch(ctx, 2, from, to, loader)
	require.NoError(t, err)
	require.Equal(t, 2, calls)

	// Bumping shop 1 must not evict shop 2.
	require.NoError(t, cache.Bump(ctx, 1))
	_, err = cache.Fetch(ctx, 2, from, to, loader)
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}
