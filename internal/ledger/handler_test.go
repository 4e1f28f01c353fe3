package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/ledgerbook/ledgerbook/internal/shared"
)

func newTestRouter(t *testing.T, repo *memoryRepo) chi.Router {
	t.Helper()
	svc := NewService(repo, nil, nil, nil, nil)
	handler := NewHandler(slog.Default(), svc)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithShop(req.Context(), 1)))
		})
	})
	handler.MountRoutes(r)
	return r
}

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandlerCreateEntry(t *testing.T) {
	repo := newMemoryRepo()
	repo.seedAccount(1, 7)
	router := newTestRouter(t, repo)

	rec := postJSON(t, router, "/customers/7/entries", map[string]any{
		"type":   "CREDIT",
		"amount": "250",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp CreateEntryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, EntryTypeCredit, resp.Entry.Type)
	require.Equal(t, "250", resp.Entry.BalanceAfter.String())
	require.Equal(t, "250", resp.Account.Balance.String())
}

func TestHandlerCreateEntryValidation(t *testing.T) {
	repo := newMemoryRepo()
	repo.seedAccount(1, 7)
	router := newTestRouter(t, repo)

	rec := postJSON(t, router, "/customers/7/entries", map[string]any{
		"type":   "REFUND",
		"amount": "10",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, router, "/customers/7/entries", map[string]any{
		"type":   "CREDIT",
		"amount": "-10",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// Missing and zero amounts report the same domain error as negative.
	for _, body := range []map[string]any{
		{"type": "CREDIT"},
		{"type": "CREDIT", "amount": "0"},
	} {
		rec = postJSON(t, router, "/customers/7/entries", body)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Contains(t, rec.Body.String(), ErrInvalidAmount.Error())
	}
}

func TestHandlerCreateEntryUnknownCustomer(t *testing.T) {
	repo := newMemoryRepo()
	router := newTestRouter(t, repo)

	rec := postJSON(t, router, "/customers/99/entries", map[string]any{
		"type":   "CREDIT",
		"amount": "10",
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerReverseEntry(t *testing.T) {
	repo := newMemoryRepo()
	repo.seedAccount(1, 7)
	router := newTestRouter(t, repo)

	rec := postJSON(t, router, "/customers/7/entries", map[string]any{
		"type":   "CREDIT",
		"amount": "120",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created CreateEntryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	path := fmt.Sprintf("/entries/%d", created.Entry.ID)
	req := httptest.NewRequest(http.MethodDelete, path, bytes.NewBufferString(`{"reason":"typo"}`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var reversed ReverseEntryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reversed))
	require.Equal(t, "0", reversed.Account.Balance.String())

	// A second reversal of the same entry conflicts.
	req = httptest.NewRequest(http.MethodDelete, path, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandlerListEntries(t *testing.T) {
	repo := newMemoryRepo()
	repo.seedAccount(1, 7)
	router := newTestRouter(t, repo)

	for _, amount := range []string{"10", "20", "30"} {
		rec := postJSON(t, router, "/customers/7/entries", map[string]any{
			"type":   "CREDIT",
			"amount": amount,
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/customers/7/entries?type=CREDIT", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ListEntriesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Entries, 3)
	require.Equal(t, 3, resp.Pagination.Total)
}

func TestHandlerListEntriesPaging(t *testing.T) {
	repo := newMemoryRepo()
	repo.seedAccount(1, 7)
	router := newTestRouter(t, repo)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for day := 0; day < 5; day++ {
		rec := postJSON(t, router, "/customers/7/entries", map[string]any{
			"type":        "CREDIT",
			"amount":      "10",
			"occurred_at": base.AddDate(0, 0, day).Format(time.RFC3339),
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/customers/7/entries?per_page=2&page=2", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ListEntriesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Entries, 2)
	require.Equal(t, 2, resp.Pagination.Page)
	require.Equal(t, 5, resp.Pagination.Total)
	require.Equal(t, 3, resp.Pagination.TotalPages)
	// Newest first: page 2 of 2 holds days 2 and 1.
	require.True(t, resp.Entries[0].OccurredAt.Equal(base.AddDate(0, 0, 2)))
	require.True(t, resp.Entries[1].OccurredAt.Equal(base.AddDate(0, 0, 1)))
}

func TestHandlerListEntriesDateRange(t *testing.T) {
	repo := newMemoryRepo()
	repo.seedAccount(1, 7)
	router := newTestRouter(t, repo)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for day := 0; day < 5; day++ {
		rec := postJSON(t, router, "/customers/7/entries", map[string]any{
			"type":        "CREDIT",
			"amount":      "10",
			"occurred_at": base.AddDate(0, 0, day).Format(time.RFC3339),
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet,
		"/customers/7/entries?from=2026-03-02&to=2026-03-04T23:59:59Z", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ListEntriesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Entries, 3)
	require.Equal(t, 3, resp.Pagination.Total)
	for _, e := range resp.Entries {
		require.False(t, e.OccurredAt.Before(base.AddDate(0, 0, 1)))
		require.False(t, e.OccurredAt.After(base.AddDate(0, 0, 3)))
	}

	req = httptest.NewRequest(http.MethodGet, "/customers/7/entries?from=yesterday", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerGetAccount(t *testing.T) {
	repo := newMemoryRepo()
	repo.seedAccount(1, 7)
	router := newTestRouter(t, repo)

	rec := postJSON(t, router, "/customers/7/entries", map[string]any{
		"type":   "PAYMENT",
		"amount": "75",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/customers/7/account", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var acct AccountResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &acct))
	require.Equal(t, "-75", acct.Balance.String())
	require.Equal(t, "75", acct.TotalPaid.String())
}

func TestHandlerSummary(t *testing.T) {
	repo := newMemoryRepo()
	repo.seedAccount(1, 7)
	router := newTestRouter(t, repo)

	rec := postJSON(t, router, "/customers/7/entries", map[string]any{"type": "CREDIT", "amount": "100"})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = postJSON(t, router, "/customers/7/entries", map[string]any{"type": "PAYMENT", "amount": "40"})
	require.Equal(t, http.StatusCreated, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/ledger/summary", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var summary Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	require.Equal(t, "100", summary.CreditTotal.String())
	require.Equal(t, "40", summary.PaymentTotal.String())
}
