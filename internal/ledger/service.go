package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ledgerbook/ledgerbook/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetAccount(ctx context.Context, shopID, customerID int64) (Account, error)
	ListEntries(ctx context.Context, filter EntryFilter) ([]Entry, int, error)
	Summarize(ctx context.Context, shopID int64, from, to time.Time) (Summary, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Idempotency guards against duplicate submissions.
type Idempotency interface {
	CheckAndInsert(ctx context.Context, shopID int64, key, module string) error
	Delete(ctx context.Context, shopID int64, key string) error
}

// MetricsPort counts committed ledger operations.
type MetricsPort interface {
	EntryPosted(entryType string)
	EntryReversed()
}

const idempotencyModule = "ledger"

// maxAttempts bounds retries of a whole atomic unit after a
// serialization conflict. Retrying is safe because the unit either
// committed fully or not at all.
const maxAttempts = 3

// Service is the ledger engine. It is the sole writer of account
// balance fields; creation and reversal each run as one atomic unit.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	idempotency Idempotency
	cache       *SummaryCache
	integration IntegrationHandler
	metrics     MetricsPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, idem Idempotency, cache *SummaryCache, integration IntegrationHandler) *Service {
	return &Service{repo: repo, audit: audit, idempotency: idem, cache: cache, integration: integration}
}

// WithMetrics attaches operation counters to the service.
func (s *Service) WithMetrics(m MetricsPort) *Service {
	s.metrics = m
	return s
}

// CreateEntry validates and applies a credit or payment entry. The
// account read, the balance update and the entry insert commit
// together; BalanceAfter is stamped from the post-update balance.
func (s *Service) CreateEntry(ctx context.Context, input CreateEntryInput) (Entry, Account, error) {
	if input.ShopID == 0 || input.CustomerID == 0 {
		return Entry{}, Account{}, errors.New("ledger: shop and customer required")
	}
	if !input.Type.Valid() {
		return Entry{}, Account{}, ErrInvalidEntryType
	}
	if !input.Amount.IsPositive() {
		return Entry{}, Account{}, ErrInvalidAmount
	}

	now := time.Now().UTC()
	occurredAt := input.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = now
	}

	// The key is claimed outside the entry transaction. A crash between
	// claim and commit strands it until the cleanup job prunes it; a
	// returned error releases it below.
	insertedKey := false
	if input.IdempotencyKey != "" && s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, input.ShopID, input.IdempotencyKey, idempotencyModule); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return Entry{}, Account{}, ErrDuplicateEntry
			}
			return Entry{}, Account{}, err
		}
		insertedKey = true
	}

	entry := Entry{
		ShopID:        input.ShopID,
		CustomerID:    input.CustomerID,
		Type:          input.Type,
		Amount:        input.Amount,
		Description:   input.Description,
		PaymentMethod: input.PaymentMethod,
		OccurredAt:    occurredAt,
		CreatedAt:     now,
	}

	var acct Account
	err := s.withRetry(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetAccountForUpdate(ctx, input.ShopID, input.CustomerID); err != nil {
			return err
		}
		delta := AccountDelta{Balance: input.Type.Signed(input.Amount)}
		if input.Type == EntryTypeCredit {
			delta.Credit = input.Amount
		} else {
			delta.Paid = input.Amount
		}
		updated, err := tx.ApplyDelta(ctx, input.ShopID, input.CustomerID, delta)
		if err != nil {
			return err
		}
		entry.BalanceAfter = updated.Balance
		id, err := tx.InsertEntry(ctx, entry)
		if err != nil {
			return err
		}
		entry.ID = id
		acct = updated
		return nil
	})
	if err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, input.ShopID, input.IdempotencyKey)
		}
		return Entry{}, Account{}, err
	}

	s.recordAudit(ctx, input.ShopID, input.ActorID, "ledger.entry.create", entry.ID, map[string]any{
		"customer_id": input.CustomerID,
		"type":        string(input.Type),
		"amount":      input.Amount.String(),
	})
	s.invalidateSummary(ctx, input.ShopID)
	if s.metrics != nil {
		s.metrics.EntryPosted(string(entry.Type))
	}
	if s.integration != nil {
		_ = s.integration.HandleEntryPosted(ctx, EntryPostedEvent{
			EntryID:      entry.ID,
			ShopID:       entry.ShopID,
			CustomerID:   entry.CustomerID,
			Type:         entry.Type,
			Amount:       entry.Amount,
			BalanceAfter: entry.BalanceAfter,
			OccurredAt:   entry.OccurredAt,
		})
	}
	return entry, acct, nil
}

// ReverseEntry soft deletes an entry and applies the inverse delta to
// the account. Later entries never block a reversal; balances are
// additive so the one delta is inverted without replaying history.
func (s *Service) ReverseEntry(ctx context.Context, input ReverseEntryInput) (Account, error) {
	if input.ShopID == 0 || input.EntryID == 0 {
		return Account{}, errors.New("ledger: shop and entry required")
	}

	now := time.Now().UTC()
	var acct Account
	var reversed Entry
	err := s.withRetry(ctx, func(ctx context.Context, tx TxRepository) error {
		entry, err := tx.GetEntryForUpdate(ctx, input.ShopID, input.EntryID)
		if err != nil {
			return err
		}
		if entry.IsDeleted {
			return ErrAlreadyReversed
		}
		delta := AccountDelta{Balance: entry.Type.Signed(entry.Amount).Neg()}
		if entry.Type == EntryTypeCredit {
			delta.Credit = entry.Amount.Neg()
		} else {
			delta.Paid = entry.Amount.Neg()
		}
		updated, err := tx.ApplyDelta(ctx, entry.ShopID, entry.CustomerID, delta)
		if err != nil {
			return err
		}
		if err := tx.MarkReversed(ctx, entry.ID, now, input.Reason); err != nil {
			return err
		}
		acct = updated
		reversed = entry
		return nil
	})
	if err != nil {
		return Account{}, err
	}

	s.recordAudit(ctx, input.ShopID, input.ActorID, "ledger.entry.reverse", reversed.ID, map[string]any{
		"customer_id": reversed.CustomerID,
		"type":        string(reversed.Type),
		"amount":      reversed.Amount.String(),
		"reason":      input.Reason,
	})
	s.invalidateSummary(ctx, input.ShopID)
	if s.metrics != nil {
		s.metrics.EntryReversed()
	}
	return acct, nil
}

// GetAccount returns the current balance state of one customer.
func (s *Service) GetAccount(ctx context.Context, shopID, customerID int64) (Account, error) {
	if shopID == 0 || customerID == 0 {
		return Account{}, errors.New("ledger: shop and customer required")
	}
	return s.repo.GetAccount(ctx, shopID, customerID)
}

// ListEntries lists entries per shop, optionally per customer, type
// and date range. Deleted entries are excluded unless the filter asks
// for the audit view.
func (s *Service) ListEntries(ctx context.Context, filter EntryFilter) ([]Entry, int, error) {
	if filter.ShopID == 0 {
		return nil, 0, errors.New("ledger: shop required")
	}
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, 0, ErrInvalidEntryType
	}
	return s.repo.ListEntries(ctx, filter)
}

// Summarize aggregates sums and counts by type for a shop and period,
// served through the versioned cache when one is configured.
func (s *Service) Summarize(ctx context.Context, shopID int64, from, to time.Time) (Summary, error) {
	if shopID == 0 {
		return Summary{}, errors.New("ledger: shop required")
	}
	if s.cache == nil {
		return s.repo.Summarize(ctx, shopID, from, to)
	}
	return s.cache.Fetch(ctx, shopID, from, to, func(ctx context.Context) (Summary, error) {
		return s.repo.Summarize(ctx, shopID, from, to)
	})
}

func (s *Service) withRetry(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = s.repo.WithTx(ctx, fn)
		if err == nil || !errors.Is(err, ErrConflict) {
			return err
		}
	}
	return fmt.Errorf("%w: retries exhausted", err)
}

func (s *Service) recordAudit(ctx context.Context, shopID, actorID int64, action string, entryID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ShopID:   shopID,
		ActorID:  actorID,
		Action:   action,
		Entity:   "ledger_entry",
		EntityID: fmt.Sprintf("%d", entryID),
		Meta:     meta,
		At:       time.Now().UTC(),
	})
}

func (s *Service) invalidateSummary(ctx context.Context, shopID int64) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Bump(ctx, shopID)
}
