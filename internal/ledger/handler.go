package ledger

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/ledgerbook/ledgerbook/internal/platform/httpx"
	"github.com/ledgerbook/ledgerbook/internal/shared"
)

// Handler is the transaction/query façade over the ledger engine. It
// shapes requests and translates errors; it carries no invariant.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

func (h *Handler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	shopID := shared.ShopFromContext(r.Context())
	customerID, err := strconv.ParseInt(chi.URLParam(r, "customerID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid customer id")
		return
	}

	var req CreateEntryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	input := CreateEntryInput{
		ShopID:         shopID,
		CustomerID:     customerID,
		Type:           EntryType(req.Type),
		Amount:         req.Amount,
		Description:    req.Description,
		PaymentMethod:  req.PaymentMethod,
		IdempotencyKey: req.IdempotencyKey,
		ActorID:        shopID,
	}
	if req.OccurredAt != nil {
		input.OccurredAt = *req.OccurredAt
	}

	entry, acct, err := h.service.CreateEntry(r.Context(), input)
	if err != nil {
		h.logger.Error("create entry failed", slog.Any("error", err), slog.Int64("shop_id", shopID), slog.Int64("customer_id", customerID))
		h.respondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusCreated, CreateEntryResponse{
		Entry:   toEntryResponse(entry),
		Account: toAccountResponse(acct),
	})
}

func (h *Handler) ReverseEntry(w http.ResponseWriter, r *http.Request) {
	shopID := shared.ShopFromContext(r.Context())
	entryID, err := strconv.ParseInt(chi.URLParam(r, "entryID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid entry id")
		return
	}

	var req ReverseEntryRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed request body")
			return
		}
		if err := h.validate.Struct(req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
	}

	acct, err := h.service.ReverseEntry(r.Context(), ReverseEntryInput{
		ShopID:  shopID,
		EntryID: entryID,
		Reason:  req.Reason,
		ActorID: shopID,
	})
	if err != nil {
		h.logger.Error("reverse entry failed", slog.Any("error", err), slog.Int64("shop_id", shopID), slog.Int64("entry_id", entryID))
		h.respondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, ReverseEntryResponse{Account: toAccountResponse(acct)})
}

func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	shopID := shared.ShopFromContext(r.Context())
	q := r.URL.Query()

	filter := EntryFilter{ShopID: shopID}
	if raw := chi.URLParam(r, "customerID"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid customer id")
			return
		}
		filter.CustomerID = id
	} else if raw := q.Get("customer_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid customer id")
			return
		}
		filter.CustomerID = id
	}
	if raw := q.Get("type"); raw != "" {
		filter.Type = EntryType(raw)
	}
	var ok bool
	if filter.From, ok = parseDate(w, q.Get("from")); !ok {
		return
	}
	if filter.To, ok = parseDate(w, q.Get("to")); !ok {
		return
	}
	filter.IncludeDeleted = q.Get("include_deleted") == "true"

	page, perPage := 1, 20
	if raw := q.Get("page"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			page = parsed
		}
	}
	if raw := q.Get("per_page"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 200 {
			perPage = parsed
		}
	}
	filter.Limit = perPage
	filter.Offset = (page - 1) * perPage

	entries, total, err := h.service.ListEntries(r.Context(), filter)
	if err != nil {
		h.logger.Error("list entries failed", slog.Any("error", err), slog.Int64("shop_id", shopID))
		h.respondError(w, err)
		return
	}

	resp := ListEntriesResponse{
		Entries:    make([]EntryResponse, 0, len(entries)),
		Pagination: shared.NewPagination(page, perPage, total),
	}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, toEntryResponse(e))
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	shopID := shared.ShopFromContext(r.Context())
	q := r.URL.Query()

	from, ok := parseDate(w, q.Get("from"))
	if !ok {
		return
	}
	to, ok := parseDate(w, q.Get("to"))
	if !ok {
		return
	}

	summary, err := h.service.Summarize(r.Context(), shopID, from, to)
	if err != nil {
		h.logger.Error("summarize failed", slog.Any("error", err), slog.Int64("shop_id", shopID))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	shopID := shared.ShopFromContext(r.Context())
	customerID, err := strconv.ParseInt(chi.URLParam(r, "customerID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid customer id")
		return
	}

	acct, err := h.service.GetAccount(r.Context(), shopID, customerID)
	if err != nil {
		h.logger.Error("get account failed", slog.Any("error", err), slog.Int64("shop_id", shopID), slog.Int64("customer_id", customerID))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toAccountResponse(acct))
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrCustomerNotFound), errors.Is(err, ErrEntryNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrInvalidEntryType):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrAlreadyReversed), errors.Is(err, ErrDuplicateEntry):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrConflict):
		httpx.Problem(w, http.StatusServiceUnavailable, "Transient Conflict", "please retry")
	default:
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func parseDate(w http.ResponseWriter, raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		if t, err = time.Parse("2006-01-02", raw); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid date: "+raw)
			return time.Time{}, false
		}
	}
	return t, true
}
