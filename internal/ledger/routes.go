package ledger

import (
	"github.com/go-chi/chi/v5"
)

func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/customers/{customerID}/entries", h.CreateEntry)
	r.Get("/customers/{customerID}/entries", h.ListEntries)
	r.Get("/customers/{customerID}/account", h.GetAccount)
	r.Delete("/entries/{entryID}", h.ReverseEntry)
	r.Get("/entries", h.ListEntries)
	r.Get("/ledger/summary", h.Summary)
}
