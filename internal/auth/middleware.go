package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/ledgerbook/ledgerbook/internal/platform/httpx"
	"github.com/ledgerbook/ledgerbook/internal/shared"
)

// Middleware resolves the shop identity from the Authorization header
// and stores it in the request context.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// Require rejects requests without a valid shop API key.
func (m Middleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token == "" || token == r.Header.Get("Authorization") {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		shopID, err := m.Service.Authenticate(r.Context(), token)
		if err != nil {
			if m.Logger != nil {
				m.Logger.Warn("api key rejected", slog.String("path", r.URL.Path))
			}
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithShop(r.Context(), shopID)))
	})
}
