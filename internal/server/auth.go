package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/lungfish-labs/simex/internal/domain"
	"github.com/lungfish-labs/simex/internal/modules/ledger"
)

// AccountResolver maps a bearer token to an account
type AccountResolver interface {
	GetAccountByToken(apiToken string) (*ledger.Account, error)
}

// Auth is bearer-token middleware for account-scoped routes. Every
// failure mode (missing header, malformed header, unknown token) gets
// the same 401 so callers learn nothing about which part was wrong.
type Auth struct {
	resolver AccountResolver
	log      zerolog.Logger
}

// NewAuth creates the auth middleware
func NewAuth(resolver AccountResolver, log zerolog.Logger) *Auth {
	return &Auth{
		resolver: resolver,
		log:      log.With().Str("component", "auth").Logger(),
	}
}

// Middleware resolves the account and stores its ID on the context
func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			a.unauthorized(w)
			return
		}

		account, err := a.resolver.GetAccountByToken(token)
		if err != nil {
			a.unauthorized(w)
			return
		}

		ctx := domain.WithAccountID(r.Context(), account.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

func (a *Auth) unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": "unauthorized",
	})
}
