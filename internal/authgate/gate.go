// Package authgate guards HTTP handlers with bearer session tokens.
package authgate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-auth-cdc/internal/token"
	"github.com/ovaphlow/pitchfork/service-auth-cdc/internal/user/entity"
)

// Validator resolves a raw bearer token to its account.
type Validator interface {
	Validate(ctx context.Context, raw string) (*entity.Account, error)
}

// Identity is what downstream handlers learn about the caller.
type Identity struct {
	AccountID int64  `json:"id"`
	Username  string `json:"username"`
}

type contextKey struct{}

// IdentityFromContext returns the identity attached by Middleware.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. The scheme is matched case-insensitively.
func BearerToken(r *http.Request) (string, error) {
	auth := r.Header.Get("Authorization")
	scheme, tok, ok := strings.Cut(strings.TrimSpace(auth), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", token.ErrMissingToken
	}
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return "", token.ErrMissingToken
	}
	return tok, nil
}

// Middleware rejects requests without a token (401) or with a token that
// fails validation (403). A store outage during validation yields 500.
func Middleware(v Validator, logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := BearerToken(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Access token required")
				return
			}
			acct, err := v.Validate(r.Context(), raw)
			if err != nil {
				if errors.Is(err, token.ErrInvalidToken) || errors.Is(err, token.ErrMissingToken) {
					logger.Debugw("token rejected", "err", err, "path", r.URL.Path)
					writeError(w, http.StatusForbidden, "Invalid or expired token")
					return
				}
				logger.Errorw("token validation failed", "err", err, "path", r.URL.Path)
				writeError(w, http.StatusInternalServerError, "Authentication unavailable")
				return
			}
			ctx := WithIdentity(r.Context(), Identity{AccountID: acct.ID, Username: acct.Username})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
