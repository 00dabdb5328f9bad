// Package credential defines the persistence contract for accounts and
// issued session tokens, and its Postgres implementation.
package credential

import (
	"context"
	"errors"

	tokenentity "github.com/ovaphlow/pitchfork/service-auth-cdc/internal/token/entity"
	"github.com/ovaphlow/pitchfork/service-auth-cdc/internal/user/entity"
)

var (
	// ErrNotFound means no matching (or no longer valid) row exists.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateEntry means a unique constraint (username or email) was hit.
	ErrDuplicateEntry = errors.New("duplicate entry")
)

// Store is what the token and user services need from persistence.
// Implementations must be safe for concurrent use.
type Store interface {
	FindAccountByUsername(ctx context.Context, username string) (*entity.Account, error)
	CreateAccount(ctx context.Context, username, email, passwordHash string) (*entity.Account, error)
	// FindValidToken returns the non-expired row for raw together with its account.
	FindValidToken(ctx context.Context, raw string) (*tokenentity.SessionToken, *entity.Account, error)
	InsertToken(ctx context.Context, t *tokenentity.SessionToken) error
}
