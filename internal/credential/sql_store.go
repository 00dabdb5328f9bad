package credential

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	tokenentity "github.com/ovaphlow/pitchfork/service-auth-cdc/internal/token/entity"
	tokenrepo "github.com/ovaphlow/pitchfork/service-auth-cdc/internal/token/repo"
	"github.com/ovaphlow/pitchfork/service-auth-cdc/internal/user/entity"
	userrepo "github.com/ovaphlow/pitchfork/service-auth-cdc/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-auth-cdc/pkg/database"
)

// uniqueViolation is the Postgres SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// SQLStore implements Store on top of the account and token repositories.
type SQLStore struct {
	accounts *userrepo.AccountRepo
	tokens   *tokenrepo.TokenRepo
}

func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{
		accounts: userrepo.NewAccountRepo(db),
		tokens:   tokenrepo.NewTokenRepo(db),
	}
}

// Initializers returns the schema steps in dependency order.
func (s *SQLStore) Initializers() []database.Initializer {
	return []database.Initializer{s.accounts.EnsureTable, s.tokens.EnsureTable}
}

func (s *SQLStore) FindAccountByUsername(ctx context.Context, username string) (*entity.Account, error) {
	a, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		return nil, classify("find account", err)
	}
	return a, nil
}

func (s *SQLStore) CreateAccount(ctx context.Context, username, email, passwordHash string) (*entity.Account, error) {
	a := &entity.Account{Username: username, Email: email, PasswordHash: passwordHash}
	if err := s.accounts.Create(ctx, a); err != nil {
		return nil, classify("create account", err)
	}
	return a, nil
}

func (s *SQLStore) FindValidToken(ctx context.Context, raw string) (*tokenentity.SessionToken, *entity.Account, error) {
	t, a, err := s.tokens.FindValid(ctx, raw)
	if err != nil {
		return nil, nil, classify("find token", err)
	}
	return t, a, nil
}

func (s *SQLStore) InsertToken(ctx context.Context, t *tokenentity.SessionToken) error {
	if err := s.tokens.Insert(ctx, t); err != nil {
		return classify("insert token", err)
	}
	return nil
}

// classify maps driver errors onto the package sentinels. Anything that is
// neither a missing row nor a unique violation is reported as the store
// being unavailable.
func classify(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w: %s", op, ErrDuplicateEntry, pqErr.Constraint)
	}
	return fmt.Errorf("%s: %w: %w", op, database.ErrStoreUnavailable, err)
}
