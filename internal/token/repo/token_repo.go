package repo

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-auth-cdc/internal/token/entity"
	userentity "github.com/ovaphlow/pitchfork/service-auth-cdc/internal/user/entity"
)

// TokenRepo persists issued session tokens.
type TokenRepo struct {
	db *sqlx.DB
}

func NewTokenRepo(db *sqlx.DB) *TokenRepo {
	return &TokenRepo{db: db}
}

// EnsureTable creates session_tokens. Requires accounts to exist first.
func (r *TokenRepo) EnsureTable(ctx context.Context) error {
	const tbl = `
CREATE TABLE IF NOT EXISTS session_tokens (
  id BIGSERIAL PRIMARY KEY,
  account_id BIGINT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
  token TEXT NOT NULL,
  expires_at TIMESTAMPTZ NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`
	if _, err := r.db.ExecContext(ctx, tbl); err != nil {
		return err
	}
	const idx = `CREATE INDEX IF NOT EXISTS idx_session_tokens_token ON session_tokens (token)`
	_, err := r.db.ExecContext(ctx, idx)
	return err
}

// Insert stores t and fills in its ID.
func (r *TokenRepo) Insert(ctx context.Context, t *entity.SessionToken) error {
	const q = `INSERT INTO session_tokens (account_id, token, expires_at, created_at) VALUES ($1, $2, $3, $4) RETURNING id`
	return r.db.QueryRowxContext(ctx, q, t.AccountID, t.Token, t.ExpiresAt, t.CreatedAt).Scan(&t.ID)
}

// FindValid looks up a non-expired token joined with its owning account.
// Returns sql.ErrNoRows when nothing matches.
func (r *TokenRepo) FindValid(ctx context.Context, raw string) (*entity.SessionToken, *userentity.Account, error) {
	const q = `SELECT st.id, st.account_id, st.token, st.expires_at, st.created_at,
		a.username, a.email, a.password_hash
	  FROM session_tokens st JOIN accounts a ON st.account_id = a.id
	  WHERE st.token = $1 AND st.expires_at > NOW()
	  ORDER BY st.id DESC LIMIT 1`
	var t entity.SessionToken
	var a userentity.Account
	err := r.db.QueryRowxContext(ctx, q, raw).Scan(
		&t.ID, &t.AccountID, &t.Token, &t.ExpiresAt, &t.CreatedAt,
		&a.Username, &a.Email, &a.PasswordHash,
	)
	if err != nil {
		return nil, nil, err
	}
	a.ID = t.AccountID
	return &t, &a, nil
}
