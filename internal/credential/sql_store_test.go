package credential

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tokenentity "github.com/ovaphlow/pitchfork/service-auth-cdc/internal/token/entity"
	"github.com/ovaphlow/pitchfork/service-auth-cdc/pkg/database"
)

func newStoreWithMock(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLStore(sqlx.NewDb(db, "postgres")), mock
}

func TestCreateAccount_Success(t *testing.T) {
	store, mock := newStoreWithMock(t)
	created := time.Now()

	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+accounts\s+\(username, email, password_hash\)\s+VALUES\s+\(\$1, \$2, \$3\)\s+RETURNING id, created_at$`).
		WithArgs("alice", "a@x.com", "hash").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), created))

	a, err := store.CreateAccount(context.Background(), "alice", "a@x.com", "hash")
	require.NoError(t, err)
	assert.Equal(t, int64(7), a.ID)
	assert.Equal(t, "alice", a.Username)
	assert.True(t, a.CreatedAt.Equal(created))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAccount_UniqueViolationIsDuplicateEntry(t *testing.T) {
	store, mock := newStoreWithMock(t)

	mock.ExpectQuery(`INSERT\s+INTO\s+accounts`).
		WithArgs("alice", "other@x.com", "hash").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "accounts_username_key"})

	_, err := store.CreateAccount(context.Background(), "alice", "other@x.com", "hash")
	assert.ErrorIs(t, err, ErrDuplicateEntry)
	assert.NotErrorIs(t, err, database.ErrStoreUnavailable)
}

func TestCreateAccount_OtherErrorIsStoreUnavailable(t *testing.T) {
	store, mock := newStoreWithMock(t)

	mock.ExpectQuery(`INSERT\s+INTO\s+accounts`).
		WillReturnError(errors.New("connection reset"))

	_, err := store.CreateAccount(context.Background(), "alice", "a@x.com", "hash")
	assert.ErrorIs(t, err, database.ErrStoreUnavailable)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestFindAccountByUsername(t *testing.T) {
	store, mock := newStoreWithMock(t)

	mock.ExpectQuery(`(?s)^SELECT id, username, email, password_hash, created_at FROM accounts WHERE username = \$1$`).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "password_hash", "created_at"}).
			AddRow(int64(1), "alice", "a@x.com", "hash", time.Now()))

	a, err := store.FindAccountByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), a.ID)
	assert.Equal(t, "hash", a.PasswordHash)
}

func TestFindAccountByUsername_NotFound(t *testing.T) {
	store, mock := newStoreWithMock(t)

	mock.ExpectQuery(`FROM accounts WHERE username`).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := store.FindAccountByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInsertToken(t *testing.T) {
	store, mock := newStoreWithMock(t)
	created := time.Now()
	tok := &tokenentity.SessionToken{AccountID: 3, Token: "signed", CreatedAt: created, ExpiresAt: created.Add(24 * time.Hour)}

	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+session_tokens\s+\(account_id, token, expires_at, created_at\)`).
		WithArgs(int64(3), "signed", tok.ExpiresAt, tok.CreatedAt).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))

	require.NoError(t, store.InsertToken(context.Background(), tok))
	assert.Equal(t, int64(11), tok.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindValidToken(t *testing.T) {
	store, mock := newStoreWithMock(t)
	now := time.Now()

	mock.ExpectQuery(`(?s)FROM session_tokens st JOIN accounts a ON st.account_id = a.id\s+WHERE st.token = \$1 AND st.expires_at > NOW\(\)`).
		WithArgs("signed").
		WillReturnRows(sqlmock.NewRows([]string{"id", "account_id", "token", "expires_at", "created_at", "username", "email", "password_hash"}).
			AddRow(int64(11), int64(3), "signed", now.Add(time.Hour), now, "alice", "a@x.com", "hash"))

	tok, acct, err := store.FindValidToken(context.Background(), "signed")
	require.NoError(t, err)
	assert.Equal(t, int64(11), tok.ID)
	assert.Equal(t, int64(3), acct.ID)
	assert.Equal(t, "alice", acct.Username)
}

func TestFindValidToken_Missing(t *testing.T) {
	store, mock := newStoreWithMock(t)

	mock.ExpectQuery(`FROM session_tokens`).
		WithArgs("gone").
		WillReturnError(sql.ErrNoRows)

	_, _, err := store.FindValidToken(context.Background(), "gone")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInitializers_CreateTablesInOrder(t *testing.T) {
	store, mock := newStoreWithMock(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS accounts`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`(?s)CREATE TABLE IF NOT EXISTS session_tokens.*ON DELETE CASCADE`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE INDEX IF NOT EXISTS idx_session_tokens_token`).WillReturnResult(sqlmock.NewResult(0, 0))

	for _, step := range store.Initializers() {
		require.NoError(t, step(context.Background()))
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}
