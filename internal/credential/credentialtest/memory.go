// Package credentialtest provides an in-memory credential.Store for tests.
package credentialtest

import (
	"context"
	"sync"
	"time"

	"github.com/ovaphlow/pitchfork/service-auth-cdc/internal/credential"
	tokenentity "github.com/ovaphlow/pitchfork/service-auth-cdc/internal/token/entity"
	"github.com/ovaphlow/pitchfork/service-auth-cdc/internal/user/entity"
)

// Memory is a concurrency-safe credential.Store backed by maps.
type Memory struct {
	mu       sync.Mutex
	accounts []*entity.Account
	tokens   []*tokenentity.SessionToken
	nextID   int64

	// Now is the clock used for expiry checks; defaults to time.Now.
	Now func() time.Time
	// Err, when set, is returned by every operation.
	Err error
}

var _ credential.Store = (*Memory)(nil)

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

func (m *Memory) FindAccountByUsername(_ context.Context, username string) (*entity.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, a := range m.accounts {
		if a.Username == username {
			cp := *a
			return &cp, nil
		}
	}
	return nil, credential.ErrNotFound
}

func (m *Memory) CreateAccount(_ context.Context, username, email, passwordHash string) (*entity.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, a := range m.accounts {
		if a.Username == username || a.Email == email {
			return nil, credential.ErrDuplicateEntry
		}
	}
	m.nextID++
	a := &entity.Account{ID: m.nextID, Username: username, Email: email, PasswordHash: passwordHash, CreatedAt: m.now()}
	m.accounts = append(m.accounts, a)
	cp := *a
	return &cp, nil
}

func (m *Memory) FindValidToken(_ context.Context, raw string) (*tokenentity.SessionToken, *entity.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, nil, m.Err
	}
	now := m.now()
	for i := len(m.tokens) - 1; i >= 0; i-- {
		t := m.tokens[i]
		if t.Token != raw || t.Expired(now) {
			continue
		}
		for _, a := range m.accounts {
			if a.ID == t.AccountID {
				tc, ac := *t, *a
				return &tc, &ac, nil
			}
		}
	}
	return nil, nil, credential.ErrNotFound
}

func (m *Memory) InsertToken(_ context.Context, t *tokenentity.SessionToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.nextID++
	t.ID = m.nextID
	cp := *t
	m.tokens = append(m.tokens, &cp)
	return nil
}

// DeleteToken removes every row holding raw, simulating server-side revocation.
func (m *Memory) DeleteToken(raw string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.tokens[:0]
	for _, t := range m.tokens {
		if t.Token != raw {
			kept = append(kept, t)
		}
	}
	m.tokens = kept
}

// Tokens returns a snapshot of the stored token rows.
func (m *Memory) Tokens() []tokenentity.SessionToken {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]tokenentity.SessionToken, 0, len(m.tokens))
	for _, t := range m.tokens {
		out = append(out, *t)
	}
	return out
}
