// Package token issues and validates session tokens.
//
// A session token is an HS256 JWT whose raw string is also persisted in the
// credential store. Validation requires both the signature check and the
// persisted-record check to pass: the signature prevents forgery, the row
// allows the server to revoke a token before it expires.
package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ovaphlow/pitchfork/service-auth-cdc/internal/credential"
	"github.com/ovaphlow/pitchfork/service-auth-cdc/internal/token/entity"
	userentity "github.com/ovaphlow/pitchfork/service-auth-cdc/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-auth-cdc/pkg/database"
)

// DefaultTTL is the absolute lifetime of every issued token.
const DefaultTTL = 24 * time.Hour

var (
	ErrMissingToken = errors.New("access token required")
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Config holds the knobs for a Service.
type Config struct {
	Secret []byte
	TTL    time.Duration
	Issuer string
}

// Service issues and validates session tokens.
type Service struct {
	store  credential.Store
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewService returns a Service. A zero TTL means DefaultTTL.
func NewService(store credential.Store, cfg Config) (*Service, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("token: empty signing secret")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{store: store, secret: cfg.Secret, ttl: ttl, issuer: cfg.Issuer, now: time.Now}, nil
}

// WithClock replaces the time source; used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// TTL is the lifetime applied to new tokens.
func (s *Service) TTL() time.Duration { return s.ttl }

// Issue signs a token for a and persists its row. The returned row's
// ExpiresAt is exactly CreatedAt plus the TTL, matching the exp claim.
func (s *Service) Issue(ctx context.Context, a *userentity.Account) (*entity.SessionToken, error) {
	now := s.now().Truncate(time.Second)
	expires := now.Add(s.ttl)

	claims := Claims{
		AccountID: a.ID,
		Username:  a.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   fmt.Sprintf("%d", a.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	row := &entity.SessionToken{
		AccountID: a.ID,
		Token:     signed,
		CreatedAt: now,
		ExpiresAt: expires,
	}
	if err := s.store.InsertToken(ctx, row); err != nil {
		return nil, fmt.Errorf("persist token: %w", err)
	}
	return row, nil
}

// Validate resolves the account behind raw. Both CheckPersisted and
// CheckSignature run; the token is accepted only if both pass and agree on
// the account. A store outage is reported as database.ErrStoreUnavailable
// rather than ErrInvalidToken.
func (s *Service) Validate(ctx context.Context, raw string) (*userentity.Account, error) {
	if raw == "" {
		return nil, ErrMissingToken
	}
	acct, persistedErr := s.CheckPersisted(ctx, raw)
	claims, signatureErr := s.CheckSignature(raw)

	if errors.Is(persistedErr, database.ErrStoreUnavailable) {
		return nil, persistedErr
	}
	if err := errors.Join(persistedErr, signatureErr); err != nil {
		return nil, err
	}
	if claims.AccountID != acct.ID {
		return nil, fmt.Errorf("%w: subject does not match stored owner", ErrInvalidToken)
	}
	return acct, nil
}

// CheckPersisted requires a non-expired row for raw and returns its account.
func (s *Service) CheckPersisted(ctx context.Context, raw string) (*userentity.Account, error) {
	row, acct, err := s.store.FindValidToken(ctx, raw)
	switch {
	case errors.Is(err, credential.ErrNotFound):
		return nil, fmt.Errorf("%w: no active session", ErrInvalidToken)
	case err != nil:
		return nil, err
	}
	if row.Expired(s.now()) {
		return nil, fmt.Errorf("%w: session expired", ErrInvalidToken)
	}
	return acct, nil
}

// CheckSignature verifies the HS256 signature and the exp claim without
// touching the store.
func (s *Service) CheckSignature(raw string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !tok.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
