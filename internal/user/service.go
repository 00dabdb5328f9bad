package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-auth-cdc/internal/credential"
	"github.com/ovaphlow/pitchfork/service-auth-cdc/internal/eventlog"
	tokenentity "github.com/ovaphlow/pitchfork/service-auth-cdc/internal/token/entity"
	"github.com/ovaphlow/pitchfork/service-auth-cdc/internal/user/entity"
)

// MinBcryptCost is the lowest cost accepted for production hashing.
const MinBcryptCost = 10

// PasswordHasher defines minimal hashing interface.
type PasswordHasher interface {
	Hash(pw string) (string, error)
	Verify(hash, pw string) bool
}

// BcryptHasher implementation. A zero Cost means MinBcryptCost.
type BcryptHasher struct{ Cost int }

func (b BcryptHasher) Hash(pw string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = MinBcryptCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (b BcryptHasher) Verify(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// TokenIssuer creates a session token for an authenticated account.
type TokenIssuer interface {
	Issue(ctx context.Context, a *entity.Account) (*tokenentity.SessionToken, error)
}

// ActivityRecorder receives user activity records.
type ActivityRecorder interface {
	Activity(accountID int64, action string)
}

var (
	ErrValidation     = errors.New("validation failed")
	ErrBadCredentials = errors.New("invalid credentials")
)

// UserService orchestrates registration and login.
type UserService struct {
	store    credential.Store
	tokens   TokenIssuer
	hasher   PasswordHasher
	activity ActivityRecorder

	dummyOnce sync.Once
	dummyHash string
}

func NewUserService(store credential.Store, tokens TokenIssuer, hasher PasswordHasher, activity ActivityRecorder) *UserService {
	if hasher == nil {
		hasher = BcryptHasher{Cost: MinBcryptCost}
	}
	return &UserService{store: store, tokens: tokens, hasher: hasher, activity: activity}
}

// Register creates an account. Every field is required; duplicates surface
// as credential.ErrDuplicateEntry.
func (s *UserService) Register(ctx context.Context, username, email, password string) (*entity.Account, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" || password == "" {
		return nil, fmt.Errorf("%w: username, email and password are required", ErrValidation)
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	a, err := s.store.CreateAccount(ctx, username, email, hash)
	if err != nil {
		return nil, err
	}
	if s.activity != nil {
		s.activity.Activity(a.ID, eventlog.ActionRegister)
	}
	return a, nil
}

// LoginResult is a successful login.
type LoginResult struct {
	Account *entity.Account
	Token   *tokenentity.SessionToken
}

// Login checks the password and issues a session token. Unknown usernames
// and wrong passwords both return ErrBadCredentials, and both cost one
// bcrypt comparison.
func (s *UserService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrValidation)
	}
	a, err := s.store.FindAccountByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, credential.ErrNotFound) {
			s.hasher.Verify(s.dummy(), password)
			return nil, ErrBadCredentials
		} // avoid user enumeration
		return nil, err
	}
	if !s.hasher.Verify(a.PasswordHash, password) {
		return nil, ErrBadCredentials
	}
	tok, err := s.tokens.Issue(ctx, a)
	if err != nil {
		return nil, err
	}
	if s.activity != nil {
		s.activity.Activity(a.ID, eventlog.ActionLoginSuccess)
	}
	return &LoginResult{Account: a, Token: tok}, nil
}

func (s *UserService) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash("dummy-password-for-timing")
	})
	return s.dummyHash
}
