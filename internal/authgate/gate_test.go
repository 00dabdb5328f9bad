package authgate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-auth-cdc/internal/token"
	"github.com/ovaphlow/pitchfork/service-auth-cdc/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-auth-cdc/pkg/database"
)

type stubValidator struct {
	acct *entity.Account
	err  error
	got  string
}

func (s *stubValidator) Validate(_ context.Context, raw string) (*entity.Account, error) {
	s.got = raw
	return s.acct, s.err
}

func serve(v Validator, header string) (*httptest.ResponseRecorder, *Identity) {
	var seen *Identity
	h := Middleware(v, zap.NewNop().Sugar())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFromContext(r.Context())
		if ok {
			seen = &id
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, seen
}

func TestMiddleware_MissingHeaderIsUnauthorized(t *testing.T) {
	v := &stubValidator{}
	for _, header := range []string{"", "Bearer", "Bearer   ", "Basic abc"} {
		rec, seen := serve(v, header)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
		assert.Nil(t, seen)
		assert.JSONEq(t, `{"error":"Access token required"}`, rec.Body.String())
	}
	assert.Empty(t, v.got, "validator must not be called without a token")
}

func TestMiddleware_InvalidTokenIsForbidden(t *testing.T) {
	v := &stubValidator{err: fmt.Errorf("%w: no active session", token.ErrInvalidToken)}
	rec, seen := serve(v, "Bearer T")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Nil(t, seen)
	assert.Equal(t, "T", v.got)
}

func TestMiddleware_StoreOutageIsServerError(t *testing.T) {
	v := &stubValidator{err: fmt.Errorf("find token: %w", database.ErrStoreUnavailable)}
	rec, _ := serve(v, "Bearer T")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestMiddleware_AttachesIdentity(t *testing.T) {
	v := &stubValidator{acct: &entity.Account{ID: 42, Username: "alice"}}
	rec, seen := serve(v, "bearer abc.def.ghi")
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, Identity{AccountID: 42, Username: "alice"}, *seen)
	assert.Equal(t, "abc.def.ghi", v.got)
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := BearerToken(req)
	assert.True(t, errors.Is(err, token.ErrMissingToken))

	req.Header.Set("Authorization", "Bearer  tok ")
	tok, err := BearerToken(req)
	require.NoError(t, err)
	assert.Equal(t, "tok", tok)
}
