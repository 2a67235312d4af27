package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	platformauth "github.com/wundergunder/gunderats/platform/go/auth"
)

type stubResolver struct {
	calls     int
	lastReq   *uuid.UUID
	lastAdmin bool
	sess      Context
	err       error
}

func (s *stubResolver) ResolveSession(ctx context.Context, userID uuid.UUID, platformAdmin bool, requestedCompanyID *uuid.UUID) (Context, error) {
	s.calls++
	s.lastAdmin = platformAdmin
	s.lastReq = requestedCompanyID
	if s.err != nil {
		return Context{}, s.err
	}
	sess := s.sess
	sess.UserID = userID
	return sess, nil
}

func authedRequest(t *testing.T, userID uuid.UUID, platformAdmin bool) *http.Request {
	t.Helper()
	r := httptest.NewRequest(http.MethodGet, "/companies", nil)
	ctx := platformauth.WithUser(r.Context(), &platformauth.UserCredentials{
		ID:            userID.String(),
		PlatformAdmin: platformAdmin,
	})
	return r.WithContext(ctx)
}

func TestMiddleware_attachesResolvedSession(t *testing.T) {
	t.Parallel()

	companyID := uuid.New()
	resolver := &stubResolver{sess: Context{
		AuthorizedCompanyIDs: []uuid.UUID{companyID},
		SelectedCompanyID:    companyID,
	}}

	var got Context
	var present bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, present = FromContext(r.Context())
	})

	userID := uuid.New()
	rec := httptest.NewRecorder()
	Middleware(resolver, Config{})(next).ServeHTTP(rec, authedRequest(t, userID, false))

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, present)
	require.Equal(t, userID, got.UserID)
	require.Equal(t, companyID, got.SelectedCompanyID)
	require.True(t, got.Authorized(companyID))
	require.False(t, got.Authorized(uuid.New()))
}

func TestMiddleware_forwardsRequestedCompany(t *testing.T) {
	t.Parallel()

	requested := uuid.New()
	resolver := &stubResolver{sess: Context{SelectedCompanyID: requested}}

	r := authedRequest(t, uuid.New(), true)
	r.Header.Set(CompanyHeader, requested.String())

	rec := httptest.NewRecorder()
	Middleware(resolver, Config{})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).ServeHTTP(rec, r)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, resolver.lastReq)
	require.Equal(t, requested, *resolver.lastReq)
	require.True(t, resolver.lastAdmin)
}

func TestMiddleware_queryFallbackForCompany(t *testing.T) {
	t.Parallel()

	requested := uuid.New()
	resolver := &stubResolver{}

	r := authedRequest(t, uuid.New(), false)
	q := r.URL.Query()
	q.Set("company", requested.String())
	r.URL.RawQuery = q.Encode()

	rec := httptest.NewRecorder()
	Middleware(resolver, Config{})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).ServeHTTP(rec, r)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, resolver.lastReq)
	require.Equal(t, requested, *resolver.lastReq)
}

func TestMiddleware_rejections(t *testing.T) {
	t.Parallel()

	t.Run("missing credentials", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/companies", nil)
		Middleware(&stubResolver{}, Config{})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			t.Fatal("next handler must not run")
		})).ServeHTTP(rec, r)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("non-uuid user id", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/companies", nil)
		r = r.WithContext(platformauth.WithUser(r.Context(), &platformauth.UserCredentials{ID: "firebase-legacy-uid"}))
		Middleware(&stubResolver{}, Config{})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			t.Fatal("next handler must not run")
		})).ServeHTTP(rec, r)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed company header", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		r := authedRequest(t, uuid.New(), false)
		r.Header.Set(CompanyHeader, "not-a-uuid")
		Middleware(&stubResolver{}, Config{})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			t.Fatal("next handler must not run")
		})).ServeHTTP(rec, r)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("resolver failure", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		resolver := &stubResolver{err: errors.New("company out of scope")}
		Middleware(resolver, Config{})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			t.Fatal("next handler must not run")
		})).ServeHTTP(rec, authedRequest(t, uuid.New(), false))
		require.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestMiddleware_cachesResolvedSessions(t *testing.T) {
	t.Parallel()

	resolver := &stubResolver{sess: Context{SelectedCompanyID: uuid.New()}}
	handler := Middleware(resolver, Config{CacheTTL: time.Minute})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	userID := uuid.New()
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, authedRequest(t, userID, false))
		require.Equal(t, http.StatusOK, rec.Code)
	}
	require.Equal(t, 1, resolver.calls)

	// A different requested company misses the cache.
	r := authedRequest(t, userID, false)
	r.Header.Set(CompanyHeader, uuid.New().String())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 2, resolver.calls)
}
