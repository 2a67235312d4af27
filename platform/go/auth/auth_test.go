package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wundergunder/gunderats/platform/go/auth/devtoken"
)

func TestDefaultCredentialExtractor(t *testing.T) {
	creds, err := DefaultCredentialExtractor(map[string]interface{}{
		"uid":            "user-123",
		"email":          "user@example.com",
		"email_verified": true,
		"name":           "Ada",
		"isAdmin":        true,
	})
	require.NoError(t, err)
	require.Equal(t, "user-123", creds.ID)
	require.Equal(t, "user@example.com", creds.Email)
	require.True(t, creds.EmailVerified)
	require.NotNil(t, creds.Name)
	require.Equal(t, "Ada", *creds.Name)
	require.True(t, creds.PlatformAdmin)
}

func TestDefaultCredentialExtractorFallbacks(t *testing.T) {
	creds, err := DefaultCredentialExtractor(map[string]interface{}{"sub": "subject-1"})
	require.NoError(t, err)
	require.Equal(t, "subject-1", creds.ID)
	require.False(t, creds.PlatformAdmin)
	require.Nil(t, creds.Name)

	_, err = DefaultCredentialExtractor(nil)
	require.Error(t, err)
}

func TestJWTMiddlewareWithUnsignedToken(t *testing.T) {
	token, err := devtoken.BuildUnsignedToken(devtoken.Params{
		ProjectID:     "local-gunder",
		UserID:        "user-42",
		Email:         "u42@example.com",
		PlatformAdmin: true,
	}, time.Now().UTC())
	require.NoError(t, err)

	var got *UserCredentials
	handler := JWT(UnsignedTokenVerifier(), DefaultCredentialExtractor)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = UserFromContext(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/api/v1/companies", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got)
	require.Equal(t, "user-42", got.ID)
	require.True(t, got.PlatformAdmin)
}

func TestJWTMiddlewareRejectsMalformedToken(t *testing.T) {
	handler := JWT(UnsignedTokenVerifier(), DefaultCredentialExtractor)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("next handler must not run")
	}))

	r := httptest.NewRequest(http.MethodGet, "/api/v1/companies", nil)
	r.Header.Set("Authorization", "Bearer not.a.token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")
}

func TestJWTMiddlewarePassesThroughWithoutToken(t *testing.T) {
	called := false
	handler := JWT(UnsignedTokenVerifier(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		_, ok := UserFromContext(r.Context())
		require.False(t, ok)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.True(t, called)
}

func TestRequireUser(t *testing.T) {
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})

	rec := httptest.NewRecorder()
	RequireUser()(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/companies", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/companies", nil)
	r = r.WithContext(WithUser(r.Context(), &UserCredentials{ID: "user-1"}))
	RequireUser()(next).ServeHTTP(rec, r)
	require.Equal(t, http.StatusOK, rec.Code)
}
