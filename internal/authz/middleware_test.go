package authz

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Order-My-Saddle/saddle-oms/internal/shared"
)

func requestWithSessionUser(t *testing.T, userID string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/customers", nil)
	sess := &shared.Session{}
	if userID != "" {
		sess.SetUser(userID)
	}
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

func TestEstablishPrincipalAttachesPrincipal(t *testing.T) {
	r, _, _ := newTestResolver()
	mw := Middleware{Resolver: r, Logger: slog.Default()}

	var got Principal
	var ok bool
	next := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		got, ok = FromContext(req.Context())
	})

	rr := httptest.NewRecorder()
	mw.EstablishPrincipal(next).ServeHTTP(rr, requestWithSessionUser(t, "5"))

	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, ok)
	require.Equal(t, int64(5), got.UserID)
	require.Equal(t, RoleFitter, got.Role)
	require.Equal(t, int64(42), *got.FitterID)
}

func TestEstablishPrincipalPassesThroughAnonymous(t *testing.T) {
	r, _, _ := newTestResolver()
	mw := Middleware{Resolver: r}

	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		called = true
		_, ok := FromContext(req.Context())
		require.False(t, ok)
	})

	rr := httptest.NewRecorder()
	mw.EstablishPrincipal(next).ServeHTTP(rr, requestWithSessionUser(t, ""))
	require.True(t, called)
}

func TestEstablishPrincipalRejectsStaleSession(t *testing.T) {
	r, _, _ := newTestResolver()
	mw := Middleware{Resolver: r}

	next := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		t.Fatal("handler must not run")
	})

	// Unknown account and revoked account produce the same response.
	for _, user := range []string{"999", "20"} {
		rr := httptest.NewRecorder()
		mw.EstablishPrincipal(next).ServeHTTP(rr, requestWithSessionUser(t, user))
		require.Equal(t, http.StatusUnauthorized, rr.Code, "user %s", user)
	}
}

func TestEstablishPrincipalIgnoresMalformedSessionUser(t *testing.T) {
	r, _, _ := newTestResolver()
	mw := Middleware{Resolver: r}

	for _, user := range []string{"not-a-number", "0", "-4"} {
		called := false
		next := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			called = true
			_, ok := FromContext(req.Context())
			require.False(t, ok)
		})
		rr := httptest.NewRecorder()
		mw.EstablishPrincipal(next).ServeHTTP(rr, requestWithSessionUser(t, user))
		require.True(t, called, "user %q", user)
	}
}

func TestRequirePrincipal(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	RequirePrincipal(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithPrincipal(req.Context(), Principal{UserID: 5, Role: RoleFitter}))
	rr = httptest.NewRecorder()
	RequirePrincipal(next).ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
}
