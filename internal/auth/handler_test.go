package auth_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/Order-My-Saddle/saddle-oms/internal/audit"
	"github.com/Order-My-Saddle/saddle-oms/internal/auth"
	"github.com/Order-My-Saddle/saddle-oms/internal/authz"
	"github.com/Order-My-Saddle/saddle-oms/internal/shared"
	_ "github.com/Order-My-Saddle/saddle-oms/testing"
)

type stubRepo struct {
	user     *auth.User
	sessions map[string]int64
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, shared.ErrInvalidCredentials
	}
	return s.user, nil
}

func (s *stubRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	if s.sessions == nil {
		s.sessions = make(map[string]int64)
	}
	s.sessions[id] = userID
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	delete(s.sessions, id)
	return nil
}

type stubCredentialStore struct {
	creds map[int64]authz.Credential
}

func (s *stubCredentialStore) GetCredential(ctx context.Context, userID int64) (*authz.Credential, error) {
	cred, ok := s.creds[userID]
	if !ok {
		return nil, authz.ErrUnknownCredential
	}
	return &cred, nil
}

type stubScopeStore struct {
	fitters map[int64]int64
}

func (s *stubScopeStore) FitterIDByUser(ctx context.Context, userID int64) (int64, error) {
	id, ok := s.fitters[userID]
	if !ok {
		return 0, authz.ErrNoScopeRecord
	}
	return id, nil
}

func (s *stubScopeStore) FactoryIDByUser(ctx context.Context, userID int64) (int64, error) {
	return 0, authz.ErrNoScopeRecord
}

type stubLogStore struct {
	entries []audit.LogEntry
}

func (s *stubLogStore) Insert(ctx context.Context, entry audit.LogEntry) error {
	s.entries = append(s.entries, entry)
	return nil
}

func (s *stubLogStore) List(ctx context.Context, filter *authz.Filter, limit, offset int) ([]audit.LogEntry, int, error) {
	return s.entries, len(s.entries), nil
}

func (s *stubLogStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return string(hashed)
}

func newAuthHandler(t *testing.T, repo *stubRepo) (*auth.Handler, *shared.SessionManager, *stubLogStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	csrfManager := shared.NewCSRFManager("csrfsecret")

	resolver := authz.NewResolver(
		&stubCredentialStore{creds: map[int64]authz.Credential{1: {UserID: 1, Role: authz.RoleFitter}}},
		&stubScopeStore{fitters: map[int64]int64{1: 42}},
	)
	logs := &stubLogStore{}
	recorder := audit.NewRecorder(logs, nil)

	handler := auth.NewHandler(auth.NewService(repo), sessionManager, csrfManager, resolver, recorder, discardLogger())
	return handler, sessionManager, logs
}

func withSession(t *testing.T, sm *shared.SessionManager, req *http.Request) (*http.Request, *shared.Session) {
	t.Helper()
	sess, err := sm.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	return req.WithContext(shared.ContextWithSession(req.Context(), sess)), sess
}

func TestLoginSuccess(t *testing.T) {
	repo := &stubRepo{user: &auth.User{ID: 1, Email: "fitter@test.local", PasswordHash: hashPassword(t, "correctpass"), Role: "FITTER"}}
	handler, sm, logs := newAuthHandler(t, repo)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":"fitter@test.local","password":"correctpass"}`))
	req.Header.Set("Content-Type", "application/json")
	req, sess := withSession(t, sm, req)

	res := httptest.NewRecorder()
	handler.LoginForTest(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", res.Code, res.Body.String())
	}

	var payload struct {
		ID        int64  `json:"id"`
		Role      string `json:"role"`
		CSRFToken string `json:"csrf_token"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.ID != 1 || payload.Role != "FITTER" {
		t.Fatalf("unexpected identity in response: %+v", payload)
	}
	if payload.CSRFToken == "" {
		t.Fatal("expected csrf token in response")
	}
	if sess.User() != "1" {
		t.Fatalf("expected session user 1, got %q", sess.User())
	}
	if repo.sessions[sess.ID] != 1 {
		t.Fatal("expected session row to be persisted")
	}
	if len(logs.entries) != 1 || logs.entries[0].Action != audit.ActionLogin {
		t.Fatalf("expected one login log entry, got %+v", logs.entries)
	}
	if logs.entries[0].UserID != 1 {
		t.Fatalf("login entry must be attributed to the account, got %d", logs.entries[0].UserID)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	repo := &stubRepo{user: &auth.User{ID: 1, Email: "fitter@test.local", PasswordHash: hashPassword(t, "correctpass"), Role: "FITTER"}}
	handler, sm, _ := newAuthHandler(t, repo)

	cases := []string{
		`{"email":"fitter@test.local","password":"wrongpass"}`,
		`{"email":"nobody@test.local","password":"correctpass"}`,
	}
	for _, body := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req, sess := withSession(t, sm, req)
		res := httptest.NewRecorder()
		handler.LoginForTest(res, req)

		if res.Code != http.StatusUnauthorized {
			t.Fatalf("expected status 401, got %d", res.Code)
		}
		if sess.User() != "" {
			t.Fatal("session must not be associated on failed login")
		}
	}
}

func TestLoginBlockedAccountLooksLikeBadPassword(t *testing.T) {
	repo := &stubRepo{user: &auth.User{ID: 1, Email: "fitter@test.local", PasswordHash: hashPassword(t, "correctpass"), Role: "FITTER", Blocked: true}}
	handler, sm, _ := newAuthHandler(t, repo)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":"fitter@test.local","password":"correctpass"}`))
	req.Header.Set("Content-Type", "application/json")
	req, _ = withSession(t, sm, req)
	res := httptest.NewRecorder()
	handler.LoginForTest(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", res.Code)
	}
	if strings.Contains(strings.ToLower(res.Body.String()), "block") {
		t.Fatal("response must not reveal account state")
	}
}

func TestLoginValidationFailure(t *testing.T) {
	handler, sm, _ := newAuthHandler(t, &stubRepo{})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":"not-an-email","password":""}`))
	req.Header.Set("Content-Type", "application/json")
	req, _ = withSession(t, sm, req)
	res := httptest.NewRecorder()
	handler.LoginForTest(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", res.Code)
	}
}

func TestLogoutDestroysSession(t *testing.T) {
	repo := &stubRepo{user: &auth.User{ID: 1, Email: "fitter@test.local", PasswordHash: hashPassword(t, "correctpass"), Role: "FITTER"}, sessions: map[string]int64{}}
	handler, sm, logs := newAuthHandler(t, repo)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req, sess := withSession(t, sm, req)
	sess.SetUser("1")
	repo.sessions[sess.ID] = 1

	res := httptest.NewRecorder()
	handler.LogoutForTest(res, req)

	if res.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", res.Code)
	}
	if _, ok := repo.sessions[sess.ID]; ok {
		t.Fatal("expected session row to be deleted")
	}
	if len(logs.entries) != 1 || logs.entries[0].Action != audit.ActionLogout {
		t.Fatalf("expected logout log entry, got %+v", logs.entries)
	}
}

func TestMeResolvesScope(t *testing.T) {
	handler, sm, _ := newAuthHandler(t, &stubRepo{})

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req, sess := withSession(t, sm, req)
	sess.SetUser("1")

	res := httptest.NewRecorder()
	handler.MeForTest(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", res.Code)
	}
	var payload struct {
		ID       int64  `json:"id"`
		Role     string `json:"role"`
		FitterID *int64 `json:"fitter_id"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.ID != 1 || payload.Role != "FITTER" {
		t.Fatalf("unexpected identity: %+v", payload)
	}
	if payload.FitterID == nil || *payload.FitterID != 42 {
		t.Fatalf("expected derived fitter scope 42, got %v", payload.FitterID)
	}
}

func TestMeWithoutSessionUser(t *testing.T) {
	handler, sm, _ := newAuthHandler(t, &stubRepo{})

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req, _ = withSession(t, sm, req)

	res := httptest.NewRecorder()
	handler.MeForTest(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", res.Code)
	}
}
