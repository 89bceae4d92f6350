package authz

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/Order-My-Saddle/saddle-oms/internal/platform/httpx"
	"github.com/Order-My-Saddle/saddle-oms/internal/shared"
)

// Middleware establishes the principal for each request. It runs after
// the session middleware: the session's user id is resolved against the
// credentials table and the derived principal is attached to the
// request context. Requests without a session user simply carry no
// principal; route groups that need one add RequirePrincipal.
type Middleware struct {
	Resolver *Resolver
	Logger   *slog.Logger
}

// EstablishPrincipal resolves and attaches the principal.
func (m Middleware) EstablishPrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := sessionUserID(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		p, err := m.Resolver.Resolve(r.Context(), userID)
		if err != nil {
			if errors.Is(err, ErrUnknownCredential) || errors.Is(err, ErrRevokedCredential) {
				// Stale or revoked session. Same response either way so
				// account state does not leak.
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			if m.Logger != nil {
				m.Logger.Error("establish principal", slog.Any("error", err))
			}
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// RequirePrincipal rejects requests that carry no principal.
func RequirePrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := FromContext(r.Context()); !ok {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func sessionUserID(r *http.Request) (int64, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return 0, false
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
