package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/Order-My-Saddle/saddle-oms/internal/audit"
	"github.com/Order-My-Saddle/saddle-oms/internal/authz"
	"github.com/Order-My-Saddle/saddle-oms/internal/platform/httpx"
	"github.com/Order-My-Saddle/saddle-oms/internal/shared"
)

// Handler serves the login/logout JSON API. These endpoints are the
// only ones mounted outside the principal-requiring group: login has no
// principal yet and logout must work for a half-expired session.
type Handler struct {
	service  *Service
	sessions *shared.SessionManager
	csrf     *shared.CSRFManager
	resolver *authz.Resolver
	recorder *audit.Recorder
	logger   *slog.Logger
	validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(service *Service, sessions *shared.SessionManager, csrf *shared.CSRFManager, resolver *authz.Resolver, recorder *audit.Recorder, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		sessions: sessions,
		csrf:     csrf,
		resolver: resolver,
		recorder: recorder,
		logger:   logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// MountRoutes registers the auth routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.login)
	r.Post("/logout", h.logout)
	r.Get("/me", h.me)
	r.Get("/csrf", h.csrfToken)
}

// LoginRequest carries login credentials. Role and scope are never
// accepted here; they are re-derived from storage on every request.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, errors.Join(httpx.ErrValidation, err))
		return
	}

	ctx := r.Context()
	user, err := h.service.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		h.logger.Error("authenticate", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	sess := shared.SessionFromContext(ctx)
	if sess == nil {
		httpx.RespondError(w, errors.New("session missing"))
		return
	}
	sess.SetUser(strconv.FormatInt(user.ID, 10))

	token, err := h.csrf.RotateToken(ctx, sess)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	expires := time.Now().Add(h.sessions.TTL())
	if err := h.service.RegisterSession(ctx, sess.ID, user.ID, expires, r.RemoteAddr, r.UserAgent()); err != nil {
		h.logger.Error("register session", slog.Any("error", err))
	}

	actor := authz.Principal{UserID: user.ID, Role: authz.Role(user.Role)}
	h.recorder.Record(authz.WithPrincipal(ctx, actor), audit.ActionLogin, string(authz.EntityCredential), strconv.FormatInt(user.ID, 10), nil)

	httpx.JSON(w, http.StatusOK, map[string]any{
		"id":         user.ID,
		"email":      user.Email,
		"role":       user.Role,
		"csrf_token": token,
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := shared.SessionFromContext(ctx)
	if sess == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if userID, err := strconv.ParseInt(sess.User(), 10, 64); err == nil && userID > 0 {
		actor := authz.Principal{UserID: userID}
		h.recorder.Record(authz.WithPrincipal(ctx, actor), audit.ActionLogout, string(authz.EntityCredential), sess.User(), nil)
	}

	if err := h.service.RemoveSession(ctx, sess.ID); err != nil {
		h.logger.Error("remove session", slog.Any("error", err))
	}
	h.sessions.Destroy(sess)

	w.WriteHeader(http.StatusNoContent)
}

// me returns the caller's resolved principal, scope ids included, so a
// client can see exactly what the server will enforce.
func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := shared.SessionFromContext(ctx)
	if sess == nil || sess.User() == "" {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	userID, err := strconv.ParseInt(sess.User(), 10, 64)
	if err != nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}

	p, err := h.resolver.Resolve(ctx, userID)
	if err != nil {
		if errors.Is(err, authz.ErrUnknownCredential) || errors.Is(err, authz.ErrRevokedCredential) {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		h.logger.Error("resolve principal", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"id":         p.UserID,
		"role":       p.Role,
		"fitter_id":  p.FitterID,
		"factory_id": p.FactoryID,
	})
}

// LoginForTest exposes the login handler for tests.
func (h *Handler) LoginForTest(w http.ResponseWriter, r *http.Request) {
	h.login(w, r)
}

// LogoutForTest exposes the logout handler for tests.
func (h *Handler) LogoutForTest(w http.ResponseWriter, r *http.Request) {
	h.logout(w, r)
}

// MeForTest exposes the me handler for tests.
func (h *Handler) MeForTest(w http.ResponseWriter, r *http.Request) {
	h.me(w, r)
}

func (h *Handler) csrfToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := shared.SessionFromContext(ctx)
	if sess == nil {
		httpx.RespondError(w, errors.New("session missing"))
		return
	}
	token, err := h.csrf.EnsureToken(ctx, sess)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"token": token})
}
