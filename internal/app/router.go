package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Order-My-Saddle/saddle-oms/internal/audit"
	"github.com/Order-My-Saddle/saddle-oms/internal/auth"
	"github.com/Order-My-Saddle/saddle-oms/internal/authz"
	"github.com/Order-My-Saddle/saddle-oms/internal/customers"
	"github.com/Order-My-Saddle/saddle-oms/internal/factories"
	"github.com/Order-My-Saddle/saddle-oms/internal/fitters"
	"github.com/Order-My-Saddle/saddle-oms/internal/observability"
	"github.com/Order-My-Saddle/saddle-oms/internal/orders"
	"github.com/Order-My-Saddle/saddle-oms/internal/shared"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Metrics        *observability.Metrics

	AuthzMiddleware authz.Middleware

	AuthHandler      *auth.Handler
	CustomersHandler *customers.Handler
	OrdersHandler    *orders.Handler
	FittersHandler   *fitters.Handler
	FactoriesHandler *factories.Handler
	AuditHandler     *audit.Handler
}

// NewRouter constructs the chi.Router. Everything under /api except the
// auth endpoints requires an established principal.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", params.AuthHandler.MountRoutes)

		r.Group(func(r chi.Router) {
			r.Use(params.AuthzMiddleware.EstablishPrincipal)
			r.Use(authz.RequirePrincipal)

			r.Route("/customers", params.CustomersHandler.MountRoutes)
			r.Route("/orders", params.OrdersHandler.MountRoutes)
			r.Route("/fitters", params.FittersHandler.MountRoutes)
			r.Route("/factories", params.FactoriesHandler.MountRoutes)
			r.Route("/logs", params.AuditHandler.MountRoutes)
		})
	})

	return r
}
