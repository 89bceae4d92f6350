package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Order-My-Saddle/saddle-oms/internal/app"
	"github.com/Order-My-Saddle/saddle-oms/internal/audit"
	"github.com/Order-My-Saddle/saddle-oms/internal/auth"
	"github.com/Order-My-Saddle/saddle-oms/internal/authz"
	"github.com/Order-My-Saddle/saddle-oms/internal/customers"
	"github.com/Order-My-Saddle/saddle-oms/internal/factories"
	"github.com/Order-My-Saddle/saddle-oms/internal/fitters"
	"github.com/Order-My-Saddle/saddle-oms/internal/observability"
	"github.com/Order-My-Saddle/saddle-oms/internal/orders"
	"github.com/Order-My-Saddle/saddle-oms/internal/platform/cache"
	"github.com/Order-My-Saddle/saddle-oms/internal/platform/db"
	"github.com/Order-My-Saddle/saddle-oms/internal/shared"
	"github.com/Order-My-Saddle/saddle-oms/migrations"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	if cfg.MigrateOnStart {
		if err := migrations.Up(ctx, cfg.PGDSN); err != nil {
			logger.Error("apply migrations", slog.Any("error", err))
			os.Exit(1)
		}
	}

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "saddle_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	metrics := observability.NewMetrics()

	hierarchy := authz.DefaultHierarchy()
	if cfg.AuthzPolicyFile != "" {
		hierarchy, err = authz.LoadPolicyFile(cfg.AuthzPolicyFile)
		if err != nil {
			logger.Error("load authz policy", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("loaded authz policy", slog.String("file", cfg.AuthzPolicyFile))
	}

	authzStore := authz.NewStore(pool)
	resolver := authz.NewResolver(authzStore, authzStore)
	authorizer := authz.NewAuthorizer(hierarchy,
		authz.WithLogger(logger),
		authz.WithDecisionRecorder(metrics),
	)
	authzMiddleware := authz.Middleware{Resolver: resolver, Logger: logger}

	auditRepo := audit.NewRepository(pool)
	recorder := audit.NewRecorder(auditRepo, logger)
	auditService := audit.NewService(auditRepo, authorizer)
	auditHandler := audit.NewHandler(auditService, logger)

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(authService, sessionManager, csrfManager, resolver, recorder, logger)

	customersService := customers.NewService(customers.NewRepository(pool), authorizer, recorder)
	ordersService := orders.NewService(orders.NewRepository(pool), authorizer, recorder)
	fittersService := fitters.NewService(fitters.NewRepository(pool), authorizer, recorder)
	factoriesService := factories.NewService(factories.NewRepository(pool), authorizer, recorder)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		SessionManager:  sessionManager,
		CSRFManager:     csrfManager,
		Metrics:         metrics,
		AuthzMiddleware: authzMiddleware,

		AuthHandler:      authHandler,
		CustomersHandler: customers.NewHandler(customersService, logger),
		OrdersHandler:    orders.NewHandler(ordersService, logger),
		FittersHandler:   fitters.NewHandler(fittersService, logger),
		FactoriesHandler: factories.NewHandler(factoriesService, logger),
		AuditHandler:     auditHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}
