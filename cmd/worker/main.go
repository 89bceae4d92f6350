package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/Order-My-Saddle/saddle-oms/internal/app"
	"github.com/Order-My-Saddle/saddle-oms/internal/audit"
	"github.com/Order-My-Saddle/saddle-oms/internal/authz"
	jobmetrics "github.com/Order-My-Saddle/saddle-oms/internal/jobs"
	"github.com/Order-My-Saddle/saddle-oms/internal/platform/db"
	"github.com/Order-My-Saddle/saddle-oms/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	// "worker enqueue-retention" submits one retention run and exits,
	// for manual reruns outside the nightly schedule.
	if len(os.Args) > 1 && os.Args[1] == "enqueue-retention" {
		client, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		if err != nil {
			logger.Error("build queue client", slog.Any("error", err))
			os.Exit(1)
		}
		defer client.Close()
		info, err := client.EnqueueLogRetention(ctx, jobs.LogRetentionPayload{RetentionDays: cfg.LogRetentionDays})
		if err != nil {
			logger.Error("enqueue retention", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("retention task enqueued", slog.String("task_id", info.ID))
		return
	}

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	hierarchy := authz.DefaultHierarchy()
	if cfg.AuthzPolicyFile != "" {
		hierarchy, err = authz.LoadPolicyFile(cfg.AuthzPolicyFile)
		if err != nil {
			logger.Error("load authz policy", slog.Any("error", err))
			os.Exit(1)
		}
	}
	authorizer := authz.NewAuthorizer(hierarchy, authz.WithLogger(logger))

	metrics := jobmetrics.NewMetrics(nil)
	auditService := audit.NewService(audit.NewRepository(pool), authorizer)
	retention := jobs.NewRetentionHandler(auditService, metrics, logger)
	sweeper := jobs.NewSessionSweeper(pool, metrics, logger)

	retentionTask, err := jobs.NewLogRetentionTask(jobs.LogRetentionPayload{RetentionDays: cfg.LogRetentionDays})
	if err != nil {
		logger.Error("build retention task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskLogRetention, Handler: retention.Handle},
			{Type: jobs.TaskSessionSweep, Handler: sweeper.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 3 * * *", Task: retentionTask, Options: []asynq.Option{asynq.Queue(jobs.QueueDefault)}},
			{Spec: "30 3 * * *", Task: jobs.NewSessionSweepTask(), Options: []asynq.Option{asynq.Queue(jobs.QueueDefault)}},
		},
	})
	if err != nil {
		logger.Error("build worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker started", slog.Int("retention_days", cfg.LogRetentionDays))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker exited", slog.Any("error", err))
		os.Exit(1)
	}
}
