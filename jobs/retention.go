package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Order-My-Saddle/saddle-oms/internal/audit"
	"github.com/Order-My-Saddle/saddle-oms/internal/authz"
	jobmetrics "github.com/Order-My-Saddle/saddle-oms/internal/jobs"
)

// RetentionHandler prunes log entries through the authorized service
// surface. The worker acts as the system principal; the delete still
// runs through the same evaluation every request does.
type RetentionHandler struct {
	service *audit.Service
	metrics *jobmetrics.Metrics
	logger  *slog.Logger
}

// NewRetentionHandler constructs a RetentionHandler.
func NewRetentionHandler(service *audit.Service, metrics *jobmetrics.Metrics, logger *slog.Logger) *RetentionHandler {
	return &RetentionHandler{service: service, metrics: metrics, logger: logger}
}

// Handle processes TaskLogRetention tasks.
func (h *RetentionHandler) Handle(ctx context.Context, t *asynq.Task) error {
	var payload LogRetentionPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.RetentionDays <= 0 {
		return asynq.SkipRetry
	}

	tracker := h.metrics.Track("log_retention")
	ctx = authz.WithSystemPrincipal(ctx)
	pruned, err := h.service.Prune(ctx, time.Duration(payload.RetentionDays)*24*time.Hour)
	if err != nil {
		h.logger.Error("log retention", slog.Any("error", err))
		return tracker.End(err)
	}
	h.logger.Info("log retention", slog.Int64("pruned", pruned), slog.Int("retention_days", payload.RetentionDays))
	return tracker.End(nil)
}

// SessionSweeper deletes session rows whose expiry has passed. Redis
// entries expire on their own; this keeps the postgres audit trail of
// sessions bounded.
type SessionSweeper struct {
	pool    *pgxpool.Pool
	metrics *jobmetrics.Metrics
	logger  *slog.Logger
}

// NewSessionSweeper constructs a SessionSweeper.
func NewSessionSweeper(pool *pgxpool.Pool, metrics *jobmetrics.Metrics, logger *slog.Logger) *SessionSweeper {
	return &SessionSweeper{pool: pool, metrics: metrics, logger: logger}
}

// Handle processes TaskSessionSweep tasks.
func (s *SessionSweeper) Handle(ctx context.Context, _ *asynq.Task) error {
	tracker := s.metrics.Track("session_sweep")
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < now()`)
	if err != nil {
		s.logger.Error("session sweep", slog.Any("error", err))
		return tracker.End(err)
	}
	s.logger.Info("session sweep", slog.Int64("deleted", tag.RowsAffected()))
	return tracker.End(nil)
}
