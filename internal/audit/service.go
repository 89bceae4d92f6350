package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/Order-My-Saddle/saddle-oms/internal/authz"
	"github.com/Order-My-Saddle/saddle-oms/internal/platform/httpx"
)

// Store abstracts log entry persistence.
type Store interface {
	Insert(ctx context.Context, entry LogEntry) error
	List(ctx context.Context, filter *authz.Filter, limit, offset int) ([]LogEntry, int, error)
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Recorder writes log entries on behalf of the acting principal. It is
// bookkeeping, not an authorization surface: services call it after an
// operation already passed evaluation.
type Recorder struct {
	store  Store
	logger *slog.Logger
}

// NewRecorder constructs a Recorder.
func NewRecorder(store Store, logger *slog.Logger) *Recorder {
	return &Recorder{store: store, logger: logger}
}

// Record persists a log entry attributed to the principal in ctx.
// Internal callers without a principal are attributed to the system
// account. Failures are logged and swallowed so bookkeeping never fails
// a completed operation.
func (r *Recorder) Record(ctx context.Context, action, entity, entityID string, detail map[string]any) {
	if r == nil {
		return
	}
	actor := authz.SystemUserID
	if p, ok := authz.FromContext(ctx); ok {
		actor = p.UserID
	}
	entry := LogEntry{UserID: actor, Action: action, Entity: entity, EntityID: entityID, Detail: detail}
	if err := r.store.Insert(ctx, entry); err != nil && r.logger != nil {
		r.logger.Error("record log entry", slog.Any("error", err), slog.String("action", action))
	}
}

// Service exposes the authorized read and retention surface of the log
// stream.
type Service struct {
	store Store
	authz *authz.Authorizer
}

// NewService constructs a Service.
func NewService(store Store, authorizer *authz.Authorizer) *Service {
	return &Service{store: store, authz: authorizer}
}

// List returns the log entries the principal may see. ADMIN reads the
// full stream; everyone else only their own entries; nobody mutates
// through this surface.
func (s *Service) List(ctx context.Context, limit, offset int) ([]LogEntry, int, error) {
	dec := s.authz.Authorize(ctx, authz.EntityLogEntry, authz.OpRead, nil)
	if !dec.Allowed {
		return nil, 0, httpx.ErrForbidden
	}
	return s.store.List(ctx, dec.Filter, limit, offset)
}

// Prune removes entries older than the retention window. Only the
// system principal (or a supervisor) passes the DELETE check; the
// read-only templates deny every other role.
func (s *Service) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	dec := s.authz.Authorize(ctx, authz.EntityLogEntry, authz.OpDelete, nil)
	if !dec.Allowed {
		return 0, httpx.ErrForbidden
	}
	return s.store.PruneBefore(ctx, time.Now().UTC().Add(-retention))
}
