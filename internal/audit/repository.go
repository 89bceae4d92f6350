package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Order-My-Saddle/saddle-oms/internal/authz"
)

// Repository provides PostgreSQL backed persistence for log entries.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert stores one log entry.
func (r *Repository) Insert(ctx context.Context, entry LogEntry) error {
	detail, err := json.Marshal(entry.Detail)
	if err != nil {
		return fmt.Errorf("audit: marshal detail: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO log_entries (user_id, action, entity, entity_id, detail, created_at)
		 VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))`,
		entry.UserID, entry.Action, entry.Entity, entry.EntityID, detail, nullableTime(entry.At),
	)
	return err
}

// List returns log entries newest first, restricted by the caller's
// row filter, with the total for pagination.
func (r *Repository) List(ctx context.Context, filter *authz.Filter, limit, offset int) ([]LogEntry, int, error) {
	where := ""
	args := []any{}
	if filter != nil {
		where = fmt.Sprintf("WHERE %s = $1", filter.Column)
		args = append(args, filter.Value)
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM log_entries "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(
		`SELECT id, user_id, action, entity, entity_id, detail, created_at
		 FROM log_entries %s ORDER BY id DESC LIMIT $%d OFFSET $%d`,
		where, len(args)+1, len(args)+2,
	)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []LogEntry
	for rows.Next() {
		var (
			entry  LogEntry
			detail []byte
		)
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.Action, &entry.Entity, &entry.EntityID, &detail, &entry.At); err != nil {
			return nil, 0, err
		}
		if len(detail) > 0 {
			if err := json.Unmarshal(detail, &entry.Detail); err != nil {
				return nil, 0, fmt.Errorf("audit: unmarshal detail: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// PruneBefore deletes entries older than the cutoff and reports how
// many rows went away.
func (r *Repository) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM log_entries WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
