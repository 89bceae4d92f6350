package fitters

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Order-My-Saddle/saddle-oms/internal/authz"
	"github.com/Order-My-Saddle/saddle-oms/internal/platform/httpx"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const fitterColumns = `id, user_id, name, deleted, created_at, updated_at`

// List returns live fitters restricted by the caller's row filter.
func (r *Repository) List(ctx context.Context, filter *authz.Filter, limit, offset int) ([]Fitter, int, error) {
	where := "WHERE deleted = false"
	args := []any{}
	if filter != nil {
		args = append(args, filter.Value)
		where += fmt.Sprintf(" AND %s = $%d", filter.Column, len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM fitters "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf("SELECT %s FROM fitters %s ORDER BY id LIMIT $%d OFFSET $%d",
		fitterColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var fitters []Fitter
	for rows.Next() {
		var f Fitter
		if err := rows.Scan(&f.ID, &f.UserID, &f.Name, &f.Deleted, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, 0, err
		}
		fitters = append(fitters, f)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return fitters, total, nil
}

// Get fetches a live fitter by id.
func (r *Repository) Get(ctx context.Context, id int64) (*Fitter, error) {
	var f Fitter
	err := r.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT %s FROM fitters WHERE id = $1 AND deleted = false", fitterColumns), id,
	).Scan(&f.ID, &f.UserID, &f.Name, &f.Deleted, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}

// Insert stores a new fitter.
func (r *Repository) Insert(ctx context.Context, f *Fitter) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO fitters (user_id, name) VALUES ($1, $2) RETURNING id, created_at, updated_at`,
		f.UserID, f.Name,
	).Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt)
}

// Update renames a fitter.
func (r *Repository) Update(ctx context.Context, f *Fitter) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE fitters SET name = $2, updated_at = NOW() WHERE id = $1 AND deleted = false`,
		f.ID, f.Name,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

// SoftDelete marks a fitter as deleted, which also removes it as a
// scope target for its user.
func (r *Repository) SoftDelete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE fitters SET deleted = true, updated_at = NOW() WHERE id = $1 AND deleted = false`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}
