package factories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Order-My-Saddle/saddle-oms/internal/authz"
	"github.com/Order-My-Saddle/saddle-oms/internal/platform/httpx"
)

// Repository provides PostgreSQL backed persistence for factories and
// their employees.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const factoryColumns = `id, user_id, name, deleted, created_at, updated_at`

// List returns live factories restricted by the caller's row filter.
func (r *Repository) List(ctx context.Context, filter *authz.Filter, limit, offset int) ([]Factory, int, error) {
	where := "WHERE deleted = false"
	args := []any{}
	if filter != nil {
		args = append(args, filter.Value)
		where += fmt.Sprintf(" AND %s = $%d", filter.Column, len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM factories "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf("SELECT %s FROM factories %s ORDER BY id LIMIT $%d OFFSET $%d",
		factoryColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var factories []Factory
	for rows.Next() {
		var f Factory
		if err := rows.Scan(&f.ID, &f.UserID, &f.Name, &f.Deleted, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, 0, err
		}
		factories = append(factories, f)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return factories, total, nil
}

// Get fetches a live factory by id.
func (r *Repository) Get(ctx context.Context, id int64) (*Factory, error) {
	var f Factory
	err := r.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT %s FROM factories WHERE id = $1 AND deleted = false", factoryColumns), id,
	).Scan(&f.ID, &f.UserID, &f.Name, &f.Deleted, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}

// Insert stores a new factory.
func (r *Repository) Insert(ctx context.Context, f *Factory) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO factories (user_id, name) VALUES ($1, $2) RETURNING id, created_at, updated_at`,
		f.UserID, f.Name,
	).Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt)
}

// Update renames a factory.
func (r *Repository) Update(ctx context.Context, f *Factory) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE factories SET name = $2, updated_at = NOW() WHERE id = $1 AND deleted = false`,
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

// SoftDelete marks a factory as deleted.
func (r *Repository) SoftDelete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE factories SET deleted = true, updated_at = NOW() WHERE id = $1 AND deleted = false`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

const employeeColumns = `id, factory_id, user_id, name, deleted, created_at, updated_at`

// ListEmployees returns a factory's live employees restricted by the
// caller's row filter.
func (r *Repository) ListEmployees(ctx context.Context, factoryID int64, filter *authz.Filter) ([]FactoryEmployee, error) {
	where := "WHERE deleted = false AND factory_id = $1"
	args := []any{factoryID}
	if filter != nil {
		args = append(args, filter.Value)
		where += fmt.Sprintf(" AND %s = $%d", filter.Column, len(args))
	}

	rows, err := r.pool.Query(ctx,
		fmt.Sprintf("SELECT %s FROM factory_employees %s ORDER BY id", employeeColumns, where), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []FactoryEmployee
	for rows.Next() {
		var e FactoryEmployee
		if err := rows.Scan(&e.ID, &e.FactoryID, &e.UserID, &e.Name, &e.Deleted, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		employees = append(employees, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return employees, nil
}

// InsertEmployee stores a new factory employee.
func (r *Repository) InsertEmployee(ctx context.Context, e *FactoryEmployee) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO factory_employees (factory_id, user_id, name) VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at`,
		e.FactoryID, e.UserID, e.Name,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}
