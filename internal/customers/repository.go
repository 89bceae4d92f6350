package customers

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Order-My-Saddle/saddle-oms/internal/authz"
	"github.com/Order-My-Saddle/saddle-oms/internal/platform/db"
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

const customerColumns = `id, name, email, phone, fitter_id, factory_id, created_by, deleted, created_at, updated_at`

// List returns live customers restricted by the caller's row filter,
// with the total for pagination.
func (r *Repository) List(ctx context.Context, filter *authz.Filter, limit, offset int) ([]Customer, int, error) {
	where := "WHERE deleted = false"
	args := []any{}
	if filter != nil {
		args = append(args, filter.Value)
		where += fmt.Sprintf(" AND %s = $%d", filter.Column, len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM customers "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf("SELECT %s FROM customers %s ORDER BY id LIMIT $%d OFFSET $%d",
		customerColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var customers []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, err
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return customers, total, nil
}

// Get fetches a live customer by id. The caller authorizes against the
// returned row before exposing it.
func (r *Repository) Get(ctx context.Context, id int64) (*Customer, error) {
	row := r.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT %s FROM customers WHERE id = $1 AND deleted = false", customerColumns), id)
	c, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// Insert stores a new customer and fills in its id and timestamps.
func (r *Repository) Insert(ctx context.Context, c *Customer) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO customers (name, email, phone, fitter_id, factory_id, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at`,
		c.Name, c.Email, c.Phone, c.FitterID, c.FactoryID, c.CreatedBy,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

// Update persists mutable fields of a customer.
func (r *Repository) Update(ctx context.Context, c *Customer) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE customers SET name = $2, email = $3, phone = $4, updated_at = NOW()
		 WHERE id = $1 AND deleted = false`,
		c.ID, c.Name, c.Email, c.Phone,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

// SoftDelete marks a customer as deleted and retires their draft
// orders in the same transaction, so a half-applied delete cannot
// leave orphaned drafts behind.
func (r *Repository) SoftDelete(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE customers SET deleted = true, updated_at = NOW() WHERE id = $1 AND deleted = false`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return httpx.ErrNotFound
		}
		_, err = tx.Exec(ctx,
			`UPDATE orders SET deleted = true, updated_at = NOW()
			 WHERE customer_id = $1 AND status = 'draft' AND deleted = false`, id)
		return err
	})
}

func scanCustomer(row pgx.Row) (Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.FitterID, &c.FactoryID,
		&c.CreatedBy, &c.Deleted, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}
