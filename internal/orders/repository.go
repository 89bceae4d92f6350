package orders

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

const orderColumns = `id, customer_id, fitter_id, factory_id, status, saddle_model, price_cents, created_by, deleted, created_at, updated_at`

// List returns live orders restricted by the caller's row filter.
func (r *Repository) List(ctx context.Context, filter *authz.Filter, limit, offset int) ([]Order, int, error) {
	where := "WHERE deleted = false"
	args := []any{}
	if filter != nil {
		args = append(args, filter.Value)
		where += fmt.Sprintf(" AND %s = $%d", filter.Column, len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM orders "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf("SELECT %s FROM orders %s ORDER BY id LIMIT $%d OFFSET $%d",
		orderColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// Get fetches a live order by id.
func (r *Repository) Get(ctx context.Context, id int64) (*Order, error) {
	row := r.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT %s FROM orders WHERE id = $1 AND deleted = false", orderColumns), id)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

// Insert stores a new order and fills in its id and timestamps.
func (r *Repository) Insert(ctx context.Context, o *Order) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO orders (customer_id, fitter_id, factory_id, status, saddle_model, price_cents, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at, updated_at`,
		o.CustomerID, o.FitterID, o.FactoryID, o.Status, o.SaddleModel, o.PriceCents, o.CreatedBy,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
}

// Update persists mutable fields of an order.
func (r *Repository) Update(ctx context.Context, o *Order) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE orders SET status = $2, saddle_model = $3, price_cents = $4, updated_at = NOW()
		 WHERE id = $1 AND deleted = false`,
		o.ID, o.Status, o.SaddleModel, o.PriceCents,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

// SoftDelete marks an order as deleted.
func (r *Repository) SoftDelete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE orders SET deleted = true, updated_at = NOW() WHERE id = $1 AND deleted = false`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.CustomerID, &o.FitterID, &o.FactoryID, &o.Status, &o.SaddleModel,
		&o.PriceCents, &o.CreatedBy, &o.Deleted, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}
