package orders

import "time"

// Order status lifecycle. Transitions are ordinary application logic;
// row visibility is what the authorization core governs.
const (
	StatusDraft      = "draft"
	StatusConfirmed  = "confirmed"
	StatusInProgress = "in_progress"
	StatusShipped    = "shipped"
	StatusCancelled  = "cancelled"
)

// Order is a saddle order. fitter_id, factory_id and created_by are
// the scope columns row-level authorization filters on.
type Order struct {
	ID          int64     `json:"id"`
	CustomerID  int64     `json:"customer_id"`
	FitterID    *int64    `json:"fitter_id,omitempty"`
	FactoryID   *int64    `json:"factory_id,omitempty"`
	Status      string    `json:"status"`
	SaddleModel string    `json:"saddle_model"`
	PriceCents  int64     `json:"price_cents"`
	CreatedBy   int64     `json:"created_by"`
	Deleted     bool      `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateOrderRequest is the payload for creating an order. Scope
// columns are stamped from the acting principal, never taken from the
// payload.
type CreateOrderRequest struct {
	CustomerID  int64  `json:"customer_id" validate:"required,gt=0"`
	SaddleModel string `json:"saddle_model" validate:"required,max=100"`
	PriceCents  int64  `json:"price_cents" validate:"gte=0"`
}

// UpdateOrderRequest is the payload for updating an order.
type UpdateOrderRequest struct {
	Status      *string `json:"status,omitempty" validate:"omitempty,oneof=draft confirmed in_progress shipped cancelled"`
	SaddleModel *string `json:"saddle_model,omitempty" validate:"omitempty,max=100"`
	PriceCents  *int64  `json:"price_cents,omitempty" validate:"omitempty,gte=0"`
}
