package customers

import "time"

// Customer is a saddle customer record. fitter_id and factory_id are
// the scope columns row-level authorization filters on; created_by
// scopes rows for self-service accounts.
type Customer struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     *string   `json:"email,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	FitterID  *int64    `json:"fitter_id,omitempty"`
	FactoryID *int64    `json:"factory_id,omitempty"`
	CreatedBy int64     `json:"created_by"`
	Deleted   bool      `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateCustomerRequest is the payload for creating a customer. Scope
// columns are not part of the payload: they are stamped from the acting
// principal so a client can never claim someone else's scope.
type CreateCustomerRequest struct {
	Name  string  `json:"name" validate:"required,max=200"`
	Email *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone *string `json:"phone,omitempty" validate:"omitempty,max=50"`
}

// UpdateCustomerRequest is the payload for updating a customer.
type UpdateCustomerRequest struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,max=200"`
	Email *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone *string `json:"phone,omitempty" validate:"omitempty,max=50"`
}
