package factories

import "time"

// Factory is a manufacturing site record. user_id links it to the
// credential that owns it; scope derivation resolves a FACTORY
// principal's factory id through that link.
type Factory struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name"`
	Deleted   bool      `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FactoryEmployee is a staff record scoped to its factory.
type FactoryEmployee struct {
	ID        int64     `json:"id"`
	FactoryID int64     `json:"factory_id"`
	UserID    *int64    `json:"user_id,omitempty"`
	Name      string    `json:"name"`
	Deleted   bool      `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateFactoryRequest is the payload for creating a factory.
type CreateFactoryRequest struct {
	UserID int64  `json:"user_id" validate:"required,gt=0"`
	Name   string `json:"name" validate:"required,max=200"`
}

// UpdateFactoryRequest is the payload for renaming a factory.
type UpdateFactoryRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

// CreateEmployeeRequest is the payload for adding a factory employee.
type CreateEmployeeRequest struct {
	Name   string `json:"name" validate:"required,max=200"`
	UserID *int64 `json:"user_id,omitempty" validate:"omitempty,gt=0"`
}
