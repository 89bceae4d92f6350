package fitters

import "time"

// Fitter is a saddle fitter record. user_id links it to the credential
// that owns it; scope derivation resolves a FITTER principal's
// fitter id through that link.
type Fitter struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name"`
	Deleted   bool      `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateFitterRequest is the payload for creating a fitter.
type CreateFitterRequest struct {
	UserID int64  `json:"user_id" validate:"required,gt=0"`
	Name   string `json:"name" validate:"required,max=200"`
}

// UpdateFitterRequest is the payload for renaming a fitter.
type UpdateFitterRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}
