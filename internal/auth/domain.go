package auth

import "time"

// User is an account as the login path sees it: one row of the
// credentials table including the password hash. Everything the
// authorization core needs from the same row travels separately as an
// authz.Credential.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	Role         string
	Blocked      bool
	Deleted      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
