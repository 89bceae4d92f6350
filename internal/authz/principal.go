package authz

import (
	"fmt"
	"strings"
)

// Role is the single assigned role of an authenticated account.
type Role string

// Roles known to the order management system.
const (
	RoleFitter        Role = "FITTER"
	RoleAdmin         Role = "ADMIN"
	RoleFactory       Role = "FACTORY"
	RoleCustomSaddler Role = "CUSTOMSADDLER"
	RoleSupervisor    Role = "SUPERVISOR"
	RoleUser          Role = "USER"
)

// ParseRole normalises and validates a stored role name.
func ParseRole(s string) (Role, error) {
	role := Role(strings.ToUpper(strings.TrimSpace(s)))
	switch role {
	case RoleFitter, RoleAdmin, RoleFactory, RoleCustomSaddler, RoleSupervisor, RoleUser:
		return role, nil
	}
	return "", fmt.Errorf("authz: unknown role %q", s)
}

// SystemUserID is the reserved user id for process-internal callers.
// A principal carrying it bypasses all row filtering.
const SystemUserID int64 = 0

// Principal is the identity acting in one unit of work. It is built once
// at the authentication boundary, threaded through context, and never
// persisted or cached across requests.
type Principal struct {
	UserID int64
	Role   Role

	// FactoryID is derived from the factories table for FACTORY accounts.
	// Nil means derivation found nothing; scoped checks then deny.
	FactoryID *int64
	// FitterID is derived from the fitters table for FITTER accounts.
	FitterID *int64
}

// SystemPrincipal returns the reserved all-access principal used by
// migrations, seeds and background jobs. It must never be produced from
// externally supplied identity claims.
func SystemPrincipal() Principal {
	return Principal{UserID: SystemUserID}
}

// IsSystem reports whether this is the reserved system principal. This
// comparison is the only bypass the evaluator honours.
func (p Principal) IsSystem() bool {
	return p.UserID == SystemUserID
}

func (p Principal) String() string {
	if p.IsSystem() {
		return "principal(system)"
	}
	return fmt.Sprintf("principal(user=%d role=%s)", p.UserID, p.Role)
}
