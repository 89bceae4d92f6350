package authz

import (
	"fmt"
	"strings"
)

// Entity names a protected table.
type Entity string

// Protected entities.
const (
	EntityCredential      Entity = "credential"
	EntityCustomer        Entity = "customer"
	EntityOrder           Entity = "order"
	EntityFitter          Entity = "fitter"
	EntityFactory         Entity = "factory"
	EntityFactoryEmployee Entity = "factory_employee"
	EntityLogEntry        Entity = "log_entry"
)

// Entities lists every protected entity.
func Entities() []Entity {
	return []Entity{
		EntityCredential,
		EntityCustomer,
		EntityOrder,
		EntityFitter,
		EntityFactory,
		EntityFactoryEmployee,
		EntityLogEntry,
	}
}

// ParseEntity validates an entity name from configuration.
func ParseEntity(s string) (Entity, error) {
	e := Entity(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Entities() {
		if e == known {
			return e, nil
		}
	}
	return "", fmt.Errorf("authz: unknown entity %q", s)
}

// Operation classifies a data access.
type Operation string

// Operations distinguished by the policy.
const (
	OpRead   Operation = "READ"
	OpWrite  Operation = "WRITE"
	OpDelete Operation = "DELETE"
)

// ScopeColumn returns the column an ownership template compares on the
// given entity. Scope tables are owned through their primary key; rows
// created by ordinary users are owned through created_by; everything
// else hangs off a user or parent id.
func ScopeColumn(entity Entity, tmpl Template) string {
	switch tmpl {
	case TemplateOwnByFitter:
		if entity == EntityFitter {
			return "id"
		}
		return "fitter_id"
	case TemplateOwnByFactory:
		if entity == EntityFactory {
			return "id"
		}
		return "factory_id"
	case TemplateOwnByUser:
		switch entity {
		case EntityCustomer, EntityOrder:
			return "created_by"
		default:
			return "user_id"
		}
	case TemplateSelfCredential, TemplateReadOnlyOwnLogs:
		return "user_id"
	}
	return ""
}
