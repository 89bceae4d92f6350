package authz

import (
	"fmt"
	"strings"
)

// Template is a named row-filtering rule parameterised by a scope value
// taken from the acting principal.
type Template string

// Predicate templates. TemplateDenyAll is the implicit value for any
// (role, entity) pair absent from the hierarchy.
const (
	TemplateDenyAll         Template = "deny_all"
	TemplateAll             Template = "all"
	TemplateOwnByFitter     Template = "own_by_fitter"
	TemplateOwnByFactory    Template = "own_by_factory"
	TemplateOwnByUser       Template = "own_by_user"
	TemplateSelfCredential  Template = "self_credential_only"
	TemplateReadOnlyOwnLogs Template = "read_only_own_logs"
)

// ParseTemplate validates a template name from configuration.
func ParseTemplate(s string) (Template, error) {
	t := Template(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case TemplateAll, TemplateOwnByFitter, TemplateOwnByFactory,
		TemplateOwnByUser, TemplateSelfCredential, TemplateReadOnlyOwnLogs:
		return t, nil
	}
	return "", fmt.Errorf("authz: unknown predicate template %q", s)
}

// Rule is one hierarchy entry: the predicate template for a (role,
// entity) pair, optionally narrowed to read-only access.
type Rule struct {
	Template Template
	ReadOnly bool
}

type ruleKey struct {
	role   Role
	entity Entity
}

// Hierarchy is the static role hierarchy table. It is assembled once at
// process start and never mutated afterwards, so concurrent reads need
// no synchronisation. SUPERVISOR is not listed; the evaluator grants it
// everything before consulting the table.
type Hierarchy struct {
	rules map[ruleKey]Rule
}

// Lookup returns the rule for (role, entity). Unmapped pairs fall back
// to deny.
func (h *Hierarchy) Lookup(role Role, entity Entity) Rule {
	if h == nil {
		return Rule{Template: TemplateDenyAll}
	}
	if rule, ok := h.rules[ruleKey{role: role, entity: entity}]; ok {
		return rule
	}
	return Rule{Template: TemplateDenyAll}
}

// DefaultHierarchy returns the builtin role hierarchy shipped with the
// application. It is the versioned policy artifact; deployments can
// replace it wholesale with LoadPolicyFile.
func DefaultHierarchy() *Hierarchy {
	b := newHierarchyBuilder()

	// ADMIN sees every business entity, and the full log stream but
	// strictly read-only.
	for _, e := range []Entity{EntityCredential, EntityCustomer, EntityOrder, EntityFitter, EntityFactory, EntityFactoryEmployee} {
		b.add(RoleAdmin, e, Rule{Template: TemplateAll})
	}
	b.add(RoleAdmin, EntityLogEntry, Rule{Template: TemplateAll, ReadOnly: true})

	// FITTER works the customers and orders assigned to their fitter
	// record, and their own fitter row.
	b.add(RoleFitter, EntityCustomer, Rule{Template: TemplateOwnByFitter})
	b.add(RoleFitter, EntityOrder, Rule{Template: TemplateOwnByFitter})
	b.add(RoleFitter, EntityFitter, Rule{Template: TemplateOwnByFitter})
	b.add(RoleFitter, EntityCredential, Rule{Template: TemplateSelfCredential})
	b.add(RoleFitter, EntityLogEntry, Rule{Template: TemplateReadOnlyOwnLogs})

	// FACTORY is scoped to its factory record, its employees, and the
	// customers and orders routed to that factory.
	b.add(RoleFactory, EntityCustomer, Rule{Template: TemplateOwnByFactory})
	b.add(RoleFactory, EntityOrder, Rule{Template: TemplateOwnByFactory})
	b.add(RoleFactory, EntityFactory, Rule{Template: TemplateOwnByFactory})
	b.add(RoleFactory, EntityFactoryEmployee, Rule{Template: TemplateOwnByFactory})
	b.add(RoleFactory, EntityCredential, Rule{Template: TemplateSelfCredential})
	b.add(RoleFactory, EntityLogEntry, Rule{Template: TemplateReadOnlyOwnLogs})

	// CUSTOMSADDLER and USER own what they created.
	for _, role := range []Role{RoleCustomSaddler, RoleUser} {
		b.add(role, EntityCustomer, Rule{Template: TemplateOwnByUser})
		b.add(role, EntityOrder, Rule{Template: TemplateOwnByUser})
		b.add(role, EntityCredential, Rule{Template: TemplateSelfCredential})
		b.add(role, EntityLogEntry, Rule{Template: TemplateReadOnlyOwnLogs})
	}

	h, err := b.build()
	if err != nil {
		// The builtin table is covered by tests; a duplicate here is a
		// programming error.
		panic(err)
	}
	return h
}

type hierarchyBuilder struct {
	rules map[ruleKey]Rule
	errs  []error
}

func newHierarchyBuilder() *hierarchyBuilder {
	return &hierarchyBuilder{rules: make(map[ruleKey]Rule)}
}

func (b *hierarchyBuilder) add(role Role, entity Entity, rule Rule) {
	key := ruleKey{role: role, entity: entity}
	if _, exists := b.rules[key]; exists {
		b.errs = append(b.errs, fmt.Errorf("authz: duplicate hierarchy entry for (%s, %s)", role, entity))
		return
	}
	if role == RoleSupervisor {
		b.errs = append(b.errs, fmt.Errorf("authz: SUPERVISOR must not appear in the hierarchy table"))
		return
	}
	b.rules[key] = rule
}

func (b *hierarchyBuilder) build() (*Hierarchy, error) {
	if len(b.errs) > 0 {
		return nil, b.errs[0]
	}
	return &Hierarchy{rules: b.rules}, nil
}
