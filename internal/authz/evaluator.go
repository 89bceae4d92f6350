package authz

import (
	"context"
	"log/slog"
)

// Row carries the scope-column values of one candidate row. The
// evaluator reads the field matching the applicable template; a nil
// field means the column is NULL on that row, which never matches an
// ownership check.
type Row struct {
	FitterID  *int64
	FactoryID *int64
	UserID    *int64
}

// Request is one authorization question.
type Request struct {
	Principal Principal
	Entity    Entity
	Operation Operation
	// Row is the candidate row for a point check. Nil means the caller
	// is about to run a bulk query and wants a filter instead.
	Row *Row
}

// Filter is a row predicate the caller must AND into its query.
type Filter struct {
	Column string
	Value  int64
}

// Decision is the outcome of an evaluation. Deny is a value, not an
// error; callers translate it to their surface (404/403) themselves.
type Decision struct {
	Allowed bool
	// Filter is set on bulk decisions for ownership templates. A nil
	// Filter on an allowed bulk decision means unrestricted access.
	Filter *Filter
}

func deny() Decision  { return Decision{} }
func allow() Decision { return Decision{Allowed: true} }
func allowWith(f Filter) Decision {
	return Decision{Allowed: true, Filter: &f}
}

// DecisionRecorder receives evaluation outcomes for instrumentation.
type DecisionRecorder interface {
	RecordDecision(entity string, allowed bool)
}

// Authorizer evaluates access requests against a fixed role hierarchy.
// It holds no mutable state; the same request always yields the same
// decision within a unit of work.
type Authorizer struct {
	hierarchy *Hierarchy
	logger    *slog.Logger
	recorder  DecisionRecorder
}

// AuthorizerOption customises an Authorizer.
type AuthorizerOption func(*Authorizer)

// WithLogger attaches a logger for denied decisions.
func WithLogger(logger *slog.Logger) AuthorizerOption {
	return func(a *Authorizer) { a.logger = logger }
}

// WithDecisionRecorder attaches a metrics sink.
func WithDecisionRecorder(rec DecisionRecorder) AuthorizerOption {
	return func(a *Authorizer) { a.recorder = rec }
}

// NewAuthorizer constructs an Authorizer over the given hierarchy.
func NewAuthorizer(hierarchy *Hierarchy, opts ...AuthorizerOption) *Authorizer {
	a := &Authorizer{hierarchy: hierarchy}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Evaluate answers one authorization question. First match wins:
// system bypass, SUPERVISOR, then the hierarchy rule for (role,
// entity). Every unresolved path denies.
func (a *Authorizer) Evaluate(req Request) Decision {
	dec := a.evaluate(req)
	if a.recorder != nil {
		a.recorder.RecordDecision(string(req.Entity), dec.Allowed)
	}
	if !dec.Allowed && a.logger != nil {
		a.logger.Debug("authz deny",
			slog.Int64("user_id", req.Principal.UserID),
			slog.String("role", string(req.Principal.Role)),
			slog.String("entity", string(req.Entity)),
			slog.String("operation", string(req.Operation)),
		)
	}
	return dec
}

func (a *Authorizer) evaluate(req Request) Decision {
	p := req.Principal

	// The bypass is this single comparison; no other escape hatch
	// exists. Role content is irrelevant for the system principal.
	if p.IsSystem() {
		return allow()
	}
	if p.Role == RoleSupervisor {
		return allow()
	}

	rule := a.hierarchy.Lookup(p.Role, req.Entity)
	if rule.Template == TemplateDenyAll {
		return deny()
	}

	// Operation narrowing beats the predicate, so a read-only grant on
	// the full set still denies writes.
	if req.Operation != OpRead {
		if rule.ReadOnly || rule.Template == TemplateReadOnlyOwnLogs {
			return deny()
		}
	}

	if rule.Template == TemplateAll {
		return allow()
	}

	expected, ok := expectedScope(p, rule.Template)
	if !ok {
		// Derivation found no scope record; the principal can see
		// nothing, including rows with a NULL scope column.
		return deny()
	}

	if req.Row == nil {
		return allowWith(Filter{Column: ScopeColumn(req.Entity, rule.Template), Value: expected})
	}
	actual := rowScope(req.Row, rule.Template)
	if actual == nil || *actual != expected {
		return deny()
	}
	return allow()
}

// Authorize is the contextual form of Evaluate: the principal comes
// from ctx. An absent principal denies outright rather than falling
// back to any default view.
func (a *Authorizer) Authorize(ctx context.Context, entity Entity, op Operation, row *Row) Decision {
	p, ok := FromContext(ctx)
	if !ok {
		if a.recorder != nil {
			a.recorder.RecordDecision(string(entity), false)
		}
		return deny()
	}
	return a.Evaluate(Request{Principal: p, Entity: entity, Operation: op, Row: row})
}

func expectedScope(p Principal, tmpl Template) (int64, bool) {
	switch tmpl {
	case TemplateOwnByFitter:
		if p.FitterID == nil {
			return 0, false
		}
		return *p.FitterID, true
	case TemplateOwnByFactory:
		if p.FactoryID == nil {
			return 0, false
		}
		return *p.FactoryID, true
	case TemplateOwnByUser, TemplateSelfCredential, TemplateReadOnlyOwnLogs:
		return p.UserID, true
	}
	return 0, false
}

func rowScope(row *Row, tmpl Template) *int64 {
	switch tmpl {
	case TemplateOwnByFitter:
		return row.FitterID
	case TemplateOwnByFactory:
		return row.FactoryID
	case TemplateOwnByUser, TemplateSelfCredential, TemplateReadOnlyOwnLogs:
		return row.UserID
	}
	return nil
}
