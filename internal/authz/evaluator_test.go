package authz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func ptr(v int64) *int64 { return &v }

func fitterPrincipal(userID, fitterID int64) Principal {
	return Principal{UserID: userID, Role: RoleFitter, FitterID: ptr(fitterID)}
}

func factoryPrincipal(userID, factoryID int64) Principal {
	return Principal{UserID: userID, Role: RoleFactory, FactoryID: ptr(factoryID)}
}

func TestFitterRowOwnership(t *testing.T) {
	a := NewAuthorizer(DefaultHierarchy())
	p := fitterPrincipal(5, 5)

	own := a.Evaluate(Request{Principal: p, Entity: EntityCustomer, Operation: OpRead, Row: &Row{FitterID: ptr(5)}})
	require.True(t, own.Allowed)

	foreign := a.Evaluate(Request{Principal: p, Entity: EntityCustomer, Operation: OpRead, Row: &Row{FitterID: ptr(9)}})
	require.False(t, foreign.Allowed)
}

func TestSystemBypassWinsOverRole(t *testing.T) {
	a := NewAuthorizer(DefaultHierarchy())
	// Role content is irrelevant when the reserved id is present.
	p := Principal{UserID: SystemUserID, Role: RoleFitter}

	for _, e := range Entities() {
		for _, op := range []Operation{OpRead, OpWrite, OpDelete} {
			dec := a.Evaluate(Request{Principal: p, Entity: e, Operation: op, Row: &Row{}})
			require.True(t, dec.Allowed, "entity %s op %s", e, op)
		}
	}
}

func TestSupervisorUnconditionalAllow(t *testing.T) {
	a := NewAuthorizer(DefaultHierarchy())
	p := Principal{UserID: 3, Role: RoleSupervisor}

	for _, e := range Entities() {
		for _, op := range []Operation{OpRead, OpWrite, OpDelete} {
			dec := a.Evaluate(Request{Principal: p, Entity: e, Operation: op, Row: &Row{}})
			require.True(t, dec.Allowed, "entity %s op %s", e, op)
		}
	}
}

func TestAdminReadOnlyOnLogs(t *testing.T) {
	a := NewAuthorizer(DefaultHierarchy())
	p := Principal{UserID: 7, Role: RoleAdmin}

	read := a.Evaluate(Request{Principal: p, Entity: EntityLogEntry, Operation: OpRead})
	require.True(t, read.Allowed)
	require.Nil(t, read.Filter, "admin sees the full stream")

	write := a.Evaluate(Request{Principal: p, Entity: EntityLogEntry, Operation: OpWrite})
	require.False(t, write.Allowed)

	del := a.Evaluate(Request{Principal: p, Entity: EntityLogEntry, Operation: OpDelete})
	require.False(t, del.Allowed)
}

func TestAdminFullAccessOnBusinessEntities(t *testing.T) {
	a := NewAuthorizer(DefaultHierarchy())
	p := Principal{UserID: 7, Role: RoleAdmin}

	for _, e := range []Entity{EntityCredential, EntityCustomer, EntityOrder, EntityFitter, EntityFactory, EntityFactoryEmployee} {
		dec := a.Evaluate(Request{Principal: p, Entity: e, Operation: OpDelete, Row: &Row{}})
		require.True(t, dec.Allowed, "entity %s", e)
	}
}

func TestMissingScopeRecordDeniesEverything(t *testing.T) {
	a := NewAuthorizer(DefaultHierarchy())
	// FACTORY whose derivation found no factory row.
	p := Principal{UserID: 8, Role: RoleFactory}

	point := a.Evaluate(Request{Principal: p, Entity: EntityFactory, Operation: OpRead, Row: &Row{FactoryID: ptr(3)}})
	require.False(t, point.Allowed)

	bulk := a.Evaluate(Request{Principal: p, Entity: EntityOrder, Operation: OpRead})
	require.False(t, bulk.Allowed, "no scope means an empty view, not an unfiltered one")
}

func TestUserOwnsCreatedRows(t *testing.T) {
	a := NewAuthorizer(DefaultHierarchy())
	p := Principal{UserID: 9, Role: RoleUser}

	own := a.Evaluate(Request{Principal: p, Entity: EntityCustomer, Operation: OpRead, Row: &Row{UserID: ptr(9)}})
	require.True(t, own.Allowed)

	foreign := a.Evaluate(Request{Principal: p, Entity: EntityCustomer, Operation: OpRead, Row: &Row{UserID: ptr(10)}})
	require.False(t, foreign.Allowed)
}

func TestUnknownRoleDenies(t *testing.T) {
	a := NewAuthorizer(DefaultHierarchy())
	p := Principal{UserID: 11, Role: Role("AUDITOR")}

	dec := a.Evaluate(Request{Principal: p, Entity: EntityCustomer, Operation: OpRead, Row: &Row{UserID: ptr(11)}})
	require.False(t, dec.Allowed)
}

func TestUnmappedEntityDenies(t *testing.T) {
	a := NewAuthorizer(DefaultHierarchy())
	// USER has no rule for fitters at all.
	p := Principal{UserID: 9, Role: RoleUser}

	dec := a.Evaluate(Request{Principal: p, Entity: EntityFitter, Operation: OpRead, Row: &Row{FitterID: ptr(9)}})
	require.False(t, dec.Allowed)
}

func TestNullRowScopeNeverMatches(t *testing.T) {
	a := NewAuthorizer(DefaultHierarchy())
	p := fitterPrincipal(5, 5)

	dec := a.Evaluate(Request{Principal: p, Entity: EntityCustomer, Operation: OpRead, Row: &Row{}})
	require.False(t, dec.Allowed, "NULL scope column must not match any principal")
}

func TestBulkDecisionCarriesFilter(t *testing.T) {
	a := NewAuthorizer(DefaultHierarchy())

	dec := a.Evaluate(Request{Principal: fitterPrincipal(5, 42), Entity: EntityCustomer, Operation: OpRead})
	require.True(t, dec.Allowed)
	require.NotNil(t, dec.Filter)
	require.Equal(t, "fitter_id", dec.Filter.Column)
	require.Equal(t, int64(42), dec.Filter.Value)

	dec = a.Evaluate(Request{Principal: factoryPrincipal(8, 3), Entity: EntityOrder, Operation: OpRead})
	require.True(t, dec.Allowed)
	require.Equal(t, "factory_id", dec.Filter.Column)
	require.Equal(t, int64(3), dec.Filter.Value)

	// Filter and point check agree: a row passing the filter passes the
	// point check and vice versa.
	dec = a.Evaluate(Request{Principal: Principal{UserID: 9, Role: RoleUser}, Entity: EntityOrder, Operation: OpRead})
	require.True(t, dec.Allowed)
	require.Equal(t, "created_by", dec.Filter.Column)
	require.Equal(t, int64(9), dec.Filter.Value)
}

func TestOwnEntityFiltersOnPrimaryKey(t *testing.T) {
	a := NewAuthorizer(DefaultHierarchy())

	dec := a.Evaluate(Request{Principal: fitterPrincipal(5, 42), Entity: EntityFitter, Operation: OpRead})
	require.True(t, dec.Allowed)
	require.Equal(t, "id", dec.Filter.Column)
	require.Equal(t, int64(42), dec.Filter.Value)
}

func TestSelfCredentialOnly(t *testing.T) {
	a := NewAuthorizer(DefaultHierarchy())
	p := fitterPrincipal(5, 42)

	self := a.Evaluate(Request{Principal: p, Entity: EntityCredential, Operation: OpWrite, Row: &Row{UserID: ptr(5)}})
	require.True(t, self.Allowed)

	other := a.Evaluate(Request{Principal: p, Entity: EntityCredential, Operation: OpRead, Row: &Row{UserID: ptr(6)}})
	require.False(t, other.Allowed)
}

func TestReadOnlyOwnLogs(t *testing.T) {
	a := NewAuthorizer(DefaultHierarchy())
	p := Principal{UserID: 9, Role: RoleUser}

	read := a.Evaluate(Request{Principal: p, Entity: EntityLogEntry, Operation: OpRead, Row: &Row{UserID: ptr(9)}})
	require.True(t, read.Allowed)

	foreign := a.Evaluate(Request{Principal: p, Entity: EntityLogEntry, Operation: OpRead, Row: &Row{UserID: ptr(10)}})
	require.False(t, foreign.Allowed)

	write := a.Evaluate(Request{Principal: p, Entity: EntityLogEntry, Operation: OpWrite, Row: &Row{UserID: ptr(9)}})
	require.False(t, write.Allowed, "own log entries are still immutable")
}

func TestAuthorizeDeniesWithoutPrincipal(t *testing.T) {
	a := NewAuthorizer(DefaultHierarchy())

	dec := a.Authorize(context.Background(), EntityCustomer, OpRead, nil)
	require.False(t, dec.Allowed, "absent principal must fail closed")
}

func TestAuthorizeReadsPrincipalFromContext(t *testing.T) {
	a := NewAuthorizer(DefaultHierarchy())
	ctx := WithPrincipal(context.Background(), fitterPrincipal(5, 42))

	dec := a.Authorize(ctx, EntityCustomer, OpRead, &Row{FitterID: ptr(42)})
	require.True(t, dec.Allowed)

	sysCtx := WithSystemPrincipal(context.Background())
	dec = a.Authorize(sysCtx, EntityLogEntry, OpDelete, nil)
	require.True(t, dec.Allowed)
}

func TestEvaluationIsDeterministic(t *testing.T) {
	a := NewAuthorizer(DefaultHierarchy())
	req := Request{Principal: fitterPrincipal(5, 5), Entity: EntityOrder, Operation: OpRead, Row: &Row{FitterID: ptr(5)}}

	first := a.Evaluate(req)
	for i := 0; i < 100; i++ {
		require.Equal(t, first, a.Evaluate(req))
	}
}

type captureRecorder struct {
	entities []string
	outcomes []bool
}

func (c *captureRecorder) RecordDecision(entity string, allowed bool) {
	c.entities = append(c.entities, entity)
	c.outcomes = append(c.outcomes, allowed)
}

func TestDecisionRecorderSeesEveryOutcome(t *testing.T) {
	rec := &captureRecorder{}
	a := NewAuthorizer(DefaultHierarchy(), WithDecisionRecorder(rec))

	a.Evaluate(Request{Principal: fitterPrincipal(5, 5), Entity: EntityCustomer, Operation: OpRead, Row: &Row{FitterID: ptr(5)}})
	a.Evaluate(Request{Principal: fitterPrincipal(5, 5), Entity: EntityCustomer, Operation: OpRead, Row: &Row{FitterID: ptr(9)}})
	a.Authorize(context.Background(), EntityOrder, OpRead, nil)

	require.Equal(t, []string{"customer", "customer", "order"}, rec.entities)
	require.Equal(t, []bool{true, false, false}, rec.outcomes)
}
