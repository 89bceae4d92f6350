package authz

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLookupUnmappedPairDenies(t *testing.T) {
	h := DefaultHierarchy()

	rule := h.Lookup(RoleUser, EntityFactoryEmployee)
	require.Equal(t, TemplateDenyAll, rule.Template)

	rule = h.Lookup(Role("NOBODY"), EntityCustomer)
	require.Equal(t, TemplateDenyAll, rule.Template)
}

func TestNilHierarchyDenies(t *testing.T) {
	var h *Hierarchy
	require.Equal(t, TemplateDenyAll, h.Lookup(RoleAdmin, EntityCustomer).Template)
}

func TestSupervisorAbsentFromTable(t *testing.T) {
	h := DefaultHierarchy()
	for _, e := range Entities() {
		require.Equal(t, TemplateDenyAll, h.Lookup(RoleSupervisor, e).Template,
			"supervisor access comes from the evaluator, never the table")
	}
}

func TestBuilderRejectsDuplicates(t *testing.T) {
	b := newHierarchyBuilder()
	b.add(RoleFitter, EntityCustomer, Rule{Template: TemplateOwnByFitter})
	b.add(RoleFitter, EntityCustomer, Rule{Template: TemplateAll})

	_, err := b.build()
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicate")
}

func TestBuilderRejectsSupervisorRows(t *testing.T) {
	b := newHierarchyBuilder()
	b.add(RoleSupervisor, EntityCustomer, Rule{Template: TemplateAll})

	_, err := b.build()
	require.Error(t, err)
}

func TestDefaultHierarchyShape(t *testing.T) {
	h := DefaultHierarchy()

	cases := []struct {
		role     Role
		entity   Entity
		template Template
		readOnly bool
	}{
		{RoleAdmin, EntityCustomer, TemplateAll, false},
		{RoleAdmin, EntityLogEntry, TemplateAll, true},
		{RoleFitter, EntityCustomer, TemplateOwnByFitter, false},
		{RoleFitter, EntityOrder, TemplateOwnByFitter, false},
		{RoleFitter, EntityFitter, TemplateOwnByFitter, false},
		{RoleFitter, EntityCredential, TemplateSelfCredential, false},
		{RoleFitter, EntityLogEntry, TemplateReadOnlyOwnLogs, false},
		{RoleFactory, EntityFactoryEmployee, TemplateOwnByFactory, false},
		{RoleCustomSaddler, EntityCustomer, TemplateOwnByUser, false},
		{RoleCustomSaddler, EntityOrder, TemplateOwnByUser, false},
		{RoleUser, EntityCustomer, TemplateOwnByUser, false},
		{RoleUser, EntityCredential, TemplateSelfCredential, false},
	}
	for _, tc := range cases {
		rule := h.Lookup(tc.role, tc.entity)
		require.Equal(t, tc.template, rule.Template, "%s/%s", tc.role, tc.entity)
		require.Equal(t, tc.readOnly, rule.ReadOnly, "%s/%s", tc.role, tc.entity)
	}
}

func TestScopeColumnSelection(t *testing.T) {
	require.Equal(t, "fitter_id", ScopeColumn(EntityCustomer, TemplateOwnByFitter))
	require.Equal(t, "id", ScopeColumn(EntityFitter, TemplateOwnByFitter))
	require.Equal(t, "factory_id", ScopeColumn(EntityOrder, TemplateOwnByFactory))
	require.Equal(t, "id", ScopeColumn(EntityFactory, TemplateOwnByFactory))
	require.Equal(t, "created_by", ScopeColumn(EntityCustomer, TemplateOwnByUser))
	require.Equal(t, "created_by", ScopeColumn(EntityOrder, TemplateOwnByUser))
	require.Equal(t, "user_id", ScopeColumn(EntityCredential, TemplateSelfCredential))
	require.Equal(t, "user_id", ScopeColumn(EntityLogEntry, TemplateReadOnlyOwnLogs))
}

func TestParseTemplateRejectsDenyAll(t *testing.T) {
	// deny_all is implicit; config may not spell it out.
	_, err := ParseTemplate("deny_all")
	require.Error(t, err)

	tmpl, err := ParseTemplate("  OWN_BY_FITTER ")
	require.NoError(t, err)
	require.Equal(t, TemplateOwnByFitter, tmpl)
}
