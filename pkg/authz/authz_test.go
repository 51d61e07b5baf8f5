package authz

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScope struct {
	scope       string
	defs        map[string]string
	defsErr     error
	assignments map[string][]Assignment
	assignErr   error

	mu      sync.Mutex
	defRead int
}

func (f *fakeScope) Scope() string { return f.scope }

func (f *fakeScope) RoleDefinitions(context.Context) (map[string]string, error) {
	f.mu.Lock()
	f.defRead++
	f.mu.Unlock()
	return f.defs, f.defsErr
}

func (f *fakeScope) RoleAssignments(_ context.Context, id string) ([]Assignment, error) {
	if f.assignErr != nil {
		return nil, f.assignErr
	}
	return f.assignments[id], nil
}

type fakeMembers struct {
	groups map[string][]string
	roles  map[string][]string
	err    error
}

func (f *fakeMembers) MemberOf(_ context.Context, id string) ([]string, []string, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.groups[id], f.roles[id], nil
}

const readerID = "/subscriptions/s1/providers/Microsoft.Authorization/roleDefinitions/acdd72a7"

func TestRoleName(t *testing.T) {
	cache := map[string]string{readerID: "Reader"}
	assert.Equal(t, "Reader", RoleName(cache, readerID))
	assert.Equal(t, "b24988ac", RoleName(cache, "/providers/Microsoft.Authorization/roleDefinitions/b24988ac"))
	assert.Equal(t, UnknownRole, RoleName(cache, ""))
}

func TestBuildRoleCachesDropsFailedScopes(t *testing.T) {
	good := &fakeScope{scope: "/subscriptions/s1", defs: map[string]string{readerID: "Reader"}}
	bad := &fakeScope{scope: "/subscriptions/s2", defsErr: errors.New("forbidden")}

	scopes := BuildRoleCaches(context.Background(), []ScopeClient{bad, good})
	require.Len(t, scopes, 1)
	assert.Equal(t, "/subscriptions/s1", scopes[0].Client.Scope())
	assert.Equal(t, "Reader", scopes[0].Roles[readerID])
}

func TestAggregate(t *testing.T) {
	s1 := &fakeScope{
		scope: "/subscriptions/s1",
		assignments: map[string][]Assignment{"u1": {
			{RoleDefinitionID: readerID, Scope: "/subscriptions/s1"},
			{RoleDefinitionID: readerID, Scope: "/subscriptions/s1"},
			{RoleDefinitionID: "/x/roleDefinitions/custom", Scope: "/subscriptions/s1/resourceGroups/rg"},
		}},
	}
	s2 := &fakeScope{scope: "/subscriptions/s2", assignErr: errors.New("throttled")}
	s3 := &fakeScope{
		scope:       "/subscriptions/s3",
		assignments: map[string][]Assignment{"u1": {{Scope: "/subscriptions/s3"}}},
	}
	scopes := []Scope{
		{Client: s1, Roles: map[string]string{readerID: "Reader"}},
		{Client: s2},
		{Client: s3},
	}
	members := &fakeMembers{
		groups: map[string][]string{"u1": {"Ops", "Admins", "Ops"}},
		roles:  map[string][]string{"u1": {"Global Reader"}},
	}

	row := Aggregate(context.Background(), Entity{ID: "u1", DisplayName: "Ann", PrincipalName: "ann@corp", Mail: "ann@corp.com"}, members, scopes)
	assert.Equal(t, "Ann", row.DisplayName)
	assert.Equal(t, "ann@corp", row.UPN)
	assert.Equal(t, "ann@corp.com", row.Email)
	assert.Equal(t, []string{"Admins", "Ops"}, row.SecurityGroups)
	assert.Equal(t, []string{"Global Reader"}, row.DirectoryRoles)
	assert.Equal(t, []string{
		"Reader @ /subscriptions/s1",
		"UnknownRole @ /subscriptions/s3",
		"custom @ /subscriptions/s1/resourceGroups/rg",
	}, row.RBACRoles)
}

func TestAggregateMembershipFailure(t *testing.T) {
	row := Aggregate(context.Background(), Entity{ID: "u1", PrincipalName: "p"}, &fakeMembers{err: errors.New("403")}, nil)
	assert.Empty(t, row.SecurityGroups)
	assert.Empty(t, row.DirectoryRoles)
	assert.Empty(t, row.RBACRoles)
	assert.Equal(t, "p", row.UPN)
}

func TestRun(t *testing.T) {
	entities := make([]Entity, 250)
	for i := range entities {
		entities[i] = Entity{ID: "u", PrincipalName: "user"}
	}
	rows := Run(context.Background(), entities, 4, &fakeMembers{
		groups: map[string][]string{"u": {"G"}},
	}, nil)
	require.Len(t, rows, 250)
	for _, r := range rows {
		assert.Equal(t, []string{"G"}, r.SecurityGroups)
	}
}

type panicMembers struct{}

func (panicMembers) MemberOf(context.Context, string) ([]string, []string, error) {
	panic("bad")
}

func TestRunRecoversPanic(t *testing.T) {
	rows := Run(context.Background(), []Entity{{ID: "u", DisplayName: "D", PrincipalName: "P"}}, 0, panicMembers{}, nil)
	require.Len(t, rows, 1)
	assert.Equal(t, AccessRow{DisplayName: "D", UPN: "P"}, rows[0])
}
