package authz

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	az "github.com/jakabjo/cmdb-inventory/pkg/azure"
	"github.com/jakabjo/cmdb-inventory/pkg/defaults"
)

// UnknownRole names assignments whose definition id is empty.
const UnknownRole = "UnknownRole"

// Entity is a directory principal.
type Entity struct {
	ID            string `json:"id"`
	DisplayName   string `json:"displayName"`
	PrincipalName string `json:"userPrincipalName"`
	Mail          string `json:"mail"`
}

// Assignment is one role assignment of a principal.
type Assignment struct {
	RoleDefinitionID string
	Scope            string
}

// ScopeClient reads role data of one authorization scope.
type ScopeClient interface {
	// Scope returns the scope path, for example /subscriptions/<id>.
	Scope() string
	// RoleDefinitions maps role definition ids to role names.
	RoleDefinitions(ctx context.Context) (map[string]string, error)
	// RoleAssignments lists the assignments of principalID.
	RoleAssignments(ctx context.Context, principalID string) ([]Assignment, error)
}

// MembershipSource lists the groups and directory roles of an entity.
// Implementations use a dedicated session per call.
type MembershipSource interface {
	MemberOf(ctx context.Context, id string) (groups, roles []string, err error)
}

// Scope is a ScopeClient with its role name cache.
type Scope struct {
	Client ScopeClient
	Roles  map[string]string
}

// AccessRow is the access summary of one entity.
type AccessRow struct {
	DisplayName    string
	UPN            string
	Email          string
	SecurityGroups []string
	DirectoryRoles []string
	RBACRoles      []string
}

// BuildRoleCaches reads the role definitions of every scope once. A scope
// whose definitions cannot be read is logged and left out.
func BuildRoleCaches(ctx context.Context, clients []ScopeClient) []Scope {
	scopes := make([]Scope, 0, len(clients))
	for _, c := range clients {
		roles, err := c.RoleDefinitions(ctx)
		if err != nil {
			slog.Warn("skipping scope, role definitions unavailable",
				slog.String("scope", c.Scope()),
				slog.String("error", err.Error()))
			continue
		}
		slog.Debug("role definitions cached", slog.String("scope", c.Scope()), slog.Int("roles", len(roles)))
		scopes = append(scopes, Scope{Client: c, Roles: roles})
	}
	return scopes
}

// RoleName resolves a role definition id through cache. Unknown ids yield
// their trailing path segment and empty ids UnknownRole.
func RoleName(cache map[string]string, definitionID string) string {
	if name, ok := cache[definitionID]; ok {
		return name
	}
	if definitionID == "" {
		return UnknownRole
	}
	return az.LastSegment(definitionID)
}

// FormatRole renders an assignment as "<role> @ <scope>".
func FormatRole(role, scope string) string {
	return fmt.Sprintf("%s @ %s", role, scope)
}

// Aggregate builds the access row of e. Membership and per-scope failures
// are logged and leave the affected lists empty.
func Aggregate(ctx context.Context, e Entity, members MembershipSource, scopes []Scope) AccessRow {
	row := AccessRow{
		DisplayName: e.DisplayName,
		UPN:         e.PrincipalName,
		Email:       e.Mail,
	}

	if members != nil {
		groups, roles, err := members.MemberOf(ctx, e.ID)
		if err != nil {
			slog.Warn("memberOf failed",
				slog.String("upn", e.PrincipalName),
				slog.String("error", err.Error()))
		} else {
			row.SecurityGroups = sortedUnique(groups)
			row.DirectoryRoles = sortedUnique(roles)
		}
	}

	var rbac []string
	for _, s := range scopes {
		assignments, err := s.Client.RoleAssignments(ctx, e.ID)
		if err != nil {
			slog.Warn("role assignment read failed",
				slog.String("upn", e.PrincipalName),
				slog.String("scope", s.Client.Scope()),
				slog.String("error", err.Error()))
			continue
		}
		for _, a := range assignments {
			rbac = append(rbac, FormatRole(RoleName(s.Roles, a.RoleDefinitionID), a.Scope))
		}
	}
	row.RBACRoles = sortedUnique(rbac)
	return row
}

// Run aggregates every entity on a pool of at most workers goroutines.
// Rows are returned in completion order. Progress is logged every
// defaults.ProgressEvery entities.
func Run(ctx context.Context, entities []Entity, workers int, members MembershipSource, scopes []Scope) []AccessRow {
	if workers < 1 {
		workers = 1
	}
	start := time.Now()

	var (
		mu   sync.Mutex
		rows = make([]AccessRow, 0, len(entities))
		g    errgroup.Group
	)
	g.SetLimit(workers)

	for _, e := range entities {
		g.Go(func() error {
			row := aggregateSafe(ctx, e, members, scopes)
			entitiesTotal.Inc()

			mu.Lock()
			rows = append(rows, row)
			done := len(rows)
			mu.Unlock()

			if done%defaults.ProgressEvery == 0 {
				slog.Info("processed entities", slog.Int("done", done), slog.Int("total", len(entities)))
			}
			return nil
		})
	}
	_ = g.Wait()

	runDuration.Observe(time.Since(start).Seconds())
	return rows
}

func aggregateSafe(ctx context.Context, e Entity, members MembershipSource, scopes []Scope) (row AccessRow) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("entity processing panicked",
				slog.String("upn", e.PrincipalName),
				slog.String("panic", fmt.Sprint(r)))
			row = AccessRow{DisplayName: e.DisplayName, UPN: e.PrincipalName, Email: e.Mail}
		}
	}()
	return Aggregate(ctx, e, members, scopes)
}

func sortedUnique(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return slices.Compact(out)
}
