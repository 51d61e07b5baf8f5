package authz

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/oauth2"

	az "github.com/jakabjo/cmdb-inventory/pkg/azure"
	"github.com/jakabjo/cmdb-inventory/pkg/graph"
)

const (
	odataGroup         = "microsoft.graph.group"
	odataDirectoryRole = "microsoft.graph.directoryrole"
)

// UsersURL returns the user listing URL.
func UsersURL(graphURL string) string {
	return az.BaseURL(graphURL, az.DefaultGraphURL) + "/users?$select=id,displayName,userPrincipalName,mail"
}

// MemberOfURL returns the membership listing URL of a user.
func MemberOfURL(graphURL, id string) string {
	return fmt.Sprintf("%s/users/%s/memberOf?$select=displayName", az.BaseURL(graphURL, az.DefaultGraphURL), url.PathEscape(id))
}

// ListEntities returns every user in the directory.
func ListEntities(ctx context.Context, c *graph.Client, graphURL string) ([]Entity, error) {
	return graph.Collect[Entity](ctx, c, UsersURL(graphURL))
}

// directoryObject is a memberOf entry.
type directoryObject struct {
	Type        string `json:"@odata.type"`
	DisplayName string `json:"displayName"`
}

// GraphMembership reads memberOf through Microsoft Graph. Concurrent calls
// share one client, built from Options on first use, and with it one rate
// limiter.
type GraphMembership struct {
	TokenSource oauth2.TokenSource
	GraphURL    string
	Options     []graph.Option

	once   sync.Once
	client *graph.Client
}

// MemberOf implements MembershipSource.
func (m *GraphMembership) MemberOf(ctx context.Context, id string) ([]string, []string, error) {
	m.once.Do(func() {
		m.client = graph.NewClient(m.TokenSource, m.Options...)
	})
	objs, err := graph.Collect[directoryObject](ctx, m.client, MemberOfURL(m.GraphURL, id))
	if err != nil {
		return nil, nil, err
	}
	groups, roles := splitMemberships(objs)
	return groups, roles, nil
}

func splitMemberships(objs []directoryObject) (groups, roles []string) {
	for _, o := range objs {
		if o.DisplayName == "" {
			continue
		}
		t := strings.ToLower(o.Type)
		switch {
		case strings.Contains(t, odataGroup):
			groups = append(groups, o.DisplayName)
		case strings.Contains(t, odataDirectoryRole):
			roles = append(roles, o.DisplayName)
		}
	}
	return groups, roles
}

type roleDefinition struct {
	ID         string `json:"id"`
	Properties struct {
		RoleName string `json:"roleName"`
	} `json:"properties"`
}

type roleAssignment struct {
	Properties struct {
		RoleDefinitionID string `json:"roleDefinitionId"`
		Scope            string `json:"scope"`
	} `json:"properties"`
}

// ARMScope reads role data of one subscription from Azure Resource Manager.
type ARMScope struct {
	Client         *graph.Client
	ManagementURL  string
	SubscriptionID string
}

// Scope implements ScopeClient.
func (s *ARMScope) Scope() string {
	return az.ScopeForSubscription(s.SubscriptionID)
}

func (s *ARMScope) providerURL(resource string) string {
	return fmt.Sprintf("%s%s/providers/Microsoft.Authorization/%s?api-version=%s",
		az.BaseURL(s.ManagementURL, az.DefaultManagementURL), s.Scope(), resource, az.AuthorizationAPIVersion)
}

// RoleDefinitions implements ScopeClient.
func (s *ARMScope) RoleDefinitions(ctx context.Context) (map[string]string, error) {
	defs, err := graph.Collect[roleDefinition](ctx, s.Client, s.providerURL("roleDefinitions"))
	if err != nil {
		return nil, err
	}
	cache := make(map[string]string, len(defs))
	for _, d := range defs {
		cache[d.ID] = d.Properties.RoleName
	}
	return cache, nil
}

// RoleAssignments implements ScopeClient.
func (s *ARMScope) RoleAssignments(ctx context.Context, principalID string) ([]Assignment, error) {
	filter := url.PathEscape(fmt.Sprintf("principalId eq '%s'", principalID))
	items, err := graph.Collect[roleAssignment](ctx, s.Client, s.providerURL("roleAssignments")+"&$filter="+filter)
	if err != nil {
		return nil, err
	}
	out := make([]Assignment, len(items))
	for i, it := range items {
		out[i] = Assignment{RoleDefinitionID: it.Properties.RoleDefinitionID, Scope: it.Properties.Scope}
	}
	return out, nil
}

// SubscriptionScopes returns one ARMScope per subscription.
func SubscriptionScopes(c *graph.Client, managementURL string, subscriptions []string) []ScopeClient {
	out := make([]ScopeClient, len(subscriptions))
	for i, id := range subscriptions {
		out[i] = &ARMScope{Client: c, ManagementURL: managementURL, SubscriptionID: id}
	}
	return out
}
