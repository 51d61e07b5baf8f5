package azure

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	cmdberrors "github.com/jakabjo/cmdb-inventory/pkg/errors"
	"github.com/jakabjo/cmdb-inventory/pkg/graph"
)

// Default endpoints.
const (
	DefaultAuthorityURL  = "https://login.microsoftonline.com"
	DefaultGraphURL      = "https://graph.microsoft.com/v1.0"
	DefaultManagementURL = "https://management.azure.com"

	GraphScope      = "https://graph.microsoft.com/.default"
	ManagementScope = "https://management.azure.com/.default"
)

// API versions used against Azure Resource Manager.
const (
	SubscriptionsAPIVersion = "2022-12-01"
	ComputeAPIVersion       = "2024-07-01"
	AuthorizationAPIVersion = "2022-04-01"
)

// Credentials identify a service principal.
type Credentials struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	AuthorityURL string
}

// Validate reports missing fields.
func (c Credentials) Validate() error {
	var missing []string
	if c.TenantID == "" {
		missing = append(missing, "tenant_id")
	}
	if c.ClientID == "" {
		missing = append(missing, "client_id")
	}
	if c.ClientSecret == "" {
		missing = append(missing, "client_secret")
	}
	if len(missing) > 0 {
		return cmdberrors.New(cmdberrors.ErrCodeUnauthorized,
			"missing Azure credentials: "+strings.Join(missing, ", "))
	}
	return nil
}

// TokenSource returns a client credentials token source for scope.
// The optional http client is used for token requests.
func (c Credentials) TokenSource(ctx context.Context, scope string, hc *http.Client) (oauth2.TokenSource, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	authority := strings.TrimRight(c.AuthorityURL, "/")
	if authority == "" {
		authority = DefaultAuthorityURL
	}
	cc := &clientcredentials.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		TokenURL:     fmt.Sprintf("%s/%s/oauth2/v2.0/token", authority, url.PathEscape(c.TenantID)),
		Scopes:       []string{scope},
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	if hc != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, hc)
	}
	return oauth2.ReuseTokenSource(nil, cc.TokenSource(ctx)), nil
}

// CheckToken fetches one token so that credential failures abort before
// any per-item work starts.
func CheckToken(ts oauth2.TokenSource) error {
	if _, err := ts.Token(); err != nil {
		return cmdberrors.Wrap(cmdberrors.ErrCodeUnauthorized, "failed to acquire Azure token", err)
	}
	return nil
}

// Subscription is an ARM subscription.
type Subscription struct {
	ID             string `json:"id"`
	SubscriptionID string `json:"subscriptionId"`
	DisplayName    string `json:"displayName"`
	State          string `json:"state"`
}

// SubscriptionsURL returns the subscription listing URL.
func SubscriptionsURL(managementURL string) string {
	return fmt.Sprintf("%s/subscriptions?api-version=%s", BaseURL(managementURL, DefaultManagementURL), SubscriptionsAPIVersion)
}

// ListSubscriptions returns the ids of every enabled subscription visible
// to the caller.
func ListSubscriptions(ctx context.Context, c *graph.Client, managementURL string) ([]string, error) {
	subs, err := graph.Collect[Subscription](ctx, c, SubscriptionsURL(managementURL))
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(subs))
	for _, s := range subs {
		if s.SubscriptionID == "" {
			continue
		}
		if s.State != "" && !strings.EqualFold(s.State, "Enabled") {
			continue
		}
		ids = append(ids, s.SubscriptionID)
	}
	return ids, nil
}

// ScopeForSubscription returns the ARM scope of a subscription.
func ScopeForSubscription(id string) string {
	return "/subscriptions/" + id
}

// ResourceGroup extracts the resource group from an ARM resource id.
func ResourceGroup(id string) string {
	parts := strings.Split(strings.Trim(id, "/"), "/")
	for i := 0; i+1 < len(parts); i++ {
		if strings.EqualFold(parts[i], "resourceGroups") {
			return parts[i+1]
		}
	}
	return ""
}

// LastSegment returns the trailing path segment of an ARM id.
func LastSegment(id string) string {
	id = strings.TrimRight(id, "/")
	if i := strings.LastIndexByte(id, '/'); i >= 0 {
		return id[i+1:]
	}
	return id
}

// BaseURL returns u without a trailing slash, or def when u is empty.
func BaseURL(u, def string) string {
	u = strings.TrimRight(strings.TrimSpace(u), "/")
	if u == "" {
		return def
	}
	return u
}
