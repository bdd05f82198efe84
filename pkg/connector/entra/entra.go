// Package entra implements the directory connector for Microsoft
// Entra ID via the Graph REST API, authenticating with the OAuth2
// client-credentials flow.
package entra

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/secmon-lab/idsync/pkg/domain/interfaces"
	"github.com/secmon-lab/idsync/pkg/domain/model"
	"github.com/secmon-lab/idsync/pkg/domain/types"
	"github.com/secmon-lab/idsync/pkg/utils/logging"
	"github.com/secmon-lab/idsync/pkg/utils/safe"
)

const (
	graphBaseURL = "https://graph.microsoft.com/v1.0"
	tokenURLFmt  = "https://login.microsoftonline.com/%s/oauth2/v2.0/token"
	graphScope   = "https://graph.microsoft.com/.default"
)

// Config holds the Entra ID application credentials
type Config struct {
	TenantID     string
	ClientID     string
	ClientSecret string `masq:"secret"`
}

// Validate checks if the Config is complete
func (c *Config) Validate() error {
	if c.TenantID == "" {
		return goerr.New("entra tenant ID is required")
	}
	if c.ClientID == "" || c.ClientSecret == "" {
		return goerr.New("entra client credentials are required")
	}
	return nil
}

// Connector is the Entra ID directory connector
type Connector struct {
	cfg     Config
	baseURL string
	client  *http.Client
}

var _ interfaces.Connector = &Connector{}

// Option is a functional option for connector configuration
type Option func(*Connector)

// WithBaseURL overrides the Graph endpoint (tests)
func WithBaseURL(url string) Option {
	return func(c *Connector) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient replaces the token-bearing HTTP client (tests)
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Connector) {
		c.client = hc
	}
}

// New creates an Entra ID connector. The OAuth2 token source refreshes
// itself; callers hold one connector for the process lifetime.
func New(ctx context.Context, cfg Config, opts ...Option) (*Connector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid entra config")
	}

	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     fmt.Sprintf(tokenURLFmt, cfg.TenantID),
		Scopes:       []string{graphScope},
	}

	c := &Connector{
		cfg:     cfg,
		baseURL: graphBaseURL,
		client:  cc.Client(ctx),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

func (c *Connector) Kind() types.ConnectorKind {
	return types.ConnectorEntra
}

// Graph wire types

type graphGroup struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

type graphUser struct {
	ID                string `json:"id"`
	Mail              string `json:"mail"`
	UserPrincipalName string `json:"userPrincipalName"`
	GivenName         string `json:"givenName"`
	Surname           string `json:"surname"`
	CompanyName       string `json:"companyName"`
	JobTitle          string `json:"jobTitle"`
	MobilePhone       string `json:"mobilePhone"`
}

// FetchGroups lists every group display name in the tenant
func (c *Connector) FetchGroups(ctx context.Context) ([]string, error) {
	var groups []string
	err := c.page(ctx, c.baseURL+"/groups", func(raw json.RawMessage) error {
		var batch []graphGroup
		if err := json.Unmarshal(raw, &batch); err != nil {
			return goerr.Wrap(err, "failed to decode group page")
		}
		for _, g := range batch {
			if g.DisplayName != "" {
				groups = append(groups, g.DisplayName)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.From(ctx).Debug("Entra group query finished", "groups", len(groups))
	return groups, nil
}

// FetchUsers lists tenant users and resolves each user's group
// memberships via /memberOf.
func (c *Connector) FetchUsers(ctx context.Context, groups []string) ([]model.RawUser, error) {
	wanted := make(map[string]struct{}, len(groups))
	for _, g := range groups {
		wanted[g] = struct{}{}
	}

	var users []model.RawUser
	err := c.page(ctx, c.baseURL+"/users", func(raw json.RawMessage) error {
		var batch []graphUser
		if err := json.Unmarshal(raw, &batch); err != nil {
			return goerr.Wrap(err, "failed to decode user page")
		}

		for _, gu := range batch {
			email := gu.Mail
			if email == "" {
				email = gu.UserPrincipalName
			}
			if email == "" {
				continue
			}

			memberOf, err := c.memberOf(ctx, gu.ID)
			if err != nil {
				return goerr.Wrap(err, "failed to resolve memberships",
					goerr.V("user_id", gu.ID))
			}

			// Users with no membership in any requested group are outside
			// the sync scope.
			inScope := false
			for _, g := range memberOf {
				if _, ok := wanted[g]; ok {
					inScope = true
					break
				}
			}
			if !inScope {
				continue
			}

			users = append(users, model.RawUser{
				Email:     email,
				FirstName: gu.GivenName,
				LastName:  gu.Surname,
				Groups:    memberOf,
				Company:   gu.CompanyName,
				Title:     gu.JobTitle,
				Phone:     gu.MobilePhone,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return users, nil
}

// memberOf returns the display names of the groups a user belongs to
func (c *Connector) memberOf(ctx context.Context, userID string) ([]string, error) {
	var names []string
	url := fmt.Sprintf("%s/users/%s/memberOf", c.baseURL, userID)
	err := c.page(ctx, url, func(raw json.RawMessage) error {
		var batch []graphGroup
		if err := json.Unmarshal(raw, &batch); err != nil {
			return goerr.Wrap(err, "failed to decode memberOf page")
		}
		for _, g := range batch {
			if g.DisplayName != "" {
				names = append(names, g.DisplayName)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// page walks a Graph collection following @odata.nextLink until
// exhausted, handing each value batch to cb.
func (c *Connector) page(ctx context.Context, url string, cb func(raw json.RawMessage) error) error {
	for url != "" {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return goerr.Wrap(err, "failed to build graph request", goerr.V("url", url))
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return goerr.Wrap(err, "graph request failed", goerr.V("url", url))
		}

		if resp.StatusCode != http.StatusOK {
			raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			safe.Close(ctx, resp.Body)
			return goerr.New("graph API error",
				goerr.V("url", url),
				goerr.V("status", resp.StatusCode),
				goerr.V("reason", strings.TrimSpace(string(raw))))
		}

		var envelope struct {
			Value    json.RawMessage `json:"value"`
			NextLink string          `json:"@odata.nextLink"`
		}
		err = json.NewDecoder(resp.Body).Decode(&envelope)
		safe.Close(ctx, resp.Body)
		if err != nil {
			return goerr.Wrap(err, "failed to decode graph response", goerr.V("url", url))
		}

		if err := cb(envelope.Value); err != nil {
			return err
		}
		url = envelope.NextLink
	}
	return nil
}
