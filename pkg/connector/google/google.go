// Package google implements the directory connector for Google
// Workspace via the Admin SDK Directory API, using domain-wide
// delegation with a service-account credential impersonating a
// Workspace admin.
package google

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/oauth2/google"
	admin "google.golang.org/api/admin/directory/v1"
	"google.golang.org/api/option"

	"github.com/secmon-lab/idsync/pkg/domain/interfaces"
	"github.com/secmon-lab/idsync/pkg/domain/model"
	"github.com/secmon-lab/idsync/pkg/domain/types"
	"github.com/secmon-lab/idsync/pkg/utils/logging"
)

// defaultCustomer addresses the authenticated account's own customer
const defaultCustomer = "my_customer"

// Config holds the Workspace access settings
type Config struct {
	// CredentialsJSON is the GCP service-account key with domain-wide
	// delegation enabled.
	CredentialsJSON []byte

	// Subject is the Workspace admin account to impersonate.
	Subject string

	// Customer scopes the directory queries; empty means my_customer.
	Customer string
}

// Validate checks if the Config is complete
func (c *Config) Validate() error {
	if len(c.CredentialsJSON) == 0 {
		return goerr.New("google credentials JSON is required")
	}
	if c.Subject == "" {
		return goerr.New("google delegation subject is required")
	}
	return nil
}

// Connector is the Google Workspace directory connector
type Connector struct {
	cfg       Config
	directory *admin.Service
}

var _ interfaces.Connector = &Connector{}

// New creates a Google Workspace connector
func New(ctx context.Context, cfg Config) (*Connector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid google config")
	}
	if cfg.Customer == "" {
		cfg.Customer = defaultCustomer
	}

	params := google.CredentialsParams{
		Scopes: []string{
			admin.AdminDirectoryUserReadonlyScope,
			admin.AdminDirectoryGroupReadonlyScope,
			admin.AdminDirectoryGroupMemberReadonlyScope,
		},
		Subject: cfg.Subject,
	}
	cred, err := google.CredentialsFromJSONWithParams(ctx, cfg.CredentialsJSON, params)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load google credentials")
	}

	directory, err := admin.NewService(ctx, option.WithCredentials(cred))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create directory service")
	}

	return &Connector{cfg: cfg, directory: directory}, nil
}

func (c *Connector) Kind() types.ConnectorKind {
	return types.ConnectorGoogle
}

// FetchGroups lists every group name in the Workspace customer
func (c *Connector) FetchGroups(ctx context.Context) ([]string, error) {
	var groups []string
	err := c.directory.Groups.List().Customer(c.cfg.Customer).Pages(ctx, func(page *admin.Groups) error {
		for _, g := range page.Groups {
			if g.Name != "" {
				groups = append(groups, g.Name)
			}
		}
		return nil
	})
	if err != nil {
		return nil, goerr.Wrap(err, "google directory group query failed")
	}

	logging.From(ctx).Debug("Google group query finished", "groups", len(groups))
	return groups, nil
}

// FetchUsers lists Workspace users and derives each user's group
// memberships from the member lists of the requested groups.
func (c *Connector) FetchUsers(ctx context.Context, groups []string) ([]model.RawUser, error) {
	wanted := make(map[string]struct{}, len(groups))
	for _, g := range groups {
		wanted[g] = struct{}{}
	}

	// group email → name, restricted to the requested groups
	groupNames := make(map[string]string)
	err := c.directory.Groups.List().Customer(c.cfg.Customer).Pages(ctx, func(page *admin.Groups) error {
		for _, g := range page.Groups {
			if _, ok := wanted[g.Name]; ok {
				groupNames[g.Email] = g.Name
			}
		}
		return nil
	})
	if err != nil {
		return nil, goerr.Wrap(err, "google directory group query failed")
	}

	// user ID → groups the user belongs to
	memberships := make(map[string][]string)
	for email, name := range groupNames {
		err := c.directory.Members.List(email).Pages(ctx, func(page *admin.Members) error {
			for _, m := range page.Members {
				memberships[m.Id] = append(memberships[m.Id], name)
			}
			return nil
		})
		if err != nil {
			return nil, goerr.Wrap(err, "google directory member query failed",
				goerr.V("group", name))
		}
	}

	var users []model.RawUser
	err = c.directory.Users.List().Customer(c.cfg.Customer).Pages(ctx, func(page *admin.Users) error {
		for _, u := range page.Users {
			groups, ok := memberships[u.Id]
			if !ok || u.PrimaryEmail == "" {
				continue
			}

			raw := model.RawUser{
				Email:  u.PrimaryEmail,
				Groups: groups,
			}
			if u.Name != nil {
				raw.FirstName = u.Name.GivenName
				raw.LastName = u.Name.FamilyName
			}
			users = append(users, raw)
		}
		return nil
	})
	if err != nil {
		return nil, goerr.Wrap(err, "google directory user query failed")
	}

	return users, nil
}
