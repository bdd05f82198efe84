package config

import (
	"context"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/secmon-lab/idsync/pkg/connector/entra"
	"github.com/secmon-lab/idsync/pkg/connector/google"
	"github.com/secmon-lab/idsync/pkg/connector/ldap"
	"github.com/secmon-lab/idsync/pkg/domain/interfaces"
	"github.com/secmon-lab/idsync/pkg/domain/types"
	"github.com/secmon-lab/idsync/pkg/utils/logging"
)

// Connector holds CLI flags for the directory connector
type Connector struct {
	kind string

	ldapAddress  string
	ldapBindDN   string
	ldapPassword string
	ldapBaseDN   string
	ldapOU       string
	ldapPageSize int

	entraTenantID     string
	entraClientID     string
	entraClientSecret string

	googleCredentials string
	googleSubject     string
	googleCustomer    string
}

// Flags returns CLI flags for connector configuration
func (c *Connector) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "connector",
			Usage:       "Directory connector type (ldap, entra or google)",
			Value:       "ldap",
			Category:    "Connector",
			Sources:     cli.EnvVars("IDSYNC_CONNECTOR"),
			Destination: &c.kind,
		},
		&cli.StringFlag{
			Name:        "ldap-address",
			Usage:       "LDAP server URL (e.g. ldaps://dc.example.com:636)",
			Category:    "Connector",
			Sources:     cli.EnvVars("IDSYNC_LDAP_ADDRESS"),
			Destination: &c.ldapAddress,
		},
		&cli.StringFlag{
			Name:        "ldap-bind-dn",
			Usage:       "LDAP bind DN",
			Category:    "Connector",
			Sources:     cli.EnvVars("IDSYNC_LDAP_BIND_DN"),
			Destination: &c.ldapBindDN,
		},
		&cli.StringFlag{
			Name:        "ldap-password",
			Usage:       "LDAP bind password",
			Category:    "Connector",
			Sources:     cli.EnvVars("IDSYNC_LDAP_PASSWORD"),
			Destination: &c.ldapPassword,
		},
		&cli.StringFlag{
			Name:        "ldap-base-dn",
			Usage:       "LDAP search base DN",
			Category:    "Connector",
			Sources:     cli.EnvVars("IDSYNC_LDAP_BASE_DN"),
			Destination: &c.ldapBaseDN,
		},
		&cli.StringFlag{
			Name:        "ldap-ou",
			Usage:       "Organizational unit holding the sync groups",
			Category:    "Connector",
			Sources:     cli.EnvVars("IDSYNC_LDAP_OU"),
			Destination: &c.ldapOU,
		},
		&cli.IntFlag{
			Name:        "ldap-page-size",
			Usage:       "LDAP search page size",
			Value:       ldap.DefaultPageSize,
			Category:    "Connector",
			Sources:     cli.EnvVars("IDSYNC_LDAP_PAGE_SIZE"),
			Destination: &c.ldapPageSize,
		},
		&cli.StringFlag{
			Name:        "entra-tenant-id",
			Usage:       "Microsoft Entra tenant ID",
			Category:    "Connector",
			Sources:     cli.EnvVars("IDSYNC_ENTRA_TENANT_ID"),
			Destination: &c.entraTenantID,
		},
		&cli.StringFlag{
			Name:        "entra-client-id",
			Usage:       "Microsoft Entra application client ID",
			Category:    "Connector",
			Sources:     cli.EnvVars("IDSYNC_ENTRA_CLIENT_ID"),
			Destination: &c.entraClientID,
		},
		&cli.StringFlag{
			Name:        "entra-client-secret",
			Usage:       "Microsoft Entra application client secret",
			Category:    "Connector",
			Sources:     cli.EnvVars("IDSYNC_ENTRA_CLIENT_SECRET"),
			Destination: &c.entraClientSecret,
		},
		&cli.StringFlag{
			Name:        "google-credentials",
			Usage:       "Path to a Google service account key with domain-wide delegation",
			Category:    "Connector",
			Sources:     cli.EnvVars("IDSYNC_GOOGLE_CREDENTIALS"),
			Destination: &c.googleCredentials,
		},
		&cli.StringFlag{
			Name:        "google-subject",
			Usage:       "Google Workspace admin account to impersonate",
			Category:    "Connector",
			Sources:     cli.EnvVars("IDSYNC_GOOGLE_SUBJECT"),
			Destination: &c.googleSubject,
		},
		&cli.StringFlag{
			Name:        "google-customer",
			Usage:       "Google Workspace customer ID (defaults to my_customer)",
			Category:    "Connector",
			Sources:     cli.EnvVars("IDSYNC_GOOGLE_CUSTOMER"),
			Destination: &c.googleCustomer,
		},
	}
}

// Configure builds the directory connector selected by the flags
func (c *Connector) Configure(ctx context.Context) (interfaces.Connector, error) {
	switch types.ConnectorKind(c.kind) {
	case types.ConnectorLDAP:
		if c.ldapPageSize < 0 {
			return nil, goerr.New("ldap page size must not be negative",
				goerr.V("page_size", c.ldapPageSize))
		}
		conn, err := ldap.New(ldap.Config{
			Address:  c.ldapAddress,
			BindDN:   c.ldapBindDN,
			Password: c.ldapPassword,
			BaseDN:   c.ldapBaseDN,
			OU:       c.ldapOU,
			PageSize: uint32(c.ldapPageSize),
		})
		if err != nil {
			return nil, goerr.Wrap(err, "failed to configure LDAP connector")
		}
		logging.Default().Info("Using LDAP connector", "address", c.ldapAddress)
		return conn, nil

	case types.ConnectorEntra:
		conn, err := entra.New(ctx, entra.Config{
			TenantID:     c.entraTenantID,
			ClientID:     c.entraClientID,
			ClientSecret: c.entraClientSecret,
		})
		if err != nil {
			return nil, goerr.Wrap(err, "failed to configure Entra connector")
		}
		logging.Default().Info("Using Entra connector", "tenant_id", c.entraTenantID)
		return conn, nil

	case types.ConnectorGoogle:
		cred, err := os.ReadFile(c.googleCredentials)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read google credentials",
				goerr.V("path", c.googleCredentials))
		}
		conn, err := google.New(ctx, google.Config{
			CredentialsJSON: cred,
			Subject:         c.googleSubject,
			Customer:        c.googleCustomer,
		})
		if err != nil {
			return nil, goerr.Wrap(err, "failed to configure Google connector")
		}
		logging.Default().Info("Using Google Workspace connector", "subject", c.googleSubject)
		return conn, nil

	default:
		return nil, goerr.New("invalid connector type", goerr.V("connector", c.kind))
	}
}
