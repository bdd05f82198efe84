package config

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/secmon-lab/idsync/pkg/service/target"
)

// Target holds CLI flags for the target account API
type Target struct {
	baseURL string
	token   string
}

// Flags returns CLI flags for target configuration
func (t *Target) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "target-url",
			Usage:       "Base URL of the target account API",
			Category:    "Target",
			Sources:     cli.EnvVars("IDSYNC_TARGET_URL"),
			Destination: &t.baseURL,
		},
		&cli.StringFlag{
			Name:        "target-token",
			Usage:       "API token for the target account",
			Category:    "Target",
			Sources:     cli.EnvVars("IDSYNC_TARGET_TOKEN"),
			Destination: &t.token,
		},
	}
}

// Configure builds the target API client from the flags
func (t *Target) Configure() (*target.Client, error) {
	if t.baseURL == "" {
		return nil, goerr.New("target-url is required")
	}
	if t.token == "" {
		return nil, goerr.New("target-token is required")
	}

	client, err := target.New(t.baseURL, t.token)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create target client")
	}
	return client, nil
}
