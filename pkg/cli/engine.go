package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/secmon-lab/idsync/pkg/cli/config"
	"github.com/secmon-lab/idsync/pkg/usecase"
	"github.com/secmon-lab/idsync/pkg/utils/pool"
)

// engineConfig bundles the flag groups shared by the sync, watch and
// validate commands.
type engineConfig struct {
	connector config.Connector
	target    config.Target
	snapshot  config.Snapshot
	policy    config.Policy
	notify    config.Notify

	poolWidth int
}

func (e *engineConfig) Flags() []cli.Flag {
	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "pool-width",
			Usage:       "Number of concurrent outbound API calls",
			Value:       pool.DefaultWidth,
			Sources:     cli.EnvVars("IDSYNC_POOL_WIDTH"),
			Destination: &e.poolWidth,
		},
	}
	flags = append(flags, e.connector.Flags()...)
	flags = append(flags, e.target.Flags()...)
	flags = append(flags, e.snapshot.Flags()...)
	flags = append(flags, e.policy.Flags()...)
	flags = append(flags, e.notify.Flags()...)
	return flags
}

// Configure assembles the use cases from the parsed flags. The
// returned closer releases snapshot store clients.
func (e *engineConfig) Configure(ctx context.Context, extra ...usecase.Option) (*usecase.UseCases, func(), error) {
	connector, err := e.connector.Configure(ctx)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to configure connector")
	}

	target, err := e.target.Configure()
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to configure target client")
	}

	snapshots, closer, err := e.snapshot.Configure(ctx)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to configure snapshot store")
	}

	policy, err := e.policy.Configure()
	if err != nil {
		closer()
		return nil, nil, goerr.Wrap(err, "failed to load policy")
	}

	opts := []usecase.Option{
		usecase.WithPolicy(policy),
		usecase.WithPoolWidth(e.poolWidth),
	}

	notifier, err := e.notify.Configure()
	if err != nil {
		closer()
		return nil, nil, goerr.Wrap(err, "failed to configure notifier")
	}
	if notifier != nil {
		opts = append(opts, usecase.WithNotifier(notifier))
	}

	opts = append(opts, extra...)

	return usecase.New(connector, target, snapshots, opts...), closer, nil
}
