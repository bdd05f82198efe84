package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/secmon-lab/idsync/pkg/utils/logging"
)

func cmdValidate() *cli.Command {
	var engCfg engineConfig

	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Check policy, target and connector reachability without syncing",
		Flags:   engCfg.Flags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			uc, closer, err := engCfg.Configure(ctx)
			if err != nil {
				return err
			}
			defer closer()

			if err := uc.Probe(ctx); err != nil {
				return goerr.Wrap(err, "validation failed")
			}

			logging.Default().Info("Validation succeeded")
			return nil
		},
	}
}
