package cli

import (
	"context"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v3"

	"github.com/secmon-lab/idsync/pkg/usecase"
	"github.com/secmon-lab/idsync/pkg/utils/logging"
	"github.com/secmon-lab/idsync/pkg/utils/progress"
)

func cmdSync() *cli.Command {
	var engCfg engineConfig
	var noProgress bool

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "no-progress",
			Usage:       "Disable the interactive progress bar",
			Sources:     cli.EnvVars("IDSYNC_NO_PROGRESS"),
			Destination: &noProgress,
		},
	}
	flags = append(flags, engCfg.Flags()...)

	return &cli.Command{
		Name:    "sync",
		Aliases: []string{"s"},
		Usage:   "Run a single reconciliation pass",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			var opts []usecase.Option
			if !noProgress && isatty.IsTerminal(os.Stdout.Fd()) {
				opts = append(opts, usecase.WithProgress(progress.New(os.Stdout)))
			}

			uc, closer, err := engCfg.Configure(ctx, opts...)
			if err != nil {
				return err
			}
			defer closer()

			report, err := uc.Sync.Run(ctx)
			if err != nil {
				return goerr.Wrap(err, "sync run failed")
			}

			logging.Default().Info("Sync completed",
				"run_id", report.ID,
				"directory_users", report.DirectoryUsers,
				"unchanged", report.Unchanged,
				"groups_created", report.GroupsCreated,
				"provisioned", report.UsersProvisioned,
				"updated", report.UsersUpdated,
				"deactivated", report.UsersDeactivated,
				"failures", len(report.Failures),
				"duration", report.Duration().String(),
			)

			if report.Failed() {
				return goerr.New("sync finished with failures",
					goerr.V("count", len(report.Failures)))
			}
			return nil
		},
	}
}
