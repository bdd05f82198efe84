package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	httpctrl "github.com/secmon-lab/idsync/pkg/controller/http"
	"github.com/secmon-lab/idsync/pkg/service/worker"
	"github.com/secmon-lab/idsync/pkg/utils/logging"
)

func cmdWatch() *cli.Command {
	var engCfg engineConfig
	var addr string
	var interval time.Duration

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP status server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("IDSYNC_ADDR"),
			Destination: &addr,
		},
		&cli.DurationFlag{
			Name:        "interval",
			Usage:       "Time between reconciliation runs",
			Value:       time.Hour,
			Sources:     cli.EnvVars("IDSYNC_INTERVAL"),
			Destination: &interval,
		},
	}
	flags = append(flags, engCfg.Flags()...)

	return &cli.Command{
		Name:    "watch",
		Aliases: []string{"w"},
		Usage:   "Run reconciliation periodically with a status server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			uc, closer, err := engCfg.Configure(ctx)
			if err != nil {
				return err
			}
			defer closer()

			syncWorker := worker.New(uc, interval)
			if err := syncWorker.Start(ctx); err != nil {
				return goerr.Wrap(err, "failed to start sync worker")
			}

			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(syncWorker),
				ReadHeaderTimeout: 30 * time.Second,
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting status server", "addr", addr, "interval", interval.String())
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			select {
			case err := <-errCh:
				syncWorker.Stop()
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)

				syncWorker.Stop()

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				logging.Default().Info("Server shutdown completed")
				return nil
			}
		},
	}
}
