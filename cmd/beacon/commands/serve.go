// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/intamia/beacon/cmd/beacon/cli"
	"github.com/intamia/beacon/lib/clock"
	"github.com/intamia/beacon/lib/controlapi"
	"github.com/intamia/beacon/lib/update"
	"github.com/spf13/pflag"
)

type serveParams struct {
	globalParams

	Listen         string        `flag:"listen" desc:"control API listen address (default from configuration)"`
	UpdateInterval time.Duration `flag:"update-interval" desc:"periodic update check interval; negative disables (default from configuration)"`
}

func serveCommand() *cli.Command {
	var params serveParams
	return &cli.Command{
		Name:    "serve",
		Summary: "Run the local control API for the UI",
		Description: `Serve the local control API used by the UI process:

  POST /v1/sos            start a session (?wait=true blocks for the outcome)
  GET  /v1/status         stored address, token presence, last outcome
  POST /v1/update/check   run an update check
  GET  /v1/events         WebSocket stream of session status lines

Also checks for updates periodically and stages (and, when an install
command is configured, installs) verified artifacts.`,
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("serve", &params) },
		Run: func(ctx context.Context, args []string) (err error) {
			rt, err := openRuntime(ctx, params.globalParams)
			if err != nil {
				return err
			}
			defer closeRuntime(rt, &err)
			rt.warnMissingToken()

			hub := controlapi.NewHub()
			runner, err := rt.runner(runnerOptions{status: hub})
			if err != nil {
				return err
			}
			updates, err := rt.updates()
			if err != nil {
				return err
			}

			api := controlapi.New(controlapi.Config{
				Runner:   runner,
				Settings: rt.settings,
				Updates:  updates,
				Hub:      hub,
				Clock:    clock.Real(),
				Logger:   rt.logger,
			})

			listen := params.Listen
			if listen == "" {
				listen = rt.config.Control.Listen
			}
			interval := params.UpdateInterval
			if interval == 0 {
				interval = rt.config.Control.UpdateInterval
			}

			serveCtx, cancel := context.WithCancel(ctx)
			defer cancel()
			if interval > 0 {
				go checkUpdatesPeriodically(serveCtx, updates, clock.Real(), interval, rt.logger)
			}

			server := controlapi.NewServer(controlapi.ServerConfig{
				Address: listen,
				Handler: api.Handler(serveCtx),
				Logger:  rt.logger,
			})
			serveErr := server.Serve(serveCtx)
			cancel()
			api.Wait()
			if serveErr != nil {
				return fmt.Errorf("control API: %w", serveErr)
			}
			return nil
		},
	}
}

// checkUpdatesPeriodically runs the update chain on every tick until
// ctx is cancelled. Failures are logged and retried on the next tick.
func checkUpdatesPeriodically(ctx context.Context, updates *update.Manager, clk clock.Clock, interval time.Duration, logger *slog.Logger) {
	ticker := clk.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			outcome, err := updates.CheckAndStage(ctx)
			if err != nil {
				logger.Warn("periodic update failed", "error", err)
				continue
			}
			logger.Debug("periodic update check",
				"status", outcome.Check.Status.String(),
				"installed", outcome.Installed,
			)
		}
	}
}
