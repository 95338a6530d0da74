// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/intamia/beacon/cmd/beacon/cli"
	"github.com/intamia/beacon/lib/negotiate"
	"github.com/spf13/pflag"
)

type stressParams struct {
	globalParams
	cli.JSONOutput

	Iterations int           `flag:"iterations,n" desc:"number of sessions to run" default:"10"`
	Pause      time.Duration `flag:"pause" desc:"pause between sessions" default:"1s"`
	Seconds    int           `flag:"seconds,s" desc:"capture length per session (default from configuration)"`
}

func stressCommand() *cli.Command {
	var params stressParams
	return &cli.Command{
		Name:    "stress",
		Summary: "Run sessions back to back and report latency",
		Description: `Run a number of sessions one after another against the stored
orchestrator address and report how many succeeded with mean, p95
and maximum session latency. Discovery is skipped so every session
measures the same orchestrator.`,
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("stress", &params) },
		Run: func(ctx context.Context, args []string) (err error) {
			rt, err := openRuntime(ctx, params.globalParams)
			if err != nil {
				return err
			}
			defer closeRuntime(rt, &err)
			rt.warnMissingToken()

			runner, err := rt.runner(runnerOptions{captureSeconds: params.Seconds, skipDiscovery: true})
			if err != nil {
				return err
			}
			report, err := runner.Stress(ctx, params.Iterations, params.Pause)
			if err != nil {
				return err
			}
			if done, err := params.EmitJSON(report); done {
				return err
			}
			fmt.Fprintln(os.Stdout, report)
			modes := make([]negotiate.Mode, 0, len(report.Modes))
			for mode := range report.Modes {
				modes = append(modes, mode)
			}
			slices.Sort(modes)
			for _, mode := range modes {
				fmt.Fprintf(os.Stdout, "  %-12s %d\n", mode, report.Modes[mode])
			}
			return nil
		},
	}
}
