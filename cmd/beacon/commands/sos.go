// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/intamia/beacon/cmd/beacon/cli"
	"github.com/intamia/beacon/lib/negotiate"
	"github.com/intamia/beacon/lib/session"
	"github.com/spf13/pflag"
)

type sosParams struct {
	globalParams
	cli.JSONOutput

	Seconds    int  `flag:"seconds,s" desc:"capture length in seconds (default from configuration)"`
	NoDiscover bool `flag:"no-discover" desc:"skip the LAN discovery browse and use the stored address"`
}

func sosCommand() *cli.Command {
	var params sosParams
	return &cli.Command{
		Name:    "sos",
		Summary: "Run one emergency session",
		Description: `Run one emergency session against the orchestrator.

The session browses the LAN for an orchestrator, probes its health
endpoint and picks a mode. In fallback mode it records speech, uploads
it as a WAV file and plays the spoken reply. In real-time mode it opens
a media session instead. An unreachable orchestrator ends the session
without recording anything and exits with status 2.`,
		Examples: []cli.Example{
			{Description: "Raise an alert with the default capture length", Command: "beacon sos"},
			{Description: "Record eight seconds against the stored address", Command: "beacon sos -s 8 --no-discover"},
		},
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("sos", &params) },
		Run: func(ctx context.Context, args []string) (err error) {
			if len(args) > 0 {
				return fmt.Errorf("sos takes no arguments, got %q", args[0])
			}
			rt, err := openRuntime(ctx, params.globalParams)
			if err != nil {
				return err
			}
			defer closeRuntime(rt, &err)
			rt.warnMissingToken()

			var status session.StatusSink
			if !params.OutputJSON {
				status = printStatus(os.Stdout)
			}
			runner, err := rt.runner(runnerOptions{
				status:         status,
				captureSeconds: params.Seconds,
				skipDiscovery:  params.NoDiscover,
			})
			if err != nil {
				return err
			}

			outcome, runErr := runner.Run(ctx)
			done, err := params.EmitJSON(outcome)
			if err != nil {
				return err
			}
			if !done {
				printOutcome(os.Stdout, outcome)
			}
			return sosExit(outcome, runErr)
		},
	}
}

func sosExit(outcome session.Outcome, runErr error) error {
	if runErr != nil {
		return runErr
	}
	if outcome.Mode == negotiate.ModeUnreachable {
		return &cli.ExitError{Code: cli.ExitUnreachable}
	}
	return nil
}

// printStatus writes session progress lines as they happen.
func printStatus(w io.Writer) session.StatusSink {
	return session.StatusFunc(func(status session.Status) {
		fmt.Fprintf(w, "%s  %s\n", status.Time.Format(time.TimeOnly), status.Line)
	})
}

func printOutcome(w io.Writer, outcome session.Outcome) {
	fmt.Fprintf(w, "session %s: %s via %s in %v\n",
		outcome.ID, outcome.Mode, outcome.BaseAddress, outcome.Duration().Round(time.Millisecond))
	if outcome.Reason != "" {
		fmt.Fprintf(w, "  reason: %s\n", outcome.Reason)
	}
	if outcome.AudioURL != "" {
		fmt.Fprintf(w, "  reply audio: %s\n", outcome.AudioURL)
	}
	if outcome.ReceivedPackets > 0 {
		fmt.Fprintf(w, "  received packets: %d\n", outcome.ReceivedPackets)
	}
	if outcome.Error != "" {
		fmt.Fprintf(w, "  error: %s\n", outcome.Error)
	}
}
