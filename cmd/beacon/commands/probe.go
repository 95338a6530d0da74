// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"

	"github.com/intamia/beacon/cmd/beacon/cli"
	"github.com/intamia/beacon/lib/negotiate"
	"github.com/intamia/beacon/lib/sessionconfig"
	"github.com/spf13/pflag"
)

type probeParams struct {
	globalParams
	cli.JSONOutput

	BaseURL string `flag:"base-url" desc:"probe this address instead of the stored one"`
}

type probeResult struct {
	BaseAddress string             `json:"base_url"`
	Decision    negotiate.Decision `json:"decision"`
}

func probeCommand() *cli.Command {
	var params probeParams
	return &cli.Command{
		Name:    "probe",
		Summary: "Check whether the orchestrator is reachable",
		Description: `Probe the orchestrator health endpoint and print the mode a session
would use. Exits with status 2 when the orchestrator is unreachable.`,
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("probe", &params) },
		Run: func(ctx context.Context, args []string) (err error) {
			if len(args) > 0 {
				return fmt.Errorf("probe takes no arguments, got %q", args[0])
			}
			rt, err := openRuntime(ctx, params.globalParams)
			if err != nil {
				return err
			}
			defer closeRuntime(rt, &err)
			rt.warnMissingToken()

			base := rt.settings.BaseAddress()
			if params.BaseURL != "" {
				parsed, err := sessionconfig.ParseBaseAddress(params.BaseURL)
				if err != nil {
					return err
				}
				base = parsed.String()
			}

			result := probeResult{BaseAddress: base, Decision: rt.negotiator().Negotiate(ctx, base)}
			if done, err := params.EmitJSON(result); done {
				if err != nil {
					return err
				}
			} else if result.Decision.Reachable {
				fmt.Printf("%s is reachable, mode %s\n", base, result.Decision.Mode)
			} else {
				fmt.Printf("%s is unreachable: %s\n", base, result.Decision.Reason)
			}
			if !result.Decision.Reachable {
				return &cli.ExitError{Code: cli.ExitUnreachable}
			}
			return nil
		},
	}
}
