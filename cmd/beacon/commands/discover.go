// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/intamia/beacon/cmd/beacon/cli"
	"github.com/spf13/pflag"
)

type discoverParams struct {
	globalParams
	cli.JSONOutput

	Timeout time.Duration `flag:"timeout" desc:"browse timeout (default from configuration)"`
	Save    bool          `flag:"save" desc:"store the discovered orchestrator as the base address"`
}

type discoverResult struct {
	Found       bool   `json:"found"`
	Host        string `json:"host,omitempty"`
	Port        int    `json:"port,omitempty"`
	BaseAddress string `json:"base_url"`
	Saved       bool   `json:"saved"`
}

func discoverCommand() *cli.Command {
	var params discoverParams
	return &cli.Command{
		Name:    "discover",
		Summary: "Browse the LAN for an orchestrator",
		Description: `Browse the local network for an orchestrator advertising the
configured DNS-SD service. The first usable responder wins. With
--save it becomes the stored base address. Exits with status 3 when
nothing answers before the timeout.`,
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("discover", &params) },
		Run: func(ctx context.Context, args []string) (err error) {
			if len(args) > 0 {
				return fmt.Errorf("discover takes no arguments, got %q", args[0])
			}
			rt, err := openRuntime(ctx, params.globalParams)
			if err != nil {
				return err
			}
			defer closeRuntime(rt, &err)

			timeout := params.Timeout
			if timeout <= 0 {
				timeout = rt.config.Discovery.Timeout
			}
			endpoint, found := rt.discoverer().Discover(ctx, timeout)

			result := discoverResult{Found: found}
			if found {
				result.Host, result.Port = endpoint.Host, endpoint.Port
				if params.Save {
					if err := rt.settings.SetDiscovered(ctx, endpoint.Host, endpoint.Port); err != nil {
						return err
					}
					result.Saved = true
				}
			}
			result.BaseAddress = rt.settings.BaseAddress()

			if done, err := params.EmitJSON(result); done {
				if err != nil {
					return err
				}
			} else if found {
				fmt.Printf("found orchestrator at %s\n", endpoint)
				if result.Saved {
					fmt.Printf("base address is now %s\n", result.BaseAddress)
				}
			} else {
				fmt.Printf("no orchestrator answered within %v; base address stays %s\n", timeout, result.BaseAddress)
			}
			if !found {
				return &cli.ExitError{Code: cli.ExitNotFound}
			}
			return nil
		},
	}
}
