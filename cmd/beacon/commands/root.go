// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"

	"github.com/intamia/beacon/cmd/beacon/cli"
	"github.com/intamia/beacon/lib/version"
	"github.com/spf13/pflag"
)

// Root builds and returns the complete beacon command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name: "beacon",
		Description: `Beacon: emergency voice client for a LAN orchestrator.

Finds the orchestrator on the local network, checks that it is
reachable, records speech and exchanges it for a spoken reply. Also
keeps itself up to date from the orchestrator's update manifest.`,
		Subcommands: []*cli.Command{
			sosCommand(),
			discoverCommand(),
			probeCommand(),
			updateCommand(),
			configCommand(),
			serveCommand(),
			stressCommand(),
			versionCommand(),
		},
	}
}

type versionParams struct {
	cli.JSONOutput
	Digest bool `flag:"digest" desc:"also print the SHA-256 of the running binary"`
}

type versionResult struct {
	Version     string `json:"version"`
	VersionCode int    `json:"version_code"`
	Digest      string `json:"sha256,omitempty"`
	Binary      string `json:"binary,omitempty"`
}

func versionCommand() *cli.Command {
	var params versionParams
	return &cli.Command{
		Name:    "version",
		Summary: "Print version information",
		Flags:   func() *pflag.FlagSet { return cli.FlagsFromParams("version", &params) },
		Run: func(_ context.Context, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("version takes no arguments, got %q", args[0])
			}
			result := versionResult{Version: version.Full(), VersionCode: version.Code()}
			if params.Digest {
				digest, binaryPath, err := version.SelfDigest()
				if err != nil {
					return err
				}
				result.Digest, result.Binary = digest, binaryPath
			}
			if done, err := params.EmitJSON(result); done {
				return err
			}
			fmt.Printf("beacon %s (code %d)\n", result.Version, result.VersionCode)
			if result.Digest != "" {
				fmt.Printf("sha256 %s  %s\n", result.Digest, result.Binary)
			}
			return nil
		},
	}
}
