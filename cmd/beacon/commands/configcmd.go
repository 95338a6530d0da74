// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/intamia/beacon/cmd/beacon/cli"
	"github.com/intamia/beacon/lib/pairing"
	"github.com/intamia/beacon/lib/sessionconfig"
	"github.com/spf13/pflag"
)

func configCommand() *cli.Command {
	return &cli.Command{
		Name:    "config",
		Summary: "Show or change the orchestrator address and token",
		Subcommands: []*cli.Command{
			configShowCommand(),
			configSetCommand(),
			configPairCommand(),
		},
	}
}

type configShowParams struct {
	globalParams
	cli.JSONOutput

	Effective bool `flag:"effective" desc:"also print the effective YAML configuration"`
}

func configShowCommand() *cli.Command {
	var params configShowParams
	return &cli.Command{
		Name:    "show",
		Summary: "Print the stored address and whether a token is set",
		Flags:   func() *pflag.FlagSet { return cli.FlagsFromParams("show", &params) },
		Run: func(ctx context.Context, args []string) (err error) {
			rt, err := openRuntime(ctx, params.globalParams)
			if err != nil {
				return err
			}
			defer closeRuntime(rt, &err)

			snapshot := rt.settings.Snapshot()
			if done, err := params.EmitJSON(snapshot); done {
				return err
			}
			fmt.Printf("base_url:  %s\n", snapshot.BaseAddress)
			fmt.Printf("has_token: %t\n", snapshot.HasToken)
			if params.Effective {
				data, err := rt.config.Marshal()
				if err != nil {
					return err
				}
				fmt.Printf("\n%s", data)
			}
			return nil
		},
	}
}

type configSetParams struct {
	globalParams

	BaseURL    string `flag:"base-url" desc:"orchestrator base address, e.g. https://10.0.0.2:8000"`
	Token      string `flag:"token" desc:"bearer token (prefer --token-stdin)"`
	TokenStdin bool   `flag:"token-stdin" desc:"read the bearer token from stdin"`
	ClearToken bool   `flag:"clear-token" desc:"remove the stored token"`
}

func configSetCommand() *cli.Command {
	var params configSetParams
	return &cli.Command{
		Name:    "set",
		Summary: "Change the stored address or token",
		Examples: []cli.Example{
			{Command: "beacon config set --base-url https://10.0.0.7:8000"},
			{Description: "Store a token without it appearing in shell history", Command: "beacon config set --token-stdin < token.txt"},
		},
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("set", &params) },
		Run: func(ctx context.Context, args []string) (err error) {
			token := params.Token
			if params.TokenStdin {
				data, err := readAllLimited(os.Stdin, 16<<10)
				if err != nil {
					return fmt.Errorf("reading token from stdin: %w", err)
				}
				token = string(data)
			}
			if params.BaseURL == "" && token == "" && !params.ClearToken {
				return errors.New("nothing to set: pass --base-url, --token, --token-stdin or --clear-token")
			}
			if token != "" && params.ClearToken {
				return errors.New("--clear-token cannot be combined with a token")
			}

			rt, err := openRuntime(ctx, params.globalParams)
			if err != nil {
				return err
			}
			defer closeRuntime(rt, &err)

			if params.BaseURL != "" {
				if err := rt.settings.SetBaseAddress(ctx, params.BaseURL); err != nil {
					return err
				}
			}
			if token != "" || params.ClearToken {
				if err := rt.settings.SetToken(ctx, token); err != nil {
					return err
				}
			}
			snapshot := rt.settings.Snapshot()
			fmt.Printf("base_url %s, token set: %t\n", snapshot.BaseAddress, snapshot.HasToken)
			return nil
		},
	}
}

type configPairParams struct {
	globalParams
	cli.JSONOutput
}

type pairResult struct {
	sessionconfig.Snapshot
	Subject   string    `json:"subject,omitempty"`
	Role      string    `json:"role,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

func configPairCommand() *cli.Command {
	var params configPairParams
	return &cli.Command{
		Name:    "pair",
		Summary: "Apply a pairing URI from the orchestrator",
		Description: `Apply a pairing URI of the form sos://pair?token=<token>[&url=<base>]
as produced by the orchestrator's /pair endpoint (usually scanned from
a QR code). The token is stored and, when the URI names one, so is
the orchestrator address. Expired tokens are refused.`,
		Usage: "beacon config pair [flags] <uri>",
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("pair", &params) },
		Run: func(ctx context.Context, args []string) (err error) {
			if len(args) != 1 {
				return errors.New("pair takes exactly one pairing URI")
			}
			parsed, err := pairing.Parse(args[0])
			if err != nil {
				return err
			}

			rt, err := openRuntime(ctx, params.globalParams)
			if err != nil {
				return err
			}
			defer closeRuntime(rt, &err)

			if err := pairing.Apply(ctx, rt.settings, parsed, time.Now()); err != nil {
				return err
			}

			result := pairResult{Snapshot: rt.settings.Snapshot()}
			if parsed.Claims != nil {
				result.Subject = parsed.Claims.Subject
				result.Role = parsed.Claims.Role
				result.ExpiresAt = parsed.Claims.ExpiresAt
			}
			if done, err := params.EmitJSON(result); done {
				return err
			}
			fmt.Printf("paired with %s\n", result.BaseAddress)
			if !result.ExpiresAt.IsZero() {
				fmt.Printf("  token expires %s\n", result.ExpiresAt.Local().Format(time.RFC1123))
			}
			return nil
		},
	}
}
