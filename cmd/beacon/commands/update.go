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
	"github.com/intamia/beacon/lib/codec"
	"github.com/intamia/beacon/lib/update"
	"github.com/spf13/pflag"
)

func updateCommand() *cli.Command {
	return &cli.Command{
		Name:    "update",
		Summary: "Check for, download and install updates",
		Description: `Self-update from the orchestrator's update manifest.

"check" compares the manifest's version code with the running build.
"download" fetches and verifies the artifact. "install" runs the whole
chain and hands a verified artifact to the configured install command.
An artifact whose SHA-256 does not match the manifest is deleted and
never installed.`,
		Subcommands: []*cli.Command{
			updateCheckCommand(),
			updateDownloadCommand(),
			updateInstallCommand(),
			updateStagedCommand(),
		},
	}
}

type updateParams struct {
	globalParams
	cli.JSONOutput
}

// withUpdates opens the runtime and the update manager for one command.
func withUpdates(ctx context.Context, params globalParams, run func(*runtime, *update.Manager) error) (err error) {
	rt, err := openRuntime(ctx, params)
	if err != nil {
		return err
	}
	defer closeRuntime(rt, &err)
	rt.warnMissingToken()

	manager, err := rt.updates()
	if err != nil {
		return err
	}
	return run(rt, manager)
}

// checkExit maps a check result to the exit code once it has been
// printed.
func checkExit(result update.CheckResult) error {
	switch result.Status {
	case update.StatusNoUpdate:
		return &cli.ExitError{Code: cli.ExitNotFound}
	case update.StatusCheckFailed:
		return &cli.ExitError{Code: cli.ExitFailure}
	}
	return nil
}

// emitCheck prints result as JSON or text.
func emitCheck(output cli.JSONOutput, result update.CheckResult) error {
	if done, err := output.EmitJSON(result); done {
		return err
	}
	printCheck(result)
	return nil
}

func printCheck(result update.CheckResult) {
	switch result.Status {
	case update.StatusUpdateAvailable:
		fmt.Printf("update available: %s (code %d)\n", result.Entry.VersionName, result.Entry.VersionCode)
		if result.Entry.Notes != "" {
			fmt.Printf("  %s\n", result.Entry.Notes)
		}
	case update.StatusNoUpdate:
		fmt.Println("no update available")
	default:
		fmt.Printf("update check failed: %s\n", result.Reason)
	}
}

func updateCheckCommand() *cli.Command {
	var params updateParams
	return &cli.Command{
		Name:    "check",
		Summary: "Check the manifest for a newer build",
		Flags:   func() *pflag.FlagSet { return cli.FlagsFromParams("check", &params) },
		Run: func(ctx context.Context, args []string) error {
			return withUpdates(ctx, params.globalParams, func(_ *runtime, manager *update.Manager) error {
				result := manager.Check(ctx)
				if err := emitCheck(params.JSONOutput, result); err != nil {
					return err
				}
				return checkExit(result)
			})
		},
	}
}

func updateDownloadCommand() *cli.Command {
	var params updateParams
	return &cli.Command{
		Name:    "download",
		Summary: "Download and verify the newest artifact",
		Flags:   func() *pflag.FlagSet { return cli.FlagsFromParams("download", &params) },
		Run: func(ctx context.Context, args []string) error {
			return withUpdates(ctx, params.globalParams, func(_ *runtime, manager *update.Manager) error {
				result := manager.Check(ctx)
				if result.Status != update.StatusUpdateAvailable {
					if err := emitCheck(params.JSONOutput, result); err != nil {
						return err
					}
					return checkExit(result)
				}

				artifact, err := manager.Download(ctx, result.Entry)
				if err != nil {
					var integrity *update.IntegrityError
					if errors.As(err, &integrity) {
						return fmt.Errorf("downloaded artifact rejected: %w", err)
					}
					return err
				}
				if done, err := params.EmitJSON(artifact); done {
					return err
				}
				fmt.Printf("downloaded %s\n", artifact.Path)
				if artifact.Verified {
					fmt.Printf("  sha256 %s verified\n", artifact.Digest)
				} else {
					fmt.Println("  manifest published no digest; artifact is unverified")
				}
				return nil
			})
		},
	}
}

type installParams struct {
	updateParams
	Staged bool `flag:"staged" desc:"install the newest already staged artifact without contacting the orchestrator"`
}

func updateInstallCommand() *cli.Command {
	var params installParams
	return &cli.Command{
		Name:    "install",
		Summary: "Check, download, verify and install",
		Description: `Run the full update chain. The artifact is installed only when its
digest matches the manifest and an install command is configured
(update.install_command). With --staged, the newest artifact that
was already downloaded and still matches its recorded digest is
installed instead.`,
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("install", &params) },
		Run: func(ctx context.Context, args []string) error {
			return withUpdates(ctx, params.globalParams, func(_ *runtime, manager *update.Manager) error {
				if params.Staged {
					return installStaged(ctx, manager, params.JSONOutput)
				}

				outcome, err := manager.CheckAndStage(ctx)
				if err != nil {
					if errors.Is(err, update.ErrNoInstaller) {
						return fmt.Errorf("%w: set update.install_command", err)
					}
					return err
				}
				if done, err := params.EmitJSON(outcome); done {
					if err != nil {
						return err
					}
					return checkExit(outcome.Check)
				}
				printCheck(outcome.Check)
				if outcome.Artifact != nil {
					fmt.Printf("staged %s\n", outcome.Artifact.Path)
				}
				if outcome.Installed {
					fmt.Println("installed")
				}
				return checkExit(outcome.Check)
			})
		},
	}
}

func installStaged(ctx context.Context, manager *update.Manager, output cli.JSONOutput) error {
	artifact, found, err := manager.Staged()
	if err != nil {
		return err
	}
	if !found {
		if !output.OutputJSON {
			fmt.Println("no staged update")
		}
		return &cli.ExitError{Code: cli.ExitNotFound}
	}
	if err := manager.Install(ctx, artifact); err != nil {
		return err
	}
	if done, err := output.EmitJSON(artifact); done {
		return err
	}
	fmt.Printf("installed %s (code %d)\n", artifact.Path, artifact.Entry.VersionCode)
	return nil
}

type stagedParams struct {
	updateParams
	Raw bool `flag:"raw" desc:"print the stage record in CBOR diagnostic notation"`
}

type stagedResult struct {
	Artifact update.Artifact `json:"artifact"`
	StagedAt time.Time       `json:"staged_at"`
}

func updateStagedCommand() *cli.Command {
	var params stagedParams
	return &cli.Command{
		Name:    "staged",
		Summary: "Show the newest staged artifact",
		Description: `Show the newest downloaded artifact that is newer than the running
build and still matches its recorded digest. Exits with status 3 when
nothing is staged.`,
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("staged", &params) },
		Run: func(ctx context.Context, args []string) error {
			return withUpdates(ctx, params.globalParams, func(_ *runtime, manager *update.Manager) error {
				artifact, found, err := manager.Staged()
				if err != nil {
					return err
				}
				if !found {
					if !params.OutputJSON {
						fmt.Println("no staged update")
					}
					return &cli.ExitError{Code: cli.ExitNotFound}
				}
				stage, err := update.ReadStage(artifact.Path)
				if err != nil {
					return err
				}

				if params.Raw {
					data, err := os.ReadFile(update.StagePath(artifact.Path))
					if err != nil {
						return err
					}
					notation, err := codec.Diagnose(data)
					if err != nil {
						return fmt.Errorf("decoding %s: %w", update.StagePath(artifact.Path), err)
					}
					fmt.Println(notation)
					return nil
				}

				if done, err := params.EmitJSON(stagedResult{Artifact: artifact, StagedAt: stage.StagedAt}); done {
					return err
				}
				fmt.Printf("%s (code %d)\n", artifact.Entry.VersionName, artifact.Entry.VersionCode)
				fmt.Printf("  path      %s\n", artifact.Path)
				fmt.Printf("  sha256    %s (verified: %t)\n", artifact.Digest, artifact.Verified)
				fmt.Printf("  staged at %s\n", stage.StagedAt.Local().Format(time.RFC3339))
				return nil
			})
		},
	}
}
