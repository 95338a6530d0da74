// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the small command framework behind the beacon binary.
//
// A [Command] has a name, optional nested [Command.Subcommands], a
// lazily built [pflag.FlagSet] and a Run function. [Command.Execute]
// routes by the first positional argument, parses flags, and prints
// structured help. Unknown commands and flags get a "did you mean"
// suggestion when a known name is within edit distance 3.
//
// Flags are usually declared as tagged struct fields and bound with
// [FlagsFromParams]; embedding [JSONOutput] adds --json.
//
// Commands that have already reported their outcome return an
// [ExitError] so main exits with a specific code without printing an
// extra error line.
package cli
