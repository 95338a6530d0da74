// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the beacon CLI command tree.
//
// Every command loads the YAML configuration, opens the persisted
// session configuration and builds only the components it needs
// through [runtime]. Commands report handled non-zero outcomes (no
// orchestrator found, orchestrator unreachable, no update available)
// through [cli.ExitError] so scripts can branch on the exit code.
package commands
