// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for beacon.
//
// Configuration comes from a single file named by the BEACON_CONFIG
// environment variable (via [Load]) or a --config flag (via
// [LoadFile]). There is no search path and no ~/.config discovery.
// Unlike server components, a handheld client must start with no file
// at all, so [Load] returns [Default] when BEACON_CONFIG is unset.
//
// Variable expansion is performed on path fields after loading:
// ${HOME}, ${BEACON_STATE} (the state directory) and ${VAR:-default}
// patterns are expanded. No other environment variables override
// config values.
//
// The orchestrator address and bearer token are deliberately absent:
// they are runtime state owned by lib/sessionconfig, written by
// discovery and pairing, not by editing this file. The file only
// supplies the address used before anything has been persisted.
//
// This package depends on no other beacon packages.
package config
