// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

// Package version provides build version information for beacon.
//
// # Build information
//
// Five package-level variables are injected at build time via
// -ldflags -X:
//
//   - [GitCommit] -- short git SHA of the build
//   - [GitDirty] -- "true" if there were uncommitted changes
//   - [BuildTime] -- UTC timestamp of the build
//   - [Version] -- human-readable version name, e.g. "1.4.0"
//   - [VersionCode] -- monotonically increasing integer build code
//
// VersionCode is what the update check compares against the manifest:
// an update is offered only when the published versionCode is strictly
// greater than [Code]. The name is for people; the code is for
// ordering.
//
//	go build -ldflags "-X github.com/intamia/beacon/lib/version.VersionCode=14 -X github.com/intamia/beacon/lib/version.Version=1.4.0"
//
// [SelfDigest] hashes the running executable, which `beacon version
// --full` prints so an operator can match a device's binary against a
// published artifact digest.
package version
