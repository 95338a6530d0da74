// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

// Package update fetches, verifies and stages self-updates published by
// the orchestrator.
//
// The flow is a straight line:
//
//	Check -> (no update | update available) -> Download -> verify digest
//	      -> (verified: stage, install) | (mismatch: discard)
//
// # Check
//
// [Manager.Check] reads GET {base}/updates/manifest.json and looks up
// the entry under the configured platform key ("android" unless
// configured otherwise). An update is available only when the entry's
// versionCode is strictly greater than the running build's code. The
// [CheckResult] distinguishes "no update" from "check failed" so logs
// and the CLI can tell them apart; [Manager.CheckManifest] collapses
// both to false for callers that only want an entry.
//
// # Download and verification
//
// [Manager.Download] streams the artifact to <name>.partial while
// hashing it, then re-hashes the written file. A digest that differs
// from the published sha256 (compared case-insensitively) deletes the
// file and returns [*IntegrityError]. A blank published digest skips
// verification with a warning and marks the artifact unverified; that
// is a publisher choice, not a download failure. Only after
// verification is the partial file renamed to its final name, so a
// final-named artifact on disk has always passed the check that
// applied to it.
//
// # Staging
//
// A verified artifact gets a CBOR sidecar, <artifact>.stage, recording
// the manifest entry and the digest. [Manager.Staged] finds the newest
// staged artifact (re-verifying its digest) so an install can happen
// after a restart.
//
// # Install
//
// Installation is delegated to an [Installer]. [CommandInstaller] runs
// a configured command with the artifact path appended.
package update
