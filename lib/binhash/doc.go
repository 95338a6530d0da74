// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

// Package binhash provides SHA-256 content hashing for downloaded
// update artifacts.
//
// Update manifests publish the expected SHA-256 of each artifact as a
// hex string. Publishers are inconsistent about case, so [Matches]
// compares case-insensitively and rejects anything that is not a
// 64-character hex digest.
//
// The API surface:
//
//   - [Hasher] -- an io.Writer that hashes what passes through it, used
//     to digest a download while it streams to disk
//   - [HashFile] -- streams a file through SHA-256 with constant memory
//   - [FormatDigest] / [ParseDigest] -- canonical lowercase hex
//     encoding and validated decoding
//   - [Matches] -- compares a digest against a published hex string
//
// This package has no dependencies on other beacon packages.
package binhash
