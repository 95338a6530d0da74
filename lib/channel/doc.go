// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

// Package channel builds the HTTP clients beacon uses to talk to the
// orchestrator.
//
// A [Factory] is constructed explicitly from a [Config] and a
// [TokenSource] and passed to every component that makes requests.
// There is no process-wide client: tests build a factory against their
// own fake orchestrator, with whatever trust policy they need.
//
// Two client profiles exist. [ProfileProbe] is the fast reachability
// check (about 2 s end to end). [ProfileExchange] carries turns,
// manifests and downloads; it bounds connect (about 5 s) and
// time-to-first-response-byte (about 30 s) and leaves the total
// duration to the caller's context.
//
// Every request carries "Authorization: Bearer <token>" when the token
// source returns a non-empty token, read at request time so a token
// set mid-session applies to the next request. Compressed responses
// (gzip, zstd) are decoded transparently by klauspost/compress/gzhttp.
//
// # Trust policy
//
// [TrustVerify] checks the server certificate against the system roots
// plus an optional CA bundle, the normal TLS behavior.
// [TrustAnyCertificate] accepts any certificate and skips hostname
// verification. It exists because LAN orchestrators present
// self-signed certificates. It removes transport authentication
// entirely: the bearer token and physical network isolation become the
// only trust boundary. It is never the default, must be chosen in
// configuration, and is logged as a warning when a factory is built
// with it.
package channel
