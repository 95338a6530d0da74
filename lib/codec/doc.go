// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides beacon's CBOR encoding configuration.
//
// Beacon uses JSON for everything the orchestrator or a user sees
// (HTTP bodies, CLI --json output, the control API) and CBOR for its
// own on-disk state, currently the update staging record written next
// to a verified artifact.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding, no indefinite-length items.
// Same logical data always produces identical bytes, so a staging
// record can be compared byte-for-byte.
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// Types serialized only as CBOR carry `cbor` struct tags. Types that
// are also shown as JSON carry `json` tags, which fxamacker/cbor reads
// as a fallback. Never put both on one field.
package codec
