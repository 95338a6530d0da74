// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"os"
	"runtime"
	"strconv"

	"github.com/intamia/beacon/lib/binhash"
)

// These variables are set via -ldflags at build time.
var (
	// GitCommit is the short git SHA of the build.
	GitCommit = "unknown"

	// GitDirty indicates whether there were uncommitted changes.
	GitDirty = "false"

	// BuildTime is the UTC timestamp of the build.
	BuildTime = "unknown"

	// Version is the version name.
	Version = "0.1.0-dev"

	// VersionCode is the integer build code, as a string because -X
	// only sets strings.
	VersionCode = "1"
)

// Code returns VersionCode as an integer. A malformed injected value
// reads as 0, which makes every published update look newer rather
// than hiding them.
func Code() int {
	code, err := strconv.Atoi(VersionCode)
	if err != nil || code < 0 {
		return 0
	}
	return code
}

// Info returns a formatted version string suitable for --version output.
func Info() string {
	dirty := ""
	if GitDirty == "true" {
		dirty = "-dirty"
	}
	return fmt.Sprintf("%s [%d] (%s%s, %s)", Version, Code(), GitCommit, dirty, BuildTime)
}

// Full returns detailed version information including Go version.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Short returns just the version name.
func Short() string {
	return Version
}

// SelfDigest returns the SHA-256 of the running executable and its path.
func SelfDigest() (digest string, binaryPath string, err error) {
	executable, err := os.Executable()
	if err != nil {
		return "", "", fmt.Errorf("resolving own executable path: %w", err)
	}
	sum, err := binhash.HashFile(executable)
	if err != nil {
		return "", "", fmt.Errorf("hashing own binary at %s: %w", executable, err)
	}
	return binhash.FormatDigest(sum), executable, nil
}
