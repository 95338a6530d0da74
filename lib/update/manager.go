// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

package update

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/intamia/beacon/lib/channel"
	"github.com/intamia/beacon/lib/clock"
)

// Defaults for Config fields left empty.
const (
	DefaultManifestPath   = "/updates/manifest.json"
	DefaultPlatform       = "android"
	DefaultArtifactPrefix = "SOS_"
	DefaultArtifactExt    = ".apk"
)

// AddressSource supplies the orchestrator base address at call time.
// *sessionconfig.Config satisfies it.
type AddressSource interface {
	BaseAddress() string
}

// Config describes where updates come from and where they go.
type Config struct {
	ManifestPath string
	Platform     string

	// Dir receives downloaded artifacts. Required for Download.
	Dir            string
	ArtifactPrefix string
	ArtifactExt    string

	// CurrentCode is the running build's version code.
	CurrentCode int
}

// Manager runs the update flow against the orchestrator.
type Manager struct {
	client    *http.Client
	base      AddressSource
	config    Config
	installer Installer
	clock     clock.Clock
	logger    *slog.Logger
}

// NewManager returns a Manager. installer may be nil, in which case
// updates are staged but never installed.
func NewManager(factory *channel.Factory, base AddressSource, config Config, installer Installer, clk clock.Clock, logger *slog.Logger) (*Manager, error) {
	if base == nil {
		return nil, fmt.Errorf("update manager requires an address source")
	}
	if config.ManifestPath == "" {
		config.ManifestPath = DefaultManifestPath
	}
	if config.Platform == "" {
		config.Platform = DefaultPlatform
	}
	if config.ArtifactPrefix == "" {
		config.ArtifactPrefix = DefaultArtifactPrefix
	}
	if config.ArtifactExt == "" {
		config.ArtifactExt = DefaultArtifactExt
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &Manager{
		client:    factory.Client(channel.ProfileExchange),
		base:      base,
		config:    config,
		installer: installer,
		clock:     clk,
		logger:    logger,
	}, nil
}
