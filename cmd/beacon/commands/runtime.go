// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/intamia/beacon/cmd/beacon/cli"
	"github.com/intamia/beacon/lib/capture"
	"github.com/intamia/beacon/lib/channel"
	"github.com/intamia/beacon/lib/clock"
	"github.com/intamia/beacon/lib/config"
	"github.com/intamia/beacon/lib/discovery"
	"github.com/intamia/beacon/lib/negotiate"
	"github.com/intamia/beacon/lib/sealed"
	"github.com/intamia/beacon/lib/session"
	"github.com/intamia/beacon/lib/sessionconfig"
	"github.com/intamia/beacon/lib/turn"
	"github.com/intamia/beacon/lib/update"
	"github.com/intamia/beacon/lib/version"
	"github.com/intamia/beacon/transport"
)

// globalParams are accepted by every command that touches the
// orchestrator or persisted state.
type globalParams struct {
	ConfigPath string `flag:"config" desc:"configuration file (default $BEACON_CONFIG)"`
	LogLevel   string `flag:"log-level" desc:"log level: debug, info, warn or error" default:"info"`
}

// runtime holds what every command shares: configuration, logger,
// persisted session settings and the HTTP channel factory.
type runtime struct {
	config   *config.Config
	logger   *slog.Logger
	store    *sessionconfig.SQLiteStore
	settings *sessionconfig.Config
	factory  *channel.Factory
}

func loadConfig(params globalParams) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if params.ConfigPath != "" {
		cfg, err = config.LoadFile(params.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// openRuntime loads configuration and opens persisted state. The
// caller must Close the returned runtime.
func openRuntime(ctx context.Context, params globalParams) (*runtime, error) {
	cfg, err := loadConfig(params)
	if err != nil {
		return nil, err
	}
	logger := cli.NewCommandLogger(params.LogLevel)

	if err := cfg.EnsurePaths(); err != nil {
		return nil, err
	}

	sqliteStore, err := sessionconfig.OpenSQLiteStore(cfg.State.DBPath, logger)
	if err != nil {
		return nil, err
	}

	var store sessionconfig.Store = sqliteStore
	if cfg.State.IdentityFile != "" {
		sealer, err := sealed.LoadOrCreate(cfg.State.IdentityFile)
		if err != nil {
			sqliteStore.Close()
			return nil, fmt.Errorf("loading state identity: %w", err)
		}
		store = sessionconfig.NewSealedStore(sqliteStore, sealer, sessionconfig.KeyToken)
	}

	settings, err := sessionconfig.Load(ctx, store, cfg.Orchestrator.DefaultBaseURL, logger)
	if err != nil {
		sqliteStore.Close()
		return nil, err
	}

	factory, err := channel.New(channel.Config{
		ConnectTimeout: cfg.Timeouts.Connect,
		ReadTimeout:    cfg.Timeouts.Read,
		ProbeTimeout:   cfg.Timeouts.Probe,
		Trust:          channel.TrustPolicy(cfg.TLS.Trust),
		CAFile:         cfg.TLS.CAFile,
	}, settings, logger)
	if err != nil {
		sqliteStore.Close()
		return nil, err
	}

	return &runtime{
		config:   cfg,
		logger:   logger,
		store:    sqliteStore,
		settings: settings,
		factory:  factory,
	}, nil
}

func (r *runtime) Close() error {
	return r.store.Close()
}

// warnMissingToken logs once per command that talks to the
// orchestrator without credentials.
func (r *runtime) warnMissingToken() {
	if r.settings.Token() == "" {
		r.logger.Warn("no auth token configured; requests will be rejected by an authenticating orchestrator",
			"hint", "beacon config pair <uri>")
	}
}

func (r *runtime) iceConfig() transport.ICEConfig {
	return transport.ICEConfigFromURLs(r.config.RealTime.ICEServers, r.config.RealTime.ICEUsername, r.config.RealTime.ICECredential)
}

func (r *runtime) discoverer() *discovery.Discoverer {
	return discovery.New(discovery.Config{
		Service: r.config.Discovery.Service,
		Domain:  r.config.Discovery.Domain,
		Timeout: r.config.Discovery.Timeout,
	}, nil, r.logger)
}

func (r *runtime) negotiator() *negotiate.Negotiator {
	capability := transport.NewCapability(r.config.RealTime.Enabled, r.iceConfig(), r.logger)
	return negotiate.New(r.factory, capability, r.config.Orchestrator.HealthPath, r.logger)
}

func (r *runtime) updates() (*update.Manager, error) {
	currentCode := r.config.Update.CurrentVersionCode
	if currentCode == 0 {
		currentCode = version.Code()
	}
	var installer update.Installer
	if len(r.config.Update.InstallCommand) > 0 {
		installer = update.CommandInstaller{Argv: r.config.Update.InstallCommand}
	}
	return update.NewManager(r.factory, r.settings, update.Config{
		ManifestPath:   r.config.Orchestrator.ManifestPath,
		Platform:       r.config.Update.Platform,
		Dir:            r.config.Update.DownloadDir,
		ArtifactPrefix: r.config.Update.ArtifactPrefix,
		ArtifactExt:    r.config.Update.ArtifactExt,
		CurrentCode:    currentCode,
	}, installer, clock.Real(), r.logger)
}

type runnerOptions struct {
	status         session.StatusSink
	captureSeconds int
	skipDiscovery  bool
}

func (r *runtime) runner(options runnerOptions) (*session.Runner, error) {
	captureSeconds := options.captureSeconds
	if captureSeconds <= 0 {
		captureSeconds = r.config.Capture.Seconds
	}

	sessionConfig := session.Config{
		Settings:   r.settings,
		Negotiator: r.negotiator(),
		Capture: capture.NewPipeline(
			&capture.CommandMicrophone{Argv: r.config.Capture.Command},
			capture.Config{ChunkBytes: r.config.Capture.ChunkBytes},
			r.logger,
		),
		Turn:           turn.New(r.factory, r.config.Orchestrator.TurnPath, r.logger),
		Status:         options.status,
		CaptureSeconds: captureSeconds,
		Clock:          clock.Real(),
		Logger:         r.logger,
	}
	if r.config.Discovery.Enabled && !options.skipDiscovery {
		sessionConfig.Discoverer = r.discoverer()
		sessionConfig.DiscoveryTimeout = r.config.Discovery.Timeout
	}
	if r.config.RealTime.Enabled {
		signaler := transport.NewHTTPSignaler(r.factory, r.config.Orchestrator.SignalingPath)
		sessionConfig.RealTime = session.TransportRealTime{
			Session: transport.NewSession(signaler, r.iceConfig(), r.logger),
		}
	}
	if len(r.config.Playback.Command) > 0 {
		sessionConfig.Player = session.CommandPlayer{Argv: r.config.Playback.Command}
	}
	return session.NewRunner(sessionConfig)
}

// closeRuntime folds a Close failure into the command's error.
func closeRuntime(r *runtime, err *error) {
	if closeErr := r.Close(); closeErr != nil {
		*err = errors.Join(*err, fmt.Errorf("closing state: %w", closeErr))
	}
}
