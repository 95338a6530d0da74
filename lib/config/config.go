// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the master configuration for beacon.
type Config struct {
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Discovery    DiscoveryConfig    `yaml:"discovery"`
	TLS          TLSConfig          `yaml:"tls"`
	Timeouts     TimeoutsConfig     `yaml:"timeouts"`
	Capture      CaptureConfig      `yaml:"capture"`
	Playback     PlaybackConfig     `yaml:"playback"`
	Update       UpdateConfig       `yaml:"update"`
	RealTime     RealTimeConfig     `yaml:"realtime"`
	State        StateConfig        `yaml:"state"`
	Control      ControlConfig      `yaml:"control"`
}

// OrchestratorConfig names the orchestrator endpoints.
type OrchestratorConfig struct {
	// DefaultBaseURL is used until discovery or pairing persists an
	// address.
	DefaultBaseURL string `yaml:"default_base_url"`

	HealthPath    string `yaml:"health_path"`
	TurnPath      string `yaml:"turn_path"`
	ManifestPath  string `yaml:"manifest_path"`
	SignalingPath string `yaml:"signaling_path"`
}

// DiscoveryConfig configures the DNS-SD browse run before a session.
type DiscoveryConfig struct {
	Enabled bool          `yaml:"enabled"`
	Service string        `yaml:"service"`
	Domain  string        `yaml:"domain"`
	Timeout time.Duration `yaml:"timeout"`
}

// TLSConfig selects the server certificate policy.
type TLSConfig struct {
	// Trust is "verify" or "any". "any" accepts self-signed LAN
	// certificates and is logged as a warning.
	Trust string `yaml:"trust"`

	// CAFile is an extra PEM bundle trusted under "verify".
	CAFile string `yaml:"ca_file"`
}

// TimeoutsConfig bounds network operations.
type TimeoutsConfig struct {
	Connect time.Duration `yaml:"connect"`
	Read    time.Duration `yaml:"read"`
	Probe   time.Duration `yaml:"probe"`
}

// CaptureConfig configures speech capture.
type CaptureConfig struct {
	Seconds    int `yaml:"seconds"`
	ChunkBytes int `yaml:"chunk_bytes"`

	// Command records raw 16 kHz mono S16_LE to stdout. Empty means
	// arecord.
	Command []string `yaml:"command"`
}

// PlaybackConfig configures reply playback. An empty command logs the
// reply URL instead of playing it.
type PlaybackConfig struct {
	Command []string `yaml:"command"`
}

// UpdateConfig configures self-update.
type UpdateConfig struct {
	Platform       string   `yaml:"platform"`
	DownloadDir    string   `yaml:"download_dir"`
	ArtifactPrefix string   `yaml:"artifact_prefix"`
	ArtifactExt    string   `yaml:"artifact_ext"`
	InstallCommand []string `yaml:"install_command"`

	// CurrentVersionCode overrides the build's version code when
	// non-zero.
	CurrentVersionCode int `yaml:"current_version_code"`
}

// RealTimeConfig configures the real-time transport.
type RealTimeConfig struct {
	Enabled       bool     `yaml:"enabled"`
	ICEServers    []string `yaml:"ice_servers"`
	ICEUsername   string   `yaml:"ice_username"`
	ICECredential string   `yaml:"ice_credential"`
}

// StateConfig locates persisted state.
type StateConfig struct {
	// Dir is the state directory, available to other paths as
	// ${BEACON_STATE}.
	Dir string `yaml:"dir"`

	// DBPath is the SQLite database holding the orchestrator address
	// and token.
	DBPath string `yaml:"db_path"`

	// IdentityFile is the age identity sealing the token at rest.
	// Empty stores the token unsealed.
	IdentityFile string `yaml:"identity_file"`
}

// ControlConfig configures `beacon serve`.
type ControlConfig struct {
	Listen string `yaml:"listen"`

	// UpdateInterval schedules periodic update checks. Zero disables
	// them.
	UpdateInterval time.Duration `yaml:"update_interval"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Orchestrator: OrchestratorConfig{
			DefaultBaseURL: "https://10.0.0.2:8000",
			HealthPath:     "/health",
			TurnPath:       "/turn",
			ManifestPath:   "/updates/manifest.json",
			SignalingPath:  "/webrtc/offer",
		},
		Discovery: DiscoveryConfig{
			Enabled: true,
			Service: "_sos._tcp",
			Domain:  "local.",
			Timeout: 6 * time.Second,
		},
		TLS: TLSConfig{
			Trust: "verify",
		},
		Timeouts: TimeoutsConfig{
			Connect: 5 * time.Second,
			Read:    30 * time.Second,
			Probe:   2 * time.Second,
		},
		Capture: CaptureConfig{
			Seconds:    5,
			ChunkBytes: 3200,
		},
		Update: UpdateConfig{
			Platform:       "android",
			DownloadDir:    "${BEACON_STATE}/updates",
			ArtifactPrefix: "SOS_",
			ArtifactExt:    ".apk",
		},
		State: StateConfig{
			Dir:    "${HOME}/.local/state/beacon",
			DBPath: "${BEACON_STATE}/state.db",
		},
		Control: ControlConfig{
			Listen:         "127.0.0.1:7340",
			UpdateInterval: 6 * time.Hour,
		},
	}
}

// Load loads configuration from the file named by BEACON_CONFIG, or
// returns the defaults when it is unset.
func Load() (*Config, error) {
	configPath := os.Getenv("BEACON_CONFIG")
	if configPath == "" {
		cfg := Default()
		cfg.expandVariables()
		return cfg, nil
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path. Fields the
// file omits keep their defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.expandVariables()
	return cfg, nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.State.Dir = expandVars(c.State.Dir, vars)
	vars["BEACON_STATE"] = c.State.Dir

	c.State.DBPath = expandVars(c.State.DBPath, vars)
	c.State.IdentityFile = expandVars(c.State.IdentityFile, vars)
	c.Update.DownloadDir = expandVars(c.Update.DownloadDir, vars)
	c.TLS.CAFile = expandVars(c.TLS.CAFile, vars)
	c.Orchestrator.DefaultBaseURL = expandVars(c.Orchestrator.DefaultBaseURL, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns. vars wins
// over the environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []error

	if parsed, err := url.Parse(c.Orchestrator.DefaultBaseURL); err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		errs = append(errs, fmt.Errorf("orchestrator.default_base_url must be an http or https URL, got %q", c.Orchestrator.DefaultBaseURL))
	}
	for name, path := range map[string]string{
		"orchestrator.health_path":    c.Orchestrator.HealthPath,
		"orchestrator.turn_path":      c.Orchestrator.TurnPath,
		"orchestrator.manifest_path":  c.Orchestrator.ManifestPath,
		"orchestrator.signaling_path": c.Orchestrator.SignalingPath,
	} {
		if !strings.HasPrefix(path, "/") {
			errs = append(errs, fmt.Errorf("%s must start with /, got %q", name, path))
		}
	}

	if c.Discovery.Enabled {
		if c.Discovery.Service == "" {
			errs = append(errs, errors.New("discovery.service is required when discovery is enabled"))
		}
		if c.Discovery.Timeout <= 0 {
			errs = append(errs, errors.New("discovery.timeout must be positive"))
		}
	}

	if c.TLS.Trust != "verify" && c.TLS.Trust != "any" {
		errs = append(errs, fmt.Errorf("tls.trust must be one of: [verify any], got %q", c.TLS.Trust))
	}

	if c.Timeouts.Connect <= 0 || c.Timeouts.Read <= 0 || c.Timeouts.Probe <= 0 {
		errs = append(errs, errors.New("timeouts.connect, timeouts.read and timeouts.probe must be positive"))
	}

	if c.Capture.Seconds <= 0 {
		errs = append(errs, fmt.Errorf("capture.seconds must be positive, got %d", c.Capture.Seconds))
	}
	if c.Capture.ChunkBytes < 0 || c.Capture.ChunkBytes%2 != 0 {
		errs = append(errs, fmt.Errorf("capture.chunk_bytes must be a non-negative whole number of samples, got %d", c.Capture.ChunkBytes))
	}

	if c.Update.Platform == "" {
		errs = append(errs, errors.New("update.platform is required"))
	}
	if c.Update.CurrentVersionCode < 0 {
		errs = append(errs, errors.New("update.current_version_code must not be negative"))
	}

	for _, server := range c.RealTime.ICEServers {
		if !strings.HasPrefix(server, "stun:") && !strings.HasPrefix(server, "turn:") && !strings.HasPrefix(server, "turns:") {
			errs = append(errs, fmt.Errorf("realtime.ice_servers entry %q must be a stun:, turn: or turns: URL", server))
		}
	}

	if c.State.DBPath == "" {
		errs = append(errs, errors.New("state.db_path is required"))
	}

	if c.Control.Listen == "" {
		errs = append(errs, errors.New("control.listen is required"))
	}
	if c.Control.UpdateInterval < 0 {
		errs = append(errs, errors.New("control.update_interval must not be negative"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// EnsurePaths creates the state and download directories.
func (c *Config) EnsurePaths() error {
	for _, path := range []string{c.State.Dir, c.Update.DownloadDir} {
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}
	return nil
}

// Marshal renders the configuration as YAML, for `beacon config show`.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
