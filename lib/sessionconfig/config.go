// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

package sessionconfig

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"
	"sync"
)

// DefaultBaseAddress is used until discovery or the user configures an
// orchestrator.
const DefaultBaseAddress = "https://10.0.0.2:8000"

// Store keys.
const (
	KeyBaseAddress = "base_url"
	KeyToken       = "auth_token"
)

// Snapshot is a consistent copy of the configuration.
type Snapshot struct {
	BaseAddress string `json:"base_url"`
	HasToken    bool   `json:"has_token"`
}

// Config is the shared session configuration.
type Config struct {
	store  Store
	logger *slog.Logger

	// writeMu serializes writers so that the in-memory value and the
	// persisted value agree on who wrote last.
	writeMu sync.Mutex

	mu    sync.RWMutex
	base  *url.URL
	token string
}

// Load builds a Config from store, falling back to fallbackBase (or
// DefaultBaseAddress when empty) if no address has been persisted.
func Load(ctx context.Context, store Store, fallbackBase string, logger *slog.Logger) (*Config, error) {
	if fallbackBase == "" {
		fallbackBase = DefaultBaseAddress
	}
	raw, found, err := store.Get(ctx, KeyBaseAddress)
	if err != nil {
		return nil, fmt.Errorf("loading base address: %w", err)
	}
	if !found {
		raw = fallbackBase
	}
	base, err := ParseBaseAddress(raw)
	if err != nil {
		return nil, fmt.Errorf("stored base address: %w", err)
	}

	token, _, err := store.Get(ctx, KeyToken)
	if err != nil {
		return nil, fmt.Errorf("loading token: %w", err)
	}

	return &Config{
		store:  store,
		logger: logger,
		base:   base,
		token:  token,
	}, nil
}

// ParseBaseAddress validates an orchestrator base address and reduces
// it to scheme and host. It must be an absolute http or https URL with
// a host; any path, query, fragment or credentials are discarded so
// endpoint paths can be appended directly.
func ParseBaseAddress(raw string) (*url.URL, error) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("parsing base address %q: %w", raw, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("base address %q must use http or https", raw)
	}
	if parsed.Host == "" || parsed.Hostname() == "" {
		return nil, fmt.Errorf("base address %q has no host", raw)
	}
	return &url.URL{Scheme: parsed.Scheme, Host: parsed.Host}, nil
}

// BaseAddress returns the current base address as a string.
func (c *Config) BaseAddress() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.base.String()
}

// BaseURL returns a copy of the current base address.
func (c *Config) BaseURL() *url.URL {
	c.mu.RLock()
	defer c.mu.RUnlock()
	copied := *c.base
	return &copied
}

// Token returns the bearer token, or "" when none is configured.
func (c *Config) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Snapshot returns the address and whether a token is set.
func (c *Config) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Snapshot{BaseAddress: c.base.String(), HasToken: c.token != ""}
}

// SetBaseAddress replaces the base address. The new value is visible
// to readers even when persisting it fails; the error reports the
// persistence failure.
func (c *Config) SetBaseAddress(ctx context.Context, raw string) error {
	base, err := ParseBaseAddress(raw)
	if err != nil {
		return err
	}
	return c.setBase(ctx, base)
}

// SetDiscovered points the configuration at a discovered orchestrator.
// Discovered orchestrators are always reached over https.
func (c *Config) SetDiscovered(ctx context.Context, host string, port int) error {
	if host == "" || port <= 0 || port > 65535 {
		return fmt.Errorf("invalid discovered endpoint %s:%d", host, port)
	}
	base := &url.URL{Scheme: "https", Host: net.JoinHostPort(host, strconv.Itoa(port))}
	return c.setBase(ctx, base)
}

func (c *Config) setBase(ctx context.Context, base *url.URL) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.Lock()
	previous := c.base.String()
	c.base = base
	c.mu.Unlock()

	if previous != base.String() {
		c.logger.Info("orchestrator address changed", "from", previous, "to", base.String())
	}
	if err := c.store.Set(ctx, KeyBaseAddress, base.String()); err != nil {
		return fmt.Errorf("persisting base address: %w", err)
	}
	return nil
}

// SetToken replaces the bearer token. An empty token clears it.
func (c *Config) SetToken(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.Lock()
	c.token = token
	c.mu.Unlock()

	if token == "" {
		if err := c.store.Delete(ctx, KeyToken); err != nil {
			return fmt.Errorf("clearing token: %w", err)
		}
		return nil
	}
	if err := c.store.Set(ctx, KeyToken, token); err != nil {
		return fmt.Errorf("persisting token: %w", err)
	}
	return nil
}

// Endpoint joins path onto the current base address.
func (c *Config) Endpoint(path string) string {
	return JoinPath(c.BaseAddress(), path)
}

// JoinPath appends an absolute endpoint path to a base address.
func JoinPath(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
