// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

package discovery

import (
	"context"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/grandcat/zeroconf"
)

// Well-known advertisement.
const (
	DefaultService = "_sos._tcp"
	DefaultDomain  = "local."
	DefaultTimeout = 6 * time.Second
)

// Endpoint is a discovered orchestrator address.
type Endpoint struct {
	Host string
	Port int
}

// String returns host:port with IPv6 hosts bracketed.
func (e Endpoint) String() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// Browser browses one DNS-SD service type. Implementations deliver
// entries on the channel until ctx is done. They may close the channel
// when finished; they must not block forever on a send after ctx is
// done.
type Browser interface {
	Browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error
}

// ZeroconfBrowser browses with a fresh multicast resolver per call, so
// a network change between sessions is picked up.
type ZeroconfBrowser struct{}

// Browse implements [Browser].
func (ZeroconfBrowser) Browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return err
	}
	return resolver.Browse(ctx, service, domain, entries)
}

// Config names what to browse for. Zero fields take the defaults.
type Config struct {
	Service string
	Domain  string
	Timeout time.Duration
}

// Discoverer runs browses.
type Discoverer struct {
	browser Browser
	config  Config
	logger  *slog.Logger
}

// New returns a Discoverer. A nil browser means [ZeroconfBrowser].
func New(config Config, browser Browser, logger *slog.Logger) *Discoverer {
	if config.Service == "" {
		config.Service = DefaultService
	}
	if config.Domain == "" {
		config.Domain = DefaultDomain
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if browser == nil {
		browser = ZeroconfBrowser{}
	}
	return &Discoverer{browser: browser, config: config, logger: logger}
}

// Discover browses for up to timeout (the configured default when
// timeout is zero) and returns the first usable responder.
func (d *Discoverer) Discover(ctx context.Context, timeout time.Duration) (Endpoint, bool) {
	if timeout <= 0 {
		timeout = d.config.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry, 8)
	if err := d.browser.Browse(ctx, d.config.Service, d.config.Domain, entries); err != nil {
		d.logger.Info("service discovery unavailable",
			"service", d.config.Service,
			"error", err,
		)
		return Endpoint{}, false
	}

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("no orchestrator found",
				"service", d.config.Service,
				"domain", d.config.Domain,
				"timeout", timeout,
			)
			return Endpoint{}, false
		case entry, ok := <-entries:
			if !ok {
				d.logger.Info("service discovery ended without a usable responder",
					"service", d.config.Service,
				)
				return Endpoint{}, false
			}
			endpoint, usable := endpointFrom(entry)
			if !usable {
				if entry != nil {
					d.logger.Debug("skipping responder without usable address",
						"instance", entry.Instance,
						"port", entry.Port,
					)
				}
				continue
			}
			d.logger.Info("orchestrator discovered",
				"instance", entry.Instance,
				"endpoint", endpoint.String(),
			)
			return endpoint, true
		}
	}
}

// endpointFrom picks the first routable IPv4 address, then the first
// IPv6 address that needs no zone.
func endpointFrom(entry *zeroconf.ServiceEntry) (Endpoint, bool) {
	if entry == nil || entry.Port <= 0 || entry.Port > 65535 {
		return Endpoint{}, false
	}
	for _, ip := range entry.AddrIPv4 {
		if usable(ip) {
			return Endpoint{Host: ip.String(), Port: entry.Port}, true
		}
	}
	for _, ip := range entry.AddrIPv6 {
		if usable(ip) && !ip.IsLinkLocalUnicast() {
			return Endpoint{Host: ip.String(), Port: entry.Port}, true
		}
	}
	return Endpoint{}, false
}

func usable(ip net.IP) bool {
	return ip != nil && !ip.IsUnspecified() && !ip.IsMulticast()
}
