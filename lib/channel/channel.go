// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

package channel

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/klauspost/compress/gzhttp"
)

// TrustPolicy selects how server certificates are checked.
type TrustPolicy string

const (
	// TrustVerify performs standard certificate and hostname checks.
	TrustVerify TrustPolicy = "verify"
	// TrustAnyCertificate accepts any server certificate.
	TrustAnyCertificate TrustPolicy = "any"
)

// Profile selects a client's timeout behavior.
type Profile int

const (
	// ProfileProbe is for the short health probe.
	ProfileProbe Profile = iota
	// ProfileExchange is for turns, manifests and downloads.
	ProfileExchange
)

// Default timeouts.
const (
	DefaultConnectTimeout = 5 * time.Second
	DefaultReadTimeout    = 30 * time.Second
	DefaultProbeTimeout   = 2 * time.Second
)

// TokenSource supplies the bearer token at request time. An empty
// token means no Authorization header.
type TokenSource interface {
	Token() string
}

// StaticToken is a fixed TokenSource.
type StaticToken string

func (s StaticToken) Token() string { return string(s) }

// Config describes the channel. Zero timeouts take the defaults.
type Config struct {
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	ProbeTimeout   time.Duration

	// Trust is the certificate policy. Empty means TrustVerify.
	Trust TrustPolicy

	// CAFile is an optional PEM bundle added to the system roots under
	// TrustVerify. Pinning the orchestrator's self-signed certificate
	// here is the alternative to TrustAnyCertificate.
	CAFile string
}

// Factory hands out configured clients. Clients are built once and
// shared; they are safe for concurrent use.
type Factory struct {
	config   Config
	probe    *http.Client
	exchange *http.Client
}

// New builds a Factory.
func New(config Config, tokens TokenSource, logger *slog.Logger) (*Factory, error) {
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = DefaultConnectTimeout
	}
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = DefaultReadTimeout
	}
	if config.ProbeTimeout <= 0 {
		config.ProbeTimeout = DefaultProbeTimeout
	}
	if config.Trust == "" {
		config.Trust = TrustVerify
	}
	if tokens == nil {
		tokens = StaticToken("")
	}

	tlsConfig, err := buildTLSConfig(config)
	if err != nil {
		return nil, err
	}
	if config.Trust == TrustAnyCertificate {
		logger.Warn("orchestrator certificates are not verified",
			"trust", string(config.Trust),
			"note", "bearer token and LAN isolation are the only trust boundary",
		)
	}

	probeTransport := newTransport(config, tlsConfig, config.ProbeTimeout)
	exchangeTransport := newTransport(config, tlsConfig, config.ReadTimeout)

	return &Factory{
		config: config,
		probe: &http.Client{
			Transport: wrap(probeTransport, tokens),
			Timeout:   config.ProbeTimeout,
		},
		exchange: &http.Client{
			Transport: wrap(exchangeTransport, tokens),
		},
	}, nil
}

// Client returns the shared client for profile.
func (f *Factory) Client(profile Profile) *http.Client {
	if profile == ProfileProbe {
		return f.probe
	}
	return f.exchange
}

// Trust reports the factory's certificate policy.
func (f *Factory) Trust() TrustPolicy {
	return f.config.Trust
}

// ReadTimeout is the exchange profile's response timeout. Callers use
// it to size their own context deadlines.
func (f *Factory) ReadTimeout() time.Duration {
	return f.config.ReadTimeout
}

func buildTLSConfig(config Config) (*tls.Config, error) {
	switch config.Trust {
	case TrustAnyCertificate:
		return &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: true, //nolint:gosec // explicit LAN trust policy, see package doc
		}, nil
	case TrustVerify:
		tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}
		if config.CAFile == "" {
			return tlsConfig, nil
		}
		pem, err := os.ReadFile(config.CAFile)
		if err != nil {
			return nil, fmt.Errorf("reading CA bundle: %w", err)
		}
		roots, err := x509.SystemCertPool()
		if err != nil || roots == nil {
			roots = x509.NewCertPool()
		}
		if !roots.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("CA bundle %s contains no certificates", config.CAFile)
		}
		tlsConfig.RootCAs = roots
		return tlsConfig, nil
	default:
		return nil, fmt.Errorf("unknown trust policy %q (want %q or %q)", config.Trust, TrustVerify, TrustAnyCertificate)
	}
}

func newTransport(config Config, tlsConfig *tls.Config, responseTimeout time.Duration) *http.Transport {
	dialer := &net.Dialer{Timeout: config.ConnectTimeout, KeepAlive: 30 * time.Second}
	return &http.Transport{
		Proxy:                 nil,
		DialContext:           dialer.DialContext,
		TLSClientConfig:       tlsConfig.Clone(),
		TLSHandshakeTimeout:   config.ConnectTimeout,
		ResponseHeaderTimeout: responseTimeout,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          4,
		IdleConnTimeout:       90 * time.Second,
	}
}

func wrap(base http.RoundTripper, tokens TokenSource) http.RoundTripper {
	return &bearerTransport{next: gzhttp.Transport(base), tokens: tokens}
}

// bearerTransport attaches the current token to each request.
type bearerTransport struct {
	next   http.RoundTripper
	tokens TokenSource
}

func (t *bearerTransport) RoundTrip(request *http.Request) (*http.Response, error) {
	token := t.tokens.Token()
	if token == "" {
		return t.next.RoundTrip(request)
	}
	authorized := request.Clone(request.Context())
	authorized.Header.Set("Authorization", "Bearer "+token)
	return t.next.RoundTrip(authorized)
}
