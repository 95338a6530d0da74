// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

package pairing

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/intamia/beacon/lib/sessionconfig"
)

const (
	scheme = "sos"
	action = "pair"
)

// Claims are the inspected (not verified) claims of a JWT pairing
// token.
type Claims struct {
	Subject   string
	Role      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Pairing is a parsed pairing URI.
type Pairing struct {
	Token string
	// BaseAddress is empty when the URI names no orchestrator.
	BaseAddress string
	// Claims is nil for opaque (non-JWT) tokens.
	Claims *Claims
}

// Expired reports whether the token carries an expiry at or before now.
func (p Pairing) Expired(now time.Time) bool {
	return p.Claims != nil && !p.Claims.ExpiresAt.IsZero() && !now.Before(p.Claims.ExpiresAt)
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// Parse validates a pairing URI.
func Parse(raw string) (Pairing, error) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return Pairing{}, fmt.Errorf("parsing pairing URI: %w", err)
	}
	if parsed.Scheme != scheme {
		return Pairing{}, fmt.Errorf("pairing URI scheme %q, want %q", parsed.Scheme, scheme)
	}
	if parsed.Host != action && parsed.Opaque != action {
		return Pairing{}, fmt.Errorf("pairing URI action %q, want %q", parsed.Host+parsed.Opaque, action)
	}

	query := parsed.Query()
	pairing := Pairing{Token: strings.TrimSpace(query.Get("token"))}
	if pairing.Token == "" {
		return Pairing{}, errors.New("pairing URI has no token")
	}
	if base := query.Get("url"); base != "" {
		normalized, err := sessionconfig.ParseBaseAddress(base)
		if err != nil {
			return Pairing{}, fmt.Errorf("pairing URI: %w", err)
		}
		pairing.BaseAddress = normalized.String()
	}
	pairing.Claims = inspect(pairing.Token)
	return pairing, nil
}

// inspect decodes JWT claims without verifying the signature. Tokens
// that are not JWTs yield nil.
func inspect(token string) *Claims {
	if strings.Count(token, ".") != 2 {
		return nil
	}
	var claims tokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil
	}
	inspected := &Claims{Subject: claims.Subject, Role: claims.Role}
	if claims.IssuedAt != nil {
		inspected.IssuedAt = claims.IssuedAt.UTC()
	}
	if claims.ExpiresAt != nil {
		inspected.ExpiresAt = claims.ExpiresAt.UTC()
	}
	return inspected
}

// Apply stores the pairing's token, and its base address when present.
// An expired token is refused and nothing is written.
func Apply(ctx context.Context, settings *sessionconfig.Config, pairing Pairing, now time.Time) error {
	if pairing.Expired(now) {
		return fmt.Errorf("pairing token expired at %s", pairing.Claims.ExpiresAt.Format(time.RFC3339))
	}
	if pairing.BaseAddress != "" {
		if err := settings.SetBaseAddress(ctx, pairing.BaseAddress); err != nil {
			return err
		}
	}
	return settings.SetToken(ctx, pairing.Token)
}
