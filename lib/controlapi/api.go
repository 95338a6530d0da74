// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

package controlapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/intamia/beacon/lib/clock"
	"github.com/intamia/beacon/lib/netutil"
	"github.com/intamia/beacon/lib/session"
	"github.com/intamia/beacon/lib/sessionconfig"
	"github.com/intamia/beacon/lib/update"
	"github.com/intamia/beacon/lib/version"
)

// DefaultKeepalive is the events stream ping interval.
const DefaultKeepalive = 20 * time.Second

// Runner is the session surface the API drives. *session.Runner
// satisfies it.
type Runner interface {
	Start() (session.Claimed, error)
	Active() bool
	Last() (session.Outcome, bool)
}

// UpdateChecker runs an update check. *update.Manager satisfies it.
type UpdateChecker interface {
	Check(ctx context.Context) update.CheckResult
}

// Config wires an API. Updates may be nil, which makes the update
// route answer 503.
type Config struct {
	Runner    Runner
	Settings  *sessionconfig.Config
	Updates   UpdateChecker
	Hub       *Hub
	Keepalive time.Duration
	Clock     clock.Clock
	Logger    *slog.Logger
}

// API serves the control routes.
type API struct {
	config Config
	logger *slog.Logger

	// sessions tracks background sessions started by POST /v1/sos.
	sessions sync.WaitGroup
}

// New returns an API. Runner, Settings, Hub and Logger are required.
func New(config Config) *API {
	if config.Runner == nil || config.Settings == nil || config.Hub == nil || config.Logger == nil {
		panic("controlapi: Runner, Settings, Hub and Logger are required")
	}
	if config.Keepalive <= 0 {
		config.Keepalive = DefaultKeepalive
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	return &API{config: config, logger: config.Logger}
}

// Handler returns the router. Background sessions run under ctx, so
// cancelling it cancels sessions started without ?wait.
func (a *API) Handler(ctx context.Context) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(a.logRequests)

	router.Route("/v1", func(r chi.Router) {
		r.Post("/sos", func(w http.ResponseWriter, req *http.Request) { a.handleSOS(ctx, w, req) })
		r.Get("/status", a.handleStatus)
		r.Post("/update/check", a.handleUpdateCheck)
		r.Get("/events", a.handleEvents)
	})
	return router
}

// Wait blocks until background sessions have finished.
func (a *API) Wait() {
	a.sessions.Wait()
}

func (a *API) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrapped := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(wrapped, r)
		a.logger.Debug("control request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

type statusResponse struct {
	Config  sessionconfig.Snapshot `json:"config"`
	Active  bool                   `json:"active"`
	Last    *session.Outcome       `json:"last,omitempty"`
	Version string                 `json:"version"`
}

func (a *API) handleStatus(w http.ResponseWriter, r *http.Request) {
	response := statusResponse{
		Config:  a.config.Settings.Snapshot(),
		Active:  a.config.Runner.Active(),
		Version: version.Info(),
	}
	if last, ok := a.config.Runner.Last(); ok {
		response.Last = &last
	}
	writeJSON(w, http.StatusOK, response)
}

// handleSOS claims the runner before answering, so 202 means the
// session holds the slot and a concurrent request gets 409.
func (a *API) handleSOS(serverCtx context.Context, w http.ResponseWriter, r *http.Request) {
	claimed, err := a.config.Runner.Start()
	if err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}

	if r.URL.Query().Get("wait") == "true" {
		outcome, err := claimed(r.Context())
		if err != nil {
			writeJSON(w, http.StatusBadGateway, outcome)
			return
		}
		writeJSON(w, http.StatusOK, outcome)
		return
	}

	a.sessions.Add(1)
	go func() {
		defer a.sessions.Done()
		if _, err := claimed(serverCtx); err != nil {
			a.logger.Warn("background session failed", "error", err)
		}
	}()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (a *API) handleUpdateCheck(w http.ResponseWriter, r *http.Request) {
	if a.config.Updates == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("updates are not configured"))
		return
	}
	writeJSON(w, http.StatusOK, a.config.Updates.Check(r.Context()))
}

func (a *API) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		a.logger.Warn("events stream upgrade failed", "error", err)
		return
	}
	defer conn.CloseNow()

	statuses, cancel := a.config.Hub.Subscribe()
	defer cancel()

	// Nothing is read from the client; CloseRead handles control
	// frames and cancels ctx when the peer goes away.
	ctx := conn.CloseRead(r.Context())
	keepalive := a.config.Clock.NewTicker(a.config.Keepalive)
	defer keepalive.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case status, ok := <-statuses:
			if !ok {
				return
			}
			if err := a.write(ctx, conn, status); err != nil {
				if netutil.IsExpectedCloseError(err) || ctx.Err() != nil {
					a.logger.Debug("events subscriber went away", "error", err)
				} else {
					a.logger.Warn("events stream write failed", "error", err)
				}
				return
			}
		case <-keepalive.C:
			pingCtx, cancelPing := context.WithTimeout(ctx, a.config.Keepalive)
			err := conn.Ping(pingCtx)
			cancelPing()
			if err != nil {
				a.logger.Debug("events stream keepalive failed", "error", err)
				return
			}
		}
	}
}

func (a *API) write(ctx context.Context, conn *websocket.Conn, status session.Status) error {
	writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return wsjson.Write(writeCtx, conn, status)
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
