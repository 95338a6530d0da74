// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

// OrchestratorState is the mutable behavior of a fake [Orchestrator].
// Zero values mean: healthy, turn replies with an empty JSON object,
// no manifest (404), no artifacts, no real-time signaling (404).
type OrchestratorState struct {
	HealthStatus int
	HealthDelay  time.Duration

	TurnStatus int
	TurnBody   string

	ManifestStatus int
	ManifestBody   string

	// Artifacts maps a name to the bytes served at /artifacts/{name}.
	Artifacts      map[string][]byte
	ArtifactStatus int

	// Answer produces the SDP answer for a posted offer. Nil makes
	// /webrtc/offer return 404.
	Answer func(offerSDP string) (string, error)
}

// RecordedRequest is one request the fake orchestrator received.
type RecordedRequest struct {
	Method        string
	Path          string
	Authorization string
	ContentType   string
	Body          []byte
}

// Orchestrator is an in-process fake of the orchestrator HTTP API.
type Orchestrator struct {
	Server *httptest.Server

	mu       sync.Mutex
	state    OrchestratorState
	requests []RecordedRequest
}

// NewOrchestrator starts a plain-HTTP fake orchestrator that is shut
// down when the test ends.
func NewOrchestrator(t testing.TB) *Orchestrator {
	t.Helper()
	orchestrator := &Orchestrator{}
	orchestrator.Server = httptest.NewServer(orchestrator.routes())
	t.Cleanup(orchestrator.Server.Close)
	return orchestrator
}

// NewTLSOrchestrator starts the fake behind a self-signed certificate,
// which is what a LAN orchestrator presents.
func NewTLSOrchestrator(t testing.TB) *Orchestrator {
	t.Helper()
	orchestrator := &Orchestrator{}
	orchestrator.Server = httptest.NewTLSServer(orchestrator.routes())
	t.Cleanup(orchestrator.Server.Close)
	return orchestrator
}

// URL is the base address of the fake.
func (o *Orchestrator) URL() string {
	return o.Server.URL
}

// Configure mutates the fake's behavior under its lock.
func (o *Orchestrator) Configure(mutate func(state *OrchestratorState)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	mutate(&o.state)
}

// Requests returns the recorded requests for path, oldest first.
func (o *Orchestrator) Requests(path string) []RecordedRequest {
	o.mu.Lock()
	defer o.mu.Unlock()
	var matched []RecordedRequest
	for _, request := range o.requests {
		if request.Path == path {
			matched = append(matched, request)
		}
	}
	return matched
}

func (o *Orchestrator) snapshot() OrchestratorState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) routes() http.Handler {
	router := chi.NewRouter()
	router.Use(o.record)
	router.Get("/health", o.handleHealth)
	router.Post("/turn", o.handleTurn)
	router.Get("/updates/manifest.json", o.handleManifest)
	router.Get("/artifacts/{name}", o.handleArtifact)
	router.Post("/webrtc/offer", o.handleOffer)
	return router
}

func (o *Orchestrator) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		body, _ := io.ReadAll(request.Body)
		request.Body.Close()
		request.Body = io.NopCloser(bytes.NewReader(body))

		o.mu.Lock()
		o.requests = append(o.requests, RecordedRequest{
			Method:        request.Method,
			Path:          request.URL.Path,
			Authorization: request.Header.Get("Authorization"),
			ContentType:   request.Header.Get("Content-Type"),
			Body:          body,
		})
		o.mu.Unlock()

		next.ServeHTTP(writer, request)
	})
}

func (o *Orchestrator) handleHealth(writer http.ResponseWriter, request *http.Request) {
	state := o.snapshot()
	if state.HealthDelay > 0 {
		select {
		case <-time.After(state.HealthDelay):
		case <-request.Context().Done():
			return
		}
	}
	writer.WriteHeader(statusOr(state.HealthStatus, http.StatusOK))
	io.WriteString(writer, `{"status":"ok"}`)
}

func (o *Orchestrator) handleTurn(writer http.ResponseWriter, request *http.Request) {
	state := o.snapshot()
	status := statusOr(state.TurnStatus, http.StatusOK)
	body := state.TurnBody
	if body == "" && status == http.StatusOK {
		body = "{}"
	}
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	io.WriteString(writer, body)
}

func (o *Orchestrator) handleManifest(writer http.ResponseWriter, request *http.Request) {
	state := o.snapshot()
	if state.ManifestBody == "" {
		http.NotFound(writer, request)
		return
	}
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(statusOr(state.ManifestStatus, http.StatusOK))
	io.WriteString(writer, state.ManifestBody)
}

func (o *Orchestrator) handleArtifact(writer http.ResponseWriter, request *http.Request) {
	state := o.snapshot()
	if state.ArtifactStatus != 0 && state.ArtifactStatus != http.StatusOK {
		http.Error(writer, "artifact unavailable", state.ArtifactStatus)
		return
	}
	data, ok := state.Artifacts[chi.URLParam(request, "name")]
	if !ok {
		http.NotFound(writer, request)
		return
	}
	writer.Header().Set("Content-Type", "application/octet-stream")
	writer.Write(data)
}

func (o *Orchestrator) handleOffer(writer http.ResponseWriter, request *http.Request) {
	state := o.snapshot()
	if state.Answer == nil {
		http.NotFound(writer, request)
		return
	}
	var offer struct {
		Type string `json:"type"`
		SDP  string `json:"sdp"`
	}
	if err := json.NewDecoder(request.Body).Decode(&offer); err != nil {
		http.Error(writer, err.Error(), http.StatusBadRequest)
		return
	}
	answer, err := state.Answer(offer.SDP)
	if err != nil {
		http.Error(writer, err.Error(), http.StatusInternalServerError)
		return
	}
	writer.Header().Set("Content-Type", "application/json")
	json.NewEncoder(writer).Encode(map[string]string{"type": "answer", "sdp": answer})
}

func statusOr(status, fallback int) int {
	if status == 0 {
		return fallback
	}
	return status
}
