package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/MerlinD690/dashsac/internal/agentstate"
	"github.com/MerlinD690/dashsac/internal/storage"
	"github.com/MerlinD690/dashsac/internal/types"
)

func newActionsRouter(t *testing.T, agents ...types.Agent) (*chi.Mux, *storage.MemoryStore) {
	t.Helper()

	store := storage.NewMemoryStore()
	if err := store.BatchInsertAgents(context.Background(), agents); err != nil {
		t.Fatalf("failed to seed: %v", err)
	}

	machine := agentstate.NewMachine(store, store, zerolog.Nop())
	handler := NewActionsHandler(machine, zerolog.Nop())

	r := chi.NewRouter()
	r.Post("/api/agents/{agentId}/clients", handler.SetActiveClients)
	r.Post("/api/agents/{agentId}/availability", handler.SetAvailability)
	r.Post("/api/agents/{agentId}/pause", handler.TogglePause)
	return r, store
}

func availableAgent(id string) types.Agent {
	return types.Agent{
		ID:                  id,
		Name:                "Beatriz",
		IsAvailable:         true,
		LastInteractionTime: time.Now(),
	}
}

func TestSetActiveClientsEndpoint(t *testing.T) {
	router, _ := newActionsRouter(t, availableAgent("a1"))

	req := httptest.NewRequest(http.MethodPost, "/api/agents/a1/clients", strings.NewReader(`{"delta": 1}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var agent types.Agent
	if err := json.Unmarshal(rec.Body.Bytes(), &agent); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if agent.ActiveClients != 1 {
		t.Errorf("expected 1 active client, got %d", agent.ActiveClients)
	}
	if agent.TotalClientsHandled != 1 {
		t.Errorf("expected 1 handled, got %d", agent.TotalClientsHandled)
	}
}

func TestSetActiveClientsEndpointRejections(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		expectedStatus int
	}{
		{"invalid body", `not json`, http.StatusBadRequest},
		{"decrement below zero", `{"delta": -1}`, http.StatusConflict},
		{"delta out of range", `{"delta": 3}`, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _ := newActionsRouter(t, availableAgent("a1"))

			req := httptest.NewRequest(http.MethodPost, "/api/agents/a1/clients", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Errorf("expected %d, got %d: %s", tt.expectedStatus, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestActionsEndpointUnknownAgent(t *testing.T) {
	router, _ := newActionsRouter(t, availableAgent("a1"))

	req := httptest.NewRequest(http.MethodPost, "/api/agents/missing/clients", strings.NewReader(`{"delta": 1}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestTogglePauseEndpoint(t *testing.T) {
	router, _ := newActionsRouter(t, availableAgent("a1"))

	// Enter pause
	req := httptest.NewRequest(http.MethodPost, "/api/agents/a1/pause", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 entering pause, got %d: %s", rec.Code, rec.Body.String())
	}

	var enterResp struct {
		Agent    types.Agent     `json:"agent"`
		PauseLog *types.PauseLog `json:"pauseLog"`
	}
	json.Unmarshal(rec.Body.Bytes(), &enterResp)
	if !enterResp.Agent.IsOnPause {
		t.Error("expected agent paused")
	}
	if enterResp.PauseLog != nil {
		t.Error("entering pause must not return a log")
	}

	// Leave pause
	req = httptest.NewRequest(http.MethodPost, "/api/agents/a1/pause", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 leaving pause, got %d", rec.Code)
	}

	var leaveResp struct {
		Agent    types.Agent     `json:"agent"`
		PauseLog *types.PauseLog `json:"pauseLog"`
	}
	json.Unmarshal(rec.Body.Bytes(), &leaveResp)
	if leaveResp.Agent.IsOnPause {
		t.Error("expected agent resumed")
	}
	if leaveResp.PauseLog == nil {
		t.Error("leaving pause must return the log")
	}
}

func TestTogglePauseEndpointConflict(t *testing.T) {
	agent := availableAgent("a1")
	agent.ActiveClients = 2
	router, _ := newActionsRouter(t, agent)

	req := httptest.NewRequest(http.MethodPost, "/api/agents/a1/pause", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}

	var resp map[string]string
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if !strings.Contains(resp["error"], "active clients") {
		t.Errorf("expected specific rejection message, got %q", resp["error"])
	}
}

func TestSetAvailabilityEndpoint(t *testing.T) {
	router, store := newActionsRouter(t, availableAgent("a1"))

	req := httptest.NewRequest(http.MethodPost, "/api/agents/a1/availability", strings.NewReader(`{"available": false}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	stored, _ := store.GetAgent(context.Background(), "a1")
	if stored.IsAvailable {
		t.Error("expected agent stored as unavailable")
	}
}
