package agentstate

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/MerlinD690/dashsac/internal/storage"
	"github.com/MerlinD690/dashsac/internal/types"
)

func newTestMachine(t *testing.T, agents ...types.Agent) (*Machine, *storage.MemoryStore) {
	t.Helper()

	store := storage.NewMemoryStore()
	if err := store.BatchInsertAgents(context.Background(), agents); err != nil {
		t.Fatalf("failed to seed agents: %v", err)
	}
	return NewMachine(store, store, zerolog.Nop()), store
}

func baseAgent() types.Agent {
	return types.Agent{
		ID:                  "agent-1",
		Name:                "Beatriz",
		ExternalName:        "Beatriz",
		IsAvailable:         true,
		LastInteractionTime: time.Date(2026, 3, 10, 9, 0, 0, 0, time.Local),
	}
}

func TestSetActiveClientsIncrement(t *testing.T) {
	agent := baseAgent()
	agent.ActiveClients = 1
	agent.TotalClientsHandled = 4
	agent.AvgTimePerClient = 10.0

	machine, _ := newTestMachine(t, agent)
	// 20 minutes after the last interaction
	machine.now = func() time.Time { return agent.LastInteractionTime.Add(20 * time.Minute) }

	updated, err := machine.SetActiveClients(context.Background(), "agent-1", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if updated.ActiveClients != 2 {
		t.Errorf("expected 2 active clients, got %d", updated.ActiveClients)
	}
	if updated.TotalClientsHandled != 5 {
		t.Errorf("expected 5 total handled, got %d", updated.TotalClientsHandled)
	}
	// (10*4 + 20) / 5 = 12
	if math.Abs(updated.AvgTimePerClient-12.0) > 1e-9 {
		t.Errorf("expected avg 12.0, got %f", updated.AvgTimePerClient)
	}
	if !updated.LastInteractionTime.Equal(machine.now()) {
		t.Errorf("expected last interaction to be refreshed")
	}
}

func TestSetActiveClientsDecrement(t *testing.T) {
	agent := baseAgent()
	agent.ActiveClients = 2
	agent.TotalClientsHandled = 7
	agent.AvgTimePerClient = 8.5

	machine, _ := newTestMachine(t, agent)

	updated, err := machine.SetActiveClients(context.Background(), "agent-1", -1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if updated.ActiveClients != 1 {
		t.Errorf("expected 1 active client, got %d", updated.ActiveClients)
	}
	// Decrement must not touch the counters
	if updated.TotalClientsHandled != 7 {
		t.Errorf("expected total handled unchanged at 7, got %d", updated.TotalClientsHandled)
	}
	if updated.AvgTimePerClient != 8.5 {
		t.Errorf("expected avg unchanged at 8.5, got %f", updated.AvgTimePerClient)
	}
}

func TestSetActiveClientsRejections(t *testing.T) {
	tests := []struct {
		name  string
		setup func(a *types.Agent)
		delta int
	}{
		{
			name:  "delta zero",
			setup: func(a *types.Agent) {},
			delta: 0,
		},
		{
			name:  "delta too large",
			setup: func(a *types.Agent) {},
			delta: 2,
		},
		{
			name:  "below zero",
			setup: func(a *types.Agent) { a.ActiveClients = 0 },
			delta: -1,
		},
		{
			name:  "above limit",
			setup: func(a *types.Agent) { a.ActiveClients = types.MaxConcurrentClients },
			delta: 1,
		},
		{
			name: "on pause",
			setup: func(a *types.Agent) {
				now := time.Now()
				a.IsOnPause = true
				a.PauseStartTime = &now
			},
			delta: 1,
		},
		{
			name:  "unavailable",
			setup: func(a *types.Agent) { a.IsAvailable = false },
			delta: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agent := baseAgent()
			tt.setup(&agent)
			machine, store := newTestMachine(t, agent)

			_, err := machine.SetActiveClients(context.Background(), "agent-1", tt.delta)
			if !errors.Is(err, ErrInvalidTransition) {
				t.Fatalf("expected ErrInvalidTransition, got %v", err)
			}

			// The stored record must be untouched after a rejection
			stored, _ := store.GetAgent(context.Background(), "agent-1")
			if stored.ActiveClients != agent.ActiveClients {
				t.Errorf("rejected transition mutated the store")
			}
		})
	}
}

func TestSetActiveClientsUnknownAgent(t *testing.T) {
	machine, _ := newTestMachine(t, baseAgent())

	_, err := machine.SetActiveClients(context.Background(), "missing", 1)
	if !errors.Is(err, storage.ErrAgentNotFound) {
		t.Fatalf("expected ErrAgentNotFound, got %v", err)
	}
}

func TestSetAvailability(t *testing.T) {
	agent := baseAgent()
	machine, _ := newTestMachine(t, agent)

	updated, err := machine.SetAvailability(context.Background(), "agent-1", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.IsAvailable {
		t.Error("expected agent to be unavailable")
	}

	updated, err = machine.SetAvailability(context.Background(), "agent-1", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !updated.IsAvailable {
		t.Error("expected agent to be available again")
	}
}

func TestSetAvailabilityRejectsActiveLoad(t *testing.T) {
	agent := baseAgent()
	agent.ActiveClients = 3
	machine, _ := newTestMachine(t, agent)

	_, err := machine.SetAvailability(context.Background(), "agent-1", false)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestTogglePauseRoundTrip(t *testing.T) {
	agent := baseAgent()
	machine, store := newTestMachine(t, agent)

	pauseStart := time.Date(2026, 3, 10, 12, 0, 0, 0, time.Local)
	machine.now = func() time.Time { return pauseStart }

	paused, log, err := machine.TogglePause(context.Background(), "agent-1")
	if err != nil {
		t.Fatalf("unexpected error entering pause: %v", err)
	}
	if log != nil {
		t.Error("entering pause must not emit a log")
	}
	if !paused.IsOnPause {
		t.Error("expected agent to be paused")
	}
	if paused.PauseStartTime == nil || !paused.PauseStartTime.Equal(pauseStart) {
		t.Errorf("expected pause start %v, got %v", pauseStart, paused.PauseStartTime)
	}

	// Leave pause 5 minutes later
	machine.now = func() time.Time { return pauseStart.Add(5 * time.Minute) }

	resumed, log, err := machine.TogglePause(context.Background(), "agent-1")
	if err != nil {
		t.Fatalf("unexpected error leaving pause: %v", err)
	}
	if resumed.IsOnPause {
		t.Error("expected agent to be resumed")
	}
	if resumed.PauseStartTime != nil {
		t.Error("expected pause start to be cleared")
	}
	if log == nil {
		t.Fatal("leaving pause must emit a log")
	}
	if log.AgentName != "Beatriz" {
		t.Errorf("expected log for Beatriz, got %s", log.AgentName)
	}
	if log.Duration() != 5*time.Minute {
		t.Errorf("expected 5m pause, got %v", log.Duration())
	}
	if log.DateKey != pauseStart.Format(types.DateKeyFormat) {
		t.Errorf("expected date key %s, got %s", pauseStart.Format(types.DateKeyFormat), log.DateKey)
	}

	// Exactly one log persisted
	logs, err := store.PauseLogsInRange(context.Background(), pauseStart.Add(-time.Hour), pauseStart.Add(time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected 1 pause log, got %d", len(logs))
	}
}

func TestTogglePauseRejections(t *testing.T) {
	t.Run("with active clients", func(t *testing.T) {
		agent := baseAgent()
		agent.ActiveClients = 1
		machine, _ := newTestMachine(t, agent)

		_, _, err := machine.TogglePause(context.Background(), "agent-1")
		if !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition, got %v", err)
		}
	})

	t.Run("while unavailable", func(t *testing.T) {
		agent := baseAgent()
		agent.IsAvailable = false
		machine, _ := newTestMachine(t, agent)

		_, _, err := machine.TogglePause(context.Background(), "agent-1")
		if !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition, got %v", err)
		}
	})
}

func TestSetActiveClientsClockSkew(t *testing.T) {
	agent := baseAgent()
	agent.TotalClientsHandled = 2
	agent.AvgTimePerClient = 6.0
	machine, _ := newTestMachine(t, agent)

	// Clock behind the last interaction: elapsed clamps to zero
	machine.now = func() time.Time { return agent.LastInteractionTime.Add(-time.Minute) }

	updated, err := machine.SetActiveClients(context.Background(), "agent-1", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// (6*2 + 0) / 3 = 4
	if math.Abs(updated.AvgTimePerClient-4.0) > 1e-9 {
		t.Errorf("expected avg 4.0, got %f", updated.AvgTimePerClient)
	}
}
