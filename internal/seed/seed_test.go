package seed

import (
	"context"
	"testing"

	"github.com/MerlinD690/dashsac/internal/storage"
	"github.com/MerlinD690/dashsac/internal/types"
)

func TestDefaultAgents(t *testing.T) {
	agents := DefaultAgents()

	if len(agents) != len(agentNames) {
		t.Fatalf("expected %d agents, got %d", len(agentNames), len(agents))
	}

	seen := make(map[string]bool)
	for _, agent := range agents {
		if agent.ID == "" {
			t.Error("expected generated ID")
		}
		if seen[agent.ID] {
			t.Errorf("duplicate ID %s", agent.ID)
		}
		seen[agent.ID] = true

		if !agent.IsAvailable {
			t.Errorf("agent %s should start available", agent.Name)
		}
		if agent.ActiveClients != 0 || agent.TotalClientsHandled != 0 {
			t.Errorf("agent %s should start with zeroed counters", agent.Name)
		}
		if agent.ExternalName != agent.Name {
			t.Errorf("agent %s: external name should default to name", agent.Name)
		}
	}
}

func TestEnsureSeeded(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()

	seeded, err := EnsureSeeded(ctx, store)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seeded != len(agentNames) {
		t.Errorf("expected %d seeded, got %d", len(agentNames), seeded)
	}

	// Second call is a no-op
	seeded, err = EnsureSeeded(ctx, store)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seeded != 0 {
		t.Errorf("expected no reseed on populated store, got %d", seeded)
	}
}

func TestClearAndSeed(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()

	// Existing roster with progress
	store.BatchInsertAgents(ctx, []types.Agent{
		{ID: "old", Name: "Antiga", TotalClientsHandled: 40},
	})

	fresh := DefaultAgents()
	if err := ClearAndSeed(ctx, store, fresh); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	agents, _ := store.GetAllAgents(ctx)
	if len(agents) != len(fresh) {
		t.Fatalf("expected %d agents, got %d", len(fresh), len(agents))
	}
	for _, agent := range agents {
		if agent.ID == "old" {
			t.Error("old roster should be gone")
		}
		if agent.TotalClientsHandled != 0 {
			t.Errorf("agent %s: expected zeroed counters", agent.Name)
		}
	}
}
