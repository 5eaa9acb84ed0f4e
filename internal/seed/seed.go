package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MerlinD690/dashsac/internal/storage"
	"github.com/MerlinD690/dashsac/internal/types"
)

// agentNames is the production roster. ExternalName doubles as the TomTicket
// operator identity, so it must match the name registered there.
var agentNames = []string{
	"Beatriz",
	"Valquiria",
	"Larissa",
	"Sophia",
	"Lays",
	"Flaviane",
	"Juliana",
	"Laura",
	"Camila",
	"Giovanna",
}

// DefaultAgents returns the seed roster with all counters at zero
func DefaultAgents() []types.Agent {
	now := time.Now()
	agents := make([]types.Agent, 0, len(agentNames))
	for _, name := range agentNames {
		agents = append(agents, types.Agent{
			ID:                  uuid.New().String(),
			Name:                name,
			ExternalName:        name,
			IsAvailable:         true,
			LastInteractionTime: now,
		})
	}
	return agents
}

// ClearAndSeed replaces the whole agent set: existing records are removed as
// one batch, then the new roster is inserted as one batch, so readers never
// see a half-deleted, half-seeded collection.
func ClearAndSeed(ctx context.Context, store storage.AgentStore, agents []types.Agent) error {
	existing, err := store.GetAllAgents(ctx)
	if err != nil {
		return fmt.Errorf("loading existing agents: %w", err)
	}

	if len(existing) > 0 {
		ids := make([]string, 0, len(existing))
		for _, agent := range existing {
			ids = append(ids, agent.ID)
		}
		if err := store.BatchDeleteAgents(ctx, ids); err != nil {
			return fmt.Errorf("clearing agents: %w", err)
		}
	}

	if err := store.BatchInsertAgents(ctx, agents); err != nil {
		return fmt.Errorf("seeding agents: %w", err)
	}
	return nil
}

// EnsureSeeded seeds the default roster only when the store is empty
func EnsureSeeded(ctx context.Context, store storage.AgentStore) (int, error) {
	existing, err := store.GetAllAgents(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}

	agents := DefaultAgents()
	if err := store.BatchInsertAgents(ctx, agents); err != nil {
		return 0, err
	}
	return len(agents), nil
}
