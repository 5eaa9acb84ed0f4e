package queue

import (
	"github.com/MerlinD690/dashsac/internal/types"
)

// SelectNextAgent picks the best candidate to receive a new client: among
// agents that are available, not paused and fully idle, the one with the
// oldest LastInteractionTime wins. Returns nil when no agent qualifies.
//
// Pure function over the given slice; recomputed on demand, never persisted.
func SelectNextAgent(agents []types.Agent) *types.Agent {
	var oldest *types.Agent
	for i := range agents {
		agent := &agents[i]
		if !agent.IsAvailable || agent.IsOnPause || agent.ActiveClients != 0 {
			continue
		}
		if oldest == nil || agent.LastInteractionTime.Before(oldest.LastInteractionTime) {
			oldest = agent
		}
	}
	return oldest
}
