package reconcile

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/MerlinD690/dashsac/internal/storage"
	"github.com/MerlinD690/dashsac/internal/types"
)

// ChatFetcher is the subset of the TomTicket client the engine needs
type ChatFetcher interface {
	FetchActiveChats(ctx context.Context) ([]types.TicketSnapshot, error)
}

// Engine merges external chat assignments into stored agent records.
//
// The merge trusts the external source: ActiveClients is overwritten, not
// diffed, so a human change made between cycles survives at most one sync
// interval. TomTicket is ground truth for concurrent load.
type Engine struct {
	agents      storage.AgentStore
	chats       ChatFetcher
	bumpHandled bool // alternative policy: count load increases as handled clients
	logger      zerolog.Logger
	now         func() time.Time
}

// NewEngine creates a reconciliation engine
func NewEngine(agents storage.AgentStore, chats ChatFetcher, bumpHandled bool, logger zerolog.Logger) *Engine {
	return &Engine{
		agents:      agents,
		chats:       chats,
		bumpHandled: bumpHandled,
		logger:      logger.With().Str("component", "reconcile").Logger(),
		now:         time.Now,
	}
}

// CycleResult summarizes one reconciliation pass
type CycleResult struct {
	ActiveChats   int `json:"activeChats"`
	AgentsChecked int `json:"agentsChecked"`
	AgentsUpdated int `json:"agentsUpdated"`
	FailedWrites  int `json:"failedWrites"`
}

// CountByOperator folds a chat list into per-operator active counts.
// Matching is case-sensitive; chats without an operator are ignored.
func CountByOperator(chats []types.TicketSnapshot) map[string]int {
	counts := make(map[string]int)
	for _, chat := range chats {
		if chat.OperatorName == "" {
			continue
		}
		counts[chat.OperatorName]++
	}
	return counts
}

// RunCycle fetches the chat list and applies the per-agent merge. A fetch
// failure leaves every agent record untouched. Write failures are per-agent:
// the failing agent is skipped and the rest of the batch still applies.
func (e *Engine) RunCycle(ctx context.Context) (CycleResult, error) {
	chats, err := e.chats.FetchActiveChats(ctx)
	if err != nil {
		return CycleResult{}, err
	}

	counts := CountByOperator(chats)

	agents, err := e.agents.GetAllAgents(ctx)
	if err != nil {
		return CycleResult{}, err
	}

	result := CycleResult{
		ActiveChats:   len(chats),
		AgentsChecked: len(agents),
	}

	for _, agent := range agents {
		newCount := 0
		if agent.ExternalName != "" {
			newCount = counts[agent.ExternalName]
		}
		if newCount > types.MaxConcurrentClients {
			e.logger.Warn().
				Str("agent", agent.Name).
				Int("external_count", newCount).
				Msg("external count exceeds limit, clamping")
			newCount = types.MaxConcurrentClients
		}

		if newCount == agent.ActiveClients {
			continue
		}

		// A paused or unavailable agent must keep zero load. The external
		// count cannot be applied until a human resolves the conflict.
		if newCount > 0 && (agent.IsOnPause || !agent.IsAvailable) {
			e.logger.Warn().
				Str("agent", agent.Name).
				Int("external_count", newCount).
				Bool("on_pause", agent.IsOnPause).
				Bool("available", agent.IsAvailable).
				Msg("external chats assigned to paused/unavailable agent, skipping")
			continue
		}

		if e.bumpHandled && newCount > agent.ActiveClients {
			agent.TotalClientsHandled += newCount - agent.ActiveClients
		}
		agent.ActiveClients = newCount
		if newCount > 0 {
			agent.LastInteractionTime = e.now()
		}

		if err := e.agents.UpdateAgent(ctx, agent); err != nil {
			e.logger.Error().Err(err).Str("agent", agent.Name).Msg("reconciliation write failed, skipping agent")
			result.FailedWrites++
			continue
		}

		e.logger.Info().
			Str("agent", agent.Name).
			Int("active_clients", newCount).
			Msg("agent reconciled from chat list")
		result.AgentsUpdated++
	}

	return result, nil
}
