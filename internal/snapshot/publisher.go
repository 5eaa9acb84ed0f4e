package snapshot

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/MerlinD690/dashsac/internal/metrics"
	"github.com/MerlinD690/dashsac/internal/queue"
	"github.com/MerlinD690/dashsac/internal/reconcile"
	"github.com/MerlinD690/dashsac/internal/types"
)

// DashboardSnapshot is the single payload pushed to dashboard clients on
// every confirmed store change
type DashboardSnapshot struct {
	Type        string               `json:"type"` // always "snapshot"
	Timestamp   time.Time            `json:"timestamp"`
	Agents      []types.Agent        `json:"agents"`
	NextAgentID string               `json:"nextAgentId,omitempty"`
	Sync        reconcile.SyncStatus `json:"sync"`
}

// Broadcaster is the subset of the websocket hub the publisher needs
type Broadcaster interface {
	Broadcast(message []byte)
	ClientCount() int
}

// StatusSource supplies the current sync-loop status for the UI banner
type StatusSource interface {
	Status() reconcile.SyncStatus
}

// Publisher turns store change notifications into dashboard broadcasts.
// Wired as a storage.OnChange subscriber: the agents it receives are always
// store-confirmed, superseding any optimistic client-side value.
type Publisher struct {
	hub    Broadcaster
	status StatusSource
	logger zerolog.Logger
}

// NewPublisher creates a snapshot publisher
func NewPublisher(hub Broadcaster, status StatusSource, logger zerolog.Logger) *Publisher {
	return &Publisher{
		hub:    hub,
		status: status,
		logger: logger.With().Str("component", "snapshot").Logger(),
	}
}

// OnAgentsChanged builds and broadcasts a snapshot from the confirmed agent set
func (p *Publisher) OnAgentsChanged(agents []types.Agent) {
	metrics.Get().UpdateAgentStats(agents)

	snapshot := DashboardSnapshot{
		Type:      "snapshot",
		Timestamp: time.Now(),
		Agents:    agents,
	}
	if next := queue.SelectNextAgent(agents); next != nil {
		snapshot.NextAgentID = next.ID
	}
	if p.status != nil {
		snapshot.Sync = p.status.Status()
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		p.logger.Error().Err(err).Msg("failed to marshal dashboard snapshot")
		return
	}

	p.hub.Broadcast(data)
	p.logger.Debug().
		Int("agents", len(agents)).
		Int("clients", p.hub.ClientCount()).
		Msg("snapshot broadcasted")
}
