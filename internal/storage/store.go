package storage

import (
	"context"
	"errors"
	"time"

	"github.com/MerlinD690/dashsac/internal/types"
)

// ErrAgentNotFound is returned when an agent ID does not exist in the store.
var ErrAgentNotFound = errors.New("agent not found")

// AgentStore holds the durable agent records. The store is the single source
// of truth: every mutation path (human actions, reconciliation) writes here
// and readers are corrected by change notifications, never by local caches.
type AgentStore interface {
	GetAllAgents(ctx context.Context) ([]types.Agent, error)
	GetAgent(ctx context.Context, id string) (types.Agent, error)
	// UpdateAgent replaces the whole record in one write; partial states are
	// never visible to readers.
	UpdateAgent(ctx context.Context, agent types.Agent) error
	BatchInsertAgents(ctx context.Context, agents []types.Agent) error
	BatchDeleteAgents(ctx context.Context, ids []string) error
}

// PauseLogStore persists immutable pause intervals.
type PauseLogStore interface {
	InsertPauseLog(ctx context.Context, log types.PauseLog) error
	PauseLogsInRange(ctx context.Context, start, end time.Time) ([]types.PauseLog, error)
}

// ReportStore persists one DailyReport per calendar day.
type ReportStore interface {
	UpsertDailyReport(ctx context.Context, report types.DailyReport) error
	ListRecentReports(ctx context.Context, n int) ([]types.DailyReport, error)
}

// Store combines all persistence concerns
type Store interface {
	AgentStore
	PauseLogStore
	ReportStore
	TruncateAll(ctx context.Context) error
}
