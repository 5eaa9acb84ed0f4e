package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/MerlinD690/dashsac/internal/types"
)

// MemoryStore is an in-process Store used for development and tests.
// Batch operations hold the lock for their whole duration, so readers never
// observe a half-deleted, half-seeded collection.
type MemoryStore struct {
	agents  map[string]types.Agent
	pauses  []types.PauseLog
	reports map[string]types.DailyReport // date -> report
	mu      sync.RWMutex
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		agents:  make(map[string]types.Agent),
		reports: make(map[string]types.DailyReport),
	}
}

// GetAllAgents returns all agents sorted by name for stable ordering
func (s *MemoryStore) GetAllAgents(_ context.Context) ([]types.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	agents := make([]types.Agent, 0, len(s.agents))
	for _, agent := range s.agents {
		agents = append(agents, agent)
	}
	sort.Slice(agents, func(i, j int) bool { return agents[i].Name < agents[j].Name })
	return agents, nil
}

// GetAgent returns a single agent by ID
func (s *MemoryStore) GetAgent(_ context.Context, id string) (types.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	agent, ok := s.agents[id]
	if !ok {
		return types.Agent{}, ErrAgentNotFound
	}
	return agent, nil
}

// UpdateAgent replaces the stored record in a single atomic write
func (s *MemoryStore) UpdateAgent(_ context.Context, agent types.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.agents[agent.ID]; !ok {
		return ErrAgentNotFound
	}
	s.agents[agent.ID] = agent
	return nil
}

// BatchInsertAgents inserts all records as one atomic batch
func (s *MemoryStore) BatchInsertAgents(_ context.Context, agents []types.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, agent := range agents {
		s.agents[agent.ID] = agent
	}
	return nil
}

// BatchDeleteAgents removes all listed IDs as one atomic batch
func (s *MemoryStore) BatchDeleteAgents(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		delete(s.agents, id)
	}
	return nil
}

// InsertPauseLog appends an immutable pause record
func (s *MemoryStore) InsertPauseLog(_ context.Context, log types.PauseLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pauses = append(s.pauses, log)
	return nil
}

// PauseLogsInRange returns logs whose pause start falls within [start, end]
func (s *MemoryStore) PauseLogsInRange(_ context.Context, start, end time.Time) ([]types.PauseLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var logs []types.PauseLog
	for _, log := range s.pauses {
		if !log.PauseStartTime.Before(start) && !log.PauseStartTime.After(end) {
			logs = append(logs, log)
		}
	}
	return logs, nil
}

// UpsertDailyReport overwrites any report stored for the same date
func (s *MemoryStore) UpsertDailyReport(_ context.Context, report types.DailyReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reports[report.Date] = report
	return nil
}

// ListRecentReports returns up to n reports, most recent date first
func (s *MemoryStore) ListRecentReports(_ context.Context, n int) ([]types.DailyReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reports := make([]types.DailyReport, 0, len(s.reports))
	for _, report := range s.reports {
		reports = append(reports, report)
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].Date > reports[j].Date })
	if n > 0 && len(reports) > n {
		reports = reports[:n]
	}
	return reports, nil
}

// TruncateAll clears every collection
func (s *MemoryStore) TruncateAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.agents = make(map[string]types.Agent)
	s.pauses = nil
	s.reports = make(map[string]types.DailyReport)
	return nil
}
