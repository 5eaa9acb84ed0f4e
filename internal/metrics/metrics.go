package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/MerlinD690/dashsac/internal/types"
)

// Metrics holds all application metrics
type Metrics struct {
	mu sync.RWMutex

	// Sync metrics
	SyncCyclesTotal       int64
	SyncCycleErrors       int64
	ChatsReconciledTotal  int64
	AgentsReconciledTotal int64
	lastSyncDuration      time.Duration

	// State machine metrics
	TransitionsTotal         int64
	RejectedTransitionsTotal int64
	PauseLogsTotal           int64

	// WebSocket metrics
	WebSocketConnectionsTotal    int64
	WebSocketDisconnectionsTotal int64
	WebSocketBroadcastsTotal     int64
	WebSocketErrorsTotal         int64
	activeConnections            int64

	// Agent distribution
	agentsAvailable int
	agentsPaused    int
	agentsBusy      int
	totalAgents     int

	// HTTP metrics
	httpRequestsTotal    map[string]map[int]int64 // endpoint -> status -> count
	httpRequestDurations map[string][]float64     // endpoint -> durations

	// Timing
	startTime time.Time
}

// Global metrics instance
var instance *Metrics
var once sync.Once

// Get returns the singleton metrics instance
func Get() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			httpRequestsTotal:    make(map[string]map[int]int64),
			httpRequestDurations: make(map[string][]float64),
			startTime:            time.Now(),
		}
	})
	return instance
}

// RecordSyncCycle records a completed reconciliation cycle
func (m *Metrics) RecordSyncCycle(duration time.Duration, chats, agentsUpdated int) {
	m.mu.Lock()
	m.SyncCyclesTotal++
	m.ChatsReconciledTotal += int64(chats)
	m.AgentsReconciledTotal += int64(agentsUpdated)
	m.lastSyncDuration = duration
	m.mu.Unlock()
}

// RecordSyncError increments the sync error counter
func (m *Metrics) RecordSyncError() {
	m.mu.Lock()
	m.SyncCycleErrors++
	m.mu.Unlock()
}

// RecordTransition increments the accepted transition counter
func (m *Metrics) RecordTransition() {
	m.mu.Lock()
	m.TransitionsTotal++
	m.mu.Unlock()
}

// RecordRejectedTransition increments the rejected transition counter
func (m *Metrics) RecordRejectedTransition() {
	m.mu.Lock()
	m.RejectedTransitionsTotal++
	m.mu.Unlock()
}

// RecordPauseLog increments the pause log counter
func (m *Metrics) RecordPauseLog() {
	m.mu.Lock()
	m.PauseLogsTotal++
	m.mu.Unlock()
}

// RecordWebSocketConnect increments connection counters
func (m *Metrics) RecordWebSocketConnect() {
	m.mu.Lock()
	m.WebSocketConnectionsTotal++
	m.activeConnections++
	m.mu.Unlock()
}

// RecordWebSocketDisconnect increments disconnection counter
func (m *Metrics) RecordWebSocketDisconnect() {
	m.mu.Lock()
	m.WebSocketDisconnectionsTotal++
	m.activeConnections--
	m.mu.Unlock()
}

// RecordWebSocketBroadcast increments broadcast counter
func (m *Metrics) RecordWebSocketBroadcast() {
	m.mu.Lock()
	m.WebSocketBroadcastsTotal++
	m.mu.Unlock()
}

// RecordWebSocketError increments WebSocket error counter
func (m *Metrics) RecordWebSocketError() {
	m.mu.Lock()
	m.WebSocketErrorsTotal++
	m.mu.Unlock()
}

// UpdateAgentStats updates agent distribution metrics
func (m *Metrics) UpdateAgentStats(agents []types.Agent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.agentsAvailable = 0
	m.agentsPaused = 0
	m.agentsBusy = 0
	m.totalAgents = len(agents)

	for _, agent := range agents {
		switch {
		case agent.IsOnPause:
			m.agentsPaused++
		case agent.IsAvailable && agent.ActiveClients > 0:
			m.agentsBusy++
		case agent.IsAvailable:
			m.agentsAvailable++
		}
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(endpoint string, statusCode int, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.httpRequestsTotal[endpoint] == nil {
		m.httpRequestsTotal[endpoint] = make(map[int]int64)
	}
	m.httpRequestsTotal[endpoint][statusCode]++

	// Keep last 100 durations for percentile calculation
	if len(m.httpRequestDurations[endpoint]) >= 100 {
		m.httpRequestDurations[endpoint] = m.httpRequestDurations[endpoint][1:]
	}
	m.httpRequestDurations[endpoint] = append(m.httpRequestDurations[endpoint], duration.Seconds())
}

// GetActiveConnections returns current WebSocket connections
func (m *Metrics) GetActiveConnections() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeConnections
}

// Handler returns an HTTP handler for the /metrics endpoint
func (m *Metrics) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.mu.RLock()
		defer m.mu.RUnlock()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		// Helper to write metric
		write := func(name string, value interface{}, labels ...string) {
			labelStr := ""
			if len(labels) > 0 {
				labelStr = "{"
				for i := 0; i < len(labels); i += 2 {
					if i > 0 {
						labelStr += ","
					}
					labelStr += labels[i] + "=\"" + labels[i+1] + "\""
				}
				labelStr += "}"
			}

			switch v := value.(type) {
			case int:
				w.Write([]byte(name + labelStr + " " + strconv.Itoa(v) + "\n"))
			case int64:
				w.Write([]byte(name + labelStr + " " + strconv.FormatInt(v, 10) + "\n"))
			case float64:
				w.Write([]byte(name + labelStr + " " + strconv.FormatFloat(v, 'f', 6, 64) + "\n"))
			}
		}

		// System metrics
		write("dashsac_uptime_seconds", time.Since(m.startTime).Seconds())

		// Sync metrics
		write("dashsac_sync_cycles_total", m.SyncCyclesTotal)
		write("dashsac_sync_cycle_errors_total", m.SyncCycleErrors)
		write("dashsac_chats_reconciled_total", m.ChatsReconciledTotal)
		write("dashsac_agents_reconciled_total", m.AgentsReconciledTotal)
		write("dashsac_sync_duration_seconds", m.lastSyncDuration.Seconds())

		// State machine metrics
		write("dashsac_transitions_total", m.TransitionsTotal)
		write("dashsac_rejected_transitions_total", m.RejectedTransitionsTotal)
		write("dashsac_pause_logs_total", m.PauseLogsTotal)

		// WebSocket metrics
		write("dashsac_websocket_connections_total", m.WebSocketConnectionsTotal)
		write("dashsac_websocket_disconnections_total", m.WebSocketDisconnectionsTotal)
		write("dashsac_websocket_active_connections", m.activeConnections)
		write("dashsac_websocket_broadcasts_total", m.WebSocketBroadcastsTotal)
		write("dashsac_websocket_errors_total", m.WebSocketErrorsTotal)

		// Agent distribution
		write("dashsac_agents_total", m.totalAgents)
		write("dashsac_agents_by_state", m.agentsAvailable, "state", "available")
		write("dashsac_agents_by_state", m.agentsPaused, "state", "paused")
		write("dashsac_agents_by_state", m.agentsBusy, "state", "busy")

		// HTTP metrics
		for endpoint, statusCodes := range m.httpRequestsTotal {
			for status, count := range statusCodes {
				write("dashsac_http_requests_total", count, "endpoint", endpoint, "status", strconv.Itoa(status))
			}
		}
	}
}
