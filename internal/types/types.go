package types

import "time"

// MaxConcurrentClients is the hard cap on simultaneous chats per agent.
const MaxConcurrentClients = 5

// DateKeyFormat is the layout used for daily partition keys.
const DateKeyFormat = "2006-01-02"

// Agent represents a human operator tracked by the dashboard.
//
// Invariants enforced by agentstate and reconcile:
//   - ActiveClients is always within [0, MaxConcurrentClients]
//   - IsOnPause implies ActiveClients == 0
//   - !IsAvailable implies ActiveClients == 0
//   - PauseStartTime is set iff IsOnPause
type Agent struct {
	ID                  string     `json:"id" dynamodbav:"AgentID"`
	Name                string     `json:"name" dynamodbav:"Name"`
	ExternalName        string     `json:"externalName,omitempty" dynamodbav:"ExternalName"` // operator name in TomTicket
	IsAvailable         bool       `json:"isAvailable" dynamodbav:"IsAvailable"`
	IsOnPause           bool       `json:"isOnPause" dynamodbav:"IsOnPause"`
	PauseStartTime      *time.Time `json:"pauseStartTime,omitempty" dynamodbav:"PauseStartTime,omitempty"`
	ActiveClients       int        `json:"activeClients" dynamodbav:"ActiveClients"`
	TotalClientsHandled int        `json:"totalClientsHandled" dynamodbav:"TotalClientsHandled"`
	AvgTimePerClient    float64    `json:"avgTimePerClient" dynamodbav:"AvgTimePerClient"` // minutes
	LastInteractionTime time.Time  `json:"lastInteractionTime" dynamodbav:"LastInteractionTime"`
}

// PauseLog is an immutable record of one completed pause interval.
// Created exactly once when an agent leaves pause; never mutated.
type PauseLog struct {
	ID             string    `json:"id" dynamodbav:"LogID"`
	DateKey        string    `json:"-" dynamodbav:"DateKey"` // local date of PauseStartTime
	AgentName      string    `json:"agentName" dynamodbav:"AgentName"`
	PauseStartTime time.Time `json:"pauseStartTime" dynamodbav:"PauseStartTime"`
	PauseEndTime   time.Time `json:"pauseEndTime" dynamodbav:"PauseEndTime"`
}

// Duration returns the length of the pause interval.
func (p PauseLog) Duration() time.Duration {
	return p.PauseEndTime.Sub(p.PauseStartTime)
}

// TicketSnapshot is one active chat as reported by TomTicket.
// Ephemeral: produced fresh each sync cycle, never persisted.
type TicketSnapshot struct {
	ID           string `json:"id"`
	Situation    int    `json:"situation"`
	OperatorName string `json:"operatorName,omitempty"` // empty when unassigned
}

// AgentPerformance is one row of a daily report.
type AgentPerformance struct {
	Name           string `json:"name" dynamodbav:"Name"`
	ClientsHandled int    `json:"clientsHandled" dynamodbav:"ClientsHandled"`
	TotalPauseTime string `json:"totalPauseTime" dynamodbav:"TotalPauseTime"` // "N segundos" / "N minutos"
}

// ProductivityRef points at the most or least productive agent of a day.
type ProductivityRef struct {
	Name           string `json:"name" dynamodbav:"Name"`
	ClientsHandled int    `json:"clientsHandled" dynamodbav:"ClientsHandled"`
}

// DailyReport is the per-day aggregation persisted by the report accumulator.
// Natural key is Date; re-running the accumulator for the same day overwrites.
type DailyReport struct {
	Date                 string             `json:"date" dynamodbav:"Date"` // DateKeyFormat, local time
	MostProductiveAgent  ProductivityRef    `json:"mostProductiveAgent" dynamodbav:"MostProductiveAgent"`
	LeastProductiveAgent ProductivityRef    `json:"leastProductiveAgent" dynamodbav:"LeastProductiveAgent"`
	AgentPerformance     []AgentPerformance `json:"agentPerformance" dynamodbav:"AgentPerformance"`
	OverallSummary       string             `json:"overallSummary" dynamodbav:"OverallSummary"`
	HistoricalAnalysis   string             `json:"historicalAnalysis,omitempty" dynamodbav:"HistoricalAnalysis"`
	GeneratedAt          time.Time          `json:"generatedAt" dynamodbav:"GeneratedAt"`
}
