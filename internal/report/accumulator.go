package report

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/MerlinD690/dashsac/internal/storage"
	"github.com/MerlinD690/dashsac/internal/types"
)

// AnalysisInput is the structured snapshot handed to the narrative engine
type AnalysisInput struct {
	Date        string                   `json:"date"`
	Agents      []types.Agent            `json:"agents"`
	Performance []types.AgentPerformance `json:"performance"`
	PauseLogs   []types.PauseLog         `json:"pauseLogs"`
	History     []types.DailyReport      `json:"history,omitempty"`
}

// Narrative holds the prose the engine may contribute. The interface is
// deliberately narrow: numeric facts are computed locally and an engine has
// no channel to override them.
type Narrative struct {
	OverallSummary     string `json:"overallSummary"`
	HistoricalAnalysis string `json:"historicalAnalysis,omitempty"`
}

// NarrativeEngine generates report prose from a structured snapshot
type NarrativeEngine interface {
	GenerateNarrative(ctx context.Context, input AnalysisInput) (Narrative, error)
}

// Accumulator folds a day's agent and pause data into one DailyReport,
// upserted by calendar date (local time) so a re-run overwrites.
type Accumulator struct {
	agents    storage.AgentStore
	pauses    storage.PauseLogStore
	reports   storage.ReportStore
	narrative NarrativeEngine // may be nil; reports then carry a computed fallback summary
	historyN  int
	logger    zerolog.Logger
}

// NewAccumulator creates a report accumulator
func NewAccumulator(agents storage.AgentStore, pauses storage.PauseLogStore, reports storage.ReportStore, narrative NarrativeEngine, historyN int, logger zerolog.Logger) *Accumulator {
	if historyN <= 0 {
		historyN = 30
	}
	return &Accumulator{
		agents:    agents,
		pauses:    pauses,
		reports:   reports,
		narrative: narrative,
		historyN:  historyN,
		logger:    logger.With().Str("component", "report").Logger(),
	}
}

// FormatPauseTime renders a pause duration the way the dashboard shows it
func FormatPauseTime(d time.Duration) string {
	seconds := int(d.Seconds())
	if seconds < 0 {
		seconds = 0
	}
	if seconds < 60 {
		return fmt.Sprintf("%d segundos", seconds)
	}
	return fmt.Sprintf("%d minutos", int(math.Round(float64(seconds)/60)))
}

// BuildDailyReport computes and persists the report for the day containing
// the given time. Day boundaries use the local timezone of that time.
func (a *Accumulator) BuildDailyReport(ctx context.Context, day time.Time) (types.DailyReport, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.Add(24*time.Hour - time.Nanosecond)
	dateKey := dayStart.Format(types.DateKeyFormat)

	agents, err := a.agents.GetAllAgents(ctx)
	if err != nil {
		return types.DailyReport{}, fmt.Errorf("loading agents: %w", err)
	}
	if len(agents) == 0 {
		return types.DailyReport{}, fmt.Errorf("no agents to report on for %s", dateKey)
	}

	pauseLogs, err := a.pauses.PauseLogsInRange(ctx, dayStart, dayEnd)
	if err != nil {
		return types.DailyReport{}, fmt.Errorf("loading pause logs: %w", err)
	}

	pauseByAgent := make(map[string]time.Duration)
	for _, log := range pauseLogs {
		pauseByAgent[log.AgentName] += log.Duration()
	}

	performance := make([]types.AgentPerformance, 0, len(agents))
	most := types.ProductivityRef{Name: agents[0].Name, ClientsHandled: agents[0].TotalClientsHandled}
	least := most
	for _, agent := range agents {
		performance = append(performance, types.AgentPerformance{
			Name:           agent.Name,
			ClientsHandled: agent.TotalClientsHandled,
			TotalPauseTime: FormatPauseTime(pauseByAgent[agent.Name]),
		})
		if agent.TotalClientsHandled > most.ClientsHandled {
			most = types.ProductivityRef{Name: agent.Name, ClientsHandled: agent.TotalClientsHandled}
		}
		if agent.TotalClientsHandled < least.ClientsHandled {
			least = types.ProductivityRef{Name: agent.Name, ClientsHandled: agent.TotalClientsHandled}
		}
	}

	history, err := a.reports.ListRecentReports(ctx, a.historyN)
	if err != nil {
		a.logger.Warn().Err(err).Msg("failed to load report history, trend analysis skipped")
		history = nil
	}

	report := types.DailyReport{
		Date:                 dateKey,
		MostProductiveAgent:  most,
		LeastProductiveAgent: least,
		AgentPerformance:     performance,
		GeneratedAt:          time.Now(),
	}

	// Numeric fields above are final; the engine contributes prose only.
	report.OverallSummary = a.fallbackSummary(agents, pauseByAgent)
	if a.narrative != nil {
		narrative, err := a.narrative.GenerateNarrative(ctx, AnalysisInput{
			Date:        dateKey,
			Agents:      agents,
			Performance: performance,
			PauseLogs:   pauseLogs,
			History:     history,
		})
		if err != nil {
			a.logger.Warn().Err(err).Msg("narrative generation failed, using computed summary")
		} else {
			if narrative.OverallSummary != "" {
				report.OverallSummary = narrative.OverallSummary
			}
			report.HistoricalAnalysis = narrative.HistoricalAnalysis
		}
	}

	if err := a.reports.UpsertDailyReport(ctx, report); err != nil {
		return types.DailyReport{}, fmt.Errorf("persisting report: %w", err)
	}

	a.logger.Info().
		Str("date", dateKey).
		Int("agents", len(agents)).
		Int("pause_logs", len(pauseLogs)).
		Msg("daily report generated")

	return report, nil
}

// fallbackSummary is used when no narrative engine is configured or it fails
func (a *Accumulator) fallbackSummary(agents []types.Agent, pauseByAgent map[string]time.Duration) string {
	totalHandled := 0
	var totalPause time.Duration
	for _, agent := range agents {
		totalHandled += agent.TotalClientsHandled
		totalPause += pauseByAgent[agent.Name]
	}
	return fmt.Sprintf("%d clientes atendidos por %d atendentes; tempo total de pausa: %s.",
		totalHandled, len(agents), FormatPauseTime(totalPause))
}
