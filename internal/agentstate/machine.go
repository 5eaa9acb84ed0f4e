package agentstate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/MerlinD690/dashsac/internal/metrics"
	"github.com/MerlinD690/dashsac/internal/storage"
	"github.com/MerlinD690/dashsac/internal/types"
)

// ErrInvalidTransition marks a state-machine precondition violation.
// Callers surface the wrapped message to the operator and never retry.
var ErrInvalidTransition = errors.New("invalid transition")

// Machine enforces legal agent state transitions. Every operation loads the
// current record, validates the transition, and commits the whole record in
// one atomic write; the store remains the single source of truth.
type Machine struct {
	agents storage.AgentStore
	pauses storage.PauseLogStore
	logger zerolog.Logger
	now    func() time.Time
}

// NewMachine creates a state machine backed by the given stores
func NewMachine(agents storage.AgentStore, pauses storage.PauseLogStore, logger zerolog.Logger) *Machine {
	return &Machine{
		agents: agents,
		pauses: pauses,
		logger: logger.With().Str("component", "agentstate").Logger(),
		now:    time.Now,
	}
}

// SetActiveClients applies a +1 or -1 load change.
//
// On +1 the running mean is recomputed from the minutes elapsed since the
// last interaction and TotalClientsHandled is incremented; on -1 only the
// load and LastInteractionTime change.
func (m *Machine) SetActiveClients(ctx context.Context, agentID string, delta int) (types.Agent, error) {
	if delta != 1 && delta != -1 {
		return types.Agent{}, fmt.Errorf("%w: delta must be +1 or -1, got %d", ErrInvalidTransition, delta)
	}

	agent, err := m.agents.GetAgent(ctx, agentID)
	if err != nil {
		return types.Agent{}, err
	}

	if agent.IsOnPause {
		return types.Agent{}, fmt.Errorf("%w: agent %s is on pause", ErrInvalidTransition, agent.Name)
	}
	if !agent.IsAvailable {
		return types.Agent{}, fmt.Errorf("%w: agent %s is unavailable", ErrInvalidTransition, agent.Name)
	}

	newCount := agent.ActiveClients + delta
	if newCount < 0 || newCount > types.MaxConcurrentClients {
		return types.Agent{}, fmt.Errorf("%w: active clients would be %d, allowed range is 0..%d",
			ErrInvalidTransition, newCount, types.MaxConcurrentClients)
	}

	now := m.now()
	if delta == 1 {
		elapsed := now.Sub(agent.LastInteractionTime).Minutes()
		if elapsed < 0 {
			elapsed = 0
		}
		handled := float64(agent.TotalClientsHandled)
		agent.AvgTimePerClient = (agent.AvgTimePerClient*handled + elapsed) / (handled + 1)
		agent.TotalClientsHandled++
	}
	agent.ActiveClients = newCount
	agent.LastInteractionTime = now

	if err := m.agents.UpdateAgent(ctx, agent); err != nil {
		return types.Agent{}, err
	}

	metrics.Get().RecordTransition()
	m.logger.Debug().
		Str("agent", agent.Name).
		Int("delta", delta).
		Int("active_clients", agent.ActiveClients).
		Int("total_handled", agent.TotalClientsHandled).
		Msg("active client count changed")

	return agent, nil
}

// SetAvailability toggles availability. An agent must be drained before
// going unavailable; pause state is left untouched (the UI additionally
// forbids toggling while paused, as policy rather than data invariant).
func (m *Machine) SetAvailability(ctx context.Context, agentID string, available bool) (types.Agent, error) {
	agent, err := m.agents.GetAgent(ctx, agentID)
	if err != nil {
		return types.Agent{}, err
	}

	if !available && agent.ActiveClients > 0 {
		return types.Agent{}, fmt.Errorf("%w: agent %s has %d active clients",
			ErrInvalidTransition, agent.Name, agent.ActiveClients)
	}

	agent.IsAvailable = available

	if err := m.agents.UpdateAgent(ctx, agent); err != nil {
		return types.Agent{}, err
	}

	metrics.Get().RecordTransition()
	m.logger.Debug().
		Str("agent", agent.Name).
		Bool("available", available).
		Msg("availability changed")

	return agent, nil
}

// TogglePause flips the pause state. Entering pause stamps PauseStartTime;
// leaving pause emits exactly one immutable PauseLog and clears it.
func (m *Machine) TogglePause(ctx context.Context, agentID string) (types.Agent, *types.PauseLog, error) {
	agent, err := m.agents.GetAgent(ctx, agentID)
	if err != nil {
		return types.Agent{}, nil, err
	}

	now := m.now()

	if !agent.IsOnPause {
		if agent.ActiveClients > 0 {
			return types.Agent{}, nil, fmt.Errorf("%w: agent %s has %d active clients",
				ErrInvalidTransition, agent.Name, agent.ActiveClients)
		}
		if !agent.IsAvailable {
			return types.Agent{}, nil, fmt.Errorf("%w: agent %s is unavailable", ErrInvalidTransition, agent.Name)
		}

		agent.IsOnPause = true
		agent.PauseStartTime = &now

		if err := m.agents.UpdateAgent(ctx, agent); err != nil {
			return types.Agent{}, nil, err
		}

		metrics.Get().RecordTransition()
		m.logger.Debug().Str("agent", agent.Name).Msg("pause started")
		return agent, nil, nil
	}

	if agent.PauseStartTime == nil {
		return types.Agent{}, nil, fmt.Errorf("%w: agent %s is paused without a pause start time",
			ErrInvalidTransition, agent.Name)
	}

	log := types.PauseLog{
		ID:             uuid.New().String(),
		DateKey:        agent.PauseStartTime.Format(types.DateKeyFormat),
		AgentName:      agent.Name,
		PauseStartTime: *agent.PauseStartTime,
		PauseEndTime:   now,
	}

	agent.IsOnPause = false
	agent.PauseStartTime = nil

	// The agent record is committed first: if the log insert fails the pause
	// interval is lost from reporting but the agent state stays consistent.
	if err := m.agents.UpdateAgent(ctx, agent); err != nil {
		return types.Agent{}, nil, err
	}
	if err := m.pauses.InsertPauseLog(ctx, log); err != nil {
		m.logger.Error().Err(err).Str("agent", agent.Name).Msg("failed to persist pause log")
		return agent, nil, err
	}

	metrics.Get().RecordTransition()
	metrics.Get().RecordPauseLog()
	m.logger.Debug().
		Str("agent", agent.Name).
		Dur("pause_duration", log.Duration()).
		Msg("pause ended")

	return agent, &log, nil
}
