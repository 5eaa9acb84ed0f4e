package reconcile

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/MerlinD690/dashsac/internal/metrics"
)

// SyncStatus is the loop state surfaced to the UI banner
type SyncStatus struct {
	LastRunTime         time.Time   `json:"lastRunTime"`
	LastError           string      `json:"lastError,omitempty"`
	LastResult          CycleResult `json:"lastResult"`
	InFlight            bool        `json:"inFlight"`
	ConsecutiveFailures int         `json:"consecutiveFailures"`
}

// Loop drives the engine on a fixed interval with a reentrancy guard: if a
// cycle is still running when the ticker fires, the new tick is skipped, not
// queued. Repeated failures back off exponentially up to a cap; the next
// successful cycle resets the schedule.
type Loop struct {
	engine       *Engine
	interval     time.Duration
	cycleTimeout time.Duration
	maxBackoff   time.Duration
	logger       zerolog.Logger

	inFlight atomic.Bool

	mu        sync.RWMutex
	status    SyncStatus
	nextRetry time.Time
}

// NewLoop creates the periodic sync loop
func NewLoop(engine *Engine, interval, cycleTimeout, maxBackoff time.Duration, logger zerolog.Logger) *Loop {
	return &Loop{
		engine:       engine,
		interval:     interval,
		cycleTimeout: cycleTimeout,
		maxBackoff:   maxBackoff,
		logger:       logger.With().Str("component", "sync_loop").Logger(),
	}
}

// Start runs one cycle immediately, then ticks until the context is cancelled
func (l *Loop) Start(ctx context.Context) {
	l.logger.Info().Dur("interval", l.interval).Msg("sync loop started")

	l.RunNow(ctx)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info().Msg("sync loop stopped")
			return
		case <-ticker.C:
			l.mu.RLock()
			backoffActive := time.Now().Before(l.nextRetry)
			l.mu.RUnlock()
			if backoffActive {
				l.logger.Debug().Msg("backoff active, skipping tick")
				continue
			}
			l.RunNow(ctx)
		}
	}
}

// RunNow executes a single cycle unless one is already in flight. Returns
// false when skipped. Safe to call from the manual-sync endpoint.
func (l *Loop) RunNow(ctx context.Context) bool {
	if !l.inFlight.CompareAndSwap(false, true) {
		l.logger.Warn().Msg("previous sync cycle still running, skipping")
		return false
	}
	defer l.inFlight.Store(false)

	cycleCtx, cancel := context.WithTimeout(ctx, l.cycleTimeout)
	defer cancel()

	start := time.Now()
	result, err := l.engine.RunCycle(cycleCtx)

	l.mu.Lock()
	defer l.mu.Unlock()

	l.status.LastRunTime = start
	l.status.LastResult = result

	if err != nil {
		metrics.Get().RecordSyncError()
		l.status.ConsecutiveFailures++
		l.status.LastError = err.Error()
		backoff := l.interval << (l.status.ConsecutiveFailures - 1)
		if backoff > l.maxBackoff || backoff <= 0 {
			backoff = l.maxBackoff
		}
		l.nextRetry = time.Now().Add(backoff)

		l.logger.Error().Err(err).
			Int("consecutive_failures", l.status.ConsecutiveFailures).
			Dur("backoff", backoff).
			Msg("sync cycle failed")
		return true
	}

	l.status.ConsecutiveFailures = 0
	l.status.LastError = ""
	l.nextRetry = time.Time{}
	metrics.Get().RecordSyncCycle(time.Since(start), result.ActiveChats, result.AgentsUpdated)

	l.logger.Info().
		Int("active_chats", result.ActiveChats).
		Int("agents_updated", result.AgentsUpdated).
		Dur("took", time.Since(start)).
		Msg("sync cycle completed")
	return true
}

// Status returns a copy of the current loop status
func (l *Loop) Status() SyncStatus {
	l.mu.RLock()
	defer l.mu.RUnlock()

	status := l.status
	status.InFlight = l.inFlight.Load()
	return status
}
