package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/MerlinD690/dashsac/internal/types"
)

type blockingFetcher struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingFetcher) FetchActiveChats(ctx context.Context) ([]types.TicketSnapshot, error) {
	close(b.started)
	select {
	case <-b.release:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestRunNowSkipsWhileInFlight(t *testing.T) {
	store := seedStore(t, types.Agent{ID: "a1", Name: "Beatriz", IsAvailable: true})
	fetcher := &blockingFetcher{started: make(chan struct{}), release: make(chan struct{})}
	engine := NewEngine(store, fetcher, false, zerolog.Nop())
	loop := NewLoop(engine, time.Minute, time.Minute, 5*time.Minute, zerolog.Nop())

	done := make(chan bool)
	go func() {
		done <- loop.RunNow(context.Background())
	}()
	<-fetcher.started

	// A second cycle must be refused while the first is still running
	if loop.RunNow(context.Background()) {
		t.Error("expected overlapping RunNow to be skipped")
	}
	if !loop.Status().InFlight {
		t.Error("expected status to report an in-flight cycle")
	}

	close(fetcher.release)
	if !<-done {
		t.Error("expected first RunNow to report execution")
	}
	if loop.Status().InFlight {
		t.Error("expected in-flight flag cleared after completion")
	}
}

func TestRunNowRecordsFailureAndRecovery(t *testing.T) {
	store := seedStore(t, types.Agent{ID: "a1", Name: "Beatriz", IsAvailable: true})
	fetcher := &stubFetcher{err: errors.New("api down")}
	engine := NewEngine(store, fetcher, false, zerolog.Nop())
	loop := NewLoop(engine, time.Minute, time.Minute, 5*time.Minute, zerolog.Nop())

	loop.RunNow(context.Background())
	loop.RunNow(context.Background())

	status := loop.Status()
	if status.ConsecutiveFailures != 2 {
		t.Errorf("expected 2 consecutive failures, got %d", status.ConsecutiveFailures)
	}
	if status.LastError == "" {
		t.Error("expected last error to be recorded")
	}

	// Backoff must not block a manual run
	fetcher.err = nil
	loop.RunNow(context.Background())

	status = loop.Status()
	if status.ConsecutiveFailures != 0 {
		t.Errorf("expected failure count reset, got %d", status.ConsecutiveFailures)
	}
	if status.LastError != "" {
		t.Errorf("expected last error cleared, got %q", status.LastError)
	}
}
