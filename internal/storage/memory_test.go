package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MerlinD690/dashsac/internal/types"
)

func TestMemoryStoreAgents(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	agents := []types.Agent{
		{ID: "a2", Name: "Valquiria", IsAvailable: true},
		{ID: "a1", Name: "Beatriz", IsAvailable: true},
	}
	if err := store.BatchInsertAgents(ctx, agents); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	all, err := store.GetAllAgents(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 agents, got %d", len(all))
	}
	// Sorted by name
	if all[0].Name != "Beatriz" || all[1].Name != "Valquiria" {
		t.Errorf("expected name-sorted order, got %s, %s", all[0].Name, all[1].Name)
	}

	agent, err := store.GetAgent(ctx, "a1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	agent.ActiveClients = 3
	if err := store.UpdateAgent(ctx, agent); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updated, _ := store.GetAgent(ctx, "a1")
	if updated.ActiveClients != 3 {
		t.Errorf("expected 3 active clients, got %d", updated.ActiveClients)
	}

	if err := store.BatchDeleteAgents(ctx, []string{"a1", "a2"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	all, _ = store.GetAllAgents(ctx)
	if len(all) != 0 {
		t.Errorf("expected empty store, got %d agents", len(all))
	}
}

func TestMemoryStoreAgentNotFound(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if _, err := store.GetAgent(ctx, "missing"); !errors.Is(err, ErrAgentNotFound) {
		t.Errorf("expected ErrAgentNotFound, got %v", err)
	}
	if err := store.UpdateAgent(ctx, types.Agent{ID: "missing"}); !errors.Is(err, ErrAgentNotFound) {
		t.Errorf("expected ErrAgentNotFound on update, got %v", err)
	}
}

func TestMemoryStorePauseLogsInRange(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.Local)
	logs := []types.PauseLog{
		{ID: "p1", AgentName: "Beatriz", PauseStartTime: base, PauseEndTime: base.Add(5 * time.Minute)},
		{ID: "p2", AgentName: "Beatriz", PauseStartTime: base.AddDate(0, 0, -2), PauseEndTime: base.AddDate(0, 0, -2).Add(time.Minute)},
	}
	for _, log := range logs {
		if err := store.InsertPauseLog(ctx, log); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	inRange, err := store.PauseLogsInRange(ctx, base.Add(-time.Hour), base.Add(time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inRange) != 1 || inRange[0].ID != "p1" {
		t.Errorf("expected only p1 in range, got %+v", inRange)
	}
}

func TestMemoryStoreReports(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	for _, date := range []string{"2026-03-08", "2026-03-10", "2026-03-09"} {
		if err := store.UpsertDailyReport(ctx, types.DailyReport{Date: date}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	recent, err := store.ListRecentReports(ctx, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(recent))
	}
	// Most recent date first
	if recent[0].Date != "2026-03-10" || recent[1].Date != "2026-03-09" {
		t.Errorf("expected newest-first order, got %s, %s", recent[0].Date, recent[1].Date)
	}

	// Same date overwrites
	if err := store.UpsertDailyReport(ctx, types.DailyReport{Date: "2026-03-10", OverallSummary: "atualizado"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	all, _ := store.ListRecentReports(ctx, 10)
	if len(all) != 3 {
		t.Errorf("expected 3 reports after overwrite, got %d", len(all))
	}
}

func TestMemoryStoreTruncateAll(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	store.BatchInsertAgents(ctx, []types.Agent{{ID: "a1", Name: "Beatriz"}})
	store.InsertPauseLog(ctx, types.PauseLog{ID: "p1"})
	store.UpsertDailyReport(ctx, types.DailyReport{Date: "2026-03-10"})

	if err := store.TruncateAll(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	agents, _ := store.GetAllAgents(ctx)
	logs, _ := store.PauseLogsInRange(ctx, time.Time{}, time.Now().Add(time.Hour))
	reports, _ := store.ListRecentReports(ctx, 10)
	if len(agents) != 0 || len(logs) != 0 || len(reports) != 0 {
		t.Errorf("expected empty store, got %d agents, %d logs, %d reports", len(agents), len(logs), len(reports))
	}
}
