package queue

import (
	"testing"
	"time"

	"github.com/MerlinD690/dashsac/internal/types"
)

func TestSelectNextAgent(t *testing.T) {
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.Local)

	idle := func(name string, last time.Time) types.Agent {
		return types.Agent{
			ID:                  name,
			Name:                name,
			IsAvailable:         true,
			LastInteractionTime: last,
		}
	}

	t.Run("oldest idle agent wins", func(t *testing.T) {
		busy := idle("A", base.Add(-30*time.Minute))
		busy.ActiveClients = 2

		agents := []types.Agent{
			busy,
			idle("B", base.Add(-20*time.Minute)),
			idle("C", base.Add(-10*time.Minute)),
		}

		next := SelectNextAgent(agents)
		if next == nil {
			t.Fatal("expected a candidate")
		}
		if next.Name != "B" {
			t.Errorf("expected B, got %s", next.Name)
		}
	})

	t.Run("paused and unavailable are excluded", func(t *testing.T) {
		now := time.Now()
		paused := idle("A", base.Add(-60*time.Minute))
		paused.IsOnPause = true
		paused.PauseStartTime = &now

		away := idle("B", base.Add(-50*time.Minute))
		away.IsAvailable = false

		agents := []types.Agent{
			paused,
			away,
			idle("C", base),
		}

		next := SelectNextAgent(agents)
		if next == nil {
			t.Fatal("expected a candidate")
		}
		if next.Name != "C" {
			t.Errorf("expected C, got %s", next.Name)
		}
	})

	t.Run("partially loaded agents are excluded", func(t *testing.T) {
		loaded := idle("A", base.Add(-60*time.Minute))
		loaded.ActiveClients = 1

		agents := []types.Agent{loaded, idle("B", base)}

		next := SelectNextAgent(agents)
		if next == nil || next.Name != "B" {
			t.Fatalf("expected B, got %v", next)
		}
	})

	t.Run("no candidate", func(t *testing.T) {
		busy := idle("A", base)
		busy.ActiveClients = types.MaxConcurrentClients

		if next := SelectNextAgent([]types.Agent{busy}); next != nil {
			t.Errorf("expected nil, got %s", next.Name)
		}
	})

	t.Run("empty roster", func(t *testing.T) {
		if next := SelectNextAgent(nil); next != nil {
			t.Errorf("expected nil, got %s", next.Name)
		}
	})
}
