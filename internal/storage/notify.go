package storage

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/MerlinD690/dashsac/internal/types"
)

// OnChange receives the full agent set after every successful mutation.
// The delivered snapshot is store-confirmed, so subscribers can drop any
// optimistic local value in favor of it.
type OnChange func(agents []types.Agent)

// NotifyingStore decorates a Store and fans out agent-change notifications
// after each successful agent mutation.
type NotifyingStore struct {
	Store
	subs   []OnChange
	mu     sync.RWMutex
	logger zerolog.Logger
}

// WithNotify wraps a store with change notification support
func WithNotify(store Store, logger zerolog.Logger) *NotifyingStore {
	return &NotifyingStore{
		Store:  store,
		logger: logger.With().Str("component", "store_notify").Logger(),
	}
}

// Subscribe registers a callback for agent changes. Callbacks run
// sequentially on the mutating goroutine; keep them fast.
func (n *NotifyingStore) Subscribe(fn OnChange) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.subs = append(n.subs, fn)
}

func (n *NotifyingStore) UpdateAgent(ctx context.Context, agent types.Agent) error {
	if err := n.Store.UpdateAgent(ctx, agent); err != nil {
		return err
	}
	n.notify(ctx)
	return nil
}

func (n *NotifyingStore) BatchInsertAgents(ctx context.Context, agents []types.Agent) error {
	if err := n.Store.BatchInsertAgents(ctx, agents); err != nil {
		return err
	}
	n.notify(ctx)
	return nil
}

func (n *NotifyingStore) BatchDeleteAgents(ctx context.Context, ids []string) error {
	if err := n.Store.BatchDeleteAgents(ctx, ids); err != nil {
		return err
	}
	n.notify(ctx)
	return nil
}

// notify reloads the authoritative agent set and dispatches it. A failed
// reload is logged and skipped; the next mutation will deliver a fresh set.
func (n *NotifyingStore) notify(ctx context.Context) {
	n.mu.RLock()
	subs := make([]OnChange, len(n.subs))
	copy(subs, n.subs)
	n.mu.RUnlock()

	if len(subs) == 0 {
		return
	}

	agents, err := n.Store.GetAllAgents(ctx)
	if err != nil {
		n.logger.Error().Err(err).Msg("failed to load agents for change notification")
		return
	}

	for _, fn := range subs {
		fn(agents)
	}
}
