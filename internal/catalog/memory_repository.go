package catalog

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepository holds the catalog in process.
type MemoryRepository struct {
	mu      sync.RWMutex
	actions map[string]PricedAction
}

// NewMemoryRepository builds a repository holding actions. With no arguments
// it is seeded with DefaultActions.
func NewMemoryRepository(actions ...PricedAction) *MemoryRepository {
	if len(actions) == 0 {
		actions = DefaultActions()
	}
	r := &MemoryRepository{actions: make(map[string]PricedAction, len(actions))}
	for _, a := range actions {
		r.actions[a.ID] = a
	}
	return r
}

// Put inserts or replaces an action.
func (r *MemoryRepository) Put(a PricedAction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions[a.ID] = a
}

func (r *MemoryRepository) Get(_ context.Context, id string) (PricedAction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.actions[id]
	if !ok {
		return PricedAction{}, ErrUnknownAction
	}
	return a, nil
}

func (r *MemoryRepository) ListActive(_ context.Context, kind Kind) ([]PricedAction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []PricedAction{}
	for _, a := range r.actions {
		if !a.IsActive || (kind != "" && a.Kind != kind) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Cost == out[j].Cost {
			return out[i].ID < out[j].ID
		}
		return out[i].Cost < out[j].Cost
	})
	return out, nil
}
