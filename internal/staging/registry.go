// Package staging holds configured actions that are not yet attached to a
// flow. Entries live for the lifetime of the process.
package staging

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"automate/internal/domain"
)

type Registry struct {
	mu      sync.RWMutex
	actions map[string]domain.Action
	order   []string
	newID   func() string
	now     func() time.Time
}

func New() *Registry {
	return &Registry{
		actions: map[string]domain.Action{},
		newID:   uuid.NewString,
		now:     time.Now,
	}
}

// Create stores a bound action under a fresh id and returns it.
func (r *Registry) Create(name string, ref domain.MethodRef, args map[string]any) domain.Action {
	a := domain.Action{
		Name:        name,
		CreatedDate: r.now().UTC(),
	}.ApplyMethod(ref).WithArgs(args)

	r.mu.Lock()
	defer r.mu.Unlock()
	a.ID = r.newID()
	r.actions[a.ID] = a
	r.order = append(r.order, a.ID)
	return a.Clone()
}

// List returns a snapshot in insertion order.
func (r *Registry) List() []domain.Action {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]domain.Action, 0, len(r.order))
	for _, id := range r.order {
		res = append(res, r.actions[id].Clone())
	}
	return res
}

func (r *Registry) Get(id string) (domain.Action, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.actions[id]
	if !ok {
		return domain.Action{}, fmt.Errorf("staged action %s: %w", id, domain.ErrNotFound)
	}
	return a.Clone(), nil
}

func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.actions[id]; !ok {
		return fmt.Errorf("staged action %s: %w", id, domain.ErrNotFound)
	}
	delete(r.actions, id)
	r.order = slices.DeleteFunc(r.order, func(v string) bool { return v == id })
	return nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
