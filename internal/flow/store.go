// Package flow owns the set of user flows and their ordered actions.
//
// The in-memory map is authoritative. When a Persister is configured every
// mutation is written through before it becomes visible, so a failed write
// leaves the store untouched.
package flow

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"automate/internal/domain"
)

// Change describes a persisted mutation for the change log.
type Change struct {
	Type    string
	ActorID string
	Payload map[string]any
}

type Persister interface {
	SaveFlow(ctx context.Context, f domain.Flow, c Change) error
	DeleteFlow(ctx context.Context, id string, c Change) error
	ListFlows(ctx context.Context) ([]domain.Flow, error)
}

type Store struct {
	mu      sync.RWMutex
	flows   map[string]domain.Flow
	order   []string
	persist Persister
	Now     func() time.Time
	NewID   func() string
}

// NewStore returns an empty store. p may be nil for a memory-only store.
func NewStore(p Persister) *Store {
	return &Store{
		flows:   map[string]domain.Flow{},
		persist: p,
		Now:     time.Now,
		NewID:   uuid.NewString,
	}
}

// Load replaces the store contents with the persisted flows.
func (s *Store) Load(ctx context.Context) error {
	if s.persist == nil {
		return nil
	}
	items, err := s.persist.ListFlows(ctx)
	if err != nil {
		return fmt.Errorf("load flows: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flows = make(map[string]domain.Flow, len(items))
	s.order = s.order[:0]
	for _, f := range items {
		s.flows[f.ID] = f.Clone()
		s.order = append(s.order, f.ID)
	}
	return nil
}

func (s *Store) now() time.Time {
	return s.Now().UTC()
}

func (s *Store) Create(ctx context.Context, tpl domain.FlowTemplate) (domain.Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := tpl.ID
	if id != "" {
		if _, ok := s.flows[id]; ok {
			return domain.Flow{}, fmt.Errorf("flow %s: %w", id, domain.ErrConflict)
		}
	} else {
		id = s.NewID()
	}
	if tpl.Owner == "" {
		tpl.Owner = domain.ActorFromContext(ctx)
	}
	f := domain.NewFlow(id, tpl, s.now())
	if err := s.save(ctx, f, "flow.created", map[string]any{"name": f.Name}); err != nil {
		return domain.Flow{}, err
	}
	s.flows[id] = f
	s.order = append(s.order, id)
	return f.Clone(), nil
}

// List returns a snapshot in creation order.
func (s *Store) List() []domain.Flow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]domain.Flow, 0, len(s.order))
	for _, id := range s.order {
		res = append(res, s.flows[id].Clone())
	}
	return res
}

func (s *Store) Get(id string) (domain.Flow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.flows[id]
	if !ok {
		return domain.Flow{}, notFound(id)
	}
	return f.Clone(), nil
}

func (s *Store) Update(ctx context.Context, id string, u domain.FlowUpdate) (domain.Flow, error) {
	return s.mutate(ctx, id, "flow.updated", func(f *domain.Flow) (map[string]any, error) {
		f.Apply(u)
		return updatedFields(u), nil
	})
}

func (s *Store) Destroy(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.flows[id]
	if !ok {
		return notFound(id)
	}
	if s.persist != nil {
		c := Change{
			Type:    "flow.destroyed",
			ActorID: domain.ActorFromContext(ctx),
			Payload: map[string]any{"actions": actionIDs(f)},
		}
		if err := s.persist.DeleteFlow(ctx, id, c); err != nil {
			return fmt.Errorf("delete flow %s: %w", id, err)
		}
	}
	delete(s.flows, id)
	s.order = slices.DeleteFunc(s.order, func(v string) bool { return v == id })
	return nil
}

// AttachAction appends a with its own id. The id must not already belong to
// this or any other flow.
func (s *Store) AttachAction(ctx context.Context, flowID string, a domain.Action) (domain.Flow, error) {
	return s.mutate(ctx, flowID, "flow.action.attached", func(f *domain.Flow) (map[string]any, error) {
		if f.ActionIndex(a.ID) >= 0 {
			return nil, fmt.Errorf("action %s in flow %s: %w", a.ID, flowID, domain.ErrConflict)
		}
		if owner, ok := s.ownerOf(a.ID); ok {
			return nil, fmt.Errorf("action %s in flow %s: %w", a.ID, owner, domain.ErrConflict)
		}
		f.AddAction(a)
		return map[string]any{"action_id": a.ID, "position": len(f.Actions) - 1}, nil
	})
}

func (s *Store) GetAction(flowID, actionID string) (domain.Action, error) {
	f, err := s.Get(flowID)
	if err != nil {
		return domain.Action{}, err
	}
	a, ok := f.GetAction(actionID)
	if !ok {
		return domain.Action{}, fmt.Errorf("action %s in flow %s: %w", actionID, flowID, domain.ErrNotFound)
	}
	return a, nil
}

// MoveAction re-inserts the action at pos, clamped into the valid range.
func (s *Store) MoveAction(ctx context.Context, flowID, actionID string, pos int) (domain.Flow, error) {
	return s.mutate(ctx, flowID, "flow.action.moved", func(f *domain.Flow) (map[string]any, error) {
		final := f.MoveAction(actionID, pos)
		if final < 0 {
			return nil, fmt.Errorf("action %s in flow %s: %w", actionID, flowID, domain.ErrNotFound)
		}
		return map[string]any{"action_id": actionID, "position": final}, nil
	})
}

// RemoveAction drops the action from the flow. An absent action is a no-op.
func (s *Store) RemoveAction(ctx context.Context, flowID, actionID string) (domain.Flow, error) {
	f, err := s.mutate(ctx, flowID, "flow.action.removed", func(f *domain.Flow) (map[string]any, error) {
		if !f.RemoveActionByID(actionID) {
			return nil, errNoop
		}
		return map[string]any{"action_id": actionID}, nil
	})
	if errors.Is(err, errNoop) {
		return s.Get(flowID)
	}
	return f, err
}

var errNoop = errors.New("no change")

// mutate applies fn to a copy of the flow, persists it and swaps it in.
// Validation inside fn runs before anything is written.
func (s *Store) mutate(ctx context.Context, id, evtType string, fn func(*domain.Flow) (map[string]any, error)) (domain.Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.flows[id]
	if !ok {
		return domain.Flow{}, notFound(id)
	}
	next := cur.Clone()
	payload, err := fn(&next)
	if err != nil {
		return domain.Flow{}, err
	}
	next.LastModifiedDate = s.now()
	if err := s.save(ctx, next, evtType, payload); err != nil {
		return domain.Flow{}, err
	}
	s.flows[id] = next
	return next.Clone(), nil
}

func (s *Store) save(ctx context.Context, f domain.Flow, evtType string, payload map[string]any) error {
	if s.persist == nil {
		return nil
	}
	c := Change{Type: evtType, ActorID: domain.ActorFromContext(ctx), Payload: payload}
	if err := s.persist.SaveFlow(ctx, f, c); err != nil {
		return fmt.Errorf("save flow %s: %w", f.ID, err)
	}
	return nil
}

// Owner returns the id of the flow holding actionID.
func (s *Store) Owner(actionID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ownerOf(actionID)
}

// ownerOf must be called with the lock held.
func (s *Store) ownerOf(actionID string) (string, bool) {
	for _, id := range s.order {
		f := s.flows[id]
		if f.ActionIndex(actionID) >= 0 {
			return id, true
		}
	}
	return "", false
}

func notFound(id string) error {
	return fmt.Errorf("flow %s: %w", id, domain.ErrNotFound)
}

func actionIDs(f domain.Flow) []string {
	ids := make([]string, 0, len(f.Actions))
	for _, a := range f.Actions {
		ids = append(ids, a.ID)
	}
	return ids
}

func updatedFields(u domain.FlowUpdate) map[string]any {
	fields := []string{}
	for name, set := range map[string]bool{
		"name":        u.Name != nil,
		"description": u.Description != nil,
		"owner":       u.Owner != nil,
		"logo":        u.Logo != nil,
		"active":      u.Active != nil,
		"tags":        u.Tags != nil,
		"triggers":    u.Triggers != nil,
	} {
		if set {
			fields = append(fields, name)
		}
	}
	slices.Sort(fields)
	return map[string]any{"fields": fields}
}
