package flow_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"automate/internal/domain"
	"automate/internal/flow"
)

type memPersister struct {
	flows   map[string]domain.Flow
	order   []string
	changes []flow.Change
	fail    error
}

func newMemPersister() *memPersister {
	return &memPersister{flows: map[string]domain.Flow{}}
}

func (m *memPersister) SaveFlow(_ context.Context, f domain.Flow, c flow.Change) error {
	if m.fail != nil {
		return m.fail
	}
	if _, ok := m.flows[f.ID]; !ok {
		m.order = append(m.order, f.ID)
	}
	m.flows[f.ID] = f.Clone()
	m.changes = append(m.changes, c)
	return nil
}

func (m *memPersister) DeleteFlow(_ context.Context, id string, c flow.Change) error {
	if m.fail != nil {
		return m.fail
	}
	delete(m.flows, id)
	m.changes = append(m.changes, c)
	return nil
}

func (m *memPersister) ListFlows(context.Context) ([]domain.Flow, error) {
	var res []domain.Flow
	for _, id := range m.order {
		if f, ok := m.flows[id]; ok {
			res = append(res, f)
		}
	}
	return res, nil
}

func newStore(t *testing.T) (*flow.Store, *memPersister) {
	t.Helper()
	p := newMemPersister()
	s := flow.NewStore(p)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	s.Now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return s, p
}

func action(id string) domain.Action {
	return domain.Action{
		ID:     id,
		Method: domain.MethodRef{Service: "http", Method: "get"},
		Args:   map[string]any{"url": "x"},
	}
}

func TestCreateGeneratesID(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	f, err := s.Create(ctx, domain.FlowTemplate{Name: "f1", Tags: []string{"a"}})
	require.NoError(t, err)
	assert.NotEmpty(t, f.ID)
	assert.Equal(t, f.CreatedDate, f.LastModifiedDate)
	assert.Empty(t, f.Actions)

	got, err := s.Get(f.ID)
	require.NoError(t, err)
	assert.Equal(t, "f1", got.Name)
	assert.Equal(t, []string{"a"}, got.Tags)
}

func TestCreateDuplicateConflicts(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, domain.FlowTemplate{ID: "dup"})
	require.NoError(t, err)
	_, err = s.Create(ctx, domain.FlowTemplate{ID: "dup"})
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Len(t, s.List(), 1)
}

func TestCreateDefaultsOwnerToActor(t *testing.T) {
	s, p := newStore(t)
	ctx := domain.WithActor(context.Background(), "alice")

	f, err := s.Create(ctx, domain.FlowTemplate{})
	require.NoError(t, err)
	assert.Equal(t, "alice", f.Owner)
	require.Len(t, p.changes, 1)
	assert.Equal(t, "flow.created", p.changes[0].Type)
	assert.Equal(t, "alice", p.changes[0].ActorID)
}

func TestUpdatePartial(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	f, err := s.Create(ctx, domain.FlowTemplate{
		Name: "f1", Owner: "bob", Tags: []string{"a", "b"}, Triggers: []string{"cron"},
	})
	require.NoError(t, err)

	active := true
	tags := []string{"b", "c", "c"}
	got, err := s.Update(ctx, f.ID, domain.FlowUpdate{Active: &active, Tags: &tags})
	require.NoError(t, err)

	assert.Equal(t, "f1", got.Name)
	assert.Equal(t, "bob", got.Owner)
	assert.True(t, got.Active)
	assert.Equal(t, []string{"b", "c"}, got.Tags)
	assert.Equal(t, []string{"cron"}, got.Triggers)
	assert.True(t, got.LastModifiedDate.After(f.LastModifiedDate))

	empty := []string{}
	got, err = s.Update(ctx, f.ID, domain.FlowUpdate{Triggers: &empty})
	require.NoError(t, err)
	assert.Empty(t, got.Triggers)
}

func TestUpdateMissing(t *testing.T) {
	s, _ := newStore(t)
	_, err := s.Update(context.Background(), "nope", domain.FlowUpdate{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAttachOnce(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	f, err := s.Create(ctx, domain.FlowTemplate{})
	require.NoError(t, err)

	_, err = s.AttachAction(ctx, f.ID, action("s1"))
	require.NoError(t, err)
	_, err = s.AttachAction(ctx, f.ID, action("s1"))
	assert.ErrorIs(t, err, domain.ErrConflict)

	got, err := s.Get(f.ID)
	require.NoError(t, err)
	assert.Len(t, got.Actions, 1)
}

func TestAttachRejectsActionOwnedElsewhere(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	f1, _ := s.Create(ctx, domain.FlowTemplate{})
	f2, _ := s.Create(ctx, domain.FlowTemplate{})

	_, err := s.AttachAction(ctx, f1.ID, action("s1"))
	require.NoError(t, err)
	_, err = s.AttachAction(ctx, f2.ID, action("s1"))
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestMovePreservesSet(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	f, _ := s.Create(ctx, domain.FlowTemplate{})
	for _, id := range []string{"a", "b", "c", "d"} {
		_, err := s.AttachAction(ctx, f.ID, action(id))
		require.NoError(t, err)
	}

	got, err := s.MoveAction(ctx, f.ID, "a", 99)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c", "d", "a"}, actionIDs(got))

	got, err = s.MoveAction(ctx, f.ID, "d", -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "b", "c", "a"}, actionIDs(got))
	assert.ElementsMatch(t, []string{"a", "b", "c", "d"}, actionIDs(got))

	_, err = s.MoveAction(ctx, f.ID, "zz", 0)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRemoveActionNoop(t *testing.T) {
	s, p := newStore(t)
	ctx := context.Background()
	f, _ := s.Create(ctx, domain.FlowTemplate{})
	_, err := s.AttachAction(ctx, f.ID, action("s1"))
	require.NoError(t, err)

	got, err := s.RemoveAction(ctx, f.ID, "s1")
	require.NoError(t, err)
	assert.Empty(t, got.Actions)

	before := len(p.changes)
	got, err = s.RemoveAction(ctx, f.ID, "s1")
	require.NoError(t, err)
	assert.Empty(t, got.Actions)
	assert.Len(t, p.changes, before)

	_, err = s.RemoveAction(ctx, "nope", "s1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDestroyCascades(t *testing.T) {
	s, p := newStore(t)
	ctx := context.Background()
	f, _ := s.Create(ctx, domain.FlowTemplate{})
	_, err := s.AttachAction(ctx, f.ID, action("s1"))
	require.NoError(t, err)

	require.NoError(t, s.Destroy(ctx, f.ID))
	_, err = s.Get(f.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.GetAction(f.ID, "s1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, s.Destroy(ctx, f.ID), domain.ErrNotFound)
	assert.Empty(t, p.flows)

	// the released id may be attached again
	f2, _ := s.Create(ctx, domain.FlowTemplate{})
	_, err = s.AttachAction(ctx, f2.ID, action("s1"))
	assert.NoError(t, err)
}

func TestFailedWriteLeavesStateUntouched(t *testing.T) {
	s, p := newStore(t)
	ctx := context.Background()
	f, _ := s.Create(ctx, domain.FlowTemplate{Name: "keep"})

	p.fail = errors.New("disk full")
	name := "changed"
	_, err := s.Update(ctx, f.ID, domain.FlowUpdate{Name: &name})
	require.Error(t, err)
	_, err = s.AttachAction(ctx, f.ID, action("s1"))
	require.Error(t, err)
	require.Error(t, s.Destroy(ctx, f.ID))

	got, err := s.Get(f.ID)
	require.NoError(t, err)
	assert.Equal(t, "keep", got.Name)
	assert.Empty(t, got.Actions)
}

func TestLoadRestoresOrder(t *testing.T) {
	s, p := newStore(t)
	ctx := context.Background()
	for _, id := range []string{"x", "y", "z"} {
		_, err := s.Create(ctx, domain.FlowTemplate{ID: id})
		require.NoError(t, err)
	}

	reloaded := flow.NewStore(p)
	require.NoError(t, reloaded.Load(ctx))
	var ids []string
	for _, f := range reloaded.List() {
		ids = append(ids, f.ID)
	}
	assert.Equal(t, []string{"x", "y", "z"}, ids)
}

func actionIDs(f domain.Flow) []string {
	var ids []string
	for _, a := range f.Actions {
		ids = append(ids, a.ID)
	}
	return ids
}
