package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"automate/internal/domain"
)

func TestTagsIdempotent(t *testing.T) {
	f := domain.NewFlow("f", domain.FlowTemplate{Tags: []string{"a", "a", "b"}}, time.Now())
	assert.Equal(t, []string{"a", "b"}, f.Tags)

	f.AddTag("a")
	f.RemoveTag("missing")
	assert.Equal(t, []string{"a", "b"}, f.Tags)

	f.ReplaceTags([]string{"b", "c"})
	assert.Equal(t, []string{"b", "c"}, f.Tags)

	f.ReplaceTriggers(nil)
	assert.NotNil(t, f.Triggers)
	assert.Empty(t, f.Triggers)
}

func TestMoveActionClamps(t *testing.T) {
	f := domain.NewFlow("f", domain.FlowTemplate{}, time.Now())
	for _, id := range []string{"a", "b", "c"} {
		f.AddAction(domain.Action{ID: id})
	}

	assert.Equal(t, 2, f.MoveAction("a", 10))
	assert.Equal(t, []string{"b", "c", "a"}, ids(f))

	assert.Equal(t, 0, f.MoveAction("c", -3))
	assert.Equal(t, []string{"c", "b", "a"}, ids(f))

	assert.Equal(t, 1, f.MoveAction("c", 1))
	assert.Equal(t, []string{"b", "c", "a"}, ids(f))

	assert.Equal(t, -1, f.MoveAction("zzz", 0))
}

func TestCloneIsDeep(t *testing.T) {
	f := domain.NewFlow("f", domain.FlowTemplate{Tags: []string{"x"}}, time.Now())
	f.AddAction(domain.Action{ID: "a", Args: map[string]any{"k": "v"}})

	c := f.Clone()
	c.Tags[0] = "y"
	c.Actions[0].Args["k"] = "changed"

	assert.Equal(t, "x", f.Tags[0])
	assert.Equal(t, "v", f.Actions[0].Args["k"])
}

func TestApplyPartial(t *testing.T) {
	f := domain.NewFlow("f", domain.FlowTemplate{Name: "old", Owner: "me"}, time.Now())
	name := "new"
	f.Apply(domain.FlowUpdate{Name: &name})
	assert.Equal(t, "new", f.Name)
	assert.Equal(t, "me", f.Owner)
}

func ids(f domain.Flow) []string {
	var out []string
	for _, a := range f.Actions {
		out = append(out, a.ID)
	}
	return out
}
