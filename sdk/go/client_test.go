package automatesdk_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"automate/internal/automation"
	"automate/internal/engine"
	"automate/internal/flow"
	"automate/internal/server"
	"automate/internal/staging"
	automatesdk "automate/sdk/go"
)

func newClient(t *testing.T) *automatesdk.Client {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	flows := flow.NewStore(nil)
	auto := automation.NewLocal(automation.LocalConfig{Logger: logger})
	auto.Bind(flows.Get)
	e := engine.New(staging.New(), flows, auto)
	e.Log = logger
	handler, err := server.New(server.Config{Engine: e, Logger: logger})
	require.NoError(t, err)
	srv := httptest.NewServer(handler)
	t.Cleanup(func() {
		srv.Close()
		auto.Stop()
	})
	return automatesdk.New(srv.URL)
}

func TestClientAssemblesFlow(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()

	id, err := c.CreateFlow(ctx, automatesdk.FlowInput{ID: "f1", Name: "sdk", Tags: []string{"x"}})
	require.NoError(t, err)
	assert.Equal(t, "f1", id)

	actionID, err := c.CreateStagedAction(ctx, automatesdk.StagedActionInput{
		Service: "log",
		Method:  "print",
		Args:    map[string]any{"message": "hi"},
	})
	require.NoError(t, err)
	staged, err := c.ListStagedActions(ctx)
	require.NoError(t, err)
	require.Len(t, staged, 1)

	f, err := c.AttachAction(ctx, "f1", actionID)
	require.NoError(t, err)
	require.Len(t, f.Actions, 1)
	assert.Equal(t, "log", f.Actions[0].Method.Service)

	a, err := c.GetFlowAction(ctx, "f1", actionID)
	require.NoError(t, err)
	assert.Equal(t, "hi", a.Args["message"])

	f, err = c.MoveAction(ctx, "f1", actionID, 5)
	require.NoError(t, err)
	assert.Len(t, f.Actions, 1)

	name := "renamed"
	f, err = c.UpdateFlow(ctx, "f1", automatesdk.FlowPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "renamed", f.Name)
	assert.Equal(t, []string{"x"}, f.Tags)

	require.NoError(t, c.RunFlow(ctx, "f1", nil))
	require.NoError(t, c.RunFlow(ctx, "f1", map[string]any{"k": "v"}))

	f, err = c.RemoveAction(ctx, "f1", actionID)
	require.NoError(t, err)
	assert.Empty(t, f.Actions)

	require.NoError(t, c.DeleteFlow(ctx, "f1"))
	flows, err := c.ListFlows(ctx)
	require.NoError(t, err)
	assert.Empty(t, flows)
}

func TestClientEngineAndCatalog(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()

	running, err := c.EngineRunning(ctx)
	require.NoError(t, err)
	assert.False(t, running)

	running, err = c.StartEngine(ctx)
	require.NoError(t, err)
	assert.True(t, running)

	services, err := c.Services(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, services)
	methods, err := c.Methods(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, methods)

	running, err = c.StopEngine(ctx)
	require.NoError(t, err)
	assert.False(t, running)
}

func TestClientDecodesErrors(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()

	_, err := c.GetFlow(ctx, "missing")
	var apiErr *automatesdk.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "not_found", apiErr.Code)

	_, err = c.CreateFlow(ctx, automatesdk.FlowInput{ID: "dup"})
	require.NoError(t, err)
	_, err = c.CreateFlow(ctx, automatesdk.FlowInput{ID: "dup"})
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)

	err = c.DeleteStagedAction(ctx, "nope")
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}
