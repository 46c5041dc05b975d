package automation_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"automate/internal/automation"
	"automate/internal/domain"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const mailSpec = `name: mail
description: Outbound mail
methods:
  - name: send
    params:
      - name: to
        type: string
        required: true
      - name: subject
        type: string
`

func TestLoadSpecs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mail.yml"), []byte(mailSpec), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	services, err := automation.LoadSpecs(dir)
	require.NoError(t, err)
	require.Len(t, services, 1)

	m, ok := services[0].FindMethod("send")
	require.True(t, ok)
	assert.Equal(t, "mail", m.Service)
	assert.Len(t, m.Params, 2)
	assert.True(t, m.Params[0].Required)

	_, ok = services[0].FindMethod("receive")
	assert.False(t, ok)
}

func TestLoadSpecsMissingDir(t *testing.T) {
	services, err := automation.LoadSpecs(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Empty(t, services)
}

func TestParseSpecRejectsDuplicates(t *testing.T) {
	_, err := automation.ParseSpec([]byte("name: x\nmethods:\n  - name: a\n  - name: a\n"))
	assert.Error(t, err)
	_, err = automation.ParseSpec([]byte("methods: []\n"))
	assert.Error(t, err)
}

func TestCatalogIncludesBuiltinsAndSpecs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mail.yaml"), []byte(mailSpec), 0o644))
	l := automation.NewLocal(automation.LocalConfig{SpecsDir: dir, Logger: quietLogger()})

	_, ok := l.FindService("http")
	assert.True(t, ok)
	_, ok = l.FindService("mail")
	assert.False(t, ok)

	require.NoError(t, l.Initialize(context.Background()))
	srv, ok := l.FindService("mail")
	require.True(t, ok)
	_, ok = srv.FindMethod("send")
	assert.True(t, ok)
}

func TestStartRequiresInitialize(t *testing.T) {
	l := automation.NewLocal(automation.LocalConfig{Logger: quietLogger()})
	assert.ErrorIs(t, l.Start(), automation.ErrNotInitialized)
	assert.False(t, l.Running())

	require.NoError(t, l.Initialize(context.Background()))
	require.NoError(t, l.Start())
	require.NoError(t, l.Start())
	assert.True(t, l.Running())
	l.Stop()
	l.Stop()
	assert.False(t, l.Running())
}

func TestDispatchRunExecutesInOrder(t *testing.T) {
	l := automation.NewLocal(automation.LocalConfig{Logger: quietLogger()})
	calls := make(chan string, 4)
	l.Register(automation.Service{
		Name:    "rec",
		Methods: []automation.Method{{Name: "note"}},
	}, map[string]automation.Handler{
		"note": func(_ context.Context, inv automation.Invocation) error {
			calls <- fmt.Sprintf("%s:%s:%v", inv.FlowID, inv.Action.ID, inv.RunArgs["who"])
			return nil
		},
	})
	ref := domain.MethodRef{Service: "rec", Method: "note"}
	flows := map[string]domain.Flow{
		"f1": {ID: "f1", Actions: []domain.Action{
			{ID: "a1", Method: ref},
			{ID: "a2", Method: domain.MethodRef{Service: "rec", Method: "unhandled"}},
			{ID: "a3", Method: ref},
		}},
	}
	l.Bind(func(id string) (domain.Flow, error) {
		f, ok := flows[id]
		if !ok {
			return domain.Flow{}, domain.ErrNotFound
		}
		return f, nil
	})

	// queued while stopped, executed after start
	l.DispatchRun(automation.RunRequest{FlowIDs: []string{"missing", "f1"}, Args: map[string]any{"who": "me"}})
	require.NoError(t, l.Initialize(context.Background()))
	require.NoError(t, l.Start())
	defer l.Stop()

	assert.Equal(t, "f1:a1:me", receive(t, calls))
	assert.Equal(t, "f1:a3:me", receive(t, calls))
}

func TestDispatchRunDropsWhenFull(t *testing.T) {
	l := automation.NewLocal(automation.LocalConfig{QueueSize: 1, Logger: quietLogger()})
	done := make(chan struct{})
	go func() {
		l.DispatchRun(automation.RunRequest{FlowIDs: []string{"a"}})
		l.DispatchRun(automation.RunRequest{FlowIDs: []string{"b"}})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("DispatchRun blocked")
	}
}

func TestHTTPGetBuiltin(t *testing.T) {
	hits := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits <- r.Method + " " + r.URL.Path
	}))
	defer srv.Close()

	l := automation.NewLocal(automation.LocalConfig{Logger: quietLogger()})
	l.Bind(func(id string) (domain.Flow, error) {
		return domain.Flow{ID: id, Actions: []domain.Action{{
			ID:     "a1",
			Method: domain.MethodRef{Service: "http", Method: "get"},
			Args:   map[string]any{"url": srv.URL + "/ping"},
		}}}, nil
	})
	require.NoError(t, l.Initialize(context.Background()))
	require.NoError(t, l.Start())
	defer l.Stop()
	l.DispatchRun(automation.RunRequest{FlowIDs: []string{"f"}})

	assert.Equal(t, "GET /ping", receive(t, hits))
}

func receive(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for handler")
		return ""
	}
}
