package engine

import (
	"context"
	"fmt"
	"log/slog"

	"automate/internal/automation"
	"automate/internal/domain"
	"automate/internal/flow"
	"automate/internal/staging"
)

// Engine composes the staging registry, the flow store and the automation
// engine into the operations exposed to callers.
type Engine struct {
	Staging    *staging.Registry
	Flows      *flow.Store
	Automation automation.Engine
	Log        *slog.Logger

	// PauseOnEdit stops the automation engine before structural flow edits.
	PauseOnEdit bool
}

func New(st *staging.Registry, flows *flow.Store, auto automation.Engine) Engine {
	return Engine{
		Staging:    st,
		Flows:      flows,
		Automation: auto,
		Log:        slog.Default(),
	}
}

func (e Engine) logger() *slog.Logger {
	if e.Log != nil {
		return e.Log
	}
	return slog.Default()
}

// StartAutomation stops, re-initializes and starts the automation engine.
func (e Engine) StartAutomation(ctx context.Context) error {
	e.Automation.Stop()
	if err := e.Automation.Initialize(ctx); err != nil {
		return err
	}
	return e.Automation.Start()
}

func (e Engine) StopAutomation() {
	e.Automation.Stop()
}

func (e Engine) Services() []automation.Service {
	return e.Automation.Services()
}

// Methods flattens the methods of every service.
func (e Engine) Methods() []automation.Method {
	var res []automation.Method
	for _, srv := range e.Automation.Services() {
		res = append(res, srv.Methods...)
	}
	if res == nil {
		res = []automation.Method{}
	}
	return res
}

// StagedActionOptions are parameters for creating a staged action.
type StagedActionOptions struct {
	Name    string
	Service string
	Method  string
	Args    map[string]any
}

func (e Engine) CreateStagedAction(opts StagedActionOptions) (domain.Action, error) {
	srv, ok := e.Automation.FindService(opts.Service)
	if !ok {
		return domain.Action{}, fmt.Errorf("service %s: %w", opts.Service, domain.ErrNotFound)
	}
	m, ok := srv.FindMethod(opts.Method)
	if !ok {
		return domain.Action{}, fmt.Errorf("method %s.%s: %w", opts.Service, opts.Method, domain.ErrNotFound)
	}
	a := e.Staging.Create(opts.Name, domain.MethodRef{Service: srv.Name, Method: m.Name}, opts.Args)
	e.logger().Debug("action staged", "action", a.ID, "service", srv.Name, "method", m.Name)
	return a, nil
}

func (e Engine) CreateFlow(ctx context.Context, tpl domain.FlowTemplate) (domain.Flow, error) {
	f, err := e.Flows.Create(ctx, tpl)
	if err != nil {
		return domain.Flow{}, err
	}
	e.logger().Info("flow created", "flow", f.ID)
	return f, nil
}

func (e Engine) UpdateFlow(ctx context.Context, id string, u domain.FlowUpdate) (domain.Flow, error) {
	if _, err := e.Flows.Get(id); err != nil {
		return domain.Flow{}, err
	}
	e.pause()
	return e.Flows.Update(ctx, id, u)
}

func (e Engine) DestroyFlow(ctx context.Context, id string) error {
	if _, err := e.Flows.Get(id); err != nil {
		return err
	}
	e.pause()
	if err := e.Flows.Destroy(ctx, id); err != nil {
		return err
	}
	e.logger().Info("flow destroyed", "flow", id)
	return nil
}

// AttachAction moves a staged action to the end of a flow. The staged entry is
// consumed only after the flow accepted it.
func (e Engine) AttachAction(ctx context.Context, flowID, actionID string) (domain.Flow, error) {
	a, err := e.Staging.Get(actionID)
	if err != nil {
		return domain.Flow{}, err
	}
	if _, err := e.Flows.Get(flowID); err != nil {
		return domain.Flow{}, err
	}
	if owner, ok := e.Flows.Owner(actionID); ok {
		return domain.Flow{}, fmt.Errorf("action %s in flow %s: %w", actionID, owner, domain.ErrConflict)
	}
	e.pause()
	f, err := e.Flows.AttachAction(ctx, flowID, a)
	if err != nil {
		return domain.Flow{}, err
	}
	if err := e.Staging.Remove(actionID); err != nil {
		e.logger().Warn("staged action vanished during attach", "action", actionID, "error", err)
	}
	return f, nil
}

func (e Engine) MoveAction(ctx context.Context, flowID, actionID string, pos int) (domain.Flow, error) {
	if _, err := e.Flows.GetAction(flowID, actionID); err != nil {
		return domain.Flow{}, err
	}
	e.pause()
	return e.Flows.MoveAction(ctx, flowID, actionID, pos)
}

// RemoveAction leaves the engine alone when the action is not in the flow.
func (e Engine) RemoveAction(ctx context.Context, flowID, actionID string) (domain.Flow, error) {
	f, err := e.Flows.Get(flowID)
	if err != nil {
		return domain.Flow{}, err
	}
	if _, ok := f.GetAction(actionID); !ok {
		return f, nil
	}
	e.pause()
	return e.Flows.RemoveAction(ctx, flowID, actionID)
}

// RunFlow hands the flow to the automation engine and returns at once.
func (e Engine) RunFlow(id string, args map[string]any) error {
	if _, err := e.Flows.Get(id); err != nil {
		return err
	}
	e.Automation.DispatchRun(automation.RunRequest{FlowIDs: []string{id}, Args: args})
	e.logger().Info("run dispatched", "flow", id)
	return nil
}

func (e Engine) pause() {
	if e.PauseOnEdit && e.Automation.Running() {
		e.logger().Info("pausing automation engine for flow edit")
		e.Automation.Stop()
	}
}
