// Package automation defines the engine collaborator the control plane
// consumes: a service catalog, a run dispatcher and a start/stop lifecycle.
package automation

import (
	"context"
	"errors"
	"slices"
)

var ErrNotInitialized = errors.New("automation engine not initialized")

type Param struct {
	Name        string `json:"name" yaml:"name"`
	Type        string `json:"type,omitempty" yaml:"type"`
	Required    bool   `json:"required" yaml:"required"`
	Description string `json:"description,omitempty" yaml:"description"`
}

type Method struct {
	Service     string  `json:"service" yaml:"-"`
	Name        string  `json:"name" yaml:"name"`
	Description string  `json:"description,omitempty" yaml:"description"`
	Params      []Param `json:"params" yaml:"params"`
}

type Service struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description"`
	Methods     []Method `json:"methods" yaml:"methods"`
}

// FindMethod looks a method up by name.
func (s Service) FindMethod(name string) (Method, bool) {
	i := slices.IndexFunc(s.Methods, func(m Method) bool { return m.Name == name })
	if i < 0 {
		return Method{}, false
	}
	return s.Methods[i], true
}

// RunRequest asks the engine to execute flows with the given args.
type RunRequest struct {
	FlowIDs []string
	Args    map[string]any
}

// Engine is the narrow surface of the automation engine used by the core.
// DispatchRun must not block on execution.
type Engine interface {
	Services() []Service
	FindService(name string) (Service, bool)
	DispatchRun(req RunRequest)
	Initialize(ctx context.Context) error
	Start() error
	Stop()
	Running() bool
}
