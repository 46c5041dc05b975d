package automation

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"automate/internal/domain"
)

const defaultQueueSize = 64

// Invocation is what a method handler receives for one action of a run.
type Invocation struct {
	FlowID  string
	Action  domain.Action
	RunArgs map[string]any
}

type Handler func(ctx context.Context, inv Invocation) error

// FlowLookup resolves a flow id at execution time.
type FlowLookup func(id string) (domain.Flow, error)

type LocalConfig struct {
	SpecsDir  string
	QueueSize int
	Logger    *slog.Logger
}

// Local is an in-process engine. Runs are queued and executed by a single
// worker while the engine is started; queued runs survive Stop.
type Local struct {
	cfg LocalConfig
	log *slog.Logger

	mu          sync.RWMutex
	builtins    []Service
	loaded      []Service
	handlers    map[domain.MethodRef]Handler
	lookup      FlowLookup
	initialized bool

	queue  chan RunRequest
	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewLocal(cfg LocalConfig) *Local {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	l := &Local{
		cfg:      cfg,
		log:      logger.With("component", "automation"),
		handlers: map[domain.MethodRef]Handler{},
		queue:    make(chan RunRequest, cfg.QueueSize),
	}
	registerBuiltins(l)
	return l
}

// Register adds a service to the catalog together with handlers keyed by
// method name. Methods without a handler are listed but skipped at run time.
func (l *Local) Register(srv Service, handlers map[string]Handler) {
	for i := range srv.Methods {
		srv.Methods[i].Service = srv.Name
		if srv.Methods[i].Params == nil {
			srv.Methods[i].Params = []Param{}
		}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.builtins = slices.DeleteFunc(l.builtins, func(s Service) bool { return s.Name == srv.Name })
	l.builtins = append(l.builtins, srv)
	for name, h := range handlers {
		l.handlers[domain.MethodRef{Service: srv.Name, Method: name}] = h
	}
}

// Bind sets the flow lookup used by the worker.
func (l *Local) Bind(lookup FlowLookup) {
	l.mu.Lock()
	l.lookup = lookup
	l.mu.Unlock()
}

// Services lists registered services followed by those loaded from specs.
// A spec service shadows a registered one with the same name.
func (l *Local) Services() []Service {
	l.mu.RLock()
	defer l.mu.RUnlock()
	res := make([]Service, 0, len(l.builtins)+len(l.loaded))
	for _, s := range l.builtins {
		if !slices.ContainsFunc(l.loaded, func(o Service) bool { return o.Name == s.Name }) {
			res = append(res, s)
		}
	}
	return append(res, l.loaded...)
}

func (l *Local) FindService(name string) (Service, bool) {
	for _, s := range l.Services() {
		if s.Name == name {
			return s, true
		}
	}
	return Service{}, false
}

// Initialize (re)loads service specs. It must succeed before Start.
func (l *Local) Initialize(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	services, err := LoadSpecs(l.cfg.SpecsDir)
	if err != nil {
		return fmt.Errorf("load service specs: %w", err)
	}
	l.mu.Lock()
	l.loaded = services
	l.initialized = true
	l.mu.Unlock()
	l.log.Info("engine initialized", "specs_dir", l.cfg.SpecsDir, "spec_services", len(services))
	return nil
}

func (l *Local) Start() error {
	l.mu.RLock()
	ready := l.initialized
	l.mu.RUnlock()
	if !ready {
		return ErrNotInitialized
	}
	l.runMu.Lock()
	defer l.runMu.Unlock()
	if l.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.done = make(chan struct{})
	go l.work(ctx, l.done)
	l.log.Info("engine started", "queued", len(l.queue))
	return nil
}

// Stop halts the worker and waits for the in-flight run to observe
// cancellation. It is safe to call when not running.
func (l *Local) Stop() {
	l.runMu.Lock()
	defer l.runMu.Unlock()
	if l.cancel == nil {
		return
	}
	l.cancel()
	<-l.done
	l.cancel = nil
	l.done = nil
	l.log.Info("engine stopped")
}

func (l *Local) Running() bool {
	l.runMu.Lock()
	defer l.runMu.Unlock()
	return l.cancel != nil
}

// DispatchRun enqueues without blocking. A full queue drops the request.
func (l *Local) DispatchRun(req RunRequest) {
	select {
	case l.queue <- req:
		l.log.Debug("run queued", "flows", req.FlowIDs)
	default:
		l.log.Warn("run queue full, dropping request", "flows", req.FlowIDs)
	}
}

func (l *Local) work(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-l.queue:
			l.execute(ctx, req)
		}
	}
}

func (l *Local) execute(ctx context.Context, req RunRequest) {
	l.mu.RLock()
	lookup := l.lookup
	l.mu.RUnlock()
	if lookup == nil {
		l.log.Error("no flow lookup bound, run discarded", "flows", req.FlowIDs)
		return
	}
	for _, id := range req.FlowIDs {
		f, err := lookup(id)
		if err != nil {
			l.log.Warn("run skipped", "flow", id, "error", err)
			continue
		}
		l.runFlow(ctx, f, req.Args)
	}
}

func (l *Local) runFlow(ctx context.Context, f domain.Flow, args map[string]any) {
	log := l.log.With("flow", f.ID)
	log.Info("run started", "actions", len(f.Actions))
	for i, a := range f.Actions {
		if ctx.Err() != nil {
			log.Warn("run interrupted", "at", i)
			return
		}
		l.mu.RLock()
		h := l.handlers[a.Method]
		l.mu.RUnlock()
		if h == nil {
			log.Info("action skipped, no handler", "action", a.ID, "service", a.Method.Service, "method", a.Method.Method)
			continue
		}
		if err := h(ctx, Invocation{FlowID: f.ID, Action: a, RunArgs: args}); err != nil {
			log.Error("action failed", "action", a.ID, "error", err)
			return
		}
		log.Debug("action done", "action", a.ID)
	}
	log.Info("run finished")
}
