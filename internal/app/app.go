package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"automate/internal/automation"
	"automate/internal/config"
	"automate/internal/db"
	"automate/internal/engine"
	"automate/internal/flow"
	"automate/internal/migrate"
	"automate/internal/repo"
	"automate/internal/staging"
)

// Runtime holds everything wired at process start.
type Runtime struct {
	Config     *config.Config
	DB         *sql.DB
	Repo       repo.Repo
	Automation *automation.Local
	Engine     engine.Engine
	Log        *slog.Logger
}

// NewLogger builds the process logger from the log section of cfg.
func NewLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Log.Level)}
	if strings.EqualFold(cfg.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Bootstrap opens storage, restores persisted flows and wires the staging
// registry, flow store and local automation engine together.
func Bootstrap(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Runtime, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	workspace := cfg.Storage.Workspace
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	version, err := migrate.Migrate(ctx, conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	r := repo.New(conn)
	flows := flow.NewStore(r)
	if err := flows.Load(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	specsDir := cfg.Engine.SpecsDir
	if specsDir != "" && !filepath.IsAbs(specsDir) {
		specsDir = filepath.Join(workspace, specsDir)
	}
	auto := automation.NewLocal(automation.LocalConfig{
		SpecsDir:  specsDir,
		QueueSize: cfg.Engine.QueueSize,
		Logger:    logger,
	})
	auto.Bind(flows.Get)

	e := engine.New(staging.New(), flows, auto)
	e.Log = logger
	e.PauseOnEdit = cfg.Engine.PauseOnEdit

	rt := &Runtime{Config: cfg, DB: conn, Repo: r, Automation: auto, Engine: e, Log: logger}
	logger.Info("storage ready", "db", db.Path(workspace), "schema_version", version, "flows", len(flows.List()))
	if cfg.Engine.AutoStart {
		if err := e.StartAutomation(ctx); err != nil {
			rt.Close()
			return nil, fmt.Errorf("start automation: %w", err)
		}
	}
	return rt, nil
}

// Close stops the automation engine and releases storage.
func (r *Runtime) Close() error {
	r.Automation.Stop()
	return r.DB.Close()
}
