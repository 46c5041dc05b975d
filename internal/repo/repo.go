package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"automate/internal/domain"
	"automate/internal/events"
	"automate/internal/flow"
)

// Repo persists flows and their change log in SQLite. It satisfies
// flow.Persister.
type Repo struct {
	DB     *sql.DB
	Events events.Writer
}

var ErrNotFound = domain.ErrNotFound

var _ flow.Persister = Repo{}

func New(db *sql.DB) Repo {
	return Repo{DB: db}
}

// SaveFlow upserts the flow and appends the change, atomically. New flows are
// placed after every existing one.
func (r Repo) SaveFlow(ctx context.Context, f domain.Flow, c flow.Change) error {
	body, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal flow: %w", err)
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO flows(id,position,name,owner,active,body_json,created_at,updated_at)
VALUES (?,(SELECT COALESCE(MAX(position),0)+1 FROM flows),?,?,?,?,?,?)
ON CONFLICT(id) DO UPDATE SET name=excluded.name, owner=excluded.owner, active=excluded.active, body_json=excluded.body_json, updated_at=excluded.updated_at`,
		f.ID, f.Name, nullable(f.Owner), boolInt(f.Active), string(body), formatTime(f.CreatedDate), formatTime(f.LastModifiedDate))
	if err != nil {
		return fmt.Errorf("upsert flow: %w", err)
	}
	if err := r.Events.Append(ctx, tx, c.Type, "flow", f.ID, c.ActorID, c.Payload); err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return tx.Commit()
}

func (r Repo) DeleteFlow(ctx context.Context, id string, c flow.Change) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	res, err := tx.ExecContext(ctx, `DELETE FROM flows WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("flow %s: %w", id, ErrNotFound)
	}
	if err := r.Events.Append(ctx, tx, c.Type, "flow", id, c.ActorID, c.Payload); err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return tx.Commit()
}

// ListFlows returns every stored flow in creation order.
func (r Repo) ListFlows(ctx context.Context) ([]domain.Flow, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,body_json FROM flows ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Flow
	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return nil, err
		}
		var f domain.Flow
		if err := json.Unmarshal([]byte(body), &f); err != nil {
			return nil, fmt.Errorf("decode flow %s: %w", id, err)
		}
		res = append(res, f.Clone())
	}
	return res, rows.Err()
}

// EventFilters narrow LatestEvents.
type EventFilters struct {
	Limit    int
	Type     string
	EntityID string
}

// LatestEvents returns change-log entries newest first.
func (r Repo) LatestEvents(ctx context.Context, f EventFilters) ([]domain.Event, error) {
	var (
		clauses []string
		args    []any
	)
	if f.Type != "" {
		clauses = append(clauses, "type=?")
		args = append(args, f.Type)
	}
	if f.EntityID != "" {
		clauses = append(clauses, "entity_id=?")
		args = append(args, f.EntityID)
	}
	query := `SELECT id,ts,type,entity_kind,COALESCE(entity_id,''),actor_id,payload_json FROM events`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY id DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Event{}
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.EntityKind, &e.EntityID, &e.ActorID, &e.Payload); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
