package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/verilib/internal/model"
)

// Run is one journal record.
type Run struct {
	ID        string             `json:"id"`
	Phase     string             `json:"phase"`
	StartedAt time.Time          `json:"started_at"`
	Module    string             `json:"module,omitempty"`
	Before    int                `json:"before"`
	After     int                `json:"after"`
	Created   []model.Identifier `json:"created"`
	Deleted   []model.Identifier `json:"deleted"`
}

const (
	actionCreate = "create"
	actionDelete = "delete"
)

// Record inserts a run and its changes in one transaction. Recording the same
// run id twice is a no-op.
func (s *Store) Record(ctx context.Context, run Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, phase, started_at, module, before_total, after_total, created, deleted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Phase,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.Module,
		run.Before,
		run.After,
		len(run.Created),
		len(run.Deleted),
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil
	}

	if err := insertChanges(ctx, tx, run.ID, actionCreate, run.Created); err != nil {
		return err
	}
	if err := insertChanges(ctx, tx, run.ID, actionDelete, run.Deleted); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

func insertChanges(ctx context.Context, tx *sql.Tx, runID, action string, ids []model.Identifier) error {
	for _, id := range ids {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO run_changes (run_id, action, identifier)
			VALUES (?, ?, ?)
			ON CONFLICT DO NOTHING
		`, runID, action, string(id))
		if err != nil {
			return fmt.Errorf("record %s of %s: %w", action, id, err)
		}
	}
	return nil
}

// List returns up to limit runs, newest first. A limit of zero or less
// returns every run.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, phase, started_at, module, before_total, after_total
		FROM runs
		ORDER BY started_at DESC, id COLLATE BINARY DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}

	runs := []Run{}
	for rows.Next() {
		var r Run
		var started string
		if err := rows.Scan(&r.ID, &r.Phase, &started, &r.Module, &r.Before, &r.After); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt, err = time.Parse(time.RFC3339Nano, started)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("run %s: bad started_at %q: %w", r.ID, started, err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	rows.Close()

	// The single connection must be free before the per-run queries.
	for i := range runs {
		if err := s.loadChanges(ctx, &runs[i]); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

func (s *Store) loadChanges(ctx context.Context, r *Run) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT action, identifier
		FROM run_changes
		WHERE run_id = ?
		ORDER BY action ASC, identifier COLLATE BINARY ASC
	`, r.ID)
	if err != nil {
		return fmt.Errorf("query changes of %s: %w", r.ID, err)
	}
	defer rows.Close()

	r.Created = []model.Identifier{}
	r.Deleted = []model.Identifier{}
	for rows.Next() {
		var action, id string
		if err := rows.Scan(&action, &id); err != nil {
			return fmt.Errorf("scan change: %w", err)
		}
		switch action {
		case actionCreate:
			r.Created = append(r.Created, model.Identifier(id))
		case actionDelete:
			r.Deleted = append(r.Deleted, model.Identifier(id))
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate changes of %s: %w", r.ID, err)
	}
	return nil
}
