package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// WriteRun appends rec to the ledger and returns the seq it was assigned.
// Writing an id that already exists is a no-op returning the stored seq.
func (s *Store) WriteRun(ctx context.Context, rec Record) (int64, error) {
	if rec.ID == "" {
		return 0, fmt.Errorf("write run: empty id")
	}
	if rec.Request == "" {
		rec.Request = "{}"
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("write run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var existing int64
	err = tx.QueryRowContext(ctx, `SELECT seq FROM runs WHERE id = ?`, rec.ID).Scan(&existing)
	switch {
	case err == nil:
		return existing, nil
	case !errors.Is(err, sql.ErrNoRows):
		return 0, fmt.Errorf("write run: lookup: %w", err)
	}

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM runs`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("write run: next seq: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, digest, framework, verdict, groups, cases, passed, failed, errored,
		 timed_out, duration_ms, stdout, stderr, request, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		seq,
		rec.Digest,
		rec.Framework,
		rec.Verdict.String(),
		rec.Counts.Groups,
		rec.Counts.Cases,
		rec.Counts.Passed,
		rec.Counts.Failed,
		rec.Counts.Errored,
		rec.TimedOut,
		rec.Duration.Milliseconds(),
		rec.Stdout,
		rec.Stderr,
		rec.Request,
		formatTime(rec.CreatedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("write run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_events (run_id, idx, kind, text, millis, fatal)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("write run events: prepare: %w", err)
	}
	defer stmt.Close()

	for i, ev := range rec.Events {
		if _, err := stmt.ExecContext(ctx, rec.ID, i, ev.Kind.String(), ev.Text, ev.Millis, ev.Fatal); err != nil {
			return 0, fmt.Errorf("write run event %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("write run: commit: %w", err)
	}
	return seq, nil
}

// DeleteRun removes a run and its events.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete run %s: %w", id, ErrNotFound)
	}
	return nil
}
