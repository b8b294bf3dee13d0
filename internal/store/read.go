package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/kata/internal/protocol"
)

const summaryColumns = `id, seq, digest, framework, verdict, groups, cases, passed, failed, errored,
	timed_out, duration_ms, created_at`

// ListOptions filter ListRuns. Zero values match everything.
type ListOptions struct {
	Framework string
	Verdict   string
	Digest    string
	// Limit keeps the most recent runs; 0 means no limit.
	Limit int
}

// ListRuns returns run summaries ordered by seq ASC, id ASC.
//
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) ListRuns(ctx context.Context, opts ListOptions) ([]Summary, error) {
	var (
		where []string
		args  []any
	)
	if opts.Framework != "" {
		where = append(where, "framework = ?")
		args = append(args, opts.Framework)
	}
	if opts.Verdict != "" {
		where = append(where, "verdict = ?")
		args = append(args, opts.Verdict)
	}
	if opts.Digest != "" {
		where = append(where, "digest = ?")
		args = append(args, opts.Digest)
	}

	query := "SELECT " + summaryColumns + " FROM runs"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	if opts.Limit > 0 {
		// Take the newest rows, then restore ascending order.
		query = "SELECT * FROM (" + query + " ORDER BY seq DESC LIMIT ?) ORDER BY seq ASC, id COLLATE BINARY ASC"
		args = append(args, opts.Limit)
	} else {
		query += " ORDER BY seq ASC, id COLLATE BINARY ASC"
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Summary{}
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun returns the full record for id, events included.
// Returns ErrNotFound if the run is not in the ledger.
func (s *Store) ReadRun(ctx context.Context, id string) (Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+summaryColumns+`, stdout, stderr, request
		FROM runs
		WHERE id = ?
	`, id)

	var (
		rec       Record
		verdict   string
		createdAt string
		millis    int64
	)
	err := row.Scan(
		&rec.ID, &rec.Seq, &rec.Digest, &rec.Framework, &verdict,
		&rec.Counts.Groups, &rec.Counts.Cases, &rec.Counts.Passed, &rec.Counts.Failed, &rec.Counts.Errored,
		&rec.TimedOut, &millis, &createdAt,
		&rec.Stdout, &rec.Stderr, &rec.Request,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("read run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Record{}, fmt.Errorf("read run %s: %w", id, err)
	}

	if rec.Verdict, err = protocol.ParseVerdict(verdict); err != nil {
		return Record{}, fmt.Errorf("read run %s: %w", id, err)
	}
	if rec.CreatedAt, err = parseTime(createdAt); err != nil {
		return Record{}, fmt.Errorf("read run %s: %w", id, err)
	}
	rec.Duration = time.Duration(millis) * time.Millisecond

	if rec.Events, err = s.readEvents(ctx, id); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// readEvents returns a run's stream in emission order.
func (s *Store) readEvents(ctx context.Context, runID string) ([]protocol.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, text, millis, fatal
		FROM run_events
		WHERE run_id = ?
		ORDER BY idx ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query run events: %w", err)
	}
	defer rows.Close()

	events := []protocol.Event{}
	for rows.Next() {
		var (
			ev   protocol.Event
			kind string
		)
		if err := rows.Scan(&kind, &ev.Text, &ev.Millis, &ev.Fatal); err != nil {
			return nil, fmt.Errorf("scan run event: %w", err)
		}
		if ev.Kind, err = parseKind(kind); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run events: %w", err)
	}
	return events, nil
}

func scanSummary(rows *sql.Rows) (Summary, error) {
	var (
		sum       Summary
		verdict   string
		createdAt string
		millis    int64
	)
	if err := rows.Scan(
		&sum.ID, &sum.Seq, &sum.Digest, &sum.Framework, &verdict,
		&sum.Counts.Groups, &sum.Counts.Cases, &sum.Counts.Passed, &sum.Counts.Failed, &sum.Counts.Errored,
		&sum.TimedOut, &millis, &createdAt,
	); err != nil {
		return Summary{}, fmt.Errorf("scan run: %w", err)
	}

	var err error
	if sum.Verdict, err = protocol.ParseVerdict(verdict); err != nil {
		return Summary{}, err
	}
	if sum.CreatedAt, err = parseTime(createdAt); err != nil {
		return Summary{}, err
	}
	sum.Duration = time.Duration(millis) * time.Millisecond
	return sum, nil
}
