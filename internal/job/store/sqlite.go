// Copyright (c) 2025 vpo authors
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vpoeng/vpo/internal/job/model"
	"github.com/vpoeng/vpo/internal/persistence/sqlite"
)

const timeLayout = time.RFC3339Nano

const schemaDDL = `
CREATE TABLE IF NOT EXISTS jobs (
	id                  TEXT PRIMARY KEY,
	kind                TEXT NOT NULL,
	source_path         TEXT NOT NULL,
	target_path         TEXT,
	policy_ref          TEXT NOT NULL,
	priority            INTEGER NOT NULL,
	status              TEXT NOT NULL,
	progress_percent    REAL NOT NULL DEFAULT 0,
	progress_detail     TEXT,
	created_at          TEXT NOT NULL,
	claimed_at          TEXT,
	finished_at         TEXT,
	worker_heartbeat_at TEXT,
	error_message       TEXT,
	attempt_count       INTEGER NOT NULL DEFAULT 0,
	cancel_requested    INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_jobs_status_priority ON jobs(status, priority, created_at);
`

// SQLiteStore is a durable Store backed by modernc.org/sqlite, opened
// through the shared job-store connection pool (internal/persistence/sqlite).
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (creating if absent) the job-store database at path
// and ensures its schema exists.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sqlite.Open(path, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schemaDDL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("job store: schema init: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) Enqueue(ctx context.Context, r model.Record) error {
	if err := r.Validate(); err != nil {
		return err
	}
	detail, err := marshalDetail(r.ProgressDetail)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO jobs (id, kind, source_path, target_path, policy_ref, priority, status,
			progress_percent, progress_detail, created_at, claimed_at, finished_at,
			worker_heartbeat_at, error_message, attempt_count, cancel_requested)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`,
		r.ID, string(r.Kind), r.SourcePath, nullableStr(r.TargetPath), r.PolicyRef, r.Priority, string(r.Status),
		r.ProgressPercent, detail, formatTime(&r.CreatedAt), formatTime(r.ClaimedAt), formatTime(r.FinishedAt),
		formatTime(r.WorkerHeartbeatAt), nullableStr(r.ErrorMessage), r.AttemptCount)
	if err != nil {
		return fmt.Errorf("job store: enqueue: %w", err)
	}
	return nil
}

// ClaimNext implements the atomic claim protocol (§4.6): select the
// candidate id, then a conditional UPDATE guarded by status='QUEUED' so a
// concurrent claimant's race loses cleanly (0 rows affected); retry a bounded
// number of times rather than looping forever on persistent contention.
func (s *SQLiteStore) ClaimNext(ctx context.Context, workerID string) (*model.Record, error) {
	const maxAttempts = 8
	for attempt := 0; attempt < maxAttempts; attempt++ {
		var id string
		err := s.db.QueryRowContext(ctx, `
			SELECT id FROM jobs WHERE status = ?
			ORDER BY priority ASC, created_at ASC LIMIT 1`, string(model.StatusQueued)).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("job store: claim select: %w", err)
		}

		now := time.Now().UTC()
		res, err := s.db.ExecContext(ctx, `
			UPDATE jobs SET status = ?, claimed_at = ?, worker_heartbeat_at = ?, attempt_count = attempt_count + 1
			WHERE id = ? AND status = ?`,
			string(model.StatusRunning), formatTime(&now), formatTime(&now), id, string(model.StatusQueued))
		if err != nil {
			return nil, fmt.Errorf("job store: claim update: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("job store: claim rows affected: %w", err)
		}
		if n == 0 {
			continue // lost the race to another claimant; retry
		}
		return s.Get(ctx, id)
	}
	return nil, fmt.Errorf("job store: claim_next: exhausted %d attempts under contention", maxAttempts)
}

func (s *SQLiteStore) Heartbeat(ctx context.Context, jobID string, progressPercent float64, progressDetail map[string]any) error {
	detail, err := marshalDetail(progressDetail)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET progress_percent = ?, progress_detail = ?, worker_heartbeat_at = ?
		WHERE id = ? AND status = ?`,
		progressPercent, detail, formatTime(&now), jobID, string(model.StatusRunning))
	if err != nil {
		return fmt.Errorf("job store: heartbeat: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		rec, err := s.Get(ctx, jobID)
		if err != nil {
			return err
		}
		if rec == nil {
			return ErrNotFound
		}
	}
	return nil
}

func (s *SQLiteStore) Finalize(ctx context.Context, jobID string, status model.Status, errMessage *string) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET status = ?, finished_at = ?, error_message = ?, cancel_requested = 0
		WHERE id = ? AND status NOT IN (?, ?, ?)`,
		string(status), formatTime(&now), nullableStr(errMessage),
		jobID, string(model.StatusCompleted), string(model.StatusFailed), string(model.StatusCancelled))
	if err != nil {
		return fmt.Errorf("job store: finalize: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		rec, err := s.Get(ctx, jobID)
		if err != nil {
			return err
		}
		if rec == nil {
			return ErrNotFound
		}
		// already terminal: write-once, not an error (§3.5)
	}
	return nil
}

func (s *SQLiteStore) ResetStale(ctx context.Context, now time.Time, maxStale time.Duration, maxAttempts int) (int, error) {
	cutoff := now.Add(-maxStale)

	exhaustRes, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET status = ?, finished_at = ?, error_message = ?
		WHERE status = ? AND worker_heartbeat_at IS NOT NULL AND worker_heartbeat_at < ? AND attempt_count >= ?`,
		string(model.StatusFailed), formatTime(&now), "exhausted retry attempts after stale heartbeat",
		string(model.StatusRunning), formatTime(&cutoff), maxAttempts)
	if err != nil {
		return 0, fmt.Errorf("job store: reset_stale exhaust: %w", err)
	}
	exhausted, _ := exhaustRes.RowsAffected()

	requeueRes, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET status = ?, claimed_at = NULL, worker_heartbeat_at = NULL
		WHERE status = ? AND worker_heartbeat_at IS NOT NULL AND worker_heartbeat_at < ? AND attempt_count < ?`,
		string(model.StatusQueued), string(model.StatusRunning), formatTime(&cutoff), maxAttempts)
	if err != nil {
		return 0, fmt.Errorf("job store: reset_stale requeue: %w", err)
	}
	requeued, _ := requeueRes.RowsAffected()

	return int(exhausted + requeued), nil
}

func (s *SQLiteStore) List(ctx context.Context, filter Filter, limit int) ([]model.Record, error) {
	query := `SELECT id, kind, source_path, target_path, policy_ref, priority, status,
		progress_percent, progress_detail, created_at, claimed_at, finished_at,
		worker_heartbeat_at, error_message, attempt_count FROM jobs WHERE 1=1`
	var args []any
	if len(filter.Statuses) > 0 {
		query += " AND status IN (" + placeholders(len(filter.Statuses)) + ")"
		for _, st := range filter.Statuses {
			args = append(args, string(st))
		}
	}
	if filter.Kind != nil {
		query += " AND kind = ?"
		args = append(args, string(*filter.Kind))
	}
	query += " ORDER BY created_at ASC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("job store: list: %w", err)
	}
	defer rows.Close()

	var out []model.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Get(ctx context.Context, jobID string) (*model.Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, kind, source_path, target_path, policy_ref, priority, status,
		progress_percent, progress_detail, created_at, claimed_at, finished_at,
		worker_heartbeat_at, error_message, attempt_count FROM jobs WHERE id = ?`, jobID)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("job store: get: %w", err)
	}
	return &r, nil
}

func (s *SQLiteStore) CancelRequest(ctx context.Context, jobID string) (CancelOutcome, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET status = ?, finished_at = ? WHERE id = ? AND status = ?`,
		string(model.StatusCancelled), formatTime(&now), jobID, string(model.StatusQueued))
	if err != nil {
		return "", fmt.Errorf("job store: cancel queued: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return CancelAcknowledged, nil
	}

	res, err = s.db.ExecContext(ctx, `
		UPDATE jobs SET cancel_requested = 1 WHERE id = ? AND status = ?`,
		jobID, string(model.StatusRunning))
	if err != nil {
		return "", fmt.Errorf("job store: cancel running: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return CancelAcknowledged, nil
	}

	rec, err := s.Get(ctx, jobID)
	if err != nil {
		return "", err
	}
	if rec == nil {
		return CancelNotFound, nil
	}
	return CancelAlreadyTerminal, nil
}

func (s *SQLiteStore) IsCancelRequested(ctx context.Context, jobID string) (bool, error) {
	var flag int
	err := s.db.QueryRowContext(ctx, `SELECT cancel_requested FROM jobs WHERE id = ?`, jobID).Scan(&flag)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("job store: is_cancel_requested: %w", err)
	}
	return flag != 0, nil
}

func (s *SQLiteStore) PurgeOlderThan(ctx context.Context, cutoff time.Time, statuses []model.Status) (int, error) {
	if len(statuses) == 0 {
		return 0, nil
	}
	query := `DELETE FROM jobs WHERE status IN (` + placeholders(len(statuses)) + `) AND COALESCE(finished_at, created_at) < ?`
	args := make([]any, 0, len(statuses)+1)
	for _, st := range statuses {
		args = append(args, string(st))
	}
	args = append(args, formatTime(&cutoff))

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("job store: purge_older_than: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// PreviewPurge reports the records PurgeOlderThan would remove for the same
// (cutoff, statuses) without deleting anything (§12 "jobs cleanup --dry-run").
func (s *SQLiteStore) PreviewPurge(ctx context.Context, cutoff time.Time, statuses []model.Status) ([]model.Record, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	query := `SELECT id, kind, source_path, target_path, policy_ref, priority, status,
		progress_percent, progress_detail, created_at, claimed_at, finished_at,
		worker_heartbeat_at, error_message, attempt_count FROM jobs
		WHERE status IN (` + placeholders(len(statuses)) + `) AND COALESCE(finished_at, created_at) < ?
		ORDER BY created_at ASC`
	args := make([]any, 0, len(statuses)+1)
	for _, st := range statuses {
		args = append(args, string(st))
	}
	args = append(args, formatTime(&cutoff))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("job store: preview_purge: %w", err)
	}
	defer rows.Close()

	var out []model.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (model.Record, error) {
	var r model.Record
	var kind, status, detail string
	var targetPath, claimedAt, finishedAt, heartbeatAt, errMessage sql.NullString
	var createdAt string

	if err := row.Scan(&r.ID, &kind, &r.SourcePath, &targetPath, &r.PolicyRef, &r.Priority, &status,
		&r.ProgressPercent, &detail, &createdAt, &claimedAt, &finishedAt, &heartbeatAt, &errMessage, &r.AttemptCount); err != nil {
		return model.Record{}, err
	}

	r.Kind = model.Kind(kind)
	r.Status = model.Status(status)
	r.TargetPath = nullableStrPtr(targetPath)
	r.ErrorMessage = nullableStrPtr(errMessage)

	t, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return model.Record{}, fmt.Errorf("job store: parse created_at: %w", err)
	}
	r.CreatedAt = t
	r.ClaimedAt = parseTimePtr(claimedAt)
	r.FinishedAt = parseTimePtr(finishedAt)
	r.WorkerHeartbeatAt = parseTimePtr(heartbeatAt)

	if detail != "" {
		if err := json.Unmarshal([]byte(detail), &r.ProgressDetail); err != nil {
			return model.Record{}, fmt.Errorf("job store: unmarshal progress_detail: %w", err)
		}
	}
	return r, nil
}

func marshalDetail(detail map[string]any) (any, error) {
	if detail == nil {
		return nil, nil
	}
	b, err := json.Marshal(detail)
	if err != nil {
		return nil, fmt.Errorf("job store: marshal progress_detail: %w", err)
	}
	return string(b), nil
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

func parseTimePtr(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t, err := time.Parse(timeLayout, ns.String)
	if err != nil {
		return nil
	}
	return &t
}

func nullableStr(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullableStrPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func placeholders(n int) string {
	out := make([]byte, 0, n*2)
	for i := 0; i < n; i++ {
		if i > 0 {
			out = append(out, ',')
		}
		out = append(out, '?')
	}
	return string(out)
}
