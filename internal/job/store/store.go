// Copyright (c) 2025 vpo authors
// SPDX-License-Identifier: MIT

// Package store defines the Persistent Store interface (spec §6.1) the job
// worker uses to enqueue, claim, heartbeat, and finalize job records.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/vpoeng/vpo/internal/job/model"
)

// ErrNotFound is returned by operations addressing a job id that does not
// exist. Get is the exception: it returns (nil, nil) for a missing id.
var ErrNotFound = errors.New("store: job not found")

// CancelOutcome is the result of a cancel_request call (§6.1).
type CancelOutcome string

const (
	CancelAcknowledged    CancelOutcome = "acknowledged"
	CancelAlreadyTerminal CancelOutcome = "already_terminal"
	CancelNotFound        CancelOutcome = "not_found"
)

// Filter narrows List results. A zero value matches every job.
type Filter struct {
	Statuses []model.Status
	Kind     *model.Kind
}

func (f Filter) matches(r model.Record) bool {
	if len(f.Statuses) > 0 {
		ok := false
		for _, s := range f.Statuses {
			if r.Status == s {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if f.Kind != nil && r.Kind != *f.Kind {
		return false
	}
	return true
}

// Store is the Persistent Store interface consumed by the job worker (§6.1).
// All operations are atomic with respect to concurrent callers; Enqueue,
// ClaimNext, Heartbeat, and Finalize must never silently lose a job.
type Store interface {
	Enqueue(ctx context.Context, r model.Record) error

	// ClaimNext atomically moves the highest-priority QUEUED job (lowest
	// Priority value, then oldest CreatedAt) to RUNNING and returns it.
	// Returns (nil, nil) when the queue is empty.
	ClaimNext(ctx context.Context, workerID string) (*model.Record, error)

	Heartbeat(ctx context.Context, jobID string, progressPercent float64, progressDetail map[string]any) error

	// Finalize moves a RUNNING job to a terminal status. status must be one
	// of StatusCompleted, StatusFailed, or StatusCancelled.
	Finalize(ctx context.Context, jobID string, status model.Status, errMessage *string) error

	// ResetStale requeues (or exhausts, past max attempts) RUNNING jobs whose
	// heartbeat is older than maxStale as of now (§4.6 recovery sweep).
	ResetStale(ctx context.Context, now time.Time, maxStale time.Duration, maxAttempts int) (int, error)

	List(ctx context.Context, filter Filter, limit int) ([]model.Record, error)

	// Get returns (nil, nil) if jobID does not exist.
	Get(ctx context.Context, jobID string) (*model.Record, error)

	CancelRequest(ctx context.Context, jobID string) (CancelOutcome, error)

	// IsCancelRequested reports whether CancelRequest was called against a
	// RUNNING job that has not yet finalized. The worker polls this to build
	// the cancel_token the execution adapter observes at action boundaries
	// (§4.6, §6.2) — a RUNNING cancel is cooperative, not an immediate
	// status transition.
	IsCancelRequested(ctx context.Context, jobID string) (bool, error)

	PurgeOlderThan(ctx context.Context, cutoff time.Time, statuses []model.Status) (int, error)

	// PreviewPurge reports the records PurgeOlderThan would remove for the
	// same (cutoff, statuses) without deleting anything (§12 "jobs cleanup
	// --dry-run").
	PreviewPurge(ctx context.Context, cutoff time.Time, statuses []model.Status) ([]model.Record, error)

	Close() error
}
