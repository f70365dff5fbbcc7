// Copyright (c) 2025 vpo authors
// SPDX-License-Identifier: MIT

// Package model defines the Job Record (spec §3.5): the persisted unit of
// work the Job Worker claims, executes, and finalizes.
package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vpoeng/vpo/internal/pipeline/fsm"
)

// Kind names the kind of work a job performs.
type Kind string

const (
	KindTranscode   Kind = "transcode"
	KindMove        Kind = "move"
	KindPlanExecute Kind = "plan_execute"
)

// Status is the job lifecycle state (§3.5).
type Status string

const (
	StatusQueued    Status = "QUEUED"
	StatusRunning   Status = "RUNNING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
)

// IsTerminal reports whether s is a final status no further transition can
// leave (§3.5, §6.1 cancel_request's "already_terminal" outcome).
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Event names an FSM transition trigger for a job's Status.
type Event string

const (
	EventClaim    Event = "claim"
	EventComplete Event = "complete"
	EventFail     Event = "fail"
	EventCancel   Event = "cancel"
	EventRequeue  Event = "requeue" // stale-heartbeat recovery: RUNNING -> QUEUED
	EventExhaust  Event = "exhaust" // stale-heartbeat recovery past max attempts: RUNNING -> FAILED
)

// NewMachine builds the Status FSM describing the legal JobRecord
// transitions. Both the claim protocol (§4.6) and the recovery sweep
// (§3.5, §4.6) are expressed as transitions here. MemoryStore and
// SQLiteStore set Status directly and do not drive a Machine.
func NewMachine(initial Status) (*fsm.Machine[Status, Event], error) {
	return fsm.New(initial, []fsm.Transition[Status, Event]{
		{From: StatusQueued, Event: EventClaim, To: StatusRunning},
		{From: StatusQueued, Event: EventCancel, To: StatusCancelled},
		{From: StatusRunning, Event: EventComplete, To: StatusCompleted},
		{From: StatusRunning, Event: EventFail, To: StatusFailed},
		{From: StatusRunning, Event: EventCancel, To: StatusCancelled},
		{From: StatusRunning, Event: EventRequeue, To: StatusQueued},
		{From: StatusRunning, Event: EventExhaust, To: StatusFailed},
	})
}

// Record is the persisted state of one unit of work (§3.5).
type Record struct {
	ID                string
	Kind              Kind
	SourcePath        string
	TargetPath        *string
	PolicyRef         string
	Priority          int // lower = earlier
	Status            Status
	ProgressPercent   float64 // [0,100], monotonically non-decreasing within a run
	ProgressDetail    map[string]any
	CreatedAt         time.Time
	ClaimedAt         *time.Time
	FinishedAt        *time.Time
	WorkerHeartbeatAt *time.Time
	ErrorMessage      *string
	AttemptCount      int
}

// NewRecord constructs a QUEUED job with a fresh UUIDv4 id.
func NewRecord(kind Kind, sourcePath, policyRef string, priority int) Record {
	return Record{
		ID:         uuid.New().String(),
		Kind:       kind,
		SourcePath: sourcePath,
		PolicyRef:  policyRef,
		Priority:   priority,
		Status:     StatusQueued,
		CreatedAt:  nowFunc(),
	}
}

// nowFunc is indirected so stale-heartbeat/recovery tests can control time
// without relying on wall-clock sleeps.
var nowFunc = time.Now

// Validate enforces the invariants §3.5 and §8 #9 place on a record outside
// of what its Status type already guarantees.
func (r Record) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("model: job id required")
	}
	if r.SourcePath == "" {
		return fmt.Errorf("model: source_path required")
	}
	if r.ProgressPercent < 0 || r.ProgressPercent > 100 {
		return fmt.Errorf("model: progress_percent %v out of [0,100]", r.ProgressPercent)
	}
	if r.AttemptCount < 0 {
		return fmt.Errorf("model: attempt_count must be >= 0")
	}
	switch r.Kind {
	case KindTranscode, KindMove, KindPlanExecute:
	default:
		return fmt.Errorf("model: unknown job kind %q", r.Kind)
	}
	return nil
}
