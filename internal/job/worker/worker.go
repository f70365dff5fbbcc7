// Copyright (c) 2025 vpo authors
// SPDX-License-Identifier: MIT

// Package worker implements the Job Worker half of the Job Queue & Worker
// component (spec §4.6): a single-threaded claim/execute/finalize loop
// driving internal/job/store.Store through internal/phase and
// internal/execadapter.
package worker

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/vpoeng/vpo/internal/execadapter"
	"github.com/vpoeng/vpo/internal/job/model"
	"github.com/vpoeng/vpo/internal/job/progress"
	"github.com/vpoeng/vpo/internal/job/store"
	"github.com/vpoeng/vpo/internal/log"
	"github.com/vpoeng/vpo/internal/mediaprovider"
	"github.com/vpoeng/vpo/internal/phase"
	"github.com/vpoeng/vpo/internal/planner"
	"github.com/vpoeng/vpo/internal/policy"
)

// StopReason names why Run returned (§4.6's worker-loop exit conditions).
type StopReason string

const (
	StopQueueEmpty     StopReason = "queue_empty"
	StopMaxFiles       StopReason = "max_files"
	StopDurationBudget StopReason = "duration_budget"
	StopEndBy          StopReason = "end_by"
	StopShutdownSignal StopReason = "shutdown_signal"
)

// Config bounds one Run invocation, mirroring the job-CLI surface's
// `jobs start` flags (§6.6).
type Config struct {
	WorkerID string

	// HeartbeatInterval is how often the worker updates worker_heartbeat_at
	// and piggybacks progress while a job is RUNNING. Must be <= 10s (§4.6);
	// defaults to 10s.
	HeartbeatInterval time.Duration

	// StaleAfter is how old a RUNNING job's heartbeat must be before the
	// startup recovery sweep requeues (or exhausts) it. Defaults to 5x
	// HeartbeatInterval, floored at 60s per the teacher's own lease-expiry
	// interval convention.
	StaleAfter time.Duration

	// MaxAttempts is the recovery sweep's exhaustion threshold (§4.6);
	// defaults to 3.
	MaxAttempts int

	// MaxFiles stops Run after this many jobs have been claimed; 0 = no limit.
	MaxFiles int
	// MaxDuration stops Run once this much wall-clock time has elapsed since
	// Run started; 0 = no limit.
	MaxDuration time.Duration
	// EndBy stops Run once time.Now() is at or after this instant; the zero
	// value means no limit.
	EndBy time.Time

	// DrainTimeout bounds how long an in-flight job is given to finish after
	// ctx is cancelled before its execution is force-stopped. Defaults to 30s.
	DrainTimeout time.Duration

	// OutputPathFor derives a job's output path from its Record; required.
	OutputPathFor func(model.Record) string

	// ScratchCleanup, if set, is invoked after a job finalizes (success or
	// not) so the caller can remove any job-id-prefixed scratch files
	// internal/job/scratch created (§4.6 "Cleanup").
	ScratchCleanup func(jobID string)
}

func (c *Config) applyDefaults() {
	if c.WorkerID == "" {
		host, _ := os.Hostname()
		c.WorkerID = fmt.Sprintf("%s-%d-%s", host, os.Getpid(), uuid.New().String())
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = 10 * time.Second
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = 5 * c.HeartbeatInterval
		if c.StaleAfter < 60*time.Second {
			c.StaleAfter = 60 * time.Second
		}
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.DrainTimeout <= 0 {
		c.DrainTimeout = 30 * time.Second
	}
}

// Result summarizes one Run invocation for the job-CLI surface to report.
type Result struct {
	JobsProcessed int
	JobsSucceeded int
	JobsFailed    int
	JobsCancelled int
	StopReason    StopReason
}

// Worker drives Store-backed jobs through Planner/Phase evaluation and
// Executor execution, one job at a time (§5: "a single loop, one in-flight
// job at a time by default").
type Worker struct {
	Store         store.Store
	Executor      execadapter.Executor
	MediaProvider mediaprovider.Provider
	PolicyLoader  func(policyRef string) (*policy.Policy, error)

	// Progress is optional; a nil Broadcaster silently drops every publish
	// (§7: a progress-channel/redis outage must never fail a job).
	Progress *progress.Broadcaster

	Config Config
}

// Run executes the claim/execute/finalize loop until an exit condition
// fires (§4.6). It always performs the one-shot stale-heartbeat recovery
// sweep first.
func (w *Worker) Run(ctx context.Context) (Result, error) {
	w.Config.applyDefaults()

	requeued, err := w.Store.ResetStale(ctx, time.Now(), w.Config.StaleAfter, w.Config.MaxAttempts)
	if err != nil {
		return Result{}, fmt.Errorf("worker: recovery sweep: %w", err)
	}
	if requeued > 0 {
		recoverySweepRequeuedTotal.WithLabelValues().Add(float64(requeued))
	}

	start := time.Now()
	var result Result

	for {
		if reason, stop := w.checkExitConditions(ctx, result, start); stop {
			result.StopReason = reason
			runStopTotal.WithLabelValues(string(reason)).Inc()
			return result, nil
		}

		rec, err := w.Store.ClaimNext(ctx, w.Config.WorkerID)
		if err != nil {
			return result, fmt.Errorf("worker: claim_next: %w", err)
		}
		if rec == nil {
			result.StopReason = StopQueueEmpty
			runStopTotal.WithLabelValues(string(StopQueueEmpty)).Inc()
			return result, nil
		}

		jobStart := time.Now()
		outcome := w.runJobSafely(ctx, *rec)
		jobDuration.WithLabelValues(string(outcome)).Observe(time.Since(jobStart).Seconds())
		jobsTotal.WithLabelValues(string(outcome)).Inc()
		result.JobsProcessed++
		switch outcome {
		case model.StatusCompleted:
			result.JobsSucceeded++
		case model.StatusCancelled:
			result.JobsCancelled++
		default:
			result.JobsFailed++
		}

		if w.Config.ScratchCleanup != nil {
			w.Config.ScratchCleanup(rec.ID)
		}
	}
}

func (w *Worker) checkExitConditions(ctx context.Context, result Result, start time.Time) (StopReason, bool) {
	if w.Config.MaxFiles > 0 && result.JobsProcessed >= w.Config.MaxFiles {
		return StopMaxFiles, true
	}
	if w.Config.MaxDuration > 0 && time.Since(start) >= w.Config.MaxDuration {
		return StopDurationBudget, true
	}
	if !w.Config.EndBy.IsZero() && !time.Now().Before(w.Config.EndBy) {
		return StopEndBy, true
	}
	if ctx.Err() != nil {
		return StopShutdownSignal, true
	}
	return "", false
}

// runJobSafely wraps runJob with the top-of-loop panic recovery §7 requires:
// an unexpected panic must finalize the current job as FAILED with a
// distinct marker and let the loop continue, not crash the worker process.
func (w *Worker) runJobSafely(ctx context.Context, rec model.Record) (outcome model.Status) {
	defer func() {
		if r := recover(); r != nil {
			log.WithComponent("job-worker").Error().
				Str("job_id", rec.ID).
				Interface("panic", r).
				Str("event", "worker.unexpected_panic").
				Msg("recovered from panic in job execution")
			outcome = w.finalize(ctx, rec.ID, model.StatusFailed, fmt.Sprintf("unexpected_error: %v", r))
		}
	}()
	return w.runJob(ctx, rec)
}

// runJob drives one claimed job end to end and returns the terminal status
// it finalized with.
func (w *Worker) runJob(ctx context.Context, rec model.Record) model.Status {
	logger := log.WithComponent("job-worker")
	jobCtx := withDrain(ctx, w.Config.DrainTimeout)

	hb := newHeartbeatLoop(jobCtx, w.Store, w.Progress, rec.ID, w.Config.HeartbeatInterval)
	defer hb.stop()

	insp, err := w.MediaProvider.Inspect(jobCtx, rec.SourcePath)
	if err != nil {
		return w.finalize(ctx, rec.ID, model.StatusFailed, fmt.Sprintf("inspect: %v", err))
	}

	pol, err := w.PolicyLoader(rec.PolicyRef)
	if err != nil {
		return w.finalize(ctx, rec.ID, model.StatusFailed, fmt.Sprintf("load policy: %v", err))
	}

	planCtx := planner.NewContext(pol, baseName(rec.SourcePath), rec.SourcePath)
	plan, _, err := phase.Execute(pol, insp, planCtx)
	if err != nil {
		return w.finalize(ctx, rec.ID, model.StatusFailed, fmt.Sprintf("plan: %v", err))
	}

	outputPath := rec.SourcePath
	if w.Config.OutputPathFor != nil {
		outputPath = w.Config.OutputPathFor(rec)
	}

	outcome, err := w.Executor.Execute(jobCtx, plan, insp, outputPath, hb.onProgress, hb.cancelToken())
	if err != nil {
		return w.finalize(ctx, rec.ID, model.StatusFailed, fmt.Sprintf("execute: %v", err))
	}

	if outcome.Success {
		return w.finalize(ctx, rec.ID, model.StatusCompleted, "")
	}
	if outcome.FailureKind == execadapter.PartialActionFailure && hb.cancelled() {
		return w.finalize(ctx, rec.ID, model.StatusCancelled, "")
	}

	logger.Warn().Str("job_id", rec.ID).Str("failure_kind", string(outcome.FailureKind)).Msg("job execution failed")
	return w.finalize(ctx, rec.ID, model.StatusFailed, fmt.Sprintf("%s: %s", outcome.FailureKind, outcome.Message))
}

func (w *Worker) finalize(ctx context.Context, jobID string, status model.Status, errMessage string) model.Status {
	var msg *string
	if errMessage != "" {
		msg = &errMessage
	}
	if err := w.Store.Finalize(ctx, jobID, status, msg); err != nil {
		log.L().Error().Err(err).Str("job_id", jobID).Msg("finalize failed")
	}
	return status
}

func baseName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' || path[i] == '\\' {
			return path[i+1:]
		}
	}
	return path
}
