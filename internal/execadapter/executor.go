// Copyright (c) 2025 vpo authors
// SPDX-License-Identifier: MIT

// Package execadapter implements the Execution Adapter interface (spec
// §6.2): turning a finished action.Plan into an actual media-processing
// invocation. Planning and condition evaluation are pure; this package is
// where the Plan finally touches the outside world.
package execadapter

import (
	"context"

	"github.com/vpoeng/vpo/internal/action"
	"github.com/vpoeng/vpo/internal/inspect"
)

// FailureKind is the closed taxonomy §6.2 names for a non-success
// ExecutionOutcome.
type FailureKind string

const (
	ToolMissing          FailureKind = "tool_missing"
	ToolFailed           FailureKind = "tool_failed"
	ToolTimeout          FailureKind = "tool_timeout"
	IOError              FailureKind = "io_error"
	PartialActionFailure FailureKind = "partial_action_failure"
)

// ExecutionOutcome is the sum type §6.2 describes as
// `{success, output_paths} | {failure, kind, message}`.
type ExecutionOutcome struct {
	Success     bool
	OutputPaths []string

	FailureKind FailureKind
	Message     string
}

// Progress is what an Executor reports at its own implementation-defined
// checkpoints (§6.2: "progress_cb(percent, detail)").
type Progress struct {
	PercentComplete float64
	Detail          string
}

// ProgressFunc receives Progress checkpoints during Execute.
type ProgressFunc func(Progress)

// CancelToken is observed by Execute at action boundaries and, for a
// long-running single invocation, at its own progress checkpoints.
type CancelToken interface {
	IsCancelled() bool
}

// Executor is the Execution Adapter interface consumed by the job worker
// (§6.2). outputPath is not named in the spec's literal signature but is
// required to know where to write the result; it is a minimal addition in
// the same spirit as internal/job/store's IsCancelRequested (documented in
// DESIGN.md), since ExecutionOutcome.OutputPaths has nowhere else to come
// from.
type Executor interface {
	Execute(ctx context.Context, plan action.Plan, insp inspect.Inspection, outputPath string, progress ProgressFunc, cancel CancelToken) (ExecutionOutcome, error)
}

// NoopCancelToken never reports cancellation; useful for callers that don't
// support mid-run cancellation (tests, one-shot CLI invocations).
type NoopCancelToken struct{}

func (NoopCancelToken) IsCancelled() bool { return false }
