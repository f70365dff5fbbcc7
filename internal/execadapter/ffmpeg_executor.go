// Copyright (c) 2025 vpo authors
// SPDX-License-Identifier: MIT

package execadapter

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/vpoeng/vpo/internal/action"
	"github.com/vpoeng/vpo/internal/infra/ffmpeg"
	"github.com/vpoeng/vpo/internal/inspect"
)

// FFmpegExecutor is the production Executor: it translates a Plan into a
// single ffmpeg.Spec/invocation and drives it to completion.
type FFmpegExecutor struct {
	Runner *ffmpeg.Runner

	// GracefulStop bounds how long Stop waits between SIGTERM and SIGKILL
	// when cancellation fires mid-run.
	GracefulStop time.Duration

	// DurationSeconds is the source's known total duration, used to turn
	// ffmpeg's out_time progress into a percent-complete checkpoint. Zero
	// means percent is left at 0 and only Detail is reported.
	DurationSeconds float64
}

// NewFFmpegExecutor builds an Executor backed by binaryPath (or "ffmpeg" on
// PATH if empty).
func NewFFmpegExecutor(binaryPath string) *FFmpegExecutor {
	return &FFmpegExecutor{Runner: ffmpeg.NewRunner(binaryPath), GracefulStop: 5 * time.Second}
}

func (e *FFmpegExecutor) Execute(ctx context.Context, plan action.Plan, insp inspect.Inspection, outputPath string, progress ProgressFunc, cancel CancelToken) (ExecutionOutcome, error) {
	if cancel != nil && cancel.IsCancelled() {
		return ExecutionOutcome{FailureKind: PartialActionFailure, Message: "cancelled before execution started"}, nil
	}

	spec, err := buildSpec(plan, insp, outputPath)
	if err != nil {
		return ExecutionOutcome{FailureKind: IOError, Message: err.Error()}, nil
	}

	args, err := ffmpeg.BuildArgs(spec)
	if err != nil {
		return ExecutionOutcome{FailureKind: IOError, Message: err.Error()}, nil
	}

	handle, err := e.Runner.Start(ctx, args)
	if err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) && errors.Is(execErr.Err, exec.ErrNotFound) {
			return ExecutionOutcome{FailureKind: ToolMissing, Message: err.Error()}, nil
		}
		return ExecutionOutcome{FailureKind: ToolFailed, Message: err.Error()}, nil
	}

	cancelled := e.watch(handle, progress, cancel)

	waitErr := handle.Wait()

	if cancelled {
		return ExecutionOutcome{FailureKind: PartialActionFailure, Message: "execution cancelled"}, nil
	}

	if waitErr != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return ExecutionOutcome{FailureKind: ToolTimeout, Message: waitErr.Error()}, nil
		}
		diag := strings.Join(handle.Diagnostics(), "\n")
		return ExecutionOutcome{FailureKind: ToolFailed, Message: fmt.Sprintf("%v: %s", waitErr, diag)}, nil
	}

	return ExecutionOutcome{Success: true, OutputPaths: []string{outputPath}}, nil
}

// watch drains handle's progress channel, forwarding checkpoints and
// stopping the process the moment cancel reports true. It returns whether
// cancellation fired.
func (e *FFmpegExecutor) watch(handle *ffmpeg.Handle, progress ProgressFunc, cancel CancelToken) bool {
	cancelled := false
	for ev := range handle.Progress() {
		if progress != nil {
			progress(Progress{PercentComplete: percentOf(ev.OutTimeSeconds, e.DurationSeconds), Detail: detailOf(ev)})
		}
		if cancel != nil && cancel.IsCancelled() {
			cancelled = true
			handle.Stop(e.GracefulStop)
			break
		}
	}
	return cancelled
}

func percentOf(outTime, total float64) float64 {
	if total <= 0 {
		return 0
	}
	pct := outTime / total * 100
	if pct > 100 {
		return 100
	}
	return pct
}

func detailOf(ev ffmpeg.ProgressEvent) string {
	return fmt.Sprintf("frame=%d speed=%.2fx out_time=%.1fs", ev.Frame, ev.Speed, ev.OutTimeSeconds)
}
