// Copyright (c) 2025 vpo authors
// SPDX-License-Identifier: MIT

package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vpoeng/vpo/internal/action"
	"github.com/vpoeng/vpo/internal/execadapter"
	"github.com/vpoeng/vpo/internal/inspect"
	"github.com/vpoeng/vpo/internal/job/model"
	"github.com/vpoeng/vpo/internal/job/store"
	"github.com/vpoeng/vpo/internal/mediaprovider"
	"github.com/vpoeng/vpo/internal/policy"
)

type fakeExecutor struct {
	outcome execadapter.ExecutionOutcome
	err     error
	calls   int
}

func (f *fakeExecutor) Execute(ctx context.Context, plan action.Plan, insp inspect.Inspection, outputPath string, progress execadapter.ProgressFunc, cancel execadapter.CancelToken) (execadapter.ExecutionOutcome, error) {
	f.calls++
	if progress != nil {
		progress(execadapter.Progress{PercentComplete: 100, Detail: "done"})
	}
	return f.outcome, f.err
}

func newTestWorker(t *testing.T, exec execadapter.Executor) (*Worker, *store.MemoryStore) {
	t.Helper()
	s := store.NewMemoryStore()
	mp := mediaprovider.NewFakeProvider()
	mp.ByPath["/in.mkv"] = inspect.Inspection{
		File:   inspect.File{Path: "/in.mkv"},
		Tracks: []inspect.Track{{Index: 0, Kind: inspect.Video, Codec: "h264"}},
	}

	w := &Worker{
		Store:         s,
		Executor:      exec,
		MediaProvider: mp,
		PolicyLoader: func(ref string) (*policy.Policy, error) {
			return &policy.Policy{Phases: []policy.Phase{{Name: "main"}}}, nil
		},
		Config: Config{
			HeartbeatInterval: 5 * time.Millisecond,
			OutputPathFor:     func(r model.Record) string { return "/out.mkv" },
		},
	}
	return w, s
}

func TestRunCompletesAQueuedJob(t *testing.T) {
	w, s := newTestWorker(t, &fakeExecutor{outcome: execadapter.ExecutionOutcome{Success: true, OutputPaths: []string{"/out.mkv"}}})

	rec := model.NewRecord(model.KindPlanExecute, "/in.mkv", "policy-ref", 0)
	if err := s.Enqueue(context.Background(), rec); err != nil {
		t.Fatal(err)
	}

	result, err := w.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.JobsSucceeded != 1 || result.StopReason != StopQueueEmpty {
		t.Fatalf("expected one success then queue_empty, got %+v", result)
	}

	got, err := s.Get(context.Background(), rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != model.StatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", got.Status)
	}
}

func TestRunFinalizesFailedExecutionAsFailed(t *testing.T) {
	w, s := newTestWorker(t, &fakeExecutor{
		outcome: execadapter.ExecutionOutcome{FailureKind: execadapter.ToolFailed, Message: "boom"},
	})

	rec := model.NewRecord(model.KindPlanExecute, "/in.mkv", "policy-ref", 0)
	if err := s.Enqueue(context.Background(), rec); err != nil {
		t.Fatal(err)
	}

	result, err := w.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.JobsFailed != 1 {
		t.Fatalf("expected one failure, got %+v", result)
	}

	got, err := s.Get(context.Background(), rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != model.StatusFailed || got.ErrorMessage == nil {
		t.Fatalf("expected FAILED with a message, got %+v", got)
	}
}

func TestRunFinalizesInspectionErrorAsFailed(t *testing.T) {
	w, s := newTestWorker(t, &fakeExecutor{})

	rec := model.NewRecord(model.KindPlanExecute, "/missing.mkv", "policy-ref", 0)
	if err := s.Enqueue(context.Background(), rec); err != nil {
		t.Fatal(err)
	}

	result, err := w.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.JobsFailed != 1 {
		t.Fatalf("expected one failure, got %+v", result)
	}
}

func TestRunRespectsMaxFiles(t *testing.T) {
	w, s := newTestWorker(t, &fakeExecutor{outcome: execadapter.ExecutionOutcome{Success: true}})
	w.Config.MaxFiles = 1

	for i := 0; i < 2; i++ {
		rec := model.NewRecord(model.KindPlanExecute, "/in.mkv", "policy-ref", i)
		if err := s.Enqueue(context.Background(), rec); err != nil {
			t.Fatal(err)
		}
	}

	result, err := w.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.JobsProcessed != 1 || result.StopReason != StopMaxFiles {
		t.Fatalf("expected to stop at max_files after one job, got %+v", result)
	}
}

func TestRunRecoversStaleRunningJobsBeforeClaiming(t *testing.T) {
	w, s := newTestWorker(t, &fakeExecutor{outcome: execadapter.ExecutionOutcome{Success: true}})
	w.Config.StaleAfter = time.Millisecond
	w.Config.MaxAttempts = 3

	rec := model.NewRecord(model.KindPlanExecute, "/in.mkv", "policy-ref", 0)
	if err := s.Enqueue(context.Background(), rec); err != nil {
		t.Fatal(err)
	}
	claimed, err := s.ClaimNext(context.Background(), "stale-worker")
	if err != nil || claimed == nil {
		t.Fatalf("setup: claim failed: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	result, err := w.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.JobsSucceeded != 1 {
		t.Fatalf("expected the recovered job to be reclaimed and succeed, got %+v", result)
	}
}

func TestRunPropagatesLoadPolicyError(t *testing.T) {
	s := store.NewMemoryStore()
	mp := mediaprovider.NewFakeProvider()
	mp.ByPath["/in.mkv"] = inspect.Inspection{File: inspect.File{Path: "/in.mkv"}}

	w := &Worker{
		Store:         s,
		Executor:      &fakeExecutor{},
		MediaProvider: mp,
		PolicyLoader: func(ref string) (*policy.Policy, error) {
			return nil, errors.New("no such policy")
		},
		Config: Config{OutputPathFor: func(r model.Record) string { return "/out.mkv" }},
	}

	rec := model.NewRecord(model.KindPlanExecute, "/in.mkv", "missing-ref", 0)
	if err := s.Enqueue(context.Background(), rec); err != nil {
		t.Fatal(err)
	}

	result, err := w.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.JobsFailed != 1 {
		t.Fatalf("expected a failure from the policy loader error, got %+v", result)
	}
}
