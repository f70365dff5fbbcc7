// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"testing"
	"time"

	"github.com/vpoeng/vpo/internal/job/model"
)

func TestMemoryStoreClaimNextOrdersByPriorityThenAge(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	low := model.NewRecord(model.KindTranscode, "/a.mkv", "p", 5)
	high := model.NewRecord(model.KindTranscode, "/b.mkv", "p", 1)
	if err := s.Enqueue(ctx, low); err != nil {
		t.Fatal(err)
	}
	if err := s.Enqueue(ctx, high); err != nil {
		t.Fatal(err)
	}

	claimed, err := s.ClaimNext(ctx, "worker-1")
	if err != nil {
		t.Fatal(err)
	}
	if claimed == nil || claimed.ID != high.ID {
		t.Fatalf("expected higher-priority job claimed first, got %+v", claimed)
	}
	if claimed.Status != model.StatusRunning {
		t.Fatalf("expected claimed job to be RUNNING, got %s", claimed.Status)
	}
	if claimed.AttemptCount != 1 {
		t.Fatalf("expected attempt_count incremented to 1, got %d", claimed.AttemptCount)
	}
}

func TestMemoryStoreClaimNextEmptyQueueReturnsNil(t *testing.T) {
	s := NewMemoryStore()
	got, err := s.ClaimNext(context.Background(), "worker-1")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Fatalf("expected nil on empty queue, got %+v", got)
	}
}

func TestMemoryStoreFinalizeIsWriteOnce(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	r := model.NewRecord(model.KindMove, "/a.mkv", "p", 0)
	_ = s.Enqueue(ctx, r)
	_, _ = s.ClaimNext(ctx, "w1")

	if err := s.Finalize(ctx, r.ID, model.StatusCompleted, nil); err != nil {
		t.Fatal(err)
	}
	msg := "late failure"
	if err := s.Finalize(ctx, r.ID, model.StatusFailed, &msg); err != nil {
		t.Fatal(err)
	}
	got, _ := s.Get(ctx, r.ID)
	if got.Status != model.StatusCompleted {
		t.Fatalf("expected terminal status to stay COMPLETED, got %s", got.Status)
	}
}

func TestMemoryStoreCancelQueuedIsUnconditional(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	r := model.NewRecord(model.KindMove, "/a.mkv", "p", 0)
	_ = s.Enqueue(ctx, r)

	outcome, err := s.CancelRequest(ctx, r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if outcome != CancelAcknowledged {
		t.Fatalf("expected acknowledged, got %s", outcome)
	}
	got, _ := s.Get(ctx, r.ID)
	if got.Status != model.StatusCancelled {
		t.Fatalf("expected CANCELLED, got %s", got.Status)
	}
}

func TestMemoryStoreCancelRunningIsCooperative(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	r := model.NewRecord(model.KindMove, "/a.mkv", "p", 0)
	_ = s.Enqueue(ctx, r)
	_, _ = s.ClaimNext(ctx, "w1")

	outcome, err := s.CancelRequest(ctx, r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if outcome != CancelAcknowledged {
		t.Fatalf("expected acknowledged, got %s", outcome)
	}
	got, _ := s.Get(ctx, r.ID)
	if got.Status != model.StatusRunning {
		t.Fatalf("expected RUNNING job to stay RUNNING until it checkpoints, got %s", got.Status)
	}
	flagged, err := s.IsCancelRequested(ctx, r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !flagged {
		t.Fatal("expected the cancel flag to be observable by the worker")
	}
}

func TestMemoryStoreCancelAlreadyTerminal(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	r := model.NewRecord(model.KindMove, "/a.mkv", "p", 0)
	_ = s.Enqueue(ctx, r)
	_, _ = s.ClaimNext(ctx, "w1")
	_ = s.Finalize(ctx, r.ID, model.StatusCompleted, nil)

	outcome, err := s.CancelRequest(ctx, r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if outcome != CancelAlreadyTerminal {
		t.Fatalf("expected already_terminal, got %s", outcome)
	}
}

func TestMemoryStoreResetStaleRequeuesUnderMaxAttempts(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	r := model.NewRecord(model.KindTranscode, "/a.mkv", "p", 0)
	_ = s.Enqueue(ctx, r)
	_, _ = s.ClaimNext(ctx, "w1")

	future := time.Now().Add(time.Hour)
	n, err := s.ResetStale(ctx, future, time.Minute, 3)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 stale job reset, got %d", n)
	}
	got, _ := s.Get(ctx, r.ID)
	if got.Status != model.StatusQueued {
		t.Fatalf("expected requeue to QUEUED, got %s", got.Status)
	}
}

func TestMemoryStoreResetStaleExhaustsAtMaxAttempts(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	r := model.NewRecord(model.KindTranscode, "/a.mkv", "p", 0)
	_ = s.Enqueue(ctx, r)
	_, _ = s.ClaimNext(ctx, "w1") // attempt_count -> 1

	future := time.Now().Add(time.Hour)
	n, err := s.ResetStale(ctx, future, time.Minute, 1)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 job exhausted, got %d", n)
	}
	got, _ := s.Get(ctx, r.ID)
	if got.Status != model.StatusFailed {
		t.Fatalf("expected exhausted job to be FAILED, got %s", got.Status)
	}
}

func TestMemoryStorePurgeOlderThanRespectsStatusFilter(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	r := model.NewRecord(model.KindMove, "/a.mkv", "p", 0)
	_ = s.Enqueue(ctx, r)
	_, _ = s.ClaimNext(ctx, "w1")
	_ = s.Finalize(ctx, r.ID, model.StatusCompleted, nil)

	n, err := s.PurgeOlderThan(ctx, time.Now().Add(time.Hour), []model.Status{model.StatusCompleted})
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 purged record, got %d", n)
	}
	got, _ := s.Get(ctx, r.ID)
	if got != nil {
		t.Fatal("expected purged record to be gone")
	}
}

func TestMemoryStorePreviewPurgeReportsWithoutDeleting(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	r := model.NewRecord(model.KindMove, "/a.mkv", "p", 0)
	_ = s.Enqueue(ctx, r)
	_, _ = s.ClaimNext(ctx, "w1")
	_ = s.Finalize(ctx, r.ID, model.StatusCompleted, nil)

	preview, err := s.PreviewPurge(ctx, time.Now().Add(time.Hour), []model.Status{model.StatusCompleted})
	if err != nil {
		t.Fatal(err)
	}
	if len(preview) != 1 || preview[0].ID != r.ID {
		t.Fatalf("expected preview to report the one eligible record, got %+v", preview)
	}

	got, _ := s.Get(ctx, r.ID)
	if got == nil {
		t.Fatal("expected preview not to delete the record")
	}
}

func TestMemoryStoreListFiltersByStatus(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	r1 := model.NewRecord(model.KindMove, "/a.mkv", "p", 0)
	r2 := model.NewRecord(model.KindMove, "/b.mkv", "p", 0)
	_ = s.Enqueue(ctx, r1)
	_ = s.Enqueue(ctx, r2)
	_, _ = s.ClaimNext(ctx, "w1")

	running, err := s.List(ctx, Filter{Statuses: []model.Status{model.StatusRunning}}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(running) != 1 {
		t.Fatalf("expected exactly 1 RUNNING job, got %d", len(running))
	}
}
