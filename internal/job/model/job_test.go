// SPDX-License-Identifier: MIT

package model

import (
	"context"
	"testing"
)

func TestNewRecordIsQueuedWithUUID(t *testing.T) {
	r := NewRecord(KindTranscode, "/data/in.mkv", "policies/default.yaml", 5)
	if r.ID == "" {
		t.Fatal("expected a non-empty id")
	}
	if r.Status != StatusQueued {
		t.Fatalf("expected QUEUED, got %s", r.Status)
	}
	if err := r.Validate(); err != nil {
		t.Fatalf("expected a fresh record to validate, got %v", err)
	}
}

func TestValidateRejectsProgressOutOfBounds(t *testing.T) {
	r := NewRecord(KindMove, "/data/in.mkv", "p", 0)
	r.ProgressPercent = 101
	if err := r.Validate(); err == nil {
		t.Fatal("expected progress_percent > 100 to be rejected")
	}
}

func TestMachineClaimCompleteTransitions(t *testing.T) {
	m, err := NewMachine(StatusQueued)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if s, err := m.Fire(ctx, EventClaim); err != nil || s != StatusRunning {
		t.Fatalf("expected RUNNING after claim, got %s, err=%v", s, err)
	}
	if s, err := m.Fire(ctx, EventComplete); err != nil || s != StatusCompleted {
		t.Fatalf("expected COMPLETED after complete, got %s, err=%v", s, err)
	}
}

func TestMachineRejectsInvalidTransition(t *testing.T) {
	m, err := NewMachine(StatusCompleted)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Fire(context.Background(), EventClaim); err == nil {
		t.Fatal("expected claiming an already-completed job to be rejected")
	}
}

func TestMachineRequeueAfterStaleHeartbeat(t *testing.T) {
	m, err := NewMachine(StatusRunning)
	if err != nil {
		t.Fatal(err)
	}
	if s, err := m.Fire(context.Background(), EventRequeue); err != nil || s != StatusQueued {
		t.Fatalf("expected QUEUED after requeue, got %s, err=%v", s, err)
	}
}
