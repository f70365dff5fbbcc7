// Copyright (c) 2025 vpo authors
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vpoeng/vpo/internal/job/model"
)

// MemoryStore is an in-memory Store for tests and local iteration; not
// durable.
type MemoryStore struct {
	mu sync.Mutex

	records         map[string]model.Record
	cancelRequested map[string]bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:         make(map[string]model.Record),
		cancelRequested: make(map[string]bool),
	}
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) Enqueue(ctx context.Context, r model.Record) error {
	if err := r.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[r.ID] = r
	return nil
}

// ClaimNext picks the QUEUED record with the lowest Priority, breaking ties
// by earliest CreatedAt (§4.6), and moves it to RUNNING.
func (m *MemoryStore) ClaimNext(ctx context.Context, workerID string) (*model.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var best *model.Record
	for id := range m.records {
		r := m.records[id]
		if r.Status != model.StatusQueued {
			continue
		}
		if best == nil || r.Priority < best.Priority ||
			(r.Priority == best.Priority && r.CreatedAt.Before(best.CreatedAt)) {
			rr := r
			best = &rr
		}
	}
	if best == nil {
		return nil, nil
	}

	now := time.Now().UTC()
	best.Status = model.StatusRunning
	best.ClaimedAt = &now
	best.WorkerHeartbeatAt = &now
	best.AttemptCount++
	m.records[best.ID] = *best

	out := *best
	return &out, nil
}

func (m *MemoryStore) Heartbeat(ctx context.Context, jobID string, progressPercent float64, progressDetail map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.records[jobID]
	if !ok {
		return ErrNotFound
	}
	if r.Status != model.StatusRunning {
		return nil
	}
	now := time.Now().UTC()
	r.ProgressPercent = progressPercent
	r.ProgressDetail = progressDetail
	r.WorkerHeartbeatAt = &now
	m.records[jobID] = r
	return nil
}

func (m *MemoryStore) Finalize(ctx context.Context, jobID string, status model.Status, errMessage *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.records[jobID]
	if !ok {
		return ErrNotFound
	}
	if r.Status.IsTerminal() {
		return nil // write-once (§3.5)
	}
	now := time.Now().UTC()
	r.Status = status
	r.FinishedAt = &now
	r.ErrorMessage = errMessage
	m.records[jobID] = r
	delete(m.cancelRequested, jobID)
	return nil
}

// ResetStale requeues RUNNING jobs whose heartbeat predates now-maxStale,
// exhausting to FAILED once attempt_count has reached maxAttempts (§4.6).
func (m *MemoryStore) ResetStale(ctx context.Context, now time.Time, maxStale time.Duration, maxAttempts int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for id, r := range m.records {
		if r.Status != model.StatusRunning {
			continue
		}
		if r.WorkerHeartbeatAt == nil || now.Sub(*r.WorkerHeartbeatAt) < maxStale {
			continue
		}
		if maxAttempts > 0 && r.AttemptCount >= maxAttempts {
			r.Status = model.StatusFailed
			finished := now
			r.FinishedAt = &finished
			msg := "exhausted retry attempts after stale heartbeat"
			r.ErrorMessage = &msg
		} else {
			r.Status = model.StatusQueued
			r.ClaimedAt = nil
			r.WorkerHeartbeatAt = nil
		}
		m.records[id] = r
		count++
	}
	return count, nil
}

func (m *MemoryStore) List(ctx context.Context, filter Filter, limit int) ([]model.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]model.Record, 0, len(m.records))
	for _, r := range m.records {
		if filter.matches(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) Get(ctx context.Context, jobID string) (*model.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[jobID]
	if !ok {
		return nil, nil
	}
	out := r
	return &out, nil
}

func (m *MemoryStore) CancelRequest(ctx context.Context, jobID string) (CancelOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.records[jobID]
	if !ok {
		return CancelNotFound, nil
	}
	switch r.Status {
	case model.StatusQueued:
		r.Status = model.StatusCancelled
		now := time.Now().UTC()
		r.FinishedAt = &now
		m.records[jobID] = r
		return CancelAcknowledged, nil
	case model.StatusRunning:
		m.cancelRequested[jobID] = true
		return CancelAcknowledged, nil
	default:
		return CancelAlreadyTerminal, nil
	}
}

func (m *MemoryStore) IsCancelRequested(ctx context.Context, jobID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancelRequested[jobID], nil
}

func (m *MemoryStore) PurgeOlderThan(ctx context.Context, cutoff time.Time, statuses []model.Status) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	want := purgeStatusSet(statuses)

	count := 0
	for id, r := range m.records {
		if !purgeCandidate(r, want, cutoff) {
			continue
		}
		delete(m.records, id)
		delete(m.cancelRequested, id)
		count++
	}
	return count, nil
}

// PreviewPurge reports the records PurgeOlderThan would remove for the same
// (cutoff, statuses) without deleting anything (§12 "jobs cleanup --dry-run").
func (m *MemoryStore) PreviewPurge(ctx context.Context, cutoff time.Time, statuses []model.Status) ([]model.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	want := purgeStatusSet(statuses)

	var out []model.Record
	for _, r := range m.records {
		if purgeCandidate(r, want, cutoff) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func purgeStatusSet(statuses []model.Status) map[model.Status]bool {
	want := make(map[model.Status]bool, len(statuses))
	for _, s := range statuses {
		want[s] = true
	}
	return want
}

func purgeCandidate(r model.Record, want map[model.Status]bool, cutoff time.Time) bool {
	if !want[r.Status] {
		return false
	}
	ref := r.CreatedAt
	if r.FinishedAt != nil {
		ref = *r.FinishedAt
	}
	return ref.Before(cutoff)
}
