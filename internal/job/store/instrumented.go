// Copyright (c) 2025 vpo authors
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vpoeng/vpo/internal/job/model"
)

var (
	jobStoreOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vpo_job_store_ops_total",
			Help: "Total job store operations.",
		},
		[]string{"backend", "op", "result"},
	)
	jobStoreLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vpo_job_store_op_seconds",
			Help:    "Job store operation latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "op"},
	)
)

// instrumentedStore wraps a Store, recording a counter and latency histogram
// per operation, labeled by backend name and success/error.
type instrumentedStore struct {
	inner   Store
	backend string
}

// NewInstrumentedStore wraps inner so every call is observed under prometheus
// metrics labeled with backend (e.g. "sqlite", "memory").
func NewInstrumentedStore(inner Store, backend string) Store {
	return &instrumentedStore{inner: inner, backend: backend}
}

func (i *instrumentedStore) observe(op string, start time.Time, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	jobStoreOps.WithLabelValues(i.backend, op, result).Inc()
	jobStoreLatency.WithLabelValues(i.backend, op).Observe(time.Since(start).Seconds())
}

func (i *instrumentedStore) Close() error { return i.inner.Close() }

func (i *instrumentedStore) Enqueue(ctx context.Context, r model.Record) (err error) {
	start := time.Now()
	defer func() { i.observe("enqueue", start, err) }()
	return i.inner.Enqueue(ctx, r)
}

func (i *instrumentedStore) ClaimNext(ctx context.Context, workerID string) (rec *model.Record, err error) {
	start := time.Now()
	defer func() { i.observe("claim_next", start, err) }()
	return i.inner.ClaimNext(ctx, workerID)
}

func (i *instrumentedStore) Heartbeat(ctx context.Context, jobID string, progressPercent float64, progressDetail map[string]any) (err error) {
	start := time.Now()
	defer func() { i.observe("heartbeat", start, err) }()
	return i.inner.Heartbeat(ctx, jobID, progressPercent, progressDetail)
}

func (i *instrumentedStore) Finalize(ctx context.Context, jobID string, status model.Status, errMessage *string) (err error) {
	start := time.Now()
	defer func() { i.observe("finalize", start, err) }()
	return i.inner.Finalize(ctx, jobID, status, errMessage)
}

func (i *instrumentedStore) ResetStale(ctx context.Context, now time.Time, maxStale time.Duration, maxAttempts int) (count int, err error) {
	start := time.Now()
	defer func() { i.observe("reset_stale", start, err) }()
	return i.inner.ResetStale(ctx, now, maxStale, maxAttempts)
}

func (i *instrumentedStore) List(ctx context.Context, filter Filter, limit int) (recs []model.Record, err error) {
	start := time.Now()
	defer func() { i.observe("list", start, err) }()
	return i.inner.List(ctx, filter, limit)
}

func (i *instrumentedStore) Get(ctx context.Context, jobID string) (rec *model.Record, err error) {
	start := time.Now()
	defer func() { i.observe("get", start, err) }()
	return i.inner.Get(ctx, jobID)
}

func (i *instrumentedStore) CancelRequest(ctx context.Context, jobID string) (outcome CancelOutcome, err error) {
	start := time.Now()
	defer func() { i.observe("cancel_request", start, err) }()
	return i.inner.CancelRequest(ctx, jobID)
}

func (i *instrumentedStore) IsCancelRequested(ctx context.Context, jobID string) (flag bool, err error) {
	start := time.Now()
	defer func() { i.observe("is_cancel_requested", start, err) }()
	return i.inner.IsCancelRequested(ctx, jobID)
}

func (i *instrumentedStore) PurgeOlderThan(ctx context.Context, cutoff time.Time, statuses []model.Status) (count int, err error) {
	start := time.Now()
	defer func() { i.observe("purge_older_than", start, err) }()
	return i.inner.PurgeOlderThan(ctx, cutoff, statuses)
}

func (i *instrumentedStore) PreviewPurge(ctx context.Context, cutoff time.Time, statuses []model.Status) (recs []model.Record, err error) {
	start := time.Now()
	defer func() { i.observe("preview_purge", start, err) }()
	return i.inner.PreviewPurge(ctx, cutoff, statuses)
}
