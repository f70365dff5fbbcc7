// Copyright (c) 2025 vpo authors
// SPDX-License-Identifier: MIT

package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vpoeng/vpo/internal/execadapter"
	"github.com/vpoeng/vpo/internal/job/progress"
	"github.com/vpoeng/vpo/internal/job/store"
	"github.com/vpoeng/vpo/internal/log"
)

// heartbeatLoop ticks Store.Heartbeat every interval while a job is RUNNING,
// piggybacking the latest progress checkpoint the Executor reported (§4.6:
// "progress updates piggyback on the heartbeat"), and polls
// IsCancelRequested on the same cadence to build the cancel_token the
// Executor observes (§4.6, §6.2).
type heartbeatLoop struct {
	store       store.Store
	broadcaster *progress.Broadcaster
	jobID       string
	interval    time.Duration

	stopCh chan struct{}
	done   chan struct{}

	mu      sync.Mutex
	percent float64
	detail  map[string]any

	cancelRequested atomic.Bool
}

func newHeartbeatLoop(ctx context.Context, s store.Store, b *progress.Broadcaster, jobID string, interval time.Duration) *heartbeatLoop {
	h := &heartbeatLoop{
		store:       s,
		broadcaster: b,
		jobID:       jobID,
		interval:    interval,
		stopCh:      make(chan struct{}),
		done:        make(chan struct{}),
	}
	go h.run(ctx)
	return h
}

func (h *heartbeatLoop) run(ctx context.Context) {
	defer close(h.done)
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.tick(ctx)
		case <-h.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (h *heartbeatLoop) tick(ctx context.Context) {
	h.mu.Lock()
	percent, detail := h.percent, h.detail
	h.mu.Unlock()

	if err := h.store.Heartbeat(ctx, h.jobID, percent, detail); err != nil {
		heartbeatFailuresTotal.WithLabelValues().Inc()
		log.L().Warn().Err(err).Str("job_id", h.jobID).Msg("heartbeat failed")
	}

	// Best-effort: a redis outage must never fail the job (§7).
	if err := h.broadcaster.Publish(ctx, h.jobID, percent, detail); err != nil {
		log.L().Debug().Err(err).Str("job_id", h.jobID).Msg("progress publish failed")
	}

	requested, err := h.store.IsCancelRequested(ctx, h.jobID)
	if err != nil {
		log.L().Warn().Err(err).Str("job_id", h.jobID).Msg("cancel-request poll failed")
		return
	}
	if requested {
		h.cancelRequested.Store(true)
	}
}

// onProgress is the execadapter.ProgressFunc this loop's heartbeat ticks
// report; it only updates the in-memory snapshot, it never calls the store
// directly, keeping Store I/O on the heartbeat's own cadence.
func (h *heartbeatLoop) onProgress(p execadapter.Progress) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.percent = p.PercentComplete
	h.detail = map[string]any{"text": p.Detail}
}

func (h *heartbeatLoop) cancelToken() execadapter.CancelToken { return cancelTokenFunc(h.cancelRequested.Load) }

func (h *heartbeatLoop) cancelled() bool { return h.cancelRequested.Load() }

func (h *heartbeatLoop) stop() {
	close(h.stopCh)
	<-h.done
}

type cancelTokenFunc func() bool

func (f cancelTokenFunc) IsCancelled() bool { return f() }

// withDrain returns a context that, unlike context.WithCancel's immediate
// propagation, only cancels `drain` after parent is done — giving an
// in-flight job a grace window to finish or reach a cancellation checkpoint
// before its execution is force-stopped (§4.6: "graceful... drain timeout,
// default 30 s").
func withDrain(parent context.Context, drain time.Duration) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-parent.Done()
		timer := time.NewTimer(drain)
		defer timer.Stop()
		<-timer.C
		cancel()
	}()
	return ctx
}
