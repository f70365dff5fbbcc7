// Copyright (c) 2025 vpo authors
// SPDX-License-Identifier: MIT

package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vpo_job_worker_jobs_total",
			Help: "Total jobs finalized by the job worker, by terminal status.",
		},
		[]string{"status"},
	)

	jobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vpo_job_worker_job_duration_seconds",
			Help:    "Wall-clock time from claim to finalize for one job.",
			Buckets: []float64{1, 5, 15, 30, 60, 180, 600, 1800, 3600},
		},
		[]string{"status"},
	)

	heartbeatFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vpo_job_worker_heartbeat_failures_total",
			Help: "Total Store.Heartbeat calls that returned an error.",
		},
		[]string{},
	)

	recoverySweepRequeuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vpo_job_worker_recovery_sweep_requeued_total",
			Help: "Total stale RUNNING jobs requeued or exhausted by the startup recovery sweep.",
		},
		[]string{},
	)

	runStopTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vpo_job_worker_run_stop_total",
			Help: "Total Run invocations ending, by StopReason.",
		},
		[]string{"reason"},
	)
)
