// Copyright (c) 2025 vpo authors
// SPDX-License-Identifier: MIT

// Package runtimeconfig holds ambient process configuration (spec
// SPEC_FULL §10.3) — worker tuning, store backend selection, telemetry
// toggles, log level — as distinct from internal/policy, which is the
// versioned policy document evaluated per file.
package runtimeconfig

import "time"

// StoreBackend selects which internal/job/store implementation the job
// worker is wired to. Badger is not a job store backend — it only backs
// internal/pluginmeta's cache (§11), configured independently of this.
type StoreBackend string

const (
	StoreMemory StoreBackend = "memory"
	StoreSQLite StoreBackend = "sqlite"
)

// Worker holds the job worker tuning knobs (mirrors internal/job/worker.Config's
// fields that are appropriate to set from process configuration rather than
// per-Run call options).
type Worker struct {
	HeartbeatInterval  time.Duration
	StaleMultiplier    int // StaleAfter = HeartbeatInterval * StaleMultiplier
	MaxAttempts        int
	DrainTimeout       time.Duration
	CleanupRetention   time.Duration
	CleanupMinScratchAge time.Duration
}

// Store holds persistent-store backend selection and its connection
// target (a file path for sqlite, ignored for memory).
type Store struct {
	Backend StoreBackend
	DSN     string
}

// Telemetry holds observability toggles.
type Telemetry struct {
	MetricsEnabled bool
	TracingEnabled bool
	OTLPEndpoint   string
}

// Config is the complete ambient process configuration.
type Config struct {
	LogLevel  string
	Worker    Worker
	Store     Store
	Telemetry Telemetry
}

// defaults returns the built-in baseline every Load starts from, before a
// config file or environment variables are applied (§10.3 precedence:
// defaults, then file, then environment).
func defaults() Config {
	return Config{
		LogLevel: "info",
		Worker: Worker{
			HeartbeatInterval:    10 * time.Second,
			StaleMultiplier:      5,
			MaxAttempts:          3,
			DrainTimeout:         30 * time.Second,
			CleanupRetention:     7 * 24 * time.Hour,
			CleanupMinScratchAge: 10 * time.Minute,
		},
		Store: Store{
			Backend: StoreMemory,
		},
		Telemetry: Telemetry{
			MetricsEnabled: true,
			TracingEnabled: false,
		},
	}
}

// StaleAfter derives the worker's stale-heartbeat threshold from its two
// configured knobs.
func (w Worker) StaleAfter() time.Duration {
	return w.HeartbeatInterval * time.Duration(w.StaleMultiplier)
}
