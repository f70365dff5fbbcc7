// Copyright (c) 2025 vpo authors
// SPDX-License-Identifier: MIT

package runtimeconfig

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	vpolog "github.com/vpoeng/vpo/internal/log"
)

// envPrefix namespaces every environment variable this package reads, so a
// VPO worker process never collides with an unrelated VPO_* variable set by
// something else on the host.
const envPrefix = "VPO_"

// envReader applies environment-variable overrides on top of a Config
// already populated by defaults and an optional file (§10.3 precedence:
// defaults, then file, then environment). It tracks which keys it looked up
// so an operator can see exactly what the process consumed from its
// environment — mirrors the teacher's ConsumedEnvKeys bookkeeping in
// internal/config/loader.go, but an unset or malformed env var is always
// ignored here rather than treated as an error (the "unknown-env-key-is-
// ignored" posture SPEC_FULL §10.3 asks for).
type envReader struct {
	logger  zerolog.Logger
	lookups []string
}

func newEnvReader() *envReader {
	return &envReader{logger: vpolog.WithComponent("runtimeconfig")}
}

func (e *envReader) string(key string, cur string) string {
	full := envPrefix + key
	e.lookups = append(e.lookups, full)
	v, ok := os.LookupEnv(full)
	if !ok || v == "" {
		return cur
	}
	e.logger.Debug().Str("key", full).Str("source", "environment").Msg("using environment variable")
	return v
}

func (e *envReader) boolean(key string, cur bool) bool {
	full := envPrefix + key
	e.lookups = append(e.lookups, full)
	v, ok := os.LookupEnv(full)
	if !ok || v == "" {
		return cur
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.logger.Warn().Str("key", full).Str("value", v).Msg("invalid boolean in environment variable, keeping prior value")
		return cur
	}
	e.logger.Debug().Str("key", full).Bool("value", b).Str("source", "environment").Msg("using environment variable")
	return b
}

func (e *envReader) integer(key string, cur int) int {
	full := envPrefix + key
	e.lookups = append(e.lookups, full)
	v, ok := os.LookupEnv(full)
	if !ok || v == "" {
		return cur
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.logger.Warn().Str("key", full).Str("value", v).Msg("invalid integer in environment variable, keeping prior value")
		return cur
	}
	e.logger.Debug().Str("key", full).Int("value", n).Str("source", "environment").Msg("using environment variable")
	return n
}

func (e *envReader) duration(key string, cur time.Duration) time.Duration {
	full := envPrefix + key
	e.lookups = append(e.lookups, full)
	v, ok := os.LookupEnv(full)
	if !ok || v == "" {
		return cur
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.logger.Warn().Str("key", full).Str("value", v).Msg("invalid duration in environment variable, keeping prior value")
		return cur
	}
	e.logger.Debug().Str("key", full).Dur("value", d).Str("source", "environment").Msg("using environment variable")
	return d
}

// applyEnv returns cfg with every recognized VPO_* variable applied, plus
// the full list of env keys it looked up (for diagnostics/--print-config
// front ends).
func applyEnv(cfg Config) (Config, []string) {
	e := newEnvReader()

	cfg.LogLevel = e.string("LOG_LEVEL", cfg.LogLevel)

	cfg.Worker.HeartbeatInterval = e.duration("WORKER_HEARTBEAT_INTERVAL", cfg.Worker.HeartbeatInterval)
	cfg.Worker.StaleMultiplier = e.integer("WORKER_STALE_MULTIPLIER", cfg.Worker.StaleMultiplier)
	cfg.Worker.MaxAttempts = e.integer("WORKER_MAX_ATTEMPTS", cfg.Worker.MaxAttempts)
	cfg.Worker.DrainTimeout = e.duration("WORKER_DRAIN_TIMEOUT", cfg.Worker.DrainTimeout)
	cfg.Worker.CleanupRetention = e.duration("WORKER_CLEANUP_RETENTION", cfg.Worker.CleanupRetention)
	cfg.Worker.CleanupMinScratchAge = e.duration("WORKER_CLEANUP_MIN_SCRATCH_AGE", cfg.Worker.CleanupMinScratchAge)

	cfg.Store.Backend = StoreBackend(e.string("STORE_BACKEND", string(cfg.Store.Backend)))
	cfg.Store.DSN = e.string("STORE_DSN", cfg.Store.DSN)

	cfg.Telemetry.MetricsEnabled = e.boolean("TELEMETRY_METRICS_ENABLED", cfg.Telemetry.MetricsEnabled)
	cfg.Telemetry.TracingEnabled = e.boolean("TELEMETRY_TRACING_ENABLED", cfg.Telemetry.TracingEnabled)
	cfg.Telemetry.OTLPEndpoint = e.string("TELEMETRY_OTLP_ENDPOINT", cfg.Telemetry.OTLPEndpoint)

	return cfg, e.lookups
}
