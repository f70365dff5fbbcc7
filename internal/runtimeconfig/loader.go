// Copyright (c) 2025 vpo authors
// SPDX-License-Identifier: MIT

package runtimeconfig

import (
	"fmt"
	"os"
)

// Result is the outcome of Load: the resolved Config plus the diagnostics
// an operator would want surfaced (unknown file fields, which env keys
// were consulted) without any of it having failed the load.
type Result struct {
	Config          Config
	FileWarnings    []UnknownFieldWarning
	ConsumedEnvKeys []string
}

// Load resolves a Config following the precedence defaults -> YAML file ->
// environment variables (§10.3), the same discipline the teacher's
// internal/config.Loader uses, except unknown file fields are reported as
// warnings rather than rejected outright — mirroring internal/policy.Load's
// posture so the two loaders read as siblings.
//
// path may be empty, in which case the file layer is skipped entirely and
// only defaults and environment variables apply.
func Load(path string) (Result, error) {
	cfg := defaults()

	var warnings []UnknownFieldWarning
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			if !os.IsNotExist(err) {
				return Result{}, fmt.Errorf("runtimeconfig: stat %s: %w", path, err)
			}
		} else {
			var err error
			cfg, warnings, err = loadFile(path, cfg)
			if err != nil {
				return Result{}, err
			}
		}
	}

	cfg, consumed := applyEnv(cfg)

	if err := validate(cfg); err != nil {
		return Result{}, err
	}

	return Result{Config: cfg, FileWarnings: warnings, ConsumedEnvKeys: consumed}, nil
}

// validate rejects a Config whose values could never have come from a
// well-formed source (zero/negative durations, an unknown store backend) —
// the same "validate after merge, before use" step the teacher's loader
// and internal/policy.Load both run last.
func validate(cfg Config) error {
	if cfg.Worker.HeartbeatInterval <= 0 {
		return fmt.Errorf("runtimeconfig: worker.heartbeat_interval must be positive, got %s", cfg.Worker.HeartbeatInterval)
	}
	if cfg.Worker.StaleMultiplier <= 0 {
		return fmt.Errorf("runtimeconfig: worker.stale_multiplier must be positive, got %d", cfg.Worker.StaleMultiplier)
	}
	if cfg.Worker.MaxAttempts <= 0 {
		return fmt.Errorf("runtimeconfig: worker.max_attempts must be positive, got %d", cfg.Worker.MaxAttempts)
	}
	if cfg.Worker.DrainTimeout < 0 {
		return fmt.Errorf("runtimeconfig: worker.drain_timeout must not be negative, got %s", cfg.Worker.DrainTimeout)
	}
	switch cfg.Store.Backend {
	case StoreMemory, StoreSQLite:
	default:
		return fmt.Errorf("runtimeconfig: store.backend must be one of memory, sqlite, got %q", cfg.Store.Backend)
	}
	if cfg.Store.Backend == StoreSQLite && cfg.Store.DSN == "" {
		return fmt.Errorf("runtimeconfig: store.dsn is required for backend %q", cfg.Store.Backend)
	}
	return nil
}
