// Copyright (c) 2025 vpo authors
// SPDX-License-Identifier: MIT

package runtimeconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithNoFileReturnsDefaults(t *testing.T) {
	res, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.Worker.HeartbeatInterval != 10*time.Second {
		t.Fatalf("expected default heartbeat interval, got %s", res.Config.Worker.HeartbeatInterval)
	}
	if res.Config.Store.Backend != StoreMemory {
		t.Fatalf("expected default store backend memory, got %s", res.Config.Store.Backend)
	}
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	res, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.LogLevel != "info" {
		t.Fatalf("expected default log level, got %q", res.Config.LogLevel)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vpo.yaml")
	contents := `
log_level: debug
worker:
  heartbeat_interval_seconds: 30
  max_attempts: 7
store:
  backend: sqlite
  dsn: /var/lib/vpo/jobs.db
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.LogLevel != "debug" {
		t.Fatalf("expected log level debug, got %q", res.Config.LogLevel)
	}
	if res.Config.Worker.HeartbeatInterval != 30*time.Second {
		t.Fatalf("expected heartbeat interval 30s, got %s", res.Config.Worker.HeartbeatInterval)
	}
	if res.Config.Worker.MaxAttempts != 7 {
		t.Fatalf("expected max attempts 7, got %d", res.Config.Worker.MaxAttempts)
	}
	if res.Config.Store.Backend != StoreSQLite {
		t.Fatalf("expected store backend sqlite, got %s", res.Config.Store.Backend)
	}
}

func TestLoadFileReportsUnknownFieldAsWarningNotError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vpo.yaml")
	contents := `
log_level: warn
totally_unknown_top_level_field: 42
worker:
  heartbeat_interval_seconds: 5
  made_up_worker_field: true
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := Load(path)
	if err != nil {
		t.Fatalf("expected unknown fields to produce warnings, not a load error: %v", err)
	}
	if res.Config.LogLevel != "warn" {
		t.Fatalf("expected recognized fields to still apply, got log level %q", res.Config.LogLevel)
	}

	var sawTopLevel, sawNested bool
	for _, w := range res.FileWarnings {
		if w.Path == "$.totally_unknown_top_level_field" {
			sawTopLevel = true
		}
		if w.Path == "$.worker.made_up_worker_field" {
			sawNested = true
		}
	}
	if !sawTopLevel {
		t.Fatalf("expected a warning for the unknown top-level field, got %+v", res.FileWarnings)
	}
	if !sawNested {
		t.Fatalf("expected a warning for the unknown nested field, got %+v", res.FileWarnings)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vpo.yaml")
	contents := `
worker:
  heartbeat_interval_seconds: 30
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("VPO_WORKER_HEARTBEAT_INTERVAL", "45s")

	res, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.Worker.HeartbeatInterval != 45*time.Second {
		t.Fatalf("expected env to override file, got %s", res.Config.Worker.HeartbeatInterval)
	}
}

func TestLoadIgnoresMalformedEnvValue(t *testing.T) {
	t.Setenv("VPO_WORKER_MAX_ATTEMPTS", "not-a-number")

	res, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.Worker.MaxAttempts != defaults().Worker.MaxAttempts {
		t.Fatalf("expected malformed env var to be ignored, got %d", res.Config.Worker.MaxAttempts)
	}
}

func TestLoadRejectsInvalidStoreBackend(t *testing.T) {
	t.Setenv("VPO_STORE_BACKEND", "nonsense")

	if _, err := Load(""); err == nil {
		t.Fatal("expected an error for an unknown store backend")
	}
}

func TestLoadRejectsSQLiteBackendWithoutDSN(t *testing.T) {
	t.Setenv("VPO_STORE_BACKEND", "sqlite")

	if _, err := Load(""); err == nil {
		t.Fatal("expected an error when sqlite backend has no dsn")
	}
}

func TestLoadRejectsNonPositiveHeartbeatInterval(t *testing.T) {
	t.Setenv("VPO_WORKER_HEARTBEAT_INTERVAL", "0s")

	if _, err := Load(""); err == nil {
		t.Fatal("expected an error for a zero heartbeat interval")
	}
}
