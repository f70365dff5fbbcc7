// Copyright (c) 2025 vpo authors
// SPDX-License-Identifier: MIT

package runtimeconfig

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// UnknownFieldWarning records a key present in a config file that this
// loader does not recognize. Mirrors internal/policy.UnknownFieldWarning
// so the two loaders read as siblings (SPEC_FULL §10.3): an unrecognized
// field in either document is reported, never fatal.
type UnknownFieldWarning struct {
	Path string
}

// doc is the same consumed-key-tracking wrapper internal/policy/decode.go
// uses, reused here so an unrecognized YAML field becomes an
// UnknownFieldWarning instead of the teacher's own fatal
// dec.KnownFields(true) behavior.
type doc struct {
	path     string
	fields   map[string]any
	consumed map[string]bool
}

func newDoc(path string, fields map[string]any) *doc {
	return &doc{path: path, fields: fields, consumed: map[string]bool{}}
}

func (d *doc) child(key string) *doc {
	d.consumed[key] = true
	v, ok := d.fields[key]
	if !ok {
		return nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	return newDoc(d.path+"."+key, m)
}

func (d *doc) str(key string, def string) string {
	d.consumed[key] = true
	v, ok := d.fields[key]
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok {
		return def
	}
	return s
}

func (d *doc) boolean(key string, def bool) bool {
	d.consumed[key] = true
	v, ok := d.fields[key]
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}

func (d *doc) integer(key string, def int) int {
	d.consumed[key] = true
	v, ok := d.fields[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return def
	}
}

// parseDurationSeconds reads key as a whole number of seconds, falling
// back to def if absent or not a number. Only the file layer uses it; the
// env layer parses Go duration strings (e.g. "45s") instead.
func parseDurationSeconds(d *doc, key string, def time.Duration) time.Duration {
	secs := d.integer(key, -1)
	if secs < 0 {
		return def
	}
	return time.Duration(secs) * time.Second
}

func (d *doc) warnings() []UnknownFieldWarning {
	var out []UnknownFieldWarning
	for k := range d.fields {
		if !d.consumed[k] {
			out = append(out, UnknownFieldWarning{Path: d.path + "." + k})
		}
	}
	return out
}

// loadFile parses path as a YAML document layered over cfg (cfg already
// holds the precedence layer below this one — defaults, per §10.3). Unknown
// top-level and nested keys are returned as warnings rather than errors.
//
// Durations are written in the document as seconds (e.g.
// heartbeat_interval_seconds: 10) to avoid pulling in a duration-string
// parser for the file layer; parseDurationSeconds above reads them.
func loadFile(path string, cfg Config) (Config, []UnknownFieldWarning, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, nil, fmt.Errorf("runtimeconfig: read %s: %w", path, err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return cfg, nil, fmt.Errorf("runtimeconfig: parse yaml: %w", err)
	}

	root := newDoc("$", raw)
	cfg.LogLevel = root.str("log_level", cfg.LogLevel)

	var warnings []UnknownFieldWarning

	if w := root.child("worker"); w != nil {
		cfg.Worker.HeartbeatInterval = parseDurationSeconds(w, "heartbeat_interval_seconds", cfg.Worker.HeartbeatInterval)
		cfg.Worker.StaleMultiplier = w.integer("stale_multiplier", cfg.Worker.StaleMultiplier)
		cfg.Worker.MaxAttempts = w.integer("max_attempts", cfg.Worker.MaxAttempts)
		cfg.Worker.DrainTimeout = parseDurationSeconds(w, "drain_timeout_seconds", cfg.Worker.DrainTimeout)
		cfg.Worker.CleanupRetention = parseDurationSeconds(w, "cleanup_retention_seconds", cfg.Worker.CleanupRetention)
		cfg.Worker.CleanupMinScratchAge = parseDurationSeconds(w, "cleanup_min_scratch_age_seconds", cfg.Worker.CleanupMinScratchAge)
		warnings = append(warnings, w.warnings()...)
	}

	if s := root.child("store"); s != nil {
		cfg.Store.Backend = StoreBackend(s.str("backend", string(cfg.Store.Backend)))
		cfg.Store.DSN = s.str("dsn", cfg.Store.DSN)
		warnings = append(warnings, s.warnings()...)
	}

	if t := root.child("telemetry"); t != nil {
		cfg.Telemetry.MetricsEnabled = t.boolean("metrics_enabled", cfg.Telemetry.MetricsEnabled)
		cfg.Telemetry.TracingEnabled = t.boolean("tracing_enabled", cfg.Telemetry.TracingEnabled)
		cfg.Telemetry.OTLPEndpoint = t.str("otlp_endpoint", cfg.Telemetry.OTLPEndpoint)
		warnings = append(warnings, t.warnings()...)
	}

	warnings = append(warnings, root.warnings()...)

	return cfg, warnings, nil
}
