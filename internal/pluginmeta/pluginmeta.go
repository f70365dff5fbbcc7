// Copyright (c) 2025 vpo authors
// SPDX-License-Identifier: MIT

// Package pluginmeta implements the Plugin Metadata Provider interface
// (spec §6.4): metadata_for(path, plugin_name) -> Mapping<string, Value>,
// populating an inspect.Inspection's Plugins map before evaluation. The
// engine never invokes plugin code during evaluation (§9 Non-goals); a
// Provider is the one place that talks to an external plugin collaborator.
package pluginmeta

import (
	"context"
	"fmt"
)

// Provider resolves a plugin's metadata for a source file. Implementations
// must be idempotent and side-effect-free within one evaluation (§6.4):
// calling Fetch twice for the same (path, plugin) during a single plan
// computation must return the same mapping.
type Provider interface {
	Fetch(ctx context.Context, path, plugin string) (map[string]any, error)
}

// FetchError wraps a failed plugin lookup with the (path, plugin) pair that
// failed, mirroring internal/mediaprovider.InspectionError's named-error
// convention for this adapter boundary.
type FetchError struct {
	Path   string
	Plugin string
	Cause  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("pluginmeta: fetching %q metadata for %q: %v", e.Plugin, e.Path, e.Cause)
}

func (e *FetchError) Unwrap() error { return e.Cause }
