// Copyright (c) 2025 vpo authors
// SPDX-License-Identifier: MIT

package pluginmeta

import (
	"context"
	"fmt"

	"github.com/vpoeng/vpo/internal/inspect"
)

// Populate fetches every named plugin's metadata for insp.File.Path and
// returns a copy of insp with Plugins filled in. Evaluation itself never
// calls a Provider (§9); this is the one seam upstream code uses to do so
// before handing the Inspection to the Condition Evaluator.
func Populate(ctx context.Context, p Provider, insp inspect.Inspection, plugins []string) (inspect.Inspection, error) {
	if len(plugins) == 0 {
		return insp, nil
	}
	out := insp
	out.Plugins = make(inspect.PluginMetadata, len(plugins))
	for _, plugin := range plugins {
		fields, err := p.Fetch(ctx, insp.File.Path, plugin)
		if err != nil {
			return inspect.Inspection{}, fmt.Errorf("pluginmeta: populate %q: %w", plugin, err)
		}
		out.Plugins[plugin] = fields
	}
	return out, nil
}
