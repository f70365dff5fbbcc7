// Copyright (c) 2025 vpo authors
// SPDX-License-Identifier: MIT

package pluginmeta

import (
	"context"
	"testing"

	"github.com/vpoeng/vpo/internal/inspect"
)

func TestPopulateFillsPluginsForEveryNamedPlugin(t *testing.T) {
	src := NewFakeSource()
	src.Set("/in.mkv", "classifier", map[string]any{"is_commentary": true})
	src.Set("/in.mkv", "originality", map[string]any{"is_dubbed": false})

	insp := inspect.Inspection{File: inspect.File{Path: "/in.mkv"}}
	out, err := Populate(context.Background(), src, insp, []string{"classifier", "originality"})
	if err != nil {
		t.Fatalf("populate: %v", err)
	}

	if v, _ := out.Plugins.PluginField("classifier", "is_commentary"); v != true {
		t.Fatalf("expected classifier.is_commentary true, got %v", v)
	}
	if v, _ := out.Plugins.PluginField("originality", "is_dubbed"); v != false {
		t.Fatalf("expected originality.is_dubbed false, got %v", v)
	}
}

func TestPopulateWithNoPluginsLeavesInspectionUnchanged(t *testing.T) {
	insp := inspect.Inspection{File: inspect.File{Path: "/in.mkv"}}
	out, err := Populate(context.Background(), NewFakeSource(), insp, nil)
	if err != nil {
		t.Fatalf("populate: %v", err)
	}
	if out.Plugins != nil {
		t.Fatalf("expected no Plugins map when no plugins requested, got %v", out.Plugins)
	}
}

func TestPopulatePropagatesSourceError(t *testing.T) {
	insp := inspect.Inspection{File: inspect.File{Path: "/in.mkv"}}
	_, err := Populate(context.Background(), erroringSource{}, insp, []string{"classifier"})
	if err == nil {
		t.Fatal("expected an error")
	}
}
