// SPDX-License-Identifier: MIT

package action

import (
	"testing"

	"github.com/vpoeng/vpo/internal/inspect"
)

func TestExpandTemplateOnlySupportedPlaceholders(t *testing.T) {
	got := ExpandTemplate("skipping {filename} at {path} due to {rule_name} and {unknown}", "movie.mkv", "/data/movie.mkv", "skip_hevc")
	want := "skipping movie.mkv at /data/movie.mkv due to skip_hevc and {unknown}"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestNewKeepTracksBuildsIndexSet(t *testing.T) {
	kt := NewKeepTracks(inspect.Audio, []int{0, 2, 5})
	for _, idx := range []int{0, 2, 5} {
		if _, ok := kt.Indices[idx]; !ok {
			t.Fatalf("expected index %d to be kept", idx)
		}
	}
	if _, ok := kt.Indices[1]; ok {
		t.Fatal("did not expect index 1 to be kept")
	}
}

func TestPlanIsOrderedActionList(t *testing.T) {
	p := Plan{
		SkipOperation{OperationKind: OpVideoTranscode},
		Warn{MessageTemplate: "heads up"},
	}
	if p[0].Kind() != "skip_operation" {
		t.Fatal("expected first action to be skip_operation")
	}
	if p[1].Kind() != "warn" {
		t.Fatal("expected second action to be warn")
	}
}
