// SPDX-License-Identifier: MIT

package execadapter

import (
	"context"
	"testing"

	"github.com/vpoeng/vpo/internal/action"
	"github.com/vpoeng/vpo/internal/inspect"
)

type alwaysCancelled struct{}

func (alwaysCancelled) IsCancelled() bool { return true }

func TestExecuteShortCircuitsWhenAlreadyCancelled(t *testing.T) {
	e := NewFFmpegExecutor("ffmpeg")
	insp := inspect.Inspection{Tracks: []inspect.Track{{Index: 0, Kind: inspect.Video, Codec: "h264"}}}

	outcome, err := e.Execute(context.Background(), action.Plan{}, insp, "/out.mkv", nil, alwaysCancelled{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Success || outcome.FailureKind != PartialActionFailure {
		t.Fatalf("expected a partial_action_failure outcome, got %+v", outcome)
	}
}

func TestExecuteToolMissingWhenBinaryAbsent(t *testing.T) {
	e := NewFFmpegExecutor("vpo-definitely-not-a-real-binary")
	insp := inspect.Inspection{
		File:   inspect.File{Path: "/in.mkv"},
		Tracks: []inspect.Track{{Index: 0, Kind: inspect.Video, Codec: "h264"}},
	}

	outcome, err := e.Execute(context.Background(), action.Plan{}, insp, "/out.mkv", nil, NoopCancelToken{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Success || outcome.FailureKind != ToolMissing {
		t.Fatalf("expected tool_missing outcome, got %+v", outcome)
	}
}

func TestPercentOfClampsAndGuardsZeroDuration(t *testing.T) {
	if got := percentOf(10, 0); got != 0 {
		t.Fatalf("expected 0 with no known duration, got %v", got)
	}
	if got := percentOf(150, 100); got != 100 {
		t.Fatalf("expected clamp to 100, got %v", got)
	}
	if got := percentOf(50, 100); got != 50 {
		t.Fatalf("expected 50%%, got %v", got)
	}
}
