// SPDX-License-Identifier: MIT

package execadapter

import (
	"strings"
	"testing"

	"github.com/vpoeng/vpo/internal/action"
	"github.com/vpoeng/vpo/internal/inspect"
)

func TestBuildSpecMapsSurvivingTracksInOrder(t *testing.T) {
	insp := inspect.Inspection{
		File: inspect.File{Path: "/in.mkv"},
		Tracks: []inspect.Track{
			{Index: 0, Kind: inspect.Video, Codec: "h264"},
			{Index: 1, Kind: inspect.Audio, Codec: "aac", Language: "eng", IsDefault: true},
			{Index: 2, Kind: inspect.Audio, Codec: "ac3", Language: "jpn"},
		},
	}
	plan := action.Plan{
		action.NewKeepTracks(inspect.Audio, []int{1, 2}),
		action.ReorderTracks{Permutation: []int{0, 1, 2}},
	}

	spec, err := buildSpec(plan, insp, "/out.mkv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"0:0", "0:1", "0:2"}
	if len(spec.StreamMaps) != len(want) {
		t.Fatalf("expected %d stream maps, got %v", len(want), spec.StreamMaps)
	}
	for i, m := range want {
		if spec.StreamMaps[i] != m {
			t.Fatalf("stream map %d: expected %q, got %q", i, m, spec.StreamMaps[i])
		}
	}
}

func TestBuildSpecDropsFilteredTracks(t *testing.T) {
	insp := inspect.Inspection{
		Tracks: []inspect.Track{
			{Index: 0, Kind: inspect.Video, Codec: "h264"},
			{Index: 1, Kind: inspect.Audio, Codec: "aac", Language: "eng"},
			{Index: 2, Kind: inspect.Audio, Codec: "ac3", Language: "jpn"},
		},
	}
	plan := action.Plan{action.NewKeepTracks(inspect.Audio, []int{1})}

	spec, err := buildSpec(plan, insp, "/out.mkv")
	if err != nil {
		t.Fatal(err)
	}
	for _, m := range spec.StreamMaps {
		if m == "0:2" {
			t.Fatalf("expected track 2 to be dropped, got maps %v", spec.StreamMaps)
		}
	}
}

func TestBuildSpecAppliesTranscodeVideoAndAudio(t *testing.T) {
	insp := inspect.Inspection{
		Tracks: []inspect.Track{
			{Index: 0, Kind: inspect.Video, Codec: "mpeg2video"},
			{Index: 1, Kind: inspect.Audio, Codec: "dts", Language: "eng"},
		},
	}
	plan := action.Plan{
		action.TranscodeVideo{Codec: "libx265", Quality: action.VideoQuality{Mode: action.QualityCRF, CRF: 20}},
		action.TranscodeAudio{TrackIndex: 1, To: "aac", Bitrate: "192k"},
	}

	spec, err := buildSpec(plan, insp, "/out.mkv")
	if err != nil {
		t.Fatal(err)
	}
	if spec.VideoCodec != "libx265" {
		t.Fatalf("expected video codec libx265, got %q", spec.VideoCodec)
	}
	if spec.AudioCodecs[0] != "aac" {
		t.Fatalf("expected audio position 0 -> aac, got %v", spec.AudioCodecs)
	}
	if len(spec.AudioArgs[0]) == 0 || spec.AudioArgs[0][1] != "192k" {
		t.Fatalf("expected bitrate arg for position 0, got %v", spec.AudioArgs[0])
	}
}

func TestBuildSpecSynthesizedTrackGetsFilterAndMap(t *testing.T) {
	insp := inspect.Inspection{
		Tracks: []inspect.Track{
			{Index: 0, Kind: inspect.Audio, Codec: "dts", Language: "eng", Channels: 6},
		},
	}
	plan := action.Plan{
		action.CreateSynthesizedTrack{
			Spec:        action.SynthesisTrackSpec{Codec: "aac", Channels: 2, Position: "end"},
			SourceIndex: 0,
		},
	}

	spec, err := buildSpec(plan, insp, "/out.mkv")
	if err != nil {
		t.Fatal(err)
	}
	if spec.ComplexFilter == "" || !strings.Contains(spec.ComplexFilter, "0:0") {
		t.Fatalf("expected a filter referencing source 0:0, got %q", spec.ComplexFilter)
	}
	found := false
	for _, m := range spec.StreamMaps {
		if strings.HasPrefix(m, "[synth") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a [synthN] stream map, got %v", spec.StreamMaps)
	}
}

func TestBuildSpecConvertContainerSetsFormat(t *testing.T) {
	insp := inspect.Inspection{Tracks: []inspect.Track{{Index: 0, Kind: inspect.Video, Codec: "h264"}}}
	plan := action.Plan{action.ConvertContainer{Target: "mp4"}}

	spec, err := buildSpec(plan, insp, "/out.mp4")
	if err != nil {
		t.Fatal(err)
	}
	if spec.ContainerFormat != "mp4" {
		t.Fatalf("expected container format mp4, got %q", spec.ContainerFormat)
	}
}

func TestBuildSpecUnsupportedContainerErrorsUnlessSkip(t *testing.T) {
	insp := inspect.Inspection{Tracks: []inspect.Track{{Index: 0, Kind: inspect.Video, Codec: "h264"}}}

	_, err := buildSpec(action.Plan{action.ConvertContainer{Target: "avi"}}, insp, "/out.avi")
	if err == nil {
		t.Fatal("expected an error for an unsupported container target")
	}

	spec, err := buildSpec(action.Plan{action.ConvertContainer{Target: "avi", OnIncompatible: action.OnIncompatibleSkip}}, insp, "/out.avi")
	if err != nil {
		t.Fatalf("expected skip mode to swallow the error, got %v", err)
	}
	if spec.ContainerFormat != "" {
		t.Fatalf("expected no container format under skip, got %q", spec.ContainerFormat)
	}
}

func TestDispositionArgMarksDefaultAndForced(t *testing.T) {
	got := dispositionArg("a", 0, inspect.Track{IsDefault: true})
	if got != "-disposition:a:0 default" {
		t.Fatalf("unexpected disposition: %q", got)
	}
	got = dispositionArg("s", 1, inspect.Track{})
	if got != "-disposition:s:1 0" {
		t.Fatalf("unexpected cleared disposition: %q", got)
	}
}
