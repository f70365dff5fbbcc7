// SPDX-License-Identifier: MIT

package planner

import (
	"testing"

	"github.com/vpoeng/vpo/internal/action"
	"github.com/vpoeng/vpo/internal/condition"
	"github.com/vpoeng/vpo/internal/inspect"
	"github.com/vpoeng/vpo/internal/policy"
)

func testContext() Context {
	return NewContext(&policy.Policy{}, "movie.mkv", "/data/movie.mkv")
}

func findKeepTracks(plan action.Plan, kind inspect.TrackKind) (action.KeepTracks, bool) {
	for _, a := range plan {
		if kt, ok := a.(action.KeepTracks); ok && kt.TrackKind == kind {
			return kt, true
		}
	}
	return action.KeepTracks{}, false
}

func TestPlanAudioFilterKeepsPreferredLanguages(t *testing.T) {
	insp := inspect.Inspection{Tracks: []inspect.Track{
		{Index: 0, Kind: inspect.Audio, Codec: "aac", Language: "eng"},
		{Index: 1, Kind: inspect.Audio, Codec: "ac3", Language: "jpn"},
	}}
	ops := policy.Operations{AudioFilter: &policy.AudioFilter{Languages: []string{"eng"}, Minimum: 1}}
	plan, err := Plan(insp, ops, testContext())
	if err != nil {
		t.Fatal(err)
	}
	kt, ok := findKeepTracks(plan, inspect.Audio)
	if !ok {
		t.Fatal("expected a KeepTracks(audio) action")
	}
	if _, kept := kt.Indices[0]; !kept {
		t.Fatal("expected eng track kept")
	}
	if _, kept := kt.Indices[1]; kept {
		t.Fatal("expected jpn track dropped")
	}
}

func TestPlanAudioFilterFallbackKeepAllOnEmptyResult(t *testing.T) {
	insp := inspect.Inspection{Tracks: []inspect.Track{
		{Index: 0, Kind: inspect.Audio, Codec: "aac", Language: "jpn"},
	}}
	ops := policy.Operations{AudioFilter: &policy.AudioFilter{
		Languages: []string{"eng"},
		Minimum:   1,
		Fallback:  &policy.Fallback{Mode: policy.FallbackKeepAll},
	}}
	plan, err := Plan(insp, ops, testContext())
	if err != nil {
		t.Fatal(err)
	}
	kt, _ := findKeepTracks(plan, inspect.Audio)
	if _, kept := kt.Indices[0]; !kept {
		t.Fatal("expected keep_all fallback to retain the jpn track")
	}
}

func TestPlanAudioFilterFallbackErrorEmitsFail(t *testing.T) {
	insp := inspect.Inspection{Tracks: []inspect.Track{
		{Index: 0, Kind: inspect.Audio, Codec: "aac", Language: "jpn"},
	}}
	ops := policy.Operations{AudioFilter: &policy.AudioFilter{
		Languages: []string{"eng"},
		Minimum:   1,
		Fallback:  &policy.Fallback{Mode: policy.FallbackError},
	}}
	_, err := Plan(insp, ops, testContext())
	if err == nil {
		t.Fatal("expected fallback.mode=error to surface an error")
	}
}

func TestPlanTrackOrderProducesPermutationOverSurvivors(t *testing.T) {
	insp := inspect.Inspection{Tracks: []inspect.Track{
		{Index: 0, Kind: inspect.Video, Codec: "hevc"},
		{Index: 1, Kind: inspect.Audio, Codec: "aac", Language: "eng"},
		{Index: 2, Kind: inspect.Audio, Codec: "ac3", Language: "jpn"},
	}}
	ops := policy.Operations{
		TrackOrder: []policy.TrackCategory{policy.CategoryVideo, policy.CategoryAudioMain, policy.CategoryAudioAlternate},
	}
	plan, err := Plan(insp, ops, testContext())
	if err != nil {
		t.Fatal(err)
	}
	var reorder action.ReorderTracks
	found := false
	for _, a := range plan {
		if r, ok := a.(action.ReorderTracks); ok {
			reorder = r
			found = true
		}
	}
	if !found {
		t.Fatal("expected a ReorderTracks action")
	}
	if len(reorder.Permutation) != 3 {
		t.Fatalf("expected permutation over all 3 tracks, got %v", reorder.Permutation)
	}
}

func TestPlanTrackOrderSubtitleMainRanksByLanguagePreference(t *testing.T) {
	insp := inspect.Inspection{Tracks: []inspect.Track{
		{Index: 0, Kind: inspect.Subtitle, Codec: "subrip", Language: "jpn"},
		{Index: 1, Kind: inspect.Subtitle, Codec: "subrip", Language: "ger"},
		{Index: 2, Kind: inspect.Subtitle, Codec: "subrip", Language: "eng"},
	}}
	ops := policy.Operations{
		TrackOrder: []policy.TrackCategory{policy.CategorySubtitleMain},
	}
	pol := &policy.Policy{SubtitleLanguagePreference: []string{"eng", "ger"}}
	ctx := NewContext(pol, "movie.mkv", "/data/movie.mkv")
	plan, err := Plan(insp, ops, ctx)
	if err != nil {
		t.Fatal(err)
	}
	var reorder action.ReorderTracks
	for _, a := range plan {
		if r, ok := a.(action.ReorderTracks); ok {
			reorder = r
		}
	}
	want := []int{2, 1, 0}
	if len(reorder.Permutation) != len(want) {
		t.Fatalf("expected permutation of length %d, got %v", len(want), reorder.Permutation)
	}
	for i, idx := range want {
		if reorder.Permutation[i] != idx {
			t.Fatalf("expected eng(2) before ger(1) before unranked jpn(0), got %v", reorder.Permutation)
		}
	}
}

func TestPlanTrackOrderAudioMainUsesPolicyLanguagePreference(t *testing.T) {
	insp := inspect.Inspection{Tracks: []inspect.Track{
		{Index: 0, Kind: inspect.Audio, Codec: "aac", Language: "jpn"},
		{Index: 1, Kind: inspect.Audio, Codec: "ac3", Language: "eng"},
	}}
	// No audio_filter in this phase at all: audio_main must still honor the
	// policy's declared audio_language_preference rather than falling back
	// to the statistical "most common language" heuristic.
	ops := policy.Operations{
		TrackOrder: []policy.TrackCategory{policy.CategoryAudioMain, policy.CategoryAudioAlternate},
	}
	pol := &policy.Policy{AudioLanguagePreference: []string{"eng"}}
	ctx := NewContext(pol, "movie.mkv", "/data/movie.mkv")
	plan, err := Plan(insp, ops, ctx)
	if err != nil {
		t.Fatal(err)
	}
	var reorder action.ReorderTracks
	for _, a := range plan {
		if r, ok := a.(action.ReorderTracks); ok {
			reorder = r
		}
	}
	if len(reorder.Permutation) != 2 || reorder.Permutation[0] != 1 || reorder.Permutation[1] != 0 {
		t.Fatalf("expected eng(1) placed before jpn(0) as audio_main/alternate, got %v", reorder.Permutation)
	}
}

func TestPlanConditionalFirstMatchStopsAfterFirstTrue(t *testing.T) {
	insp := inspect.Inspection{Tracks: []inspect.Track{
		{Index: 0, Kind: inspect.Audio, Codec: "aac", Language: "eng"},
	}}
	rs := policy.RuleSet{
		Match: policy.MatchFirst,
		Items: []policy.Rule{
			{
				Name: "r1",
				When: condition.Exists{TrackKind: inspect.Audio},
				Then: []action.Action{action.Warn{MessageTemplate: "r1 fired"}},
			},
			{
				Name: "r2",
				When: condition.Exists{TrackKind: inspect.Video},
				Then: []action.Action{action.Warn{MessageTemplate: "r2 fired"}},
			},
		},
	}
	ops := policy.Operations{Conditional: &rs}
	plan, err := Plan(insp, ops, testContext())
	if err != nil {
		t.Fatal(err)
	}
	if len(plan) != 1 {
		t.Fatalf("expected exactly one warn action (match=first), got %d: %+v", len(plan), plan)
	}
}

func TestPlanConditionalFailStopsPlanAssembly(t *testing.T) {
	insp := inspect.Inspection{Tracks: []inspect.Track{
		{Index: 0, Kind: inspect.Audio, Codec: "aac", Language: "eng"},
	}}
	rs := policy.RuleSet{
		Match: policy.MatchAll,
		Items: []policy.Rule{
			{
				Name: "must-fail",
				When: condition.Exists{TrackKind: inspect.Audio},
				Then: []action.Action{action.Fail{MessageTemplate: "no audio allowed in {filename}"}},
			},
		},
	}
	ops := policy.Operations{Conditional: &rs}
	_, err := Plan(insp, ops, testContext())
	if err == nil {
		t.Fatal("expected Fail action to surface as an error")
	}
}

func TestPlanVideoTranscodeSkipsWhenCodecMatches(t *testing.T) {
	insp := inspect.Inspection{Tracks: []inspect.Track{
		{Index: 0, Kind: inspect.Video, Codec: "hevc", Width: 1920, Height: 1080},
	}}
	ops := policy.Operations{Transcode: &policy.Transcode{
		Video: &policy.VideoTranscode{
			TargetCodec: "hevc",
			SkipIf:      &policy.VideoSkipIf{CodecMatches: []string{"hevc"}},
		},
	}}
	plan, err := Plan(insp, ops, testContext())
	if err != nil {
		t.Fatal(err)
	}
	if len(plan) != 1 {
		t.Fatalf("expected single SkipOperation action, got %+v", plan)
	}
	if _, ok := plan[0].(action.SkipOperation); !ok {
		t.Fatalf("expected SkipOperation, got %T", plan[0])
	}
}

func TestPlanAudioSynthesisCreatesTrackFromPreferredSource(t *testing.T) {
	insp := inspect.Inspection{Tracks: []inspect.Track{
		{Index: 0, Kind: inspect.Audio, Codec: "dts", Language: "eng", Channels: 6},
	}}
	ops := policy.Operations{
		AudioFilter: &policy.AudioFilter{Minimum: 1},
		AudioSynthesis: []policy.SynthesisSpec{
			{
				Track: action.SynthesisTrackSpec{Name: "stereo-aac", Codec: "aac", Channels: 2, Title: "inherit", Language: "inherit", Position: "end"},
				SourcePrefer: []policy.SourceCriterion{
					{Language: strPtr("eng")},
				},
			},
		},
	}
	plan, err := Plan(insp, ops, testContext())
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, a := range plan {
		if c, ok := a.(action.CreateSynthesizedTrack); ok {
			found = true
			if c.SourceIndex != 0 {
				t.Fatalf("expected source index 0, got %d", c.SourceIndex)
			}
			if c.Spec.Language != "eng" {
				t.Fatalf("expected inherited language eng, got %q", c.Spec.Language)
			}
		}
	}
	if !found {
		t.Fatal("expected a CreateSynthesizedTrack action")
	}
}

func strPtr(s string) *string { return &s }
