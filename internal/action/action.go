// Copyright (c) 2025 vpo authors
// SPDX-License-Identifier: MIT

// Package action defines the Action AST (spec §3.4): the tagged-variant
// output of the Action Planner. Actions are inert data — nothing in this
// package executes them; the Execution Adapter (internal/execadapter)
// interprets a Plan against external tools.
package action

import (
	"strings"

	"github.com/vpoeng/vpo/internal/inspect"
)

// Action is the sealed interface every action AST node implements.
type Action interface {
	Kind() string
}

// Plan is the flat, ordered list of actions produced by running all phases
// (§4.5). Deduplication across phases is deliberately not performed; the
// execution adapter must be idempotent against repeated actions (§8).
type Plan []Action

// OperationKind names an operation a SkipOperation action can target.
type OperationKind string

const (
	OpVideoTranscode OperationKind = "video_transcode"
	OpAudioTranscode OperationKind = "audio_transcode"
	OpTrackFilter    OperationKind = "track_filter"
)

// SkipOperation records that a would-be operation was intentionally skipped
// (e.g. a transcode skip_if rule fired).
type SkipOperation struct {
	OperationKind OperationKind
}

func (SkipOperation) Kind() string { return "skip_operation" }

// Warn surfaces a non-fatal, policy-authored message. Template expansion is
// pure string substitution over {filename}, {path}, {rule_name} only.
type Warn struct {
	MessageTemplate string
}

func (Warn) Kind() string { return "warn" }

// Fail stops plan assembly for the current phase and propagates as a
// PlanFailure carrying the rendered message (§3.4, §4.4.4).
type Fail struct {
	MessageTemplate string
}

func (Fail) Kind() string { return "fail" }

// SetForced sets/clears is_forced on tracks of TrackKind, optionally
// restricted to a Language.
type SetForced struct {
	TrackKind inspect.TrackKind
	Language  *string
	Value     bool
}

func (SetForced) Kind() string { return "set_forced" }

// SetDefault is SetForced's sibling for is_default.
type SetDefault struct {
	TrackKind inspect.TrackKind
	Language  *string
	Value     bool
}

func (SetDefault) Kind() string { return "set_default" }

// SetLanguage relabels a track's language, optionally only tracks whose
// current language equals MatchLanguage.
type SetLanguage struct {
	TrackKind     inspect.TrackKind
	NewLanguage   string
	MatchLanguage *string
}

func (SetLanguage) Kind() string { return "set_language" }

// SetContainerMetadata sets (or, when Value is nil, deletes) a container tag.
type SetContainerMetadata struct {
	Field string
	Value *string
}

func (SetContainerMetadata) Kind() string { return "set_container_metadata" }

// KeepTracks records the surviving-track index set for one TrackKind after
// a filtering stage.
type KeepTracks struct {
	TrackKind inspect.TrackKind
	Indices   map[int]struct{}
}

func (KeepTracks) Kind() string { return "keep_tracks" }

// NewKeepTracks builds a KeepTracks from a slice of surviving indices.
func NewKeepTracks(kind inspect.TrackKind, indices []int) KeepTracks {
	set := make(map[int]struct{}, len(indices))
	for _, i := range indices {
		set[i] = struct{}{}
	}
	return KeepTracks{TrackKind: kind, Indices: set}
}

// ReorderTracks records a permutation over surviving track indices
// (§4.4.2, testable property #4: must be a permutation, no duplicates, no
// non-surviving indices).
type ReorderTracks struct {
	Permutation []int
}

func (ReorderTracks) Kind() string { return "reorder_tracks" }

// SynthesisTrackSpec is the declared shape of a synthesized audio track.
type SynthesisTrackSpec struct {
	Name     string
	Codec    string
	Channels int
	Title    string // "inherit" copies from the source track
	Language string // "inherit" copies from the source track
	Position string // "end" | "after_source" | numeric index (encoded by planner)
}

// CreateSynthesizedTrack records the creation of a new audio track derived
// from SourceIndex.
type CreateSynthesizedTrack struct {
	Spec        SynthesisTrackSpec
	SourceIndex int
}

func (CreateSynthesizedTrack) Kind() string { return "create_synthesized_track" }

// VideoQualityMode selects how TranscodeVideo's quality is expressed.
type VideoQualityMode string

const (
	QualityCRF                VideoQualityMode = "crf"
	QualityBitrate             VideoQualityMode = "bitrate"
	QualityConstrainedQuality VideoQualityMode = "constrained_quality"
)

// VideoQuality carries the mode-specific quality parameters.
type VideoQuality struct {
	Mode        VideoQualityMode
	CRF         int    // mode=crf; 0..51
	Bitrate     string // mode=bitrate; e.g. "5M"
	MinBitrate  string // mode=constrained_quality
	MaxBitrate  string // mode=constrained_quality
}

// HardwareAcceleration describes the requested transcode backend.
type HardwareAcceleration struct {
	Backend        string // e.g. "vaapi", "nvenc", "qsv", "" = software
	FallbackToCPU  bool
}

// TranscodeVideo requests a video transcode with the given parameters.
type TranscodeVideo struct {
	Codec                string
	Quality              VideoQuality
	Scaling              *Scaling
	HardwareAcceleration HardwareAcceleration
}

func (TranscodeVideo) Kind() string { return "transcode_video" }

// Scaling optionally constrains output resolution.
type Scaling struct {
	MaxWidth  int
	MaxHeight int
}

// TranscodeAudio requests a per-track audio transcode.
type TranscodeAudio struct {
	TrackIndex int
	To         string
	Bitrate    string
}

func (TranscodeAudio) Kind() string { return "transcode_audio" }

// ContainerIncompatibleMode selects ConvertContainer's behavior when the
// target container cannot represent a present stream/codec combination.
type ContainerIncompatibleMode string

const (
	OnIncompatibleError     ContainerIncompatibleMode = "error"
	OnIncompatibleSkip      ContainerIncompatibleMode = "skip"
	OnIncompatibleTranscode ContainerIncompatibleMode = "transcode"
)

// ConvertContainer requests a container (re)mux to Target.
type ConvertContainer struct {
	Target            string
	OnIncompatible    ContainerIncompatibleMode
	PreserveMetadata bool
}

func (ConvertContainer) Kind() string { return "convert_container" }

// ExpandTemplate performs the pure string substitution §3.4 allows:
// {filename}, {path}, {rule_name} and only those placeholders.
func ExpandTemplate(template, filename, path, ruleName string) string {
	r := strings.NewReplacer(
		"{filename}", filename,
		"{path}", path,
		"{rule_name}", ruleName,
	)
	return r.Replace(template)
}
