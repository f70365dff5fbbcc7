// Copyright (c) 2025 vpo authors
// SPDX-License-Identifier: MIT

// Package policy defines the versioned policy schema (spec §3.2) and its
// loader/upgrader (§4.1). Every on-disk schema version (1..LATEST) is
// upgraded into this package's types before anything else in vpo ever sees
// it — the Condition Evaluator and Action Planner only ever operate on the
// latest shape.
package policy

import (
	"github.com/vpoeng/vpo/internal/action"
	"github.com/vpoeng/vpo/internal/condition"
)

// LatestSchemaVersion is the newest schema_version this loader understands.
// A document declaring anything greater is a hard UnsupportedSchema error.
const LatestSchemaVersion = 13

// ReservedPhaseNames may not be used as a phase's name (§3.2).
var ReservedPhaseNames = map[string]bool{
	"config":         true,
	"schema_version": true,
	"phases":         true,
}

// OnErrorMode selects how the Phase Executor reacts to a phase that raised
// a Fail action (§4.5).
type OnErrorMode string

const (
	OnErrorSkip     OnErrorMode = "skip" // default
	OnErrorStop     OnErrorMode = "stop"
	OnErrorContinue OnErrorMode = "continue"
)

// ExecutionConfig holds the V11 `config` section.
type ExecutionConfig struct {
	OnError OnErrorMode
}

// FallbackMode selects §4.4.1's audio-filter fallback behavior when the
// language filter would otherwise produce fewer than Minimum kept tracks.
type FallbackMode string

const (
	FallbackContentLanguage FallbackMode = "content_language"
	FallbackKeepAll         FallbackMode = "keep_all"
	FallbackKeepFirst       FallbackMode = "keep_first"
	FallbackError           FallbackMode = "error"
)

// Fallback configures AudioFilter's empty-result recovery.
type Fallback struct {
	Mode FallbackMode
}

// ClassOption is one V10 music/sfx/non_speech track-class policy.
type ClassOption struct {
	Keep                      bool // keep_<class>_tracks, default true
	ExcludeFromLanguageFilter bool // exclude_<class>_from_language_filter, default true
}

// TrackClass names a V10 classification applied to audio tracks in addition
// to (language, commentary).
type TrackClass string

const (
	ClassMusic     TrackClass = "music"
	ClassSFX       TrackClass = "sfx"
	ClassNonSpeech TrackClass = "non_speech"
)

// AudioFilter is the policy shape for §4.4.1's audio language filtering.
type AudioFilter struct {
	Languages []string
	Minimum   int // default 1
	Fallback  *Fallback
	Classes   map[TrackClass]ClassOption
}

// SubtitleFilter is the policy shape for §4.4.1's subtitle filtering.
type SubtitleFilter struct {
	RemoveAll      bool
	Languages      []string
	PreserveForced bool
}

// AttachmentFilter is the policy shape for §4.4.1's attachment filtering.
type AttachmentFilter struct {
	RemoveAll bool
}

// TrackCategory is one entry of the fixed track_order vocabulary (§4.4.2).
type TrackCategory string

const (
	CategoryVideo               TrackCategory = "video"
	CategoryAudioMain           TrackCategory = "audio_main"
	CategoryAudioAlternate      TrackCategory = "audio_alternate"
	CategoryAudioCommentary     TrackCategory = "audio_commentary"
	CategorySubtitleMain        TrackCategory = "subtitle_main"
	CategorySubtitleForced      TrackCategory = "subtitle_forced"
	CategorySubtitleCommentary  TrackCategory = "subtitle_commentary"
	CategoryAttachment          TrackCategory = "attachment"
)

// DefaultFlags is the policy shape for §4.4.3.
type DefaultFlags struct {
	SetFirstVideoDefault                bool
	SetPreferredAudioDefault            bool
	SetPreferredSubtitleDefault         bool
	SetSubtitleDefaultWhenAudioDiffers  bool
	SetSubtitleForcedWhenAudioDiffers   bool
	ClearOtherDefaults                  bool
	PreferredAudioCodec                 []string
}

// MatchMode selects how a RuleSet stops iterating (§4.4.4).
type MatchMode string

const (
	MatchFirst MatchMode = "first"
	MatchAll   MatchMode = "all"
)

// Rule is one conditional-action entry.
type Rule struct {
	Name string
	When condition.Condition
	Then []action.Action
	Else []action.Action
}

// RuleSet is the V13 `{match, items}` shape (V1-V12 bare lists are
// normalized into MatchFirst by the upgrader, §4.1).
type RuleSet struct {
	Match MatchMode
	Items []Rule
}

// SourceCriterion is one ANDed selector in a SynthesisSpec's source_prefer
// list (§4.4.5).
type SourceCriterion struct {
	Language      *string
	Codec         *string
	NotCommentary bool
	Channels      *condition.NumericFilter
}

// SkipIfExists is §4.4.5's synthesis skip-rule criteria.
type SkipIfExists struct {
	Codec         *string
	Channels      *condition.NumericFilter
	Language      *string
	NotCommentary *bool
}

// SynthesisSpec describes one declared synthesized audio track.
type SynthesisSpec struct {
	Track        action.SynthesisTrackSpec
	SourcePrefer []SourceCriterion
	SkipIfExists *SkipIfExists
	CreateIf     condition.Condition
}

// ResolutionBucket names a max width/height pair for skip_if.resolution_within.
type ResolutionBucket struct {
	MaxWidth  int
	MaxHeight int
}

// VideoSkipIf is §4.4.6's video transcode skip-condition set (ANDed).
type VideoSkipIf struct {
	CodecMatches     []string
	ResolutionWithin *ResolutionBucket
	BitrateUnder     string // e.g. "5M", "2500k"
}

// VideoTranscode is the policy shape for §4.4.6's video decision.
type VideoTranscode struct {
	TargetCodec          string // empty means "no video action"
	SkipIf               *VideoSkipIf
	Quality              action.VideoQuality
	Scaling              *action.Scaling
	HardwareAcceleration action.HardwareAcceleration
}

// AudioTranscode is the policy shape for §4.4.6's audio decision.
type AudioTranscode struct {
	PreserveCodecs []string
	To             string
	Bitrate        string
}

// Transcode groups the video/audio transcode decisions.
type Transcode struct {
	Video *VideoTranscode
	Audio *AudioTranscode
}

// Container is the policy shape for the container-conversion step.
type Container struct {
	Target           string
	OnIncompatible   action.ContainerIncompatibleMode
	PreserveMetadata bool
}

// Transcription configures the transcription phase step (§4.4 step 8);
// it only ever emits internal markers, never external mutations.
type Transcription struct {
	Enabled  bool
	Language string
}

// Operations is the set of operation fields one phase may enable — the
// same vocabulary that, pre-V11, lived at the policy's top level (§3.2).
type Operations struct {
	Container        *Container
	AudioFilter      *AudioFilter
	SubtitleFilter   *SubtitleFilter
	AttachmentFilter *AttachmentFilter
	TrackOrder       []TrackCategory
	DefaultFlags     *DefaultFlags
	Conditional      *RuleSet
	AudioSynthesis   []SynthesisSpec
	Transcode        *Transcode
	Transcription    *Transcription
}

// Phase is one named, ordered step of policy evaluation (§3.2, V11+).
type Phase struct {
	Name string
	Ops  Operations
}

// Policy is the latest internal representation every on-wire schema
// version is upgraded into (§3.2, §4.1). Evaluation logic never sees an
// older shape.
type Policy struct {
	SchemaVersion      int
	DisplayName        string
	Config             ExecutionConfig
	Phases             []Phase
	CommentaryPatterns []condition.CommentaryPattern

	// AudioLanguagePreference and SubtitleLanguagePreference are the
	// document-wide, order-significant language lists §4.4.2 and §4.4.3
	// categorize and default-flag against (earliest entry wins). They are
	// independent of any phase's audio_filter/subtitle_filter operation.
	AudioLanguagePreference    []string
	SubtitleLanguagePreference []string
}

// UnknownFieldWarning records a key present in the source document that this
// loader does not recognize (§4.1 step 5: never fatal).
type UnknownFieldWarning struct {
	Path string
}
