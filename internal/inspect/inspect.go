// Copyright (c) 2025 vpo authors
// SPDX-License-Identifier: MIT

// Package inspect defines the immutable media-inspection model: the
// per-file, per-track description that the Condition Evaluator and Action
// Planner consume. Values in this package are never mutated after
// construction — phase execution derives a *virtual view* (see
// internal/phase) rather than editing an Inspection in place.
package inspect

import (
	"fmt"
	"regexp"
	"time"
)

// TrackKind enumerates the four kinds of tracks a container may carry.
type TrackKind string

const (
	Video      TrackKind = "video"
	Audio      TrackKind = "audio"
	Subtitle   TrackKind = "subtitle"
	Attachment TrackKind = "attachment"
)

// ContainerKind is the canonical container format of a source file.
type ContainerKind string

const (
	ContainerMKV   ContainerKind = "mkv"
	ContainerMP4   ContainerKind = "mp4"
	ContainerWebM  ContainerKind = "webm"
	ContainerOther ContainerKind = "other"
)

var languageCodePattern = regexp.MustCompile(`^[a-z]{2,3}$`)

// UndeterminedLanguage is the ISO 639-2/B code for "undetermined". It is
// semantically not equal to any named language, including itself for
// matching purposes beyond exact identity.
const UndeterminedLanguage = "und"

// Rational represents a frame rate as numerator/denominator to avoid
// floating-point drift across migrations and comparisons.
type Rational struct {
	Num int
	Den int
}

// Confidence carries a plugin-sourced original/dubbed verdict.
type Confidence struct {
	Value    bool    // the plugin's classification
	Score    float64 // 0..1
	Language string  // language the verdict pertains to, if scoped
}

// Track is a single immutable track entry within a Track inspection.
type Track struct {
	Index        int
	Kind         TrackKind
	Codec        string // lowercase canonical name
	Language     string // 2-3 lowercase letters, or "und"
	Title        string
	Channels     int // audio only; 0 if not applicable
	SampleRate   int // audio only
	Width        int // video only
	Height       int // video only
	Bitrate      *int64
	FrameRate    *Rational
	IsDefault    bool
	IsForced     bool
	IsCommentary bool
	Original     *Confidence
	Dubbed       *Confidence
}

// PluginMetadata is an opaque mapping plugin-name -> field-name -> value.
// Values are JSON-scalars (string, float64, bool, nil) by convention.
type PluginMetadata map[string]map[string]any

// File describes the container-level properties of a source file.
type File struct {
	Path      string
	SizeBytes int64
	Container ContainerKind
	Metadata  map[string]string // container-level tags
	Duration  time.Duration
}

// Inspection is the complete, immutable description of one source file fed
// into the Condition Evaluator and Action Planner for one evaluation.
type Inspection struct {
	File    File
	Tracks  []Track
	Plugins PluginMetadata
}

// TracksOf returns every track of the given kind, in source order.
func (i Inspection) TracksOf(kind TrackKind) []Track {
	out := make([]Track, 0, len(i.Tracks))
	for _, t := range i.Tracks {
		if t.Kind == kind {
			out = append(out, t)
		}
	}
	return out
}

// ByIndex returns the track with the given stable source index, if present.
func (i Inspection) ByIndex(index int) (Track, bool) {
	for _, t := range i.Tracks {
		if t.Index == index {
			return t, true
		}
	}
	return Track{}, false
}

// MetadataField looks up a container-level tag by name.
func (f File) MetadataField(field string) (string, bool) {
	v, ok := f.Metadata[field]
	return v, ok
}

// PluginField looks up a (plugin, field) pair.
func (p PluginMetadata) PluginField(plugin, field string) (any, bool) {
	fields, ok := p[plugin]
	if !ok {
		return nil, false
	}
	v, ok := fields[field]
	return v, ok
}

// Validate checks the invariants §3.1 requires of an Inspection: globally
// unique track indices (matching a media prober's own stream numbering, so
// ByIndex and the virtual view in internal/phase can address any track by
// its bare index alone), valid language codes, canonical codec casing. A
// Media Inspection Provider adapter must run this before handing an
// Inspection to the evaluator.
func (i Inspection) Validate() error {
	seen := make(map[int]TrackKind, len(i.Tracks))
	for _, t := range i.Tracks {
		if prevKind, dup := seen[t.Index]; dup {
			return fmt.Errorf("inspect: duplicate track index %d (kinds %s and %s)", t.Index, prevKind, t.Kind)
		}
		seen[t.Index] = t.Kind

		if t.Language != "" && t.Language != UndeterminedLanguage && !languageCodePattern.MatchString(t.Language) {
			return fmt.Errorf("inspect: track %d has invalid language code %q", t.Index, t.Language)
		}
		if t.Codec != canonicalCodec(t.Codec) {
			return fmt.Errorf("inspect: track %d codec %q is not canonical lowercase ASCII", t.Index, t.Codec)
		}
	}
	return nil
}

func canonicalCodec(codec string) string {
	b := []byte(codec)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
