// Copyright (c) 2025 vpo authors
// SPDX-License-Identifier: MIT

// Package phase implements the Phase Executor (spec §4.5): it drives a
// policy's phases in order, rebuilding a virtual view of the inspection
// after each phase's actions and handing that view to the Action Planner
// for the next phase.
package phase

import (
	"sort"

	"github.com/vpoeng/vpo/internal/action"
	"github.com/vpoeng/vpo/internal/inspect"
	"github.com/vpoeng/vpo/internal/planner"
)

// mutation records the per-track overrides a SetDefault/SetForced/
// SetLanguage action applies. Only non-nil fields are overridden when the
// view is materialized.
type mutation struct {
	removed   bool
	isDefault *bool
	isForced  *bool
	language  *string
}

// synthTrack is a pending synthesized track: the declared spec plus the
// pseudo-index assigned to it and the real source track it was derived
// from.
type synthTrack struct {
	index       int
	spec        action.SynthesisTrackSpec
	sourceIndex int
}

// View is the "arena/index" virtual inspection described in spec.md's
// design notes (§9): the original immutable Inspection plus an overlay of
// per-track mutations and a list of synthesized pseudo-tracks, rather than
// a deep copy of the Inspection after every phase. Original track indices
// stay stable across the whole lifetime of a View.
type View struct {
	original       inspect.Inspection
	mods           map[int]mutation
	synthesized    []synthTrack
	order          []int // explicit full track order once a ReorderTracks action lands; nil until then
	nextSynthIndex int
}

// NewView starts a virtual view from the original, unmodified inspection.
func NewView(insp inspect.Inspection) *View {
	return &View{
		original:       insp,
		mods:           map[int]mutation{},
		nextSynthIndex: -1,
	}
}

// Apply folds one phase's plan segment into the view, in emission order,
// per §4.5 step 1 / §9's virtual-view design note: removed tracks
// disappear, reorderings apply, flag and language changes are reflected,
// and synthesized tracks appear as pseudo-tracks with their declared
// properties.
func (v *View) Apply(plan action.Plan) {
	for _, a := range plan {
		switch act := a.(type) {
		case action.KeepTracks:
			v.applyKeepTracks(act)
		case action.ReorderTracks:
			v.order = append([]int(nil), act.Permutation...)
		case action.SetDefault:
			v.applyFlag(act.TrackKind, act.Language, func(m *mutation) { val := act.Value; m.isDefault = &val })
		case action.SetForced:
			v.applyFlag(act.TrackKind, act.Language, func(m *mutation) { val := act.Value; m.isForced = &val })
		case action.SetLanguage:
			v.applyLanguage(act)
		case action.CreateSynthesizedTrack:
			v.applySynthesis(act)
		default:
			// SkipOperation, Warn, Fail, TranscodeVideo, TranscodeAudio,
			// ConvertContainer carry no track-membership effect on the
			// virtual view (spec §4.5 step 1 names only removal,
			// reordering, flag/language changes and synthesis).
		}
	}
}

func (v *View) applyKeepTracks(kt action.KeepTracks) {
	for _, t := range v.liveTracksOf(kt.TrackKind) {
		if _, keep := kt.Indices[t.Index]; !keep {
			m := v.mods[t.Index]
			m.removed = true
			v.mods[t.Index] = m
		}
	}
}

func (v *View) applyFlag(kind inspect.TrackKind, language *string, set func(*mutation)) {
	for _, t := range v.liveTracksOf(kind) {
		if language != nil && t.Language != *language {
			continue
		}
		m := v.mods[t.Index]
		set(&m)
		v.mods[t.Index] = m
	}
}

func (v *View) applyLanguage(act action.SetLanguage) {
	for _, t := range v.liveTracksOf(act.TrackKind) {
		if act.MatchLanguage != nil && t.Language != *act.MatchLanguage {
			continue
		}
		m := v.mods[t.Index]
		lang := act.NewLanguage
		m.language = &lang
		v.mods[t.Index] = m
	}
}

func (v *View) applySynthesis(act action.CreateSynthesizedTrack) {
	idx := v.nextSynthIndex
	v.nextSynthIndex--

	base := v.currentOrder()
	insertAt := v.resolveInsertion(base, act.Spec.Position, act.SourceIndex)

	v.synthesized = append(v.synthesized, synthTrack{index: idx, spec: act.Spec, sourceIndex: act.SourceIndex})
	v.order = insertInt(base, insertAt, idx)
}

// currentOrder returns the full live track order as of right now: the
// explicit permutation from the most recent ReorderTracks action if one
// has landed, or else the natural order (original tracks in source order,
// followed by any already-synthesized tracks in creation order).
func (v *View) currentOrder() []int {
	if v.order != nil {
		return append([]int(nil), v.order...)
	}
	var order []int
	for _, t := range v.original.Tracks {
		if m := v.mods[t.Index]; !m.removed {
			order = append(order, t.Index)
		}
	}
	for _, s := range v.synthesized {
		if m := v.mods[s.index]; !m.removed {
			order = append(order, s.index)
		}
	}
	return order
}

// resolveInsertion maps a synthesis Position onto an absolute position in
// order, using planner.ResolveSynthesisPosition against the audio-only
// subsequence and translating that back to order's combined indexing.
func (v *View) resolveInsertion(order []int, position string, sourceIndex int) int {
	audioOrder := make([]int, 0, len(order))
	for _, idx := range order {
		if t, ok := v.lookup(idx); ok && t.Kind == inspect.Audio {
			audioOrder = append(audioOrder, idx)
		}
	}
	if len(audioOrder) == 0 {
		return len(order)
	}
	pos := planner.ResolveSynthesisPosition(position, sourceIndex, audioOrder)

	if pos <= 0 {
		return indexOf(order, audioOrder[0])
	}
	if pos >= len(audioOrder) {
		return indexOf(order, audioOrder[len(audioOrder)-1]) + 1
	}
	return indexOf(order, audioOrder[pos-1]) + 1
}

// lookup resolves an index (real or synthesized) to its current (possibly
// overlaid) track, without regard to removal/ordering.
func (v *View) lookup(index int) (inspect.Track, bool) {
	if index < 0 {
		for _, s := range v.synthesized {
			if s.index == index {
				return v.materializeSynth(s), true
			}
		}
		return inspect.Track{}, false
	}
	t, ok := v.original.ByIndex(index)
	if !ok {
		return inspect.Track{}, false
	}
	return v.overlay(t), true
}

func (v *View) overlay(t inspect.Track) inspect.Track {
	m, ok := v.mods[t.Index]
	if !ok {
		return t
	}
	if m.isDefault != nil {
		t.IsDefault = *m.isDefault
	}
	if m.isForced != nil {
		t.IsForced = *m.isForced
	}
	if m.language != nil {
		t.Language = *m.language
	}
	return t
}

func (v *View) materializeSynth(s synthTrack) inspect.Track {
	title, language := s.spec.Title, s.spec.Language
	if source, ok := v.original.ByIndex(s.sourceIndex); ok {
		if title == "inherit" {
			title = source.Title
		}
		if language == "inherit" {
			language = source.Language
		}
	}
	t := inspect.Track{
		Index:    s.index,
		Kind:     inspect.Audio,
		Codec:    s.spec.Codec,
		Language: language,
		Title:    title,
		Channels: s.spec.Channels,
	}
	return v.overlay(t)
}

// liveTracksOf returns the not-yet-removed tracks of kind, both real and
// synthesized, in their current materialized order.
func (v *View) liveTracksOf(kind inspect.TrackKind) []inspect.Track {
	out := make([]inspect.Track, 0, len(v.original.Tracks))
	for _, t := range v.Materialize().TracksOf(kind) {
		out = append(out, t)
	}
	return out
}

// Materialize renders the current overlay into a concrete Inspection for
// the Action Planner to consume. Removed tracks are omitted, flag/language
// overlays are applied, and synthesized tracks are included as real Track
// values (§9: "synthesized tracks appear as pseudo-tracks with their
// declared properties").
func (v *View) Materialize() inspect.Inspection {
	live := make(map[int]inspect.Track, len(v.original.Tracks)+len(v.synthesized))
	for _, t := range v.original.Tracks {
		m := v.mods[t.Index]
		if m.removed {
			continue
		}
		live[t.Index] = v.overlay(t)
	}
	for _, s := range v.synthesized {
		m := v.mods[s.index]
		if m.removed {
			continue
		}
		live[s.index] = v.materializeSynth(s)
	}

	order := v.currentOrder()

	tracks := make([]inspect.Track, 0, len(live))
	seen := make(map[int]bool, len(live))
	for _, idx := range order {
		if t, ok := live[idx]; ok && !seen[idx] {
			tracks = append(tracks, t)
			seen[idx] = true
		}
	}
	// Defensive: any live track the order list omitted (e.g. a track_order
	// rule that doesn't cover every category) is appended in original order
	// rather than silently dropped.
	if len(tracks) != len(live) {
		var rest []int
		for idx := range live {
			if !seen[idx] {
				rest = append(rest, idx)
			}
		}
		sort.Ints(rest)
		for _, idx := range rest {
			tracks = append(tracks, live[idx])
		}
	}

	return inspect.Inspection{File: v.original.File, Tracks: tracks, Plugins: v.original.Plugins}
}

func indexOf(s []int, v int) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}

func insertInt(s []int, at, v int) []int {
	if at < 0 || at > len(s) {
		at = len(s)
	}
	out := make([]int, 0, len(s)+1)
	out = append(out, s[:at]...)
	out = append(out, v)
	out = append(out, s[at:]...)
	return out
}
