// Copyright (c) 2025 vpo authors
// SPDX-License-Identifier: MIT

// Package planner implements the Action Planner (spec §4.4): given the
// current inspection and one phase's enabled operations, it produces the
// ordered Action list that phase contributes to the overall Plan. The
// planner itself performs no I/O; it is pure over (inspection, policy,
// operations, context).
package planner

import (
	"github.com/vpoeng/vpo/internal/action"
	"github.com/vpoeng/vpo/internal/condition"
	"github.com/vpoeng/vpo/internal/inspect"
	"github.com/vpoeng/vpo/internal/policy"
	"github.com/vpoeng/vpo/internal/policyerr"
)

// Classifier reports whether a track belongs to one V10 track class (music,
// sfx, non_speech). The spec leaves the exact signal unspecified beyond
// "plugin metadata or title heuristics" (§9 open question); callers supply
// whichever classifier fits their plugin ecosystem. DefaultClassifiers
// accepts a plugin signal, else checks a small table of title substrings,
// else reports false.
type Classifier func(t inspect.Track, plugins inspect.PluginMetadata) bool

// Context carries the globals §4.4 says the planner needs beyond one
// phase's operation fields: the whole policy's commentary patterns, the
// rule/filename/path values for message-template expansion, and the V10
// class classifiers.
type Context struct {
	CommentaryPatterns []condition.CommentaryPattern
	ConditionContext   condition.Context
	Classifiers        map[policy.TrackClass]Classifier
	FileName           string
	FilePath           string

	// AudioLanguagePreference and SubtitleLanguagePreference are the
	// policy's document-wide §4.4.2/§4.4.3 preference lists, not this
	// phase's audio_filter/subtitle_filter.Languages.
	AudioLanguagePreference    []string
	SubtitleLanguagePreference []string
}

// NewContext builds a Context from a loaded Policy and source path,
// defaulting any unset V10 classifier to DefaultClassifiers's entry.
func NewContext(pol *policy.Policy, fileName, filePath string) Context {
	ctx := Context{
		CommentaryPatterns:         pol.CommentaryPatterns,
		Classifiers:                map[policy.TrackClass]Classifier{},
		FileName:                   fileName,
		FilePath:                   filePath,
		AudioLanguagePreference:    pol.AudioLanguagePreference,
		SubtitleLanguagePreference: pol.SubtitleLanguagePreference,
	}
	ctx.ConditionContext = condition.Context{CommentaryPatterns: pol.CommentaryPatterns}
	for cls, fn := range DefaultClassifiers {
		ctx.Classifiers[cls] = fn
	}
	return ctx
}

func (c Context) isCommentary(t inspect.Track) bool {
	return condition.IsCommentary(t, c.CommentaryPatterns)
}

func (c Context) classify(cls policy.TrackClass, t inspect.Track, plugins inspect.PluginMetadata) bool {
	fn, ok := c.Classifiers[cls]
	if !ok {
		return false
	}
	return fn(t, plugins)
}

// Plan runs the canonical, fixed per-phase ordering (§4.4 steps 1-8) and
// returns the actions that phase contributes.
func Plan(insp inspect.Inspection, ops policy.Operations, ctx Context) (action.Plan, error) {
	var plan action.Plan

	// 1. container
	if ops.Container != nil {
		plan = append(plan, planContainer(*ops.Container)...)
	}

	// 2. audio/subtitle/attachment filters
	survivingAudio := audioIndexSet(insp)
	survivingSubtitle := subtitleIndexSet(insp)
	survivingAttachment := attachmentIndexSet(insp)

	if ops.AudioFilter != nil {
		kt, err := planAudioFilter(insp, *ops.AudioFilter, ctx)
		if err != nil {
			return plan, err
		}
		plan = append(plan, kt)
		survivingAudio = indicesOf(kt)
	}
	if ops.SubtitleFilter != nil {
		kt := planSubtitleFilter(insp, *ops.SubtitleFilter)
		plan = append(plan, kt)
		survivingSubtitle = indicesOf(kt)
	}
	if ops.AttachmentFilter != nil {
		kt := planAttachmentFilter(insp, *ops.AttachmentFilter)
		plan = append(plan, kt)
		survivingAttachment = indicesOf(kt)
	}

	surviving := survivorSet{audio: survivingAudio, subtitle: survivingSubtitle, attachment: survivingAttachment}

	// 3. track_order
	if len(ops.TrackOrder) > 0 {
		perm := planTrackOrder(insp, ops.TrackOrder, surviving, ctx)
		plan = append(plan, action.ReorderTracks{Permutation: perm})
	}

	// 4. default_flags
	if ops.DefaultFlags != nil {
		plan = append(plan, planDefaultFlags(insp, *ops.DefaultFlags, surviving, ctx, firstOrEmpty(ctx.AudioLanguagePreference), firstOrEmpty(ctx.SubtitleLanguagePreference))...)
	}

	// 5. conditional
	if ops.Conditional != nil {
		actions, err := planConditional(*ops.Conditional, insp, ctx)
		plan = append(plan, actions...)
		if err != nil {
			return plan, err
		}
	}

	// 6. audio_synthesis
	if len(ops.AudioSynthesis) > 0 {
		actions, err := planAudioSynthesis(insp, ops.AudioSynthesis, surviving.audio, ctx)
		plan = append(plan, actions...)
		if err != nil {
			return plan, err
		}
	}

	// 7. transcode (video then audio)
	if ops.Transcode != nil {
		plan = append(plan, planTranscode(insp, *ops.Transcode, surviving.audio)...)
	}

	// 8. transcription: internal markers only, never external mutation.
	if ops.Transcription != nil && ops.Transcription.Enabled {
		plan = append(plan, action.Warn{MessageTemplate: "transcription requested for {filename} (language " + ops.Transcription.Language + ")"})
	}

	return plan, nil
}

// survivorSet tracks which source indices, per kind, survived filtering so
// far this phase — later steps (track_order, default_flags, synthesis,
// transcode) only operate over surviving tracks.
type survivorSet struct {
	audio      map[int]struct{}
	subtitle   map[int]struct{}
	attachment map[int]struct{}
}

func indicesOf(kt action.KeepTracks) map[int]struct{} {
	return kt.Indices
}

func audioIndexSet(insp inspect.Inspection) map[int]struct{} {
	return kindIndexSet(insp, inspect.Audio)
}
func subtitleIndexSet(insp inspect.Inspection) map[int]struct{} {
	return kindIndexSet(insp, inspect.Subtitle)
}
func attachmentIndexSet(insp inspect.Inspection) map[int]struct{} {
	return kindIndexSet(insp, inspect.Attachment)
}

func kindIndexSet(insp inspect.Inspection, kind inspect.TrackKind) map[int]struct{} {
	set := map[int]struct{}{}
	for _, t := range insp.TracksOf(kind) {
		set[t.Index] = struct{}{}
	}
	return set
}

// firstOrEmpty returns a preference list's earliest entry, or "" if the
// policy declared none (§4.4.3's "earliest entry" inputs).
func firstOrEmpty(prefs []string) string {
	if len(prefs) == 0 {
		return ""
	}
	return prefs[0]
}

func planContainer(c policy.Container) action.Plan {
	return action.Plan{action.ConvertContainer{
		Target:           c.Target,
		OnIncompatible:   c.OnIncompatible,
		PreserveMetadata: c.PreserveMetadata,
	}}
}

// errFail builds a policyerr.PlanFailure for a policy-issued `Fail` action.
func errFail(message, rule string) error {
	return &policyerr.PlanFailure{Kind: policyerr.FailurePolicyIssued, Message: message, Rule: rule}
}
