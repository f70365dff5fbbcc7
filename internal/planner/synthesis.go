// Copyright (c) 2025 vpo authors
// SPDX-License-Identifier: MIT

package planner

import (
	"strconv"
	"strings"

	"github.com/vpoeng/vpo/internal/action"
	"github.com/vpoeng/vpo/internal/condition"
	"github.com/vpoeng/vpo/internal/inspect"
	"github.com/vpoeng/vpo/internal/policy"
)

// planAudioSynthesis implements §4.4.5.
func planAudioSynthesis(insp inspect.Inspection, specs []policy.SynthesisSpec, survivingAudio map[int]struct{}, ctx Context) (action.Plan, error) {
	var plan action.Plan

	survivors := make([]inspect.Track, 0, len(survivingAudio))
	for _, t := range insp.TracksOf(inspect.Audio) {
		if _, ok := survivingAudio[t.Index]; ok {
			survivors = append(survivors, t)
		}
	}

	for _, spec := range specs {
		if spec.CreateIf != nil {
			ok, err := condition.Evaluate(spec.CreateIf, insp, ctx.ConditionContext)
			if err != nil {
				return plan, err
			}
			if !ok {
				continue
			}
		}

		if spec.SkipIfExists != nil && skipSynthesisExists(survivors, *spec.SkipIfExists, ctx) {
			continue
		}

		source := selectSynthesisSource(survivors, spec.SourcePrefer, ctx)
		if source == nil {
			continue
		}

		trackSpec := spec.Track
		if trackSpec.Title == "inherit" {
			trackSpec.Title = source.Title
		}
		if trackSpec.Language == "inherit" {
			trackSpec.Language = source.Language
		}

		plan = append(plan, action.CreateSynthesizedTrack{Spec: trackSpec, SourceIndex: source.Index})
	}

	return plan, nil
}

func skipSynthesisExists(survivors []inspect.Track, skip policy.SkipIfExists, ctx Context) bool {
	for _, t := range survivors {
		if skip.Codec != nil && !strings.EqualFold(t.Codec, *skip.Codec) {
			continue
		}
		if skip.Language != nil && t.Language != *skip.Language {
			continue
		}
		if skip.Channels != nil && !skip.Channels.Match(t.Channels) {
			continue
		}
		if skip.NotCommentary != nil && *skip.NotCommentary && ctx.isCommentary(t) {
			continue
		}
		return true
	}
	return false
}

func selectSynthesisSource(survivors []inspect.Track, prefer []policy.SourceCriterion, ctx Context) *inspect.Track {
	for _, t := range survivors {
		if matchesSourcePrefer(t, prefer, ctx) {
			tt := t
			return &tt
		}
	}
	return nil
}

func matchesSourcePrefer(t inspect.Track, prefer []policy.SourceCriterion, ctx Context) bool {
	for _, c := range prefer {
		if c.Language != nil && t.Language != *c.Language {
			return false
		}
		if c.Codec != nil && !strings.EqualFold(t.Codec, *c.Codec) {
			return false
		}
		if c.NotCommentary && ctx.isCommentary(t) {
			return false
		}
		if c.Channels != nil && !c.Channels.Match(t.Channels) {
			return false
		}
	}
	return true
}

// ResolveSynthesisPosition converts a position string ("end",
// "after_source", or a non-negative numeric index) into an insertion index
// among surviving audio tracks; used by the phase executor's virtual view
// when materializing a CreateSynthesizedTrack as a pseudo-track.
func ResolveSynthesisPosition(position string, sourceIndex int, survivorOrder []int) int {
	switch position {
	case "", "end":
		return len(survivorOrder)
	case "after_source":
		for i, idx := range survivorOrder {
			if idx == sourceIndex {
				return i + 1
			}
		}
		return len(survivorOrder)
	default:
		if n, err := strconv.Atoi(position); err == nil && n >= 0 {
			return n
		}
		return len(survivorOrder)
	}
}
