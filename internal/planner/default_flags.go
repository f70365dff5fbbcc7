// Copyright (c) 2025 vpo authors
// SPDX-License-Identifier: MIT

package planner

import (
	"strings"

	"github.com/vpoeng/vpo/internal/action"
	"github.com/vpoeng/vpo/internal/inspect"
	"github.com/vpoeng/vpo/internal/policy"
)

// planDefaultFlags implements §4.4.3 against the current (post-reorder,
// virtual) inspection. Only set_first_video_default is diffed: it emits an
// action only for a video track whose flag changes. The preferred
// audio/subtitle defaults, clear_other_defaults and the audio-differs
// subtitle actions are emitted whenever a track is chosen, whether or not
// the flag already has that value.
func planDefaultFlags(insp inspect.Inspection, f policy.DefaultFlags, surv survivorSet, ctx Context, audioLangPref, subtitleLangPref string) action.Plan {
	var plan action.Plan

	if f.SetFirstVideoDefault {
		videos := insp.TracksOf(inspect.Video)
		for i, t := range videos {
			want := i == 0
			if t.IsDefault != want {
				plan = append(plan, action.SetDefault{TrackKind: inspect.Video, Value: want})
			}
		}
	}

	// SetDefault only targets by track_kind + optional language, never a
	// single track index, so picking "the preferred track" is expressed as
	// clear-then-set: a language-less Value=false first, then a
	// language-scoped Value=true for the chosen track's language. The
	// executor applies actions in order, so the scoped true wins.
	var chosenAudio *inspect.Track
	if f.SetPreferredAudioDefault {
		for _, t := range insp.TracksOf(inspect.Audio) {
			if !survives(surv, t) {
				continue
			}
			if audioLangPref != "" && t.Language != audioLangPref {
				continue
			}
			if len(f.PreferredAudioCodec) > 0 && !containsFold(f.PreferredAudioCodec, t.Codec) {
				continue
			}
			tt := t
			chosenAudio = &tt
			break
		}
		if chosenAudio != nil {
			if f.ClearOtherDefaults {
				plan = append(plan, action.SetDefault{TrackKind: inspect.Audio, Value: false})
			}
			plan = append(plan, action.SetDefault{TrackKind: inspect.Audio, Language: &chosenAudio.Language, Value: true})
		}
	}

	var chosenSubtitle *inspect.Track
	if f.SetPreferredSubtitleDefault {
		for _, t := range insp.TracksOf(inspect.Subtitle) {
			if !survives(surv, t) {
				continue
			}
			if subtitleLangPref != "" && t.Language != subtitleLangPref {
				continue
			}
			tt := t
			chosenSubtitle = &tt
			break
		}
		if chosenSubtitle != nil {
			if f.ClearOtherDefaults {
				plan = append(plan, action.SetDefault{TrackKind: inspect.Subtitle, Value: false})
			}
			plan = append(plan, action.SetDefault{TrackKind: inspect.Subtitle, Language: &chosenSubtitle.Language, Value: true})
		}
	}

	content := contentLanguage(insp, insp.TracksOf(inspect.Audio))
	audioDiffers := chosenAudio != nil && chosenAudio.Language != content

	if f.SetSubtitleDefaultWhenAudioDiffers && audioDiffers {
		if match := firstMatchingSubtitle(insp, surv, content); match != nil {
			plan = append(plan, action.SetDefault{TrackKind: inspect.Subtitle, Language: &match.Language, Value: true})
		}
	}
	if f.SetSubtitleForcedWhenAudioDiffers && audioDiffers {
		if match := firstMatchingSubtitle(insp, surv, content); match != nil {
			plan = append(plan, action.SetForced{TrackKind: inspect.Subtitle, Language: &match.Language, Value: true})
		}
	}

	return plan
}

func firstMatchingSubtitle(insp inspect.Inspection, surv survivorSet, language string) *inspect.Track {
	for _, t := range insp.TracksOf(inspect.Subtitle) {
		if !survives(surv, t) {
			continue
		}
		if t.Language == language {
			tt := t
			return &tt
		}
	}
	return nil
}

func containsFold(list []string, codec string) bool {
	for _, c := range list {
		if strings.EqualFold(c, codec) {
			return true
		}
	}
	return false
}
