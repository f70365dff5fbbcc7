// Copyright (c) 2025 vpo authors
// SPDX-License-Identifier: MIT

package planner

import (
	"github.com/vpoeng/vpo/internal/action"
	"github.com/vpoeng/vpo/internal/inspect"
	"github.com/vpoeng/vpo/internal/policy"
	"github.com/vpoeng/vpo/internal/policyerr"
)

// planAudioFilter implements §4.4.1's audio language filtering, including
// the always-keep V10-class set and the empty-result fallback.
func planAudioFilter(insp inspect.Inspection, f policy.AudioFilter, ctx Context) (action.KeepTracks, error) {
	audio := insp.TracksOf(inspect.Audio)

	alwaysKeep := map[int]struct{}{}
	for cls, opt := range f.Classes {
		if !opt.Keep {
			continue
		}
		if !opt.ExcludeFromLanguageFilter {
			continue
		}
		for _, t := range audio {
			if ctx.classify(cls, t, insp.Plugins) {
				alwaysKeep[t.Index] = struct{}{}
			}
		}
	}

	kept := map[int]struct{}{}
	for idx := range alwaysKeep {
		kept[idx] = struct{}{}
	}
	for _, t := range audio {
		if len(f.Languages) == 0 || matchesAnyLanguagePref(t.Language, f.Languages) {
			kept[t.Index] = struct{}{}
		}
	}

	minimum := f.Minimum
	if minimum == 0 {
		minimum = 1
	}

	if len(audio) > 0 && len(kept) < minimum {
		fallbackKept, err := applyAudioFallback(insp, audio, f.Fallback, kept)
		if err != nil {
			return action.KeepTracks{}, err
		}
		kept = fallbackKept
	}

	indices := make([]int, 0, len(kept))
	for idx := range kept {
		indices = append(indices, idx)
	}
	return action.NewKeepTracks(inspect.Audio, indices), nil
}

func applyAudioFallback(insp inspect.Inspection, audio []inspect.Track, fb *policy.Fallback, kept map[int]struct{}) (map[int]struct{}, error) {
	if fb == nil {
		return kept, nil
	}
	switch fb.Mode {
	case policy.FallbackContentLanguage:
		content := contentLanguage(insp, audio)
		out := map[int]struct{}{}
		for idx := range kept {
			out[idx] = struct{}{}
		}
		for _, t := range audio {
			if t.Language == content {
				out[t.Index] = struct{}{}
			}
		}
		return out, nil
	case policy.FallbackKeepAll:
		out := map[int]struct{}{}
		for _, t := range audio {
			out[t.Index] = struct{}{}
		}
		return out, nil
	case policy.FallbackKeepFirst:
		out := map[int]struct{}{}
		for idx := range kept {
			out[idx] = struct{}{}
		}
		if len(audio) > 0 {
			out[audio[0].Index] = struct{}{}
		}
		return out, nil
	case policy.FallbackError:
		return nil, &policyerr.PlanFailure{Kind: policyerr.FailureUnsatisfiableFilter, Message: "audio language filter produced an empty result and fallback.mode=error"}
	default:
		return kept, nil
	}
}

// contentLanguage resolves the file's primary content language: container
// metadata if declared, else the most-common language among audio tracks.
func contentLanguage(insp inspect.Inspection, audio []inspect.Track) string {
	if v, ok := insp.File.MetadataField("content_language"); ok && v != "" {
		return v
	}
	counts := map[string]int{}
	best, bestN := "", -1
	for _, t := range audio {
		if t.Language == "" || t.Language == inspect.UndeterminedLanguage {
			continue
		}
		counts[t.Language]++
		if counts[t.Language] > bestN {
			best, bestN = t.Language, counts[t.Language]
		}
	}
	return best
}

func matchesAnyLanguagePref(actual string, prefs []string) bool {
	for _, p := range prefs {
		if p == actual {
			return true
		}
	}
	return false
}

// planSubtitleFilter implements §4.4.1's subtitle filtering.
func planSubtitleFilter(insp inspect.Inspection, f policy.SubtitleFilter) action.KeepTracks {
	if f.RemoveAll {
		return action.NewKeepTracks(inspect.Subtitle, nil)
	}
	kept := map[int]struct{}{}
	for _, t := range insp.TracksOf(inspect.Subtitle) {
		if len(f.Languages) == 0 || matchesAnyLanguagePref(t.Language, f.Languages) {
			kept[t.Index] = struct{}{}
		}
		if f.PreserveForced && t.IsForced {
			kept[t.Index] = struct{}{}
		}
	}
	indices := make([]int, 0, len(kept))
	for idx := range kept {
		indices = append(indices, idx)
	}
	return action.NewKeepTracks(inspect.Subtitle, indices)
}

// planAttachmentFilter implements §4.4.1's attachment filtering.
func planAttachmentFilter(insp inspect.Inspection, f policy.AttachmentFilter) action.KeepTracks {
	if f.RemoveAll {
		return action.NewKeepTracks(inspect.Attachment, nil)
	}
	var indices []int
	for _, t := range insp.TracksOf(inspect.Attachment) {
		indices = append(indices, t.Index)
	}
	return action.NewKeepTracks(inspect.Attachment, indices)
}
