// Copyright (c) 2025 vpo authors
// SPDX-License-Identifier: MIT

package planner

import (
	"sort"

	"github.com/vpoeng/vpo/internal/inspect"
	"github.com/vpoeng/vpo/internal/policy"
)

// planTrackOrder implements §4.4.2: for each category in declared order,
// append all surviving tracks matching that category (audio_main/alternate
// split by the policy's audio_language_preference, subtitle_main ranked by
// subtitle_language_preference), then append any uncategorized surviving
// tracks in source order.
func planTrackOrder(insp inspect.Inspection, order []policy.TrackCategory, surv survivorSet, ctx Context) []int {
	// Track.Index is globally unique across the whole Inspection (§3.1), so
	// a single index->placed set is safe to share across categories.
	placed := map[int]struct{}{}
	var result []int

	place := func(t inspect.Track) {
		if _, done := placed[t.Index]; done {
			return
		}
		placed[t.Index] = struct{}{}
		result = append(result, t.Index)
	}

	for _, cat := range order {
		for _, t := range categoryMembers(insp, cat, surv, ctx) {
			place(t)
		}
	}

	// uncategorized surviving tracks, in source order
	for _, t := range insp.Tracks {
		if !survives(surv, t) {
			continue
		}
		place(t)
	}

	return result
}

func survives(surv survivorSet, t inspect.Track) bool {
	var set map[int]struct{}
	switch t.Kind {
	case inspect.Audio:
		set = surv.audio
	case inspect.Subtitle:
		set = surv.subtitle
	case inspect.Attachment:
		set = surv.attachment
	default:
		return true // video is never filtered
	}
	_, ok := set[t.Index]
	return ok
}

func categoryMembers(insp inspect.Inspection, cat policy.TrackCategory, surv survivorSet, ctx Context) []inspect.Track {
	var out []inspect.Track
	switch cat {
	case policy.CategoryVideo:
		out = append(out, insp.TracksOf(inspect.Video)...)
	case policy.CategoryAudioMain, policy.CategoryAudioAlternate, policy.CategoryAudioCommentary:
		primary := firstOrEmpty(ctx.AudioLanguagePreference)
		if primary == "" {
			primary = primaryAudioLanguage(insp)
		}
		for _, t := range insp.TracksOf(inspect.Audio) {
			if !survives(surv, t) {
				continue
			}
			commentary := ctx.isCommentary(t)
			switch cat {
			case policy.CategoryAudioCommentary:
				if commentary {
					out = append(out, t)
				}
			case policy.CategoryAudioMain:
				if !commentary && t.Language == primary {
					out = append(out, t)
				}
			case policy.CategoryAudioAlternate:
				if !commentary && t.Language != primary {
					out = append(out, t)
				}
			}
		}
	case policy.CategorySubtitleMain:
		var members []inspect.Track
		for _, t := range insp.TracksOf(inspect.Subtitle) {
			if !survives(surv, t) {
				continue
			}
			if t.IsForced || ctx.isCommentary(t) {
				continue
			}
			members = append(members, t)
		}
		out = append(out, rankByLanguagePreference(members, ctx.SubtitleLanguagePreference)...)
	case policy.CategorySubtitleForced, policy.CategorySubtitleCommentary:
		for _, t := range insp.TracksOf(inspect.Subtitle) {
			if !survives(surv, t) {
				continue
			}
			commentary := ctx.isCommentary(t)
			switch cat {
			case policy.CategorySubtitleCommentary:
				if commentary {
					out = append(out, t)
				}
			case policy.CategorySubtitleForced:
				if t.IsForced && !commentary {
					out = append(out, t)
				}
			}
		}
	case policy.CategoryAttachment:
		for _, t := range insp.TracksOf(inspect.Attachment) {
			if survives(surv, t) {
				out = append(out, t)
			}
		}
	}
	return out
}

// rankByLanguagePreference stable-sorts members so the track whose language
// has the lowest index in prefs comes first (§4.4.2's "preferring earliest
// language in subtitle_language_preference"); members whose language is
// absent from prefs sort after every ranked one, keeping their relative
// source order (sort.SliceStable), same as when prefs is empty entirely.
func rankByLanguagePreference(members []inspect.Track, prefs []string) []inspect.Track {
	if len(prefs) == 0 || len(members) < 2 {
		return members
	}
	rank := make(map[string]int, len(prefs))
	for i, lang := range prefs {
		if _, exists := rank[lang]; !exists {
			rank[lang] = i
		}
	}
	unranked := len(prefs)
	rankOf := func(t inspect.Track) int {
		if r, ok := rank[t.Language]; ok {
			return r
		}
		return unranked
	}
	out := make([]inspect.Track, len(members))
	copy(out, members)
	sort.SliceStable(out, func(i, j int) bool {
		return rankOf(out[i]) < rankOf(out[j])
	})
	return out
}

// primaryAudioLanguage is the language the spec calls "the first element of
// audio_language_preference" for categorization purposes; absent an
// explicit preference list at categorization time, the most-represented
// audio language is used as a stand-in (mirrors the §4.4.1 fallback
// resolution for "content language").
func primaryAudioLanguage(insp inspect.Inspection) string {
	audio := insp.TracksOf(inspect.Audio)
	return contentLanguage(insp, audio)
}
