// Copyright (c) 2025 vpo authors
// SPDX-License-Identifier: MIT

package planner

import (
	"strconv"
	"strings"

	"github.com/vpoeng/vpo/internal/action"
	"github.com/vpoeng/vpo/internal/inspect"
	"github.com/vpoeng/vpo/internal/policy"
)

// planTranscode implements §4.4.6: video decision first, then per-track
// audio decisions over the surviving audio set.
func planTranscode(insp inspect.Inspection, t policy.Transcode, survivingAudio map[int]struct{}) action.Plan {
	var plan action.Plan

	if t.Video != nil {
		plan = append(plan, planVideoTranscode(insp, *t.Video)...)
	}
	if t.Audio != nil {
		plan = append(plan, planAudioTranscode(insp, *t.Audio, survivingAudio)...)
	}

	return plan
}

func planVideoTranscode(insp inspect.Inspection, v policy.VideoTranscode) action.Plan {
	if v.TargetCodec == "" {
		return nil
	}
	videos := insp.TracksOf(inspect.Video)
	if len(videos) == 0 {
		return nil
	}
	source := videos[0]

	if v.SkipIf != nil && videoSkipFires(source, *v.SkipIf) {
		return action.Plan{action.SkipOperation{OperationKind: action.OpVideoTranscode}}
	}

	return action.Plan{action.TranscodeVideo{
		Codec:                v.TargetCodec,
		Quality:              v.Quality,
		Scaling:              v.Scaling,
		HardwareAcceleration: v.HardwareAcceleration,
	}}
}

// videoSkipFires evaluates the ANDed skip_if sub-conditions (§4.4.6): every
// *configured* sub-condition must hold for skip_if to fire.
func videoSkipFires(source inspect.Track, skip policy.VideoSkipIf) bool {
	fired := false

	if len(skip.CodecMatches) > 0 {
		if !containsFold(skip.CodecMatches, source.Codec) {
			return false
		}
		fired = true
	}
	if skip.ResolutionWithin != nil {
		if source.Width > skip.ResolutionWithin.MaxWidth || source.Height > skip.ResolutionWithin.MaxHeight {
			return false
		}
		fired = true
	}
	if skip.BitrateUnder != "" {
		threshold, ok := parseBitrate(skip.BitrateUnder)
		if !ok || source.Bitrate == nil || *source.Bitrate >= threshold {
			return false
		}
		fired = true
	}

	return fired
}

// parseBitrate parses strings like "5M" or "2500k" into bits/second.
func parseBitrate(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	mult := int64(1)
	switch last := s[len(s)-1]; last {
	case 'k', 'K':
		mult = 1_000
		s = s[:len(s)-1]
	case 'm', 'M':
		mult = 1_000_000
		s = s[:len(s)-1]
	case 'g', 'G':
		mult = 1_000_000_000
		s = s[:len(s)-1]
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n * mult, true
}

func planAudioTranscode(insp inspect.Inspection, a policy.AudioTranscode, survivingAudio map[int]struct{}) action.Plan {
	var plan action.Plan
	for _, t := range insp.TracksOf(inspect.Audio) {
		if _, ok := survivingAudio[t.Index]; !ok {
			continue
		}
		if containsFold(a.PreserveCodecs, t.Codec) {
			continue // stream-copy is implied; emit nothing
		}
		plan = append(plan, action.TranscodeAudio{TrackIndex: t.Index, To: a.To, Bitrate: a.Bitrate})
	}
	return plan
}
