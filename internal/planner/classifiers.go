// Copyright (c) 2025 vpo authors
// SPDX-License-Identifier: MIT

package planner

import (
	"strings"

	"github.com/vpoeng/vpo/internal/inspect"
	"github.com/vpoeng/vpo/internal/policy"
)

// titleHeuristics are the conservative, documented fallback signals used
// when no plugin classifies a track (§9 open question: "implementations
// should accept an explicit classifier function and fall back to a
// conservative 'all false' default" — this table is that accepted
// fallback, kept intentionally small and literal rather than inferring
// new categories from arbitrary text).
var titleHeuristics = map[policy.TrackClass][]string{
	policy.ClassMusic:     {"music only", "score", "soundtrack"},
	policy.ClassSFX:       {"sfx", "effects only"},
	policy.ClassNonSpeech: {"non-speech", "non speech"},
}

// DefaultClassifiers implements the spec's accepted fallback: prefer a
// plugin-sourced verdict at plugins["classifier"][<class>], and only look
// at the track title when no plugin signal exists.
var DefaultClassifiers = map[policy.TrackClass]Classifier{
	policy.ClassMusic:     classifierFor(policy.ClassMusic),
	policy.ClassSFX:       classifierFor(policy.ClassSFX),
	policy.ClassNonSpeech: classifierFor(policy.ClassNonSpeech),
}

func classifierFor(cls policy.TrackClass) Classifier {
	return func(t inspect.Track, plugins inspect.PluginMetadata) bool {
		if v, ok := plugins.PluginField("classifier", string(cls)); ok {
			if b, ok := v.(bool); ok {
				return b
			}
		}
		title := strings.ToLower(t.Title)
		for _, needle := range titleHeuristics[cls] {
			if strings.Contains(title, needle) {
				return true
			}
		}
		return false
	}
}
