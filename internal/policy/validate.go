// Copyright (c) 2025 vpo authors
// SPDX-License-Identifier: MIT

package policy

import (
	"fmt"

	"github.com/vpoeng/vpo/internal/condition"
	"github.com/vpoeng/vpo/internal/policyerr"
)

var validTrackCategories = map[TrackCategory]bool{
	CategoryVideo:              true,
	CategoryAudioMain:          true,
	CategoryAudioAlternate:     true,
	CategoryAudioCommentary:    true,
	CategorySubtitleMain:       true,
	CategorySubtitleForced:     true,
	CategorySubtitleCommentary: true,
	CategoryAttachment:         true,
}

// validate applies §4.1 step 4's structural/semantic rules to the fully
// decoded latest-shape Policy.
func validate(p *Policy) error {
	for _, lang := range append(append([]string{}, p.AudioLanguagePreference...), p.SubtitleLanguagePreference...) {
		if !languageCodePattern.MatchString(lang) {
			return &policyerr.SemanticError{Path: "$", Reason: fmt.Sprintf("language code %q must match ^[a-z]{2,3}$", lang)}
		}
	}

	for pi, phase := range p.Phases {
		path := fmt.Sprintf("$.phases[%d]", pi)

		for _, lang := range phaseLanguages(phase.Ops) {
			if !languageCodePattern.MatchString(lang) {
				return &policyerr.SemanticError{Path: path, Reason: fmt.Sprintf("language code %q must match ^[a-z]{2,3}$", lang)}
			}
		}

		for _, cat := range phase.Ops.TrackOrder {
			if !validTrackCategories[cat] {
				return &policyerr.SemanticError{Path: path + ".track_order", Reason: fmt.Sprintf("unknown track_order category %q", cat)}
			}
		}

		if rs := phase.Ops.Conditional; rs != nil {
			for ri, rule := range rs.Items {
				if err := condition.ValidateNesting(rule.When, 0, fmt.Sprintf("%s.conditional.items[%d].when", path, ri)); err != nil {
					return err
				}
			}
		}

		for si, spec := range phase.Ops.AudioSynthesis {
			if spec.CreateIf != nil {
				if err := condition.ValidateNesting(spec.CreateIf, 0, fmt.Sprintf("%s.audio_synthesis[%d].create_if", path, si)); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// phaseLanguages collects every language code a phase's operations declare,
// for the §4.1 "language codes match ^[a-z]{2,3}$" rule.
func phaseLanguages(ops Operations) []string {
	var out []string
	if ops.AudioFilter != nil {
		out = append(out, ops.AudioFilter.Languages...)
	}
	if ops.SubtitleFilter != nil {
		out = append(out, ops.SubtitleFilter.Languages...)
	}
	return out
}
