// Copyright (c) 2025 vpo authors
// SPDX-License-Identifier: MIT

// Package condition implements the pure, synchronous Condition Evaluator
// (spec §3.3/§4.2/§4.3): evaluating a Condition AST node against a Track
// Filter predicate or a whole Inspection never performs I/O and never
// mutates its inputs.
package condition

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/vpoeng/vpo/internal/inspect"
)

// CompareOp is the operator set for numeric field comparisons.
type CompareOp string

const (
	OpEq  CompareOp = "eq"
	OpNeq CompareOp = "neq"
	OpLt  CompareOp = "lt"
	OpLte CompareOp = "lte"
	OpGt  CompareOp = "gt"
	OpGte CompareOp = "gte"
)

// NumericFilter compares an integer track field against a value.
type NumericFilter struct {
	Op    CompareOp
	Value int
}

// Match reports whether actual satisfies the comparison.
func (f NumericFilter) Match(actual int) bool {
	switch f.Op {
	case OpEq:
		return actual == f.Value
	case OpNeq:
		return actual != f.Value
	case OpLt:
		return actual < f.Value
	case OpLte:
		return actual <= f.Value
	case OpGt:
		return actual > f.Value
	case OpGte:
		return actual >= f.Value
	default:
		return false
	}
}

// TitleFilter matches a track title either by case-insensitive substring or
// by a (not auto-anchored) regex — spec §4.2, §9 open question resolved in
// favor of "not anchored, documented explicitly".
type TitleFilter struct {
	Contains string         // set iff mode is substring
	HasRegex bool           // set iff mode is regex
	Regex    *regexp.Regexp // compiled at policy-load time; evaluator never compiles
}

var titleFolder = cases.Fold()

// Match performs Unicode case-folding + NFC normalization before substring
// comparison so combining marks are never split mid-grapheme, per §4.2.
func (f TitleFilter) Match(title string) bool {
	if f.HasRegex {
		if f.Regex == nil {
			return false
		}
		return f.Regex.MatchString(title)
	}
	folded := titleFolder.String(norm.NFC.String(title))
	needle := titleFolder.String(norm.NFC.String(f.Contains))
	return strings.Contains(folded, needle)
}

// TrackFilters is the conjunctive predicate set over a candidate track
// (§3.3 "TrackFilters"). Every non-nil/non-empty field must hold; unset
// fields are vacuously true.
type TrackFilters struct {
	Language      []string // match any; always compared lowercase
	Codec         []string // match any; always compared lowercase
	IsDefault     *bool
	IsForced      *bool
	NotCommentary bool
	Channels      *NumericFilter
	Width         *NumericFilter
	Height        *NumericFilter
	Title         *TitleFilter
}

// Matches reports whether track t satisfies every set predicate in f.
// isCommentary is supplied by the caller (computed via commentary-pattern
// matching, which needs the owning policy's commentary_patterns — see
// IsCommentary in commentary.go) so this function stays a pure function of
// (filters, track).
func (f TrackFilters) Matches(t inspect.Track, isCommentary bool) bool {
	if len(f.Language) > 0 && !matchesAnyLanguage(t.Language, f.Language) {
		return false
	}
	if len(f.Codec) > 0 && !matchesAnyCodec(t.Codec, f.Codec) {
		return false
	}
	if f.IsDefault != nil && t.IsDefault != *f.IsDefault {
		return false
	}
	if f.IsForced != nil && t.IsForced != *f.IsForced {
		return false
	}
	if f.NotCommentary && isCommentary {
		return false
	}
	if f.Channels != nil {
		if t.Kind != inspect.Audio {
			return false
		}
		if !f.Channels.Match(t.Channels) {
			return false
		}
	}
	if f.Width != nil {
		if t.Kind != inspect.Video || !f.Width.Match(t.Width) {
			return false
		}
	}
	if f.Height != nil {
		if t.Kind != inspect.Video || !f.Height.Match(t.Height) {
			return false
		}
	}
	if f.Title != nil && !f.Title.Match(t.Title) {
		return false
	}
	return true
}

func matchesAnyLanguage(actual string, candidates []string) bool {
	actual = strings.ToLower(actual)
	for _, c := range candidates {
		c = strings.ToLower(c)
		if c == inspect.UndeterminedLanguage {
			if actual == inspect.UndeterminedLanguage {
				return true
			}
			continue
		}
		if actual == c {
			return true
		}
	}
	return false
}

func matchesAnyCodec(actual string, candidates []string) bool {
	actual = strings.ToLower(actual)
	for _, c := range candidates {
		if actual == strings.ToLower(c) {
			return true
		}
	}
	return false
}

// normalizeLanguageTag parses code into a language.Tag, returning
// language.Und when it does not parse. Nothing in the repository calls it;
// filter matching compares bare lowercase strings.
func normalizeLanguageTag(code string) language.Tag {
	tag, err := language.Parse(code)
	if err != nil {
		return language.Und
	}
	return tag
}
