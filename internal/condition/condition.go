// Copyright (c) 2025 vpo authors
// SPDX-License-Identifier: MIT

package condition

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vpoeng/vpo/internal/inspect"
	"github.com/vpoeng/vpo/internal/policyerr"
)

// MetaOp is the operator set for PluginMetadata/ContainerMetadata
// conditions (§3.3, §4.3).
type MetaOp string

const (
	MetaEq       MetaOp = "eq"
	MetaNeq      MetaOp = "neq"
	MetaContains MetaOp = "contains"
	MetaExists   MetaOp = "exists"
	MetaLt       MetaOp = "lt"
	MetaLte      MetaOp = "lte"
	MetaGt       MetaOp = "gt"
	MetaGte      MetaOp = "gte"
)

// Condition is the sealed interface every condition AST node implements.
// Go has no native sum types, so exhaustiveness is enforced by a single tag
// field (Kind()) and a type-dispatching switch in Evaluate — every new
// variant must be added to that switch (§9 "tagged variants").
type Condition interface {
	Kind() string
}

// Exists is true iff at least one track of TrackKind matches Filters.
type Exists struct {
	TrackKind inspect.TrackKind
	Filters   TrackFilters
}

func (Exists) Kind() string { return "exists" }

// Count compares the number of matching tracks against Value using Op.
type Count struct {
	TrackKind inspect.TrackKind
	Filters   TrackFilters
	Op        CompareOp
	Value     int
}

func (Count) Kind() string { return "count" }

// And is true iff every child is true (short-circuits in declared order).
type And struct{ Children []Condition }

func (And) Kind() string { return "and" }

// Or is true iff any child is true (short-circuits in declared order).
type Or struct{ Children []Condition }

func (Or) Kind() string { return "or" }

// Not negates Child.
type Not struct{ Child Condition }

func (Not) Kind() string { return "not" }

// AudioIsMultiLanguage implements §4.3's multi-language detection.
type AudioIsMultiLanguage struct {
	TrackIndex      *int // restrict to a single audio track's "siblings"? spec treats as filter scope
	Threshold       float64
	PrimaryLanguage *string
}

func (AudioIsMultiLanguage) Kind() string { return "audio_is_multi_language" }

// DefaultMultiLanguageThreshold is applied when Threshold is zero-valued and
// the policy loader did not set an explicit value.
const DefaultMultiLanguageThreshold = 0.05

// IsOriginal / IsDubbed require plugin-sourced confidence scores.
type IsOriginal struct {
	Value         bool
	MinConfidence float64
	Language      *string
}

func (IsOriginal) Kind() string { return "is_original" }

// DefaultMinConfidence is applied when MinConfidence is zero-valued.
const DefaultMinConfidence = 0.7

type IsDubbed struct {
	Value         bool
	MinConfidence float64
	Language      *string
}

func (IsDubbed) Kind() string { return "is_dubbed" }

// PluginMetadata queries plugin.field with the given operator.
type PluginMetadata struct {
	Plugin string
	Field  string
	Op     MetaOp
	Value  any // absent (nil) iff Op == MetaExists
}

func (PluginMetadata) Kind() string { return "plugin_metadata" }

// ContainerMetadata queries a container-level tag with the given operator.
type ContainerMetadata struct {
	Field string
	Op    MetaOp
	Value any
}

func (ContainerMetadata) Kind() string { return "container_metadata" }

// MaxNestingDepth is the bound enforced at policy load time (§3.3): boolean
// composites may nest at most two levels deep.
const MaxNestingDepth = 2

// ValidateNesting walks the And/Or/Not tree and rejects depth > MaxNestingDepth.
// This must run at policy load, never at evaluation time (§4.1 step 4,
// testable property #7).
func ValidateNesting(c Condition, depth int, path string) error {
	if depth > MaxNestingDepth {
		return &policyerr.SemanticError{Path: path, Reason: fmt.Sprintf("boolean nesting exceeds maximum depth %d", MaxNestingDepth)}
	}
	switch v := c.(type) {
	case And:
		for i, child := range v.Children {
			if err := ValidateNesting(child, depth+1, fmt.Sprintf("%s.children[%d]", path, i)); err != nil {
				return err
			}
		}
	case Or:
		for i, child := range v.Children {
			if err := ValidateNesting(child, depth+1, fmt.Sprintf("%s.children[%d]", path, i)); err != nil {
				return err
			}
		}
	case Not:
		if err := ValidateNesting(v.Child, depth+1, path+".child"); err != nil {
			return err
		}
	}
	return nil
}

// Context supplies the evaluator with state that isn't part of the
// Inspection itself: the policy's compiled commentary patterns (needed to
// classify commentary tracks for filters/conditions).
type Context struct {
	CommentaryPatterns []CommentaryPattern
}

// Evaluate is the pure function evaluate(cond, inspection) -> bool from
// §4.3. It never performs I/O and never mutates insp.
func Evaluate(c Condition, insp inspect.Inspection, ctx Context) (bool, error) {
	switch v := c.(type) {
	case Exists:
		return evalExists(v, insp, ctx), nil
	case Count:
		return evalCount(v, insp, ctx), nil
	case And:
		for _, child := range v.Children {
			ok, err := Evaluate(child, insp, ctx)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	case Or:
		for _, child := range v.Children {
			ok, err := Evaluate(child, insp, ctx)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case Not:
		ok, err := Evaluate(v.Child, insp, ctx)
		if err != nil {
			return false, err
		}
		return !ok, nil
	case AudioIsMultiLanguage:
		return evalAudioIsMultiLanguage(v, insp), nil
	case IsOriginal:
		return evalOriginality(insp, v.Value, v.MinConfidence, v.Language, false), nil
	case IsDubbed:
		return evalOriginality(insp, v.Value, v.MinConfidence, v.Language, true), nil
	case PluginMetadata:
		val, exists := insp.Plugins.PluginField(v.Plugin, v.Field)
		return evalMetaOp(v.Op, val, exists, v.Value), nil
	case ContainerMetadata:
		val, exists := insp.File.MetadataField(v.Field)
		var cast any
		if exists {
			cast = val
		}
		return evalMetaOp(v.Op, cast, exists, v.Value), nil
	default:
		return false, &policyerr.PlanFailure{Kind: policyerr.FailureInternalConsistency, Message: fmt.Sprintf("condition: unhandled condition kind %q", c.Kind())}
	}
}

func evalExists(e Exists, insp inspect.Inspection, ctx Context) bool {
	for _, t := range insp.TracksOf(e.TrackKind) {
		if e.Filters.Matches(t, IsCommentary(t, ctx.CommentaryPatterns)) {
			return true
		}
	}
	return false
}

func evalCount(c Count, insp inspect.Inspection, ctx Context) bool {
	n := 0
	for _, t := range insp.TracksOf(c.TrackKind) {
		if c.Filters.Matches(t, IsCommentary(t, ctx.CommentaryPatterns)) {
			n++
		}
	}
	return NumericFilter{Op: c.Op, Value: c.Value}.Match(n)
}

func evalAudioIsMultiLanguage(cond AudioIsMultiLanguage, insp inspect.Inspection) bool {
	audio := insp.TracksOf(inspect.Audio)
	if cond.TrackIndex != nil {
		filtered := audio[:0:0]
		for _, t := range audio {
			if t.Index == *cond.TrackIndex {
				filtered = append(filtered, t)
			}
		}
		audio = filtered
	}

	counts := map[string]int{}
	total := 0
	for _, t := range audio {
		if t.Language == inspect.UndeterminedLanguage || t.Language == "" {
			continue
		}
		counts[t.Language]++
		total++
	}
	if total == 0 || len(counts) < 2 {
		return false
	}

	threshold := cond.Threshold
	if threshold == 0 {
		threshold = DefaultMultiLanguageThreshold
	}

	least := 1.0
	mostLang := ""
	mostCount := -1
	for lang, n := range counts {
		share := float64(n) / float64(total)
		if share < least {
			least = share
		}
		if n > mostCount {
			mostCount = n
			mostLang = lang
		}
	}
	if least < threshold {
		return false
	}
	if cond.PrimaryLanguage != nil && *cond.PrimaryLanguage != mostLang {
		return false
	}
	return true
}

func evalOriginality(insp inspect.Inspection, want bool, minConfidence float64, lang *string, dubbed bool) bool {
	if minConfidence == 0 {
		minConfidence = DefaultMinConfidence
	}
	for _, t := range insp.Tracks {
		conf := t.Original
		if dubbed {
			conf = t.Dubbed
		}
		if conf == nil {
			continue
		}
		if lang != nil {
			// restricted to tracks tagged with that language (any-match)
			if t.Language != *lang && conf.Language != *lang {
				continue
			}
		}
		if conf.Score >= minConfidence && conf.Value == want {
			return true
		}
	}
	return false
}

func evalMetaOp(op MetaOp, actual any, exists bool, want any) bool {
	if op == MetaExists {
		return exists
	}
	if !exists {
		return false
	}
	switch op {
	case MetaEq, MetaNeq:
		an, aok := toFloat(actual)
		wn, wok := toFloat(want)
		var eq bool
		if aok && wok {
			eq = an == wn
		} else {
			eq = toStr(actual) == toStr(want)
		}
		if op == MetaEq {
			return eq
		}
		return !eq
	case MetaContains:
		return strings.Contains(strings.ToLower(toStr(actual)), strings.ToLower(toStr(want)))
	case MetaLt, MetaLte, MetaGt, MetaGte:
		an, aok := toFloat(actual)
		wn, wok := toFloat(want)
		if !aok || !wok {
			return false
		}
		switch op {
		case MetaLt:
			return an < wn
		case MetaLte:
			return an <= wn
		case MetaGt:
			return an > wn
		case MetaGte:
			return an >= wn
		}
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func toStr(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", s)
	}
}
