// Copyright (c) 2025 vpo authors
// SPDX-License-Identifier: MIT

package policy

import (
	"fmt"
	"regexp"

	"github.com/vpoeng/vpo/internal/action"
	"github.com/vpoeng/vpo/internal/condition"
	"github.com/vpoeng/vpo/internal/inspect"
	"github.com/vpoeng/vpo/internal/policyerr"
)

// doc wraps a generic tagged mapping (the format-agnostic parse result of
// §4.1 step 1) and tracks which keys were consumed, so the remainder can be
// reported as UnknownFieldWarnings (§4.1 step 5) without ever failing the
// load.
type doc struct {
	path     string
	fields   map[string]any
	consumed map[string]bool
}

func newDoc(path string, fields map[string]any) *doc {
	return &doc{path: path, fields: fields, consumed: map[string]bool{}}
}

func (d *doc) child(key string) *doc {
	d.consumed[key] = true
	v, ok := d.fields[key]
	if !ok {
		return nil
	}
	m, ok := asMap(v)
	if !ok {
		return nil
	}
	return newDoc(d.path+"."+key, m)
}

func (d *doc) rawList(key string) []any {
	d.consumed[key] = true
	v, ok := d.fields[key]
	if !ok {
		return nil
	}
	l, _ := v.([]any)
	return l
}

func (d *doc) childList(key string) []*doc {
	var out []*doc
	for i, item := range d.rawList(key) {
		m, ok := asMap(item)
		if !ok {
			continue
		}
		out = append(out, newDoc(fmt.Sprintf("%s.%s[%d]", d.path, key, i), m))
	}
	return out
}

func (d *doc) str(key string) (string, bool) {
	d.consumed[key] = true
	v, ok := d.fields[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func (d *doc) strList(key string) []string {
	d.consumed[key] = true
	v, ok := d.fields[key]
	if !ok {
		return nil
	}
	if s, ok := v.(string); ok {
		return []string{s}
	}
	l, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(l))
	for _, item := range l {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func (d *doc) boolean(key string, def bool) bool {
	d.consumed[key] = true
	v, ok := d.fields[key]
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}

func (d *doc) boolPtr(key string) *bool {
	d.consumed[key] = true
	v, ok := d.fields[key]
	if !ok {
		return nil
	}
	b, ok := v.(bool)
	if !ok {
		return nil
	}
	return &b
}

func (d *doc) integer(key string, def int) int {
	d.consumed[key] = true
	n, ok := asInt(d.fields[key])
	if !ok {
		return def
	}
	return n
}

func (d *doc) float(key string, def float64) float64 {
	d.consumed[key] = true
	v, ok := d.fields[key]
	if !ok {
		return def
	}
	f, ok := asFloat(v)
	if !ok {
		return def
	}
	return f
}

// warnings reports every field in d.fields not consumed by the decoder,
// recursing is the caller's responsibility (nested docs track their own).
func (d *doc) warnings() []UnknownFieldWarning {
	var out []UnknownFieldWarning
	for k := range d.fields {
		if !d.consumed[k] {
			out = append(out, UnknownFieldWarning{Path: d.path + "." + k})
		}
	}
	return out
}

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// decodeOperations reads every operation field §4.4 names, whether it
// appears inside a phase object (V11+) or at the policy's top level
// (pre-V11, after migrateToPhasesV11 wraps it).
func decodeOperations(d *doc, warnings *[]UnknownFieldWarning) (Operations, error) {
	var ops Operations
	var err error

	if c := d.child("container"); c != nil {
		ops.Container = decodeContainer(c)
		*warnings = append(*warnings, c.warnings()...)
	}
	if c := d.child("audio_filter"); c != nil {
		ops.AudioFilter = decodeAudioFilter(c)
		*warnings = append(*warnings, c.warnings()...)
	}
	if c := d.child("subtitle_filter"); c != nil {
		ops.SubtitleFilter = decodeSubtitleFilter(c)
		*warnings = append(*warnings, c.warnings()...)
	}
	if c := d.child("attachment_filter"); c != nil {
		ops.AttachmentFilter = &AttachmentFilter{RemoveAll: c.boolean("remove_all", false)}
		*warnings = append(*warnings, c.warnings()...)
	}
	for _, cat := range d.strList("track_order") {
		ops.TrackOrder = append(ops.TrackOrder, TrackCategory(cat))
	}
	if c := d.child("default_flags"); c != nil {
		ops.DefaultFlags = decodeDefaultFlags(c)
		*warnings = append(*warnings, c.warnings()...)
	}
	if rs, ok := d.fields["conditional"]; ok {
		d.consumed["conditional"] = true
		ops.Conditional, err = decodeRuleSet(d.path+".conditional", rs, warnings)
		if err != nil {
			return ops, err
		}
	} else if rs, ok := d.fields["rules"]; ok {
		d.consumed["rules"] = true
		ops.Conditional, err = decodeRuleSet(d.path+".rules", rs, warnings)
		if err != nil {
			return ops, err
		}
	}
	for i, sd := range d.childList("audio_synthesis") {
		spec, err := decodeSynthesisSpec(sd)
		if err != nil {
			return ops, err
		}
		*warnings = append(*warnings, sd.warnings()...)
		_ = i
		ops.AudioSynthesis = append(ops.AudioSynthesis, spec)
	}
	if c := d.child("transcode"); c != nil {
		ops.Transcode, err = decodeTranscode(c)
		if err != nil {
			return ops, err
		}
		*warnings = append(*warnings, c.warnings()...)
	}
	if c := d.child("transcription"); c != nil {
		ops.Transcription = &Transcription{
			Enabled:  c.boolean("enabled", true),
			Language: firstOr(c.str("language")),
		}
		*warnings = append(*warnings, c.warnings()...)
	}
	return ops, nil
}

func firstOr(s string, ok bool) string {
	if !ok {
		return ""
	}
	return s
}

func decodeContainer(d *doc) *Container {
	return &Container{
		Target:           firstOr(d.str("target")),
		OnIncompatible:   action.ContainerIncompatibleMode(firstOr(d.str("on_incompatible"))),
		PreserveMetadata: d.boolean("preserve_metadata", true),
	}
}

func decodeAudioFilter(d *doc) *AudioFilter {
	af := &AudioFilter{
		Languages: d.strList("languages"),
		Minimum:   d.integer("minimum", 1),
		Classes:   map[TrackClass]ClassOption{},
	}
	if fb := d.child("fallback"); fb != nil {
		af.Fallback = &Fallback{Mode: FallbackMode(firstOr(fb.str("mode")))}
	}
	for _, cls := range []TrackClass{ClassMusic, ClassSFX, ClassNonSpeech} {
		keepKey := "keep_" + string(cls) + "_tracks"
		excludeKey := "exclude_" + string(cls) + "_from_language_filter"
		if _, present := d.fields[keepKey]; present {
			af.Classes[cls] = ClassOption{
				Keep:                      d.boolean(keepKey, true),
				ExcludeFromLanguageFilter: d.boolean(excludeKey, true),
			}
		} else if _, present := d.fields[excludeKey]; present {
			af.Classes[cls] = ClassOption{
				Keep:                      true,
				ExcludeFromLanguageFilter: d.boolean(excludeKey, true),
			}
		}
	}
	return af
}

func decodeSubtitleFilter(d *doc) *SubtitleFilter {
	return &SubtitleFilter{
		RemoveAll:      d.boolean("remove_all", false),
		Languages:      d.strList("languages"),
		PreserveForced: d.boolean("preserve_forced", false),
	}
}

func decodeDefaultFlags(d *doc) *DefaultFlags {
	return &DefaultFlags{
		SetFirstVideoDefault:               d.boolean("set_first_video_default", false),
		SetPreferredAudioDefault:           d.boolean("set_preferred_audio_default", false),
		SetPreferredSubtitleDefault:        d.boolean("set_preferred_subtitle_default", false),
		SetSubtitleDefaultWhenAudioDiffers: d.boolean("set_subtitle_default_when_audio_differs", false),
		SetSubtitleForcedWhenAudioDiffers:  d.boolean("set_subtitle_forced_when_audio_differs", false),
		ClearOtherDefaults:                 d.boolean("clear_other_defaults", false),
		PreferredAudioCodec:                d.strList("preferred_audio_codec"),
	}
}

// decodeRuleSet accepts both the pre-V13 bare-list shape and the V13
// {match, items} shape directly, since the upgrader (migrate.go) normalizes
// older documents before decodeOperations ever runs; this function stays
// defensive so it tolerates either on any version.
func decodeRuleSet(path string, raw any, warnings *[]UnknownFieldWarning) (*RuleSet, error) {
	switch v := raw.(type) {
	case []any:
		items, err := decodeRules(path, v, warnings)
		if err != nil {
			return nil, err
		}
		return &RuleSet{Match: MatchFirst, Items: items}, nil
	case map[string]any:
		rd := newDoc(path, v)
		match := MatchMode(firstOr(rd.str("match")))
		if match == "" {
			match = MatchFirst
		}
		items, err := decodeRules(path+".items", rd.rawList("items"), warnings)
		if err != nil {
			return nil, err
		}
		*warnings = append(*warnings, rd.warnings()...)
		return &RuleSet{Match: match, Items: items}, nil
	default:
		return nil, &policyerr.StructuralError{Path: path, Expected: "list of rules or {match, items}"}
	}
}

func decodeRules(path string, raw []any, warnings *[]UnknownFieldWarning) ([]Rule, error) {
	rules := make([]Rule, 0, len(raw))
	for i, item := range raw {
		m, ok := asMap(item)
		if !ok {
			return nil, &policyerr.StructuralError{Path: fmt.Sprintf("%s[%d]", path, i), Expected: "rule object"}
		}
		rd := newDoc(fmt.Sprintf("%s[%d]", path, i), m)
		name, _ := rd.str("name")
		whenRaw, hasWhen := rd.fields["when"]
		rd.consumed["when"] = true
		if !hasWhen {
			return nil, &policyerr.StructuralError{Path: rd.path + ".when", Expected: "condition"}
		}
		cond, err := decodeCondition(rd.path+".when", whenRaw, 0)
		if err != nil {
			return nil, err
		}
		then, err := decodeActionList(rd, "then")
		if err != nil {
			return nil, err
		}
		els, err := decodeActionList(rd, "else")
		if err != nil {
			return nil, err
		}
		*warnings = append(*warnings, rd.warnings()...)
		rules = append(rules, Rule{Name: name, When: cond, Then: then, Else: els})
	}
	return rules, nil
}

// decodeCondition walks the Condition AST shape {type, ...fields}.
func decodeCondition(path string, raw any, depth int) (condition.Condition, error) {
	m, ok := asMap(raw)
	if !ok {
		return nil, &policyerr.StructuralError{Path: path, Expected: "condition object"}
	}
	cd := newDoc(path, m)
	kind, _ := cd.str("type")
	switch kind {
	case "exists", "count":
		trackKind, _ := cd.str("track_kind")
		filters := decodeTrackFilters(cd.child("filters"))
		if kind == "exists" {
			return condition.Exists{TrackKind: inspectTrackKindOf(trackKind), Filters: filters}, nil
		}
		op := condition.CompareOp(firstOr(cd.str("op")))
		return condition.Count{TrackKind: inspectTrackKindOf(trackKind), Filters: filters, Op: op, Value: cd.integer("value", 0)}, nil
	case "and", "or":
		children := cd.rawList("children")
		out := make([]condition.Condition, 0, len(children))
		for i, c := range children {
			child, err := decodeCondition(fmt.Sprintf("%s.children[%d]", path, i), c, depth+1)
			if err != nil {
				return nil, err
			}
			out = append(out, child)
		}
		if kind == "and" {
			return condition.And{Children: out}, nil
		}
		return condition.Or{Children: out}, nil
	case "not":
		child, ok := cd.fields["child"]
		cd.consumed["child"] = true
		if !ok {
			return nil, &policyerr.StructuralError{Path: path + ".child", Expected: "condition"}
		}
		c, err := decodeCondition(path+".child", child, depth+1)
		if err != nil {
			return nil, err
		}
		return condition.Not{Child: c}, nil
	case "audio_is_multi_language":
		var trackIndex *int
		if n, ok := asInt(cd.fields["track_index"]); ok {
			trackIndex = &n
		}
		cd.consumed["track_index"] = true
		var primary *string
		if s, ok := cd.str("primary_language"); ok {
			primary = &s
		}
		return condition.AudioIsMultiLanguage{
			TrackIndex:      trackIndex,
			Threshold:       cd.float("threshold", condition.DefaultMultiLanguageThreshold),
			PrimaryLanguage: primary,
		}, nil
	case "is_original", "is_dubbed":
		var lang *string
		if s, ok := cd.str("language"); ok {
			lang = &s
		}
		if kind == "is_original" {
			return condition.IsOriginal{Value: cd.boolean("value", true), MinConfidence: cd.float("min_confidence", condition.DefaultMinConfidence), Language: lang}, nil
		}
		return condition.IsDubbed{Value: cd.boolean("value", true), MinConfidence: cd.float("min_confidence", condition.DefaultMinConfidence), Language: lang}, nil
	case "plugin_metadata":
		plugin, _ := cd.str("plugin")
		field, _ := cd.str("field")
		op := condition.MetaOp(firstOr(cd.str("op")))
		val := cd.fields["value"]
		cd.consumed["value"] = true
		return condition.PluginMetadata{Plugin: plugin, Field: field, Op: op, Value: val}, nil
	case "container_metadata":
		field, _ := cd.str("field")
		op := condition.MetaOp(firstOr(cd.str("op")))
		val := cd.fields["value"]
		cd.consumed["value"] = true
		return condition.ContainerMetadata{Field: field, Op: op, Value: val}, nil
	default:
		return nil, &policyerr.StructuralError{Path: path + ".type", Expected: "a known condition type"}
	}
}

func inspectTrackKindOf(s string) inspect.TrackKind {
	return inspect.TrackKind(s)
}

func decodeTrackFilters(d *doc) condition.TrackFilters {
	if d == nil {
		return condition.TrackFilters{}
	}
	f := condition.TrackFilters{
		Language:      d.strList("language"),
		Codec:         d.strList("codec"),
		IsDefault:     d.boolPtr("is_default"),
		IsForced:      d.boolPtr("is_forced"),
		NotCommentary: d.boolean("not_commentary", false),
	}
	if c := d.child("channels"); c != nil {
		nf := decodeNumericFilter(c)
		f.Channels = &nf
	}
	if c := d.child("width"); c != nil {
		nf := decodeNumericFilter(c)
		f.Width = &nf
	}
	if c := d.child("height"); c != nil {
		nf := decodeNumericFilter(c)
		f.Height = &nf
	}
	if c := d.child("title"); c != nil {
		tf := condition.TitleFilter{}
		if s, ok := c.str("contains"); ok {
			tf.Contains = s
		}
		if s, ok := c.str("regex"); ok {
			re, err := regexp.Compile(s)
			if err == nil {
				tf.HasRegex = true
				tf.Regex = re
			}
		}
		f.Title = &tf
	}
	return f
}

func decodeNumericFilter(d *doc) condition.NumericFilter {
	return condition.NumericFilter{Op: condition.CompareOp(firstOr(d.str("op"))), Value: d.integer("value", 0)}
}

func decodeActionList(d *doc, key string) ([]action.Action, error) {
	var out []action.Action
	for i, raw := range d.rawList(key) {
		m, ok := asMap(raw)
		if !ok {
			return nil, &policyerr.StructuralError{Path: fmt.Sprintf("%s.%s[%d]", d.path, key, i), Expected: "action object"}
		}
		a, err := decodeAction(fmt.Sprintf("%s.%s[%d]", d.path, key, i), m)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func decodeAction(path string, m map[string]any) (action.Action, error) {
	ad := newDoc(path, m)
	kind, _ := ad.str("type")
	switch kind {
	case "skip_operation":
		return action.SkipOperation{OperationKind: action.OperationKind(firstOr(ad.str("kind")))}, nil
	case "warn":
		return action.Warn{MessageTemplate: firstOr(ad.str("message_template"))}, nil
	case "fail":
		return action.Fail{MessageTemplate: firstOr(ad.str("message_template"))}, nil
	case "set_forced", "set_default":
		var lang *string
		if s, ok := ad.str("language"); ok {
			lang = &s
		}
		tk := inspectTrackKindOf(firstOr(ad.str("track_kind")))
		val := ad.boolean("value", true)
		if kind == "set_forced" {
			return action.SetForced{TrackKind: tk, Language: lang, Value: val}, nil
		}
		return action.SetDefault{TrackKind: tk, Language: lang, Value: val}, nil
	case "set_language":
		var match *string
		if s, ok := ad.str("match_language"); ok {
			match = &s
		}
		return action.SetLanguage{
			TrackKind:     inspectTrackKindOf(firstOr(ad.str("track_kind"))),
			NewLanguage:   firstOr(ad.str("new_language")),
			MatchLanguage: match,
		}, nil
	case "set_container_metadata":
		var val *string
		if s, ok := ad.str("value"); ok {
			val = &s
		}
		return action.SetContainerMetadata{Field: firstOr(ad.str("field")), Value: val}, nil
	default:
		return nil, &policyerr.StructuralError{Path: path + ".type", Expected: "a known action type"}
	}
}
