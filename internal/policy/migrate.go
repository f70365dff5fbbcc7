// Copyright (c) 2025 vpo authors
// SPDX-License-Identifier: MIT

package policy

// migrate.go implements §4.1 step 3: "for each older version, apply a pure
// migration to the next version." Each migration is a total function over
// the generic tagged document and must never fail — validation only
// happens once the document reaches the latest shape (validate.go).

// operationFields is the fixed vocabulary that lived at a policy's top
// level before V11 introduced phases (§3.2).
var operationFields = []string{
	"container", "audio_filter", "subtitle_filter", "attachment_filter",
	"track_order", "default_flags", "conditional", "rules",
	"audio_synthesis", "transcode", "transcription",
}

// migrateToPhasesV11 moves any top-level operation fields into a single
// synthetic "default" phase and ensures config.on_error has its default.
// A no-op if the document already has a "phases" key.
func migrateToPhasesV11(d map[string]any) map[string]any {
	if _, ok := d["phases"]; ok {
		return d
	}
	phase := map[string]any{"name": "default"}
	moved := false
	for _, key := range operationFields {
		if v, ok := d[key]; ok {
			phase[key] = v
			delete(d, key)
			moved = true
		}
	}
	if !moved {
		return d
	}
	d["phases"] = []any{phase}
	if _, ok := d["config"]; !ok {
		d["config"] = map[string]any{"on_error": string(OnErrorSkip)}
	}
	return d
}

// normalizeRulesV13 rewrites a bare rules/conditional list into the V13
// {match: first, items: [...]} shape, at the top level and inside every
// phase.
func normalizeRulesV13(d map[string]any) map[string]any {
	normalizeRulesField(d)
	if phases, ok := d["phases"].([]any); ok {
		for _, p := range phases {
			if pm, ok := p.(map[string]any); ok {
				normalizeRulesField(pm)
			}
		}
	}
	return d
}

func normalizeRulesField(m map[string]any) {
	for _, key := range []string{"conditional", "rules"} {
		if list, ok := m[key].([]any); ok {
			m[key] = map[string]any{"match": string(MatchFirst), "items": list}
		}
	}
}

// migrations maps "this version introduced a structural change that must
// run before the document can be decoded at LatestSchemaVersion" to the
// function that performs it. Migrations are applied for every version
// strictly less than the one named, in ascending order, regardless of the
// document's declared schema_version (idempotent: a document already in
// the new shape is left unchanged).
func applyMigrations(version int, d map[string]any) map[string]any {
	if version < 11 {
		d = migrateToPhasesV11(d)
	}
	if version < 13 {
		d = normalizeRulesV13(d)
	}
	return d
}
