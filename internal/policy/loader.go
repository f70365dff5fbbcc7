// Copyright (c) 2025 vpo authors
// SPDX-License-Identifier: MIT

package policy

import (
	"fmt"
	"regexp"

	"github.com/vpoeng/vpo/internal/condition"
	"github.com/vpoeng/vpo/internal/policyerr"
)

var phaseNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]{0,63}$`)
var languageCodePattern = regexp.MustCompile(`^[a-z]{2,3}$`)

// Load implements the Policy Loader contract (§4.1): load(parsed-document)
// -> Policy | LoadError. raw must be the result of parsing the on-wire
// document into a generic tagged mapping (see LoadYAML for the concrete
// YAML front end). Unknown fields are reported as warnings, never errors.
func Load(raw map[string]any) (*Policy, []UnknownFieldWarning, error) {
	root := newDoc("$", raw)
	version, ok := root.fields["schema_version"]
	root.consumed["schema_version"] = true
	if !ok {
		return nil, nil, &policyerr.StructuralError{Path: "$.schema_version", Expected: "integer 1.." + fmtInt(LatestSchemaVersion)}
	}
	schemaVersion, ok := asInt(version)
	if !ok {
		return nil, nil, &policyerr.StructuralError{Path: "$.schema_version", Expected: "integer"}
	}
	if schemaVersion > LatestSchemaVersion {
		return nil, nil, &policyerr.UnsupportedSchemaError{Declared: schemaVersion, Latest: LatestSchemaVersion}
	}
	if schemaVersion < 1 {
		return nil, nil, &policyerr.StructuralError{Path: "$.schema_version", Expected: "integer >= 1"}
	}

	migrated := applyMigrations(schemaVersion, raw)
	root = newDoc("$", migrated)
	root.consumed["schema_version"] = true

	var warnings []UnknownFieldWarning

	pol := &Policy{SchemaVersion: schemaVersion}
	pol.DisplayName = firstOr(root.str("display_name"))

	if cfg := root.child("config"); cfg != nil {
		onErr := OnErrorMode(firstOr(cfg.str("on_error")))
		if onErr == "" {
			onErr = OnErrorSkip
		}
		pol.Config.OnError = onErr
		warnings = append(warnings, cfg.warnings()...)
	} else {
		pol.Config.OnError = OnErrorSkip
	}

	pol.AudioLanguagePreference = root.strList("audio_language_preference")
	pol.SubtitleLanguagePreference = root.strList("subtitle_language_preference")

	rawPatterns := root.strList("commentary_patterns")
	patterns := make([]condition.RawPattern, 0, len(rawPatterns))
	for _, p := range rawPatterns {
		patterns = append(patterns, condition.RawPattern{Value: p, IsRegex: true})
	}
	compiled, err := condition.CompileCommentaryPatterns(patterns)
	if err != nil {
		return nil, nil, &policyerr.RegexCompileError{Path: "$.commentary_patterns", Pattern: err.Error(), Err: err}
	}
	pol.CommentaryPatterns = compiled

	phaseNames := map[string]bool{}
	for _, pd := range root.childList("phases") {
		name, _ := pd.str("name")
		if !phaseNamePattern.MatchString(name) {
			return nil, nil, &policyerr.SemanticError{Path: pd.path + ".name", Reason: "phase name must match ^[A-Za-z][A-Za-z0-9_-]{0,63}$"}
		}
		if ReservedPhaseNames[name] {
			return nil, nil, &policyerr.SemanticError{Path: pd.path + ".name", Reason: fmt.Sprintf("phase name %q is reserved", name)}
		}
		if phaseNames[name] {
			return nil, nil, &policyerr.SemanticError{Path: pd.path + ".name", Reason: fmt.Sprintf("duplicate phase name %q", name)}
		}
		phaseNames[name] = true

		ops, err := decodeOperations(pd, &warnings)
		if err != nil {
			return nil, nil, err
		}
		warnings = append(warnings, pd.warnings()...)
		pol.Phases = append(pol.Phases, Phase{Name: name, Ops: ops})
	}

	warnings = append(warnings, root.warnings()...)

	if err := validate(pol); err != nil {
		return nil, nil, err
	}

	return pol, warnings, nil
}

func fmtInt(n int) string {
	return fmt.Sprintf("%d", n)
}
