// Copyright (c) 2025 vpo authors
// SPDX-License-Identifier: MIT

package policy

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// LoadYAML parses data as the on-disk policy document format (§6.5) and
// runs it through Load. YAML is the reference format; Load itself stays
// format-agnostic over a generic map[string]any.
func LoadYAML(data []byte) (*Policy, []UnknownFieldWarning, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("policy: parse yaml: %w", err)
	}
	return Load(normalizeYAMLMap(raw))
}

// normalizeYAMLMap recursively rewrites map[string]interface{} subtrees
// that yaml.v3 may produce as map[interface{}]interface{} (only possible
// with non-string keys; guards against that shape reaching the decoder).
func normalizeYAMLMap(v any) map[string]any {
	m, ok := v.(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return normalizeValue(m).(map[string]any)
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeValue(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalizeValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeValue(val)
		}
		return out
	default:
		return v
	}
}
