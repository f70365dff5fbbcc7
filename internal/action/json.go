// Copyright (c) 2025 vpo authors
// SPDX-License-Identifier: MIT

package action

import "encoding/json"

// MarshalJSON renders a Plan as a JSON array of tagged action objects, each
// carrying a "type" field set to Kind() alongside its own fields (§12 "Plan
// export" — the vpo plan front end prints this). Actions are
// otherwise plain data structs with no json tags of their own, so each one
// is round-tripped through a generic map to graft the type tag on.
func (p Plan) MarshalJSON() ([]byte, error) {
	out := make([]map[string]any, 0, len(p))
	for _, a := range p {
		raw, err := json.Marshal(a)
		if err != nil {
			return nil, err
		}
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		if m == nil {
			m = map[string]any{}
		}
		m["type"] = a.Kind()
		out = append(out, m)
	}
	return json.Marshal(out)
}
