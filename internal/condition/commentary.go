// Copyright (c) 2025 vpo authors
// SPDX-License-Identifier: MIT

package condition

import (
	"regexp"

	"github.com/vpoeng/vpo/internal/inspect"
)

// CommentaryPattern is a single compiled commentary-detection pattern. Style
// mirrors TitleFilter: either a case-insensitive substring or a regex.
// Implementations must cache compiled regexes per-policy (§4.2) — this
// type *is* that cache entry, compiled once at load time.
type CommentaryPattern struct {
	Contains string
	HasRegex bool
	Regex    *regexp.Regexp
}

func (p CommentaryPattern) match(title string) bool {
	return TitleFilter{Contains: p.Contains, HasRegex: p.HasRegex, Regex: p.Regex}.Match(title)
}

// IsCommentary reports whether t is a commentary track: any commentary
// pattern matches its title, or a plugin has already set is_commentary=true
// (§4.2 "Commentary detection").
func IsCommentary(t inspect.Track, patterns []CommentaryPattern) bool {
	if t.IsCommentary {
		return true
	}
	for _, p := range patterns {
		if p.match(t.Title) {
			return true
		}
	}
	return false
}

// CompileCommentaryPatterns compiles a regex-style pattern list at policy
// load time. Substring-style entries (no leading/trailing slash convention
// used by the on-disk format) pass through unchanged.
func CompileCommentaryPatterns(raw []RawPattern) ([]CommentaryPattern, error) {
	out := make([]CommentaryPattern, 0, len(raw))
	for _, r := range raw {
		if !r.IsRegex {
			out = append(out, CommentaryPattern{Contains: r.Value})
			continue
		}
		re, err := regexp.Compile(r.Value)
		if err != nil {
			return nil, err
		}
		out = append(out, CommentaryPattern{HasRegex: true, Regex: re})
	}
	return out, nil
}

// RawPattern is the on-disk shape of one commentary_patterns entry before
// regex compilation.
type RawPattern struct {
	Value   string
	IsRegex bool
}
