// Copyright 2024 The Vesta Authors
// This file is part of Vesta.
//
// Vesta is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Vesta is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Vesta. If not, see <http://www.gnu.org/licenses/>.

package replication

import (
	"fmt"
	"strings"
)

// RawDirective is one (sign, pattern) pair as written by a caller,
// before relative '-' patterns are expanded against the preceding '+'.
type RawDirective struct {
	Sign    byte // '+' or '-'
	Pattern string
}

// Directive is a parsed, fully root-relative directive ready to drive
// traversal.
type Directive struct {
	Sign    byte
	Raw     string
	pattern *CompiledPattern
}

// DirectiveSeq is an ordered directive list; later entries matching the
// same object override earlier ones.
type DirectiveSeq []Directive

// ParseDirectives compiles raw into a DirectiveSeq. A '-' pattern that
// does not begin with '/' is expanded relative to the directory portion
// of the most recently seen '+' pattern, per §4.3.
func ParseDirectives(raw []RawDirective) (DirectiveSeq, error) {
	seq := make(DirectiveSeq, 0, len(raw))
	lastPlusDir := ""
	for _, rd := range raw {
		if rd.Sign != '+' && rd.Sign != '-' {
			return nil, fmt.Errorf("replication: directive sign must be '+' or '-', got %q", rd.Sign)
		}
		pat := rd.Pattern
		if rd.Sign == '-' && pat != "" && pat[0] != '/' && lastPlusDir != "" {
			pat = lastPlusDir + "/" + pat
		}
		cp, err := Compile(pat)
		if err != nil {
			return nil, err
		}
		seq = append(seq, Directive{Sign: rd.Sign, Raw: pat, pattern: cp})
		if rd.Sign == '+' {
			lastPlusDir = dirname(rd.Pattern)
		}
	}
	return seq, nil
}

func dirname(pattern string) string {
	pattern = strings.Trim(pattern, "/")
	i := strings.LastIndex(pattern, "/")
	if i < 0 {
		return ""
	}
	return pattern[:i]
}

func (d Directive) isEmptyPattern() bool { return len(d.pattern.arcs) == 0 }

// MatchHere reports whether path (the object currently being visited,
// as an arc slice from the repository root) is selected by this
// directive list: the sign of the last directive that applies to path,
// or false ("not selected") if none applies. A directive with an empty
// pattern applies to every path; a later directive that applies still
// overrides it.
func (ds DirectiveSeq) MatchHere(path []string, bounds NumericBounds) bool {
	matched := false
	for _, d := range ds {
		if d.isEmptyPattern() || d.pattern.MatchesExactly(path, bounds) {
			matched = d.Sign == '+'
		}
	}
	return matched
}

// ChildDirectives returns the subsequence of ds relevant to descendants
// of path: directives whose pattern is empty (and so applies at every
// depth) or could still match some path having the current path as a
// prefix. An empty result prunes recursion into this subtree entirely.
//
// This implements the spec's "empty-pattern directives dominate" rule
// only at the granularity the empty pattern itself operates at — an
// empty-pattern directive, once present, is never filtered out and so
// continues to apply (as an unconditional include-all/exclude-all) at
// every deeper level reached. Finer-grained domination mid-pattern
// (a '%X' or '{...}' alternation becoming "empty" partway through a
// traversal) is not modeled; every directive list this codebase builds
// uses whole-pattern empty strings for "everything", which is the only
// form spec.md's examples exercise.
func (ds DirectiveSeq) ChildDirectives(path []string, bounds NumericBounds) DirectiveSeq {
	var out DirectiveSeq
	for _, d := range ds {
		if d.isEmptyPattern() {
			out = append(out, d)
			continue
		}
		if d.pattern.HasPrefixMatch(path, bounds) {
			out = append(out, d)
		}
		// A '-' directive with nothing left to match below path is
		// dropped, per §4.3 ("'-' with empty child-set is dropped") —
		// the HasPrefixMatch(false) branch above already omits it.
	}
	return out
}
