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
	"regexp"
	"strconv"
	"strings"
)

// NumericBounds resolves the FIRST/LAST/DFIRST/DLAST tokens a [lo,hi]
// numeric-range arc can reference: the lowest/highest all-digit arc
// currently present in the source directory being matched (FIRST/LAST)
// or the destination directory (DFIRST/DLAST).
type NumericBounds interface {
	First() (int64, bool)
	Last() (int64, bool)
	DFirst() (int64, bool)
	DLast() (int64, bool)
}

// arcMatcher matches one path arc (repeat == false) or zero-or-more
// consecutive arcs (repeat == true, from a leading '%').
type arcMatcher struct {
	repeat  bool
	numeric *numericRange
	re      *regexp.Regexp
	src     string
}

// Match reports whether arc satisfies this matcher, given the numeric
// bounds of its containing directory.
func (m *arcMatcher) Match(arc string, bounds NumericBounds) bool {
	if m.numeric != nil {
		return m.numeric.match(arc, bounds)
	}
	return m.re.MatchString(arc)
}

// numericRange is a [lo,hi] directive: lo and hi are small arithmetic
// expressions over integer literals and FIRST/LAST/DFIRST/DLAST. It only
// appears as a whole arc pattern (not embedded in a larger composite
// pattern) — see DESIGN.md for why that scope was chosen.
type numericRange struct {
	loExpr, hiExpr string
}

func (n *numericRange) match(arc string, bounds NumericBounds) bool {
	if arc == "" {
		return false
	}
	for _, c := range arc {
		if c < '0' || c > '9' {
			return false
		}
	}
	v, err := strconv.ParseInt(arc, 10, 64)
	if err != nil {
		return false
	}
	lo, ok := evalExpr(n.loExpr, bounds)
	if !ok {
		return false
	}
	hi, ok := evalExpr(n.hiExpr, bounds)
	if !ok {
		return false
	}
	return v >= lo && v <= hi
}

// evalExpr evaluates a sum/difference of integer-literal and
// FIRST/LAST/DFIRST/DLAST terms, e.g. "FIRST+1" or "LAST-2".
func evalExpr(expr string, bounds NumericBounds) (int64, bool) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return 0, false
	}
	sign := int64(1)
	var total int64
	i := 0
	for i < len(expr) {
		termSign := sign
		for i < len(expr) && (expr[i] == '+' || expr[i] == '-') {
			if expr[i] == '-' {
				termSign = -termSign
			}
			i++
		}
		start := i
		for i < len(expr) && expr[i] != '+' && expr[i] != '-' {
			i++
		}
		token := strings.TrimSpace(expr[start:i])
		val, ok := resolveToken(token, bounds)
		if !ok {
			return 0, false
		}
		total += termSign * val
		sign = 1
	}
	return total, true
}

func resolveToken(token string, bounds NumericBounds) (int64, bool) {
	switch token {
	case "FIRST":
		return bounds.First()
	case "LAST":
		return bounds.Last()
	case "DFIRST":
		return bounds.DFirst()
	case "DLAST":
		return bounds.DLast()
	default:
		v, err := strconv.ParseInt(token, 10, 64)
		if err != nil {
			return 0, false
		}
		return v, true
	}
}

var numericRangeWhole = regexp.MustCompile(`^\[([^,\]]*),([^,\]]*)\]$`)

// compileArc compiles one '/'-separated pattern component.
func compileArc(s string) (*arcMatcher, error) {
	m := &arcMatcher{src: s}
	if strings.HasPrefix(s, "%") {
		m.repeat = true
		s = s[1:]
	}
	if grp := numericRangeWhole.FindStringSubmatch(s); grp != nil {
		m.numeric = &numericRange{loExpr: grp[1], hiExpr: grp[2]}
		return m, nil
	}
	reSrc, err := translateArc(s)
	if err != nil {
		return nil, err
	}
	re, err := regexp.Compile(reSrc)
	if err != nil {
		return nil, fmt.Errorf("replication: bad pattern arc %q: %w", s, err)
	}
	m.re = re
	return m, nil
}

// translateArc translates one glob-style arc pattern into an anchored
// Go regexp source string.
func translateArc(s string) (string, error) {
	body, err := translateBody(s)
	if err != nil {
		return "", err
	}
	return "^" + body + "$", nil
}

// translateBody translates pattern text without anchoring it, so it can
// be nested inside a `{...}` alternation group.
func translateBody(s string) (string, error) {
	var b strings.Builder
	i := 0
	for i < len(s) {
		c := s[i]
		switch c {
		case '*':
			b.WriteString(".*")
			i++
		case '?':
			b.WriteString(".")
			i++
		case '#':
			b.WriteString("[0-9]*")
			i++
		case '[':
			j := findMatching(s, i, '[', ']')
			if j < 0 {
				return "", fmt.Errorf("replication: unterminated '[' in pattern %q", s)
			}
			b.WriteString(s[i : j+1])
			i = j + 1
		case '{':
			j := findMatching(s, i, '{', '}')
			if j < 0 {
				return "", fmt.Errorf("replication: unterminated '{' in pattern %q", s)
			}
			alts := splitTopLevelCommas(s[i+1 : j])
			b.WriteString("(?:")
			for k, alt := range alts {
				if k > 0 {
					b.WriteString("|")
				}
				sub, err := translateBody(alt)
				if err != nil {
					return "", err
				}
				b.WriteString(sub)
			}
			b.WriteString(")")
			i = j + 1
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
			i++
		}
	}
	return b.String(), nil
}

// findMatching returns the index of the delimiter matching open/close
// starting at s[start] (which must be `open`), honoring nesting.
func findMatching(s string, start int, open, close byte) int {
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitTopLevelCommas splits s on commas that are not inside a nested
// `{...}` or `[...]` group.
func splitTopLevelCommas(s string) []string {
	var out []string
	depth := 0
	last := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{', '[':
			depth++
		case '}', ']':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, s[last:i])
				last = i + 1
			}
		}
	}
	out = append(out, s[last:])
	return out
}

// CompiledPattern is a '/'-separated pattern ready to be matched arc by
// arc against a path in the repository tree.
type CompiledPattern struct {
	arcs []*arcMatcher
}

// Compile parses a pattern (without the leading "/vesta/"-equivalent
// root, relative to the repository root) into a CompiledPattern.
func Compile(pattern string) (*CompiledPattern, error) {
	pattern = strings.Trim(pattern, "/")
	if pattern == "" {
		return &CompiledPattern{}, nil
	}
	parts := strings.Split(pattern, "/")
	arcs := make([]*arcMatcher, 0, len(parts))
	for _, p := range parts {
		m, err := compileArc(p)
		if err != nil {
			return nil, err
		}
		arcs = append(arcs, m)
	}
	return &CompiledPattern{arcs: arcs}, nil
}

// MatchesExactly reports whether path (split on '/') matches this
// pattern exactly (the empty pattern matches only the root).
func (p *CompiledPattern) MatchesExactly(path []string, bounds NumericBounds) bool {
	return matchArcs(p.arcs, path, bounds)
}

// HasPrefixMatch reports whether path could be a strict or non-strict
// ancestor of something this pattern matches: i.e. some prefix of the
// pattern's arcs (possibly consuming a repeat arc zero or more times)
// is satisfied by path. This is what decides whether a directory needs
// to be traversed at all even though the pattern doesn't select it
// directly.
func (p *CompiledPattern) HasPrefixMatch(path []string, bounds NumericBounds) bool {
	return matchArcsPrefix(p.arcs, path, bounds)
}

func matchArcs(arcs []*arcMatcher, path []string, bounds NumericBounds) bool {
	if len(arcs) == 0 {
		return len(path) == 0
	}
	head := arcs[0]
	if !head.repeat {
		if len(path) == 0 || !head.Match(path[0], bounds) {
			return false
		}
		return matchArcs(arcs[1:], path[1:], bounds)
	}
	// repeat: try consuming 0, 1, 2, ... arcs with head's pattern.
	for n := 0; n <= len(path); n++ {
		ok := true
		for i := 0; i < n; i++ {
			if !head.Match(path[i], bounds) {
				ok = false
				break
			}
		}
		if ok && matchArcs(arcs[1:], path[n:], bounds) {
			return true
		}
	}
	return false
}

func matchArcsPrefix(arcs []*arcMatcher, path []string, bounds NumericBounds) bool {
	if len(path) == 0 {
		return true
	}
	if len(arcs) == 0 {
		return false
	}
	head := arcs[0]
	if !head.repeat {
		if !head.Match(path[0], bounds) {
			return false
		}
		return matchArcsPrefix(arcs[1:], path[1:], bounds)
	}
	if len(path) > 0 && head.Match(path[0], bounds) {
		if matchArcsPrefix(arcs, path[1:], bounds) {
			return true
		}
	}
	return matchArcsPrefix(arcs[1:], path, bounds)
}
