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

// Package numeric holds small integer-parsing and integer-arithmetic
// helpers. No other package in this module imports it; the replication
// pattern language evaluates its [lo,hi] range bounds with strconv.
package numeric

import (
	"fmt"
	"math/bits"
	"strconv"
)

// ParseInt64 parses s as a decimal integer, accepting a leading sign. The
// empty string parses as zero.
func ParseInt64(s string) (int64, bool) {
	if s == "" {
		return 0, true
	}
	v, err := strconv.ParseInt(s, 10, 64)
	return v, err == nil
}

// MustParseInt64 parses s as a decimal integer and panics if it is invalid.
func MustParseInt64(s string) int64 {
	v, ok := ParseInt64(s)
	if !ok {
		panic(fmt.Sprintf("invalid signed 64 bit integer: %q", s))
	}
	return v
}

// SafeAdd returns x+y and reports whether the addition overflowed a signed
// 64-bit integer.
func SafeAdd(x, y int64) (int64, bool) {
	sum := x + y
	overflow := (y > 0 && sum < x) || (y < 0 && sum > x)
	return sum, overflow
}

// SafeMul returns x*y and reports whether the multiplication overflowed an
// unsigned 64-bit integer; used only for magnitudes, since range bounds in
// the pattern language are never negative after FIRST/LAST substitution.
func SafeMul(x, y uint64) (uint64, bool) {
	hi, lo := bits.Mul64(x, y)
	return lo, hi != 0
}

// CeilDiv returns the ceiling of x/y, or 0 if y is 0.
func CeilDiv(x, y int) int {
	if y == 0 {
		return 0
	}
	return (x + y - 1) / y
}
