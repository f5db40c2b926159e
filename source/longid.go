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

package source

import (
	"bytes"
	"encoding/hex"
)

// MaxLongIdBytes bounds the length of a LongId; a tree deeper than this
// overflows and the offending subtree is elided from traversal (but does
// not abort the enclosing operation).
const MaxLongIdBytes = 32

// LongId is a variable-length byte identifier naming an object's position
// in the repository tree. The root has length 1; each child appends a
// 7-bit-per-byte variable-length group encoding its index among its
// siblings (continuation bit set on every byte but the last of a group).
type LongId []byte

// RootLongId is the LongId of the repository root.
func RootLongId() LongId { return LongId{0x00} }

// IsRoot reports whether id names the repository root.
func (id LongId) IsRoot() bool { return len(id) == 1 }

// Equal reports whether id and other name the same object.
func (id LongId) Equal(other LongId) bool { return bytes.Equal(id, other) }

// String renders id as hex, for logging.
func (id LongId) String() string { return hex.EncodeToString(id) }

func encodeChildIndex(idx uint32) []byte {
	if idx == 0 {
		return []byte{0}
	}
	var rev []byte
	for v := idx; v > 0; v >>= 7 {
		rev = append(rev, byte(v&0x7f))
	}
	out := make([]byte, len(rev))
	for i, b := range rev {
		out[len(rev)-1-i] = b
	}
	for i := 0; i < len(out)-1; i++ {
		out[i] |= 0x80
	}
	return out
}

// Child returns the LongId of this object's idx'th child. It fails with
// ErrLongIdOverflow if the result would exceed MaxLongIdBytes.
func (id LongId) Child(idx uint32) (LongId, error) {
	group := encodeChildIndex(idx)
	if len(id)+len(group) > MaxLongIdBytes {
		return nil, ErrLongIdOverflow
	}
	out := make(LongId, 0, len(id)+len(group))
	out = append(out, id...)
	out = append(out, group...)
	return out, nil
}

// Indices decodes the sequence of child indices from the root to id.
func (id LongId) Indices() []uint32 {
	var out []uint32
	i := 1
	for i < len(id) {
		var v uint32
		for {
			b := id[i]
			v = (v << 7) | uint32(b&0x7f)
			i++
			if b&0x80 == 0 {
				break
			}
		}
		out = append(out, v)
	}
	return out
}

// Parent returns id's parent LongId. It reports false if id is the root.
func (id LongId) Parent() (LongId, bool) {
	if len(id) <= 1 {
		return nil, false
	}
	k := len(id) - 1
	for k > 1 && id[k-1]&0x80 != 0 {
		k--
	}
	return append(LongId(nil), id[:k]...), true
}

// IsAncestorOf reports whether id is a prefix of other's index sequence,
// i.e. id names an ancestor directory of (or the object named by) other.
func (id LongId) IsAncestorOf(other LongId) bool {
	a, b := id.Indices(), other.Indices()
	if len(a) > len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
