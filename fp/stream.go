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

package fp

// Stream is a write-only fingerprint accumulator. It buffers pending bytes
// up to one word, folds complete words into the running tag as they arrive,
// and folds any tail on Flush. Concatenating two equal byte sequences into
// two different Streams, regardless of how the writes are grouped, yields
// equal tags.
type Stream struct {
	tag     Tag
	pending []byte
}

// NewStream returns a Stream seeded with the tag of the empty string.
func NewStream() *Stream {
	return &Stream{tag: Init(nil)}
}

// Write implements io.Writer; it never returns an error.
func (s *Stream) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	data := p
	if len(s.pending) > 0 {
		data = append(append([]byte(nil), s.pending...), p...)
	}
	full := len(data) - len(data)%8
	if full > 0 {
		s.tag = s.tag.Extend(data[:full])
	}
	rem := data[full:]
	s.pending = append(s.pending[:0], rem...)
	return len(p), nil
}

// Flush folds any buffered tail bytes into the running tag.
func (s *Stream) Flush() {
	if len(s.pending) > 0 {
		s.tag = s.tag.Extend(s.pending)
		s.pending = s.pending[:0]
	}
}

// Tag flushes any pending bytes and returns the resulting tag.
func (s *Stream) Tag() Tag {
	s.Flush()
	return s.tag
}
