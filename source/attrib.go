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
	"sort"
	"strings"
	"sync"
)

// AttribOp is one of the four operations an attribute history entry can
// record.
type AttribOp int

const (
	// OpSet replaces the entire value set of an attribute with one value.
	OpSet AttribOp = iota
	// OpClear removes every value of an attribute.
	OpClear
	// OpAdd appends one value to an attribute's multiset.
	OpAdd
	// OpRemove removes one occurrence of a value from an attribute's
	// multiset.
	OpRemove
)

func (op AttribOp) String() string {
	switch op {
	case OpSet:
		return "set"
	case OpClear:
		return "clear"
	case OpAdd:
		return "add"
	case OpRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// AttribEntry is one write to an object's attribute history.
type AttribEntry struct {
	Op        AttribOp
	Name      string
	Value     string
	Timestamp int64
	// Seq is a sequence number assigned at write time, used as the stable
	// tie-break for entries sharing a Timestamp: ascending Seq order. Since
	// a remove is always written (and so sequenced) before the add it
	// precedes in the #master-request add-remove-add-remove pattern, this
	// alone reproduces the "remove before add at equal timestamp" rule
	// without needing to special-case Op in the sort.
	Seq uint64
}

// AttribHistory is the append-only, replayable log of attribute writes for
// one object. The zero value is ready to use.
type AttribHistory struct {
	mu      sync.Mutex
	entries []AttribEntry
	nextSeq uint64
}

// Write appends one entry to the history and returns it.
func (h *AttribHistory) Write(op AttribOp, name, value string, timestamp int64) AttribEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	e := AttribEntry{Op: op, Name: name, Value: value, Timestamp: timestamp, Seq: h.nextSeq}
	h.nextSeq++
	h.entries = append(h.entries, e)
	return e
}

// Entries returns a copy of the history in write order.
func (h *AttribHistory) Entries() []AttribEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]AttribEntry(nil), h.entries...)
}

// Reduce replays the history in (timestamp, sequence) order and returns the
// resulting multiset of values for every attribute name.
func (h *AttribHistory) Reduce() map[string][]string {
	entries := h.Entries()
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Timestamp != entries[j].Timestamp {
			return entries[i].Timestamp < entries[j].Timestamp
		}
		return entries[i].Seq < entries[j].Seq
	})

	out := make(map[string][]string)
	for _, e := range entries {
		switch e.Op {
		case OpSet:
			out[e.Name] = []string{e.Value}
		case OpClear:
			delete(out, e.Name)
		case OpAdd:
			out[e.Name] = append(out[e.Name], e.Value)
		case OpRemove:
			vs := out[e.Name]
			for i, v := range vs {
				if v == e.Value {
					out[e.Name] = append(vs[:i], vs[i+1:]...)
					break
				}
			}
			if len(out[e.Name]) == 0 {
				delete(out, e.Name)
			}
		}
	}
	return out
}

// Get returns the current multiset of values for name.
func (h *AttribHistory) Get(name string) []string {
	return h.Reduce()[name]
}

// GetOne returns the first current value of name, as used for
// effectively-single-valued attributes like master-repository.
func (h *AttribHistory) GetOne(name string) (string, bool) {
	vs := h.Get(name)
	if len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

// LatestTimestamp returns the timestamp of the most recent Set or Add
// entry for name, or 0 if there is none. Used when propagating a
// master-repository hint, which must carry the timestamp it was last
// set with so a newer hint elsewhere in the cluster can be told apart
// from a stale one.
func (h *AttribHistory) LatestTimestamp(name string) int64 {
	entries := h.Entries()
	var latest int64
	for _, e := range entries {
		if e.Name != name {
			continue
		}
		if e.Op != OpSet && e.Op != OpAdd {
			continue
		}
		if e.Timestamp > latest {
			latest = e.Timestamp
		}
	}
	return latest
}

// IsAccessControl reports whether an attribute name is access-control
// related (names beginning with '#').
func IsAccessControl(name string) bool {
	return strings.HasPrefix(name, "#")
}
