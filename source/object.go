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
	"github.com/vesta-scm/vesta/accesscontrol"
	"github.com/vesta-scm/vesta/fp"
)

// TypeTag is an object kind. The numeric values are part of the wire and
// persisted-state contract (§6) and must never be renumbered.
type TypeTag int

const (
	ImmutableFile       TypeTag = 0
	MutableFile         TypeTag = 1
	ImmutableDirectory  TypeTag = 2
	AppendableDirectory TypeTag = 3
	MutableDirectory    TypeTag = 4
	Stub                TypeTag = 5
	Ghost               TypeTag = 6
	Deleted             TypeTag = 7
)

func (t TypeTag) String() string {
	switch t {
	case ImmutableFile:
		return "immutableFile"
	case MutableFile:
		return "mutableFile"
	case ImmutableDirectory:
		return "immutableDirectory"
	case AppendableDirectory:
		return "appendableDirectory"
	case MutableDirectory:
		return "mutableDirectory"
	case Stub:
		return "stub"
	case Ghost:
		return "ghost"
	case Deleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// IsDirectory reports whether t is one of the directory kinds.
func (t TypeTag) IsDirectory() bool {
	switch t {
	case ImmutableDirectory, AppendableDirectory, MutableDirectory:
		return true
	default:
		return false
	}
}

// ShortId is a 32-bit handle for a content-addressed file blob.
type ShortId uint32

// FileInfo holds the fields only a file object carries.
type FileInfo struct {
	ShortId     ShortId
	Size        int64
	Mtime       int64
	Executable  bool
	Fingerprint fp.Tag
}

// DirEntry is one arc-to-child mapping inside a directory object.
type DirEntry struct {
	Arc   string
	Child LongId
}

// Object is the in-memory handle for one repository object: the
// Go-idiomatic replacement for VestaSource. Every mutable field is
// protected by the owning Repository's RWLock; callers must never touch
// one outside a Repository.WithRead/WithWrite bracket.
type Object struct {
	ID       LongId
	Type     TypeTag
	Master   bool
	HostPort string
	Access   accesscontrol.Checker
	Attribs  *AttribHistory

	File *FileInfo

	// DirFingerprint identifies an ImmutableDirectory's frozen content,
	// the way FileInfo.Fingerprint identifies an immutable file's; it is
	// zero for every other type.
	DirFingerprint fp.Tag

	Children []DirEntry
}

// childByArc looks up a child by arc name.
func (o *Object) childByArc(arc string) (LongId, bool) {
	for _, e := range o.Children {
		if e.Arc == arc {
			return e.Child, true
		}
	}
	return nil, false
}

// removeChildArc removes a child mapping by arc name, if present.
func (o *Object) removeChildArc(arc string) {
	for i, e := range o.Children {
		if e.Arc == arc {
			o.Children = append(o.Children[:i], o.Children[i+1:]...)
			return
		}
	}
}
