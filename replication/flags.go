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

// Package replication copies a pattern-selected subset of one
// repository's tree into another (§4.3).
package replication

// Flags controls what a Replicate call copies and how, or'd together
// exactly as the original Replicator::Flags enum.
type Flags uint32

const (
	NoFlags Flags = 0

	// AttrNew copies attributes on every newly created object (or one
	// whose type changed, e.g. stub to non-stub).
	AttrNew Flags = 0x0001
	// AttrOld copies attributes on objects already present at the
	// destination that are included in the set to be copied.
	AttrOld Flags = 0x0002
	// AttrInner copies attributes on directories that lie on
	// the path to an included object but are themselves neither
	// included nor excluded.
	AttrInner Flags = 0x0004
	// AttrAccess includes attribute names beginning with '#' when any
	// of the above would otherwise copy attributes.
	AttrAccess Flags = 0x0008

	// Revive replaces a destination ghost with a non-ghost object when
	// the source has one, except a master ghost of an appendable
	// directory (see ReviveMA).
	Revive Flags = 0x0010
	// ReviveMA also replaces master ghosts of appendable directories;
	// the new copy is necessarily nonmaster, so the directory loses its
	// master.
	ReviveMA Flags = 0x0020

	// InclStubs includes stubs in the set to copy; without it every
	// stub is excluded.
	InclStubs Flags = 0x0040
	// InclGhosts includes ghosts in the set to copy; without it every
	// ghost is excluded. Even with it, a ghost never replaces an object
	// already present at the destination.
	InclGhosts Flags = 0x0080

	Verbose Flags = 0x0100
	// Test is not consulted by Replicate: a call with Test set mutates the
	// destination exactly as one without it.
	Test Flags = 0x0200

	// Latest also replicates the `latest` stub/ghost of an appendable
	// directory of type package, checkout, or session, alongside any
	// directory selected (directly or by a descendant) for copying.
	Latest Flags = 0x0400

	WarnBadImp  Flags = 0x0800
	DontCopyNew Flags = 0x1000
)

func (f Flags) Has(bit Flags) bool { return f&bit != 0 }
