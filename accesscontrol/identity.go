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

// Package accesscontrol is a narrow stand-in for the repository's identity
// and ownership check. Full access control (the RPC-level credential
// exchange, group membership, the `*` wildcard grammar beyond ownership)
// is out of scope; mastership and replication both gate a step on "does
// this caller own this object", so that single check is supplemented here
// the way Mastership.C calls `ac.check(who, AccessControl::ownership)`.
package accesscontrol

// Permission names the kind of access being checked. Only Ownership is
// needed by the mastership and replication protocols.
type Permission int

const (
	Ownership Permission = iota
)

// Identity names the caller of an operation. A nil Identity means the
// anonymous/unauthenticated caller.
type Identity struct {
	Name string
}

// Checker decides whether an Identity holds a Permission on some object.
// Repository objects embed a Checker (or a zero value that always grants
// ownership, for tests and single-user setups).
type Checker struct {
	// Owner is the identity that owns the object. A nil Owner grants
	// Ownership to every caller, matching how a freshly
	// created object with no access-control attributes is usable by
	// anyone until an owner is set.
	Owner *Identity
}

// Check reports whether who holds perm.
func (c Checker) Check(who *Identity, perm Permission) bool {
	if perm != Ownership {
		return false
	}
	if c.Owner == nil {
		return true
	}
	if who == nil {
		return false
	}
	return who.Name == c.Owner.Name
}
