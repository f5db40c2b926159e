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

// Package mastership implements the destination-side acquire protocol
// (A1-A6), the source-side cede protocol via rpc.Client.CedeMastership,
// and crash recovery of interrupted transfers (§4.2).
package mastership

import "github.com/vesta-scm/vesta/source"

// TypeCheck reports whether mastership may transfer from an object of
// fromType to one of toType. Appendable directories, stubs, and ghosts
// only ever transfer type-to-type; every other type also accepts a
// ghost source.
func TypeCheck(fromType, toType source.TypeTag) bool {
	switch toType {
	case source.AppendableDirectory, source.Stub, source.Ghost:
		return fromType == toType
	default:
		return fromType == toType || fromType == source.Ghost
	}
}
