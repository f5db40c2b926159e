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

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUniqueIDDistinctWithinProcess(t *testing.T) {
	const n = 1000
	seen := make(map[Tag]bool, n)
	for i := 0; i < n; i++ {
		id := UniqueID()
		assert.False(t, seen[id], "UniqueID repeated within a single process")
		seen[id] = true
	}
}

func TestUniqueIDSharesPrefix(t *testing.T) {
	a := UniqueID()
	b := UniqueID()
	// Both ids extend the same process-wide prefix by a monotonic counter,
	// so consecutive calls must still differ even though the high-order
	// structure (the prefix) is shared.
	assert.NotEqual(t, a, b)
}
