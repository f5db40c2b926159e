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

// Package store is the content-addressed blob layer a vesta-repository
// process needs on disk: a ShortId -> bytes mapping for immutable file
// content. The object tree itself (LongId/attribute history/TypeTag)
// stays the in-memory model vesta/source already defines — per spec.md's
// Non-goals, only the ShortId->bytes mapping needs a persistent backing
// store.
package store

// ShortIdBlocks holds one row per file blob, keyed by the ShortId the
// in-memory object tree references. Named the way erigon-lib/kv/tables.go
// names its bucket constants.
const ShortIdBlocks = "ShortIdBlocks"

// schema is applied once at Open; CREATE TABLE IF NOT EXISTS makes it
// safe to run against an already-initialized database file.
const schema = `
CREATE TABLE IF NOT EXISTS ` + ShortIdBlocks + ` (
	short_id INTEGER PRIMARY KEY,
	content  BLOB NOT NULL
);
`
