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

package store

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/vesta-scm/vesta/source"
)

// BlobStore is a SQLite-backed ShortId -> bytes mapping, implementing
// both rpc.BlobReader and replication.BlobWriter so a vesta-repository
// process can hand the same value to both the local RPC surface and the
// replication engine.
type BlobStore struct {
	db *sqlx.DB
}

// Open creates or reopens a blob store at path (":memory:" for a
// throwaway store, used by tests).
func Open(path string) (*BlobStore, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %q: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: init schema: %w", err)
	}
	return &BlobStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *BlobStore) Close() error { return s.db.Close() }

type blobRow struct {
	ShortID uint32 `db:"short_id"`
	Content []byte `db:"content"`
}

// WriteBlob stores data under a freshly allocated ShortId.
func (s *BlobStore) WriteBlob(data []byte) (source.ShortId, error) {
	res, err := s.db.Exec(`INSERT INTO `+ShortIdBlocks+` (content) VALUES (?)`, data)
	if err != nil {
		return 0, fmt.Errorf("store: write blob: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store: write blob: %w", err)
	}
	return source.ShortId(id), nil
}

// ReadBlob returns the content stored under id.
func (s *BlobStore) ReadBlob(id source.ShortId) ([]byte, error) {
	var row blobRow
	err := s.db.Get(&row, `SELECT short_id, content FROM `+ShortIdBlocks+` WHERE short_id = ?`, uint32(id))
	if err != nil {
		return nil, source.NewErrorf(source.NotFound, "blob %d: %v", id, err)
	}
	return row.Content, nil
}
