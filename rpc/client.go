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

// Package rpc defines the cross-repository call surface that the
// mastership and replication protocols drive, and the distinguished
// failure variant (ErrTransport) recovery depends on. The wire transport
// itself (what the original calls SRPC) is out of scope (§1); Client is
// the call/reply boundary above it, implemented here only by an
// in-process LocalClient for tests and single-host setups.
package rpc

import (
	"context"
	"fmt"

	"github.com/vesta-scm/vesta/fp"
	"github.com/vesta-scm/vesta/source"
)

// ObjectInfo is the subset of a remote object's state the mastership and
// replication protocols need without holding the remote repository's
// lock.
type ObjectInfo struct {
	ID       source.LongId
	Type     source.TypeTag
	Master   bool
	HostPort string

	// File is non-nil for immutableFile/mutableFile objects, carrying the
	// size and content fingerprint the replication engine matches files
	// on before deciding whether to copy content at all.
	File *source.FileInfo
	// DirFingerprint identifies an immutableDirectory's frozen content.
	DirFingerprint fp.Tag
}

// TransportError wraps a failure to complete an RPC at all (peer
// unreachable, connection reset, timeout) as distinct from a logical
// error the peer returned. errors.Is(err, ErrTransport) is how the
// mastership recovery path tells the two apart, matching §4.2/§7's
// "RPC failure is distinguished from logical failure" rule.
type TransportError struct {
	Peer string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("rpc: transport failure talking to %s: %v", e.Peer, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool {
	_, ok := target.(*TransportError)
	return ok
}

// ErrTransport is the sentinel for errors.Is comparisons; a *TransportError
// with any Peer/Err matches it.
var ErrTransport = &TransportError{}

// ErrUnknownProcID is what a version-skewed peer returns for a procedure
// it doesn't implement; replication's file copy (§4.3) catches this
// specifically from ReadWhole and falls back to chunked Read calls.
var ErrUnknownProcID = fmt.Errorf("rpc: unknown proc_id")

// Client is everything the mastership and replication engines need from
// a (possibly remote) repository.
type Client interface {
	// HostPort identifies the peer this Client talks to.
	HostPort() string

	// Lookup resolves a pathname to the object it currently names.
	Lookup(ctx context.Context, pathname string) (ObjectInfo, error)

	// CedeMastership runs the source-side C1-C5 steps and returns the
	// resulting grantid.
	CedeMastership(ctx context.Context, pathname, requestid, dstHostPort string) (grantid string, err error)

	// GetAttrib returns the current multiset of values for name.
	GetAttrib(ctx context.Context, pathname, name string) ([]string, error)

	// AttribEntries returns the full ordered attribute-history entries for
	// pathname, letting a caller replay them through WriteAttribAt so
	// timestamps and tiebreaks survive a copy exactly (§4.3).
	AttribEntries(ctx context.Context, pathname string) ([]source.AttribEntry, error)

	// WriteAttrib appends one attribute-history entry.
	WriteAttrib(ctx context.Context, pathname string, op source.AttribOp, name, value string) error

	// RemoveAttrib is WriteAttrib(OpRemove, name, value) spelled out, since
	// it is its own step (A5) in the protocol.
	RemoveAttrib(ctx context.Context, pathname, name, value string) error

	// List returns the ordered arc table of a directory object.
	List(ctx context.Context, pathname string) ([]source.DirEntry, error)

	// ReadWhole streams an entire file's content in one call.
	ReadWhole(ctx context.Context, pathname string) ([]byte, error)

	// Read returns a byte range, used when ReadWhole is unavailable
	// (version skew) or the caller wants to resume a partial copy.
	Read(ctx context.Context, pathname string, offset, length int64) ([]byte, error)
}
