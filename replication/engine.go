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

package replication

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/vesta-scm/vesta/fp"
	"github.com/vesta-scm/vesta/rpc"
	"github.com/vesta-scm/vesta/source"
)

// BlobWriter materializes copied file content locally, assigning it a
// ShortId; vesta/store implements it against the content store, the
// write side of rpc.BlobReader.
type BlobWriter interface {
	WriteBlob(data []byte) (source.ShortId, error)
}

// errExcluded signals that an object was deliberately not copied because
// of a flag (inclStubs/inclGhosts unset), as opposed to any other error.
var errExcluded = errors.New("replication: object excluded by flags")

// Result summarizes one Replicate call.
type Result struct {
	Copied   int
	Skipped  int
	Warnings []string
}

func (r *Result) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Engine runs replicate(directives, flags) (§4.3) from a remote Client
// into a local Repository.
type Engine struct {
	Dst        *source.Repository
	Blobs      BlobWriter
	Clock      func() int64
	BadPeerTTL time.Duration // default one hour

	mu                sync.Mutex
	badReadWholePeers map[string]int64
	scratchSeq        uint64
}

// NewEngine builds an Engine copying into dst, materializing file
// content through blobs.
func NewEngine(dst *source.Repository, blobs BlobWriter) *Engine {
	return &Engine{
		Dst:               dst,
		Blobs:             blobs,
		badReadWholePeers: make(map[string]int64),
	}
}

func (e *Engine) now() int64 {
	if e.Clock != nil {
		return e.Clock()
	}
	return time.Now().Unix()
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

func joinPath(parts []string) string { return strings.Join(parts, "/") }

// numericBounds builds the NumericBounds a [lo,hi] directive arc (§4.3,
// the FIRST/LAST/DFIRST/DLAST tokens) resolves against when matching the
// arc at the end of path: FIRST/LAST scan the source directory
// containing it (parentPath); DFIRST/DLAST scan its destination
// counterpart (dstParentID, or the destination root). Both scans are
// lazy and run at most once, since most directive lists never reference
// a numeric range at all.
func (e *Engine) numericBounds(ctx context.Context, src rpc.Client, parentPath []string, dstParentID *source.LongId) NumericBounds {
	return &liveNumericBounds{ctx: ctx, src: src, srcParentPath: parentPath, dst: e.Dst, dstParentID: dstParentID}
}

type liveNumericBounds struct {
	ctx           context.Context
	src           rpc.Client
	srcParentPath []string
	dst           *source.Repository
	dstParentID   *source.LongId

	srcOnce      sync.Once
	srcLo, srcHi int64
	srcOk        bool

	dstOnce      sync.Once
	dstLo, dstHi int64
	dstOk        bool
}

func (b *liveNumericBounds) loadSrc() {
	b.srcOnce.Do(func() {
		entries, err := b.src.List(b.ctx, joinPath(b.srcParentPath))
		if err != nil {
			return
		}
		arcs := make([]string, len(entries))
		for i, ent := range entries {
			arcs[i] = ent.Arc
		}
		b.srcLo, b.srcHi, b.srcOk = digitArcBounds(arcs)
	})
}

func (b *liveNumericBounds) loadDst() {
	b.dstOnce.Do(func() {
		parentID := source.RootLongId()
		if b.dstParentID != nil {
			parentID = *b.dstParentID
		}
		_ = b.dst.WithRead(func(tx *source.Tx) error {
			o, err := tx.Lookup(parentID)
			if err != nil {
				return err
			}
			arcs := make([]string, len(o.Children))
			for i, ce := range o.Children {
				arcs[i] = ce.Arc
			}
			b.dstLo, b.dstHi, b.dstOk = digitArcBounds(arcs)
			return nil
		})
	})
}

func (b *liveNumericBounds) First() (int64, bool)  { b.loadSrc(); return b.srcLo, b.srcOk }
func (b *liveNumericBounds) Last() (int64, bool)   { b.loadSrc(); return b.srcHi, b.srcOk }
func (b *liveNumericBounds) DFirst() (int64, bool) { b.loadDst(); return b.dstLo, b.dstOk }
func (b *liveNumericBounds) DLast() (int64, bool)  { b.loadDst(); return b.dstHi, b.dstOk }

// digitArcBounds returns the lowest/highest value among arcs that are
// entirely decimal digits, the population [lo,hi] ranges quantify over.
func digitArcBounds(arcs []string) (lo, hi int64, ok bool) {
	for _, a := range arcs {
		if a == "" {
			continue
		}
		allDigits := true
		for _, c := range a {
			if c < '0' || c > '9' {
				allDigits = false
				break
			}
		}
		if !allDigits {
			continue
		}
		v, err := strconv.ParseInt(a, 10, 64)
		if err != nil {
			continue
		}
		if !ok || v < lo {
			lo = v
		}
		if !ok || v > hi {
			hi = v
		}
		ok = true
	}
	return lo, hi, ok
}

// Replicate copies the subset of pathname's subtree (relative to the
// source root) selected by directives into e.Dst, honoring flags.
func (e *Engine) Replicate(ctx context.Context, src rpc.Client, pathname string, directives DirectiveSeq, flags Flags) (*Result, error) {
	srcInfo, err := src.Lookup(ctx, pathname)
	if err != nil {
		return nil, err
	}
	res := &Result{}
	path := splitPath(pathname)
	if _, err := e.replicateInto(ctx, src, path, nil, "", srcInfo, directives, flags, res); err != nil {
		return res, err
	}
	return res, nil
}

// replicateInto ensures the object srcInfo names exists at (dstParentID,
// arc) (or, for the repository root, simply uses the local root),
// replicates its attributes per the attrNew/attrOld/attrInner/attrAccess
// flags, and recurses into its children as childDirectives allow.
// dstParentID == nil means path is the repository root on both sides.
func (e *Engine) replicateInto(ctx context.Context, src rpc.Client, path []string, dstParentID *source.LongId, arc string, srcInfo rpc.ObjectInfo, directives DirectiveSeq, flags Flags, res *Result) (source.LongId, error) {
	var parentPath []string
	if len(path) > 0 {
		parentPath = path[:len(path)-1]
	}
	bounds := e.numericBounds(ctx, src, parentPath, dstParentID)
	matched := directives.MatchHere(path, bounds)
	isDir := srcInfo.Type.IsDirectory()

	var childDirs DirectiveSeq
	if isDir {
		childDirs = directives.ChildDirectives(path, bounds)
	}

	var dstID source.LongId
	created := false

	if dstParentID == nil {
		dstID = source.RootLongId()
	} else {
		included := matched || (isDir && len(childDirs) > 0)
		if !included {
			res.Skipped++
			return nil, nil
		}
		id, wasCreated, err := e.ensureDestination(ctx, src, *dstParentID, arc, srcInfo, flags, path, directives, res)
		if err != nil {
			if errors.Is(err, errExcluded) {
				res.Skipped++
				return nil, nil
			}
			return nil, err
		}
		dstID = id
		created = wasCreated

		switch {
		case created && flags.Has(AttrNew):
			if err := e.copyAttribs(ctx, src, path, dstID, flags); err != nil {
				return dstID, err
			}
		case matched && !created && flags.Has(AttrOld):
			if err := e.copyAttribs(ctx, src, path, dstID, flags); err != nil {
				return dstID, err
			}
		case !matched && isDir && flags.Has(AttrInner):
			if err := e.copyAttribs(ctx, src, path, dstID, flags); err != nil {
				return dstID, err
			}
		}
		if matched {
			res.Copied++
		}
	}

	if isDir && flags.Has(Latest) && (matched || len(childDirs) > 0) {
		if err := e.replicateLatest(ctx, src, path, dstID); err != nil {
			return dstID, err
		}
	}

	if !isDir || len(childDirs) == 0 {
		return dstID, nil
	}

	srcChildren, err := src.List(ctx, joinPath(path))
	if err != nil {
		return dstID, err
	}
	for _, ce := range srcChildren {
		childPath := append(append([]string{}, path...), ce.Arc)
		childInfo, err := src.Lookup(ctx, joinPath(childPath))
		if err != nil {
			return dstID, err
		}
		if _, err := e.replicateInto(ctx, src, childPath, &dstID, ce.Arc, childInfo, childDirs, flags, res); err != nil {
			return dstID, err
		}
	}
	return dstID, nil
}

// ensureDestination implements §4.3's per-type copy policy table.
func (e *Engine) ensureDestination(ctx context.Context, src rpc.Client, parentID source.LongId, arc string, srcInfo rpc.ObjectInfo, flags Flags, path []string, directives DirectiveSeq, res *Result) (source.LongId, bool, error) {
	existingID, exists, existingType, existingMaster, err := e.lookupChild(parentID, arc)
	if err != nil {
		return nil, false, err
	}

	switch srcInfo.Type {
	case source.AppendableDirectory:
		if !exists {
			id, err := e.insertChild(parentID, arc, source.AppendableDirectory)
			return id, true, err
		}
		switch existingType {
		case source.AppendableDirectory:
			return existingID, false, nil
		case source.Stub:
			if existingMaster {
				return nil, false, fmt.Errorf("replication: agreement violation: destination stub %q is master", arc)
			}
			if err := e.Dst.WithWrite(func(tx *source.Tx) error { return tx.RemoveChild(parentID, arc) }); err != nil {
				return nil, false, err
			}
			id, err := e.insertChild(parentID, arc, source.AppendableDirectory)
			return id, true, err
		case source.Ghost:
			if !flags.Has(Revive) || (existingMaster && !flags.Has(ReviveMA)) {
				return existingID, false, nil
			}
			if err := e.Dst.WithWrite(func(tx *source.Tx) error { return tx.RemoveChild(parentID, arc) }); err != nil {
				return nil, false, err
			}
			id, err := e.insertChild(parentID, arc, source.AppendableDirectory)
			if err != nil {
				return nil, false, err
			}
			if err := e.Dst.WithWrite(func(tx *source.Tx) error { return tx.SetMaster(id, false) }); err != nil {
				return nil, false, err
			}
			return id, true, nil
		default:
			return existingID, false, nil
		}

	case source.ImmutableDirectory:
		if exists {
			return existingID, false, nil
		}
		if srcInfo.DirFingerprint != (fp.Tag{}) {
			if localID, ok := e.findDirByFingerprint(srcInfo.DirFingerprint); ok {
				id, err := e.cloneLocalSubtree(parentID, arc, localID)
				return id, true, err
			}
		}
		id, err := e.copyImmutableDirectoryFull(ctx, src, parentID, arc, srcInfo, path, directives, flags, res)
		return id, true, err

	case source.ImmutableFile:
		if exists {
			return existingID, false, nil
		}
		id, err := e.copyImmutableFile(ctx, src, parentID, arc, srcInfo, path)
		return id, true, err

	case source.MutableFile, source.MutableDirectory:
		if exists {
			return existingID, false, nil
		}
		id, err := e.insertChild(parentID, arc, srcInfo.Type)
		return id, true, err

	case source.Stub:
		if exists {
			return existingID, false, nil
		}
		if !flags.Has(InclStubs) {
			return nil, false, errExcluded
		}
		id, err := e.insertChild(parentID, arc, source.Stub)
		return id, true, err

	case source.Ghost:
		if exists {
			// A ghost never replaces an object already present.
			return existingID, false, nil
		}
		if !flags.Has(InclGhosts) {
			return nil, false, errExcluded
		}
		id, err := e.insertChild(parentID, arc, source.Ghost)
		return id, true, err

	default:
		return nil, false, fmt.Errorf("replication: unsupported source type %s", srcInfo.Type)
	}
}

func (e *Engine) lookupChild(parentID source.LongId, arc string) (source.LongId, bool, source.TypeTag, bool, error) {
	var id source.LongId
	var exists bool
	var typ source.TypeTag
	var master bool
	err := e.Dst.WithRead(func(tx *source.Tx) error {
		cid, ok, err := tx.ChildByArc(parentID, arc)
		if err != nil {
			return err
		}
		exists = ok
		if !ok {
			return nil
		}
		id = cid
		o, err := tx.Lookup(cid)
		if err != nil {
			return err
		}
		typ = o.Type
		master = o.Master
		return nil
	})
	return id, exists, typ, master, err
}

func (e *Engine) insertChild(parentID source.LongId, arc string, typ source.TypeTag) (source.LongId, error) {
	var id source.LongId
	err := e.Dst.WithWrite(func(tx *source.Tx) error {
		child, err := tx.InsertChild(parentID, arc, typ)
		if err != nil {
			return err
		}
		id = child.ID
		return nil
	})
	return id, err
}

func (e *Engine) findDirByFingerprint(tag fp.Tag) (source.LongId, bool) {
	var id source.LongId
	var ok bool
	_ = e.Dst.WithRead(func(tx *source.Tx) error {
		obj, found := tx.FindImmutableDirectoryByFingerprint(tag)
		if found {
			id, ok = obj.ID, true
		}
		return nil
	})
	return id, ok
}

func (e *Engine) findFileByFingerprint(tag fp.Tag) (source.LongId, bool) {
	var id source.LongId
	var ok bool
	_ = e.Dst.WithRead(func(tx *source.Tx) error {
		obj, found := tx.FindFileByFingerprint(tag)
		if found {
			id, ok = obj.ID, true
		}
		return nil
	})
	return id, ok
}

// cloneLocalSubtree installs a fresh, independent copy of srcID (already
// present somewhere in e.Dst) as a new child of parentID named arc. It
// never touches the network: this is what makes the fingerprint-matched
// paths in ensureDestination free of remote traversal (§4.3). A true
// structural link (sharing LongIds across two parents) isn't sound here
// since LongId encodes tree position; see DESIGN.md.
//
// Every field read off srcID is read fresh, inside the single lock
// bracket that consumes it, rather than carried in across a lock
// release — an *Object is live repository state (source/object.go's
// "every mutable field is protected by the owning Repository's
// RWLock"), so a pointer obtained under one bracket and dereferenced
// after it closes races any concurrent mutation of the same object.
func (e *Engine) cloneLocalSubtree(parentID source.LongId, arc string, srcID source.LongId) (source.LongId, error) {
	var newID source.LongId
	var fileCopy *source.FileInfo
	var children []source.DirEntry
	err := e.Dst.WithWrite(func(tx *source.Tx) error {
		src, err := tx.Lookup(srcID)
		if err != nil {
			return err
		}
		child, err := tx.InsertChild(parentID, arc, src.Type)
		if err != nil {
			return err
		}
		newID = child.ID
		if src.Type == source.ImmutableDirectory {
			if err := tx.FreezeDirectory(newID, src.DirFingerprint); err != nil {
				return err
			}
		}
		for _, ent := range src.Attribs.Entries() {
			if _, err := tx.WriteAttribAt(newID, ent.Op, ent.Name, ent.Value, ent.Timestamp); err != nil {
				return err
			}
		}
		if src.Type == source.ImmutableFile && src.File != nil {
			cp := *src.File
			fileCopy = &cp
		}
		children = append([]source.DirEntry(nil), src.Children...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if fileCopy != nil {
		if err := e.Dst.WithWrite(func(tx *source.Tx) error {
			dst, err := tx.Lookup(newID)
			if err != nil {
				return err
			}
			*dst.File = *fileCopy
			return tx.SetFileFingerprint(newID, fileCopy.Fingerprint)
		}); err != nil {
			return nil, err
		}
	}
	for _, ce := range children {
		if _, err := e.cloneLocalSubtree(newID, ce.Arc, ce.Child); err != nil {
			return nil, err
		}
	}
	return newID, nil
}

// copyImmutableDirectoryFull implements §4.3's scratch-copy procedure:
// a mutable scratch copy is built under `.replicator`, children are
// replicated into it one at a time (so the lock can be released around
// each remote call), the scratch copy is frozen in place with the
// source's own fingerprint, and only then is an independent copy
// installed at the real destination position and the scratch entry
// removed.
func (e *Engine) copyImmutableDirectoryFull(ctx context.Context, src rpc.Client, parentID source.LongId, arc string, srcInfo rpc.ObjectInfo, path []string, directives DirectiveSeq, flags Flags, res *Result) (source.LongId, error) {
	scratchParent, err := e.ensureReplicatorScratch()
	if err != nil {
		return nil, err
	}
	scratchArc := e.nextScratchArc()
	scratchID, err := e.insertChild(scratchParent, scratchArc, source.MutableDirectory)
	if err != nil {
		return nil, err
	}

	srcChildren, err := src.List(ctx, joinPath(path))
	if err != nil {
		return nil, err
	}
	for _, ce := range srcChildren {
		childPath := append(append([]string{}, path...), ce.Arc)
		childInfo, err := src.Lookup(ctx, joinPath(childPath))
		if err != nil {
			return nil, err
		}
		if _, err := e.replicateInto(ctx, src, childPath, &scratchID, ce.Arc, childInfo, directives, flags, res); err != nil {
			return nil, err
		}
	}

	if err := e.Dst.WithWrite(func(tx *source.Tx) error {
		return tx.FreezeDirectory(scratchID, srcInfo.DirFingerprint)
	}); err != nil {
		return nil, err
	}

	newID, err := e.cloneLocalSubtree(parentID, arc, scratchID)
	if err != nil {
		return nil, err
	}

	if err := e.Dst.WithWrite(func(tx *source.Tx) error {
		return tx.RemoveChild(scratchParent, scratchArc)
	}); err != nil {
		return nil, err
	}
	return newID, nil
}

func (e *Engine) ensureReplicatorScratch() (source.LongId, error) {
	id, exists, _, _, err := e.lookupChild(source.RootLongId(), ".replicator")
	if err != nil {
		return nil, err
	}
	if exists {
		return id, nil
	}
	var newID source.LongId
	err = e.Dst.WithWrite(func(tx *source.Tx) error {
		child, err := tx.InsertChild(source.RootLongId(), ".replicator", source.MutableDirectory)
		if err != nil {
			return err
		}
		newID = child.ID
		_, err = tx.WriteAttrib(newID, source.OpSet, "#mode", "000")
		return err
	})
	return newID, err
}

func (e *Engine) nextScratchArc() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scratchSeq++
	return fmt.Sprintf("scratch-%d", e.scratchSeq)
}

// CleanupScratch deletes every leftover child of `.replicator`, the way
// repository startup reallyDeletes whatever a crashed replication left
// behind (§4.3's "startup cleanup").
func (e *Engine) CleanupScratch() error {
	id, exists, _, _, err := e.lookupChild(source.RootLongId(), ".replicator")
	if err != nil || !exists {
		return err
	}
	var arcs []string
	if err := e.Dst.WithRead(func(tx *source.Tx) error {
		o, err := tx.Lookup(id)
		if err != nil {
			return err
		}
		for _, c := range o.Children {
			arcs = append(arcs, c.Arc)
		}
		return nil
	}); err != nil {
		return err
	}
	return e.Dst.WithWrite(func(tx *source.Tx) error {
		for _, a := range arcs {
			if err := tx.RemoveChild(id, a); err != nil {
				return err
			}
		}
		return nil
	})
}

// copyImmutableFile implements the file-copy paths of §4.3: a
// fingerprint match lets it reuse an existing local ShortId without
// reading any content from src at all; otherwise it reads the remote
// content (readWhole, falling back to chunked reads) and verifies size
// before committing.
func (e *Engine) copyImmutableFile(ctx context.Context, src rpc.Client, parentID source.LongId, arc string, srcInfo rpc.ObjectInfo, path []string) (source.LongId, error) {
	fullPath := joinPath(path)

	if srcInfo.File != nil && srcInfo.File.Fingerprint != (fp.Tag{}) {
		if localID, ok := e.findFileByFingerprint(srcInfo.File.Fingerprint); ok {
			var newID source.LongId
			var fingerprint fp.Tag
			err := e.Dst.WithWrite(func(tx *source.Tx) error {
				local, err := tx.Lookup(localID)
				if err != nil {
					return err
				}
				child, err := tx.InsertChild(parentID, arc, source.ImmutableFile)
				if err != nil {
					return err
				}
				newID = child.ID
				*child.File = *local.File
				fingerprint = local.File.Fingerprint
				return nil
			})
			if err != nil {
				return nil, err
			}
			if err := e.Dst.WithWrite(func(tx *source.Tx) error {
				return tx.SetFileFingerprint(newID, fingerprint)
			}); err != nil {
				return nil, err
			}
			return newID, nil
		}
	}

	data, err := e.readFileContent(ctx, src, fullPath, srcInfo)
	if err != nil {
		return nil, err
	}
	if srcInfo.File != nil && int64(len(data)) != srcInfo.File.Size {
		return nil, fmt.Errorf("replication: size mismatch copying %q: got %d want %d", fullPath, len(data), srcInfo.File.Size)
	}
	shortID, err := e.Blobs.WriteBlob(data)
	if err != nil {
		return nil, err // outOfSpace (or any other write failure) surfaces verbatim
	}

	var newID source.LongId
	err = e.Dst.WithWrite(func(tx *source.Tx) error {
		child, err := tx.InsertChild(parentID, arc, source.ImmutableFile)
		if err != nil {
			return err
		}
		newID = child.ID
		child.File.ShortId = shortID
		if srcInfo.File != nil {
			child.File.Size = srcInfo.File.Size
			child.File.Mtime = srcInfo.File.Mtime
			child.File.Executable = srcInfo.File.Executable
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if srcInfo.File != nil {
		if err := e.Dst.WithWrite(func(tx *source.Tx) error {
			return tx.SetFileFingerprint(newID, srcInfo.File.Fingerprint)
		}); err != nil {
			return nil, err
		}
	}
	return newID, nil
}

const readChunkSize = 128 * 1024

// readFileContent prefers one readWhole call, falling back to chunked
// reads on version skew (Unknown proc_id) and remembering peers that
// don't support readWhole for an hour so later transfers skip the probe.
func (e *Engine) readFileContent(ctx context.Context, src rpc.Client, pathname string, srcInfo rpc.ObjectInfo) ([]byte, error) {
	peer := src.HostPort()
	if !e.peerBadForReadWhole(peer) {
		data, err := src.ReadWhole(ctx, pathname)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, rpc.ErrUnknownProcID) {
			return nil, err
		}
		e.markPeerBadForReadWhole(peer)
	}

	var buf []byte
	var offset int64
	size := int64(-1)
	if srcInfo.File != nil {
		size = srcInfo.File.Size
	}
	for {
		chunk, err := src.Read(ctx, pathname, offset, readChunkSize)
		if err != nil {
			return nil, err
		}
		if len(chunk) == 0 {
			break
		}
		buf = append(buf, chunk...)
		offset += int64(len(chunk))
		if size >= 0 && offset >= size {
			break
		}
		if len(chunk) < readChunkSize {
			break
		}
	}
	return buf, nil
}

func (e *Engine) peerBadForReadWhole(peer string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	exp, ok := e.badReadWholePeers[peer]
	if !ok {
		return false
	}
	if e.now() >= exp {
		delete(e.badReadWholePeers, peer)
		return false
	}
	return true
}

func (e *Engine) markPeerBadForReadWhole(peer string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ttl := e.BadPeerTTL
	if ttl == 0 {
		ttl = time.Hour
	}
	e.badReadWholePeers[peer] = e.now() + int64(ttl/time.Second)
}

// copyAttribs replays src's attribute history for path onto dstID in
// order, preserving timestamps (and, by appending in the same relative
// order, the remove-before-add tiebreak for entries sharing one), per
// §4.3's "Attribute replication" and §5's ordering rule.
func (e *Engine) copyAttribs(ctx context.Context, src rpc.Client, path []string, dstID source.LongId, flags Flags) error {
	entries, err := src.AttribEntries(ctx, joinPath(path))
	if err != nil {
		return err
	}
	return e.Dst.WithWrite(func(tx *source.Tx) error {
		for _, ent := range entries {
			if source.IsAccessControl(ent.Name) && !flags.Has(AttrAccess) {
				continue
			}
			if _, err := tx.WriteAttribAt(dstID, ent.Op, ent.Name, ent.Value, ent.Timestamp); err != nil {
				return err
			}
		}
		return nil
	})
}

// replicateLatest replicates the `latest` stub of an appendable
// directory of type package/checkout/session alongside dstID, per
// §4.3's `latest` flag. An appendable directory's kind is carried in
// its `appendable-type` attribute; this port scopes the flag to that
// single attribute name rather than a richer type taxonomy.
func (e *Engine) replicateLatest(ctx context.Context, src rpc.Client, path []string, dstDirID source.LongId) error {
	kinds, err := src.GetAttrib(ctx, joinPath(path), "appendable-type")
	if err != nil {
		return err
	}
	if len(kinds) == 0 {
		return nil
	}
	switch kinds[0] {
	case "package", "checkout", "session":
	default:
		return nil
	}

	latestPath := joinPath(append(append([]string{}, path...), "latest"))
	info, err := src.Lookup(ctx, latestPath)
	if err != nil {
		if errors.Is(err, source.ErrNotFound) {
			return nil
		}
		return err
	}
	if info.Type != source.Stub && info.Type != source.Ghost {
		return nil
	}

	_, exists, _, _, err := e.lookupChild(dstDirID, "latest")
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	newID, err := e.insertChild(dstDirID, "latest", source.Stub)
	if err != nil {
		return err
	}
	symlink, err := src.GetAttrib(ctx, latestPath, "symlink-to")
	if err != nil {
		return err
	}
	val := "$LAST"
	if len(symlink) > 0 {
		val = symlink[0]
	}
	return e.Dst.WithWrite(func(tx *source.Tx) error {
		_, err := tx.WriteAttrib(newID, source.OpSet, "symlink-to", val)
		return err
	})
}
