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
	"strings"
	"time"

	"github.com/vesta-scm/vesta/fp"
	"github.com/vesta-scm/vesta/lock"
)

// Repository is the in-memory object tree for one host's share of the
// distributed name space, guarded by a single RWLock exactly as §5
// describes: every read walks the tree under the reader side, every
// mutation happens under the writer side, and nothing reaches into an
// Object's fields outside of one of those brackets.
type Repository struct {
	HostPort   string
	MasterHint string

	lk      *lock.RWLock
	objects map[string]*Object
	nextIdx map[string]uint32
	clock   func() int64

	// fileByFP and dirByFP let replication's immutable-object copy path
	// (§4.3) find a fingerprint match already present locally instead of
	// re-copying content or re-walking a subtree byte for byte.
	fileByFP map[fp.Tag]LongId
	dirByFP  map[fp.Tag]LongId
}

// NewRepository creates a Repository and seeds its root object. clock may
// be nil, in which case time.Now().Unix() is used; tests pass a fixed
// clock to keep attribute-history ordering deterministic.
func NewRepository(hostPort string, clock func() int64) *Repository {
	r := &Repository{
		HostPort: hostPort,
		lk:       lock.New(false),
		objects:  make(map[string]*Object),
		nextIdx:  make(map[string]uint32),
		clock:    clock,
		fileByFP: make(map[fp.Tag]LongId),
		dirByFP:  make(map[fp.Tag]LongId),
	}
	root := &Object{
		ID:      RootLongId(),
		Type:    AppendableDirectory,
		Master:  true,
		Attribs: &AttribHistory{},
	}
	r.objects[root.ID.String()] = root
	return r
}

func (r *Repository) now() int64 {
	if r.clock != nil {
		return r.clock()
	}
	return time.Now().Unix()
}

// Tx is the set of operations available to code running inside a
// WithRead/WithWrite bracket. It never acquires the lock itself: the
// enclosing With* call already holds it for the duration of the callback,
// which is what lets mastership and replication compose several of these
// into one atomic step the way the original's per-step lock bracket does.
type Tx struct {
	r *Repository
}

func (tx *Tx) Now() int64 { return tx.r.now() }

func (tx *Tx) Lookup(id LongId) (*Object, error) {
	o, ok := tx.r.objects[id.String()]
	if !ok {
		return nil, ErrNotFound
	}
	return o, nil
}

func (tx *Tx) LookupPath(path string) (*Object, error) {
	cur, err := tx.Lookup(RootLongId())
	if err != nil {
		return nil, err
	}
	path = strings.Trim(path, "/")
	if path == "" {
		return cur, nil
	}
	for _, arc := range strings.Split(path, "/") {
		childID, ok := cur.childByArc(arc)
		if !ok {
			return nil, ErrNotFound
		}
		next, err := tx.Lookup(childID)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// ChildByArc looks up parentID's child named arc, if any.
func (tx *Tx) ChildByArc(parentID LongId, arc string) (LongId, bool, error) {
	parent, err := tx.Lookup(parentID)
	if err != nil {
		return nil, false, err
	}
	id, ok := parent.childByArc(arc)
	return id, ok, nil
}

// AncestorChain returns the object named by id followed by its
// ancestors up to and including the root, closest first. It is how
// upward-searched attributes (`#mastership-from`, `#mastership-to`,
// `#replicate-from`) are resolved: each is looked for on this object,
// then its parent, and so on.
func (tx *Tx) AncestorChain(id LongId) ([]*Object, error) {
	var chain []*Object
	cur := id
	for {
		o, err := tx.Lookup(cur)
		if err != nil {
			return nil, err
		}
		chain = append(chain, o)
		parent, ok := cur.Parent()
		if !ok {
			return chain, nil
		}
		cur = parent
	}
}

// FindUpward returns the first value of attribute name found by
// searching id then its ancestors toward the root, plus the object at
// which it was found.
func (tx *Tx) FindUpward(id LongId, name string) (string, *Object, bool) {
	chain, err := tx.AncestorChain(id)
	if err != nil {
		return "", nil, false
	}
	for _, o := range chain {
		if v, ok := o.Attribs.GetOne(name); ok {
			return v, o, true
		}
	}
	return "", nil, false
}

// InsertChild creates a fresh child of parentID named arc, of type typ,
// and links it into the parent's arc table. It fails with
// ErrInappropriateOp if parentID does not name a directory and
// ErrNameInUse if arc is already taken.
func (tx *Tx) InsertChild(parentID LongId, arc string, typ TypeTag) (*Object, error) {
	parent, err := tx.Lookup(parentID)
	if err != nil {
		return nil, err
	}
	if !parent.Type.IsDirectory() {
		return nil, ErrInappropriateOp
	}
	if parent.Type == ImmutableDirectory {
		return nil, ErrNoPermission
	}
	if _, exists := parent.childByArc(arc); exists {
		return nil, ErrNameInUse
	}

	idx := tx.r.nextIdx[parentID.String()]
	tx.r.nextIdx[parentID.String()] = idx + 1
	childID, err := parentID.Child(idx)
	if err != nil {
		return nil, err
	}

	// A freshly created object starts mastered at the repository that
	// created it, independent of whether its parent stays master; C3
	// relies on this to tell "child still mastered here" apart from
	// "child's mastery already lives elsewhere" when building a grant's
	// child-hint list.
	child := &Object{
		ID:       childID,
		Type:     typ,
		Master:   true,
		HostPort: tx.r.HostPort,
		Attribs:  &AttribHistory{},
	}
	if typ == ImmutableFile || typ == MutableFile {
		child.File = &FileInfo{}
	}
	tx.r.objects[childID.String()] = child
	parent.Children = append(parent.Children, DirEntry{Arc: arc, Child: childID})
	return child, nil
}

// RemoveChild unlinks arc from parentID's arc table. The child object
// itself is left in place (other LongIds, notably those held by in-flight
// replication, may still reference it); only the name binding is removed.
func (tx *Tx) RemoveChild(parentID LongId, arc string) error {
	parent, err := tx.Lookup(parentID)
	if err != nil {
		return err
	}
	if !parent.Type.IsDirectory() {
		return ErrInappropriateOp
	}
	if _, exists := parent.childByArc(arc); !exists {
		return ErrNotFound
	}
	parent.removeChildArc(arc)
	return nil
}

// SetMaster sets or clears id's master flag.
func (tx *Tx) SetMaster(id LongId, master bool) error {
	o, err := tx.Lookup(id)
	if err != nil {
		return err
	}
	o.Master = master
	return nil
}

// WriteAttrib appends one attribute-history entry for id, stamped with
// tx.Now().
func (tx *Tx) WriteAttrib(id LongId, op AttribOp, name, value string) (AttribEntry, error) {
	o, err := tx.Lookup(id)
	if err != nil {
		return AttribEntry{}, err
	}
	return o.Attribs.Write(op, name, value, tx.Now()), nil
}

// WriteAttribAt is WriteAttrib with an explicit timestamp, used when
// propagating a hint that must keep the timestamp it was recorded with
// upstream rather than being re-stamped with the local clock.
func (tx *Tx) WriteAttribAt(id LongId, op AttribOp, name, value string, ts int64) (AttribEntry, error) {
	o, err := tx.Lookup(id)
	if err != nil {
		return AttribEntry{}, err
	}
	return o.Attribs.Write(op, name, value, ts), nil
}

// SetFileFingerprint records fingerprint as id's content identity and
// indexes it for FindFileByFingerprint. id must name a file.
func (tx *Tx) SetFileFingerprint(id LongId, fingerprint fp.Tag) error {
	o, err := tx.Lookup(id)
	if err != nil {
		return err
	}
	if o.File == nil {
		return ErrInappropriateOp
	}
	o.File.Fingerprint = fingerprint
	tx.r.fileByFP[fingerprint] = id
	return nil
}

// FindFileByFingerprint returns a local file object with the given
// content fingerprint, if one has been indexed.
func (tx *Tx) FindFileByFingerprint(fingerprint fp.Tag) (*Object, bool) {
	id, ok := tx.r.fileByFP[fingerprint]
	if !ok {
		return nil, false
	}
	o, err := tx.Lookup(id)
	if err != nil {
		return nil, false
	}
	return o, true
}

// FreezeDirectory converts a MutableDirectory scratch copy into an
// ImmutableDirectory carrying fingerprint as its frozen identity,
// implementing §4.3's "insertImmutableDirectory" step.
func (tx *Tx) FreezeDirectory(id LongId, fingerprint fp.Tag) error {
	o, err := tx.Lookup(id)
	if err != nil {
		return err
	}
	if o.Type != MutableDirectory {
		return ErrInappropriateOp
	}
	o.Type = ImmutableDirectory
	o.DirFingerprint = fingerprint
	tx.r.dirByFP[fingerprint] = id
	return nil
}

// FindImmutableDirectoryByFingerprint returns a local immutable
// directory with the given fingerprint, if one has been indexed.
func (tx *Tx) FindImmutableDirectoryByFingerprint(fingerprint fp.Tag) (*Object, bool) {
	id, ok := tx.r.dirByFP[fingerprint]
	if !ok {
		return nil, false
	}
	o, err := tx.Lookup(id)
	if err != nil {
		return nil, false
	}
	return o, true
}

// GetAttrib returns id's current multiset of values for name.
func (tx *Tx) GetAttrib(id LongId, name string) ([]string, error) {
	o, err := tx.Lookup(id)
	if err != nil {
		return nil, err
	}
	return o.Attribs.Get(name), nil
}

// WithRead runs fn with the repository's reader lock held.
func (r *Repository) WithRead(fn func(tx *Tx) error) error {
	r.lk.AcquireRead()
	defer r.lk.ReleaseRead()
	return fn(&Tx{r: r})
}

// WithWrite runs fn with the repository's writer lock held.
func (r *Repository) WithWrite(fn func(tx *Tx) error) error {
	r.lk.AcquireWrite()
	defer r.lk.ReleaseWrite()
	return fn(&Tx{r: r})
}

// Lookup is the single-call convenience form of a read-only Tx.Lookup.
func (r *Repository) Lookup(id LongId) (*Object, error) {
	var o *Object
	err := r.WithRead(func(tx *Tx) error {
		got, err := tx.Lookup(id)
		if err != nil {
			return err
		}
		o = got
		return nil
	})
	return o, err
}

// LookupPath is the single-call convenience form of a read-only
// Tx.LookupPath.
func (r *Repository) LookupPath(path string) (*Object, error) {
	var o *Object
	err := r.WithRead(func(tx *Tx) error {
		got, err := tx.LookupPath(path)
		if err != nil {
			return err
		}
		o = got
		return nil
	})
	return o, err
}
