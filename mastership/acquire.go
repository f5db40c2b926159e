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

package mastership

import (
	"context"
	"errors"
	"fmt"

	"github.com/vesta-scm/vesta/accesscontrol"
	"github.com/vesta-scm/vesta/fp"
	"github.com/vesta-scm/vesta/rpc"
	"github.com/vesta-scm/vesta/source"
	"github.com/vesta-scm/vesta/txlog"
)

// Acquirer runs the destination side of the mastership transfer
// protocol (A1-A6) against a local Repository.
type Acquirer struct {
	Dst   *source.Repository
	Log   *txlog.Writer
	Clock func() int64
	// UniqueID mints a fresh unique id for each transfer; defaults to
	// fp.UniqueID.
	UniqueID func() fp.Tag
}

func (a *Acquirer) now() int64 {
	if a.Clock != nil {
		return a.Clock()
	}
	return 0
}

func (a *Acquirer) uid() fp.Tag {
	if a.UniqueID != nil {
		return a.UniqueID()
	}
	return fp.UniqueID()
}

// Acquire runs A1-A6 for pathname, acquiring mastership from src.
func (a *Acquirer) Acquire(ctx context.Context, pathname string, src rpc.Client, who *accesscontrol.Identity) error {
	// A1
	srcInfo, err := src.Lookup(ctx, pathname)
	if err != nil {
		return err
	}
	if !srcInfo.Master {
		return source.ErrNotMaster
	}
	if !ValidHostPort(src.HostPort()) {
		return source.NewErrorf(source.InvalidArgs, "malformed source host:port %q", src.HostPort())
	}
	if !ValidHostPort(a.Dst.HostPort) {
		return source.NewErrorf(source.InvalidArgs, "malformed destination host:port %q", a.Dst.HostPort)
	}

	// A2
	reqid := NewRequestID(a.uid(), a.now(), src.HostPort(), a.Dst.HostPort)
	var dstObjID source.LongId
	err = a.Dst.WithWrite(func(tx *source.Tx) error {
		obj, err := tx.LookupPath(pathname)
		if err != nil {
			return err
		}
		if obj.Master {
			return nil // already master: ok, nothing further to do
		}
		if !TypeCheck(srcInfo.Type, obj.Type) {
			return source.ErrInappropriateOp
		}
		if !obj.Access.Check(who, accesscontrol.Ownership) {
			return source.ErrNoPermission
		}
		if v, _, ok := tx.FindUpward(obj.ID, "#mastership-from"); !ok || (v != "*" && v != src.HostPort()) {
			return source.ErrNoPermission
		}
		if _, err := tx.WriteAttrib(obj.ID, source.OpAdd, "#master-request", reqid.String()); err != nil {
			return err
		}
		dstObjID = obj.ID
		return nil
	})
	if err != nil {
		return err
	}
	if dstObjID == nil {
		// Already master; A2 short-circuited.
		return nil
	}
	if a.Log != nil {
		if err := a.Log.LogAcqm(pathname, reqid.String()); err != nil {
			return err
		}
	}

	// A3
	grantid, err := src.CedeMastership(ctx, pathname, reqid.String(), a.Dst.HostPort)
	if err != nil {
		if errors.Is(err, rpc.ErrTransport) {
			return err // caller schedules recovery; #master-request stays in place
		}
		return a.abortA3x(pathname, dstObjID, reqid.String(), err)
	}

	// A4
	if err := a.acceptMastership(srcInfo, dstObjID, reqid, grantid); err != nil {
		return err
	}

	// A5
	if err := src.RemoveAttrib(ctx, pathname, "#master-grant", grantid); err != nil {
		if errors.Is(err, rpc.ErrTransport) {
			return err // caller schedules recovery; #master-request(grantid) stays in place
		}
		return err
	}

	// A6
	return a.Dst.WithWrite(func(tx *source.Tx) error {
		if _, err := tx.WriteAttrib(dstObjID, source.OpRemove, "#master-request", grantid); err != nil {
			return err
		}
		if a.Log != nil {
			return a.Log.LogFinm(pathname, grantid)
		}
		return nil
	})
}

// abortA3x implements A3x: remove the pending request and close the
// journal entry with the logical error src.CedeMastership returned.
func (a *Acquirer) abortA3x(pathname string, dstObjID source.LongId, reqid string, cause error) error {
	err := a.Dst.WithWrite(func(tx *source.Tx) error {
		_, err := tx.WriteAttrib(dstObjID, source.OpRemove, "#master-request", reqid)
		return err
	})
	if err != nil {
		return fmt.Errorf("mastership: A3x cleanup failed: %w (original error: %v)", err, cause)
	}
	if a.Log != nil {
		if err := a.Log.LogFinm(pathname, reqid); err != nil {
			return err
		}
	}
	return cause
}

// acceptMastership is A4.
func (a *Acquirer) acceptMastership(srcInfo rpc.ObjectInfo, dstObjID source.LongId, reqid RequestID, grantid string) error {
	_, hints, err := SplitGrantID(grantid)
	if err != nil {
		return err
	}
	return a.Dst.WithWrite(func(tx *source.Tx) error {
		obj, err := tx.Lookup(dstObjID)
		if err != nil {
			return err
		}
		if !TypeCheck(srcInfo.Type, obj.Type) {
			return source.ErrInappropriateOp
		}
		if v, ok := obj.Attribs.GetOne("#master-request"); !ok || v != reqid.String() {
			return source.NewError(source.InvalidArgs, "accept: #master-request does not match requestid")
		}

		if obj.Type == source.AppendableDirectory {
			for _, h := range hints {
				childID, exists, err := tx.ChildByArc(obj.ID, h.Arc)
				if err != nil {
					return err
				}
				if !exists {
					child, err := tx.InsertChild(obj.ID, h.Arc, source.Stub)
					if err != nil {
						return err
					}
					// InsertChild defaults a new object to master-here,
					// right for an ordinary create but wrong for a stub
					// standing in for a child we've never seen: it is
					// nonmaster until a hint or later transfer says
					// otherwise.
					if err := tx.SetMaster(child.ID, false); err != nil {
						return err
					}
					childID = child.ID
				}
				child, err := tx.Lookup(childID)
				if err != nil {
					return err
				}
				if child.Master {
					if _, err := tx.WriteAttrib(childID, source.OpClear, "master-repository", ""); err != nil {
						return err
					}
					continue
				}
				if child.Attribs.LatestTimestamp("master-repository") > h.Timestamp {
					continue // pre-existing hint is newer: it dominates
				}
				if _, err := tx.WriteAttribAt(childID, source.OpSet, "master-repository", h.Hint, h.Timestamp); err != nil {
					return err
				}
			}
		}

		if _, err := tx.WriteAttrib(obj.ID, source.OpRemove, "#master-request", reqid.String()); err != nil {
			return err
		}
		if _, err := tx.WriteAttrib(obj.ID, source.OpAdd, "#master-request", grantid); err != nil {
			return err
		}
		return tx.SetMaster(obj.ID, true)
	})
}
