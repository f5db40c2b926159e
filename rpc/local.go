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

package rpc

import (
	"context"
	"fmt"

	"github.com/vesta-scm/vesta/accesscontrol"
	"github.com/vesta-scm/vesta/source"
)

// BlobReader reads file content by ShortId. vesta/store implements it
// against the content store.
type BlobReader interface {
	ReadBlob(id source.ShortId) ([]byte, error)
}

// LocalClient implements Client directly against a same-process
// Repository, standing in for the network transport (SRPC) the spec
// places out of scope (§1). It is what tests use to exercise the
// mastership and replication protocols without a real second host, and
// what a single-process multi-repository deployment would use for a
// repository it happens to colocate.
type LocalClient struct {
	repo  *source.Repository
	blobs BlobReader
}

// NewLocalClient wraps repo (and, optionally, its blob store) as a
// Client.
func NewLocalClient(repo *source.Repository, blobs BlobReader) *LocalClient {
	return &LocalClient{repo: repo, blobs: blobs}
}

func (c *LocalClient) HostPort() string { return c.repo.HostPort }

func (c *LocalClient) Lookup(_ context.Context, pathname string) (ObjectInfo, error) {
	o, err := c.repo.LookupPath(pathname)
	if err != nil {
		return ObjectInfo{}, err
	}
	return ObjectInfo{
		ID:             o.ID,
		Type:           o.Type,
		Master:         o.Master,
		HostPort:       o.HostPort,
		File:           o.File,
		DirFingerprint: o.DirFingerprint,
	}, nil
}

func (c *LocalClient) GetAttrib(_ context.Context, pathname, name string) ([]string, error) {
	o, err := c.repo.LookupPath(pathname)
	if err != nil {
		return nil, err
	}
	return o.Attribs.Get(name), nil
}

func (c *LocalClient) AttribEntries(_ context.Context, pathname string) ([]source.AttribEntry, error) {
	o, err := c.repo.LookupPath(pathname)
	if err != nil {
		return nil, err
	}
	return o.Attribs.Entries(), nil
}

func (c *LocalClient) WriteAttrib(_ context.Context, pathname string, op source.AttribOp, name, value string) error {
	return c.repo.WithWrite(func(tx *source.Tx) error {
		o, err := tx.LookupPath(pathname)
		if err != nil {
			return err
		}
		_, err = tx.WriteAttrib(o.ID, op, name, value)
		return err
	})
}

func (c *LocalClient) RemoveAttrib(ctx context.Context, pathname, name, value string) error {
	return c.WriteAttrib(ctx, pathname, source.OpRemove, name, value)
}

func (c *LocalClient) List(_ context.Context, pathname string) ([]source.DirEntry, error) {
	o, err := c.repo.LookupPath(pathname)
	if err != nil {
		return nil, err
	}
	if !o.Type.IsDirectory() {
		return nil, source.ErrNotADirectory
	}
	return append([]source.DirEntry(nil), o.Children...), nil
}

func (c *LocalClient) ReadWhole(_ context.Context, pathname string) ([]byte, error) {
	o, err := c.repo.LookupPath(pathname)
	if err != nil {
		return nil, err
	}
	if o.File == nil {
		return nil, source.ErrInappropriateOp
	}
	if c.blobs == nil {
		return nil, source.NewError(source.NotFound, "no blob store configured")
	}
	return c.blobs.ReadBlob(o.File.ShortId)
}

func (c *LocalClient) Read(ctx context.Context, pathname string, offset, length int64) ([]byte, error) {
	whole, err := c.ReadWhole(ctx, pathname)
	if err != nil {
		return nil, err
	}
	if offset >= int64(len(whole)) {
		return nil, nil
	}
	end := offset + length
	if end > int64(len(whole)) {
		end = int64(len(whole))
	}
	return whole[offset:end], nil
}

// CedeMastership implements the source-side C1-C5 steps (§4.2) as a
// single atomic action under the repository's writer lock.
func (c *LocalClient) CedeMastership(_ context.Context, pathname, requestid, dstHostPort string) (string, error) {
	var grantid string
	err := c.repo.WithWrite(func(tx *source.Tx) error {
		obj, err := tx.LookupPath(pathname)
		if err != nil {
			return err
		}
		// C1
		if !obj.Master {
			return source.ErrNotMaster
		}
		if !obj.Access.Check(nil, accesscontrol.Ownership) {
			return source.ErrNoPermission
		}
		if v, _, ok := tx.FindUpward(obj.ID, "#mastership-to"); !ok || (v != "*" && v != dstHostPort) {
			return source.ErrNoPermission
		}

		now := tx.Now()
		// C2
		if _, err := tx.WriteAttrib(obj.ID, source.OpSet, "master-repository", dstHostPort); err != nil {
			return err
		}

		// C3
		var list string
		if obj.Type == source.AppendableDirectory {
			for _, e := range obj.Children {
				child, err := tx.Lookup(e.Child)
				if err != nil {
					continue
				}
				if child.Master {
					if _, err := tx.WriteAttrib(child.ID, source.OpSet, "master-repository", c.HostPort()); err != nil {
						return err
					}
					list += fmt.Sprintf("%s/%s/%d/", e.Arc, c.HostPort(), now)
				} else {
					hint, _ := child.Attribs.GetOne("master-repository")
					ts := child.Attribs.LatestTimestamp("master-repository")
					list += fmt.Sprintf("%s/%s/%d/", e.Arc, hint, ts)
				}
			}
		}

		// C4
		grantid = requestid + " " + list
		if _, err := tx.WriteAttrib(obj.ID, source.OpAdd, "#master-grant", grantid); err != nil {
			return err
		}

		// C5
		return tx.SetMaster(obj.ID, false)
	})
	return grantid, err
}

var _ Client = (*LocalClient)(nil)
