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
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/vesta-scm/vesta/rpc"
	"github.com/vesta-scm/vesta/source"
	"github.com/vesta-scm/vesta/txlog"
)

// DefaultIdleSleep is the value Recoverer.Idle falls back to when unset.
// Nothing in this package sleeps on it: Run makes a single pass.
const DefaultIdleSleep = time.Hour

// Dialer resolves a "host:port" string to a Client for that peer.
type Dialer func(hostPort string) (rpc.Client, error)

// Recoverer drains the queue of mastership transfers interrupted by a
// crash, resuming each at the step its local journal and attribute
// state indicate (R1-R4).
type Recoverer struct {
	Acquirer *Acquirer
	Dial     Dialer
	Idle     time.Duration

	// MaxConcurrent bounds how many pending transfers are resumed at
	// once; 0 means unbounded.
	MaxConcurrent int
}

func (r *Recoverer) idle() time.Duration {
	if r.Idle > 0 {
		return r.Idle
	}
	return DefaultIdleSleep
}

// Run drains pending once, retrying each item on transport failure with
// exponential backoff and giving up (after logging finm) on logical
// failure. It returns once every item has either completed or been
// permanently abandoned. Run does not wait for or pick up new work, and
// does not consult r.Idle.
func (r *Recoverer) Run(ctx context.Context, pending []txlog.Record) error {
	// A plain errgroup.Group, not errgroup.WithContext: each pending
	// transfer must run to completion or permanent failure independently
	// (Design Notes §9), so one item's backoff.Permanent error can't be
	// allowed to cancel a context shared by its siblings — that would
	// abort healthy in-flight transfers and misreport them as failed.
	var g errgroup.Group
	if r.MaxConcurrent > 0 {
		g.SetLimit(r.MaxConcurrent)
	}
	for _, rec := range pending {
		rec := rec
		g.Go(func() error {
			return r.resumeWithRetry(ctx, rec)
		})
	}
	return g.Wait()
}

func (r *Recoverer) resumeWithRetry(ctx context.Context, rec txlog.Record) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 0 // retry indefinitely on transport failure, per §4.2
	return backoff.Retry(func() error {
		err := r.resumeOne(ctx, rec)
		if err == nil {
			return nil
		}
		if errors.Is(err, rpc.ErrTransport) {
			return err // retried by backoff.Retry
		}
		if logErr := r.Acquirer.logFinm(rec.Pathname, rec.ID); logErr != nil {
			return backoff.Permanent(errors.Join(err, logErr))
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(bo, ctx))
}

func (r *Recoverer) resumeOne(ctx context.Context, rec txlog.Record) error {
	a := r.Acquirer
	obj, err := a.Dst.LookupPath(rec.Pathname)
	if err != nil {
		return nil // object is gone locally; nothing to resume
	}

	current, ok := obj.Attribs.GetOne("#master-request")
	if !ok {
		// User manually cleared it.
		return a.logFinm(rec.Pathname, rec.ID)
	}

	reqid, err := ParseRequestID(rec.ID)
	if err != nil {
		return err
	}
	src, err := r.Dial(reqid.SrcHostPort)
	if err != nil {
		return &rpc.TransportError{Peer: reqid.SrcHostPort, Err: err}
	}

	grantValues, err := src.GetAttrib(ctx, rec.Pathname, "#master-grant")
	if err != nil {
		return err // may be a *rpc.TransportError; caller retries
	}
	var matchedGrant string
	for _, v := range grantValues {
		if strings.HasPrefix(v, rec.ID) {
			matchedGrant = v
			break
		}
	}
	hasGrant := matchedGrant != ""
	haveRequestID := current == rec.ID

	switch {
	case !hasGrant && haveRequestID: // R1
		err := a.Dst.WithWrite(func(tx *source.Tx) error {
			_, err := tx.WriteAttrib(obj.ID, source.OpRemove, "#master-request", rec.ID)
			return err
		})
		if err != nil {
			return err
		}
		return a.logFinm(rec.Pathname, rec.ID)
	case hasGrant && haveRequestID: // R2: resume at A4
		srcInfo, err := src.Lookup(ctx, rec.Pathname)
		if err != nil {
			return err
		}
		if err := a.acceptMastership(srcInfo, obj.ID, reqid, matchedGrant); err != nil {
			return err
		}
		return r.finishA5A6(ctx, src, rec.Pathname, obj.ID, matchedGrant)
	case hasGrant && !haveRequestID: // R3: resume at A5
		return r.finishA5A6(ctx, src, rec.Pathname, obj.ID, current)
	default: // R4: !hasGrant && !haveRequestID, local already holds grantid
		err := a.Dst.WithWrite(func(tx *source.Tx) error {
			_, err := tx.WriteAttrib(obj.ID, source.OpRemove, "#master-request", current)
			return err
		})
		if err != nil {
			return err
		}
		return a.logFinm(rec.Pathname, current)
	}
}

func (r *Recoverer) finishA5A6(ctx context.Context, src rpc.Client, pathname string, objID source.LongId, grantid string) error {
	if err := src.RemoveAttrib(ctx, pathname, "#master-grant", grantid); err != nil {
		return err
	}
	a := r.Acquirer
	err := a.Dst.WithWrite(func(tx *source.Tx) error {
		_, err := tx.WriteAttrib(objID, source.OpRemove, "#master-request", grantid)
		return err
	})
	if err != nil {
		return err
	}
	return a.logFinm(pathname, grantid)
}

// logFinm appends a finm record if a.Log is configured.
func (a *Acquirer) logFinm(pathname, id string) error {
	if a.Log == nil {
		return nil
	}
	return a.Log.LogFinm(pathname, id)
}
