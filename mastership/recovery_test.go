package mastership

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vesta-scm/vesta/fp"
	"github.com/vesta-scm/vesta/rpc"
	"github.com/vesta-scm/vesta/source"
	"github.com/vesta-scm/vesta/txlog"
)

// TestRecoveryR1NoGrantDiscards simulates a crash right after A2: the
// destination holds a bare requestid in #master-request and the journal
// has an unmatched acqm, but the source was never actually asked to
// cede (no #master-grant exists there). Recovery should clean up
// locally (R1) without contacting anything further.
func TestRecoveryR1NoGrantDiscards(t *testing.T) {
	srcRepo := source.NewRepository("src.example:8000", fixedClock(100))
	src := rpc.NewLocalClient(srcRepo, nil)

	dstRepo := source.NewRepository("dst.example:9000", fixedClock(200))
	reqid := NewRequestID(fp.Init([]byte("recovery-test")), 50, "src.example:8000", "dst.example:9000")
	require.NoError(t, dstRepo.WithWrite(func(tx *source.Tx) error {
		if err := tx.SetMaster(source.RootLongId(), false); err != nil {
			return err
		}
		_, err := tx.WriteAttrib(source.RootLongId(), source.OpAdd, "#master-request", reqid.String())
		return err
	}))

	var journal bytes.Buffer
	logw := txlog.NewWriter(&journal)
	a := &Acquirer{Dst: dstRepo, Log: logw, Clock: fixedClock(300)}
	rec := txlog.Record{Kind: txlog.Acqm, Pathname: "", ID: reqid.String()}

	r := &Recoverer{
		Acquirer: a,
		Dial: func(hostPort string) (rpc.Client, error) {
			assert.Equal(t, "src.example:8000", hostPort)
			return src, nil
		},
	}
	require.NoError(t, r.Run(context.Background(), []txlog.Record{rec}))

	root, err := dstRepo.Lookup(source.RootLongId())
	require.NoError(t, err)
	_, ok := root.Attribs.GetOne("#master-request")
	assert.False(t, ok)
	assert.Contains(t, journal.String(), "finm")
}

// TestRecoveryOneItemPermanentFailureDoesNotAbortSiblings sets one
// pending transfer up to fail permanently (a requestid `ParseRequestID`
// can't decode) alongside a second, healthy R1-style transfer. The
// healthy sibling must still run to completion: Run must not share a
// canceling context across items.
func TestRecoveryOneItemPermanentFailureDoesNotAbortSiblings(t *testing.T) {
	srcRepo := source.NewRepository("src.example:8000", fixedClock(100))
	src := rpc.NewLocalClient(srcRepo, nil)

	dstRepo := source.NewRepository("dst.example:9000", fixedClock(200))
	reqid := NewRequestID(fp.Init([]byte("recovery-test")), 50, "src.example:8000", "dst.example:9000")
	var childID source.LongId
	require.NoError(t, dstRepo.WithWrite(func(tx *source.Tx) error {
		if err := tx.SetMaster(source.RootLongId(), false); err != nil {
			return err
		}
		if _, err := tx.WriteAttrib(source.RootLongId(), source.OpAdd, "#master-request", reqid.String()); err != nil {
			return err
		}
		child, err := tx.InsertChild(source.RootLongId(), "broken", source.MutableDirectory)
		if err != nil {
			return err
		}
		childID = child.ID
		if err := tx.SetMaster(childID, false); err != nil {
			return err
		}
		_, err = tx.WriteAttrib(childID, source.OpAdd, "#master-request", "garbage")
		return err
	}))

	var journal bytes.Buffer
	logw := txlog.NewWriter(&journal)
	a := &Acquirer{Dst: dstRepo, Log: logw, Clock: fixedClock(300)}

	r := &Recoverer{
		Acquirer: a,
		Dial: func(hostPort string) (rpc.Client, error) {
			return src, nil
		},
	}
	pending := []txlog.Record{
		{Kind: txlog.Acqm, Pathname: "broken", ID: "garbage"},
		{Kind: txlog.Acqm, Pathname: "", ID: reqid.String()},
	}
	err := r.Run(context.Background(), pending)
	assert.Error(t, err) // the "broken" record's permanent failure surfaces

	root, err := dstRepo.Lookup(source.RootLongId())
	require.NoError(t, err)
	_, ok := root.Attribs.GetOne("#master-request")
	assert.False(t, ok, "the healthy sibling must still be cleaned up despite the other item's failure")
	assert.Contains(t, journal.String(), "finm")
}
