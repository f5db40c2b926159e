package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t int64) func() int64 {
	return func() int64 { return t }
}

func TestNewRepositoryHasRoot(t *testing.T) {
	r := NewRepository("localhost:8000", fixedClock(1))
	root, err := r.Lookup(RootLongId())
	require.NoError(t, err)
	assert.True(t, root.Master)
	assert.Equal(t, AppendableDirectory, root.Type)
}

func TestInsertChildAndLookupPath(t *testing.T) {
	r := NewRepository("localhost:8000", fixedClock(1))
	var child *Object
	err := r.WithWrite(func(tx *Tx) error {
		c, err := tx.InsertChild(RootLongId(), "src", AppendableDirectory)
		if err != nil {
			return err
		}
		child = c
		_, err = tx.InsertChild(child.ID, "main.go", ImmutableFile)
		return err
	})
	require.NoError(t, err)

	got, err := r.LookupPath("src/main.go")
	require.NoError(t, err)
	assert.Equal(t, ImmutableFile, got.Type)
}

func TestInsertChildNameInUse(t *testing.T) {
	r := NewRepository("localhost:8000", fixedClock(1))
	err := r.WithWrite(func(tx *Tx) error {
		_, err := tx.InsertChild(RootLongId(), "dup", ImmutableFile)
		return err
	})
	require.NoError(t, err)

	err = r.WithWrite(func(tx *Tx) error {
		_, err := tx.InsertChild(RootLongId(), "dup", ImmutableFile)
		return err
	})
	assert.ErrorIs(t, err, ErrNameInUse)
}

func TestInsertChildIntoFileFails(t *testing.T) {
	r := NewRepository("localhost:8000", fixedClock(1))
	var file *Object
	err := r.WithWrite(func(tx *Tx) error {
		f, err := tx.InsertChild(RootLongId(), "f", ImmutableFile)
		file = f
		return err
	})
	require.NoError(t, err)

	err = r.WithWrite(func(tx *Tx) error {
		_, err := tx.InsertChild(file.ID, "nope", ImmutableFile)
		return err
	})
	assert.ErrorIs(t, err, ErrInappropriateOp)
}

func TestWriteAttribAndSetMasterUnderOneWriteBracket(t *testing.T) {
	r := NewRepository("localhost:8000", fixedClock(42))
	err := r.WithWrite(func(tx *Tx) error {
		if _, err := tx.WriteAttrib(RootLongId(), OpSet, "master-repository", "otherhost:9000"); err != nil {
			return err
		}
		return tx.SetMaster(RootLongId(), false)
	})
	require.NoError(t, err)

	root, err := r.Lookup(RootLongId())
	require.NoError(t, err)
	assert.False(t, root.Master)
	v, ok := root.Attribs.GetOne("master-repository")
	assert.True(t, ok)
	assert.Equal(t, "otherhost:9000", v)
}

func TestRemoveChildUnlinksArcOnly(t *testing.T) {
	r := NewRepository("localhost:8000", fixedClock(1))
	err := r.WithWrite(func(tx *Tx) error {
		_, err := tx.InsertChild(RootLongId(), "gone", ImmutableFile)
		return err
	})
	require.NoError(t, err)

	err = r.WithWrite(func(tx *Tx) error {
		return tx.RemoveChild(RootLongId(), "gone")
	})
	require.NoError(t, err)

	_, err = r.LookupPath("gone")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLookupPathNotFound(t *testing.T) {
	r := NewRepository("localhost:8000", fixedClock(1))
	_, err := r.LookupPath("nope/at/all")
	assert.ErrorIs(t, err, ErrNotFound)
}
