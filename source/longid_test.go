package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestRootLongId(t *testing.T) {
	root := RootLongId()
	assert.True(t, root.IsRoot())
	_, ok := root.Parent()
	assert.False(t, ok)
}

func TestChildParentRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		idx := rapid.Uint32Range(0, 1<<20).Draw(rt, "idx")
		child, err := RootLongId().Child(idx)
		require.NoError(rt, err)
		assert.False(rt, child.IsRoot())

		parent, ok := child.Parent()
		require.True(rt, ok)
		assert.True(rt, parent.Equal(RootLongId()))

		indices := child.Indices()
		require.Len(rt, indices, 1)
		assert.Equal(rt, idx, indices[0])
	})
}

func TestIsAncestorOf(t *testing.T) {
	root := RootLongId()
	a, err := root.Child(3)
	require.NoError(t, err)
	b, err := a.Child(7)
	require.NoError(t, err)
	c, err := root.Child(4)
	require.NoError(t, err)

	assert.True(t, root.IsAncestorOf(a))
	assert.True(t, root.IsAncestorOf(b))
	assert.True(t, a.IsAncestorOf(b))
	assert.False(t, a.IsAncestorOf(c))
	assert.False(t, b.IsAncestorOf(a))
	assert.True(t, root.IsAncestorOf(root))
}

func TestChildOverflow(t *testing.T) {
	id := RootLongId()
	var err error
	for i := 0; i < MaxLongIdBytes*2; i++ {
		id, err = id.Child(1 << 30)
		if err != nil {
			break
		}
	}
	assert.ErrorIs(t, err, ErrLongIdOverflow)
}

func TestDeepChildChainIndices(t *testing.T) {
	id := RootLongId()
	want := []uint32{1, 2, 3, 127, 128, 16384}
	for _, idx := range want {
		var err error
		id, err = id.Child(idx)
		require.NoError(t, err)
	}
	assert.Equal(t, want, id.Indices())
}
