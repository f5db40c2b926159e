package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vesta-scm/vesta/source"
)

func TestWriteThenReadBlobRoundTrips(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	id, err := s.WriteBlob([]byte("hello world"))
	require.NoError(t, err)

	got, err := s.ReadBlob(id)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(got))
}

func TestReadMissingBlobReturnsNotFound(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	_, err = s.ReadBlob(source.ShortId(999))
	require.Error(t, err)
	code, ok := source.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, source.NotFound, code)
}

func TestDistinctWritesGetDistinctShortIds(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	id1, err := s.WriteBlob([]byte("one"))
	require.NoError(t, err)
	id2, err := s.WriteBlob([]byte("two"))
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)
}
