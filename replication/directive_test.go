package replication

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDirectivesRejectsBadSign(t *testing.T) {
	_, err := ParseDirectives([]RawDirective{{Sign: '!', Pattern: "foo"}})
	assert.Error(t, err)
}

func TestMatchHereIncludeAllThenExclude(t *testing.T) {
	seq, err := ParseDirectives([]RawDirective{
		{Sign: '+', Pattern: ""},
		{Sign: '-', Pattern: "tmp"},
	})
	require.NoError(t, err)

	assert.True(t, seq.MatchHere(nil, nil))
	assert.True(t, seq.MatchHere([]string{"src"}, nil))
	assert.False(t, seq.MatchHere([]string{"tmp"}, nil))
}

func TestMatchHereLastDirectiveWins(t *testing.T) {
	seq, err := ParseDirectives([]RawDirective{
		{Sign: '+', Pattern: "src/foo.c"},
		{Sign: '-', Pattern: "/src/foo.c"},
		{Sign: '+', Pattern: "/src/foo.c"},
	})
	require.NoError(t, err)
	assert.True(t, seq.MatchHere([]string{"src", "foo.c"}, nil))
}

func TestRelativeMinusExpandsAgainstLastPlusDir(t *testing.T) {
	seq, err := ParseDirectives([]RawDirective{
		{Sign: '+', Pattern: "src/lib/*.c"},
		{Sign: '-', Pattern: "foo.c"},
	})
	require.NoError(t, err)
	assert.Equal(t, "src/lib/foo.c", seq[1].Raw)
	assert.True(t, seq.MatchHere([]string{"src", "lib", "bar.c"}, nil))
	assert.False(t, seq.MatchHere([]string{"src", "lib", "foo.c"}, nil))
}

func TestChildDirectivesPrunesUnrelatedSubtrees(t *testing.T) {
	seq, err := ParseDirectives([]RawDirective{
		{Sign: '+', Pattern: "src/lib/foo.c"},
	})
	require.NoError(t, err)

	children := seq.ChildDirectives([]string{"other"}, nil)
	assert.Empty(t, children)

	children = seq.ChildDirectives([]string{"src"}, nil)
	assert.Len(t, children, 1)
}

func TestChildDirectivesKeepsEmptyPatternAtEveryDepth(t *testing.T) {
	seq, err := ParseDirectives([]RawDirective{
		{Sign: '+', Pattern: ""},
	})
	require.NoError(t, err)

	children := seq.ChildDirectives([]string{"a", "b", "c"}, nil)
	require.Len(t, children, 1)
	assert.True(t, children.MatchHere([]string{"a", "b", "c", "d"}, nil))
}
