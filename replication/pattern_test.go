package replication

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlagsHas(t *testing.T) {
	f := AttrNew | Revive
	assert.True(t, f.Has(AttrNew))
	assert.True(t, f.Has(Revive))
	assert.False(t, f.Has(AttrOld))
	assert.False(t, NoFlags.Has(AttrNew))
}

func TestCompileMatchesExactlyBasicArcs(t *testing.T) {
	p, err := Compile("src/*/foo.c")
	require.NoError(t, err)
	assert.True(t, p.MatchesExactly([]string{"src", "anything", "foo.c"}, nil))
	assert.False(t, p.MatchesExactly([]string{"src", "foo.c"}, nil))
	assert.False(t, p.MatchesExactly([]string{"src", "a", "b", "foo.c"}, nil))
}

func TestCompileQuestionAndHash(t *testing.T) {
	p, err := Compile("foo?.c")
	require.NoError(t, err)
	assert.True(t, p.MatchesExactly([]string{"foo1.c"}, nil))
	assert.False(t, p.MatchesExactly([]string{"foo12.c"}, nil))

	p2, err := Compile("v#")
	require.NoError(t, err)
	assert.True(t, p2.MatchesExactly([]string{"v123"}, nil))
	assert.True(t, p2.MatchesExactly([]string{"v"}, nil))
	assert.False(t, p2.MatchesExactly([]string{"vabc"}, nil))
}

func TestCompileCharClass(t *testing.T) {
	p, err := Compile("[abc].c")
	require.NoError(t, err)
	assert.True(t, p.MatchesExactly([]string{"a.c"}, nil))
	assert.False(t, p.MatchesExactly([]string{"d.c"}, nil))
}

func TestCompileAlternation(t *testing.T) {
	p, err := Compile("{foo,bar,baz}.c")
	require.NoError(t, err)
	assert.True(t, p.MatchesExactly([]string{"foo.c"}, nil))
	assert.True(t, p.MatchesExactly([]string{"bar.c"}, nil))
	assert.False(t, p.MatchesExactly([]string{"qux.c"}, nil))
}

func TestCompileNestedAlternationAndClass(t *testing.T) {
	p, err := Compile("{[ab]c,de}.o")
	require.NoError(t, err)
	assert.True(t, p.MatchesExactly([]string{"ac.o"}, nil))
	assert.True(t, p.MatchesExactly([]string{"bc.o"}, nil))
	assert.True(t, p.MatchesExactly([]string{"de.o"}, nil))
	assert.False(t, p.MatchesExactly([]string{"fc.o"}, nil))
}

func TestCompileRepeatArcMatchesZeroOrMoreConsecutiveArcs(t *testing.T) {
	p, err := Compile("src/%*/foo.c")
	require.NoError(t, err)
	assert.True(t, p.MatchesExactly([]string{"src", "foo.c"}, nil))
	assert.True(t, p.MatchesExactly([]string{"src", "a", "foo.c"}, nil))
	assert.True(t, p.MatchesExactly([]string{"src", "a", "b", "c", "foo.c"}, nil))
	assert.False(t, p.MatchesExactly([]string{"other", "foo.c"}, nil))
}

func TestCompileRepeatArcWithNarrowerMatch(t *testing.T) {
	p, err := Compile("src/%v#/leaf")
	require.NoError(t, err)
	assert.True(t, p.MatchesExactly([]string{"src", "v1", "v2", "leaf"}, nil))
	assert.False(t, p.MatchesExactly([]string{"src", "v1", "oops", "leaf"}, nil))
}

type fixedBounds struct {
	first, last, dfirst, dlast int64
}

func (b fixedBounds) First() (int64, bool)  { return b.first, true }
func (b fixedBounds) Last() (int64, bool)   { return b.last, true }
func (b fixedBounds) DFirst() (int64, bool) { return b.dfirst, true }
func (b fixedBounds) DLast() (int64, bool)  { return b.dlast, true }

func TestCompileNumericRangeWholeArc(t *testing.T) {
	p, err := Compile("[10,20]")
	require.NoError(t, err)
	assert.True(t, p.MatchesExactly([]string{"15"}, nil))
	assert.False(t, p.MatchesExactly([]string{"25"}, nil))
	assert.False(t, p.MatchesExactly([]string{"abc"}, nil))
}

func TestCompileNumericRangeWithBoundTokens(t *testing.T) {
	p, err := Compile("[FIRST,LAST-1]")
	require.NoError(t, err)
	b := fixedBounds{first: 5, last: 10}
	assert.True(t, p.MatchesExactly([]string{"5"}, b))
	assert.True(t, p.MatchesExactly([]string{"9"}, b))
	assert.False(t, p.MatchesExactly([]string{"10"}, b))
}

func TestHasPrefixMatchAllowsTraversalOfAncestorDirectories(t *testing.T) {
	p, err := Compile("src/lib/foo.c")
	require.NoError(t, err)
	assert.True(t, p.HasPrefixMatch([]string{"src"}, nil))
	assert.True(t, p.HasPrefixMatch([]string{"src", "lib"}, nil))
	assert.False(t, p.HasPrefixMatch([]string{"other"}, nil))
	assert.True(t, p.HasPrefixMatch(nil, nil))
}

func TestCompileUnterminatedGroupsError(t *testing.T) {
	_, err := Compile("foo[abc")
	assert.Error(t, err)
	_, err = Compile("foo{a,b")
	assert.Error(t, err)
}
