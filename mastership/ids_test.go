package mastership

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vesta-scm/vesta/fp"
)

func TestRequestIDRoundTrip(t *testing.T) {
	r := NewRequestID(fp.Init([]byte("seed")), 12345, "src.example:1000", "dst.example:2000")
	parsed, err := ParseRequestID(r.String())
	require.NoError(t, err)
	assert.Equal(t, r, parsed)
}

func TestSplitGrantIDWithChildren(t *testing.T) {
	reqid := NewRequestID(fp.Init([]byte("seed")), 1, "s:1", "d:2")
	grantid := reqid.String() + " " + FormatChildList([]ChildHint{
		{Arc: "a", Hint: "h1:1", Timestamp: 10},
		{Arc: "b", Hint: "h2:2", Timestamp: 20},
	})

	gotReq, hints, err := SplitGrantID(grantid)
	require.NoError(t, err)
	assert.Equal(t, reqid.String(), gotReq)
	require.Len(t, hints, 2)
	assert.Equal(t, "a", hints[0].Arc)
	assert.Equal(t, int64(20), hints[1].Timestamp)
}

func TestSplitGrantIDNonDirectory(t *testing.T) {
	reqid := NewRequestID(fp.Init([]byte("seed")), 1, "s:1", "d:2")
	gotReq, hints, err := SplitGrantID(reqid.String() + " ")
	require.NoError(t, err)
	assert.Equal(t, reqid.String(), gotReq)
	assert.Empty(t, hints)
}

func TestValidHostPort(t *testing.T) {
	assert.True(t, ValidHostPort("host.example.com:1234"))
	assert.False(t, ValidHostPort("hostwithoutdot:1234"))
	assert.False(t, ValidHostPort("host.example.com"))
	assert.False(t, ValidHostPort("host with space.example.com:1234"))
}
