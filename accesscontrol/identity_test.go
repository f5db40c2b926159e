package accesscontrol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestZeroCheckerGrantsAnyone(t *testing.T) {
	var c Checker
	assert.True(t, c.Check(nil, Ownership))
	assert.True(t, c.Check(&Identity{Name: "alice"}, Ownership))
}

func TestOwnerOnlyGrantsOwner(t *testing.T) {
	c := Checker{Owner: &Identity{Name: "alice"}}
	assert.True(t, c.Check(&Identity{Name: "alice"}, Ownership))
	assert.False(t, c.Check(&Identity{Name: "bob"}, Ownership))
	assert.False(t, c.Check(nil, Ownership))
}
