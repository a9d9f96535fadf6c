package direction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverlaps(t *testing.T) {
	tests := []struct {
		a, b     Direction
		expected bool
	}{
		{ToActivity, ToActivity, true},
		{ToActivity, FromActivity, false},
		{ToActivity, Both, true},
		{FromActivity, ToActivity, false},
		{FromActivity, FromActivity, true},
		{FromActivity, Both, true},
		{Both, ToActivity, true},
		{Both, FromActivity, true},
		{Both, Both, true},
		{Direction("sideways"), Both, false},
		{Both, Direction(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.a)+"/"+string(tt.b), func(t *testing.T) {
			assert.Equal(t, tt.expected, Overlaps(tt.a, tt.b))
			assert.Equal(t, tt.expected, Overlaps(tt.b, tt.a), "overlap must be symmetric")
		})
	}
}

func TestIsValidDirection(t *testing.T) {
	assert.True(t, IsValidDirection("to_activity"))
	assert.True(t, IsValidDirection("from_activity"))
	assert.True(t, IsValidDirection("both"))
	assert.False(t, IsValidDirection("BOTH"))
	assert.False(t, IsValidDirection(""))
	assert.False(t, IsValidDirection("return"))
}

func TestParse(t *testing.T) {
	d, err := Parse("from_activity")
	require.NoError(t, err)
	assert.Equal(t, FromActivity, d)

	_, err = Parse("outbound")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid trip direction")
}

func TestCovers(t *testing.T) {
	assert.True(t, Both.Covers(ToActivity))
	assert.True(t, Both.Covers(FromActivity))
	assert.True(t, Both.Covers(Both))
	assert.True(t, ToActivity.Covers(ToActivity))
	assert.False(t, ToActivity.Covers(FromActivity))
	assert.False(t, ToActivity.Covers(Both))
	assert.False(t, FromActivity.Covers(Both))
}

func TestLegs(t *testing.T) {
	assert.Equal(t, []Direction{ToActivity}, ToActivity.Legs())
	assert.Equal(t, []Direction{FromActivity}, FromActivity.Legs())
	assert.Equal(t, []Direction{ToActivity, FromActivity}, Both.Legs())
	assert.Nil(t, Direction("x").Legs())
}
