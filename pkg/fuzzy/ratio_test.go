package fuzzy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRatio(t *testing.T) {
	assert.Equal(t, 1.0, Ratio("mist", "mist"))
	assert.Equal(t, 0.75, Ratio("myst", "mist"))
	assert.Less(t, Ratio("map", "mist"), 0.75)
	assert.Equal(t, 0.0, Ratio("abc", "xyz"))
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 75, Percent("most", "mist"))
	assert.Equal(t, 100, Percent("open", "open"))
}
