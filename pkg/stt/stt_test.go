package stt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClean(t *testing.T) {
	cases := map[string]string{
		" [BLANK_AUDIO] ":              "",
		"(wind blowing)":               "",
		"*music*  ...":                 "",
		"  Hey   Mist, open discord. ": "Hey Mist, open discord.",
		"[MUSIC] open firefox [MUSIC]": "open firefox",
		"(clears throat) scroll down":  "scroll down",
	}
	for in, want := range cases {
		assert.Equal(t, want, Clean(in), in)
	}
}

func TestJoin(t *testing.T) {
	assert.Equal(t, "hey mist open discord", Join([]Segment{{Text: " hey mist"}, {Text: "  "}, {Text: "open discord "}}))
	assert.Empty(t, Join(nil))
}
