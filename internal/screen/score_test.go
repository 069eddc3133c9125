package screen

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestButtonScore(t *testing.T) {
	assert.Equal(t, ScoreExact, ButtonScore("Open", "open"))
	assert.Equal(t, ScoreContains, ButtonScore("Open", "OpenDiscord"))
	assert.Equal(t, ScoreAllWords, ButtonScore("open discord", "Open Discord Now"))
	assert.Equal(t, ScoreAllWords, ButtonScore("discord open", "open discord"))
	assert.Equal(t, 0, ButtonScore("", "anything"))
	assert.Less(t, ButtonScore("settings", "Cancel"), MinButtonScore)
}

func TestBestButton_ExactOutranksSubstring(t *testing.T) {
	buttons := []Element{
		{X: 10, Text: "OpenDiscord"},
		{X: 20, Text: "Open"},
		{X: 30, Text: "Close"},
	}
	best, ok := BestButton(buttons, "open")
	require.True(t, ok)
	assert.Equal(t, 20, best.X)
	assert.Equal(t, ScoreExact, best.Score)
}

func TestWordScore(t *testing.T) {
	assert.Equal(t, ScoreExact, WordScore("Inbox", "inbox"))
	assert.Equal(t, ScoreContains, WordScore("inbox", "inbox:"))
	assert.Equal(t, ScoreContained, WordScore("general chat", "general"))
	assert.Equal(t, 75, WordScore("mist", "most"))
}

func TestMinWordScore(t *testing.T) {
	assert.Equal(t, 70, MinWordScore("inbox"))
	assert.Equal(t, 85, MinWordScore("general chat"))
}

func TestLabelAlphabet(t *testing.T) {
	assert.Len(t, LabelAlphabet, 53)
	assert.NotContains(t, LabelAlphabet, "0")
	assert.Contains(t, LabelAlphabet, " ")
}

func TestButtonShaped(t *testing.T) {
	assert.True(t, ButtonShaped(image.Rect(0, 0, 120, 40)))
	assert.False(t, ButtonShaped(image.Rect(0, 0, 32, 32)), "icon")
	assert.False(t, ButtonShaped(image.Rect(0, 0, 800, 100)), "too wide")
	assert.False(t, ButtonShaped(image.Rect(0, 0, 60, 60)), "square")
	assert.False(t, ButtonShaped(image.Rect(0, 0, 590, 21)), "too thin")
	assert.True(t, ButtonShaped(image.Rect(100, 100, 200, 150)))
}

func TestMask(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	out := Mask(img, TopStrip(img.Bounds(), 2), image.Rect(8, 8, 20, 20))

	assert.Equal(t, uint8(0), out.RGBAAt(5, 1).R)
	assert.Equal(t, uint8(255), out.RGBAAt(5, 5).R)
	assert.Equal(t, uint8(0), out.RGBAAt(9, 9).R)
	assert.Equal(t, uint8(255), img.RGBAAt(5, 1).R, "source untouched")
}

func TestCenterRegion(t *testing.T) {
	r := CenterRegion(image.Rect(0, 0, 900, 900), 50)
	assert.Equal(t, image.Rect(300, 350, 600, 600), r)
}
