package screen

import (
	"image"
	"strings"

	"mist/pkg/fuzzy"
)

const (
	ScoreExact     = 100
	ScoreAllWords  = 95
	ScoreContains  = 85
	ScoreContained = 75

	MinButtonScore     = 60
	MinWordScoreSingle = 70
	MinWordScoreMulti  = 85
)

// Button region bounds in screen pixels.
const (
	MinButtonWidth  = 60
	MaxButtonWidth  = 600
	MinButtonHeight = 20
	MaxButtonHeight = 120
	MinButtonAspect = 1.2
	MaxButtonAspect = 10
)

// MinLabelLen is the shortest OCR label kept as a button candidate.
const MinLabelLen = 2

// LabelAlphabet limits button label OCR to letters and spaces.
const LabelAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz "

// ButtonShaped keeps regions that look like buttons, rejecting icons and
// full page blocks.
func ButtonShaped(r image.Rectangle) bool {
	w, h := r.Dx(), r.Dy()
	if w < MinButtonWidth || w > MaxButtonWidth || h < MinButtonHeight || h > MaxButtonHeight {
		return false
	}
	aspect := float64(w) / float64(h)
	return aspect >= MinButtonAspect && aspect <= MaxButtonAspect
}

// ButtonScore rates a button label against the query.
func ButtonScore(query, label string) int {
	q := strings.ToLower(strings.TrimSpace(query))
	t := strings.ToLower(strings.TrimSpace(label))
	switch {
	case q == "":
		return 0
	case t == q:
		return ScoreExact
	case allWords(strings.Fields(q), strings.Fields(t)):
		return ScoreAllWords
	case strings.Contains(t, q):
		return ScoreContains
	}
	return fuzzy.Percent(t, q)
}

// WordScore rates one OCR word against the query.
func WordScore(query, word string) int {
	q := strings.ToLower(strings.TrimSpace(query))
	w := strings.ToLower(strings.TrimSpace(word))
	switch {
	case q == "" || w == "":
		return 0
	case w == q:
		return ScoreExact
	case strings.Contains(w, q):
		return ScoreContains
	case strings.Contains(q, w):
		return ScoreContained
	}
	return fuzzy.Percent(w, q)
}

// MinWordScore is the acceptance floor for raw OCR matches. Multi-word
// queries need more because partial substring hits get likelier.
func MinWordScore(query string) int {
	if len(strings.Fields(query)) > 1 {
		return MinWordScoreMulti
	}
	return MinWordScoreSingle
}

// BestButton returns the highest scoring button for query, with its score
// set. The first of equally scored buttons wins.
func BestButton(buttons []Element, query string) (Element, bool) {
	var (
		best  Element
		found bool
	)
	for _, b := range buttons {
		s := ButtonScore(query, b.Text)
		if !found || s > best.Score {
			best, found = b, true
			best.Score = s
		}
	}
	return best, found
}

func allWords(words, tokens []string) bool {
	if len(words) == 0 {
		return false
	}
	for _, w := range words {
		hit := false
		for _, t := range tokens {
			if t == w {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}
