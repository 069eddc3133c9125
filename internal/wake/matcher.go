package wake

import (
	"strings"

	"mist/pkg/fuzzy"
)

// Root is the base word compared against stray words when no phrase matched.
const Root = "mist"

// MinSimilarity is the lowest similarity ratio a stray word needs to Root.
const MinSimilarity = 0.75

type Phrase struct {
	Canonical    string
	Alternatives []string
}

// Phrases lists the canonical wake phrases in priority order with the
// misrecognitions the speech backend is known to produce for each.
var Phrases = []Phrase{
	{"mist", []string{"missed", "miss", "midst", "myst", "mest", "messed"}},
	{"hey mist", []string{"hey miss", "hey missed", "hey midst", "a mist", "hey mest", "i missed"}},
	{"mistai", []string{"miss ai", "missed ai", "miss tie", "misty", "misty ai"}},
	{"mist ai", []string{"miss ai", "missed ai", "midst ai", "mess ai"}},
}

// Canonicals returns the canonical phrases in table order.
func Canonicals() []string {
	out := make([]string, 0, len(Phrases))
	for _, p := range Phrases {
		out = append(out, p.Canonical)
	}
	return out
}

// Match looks for a wake phrase in text. It returns the canonical phrase and
// the text that follows the matched span, or two empty strings.
//
// Canonical phrases are tried before alternatives. Within a tier the longest
// span present wins, so "hey missed" resolves to "hey mist" rather than to
// "mist" through "missed".
//
// The similarity tier strips surrounding punctuation from each word before
// the 3 to 6 letter length check, so "moist...!" counts as five letters.
func Match(text string) (phrase, command string) {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return "", ""
	}

	best, bestSpan := "", ""
	for _, p := range Phrases {
		if strings.Contains(lower, p.Canonical) && len(p.Canonical) > len(bestSpan) {
			best, bestSpan = p.Canonical, p.Canonical
		}
	}
	// An alternative that contains the canonical span (misty, a mist) is the
	// more specific reading of what was heard.
	for _, p := range Phrases {
		for _, alt := range p.Alternatives {
			if strings.Contains(lower, alt) && len(alt) > len(bestSpan) {
				best, bestSpan = p.Canonical, alt
			}
		}
	}
	if best != "" {
		_, rest, _ := strings.Cut(lower, bestSpan)
		return best, trimCommand(rest)
	}

	words := strings.Fields(lower)
	for i, w := range words {
		w = strings.Trim(w, punctuation)
		if len(w) < 3 || len(w) > 6 {
			continue
		}
		if fuzzy.Ratio(w, Root) >= MinSimilarity {
			return Root, trimCommand(strings.Join(words[i+1:], " "))
		}
	}

	return "", ""
}

const punctuation = " ,.!?;:-"

func trimCommand(s string) string {
	return strings.Trim(s, punctuation)
}
