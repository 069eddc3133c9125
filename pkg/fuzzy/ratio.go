package fuzzy

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Ratio returns the Ratcliff/Obershelp similarity of a and b in [0, 1],
// computed over runes.
func Ratio(a, b string) float64 {
	m := difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, ""))
	return m.Ratio()
}

// Percent is Ratio scaled to 0..100 and truncated.
func Percent(a, b string) int {
	return int(Ratio(a, b) * 100)
}
