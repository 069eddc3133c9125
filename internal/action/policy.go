package action

import (
	"strings"
	"time"
)

// Timing holds every wait the executor makes. The zero value waits nowhere.
type Timing struct {
	// Settle is the pause after a multi_step step, by kind. Kinds missing
	// from the map use DefaultSettle.
	Settle        map[Kind]time.Duration
	DefaultSettle time.Duration

	FocusSettle   time.Duration // focus -> title check
	MaximizeDelay time.Duration // verified focus -> maximize
	SearchOpen    time.Duration // system search key -> typing
	SearchTyped   time.Duration // typing -> enter
	Launch        time.Duration // enter -> title check
	TypeLead      time.Duration // before typing into the active field
	EnterLead     time.Duration // typed text -> enter
	EnterSettle   time.Duration // after enter
	ClickSettle   time.Duration // after a successful text click
	ScrollSettle  time.Duration // recovery scroll -> second locate
}

func DefaultTiming() Timing {
	return Timing{
		Settle: map[Kind]time.Duration{
			OpenApp:     2000 * time.Millisecond,
			ClickOnText: 1500 * time.Millisecond,
			TypeSearch:  1300 * time.Millisecond,
			PressKey:    500 * time.Millisecond,
			Click:       500 * time.Millisecond,
		},
		DefaultSettle: 800 * time.Millisecond,
		FocusSettle:   time.Second,
		MaximizeDelay: 300 * time.Millisecond,
		SearchOpen:    700 * time.Millisecond,
		SearchTyped:   700 * time.Millisecond,
		Launch:        2800 * time.Millisecond,
		TypeLead:      700 * time.Millisecond,
		EnterLead:     300 * time.Millisecond,
		EnterSettle:   1200 * time.Millisecond,
		ClickSettle:   800 * time.Millisecond,
		ScrollSettle:  1500 * time.Millisecond,
	}
}

func (t Timing) settle(k Kind) time.Duration {
	if d, ok := t.Settle[k]; ok {
		return d
	}
	return t.DefaultSettle
}

type Policy struct {
	// Gating lists the kinds whose failure stops a multi_step plan.
	Gating []Kind
	// NoEnterTitles are active-window title fragments where type_search
	// does not press enter.
	NoEnterTitles []string
	Timing        Timing
}

func DefaultPolicy() Policy {
	return Policy{
		Gating:        []Kind{OpenApp, ClickOnText, TypeSearch},
		NoEnterTitles: []string{"calculator"},
		Timing:        DefaultTiming(),
	}
}

func (p Policy) gates(k Kind) bool {
	for _, g := range p.Gating {
		if g == k {
			return true
		}
	}
	return false
}

func (p Policy) pressesEnter(activeTitle string) bool {
	title := strings.ToLower(activeTitle)
	for _, frag := range p.NoEnterTitles {
		if frag != "" && strings.Contains(title, strings.ToLower(frag)) {
			return false
		}
	}
	return true
}
