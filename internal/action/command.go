package action

import (
	"fmt"
	"strings"
)

// Kind is the closed vocabulary of actions the executor understands.
type Kind string

const (
	OpenApp     Kind = "open_app"
	ClickOnText Kind = "click_on_text"
	TypeSearch  Kind = "type_search"
	PressKey    Kind = "press_key"
	Click       Kind = "click"
	Scroll      Kind = "scroll"
	Volume      Kind = "volume"
	Maximize    Kind = "maximize"
	Fullscreen  Kind = "fullscreen"
	MultiStep   Kind = "multi_step"
	None        Kind = "none"
)

var kinds = []Kind{
	OpenApp, ClickOnText, TypeSearch, PressKey, Click, Scroll,
	Volume, Maximize, Fullscreen, MultiStep, None,
}

// Kinds returns the full vocabulary.
func Kinds() []Kind { return append([]Kind(nil), kinds...) }

func ParseKind(s string) (Kind, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, k := range kinds {
		if string(k) == s {
			return k, true
		}
	}
	return None, false
}

// Command is one structured action. Steps is only set for MultiStep, and
// Parameter is unused for MultiStep.
type Command struct {
	Action    Kind      `json:"action"`
	Parameter string    `json:"parameter,omitempty"`
	Steps     []Command `json:"steps,omitempty"`
	Speech    string    `json:"speech,omitempty"`
}

// Say is a speech-only command.
func Say(text string) Command {
	return Command{Action: None, Speech: text}
}

func Plan(speech string, steps ...Command) Command {
	return Command{Action: MultiStep, Steps: steps, Speech: speech}
}

func (c Command) String() string {
	if c.Action == MultiStep {
		return fmt.Sprintf("%s[%d]", c.Action, len(c.Steps))
	}
	if c.Parameter == "" {
		return string(c.Action)
	}
	return fmt.Sprintf("%s(%q)", c.Action, c.Parameter)
}

// Caption is the user facing description of c while it runs.
func Caption(c Command) string {
	p := c.Parameter
	switch c.Action {
	case OpenApp:
		return fmt.Sprintf("Opening %s...", p)
	case ClickOnText:
		return fmt.Sprintf("Looking for '%s'...", p)
	case TypeSearch:
		return fmt.Sprintf("Typing '%s'...", p)
	case Scroll:
		return fmt.Sprintf("Scrolling %s...", p)
	case Volume:
		return fmt.Sprintf("Adjusting volume %s...", p)
	case PressKey:
		return fmt.Sprintf("Pressing %s...", p)
	case Maximize:
		return "Maximizing window..."
	case Fullscreen:
		return "Toggling fullscreen..."
	case MultiStep:
		return "Starting multi-step task..."
	}
	return fmt.Sprintf("Executing %s...", c.Action)
}
