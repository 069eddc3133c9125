package inference

import (
	"fmt"
	"strings"

	"mist/internal/action"
	"mist/internal/memory"
)

const (
	screenPreview   = 500
	maxPromptButton = 15
	recoveryPreview = 400
	recoveryButtons = 10
	suggestPreview  = 500
	summaryActions  = 5
	summaryRunning  = 5
	historyTurns    = 5
)

// Situation is what the assistant knows about the desktop for one request.
type Situation struct {
	ActiveWindow string
	Running      []string
	ScreenText   string
	Buttons      []string
	Memory       memory.Snapshot
}

// Summary is the one line context digest.
func (s Situation) Summary() string {
	var parts []string
	if s.ActiveWindow != "" && s.ActiveWindow != "Unknown" {
		parts = append(parts, "Current window: "+s.ActiveWindow)
	}
	if recent := s.Memory.RecentActions(summaryActions); len(recent) > 0 {
		parts = append(parts, "Recent actions: "+strings.Join(recent, ", "))
	}
	if len(s.Memory.Apps) > 0 {
		parts = append(parts, "Apps opened: "+strings.Join(s.Memory.Apps, ", "))
	}
	if s.Memory.LastAction != "" {
		parts = append(parts, "Last action: "+s.Memory.LastAction)
	}
	if len(s.Running) > 0 {
		parts = append(parts, "Running apps: "+strings.Join(head(s.Running, summaryRunning), ", "))
	}
	if len(parts) == 0 {
		return "No context"
	}
	return strings.Join(parts, " | ")
}

func assistantPrompt(message string, s Situation) string {
	var screen strings.Builder
	if s.ScreenText != "" {
		fmt.Fprintf(&screen, "VISIBLE ON SCREEN RIGHT NOW: %s", clip(s.ScreenText, screenPreview))
	}
	if len(s.Buttons) > 0 {
		fmt.Fprintf(&screen, "\nVISIBLE BUTTONS: %s", strings.Join(head(s.Buttons, maxPromptButton), ", "))
	}

	var kinds []string
	for _, k := range action.Kinds() {
		kinds = append(kinds, string(k))
	}

	return fmt.Sprintf(`You are Mist, a desktop assistant that sees the screen and acts on it.
Speak briefly and naturally, one or two sentences in "speech".

SITUATION
Active window: %s
Running apps: %s
Context: %s

SCREEN
%s

RECENT CONVERSATION
%s

CLICKING
When the user asks to click something, answer with click_on_text even if
the preview above does not show it. The locator sees the whole screen.

ACTIONS
%s
multi_step takes a list of {"action", "parameter"} objects as its parameter.
none is for chat only.

USER REQUEST
%q

Answer with JSON only:
{"action": "...", "parameter": "...", "speech": "..."}`,
		s.ActiveWindow,
		strings.Join(s.Running, ", "),
		s.Summary(),
		screen.String(),
		s.Memory.Conversation(historyTurns),
		strings.Join(kinds, ", "),
		message,
	)
}

func suggestionPrompt(screenText, window string) string {
	return fmt.Sprintf(`You are Mist in proactive mode, watching the user's screen.

Current window: %s
Screen content: %s

Suggest ONE brief, relevant action the user may want to take next.
If nothing stands out answer "none".
Answer with the suggestion text only.`, window, clip(screenText, suggestPreview))
}

func recoveryPrompt(f action.Failure) string {
	buttons := "None"
	if len(f.Buttons) > 0 {
		buttons = strings.Join(head(f.Buttons, recoveryButtons), ", ")
	}
	return fmt.Sprintf(`You are Mist. A desktop action failed and needs one recovery step.

FAILED ACTION: %s
FAILED PARAMETER: %s
REASON: the text was not found on screen

Buttons detected: %s
Screen text: %s

Options:
1. click_on_text with a similar label you can see, e.g. "OpenDiscord" for "Open Discord"
2. scroll up or down when the target may be off screen
3. none when nothing fits

Answer with JSON only, one of:
{"action": "click_on_text", "parameter": "alternative", "speech": "Trying 'alternative' instead"}
{"action": "scroll", "parameter": "down", "speech": "Scrolling to find it"}
{"action": "none", "parameter": "", "speech": "Can't find that on screen"}`,
		f.Action, f.Parameter, buttons, clip(f.ScreenText, recoveryPreview))
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func head(s []string, n int) []string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
