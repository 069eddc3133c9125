package inference

import (
	"strings"

	"github.com/tidwall/gjson"

	"mist/internal/action"
)

// ParseCommand decodes a model answer into a command. Fenced JSON is
// unwrapped first. When the answer is not a command object, names an action
// outside the vocabulary or carries a parameter that is neither a string nor
// a list, the raw text becomes the speech of a none command and ok is false.
func ParseCommand(raw string) (cmd action.Command, ok bool) {
	body := strings.TrimSpace(unfence(raw))
	if gjson.Valid(body) {
		if root := gjson.Parse(body); root.IsObject() {
			if cmd, ok := decode(root); ok {
				return cmd, true
			}
		}
	}
	return action.Say(strings.TrimSpace(raw)), false
}

func decode(obj gjson.Result) (action.Command, bool) {
	k, ok := action.ParseKind(obj.Get("action").String())
	if !ok {
		return action.Command{}, false
	}
	cmd := action.Command{Action: k, Speech: obj.Get("speech").String()}

	param := obj.Get("parameter")
	steps := obj.Get("steps")
	switch {
	case param.IsArray():
		cmd.Steps = decodeSteps(param)
		cmd.Action = action.MultiStep
	case param.Exists() && param.Type != gjson.Null && param.Type != gjson.String:
		return action.Command{}, false
	case steps.IsArray():
		cmd.Steps = decodeSteps(steps)
		cmd.Action = action.MultiStep
	case param.Type == gjson.String:
		cmd.Parameter = param.String()
	}
	return cmd, true
}

// decodeSteps skips steps that do not decode.
func decodeSteps(arr gjson.Result) []action.Command {
	var out []action.Command
	arr.ForEach(func(_, step gjson.Result) bool {
		switch {
		case step.Type == gjson.String:
			if k, ok := action.ParseKind(step.String()); ok {
				out = append(out, action.Command{Action: k})
			}
		case step.IsObject():
			if cmd, ok := decode(step); ok {
				out = append(out, cmd)
			}
		}
		return true
	})
	return out
}

func unfence(s string) string {
	if _, rest, ok := strings.Cut(s, "```json"); ok {
		body, _, _ := strings.Cut(rest, "```")
		return body
	}
	if _, rest, ok := strings.Cut(s, "```"); ok {
		body, _, _ := strings.Cut(rest, "```")
		return body
	}
	return s
}
