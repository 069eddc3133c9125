package action

import (
	"fmt"
	"strings"
)

// Key names handed to Input follow the input backend's vocabulary.
const (
	KeySuper = "cmd"
	KeyUp    = "up"
	KeyEnter = "enter"
	KeyF11   = "f11"
)

var keyAliases = map[string]string{
	"return":      "enter",
	"escape":      "esc",
	"del":         "delete",
	"win":         KeySuper,
	"windows":     KeySuper,
	"super":       KeySuper,
	"command":     KeySuper,
	"control":     "ctrl",
	"option":      "alt",
	"spacebar":    "space",
	"pgup":        "pageup",
	"page up":     "pageup",
	"pgdn":        "pagedown",
	"page down":   "pagedown",
	"arrow up":    "up",
	"arrowup":     "up",
	"arrow down":  "down",
	"arrowdown":   "down",
	"arrow left":  "left",
	"arrowleft":   "left",
	"arrow right": "right",
	"arrowright":  "right",
}

var volumeKeys = map[string]string{
	"up":   "audio_vol_up",
	"down": "audio_vol_down",
	"mute": "audio_mute",
}

// ParseKeys splits a chord such as "ctrl+shift+t" into the key and its
// modifiers, normalizing common aliases.
func ParseKeys(chord string) (key string, modifiers []string, err error) {
	chord = strings.ToLower(strings.TrimSpace(chord))
	if chord == "" {
		return "", nil, fmt.Errorf("empty key")
	}
	parts := strings.Split(chord, "+")
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return "", nil, fmt.Errorf("bad key chord %q", chord)
		}
		if alias, ok := keyAliases[p]; ok {
			p = alias
		}
		parts[i] = p
	}
	return parts[len(parts)-1], parts[:len(parts)-1], nil
}

func volumeKey(direction string) (string, error) {
	d := strings.ToLower(strings.TrimSpace(direction))
	if k, ok := volumeKeys[d]; ok {
		return k, nil
	}
	return "", fmt.Errorf("unknown volume direction %q", direction)
}
