package inference

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mist/internal/action"
)

func TestParseCommand(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want action.Command
	}{
		{
			name: "plain",
			raw:  `{"action": "open_app", "parameter": "discord", "speech": "Opening Discord"}`,
			want: action.Command{Action: action.OpenApp, Parameter: "discord", Speech: "Opening Discord"},
		},
		{
			name: "json fence",
			raw:  "Sure!\n```json\n{\"action\": \"scroll\", \"parameter\": \"down\"}\n```",
			want: action.Command{Action: action.Scroll, Parameter: "down"},
		},
		{
			name: "bare fence",
			raw:  "```\n{\"action\": \"fullscreen\"}\n```",
			want: action.Command{Action: action.Fullscreen},
		},
		{
			name: "kind is case insensitive",
			raw:  `{"action": "Open_App", "parameter": "steam"}`,
			want: action.Command{Action: action.OpenApp, Parameter: "steam"},
		},
		{
			name: "null parameter",
			raw:  `{"action": "maximize", "parameter": null, "speech": "Done"}`,
			want: action.Command{Action: action.Maximize, Speech: "Done"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseCommand(tc.raw)
			assert.True(t, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseCommandSteps(t *testing.T) {
	raw := `{"action": "multi_step", "speech": "On it", "parameter": [
		{"action": "open_app", "parameter": "firefox"},
		"maximize",
		7,
		"teleport",
		{"action": "dance"},
		{"action": "click_on_text", "parameter": {"x": 1}},
		{"action": "type_search", "parameter": "robotics"}
	]}`

	got, ok := ParseCommand(raw)
	require.True(t, ok)
	assert.Equal(t, action.MultiStep, got.Action)
	assert.Equal(t, "On it", got.Speech)
	assert.Equal(t, []action.Command{
		{Action: action.OpenApp, Parameter: "firefox"},
		{Action: action.Maximize},
		{Action: action.TypeSearch, Parameter: "robotics"},
	}, got.Steps)
}

func TestParseCommandDegrades(t *testing.T) {
	for _, raw := range []string{
		"The capital of France is Paris.",
		`["open_app"]`,
		"```json\n{broken\n```",
		`{"action": "teleport", "parameter": "mars", "speech": "Beaming up"}`,
		`{"foo": 1}`,
		`{"speech": "Hello there"}`,
		`{"action": "open_app", "parameter": {"x": 1}}`,
		`{"action": "type_search", "parameter": 42}`,
		`{"action": "scroll", "parameter": true}`,
	} {
		got, ok := ParseCommand(raw)
		assert.False(t, ok, raw)
		assert.Equal(t, action.Say(raw), got, raw)
	}
}
