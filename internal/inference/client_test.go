package inference

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mist/internal/action"
	"mist/internal/memory"
)

// chatServer answers every POST with reply and records the decoded requests.
func chatServer(t *testing.T, reply string, got *[]Request) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req Request
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		*got = append(*got, req)
		_ = json.NewEncoder(w).Encode(map[string]string{"response": reply})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAsk(t *testing.T) {
	var reqs []Request
	srv := chatServer(t, `{"action": "open_app", "parameter": "discord", "speech": "Opening Discord"}`, &reqs)
	c := NewClient(NewHTTP(srv.URL, srv.Client()), Config{})

	mem := memory.New()
	mem.TrackAction("opened firefox")
	cmd, err := c.Ask(context.Background(), "open discord", Situation{
		ActiveWindow: "Firefox",
		Running:      []string{"firefox"},
		ScreenText:   "Welcome back",
		Buttons:      []string{"Sign in"},
		Memory:       mem.Snapshot(),
	})

	require.NoError(t, err)
	assert.Equal(t, action.Command{Action: action.OpenApp, Parameter: "discord", Speech: "Opening Discord"}, cmd)

	require.Len(t, reqs, 1)
	assert.Equal(t, ModeAssistant, reqs[0].Mode)
	assert.Equal(t, DefaultModel, reqs[0].Model)
	for _, want := range []string{`"open discord"`, "Welcome back", "Sign in", "Last action: opened firefox"} {
		assert.Contains(t, reqs[0].Message, want)
	}
}

func TestAskPlainText(t *testing.T) {
	var reqs []Request
	srv := chatServer(t, "It is sunny today.", &reqs)
	c := NewClient(NewHTTP(srv.URL, srv.Client()), Config{Model: "gpt"})

	cmd, err := c.Ask(context.Background(), "weather?", Situation{})
	require.NoError(t, err)
	assert.Equal(t, action.Say("It is sunny today."), cmd)
	assert.Equal(t, "gpt", reqs[0].Model)
}

func TestAskErrors(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		_, err := NewClient(NewHTTP(srv.URL, srv.Client()), Config{}).Ask(context.Background(), "hi", Situation{})
		assert.ErrorIs(t, err, ErrBadResponse)
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		_, err := NewClient(NewHTTP(url, nil), Config{}).Ask(context.Background(), "hi", Situation{})
		assert.ErrorIs(t, err, ErrUnavailable)
	})

	t.Run("timeout", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(release)

		timeouts := DefaultTimeouts()
		timeouts.Ask = 50 * time.Millisecond
		c := NewClient(NewHTTP(srv.URL, srv.Client()), Config{Timeouts: timeouts})

		_, err := c.Ask(context.Background(), "hi", Situation{})
		assert.ErrorIs(t, err, ErrTimeout)
	})
}

func TestSuggest(t *testing.T) {
	long := strings.Repeat("a", 200)
	cases := []struct {
		reply string
		want  string
	}{
		{"none", ""},
		{"  No suggestion ", ""},
		{"", ""},
		{"Want me to save this file?", "Want me to save this file?"},
		{long, strings.Repeat("a", 147) + "..."},
	}
	for _, tc := range cases {
		var reqs []Request
		srv := chatServer(t, tc.reply, &reqs)
		got, err := NewClient(NewHTTP(srv.URL, srv.Client()), Config{}).Suggest(context.Background(), "Untitled", "Editor")
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
		assert.Equal(t, ModeSuggestion, reqs[0].Mode)
	}
}

func TestRecover(t *testing.T) {
	var reqs []Request
	srv := chatServer(t, "```json\n{\"action\": \"click_on_text\", \"parameter\": \"OpenDiscord\"}\n```", &reqs)
	c := NewClient(NewHTTP(srv.URL, srv.Client()), Config{})

	cmd, err := c.Recover(context.Background(), action.Failure{
		Action:    action.ClickOnText,
		Parameter: "Open Discord",
		Buttons:   []string{"OpenDiscord"},
	})
	require.NoError(t, err)
	assert.Equal(t, action.Command{Action: action.ClickOnText, Parameter: "OpenDiscord"}, cmd)
	assert.Equal(t, ModeRecovery, reqs[0].Mode)
	assert.Contains(t, reqs[0].Message, "FAILED PARAMETER: Open Discord")

	var plain []Request
	srv = chatServer(t, "no idea", &plain)
	_, err = NewClient(NewHTTP(srv.URL, srv.Client()), Config{}).Recover(context.Background(), action.Failure{})
	assert.ErrorIs(t, err, ErrBadResponse)
}

func TestStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		_, _ = w.Write([]byte(`{"status": "down", "down_reason": "maintenance"}`))
	}))
	defer srv.Close()

	c := NewClient(nil, Config{StatusURL: srv.URL, HTTP: srv.Client()})
	assert.Equal(t, Status{Online: false, Reason: "maintenance"}, c.Status(context.Background()))

	srv.Close()
	assert.Equal(t, Status{Reason: "Connection error"}, c.Status(context.Background()))
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "No context", Situation{ActiveWindow: "Unknown"}.Summary())

	mem := memory.New()
	for _, a := range []string{"a1", "a2", "a3", "a4", "a5", "a6"} {
		mem.TrackAction(a)
	}
	mem.AppOpened("Firefox")
	s := Situation{
		ActiveWindow: "Firefox",
		Running:      []string{"r1", "r2", "r3", "r4", "r5", "r6"},
		Memory:       mem.Snapshot(),
	}
	assert.Equal(t,
		"Current window: Firefox | Recent actions: a2, a3, a4, a5, a6 | Apps opened: firefox | Last action: a6 | Running apps: r1, r2, r3, r4, r5",
		s.Summary())
}
