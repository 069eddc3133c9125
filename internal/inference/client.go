package inference

import (
	"context"
	"fmt"
	"io"
	log "log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"mist/internal/action"
)

const (
	DefaultModel = "gemini"

	maxSuggestion = 150
)

type Timeouts struct {
	Ask     time.Duration
	Suggest time.Duration
	Recover time.Duration
	Status  time.Duration
}

func DefaultTimeouts() Timeouts {
	return Timeouts{
		Ask:     30 * time.Second,
		Suggest: 10 * time.Second,
		Recover: 10 * time.Second,
		Status:  2 * time.Second,
	}
}

type Config struct {
	Model     string
	StatusURL string
	// HTTP is used for the status endpoint.
	HTTP     *http.Client
	Timeouts Timeouts
}

// Status is the remote service health.
type Status struct {
	Online bool   `json:"online"`
	Reason string `json:"reason,omitempty"`
}

type Client struct {
	backend   Backend
	model     string
	statusURL string
	http      *http.Client
	timeouts  Timeouts
}

func NewClient(b Backend, cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.HTTP == nil {
		cfg.HTTP = http.DefaultClient
	}
	if cfg.Timeouts == (Timeouts{}) {
		cfg.Timeouts = DefaultTimeouts()
	}
	return &Client{
		backend:   b,
		model:     cfg.Model,
		statusURL: cfg.StatusURL,
		http:      cfg.HTTP,
		timeouts:  cfg.Timeouts,
	}
}

// Ask turns a user request into a command. An answer that is not JSON comes
// back as a none command speaking the raw text.
func (c *Client) Ask(ctx context.Context, message string, s Situation) (action.Command, error) {
	raw, err := c.complete(ctx, c.timeouts.Ask, ModeAssistant, assistantPrompt(message, s))
	if err != nil {
		return action.Command{}, err
	}
	cmd, ok := ParseCommand(raw)
	if !ok {
		log.Debug("Answer is not a command", "raw", raw)
	}
	return cmd, nil
}

// Suggest returns one proactive suggestion, or "" when there is nothing to
// say.
func (c *Client) Suggest(ctx context.Context, screenText, window string) (string, error) {
	raw, err := c.complete(ctx, c.timeouts.Suggest, ModeSuggestion, suggestionPrompt(screenText, window))
	if err != nil {
		return "", err
	}
	s := strings.TrimSpace(raw)
	switch strings.ToLower(s) {
	case "", "none", "no suggestion":
		return "", nil
	}
	if r := []rune(s); len(r) > maxSuggestion {
		s = string(r[:maxSuggestion-3]) + "..."
	}
	return s, nil
}

// Recover asks for one recovery step after a failed text click.
func (c *Client) Recover(ctx context.Context, f action.Failure) (action.Command, error) {
	raw, err := c.complete(ctx, c.timeouts.Recover, ModeRecovery, recoveryPrompt(f))
	if err != nil {
		return action.Command{}, err
	}
	cmd, ok := ParseCommand(raw)
	if !ok {
		return action.Command{}, fmt.Errorf("%w: recovery answer is not a command", ErrBadResponse)
	}
	return cmd, nil
}

// Status polls the health endpoint. Any failure reports offline with
// "Connection error".
func (c *Client) Status(ctx context.Context) Status {
	if c.statusURL == "" {
		return Status{Online: true}
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Status)
	defer cancel()

	offline := Status{Reason: "Connection error"}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.statusURL, nil)
	if err != nil {
		return offline
	}
	resp, err := c.http.Do(req)
	if err != nil {
		log.Debug("Status request failed", "err", err)
		return offline
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil || !gjson.ValidBytes(data) {
		return offline
	}
	return Status{
		Online: gjson.GetBytes(data, "status").String() == "online",
		Reason: gjson.GetBytes(data, "down_reason").String(),
	}
}

func (c *Client) complete(ctx context.Context, timeout time.Duration, mode Mode, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	raw, err := c.backend.Complete(ctx, Request{Message: prompt, Model: c.model, Mode: mode})
	if err != nil {
		return "", fmt.Errorf("%s request: %w", mode, err)
	}
	log.Debug("Inference answered", "mode", mode, "took", time.Since(start))
	return raw, nil
}
