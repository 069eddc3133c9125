package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/tidwall/gjson"
)

// Mode tells the inference service which kind of answer is wanted.
type Mode string

const (
	ModeAssistant  Mode = "assistant"
	ModeSuggestion Mode = "suggestion"
	ModeRecovery   Mode = "recovery"
)

var (
	// ErrUnavailable means the service could not be reached.
	ErrUnavailable = errors.New("inference service unavailable")
	ErrTimeout     = errors.New("inference request timed out")
	// ErrBadResponse covers non-2xx replies and bodies without an answer.
	ErrBadResponse = errors.New("bad inference response")
)

type Request struct {
	Message string `json:"message"`
	Model   string `json:"model"`
	Mode    Mode   `json:"mode"`
}

// Backend turns one prompt into the model's raw text answer.
type Backend interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// HTTP is the hosted chat endpoint: POST {message, model, mode} -> {response}.
type HTTP struct {
	url    string
	client *http.Client
}

func NewHTTP(url string, client *http.Client) *HTTP {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTP{url: url, client: client}
}

func (h *HTTP) Complete(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	hreq.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(hreq)
	if err != nil {
		return "", classify(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", classify(err)
	}
	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("%w: status %d", ErrBadResponse, resp.StatusCode)
	}

	answer := gjson.GetBytes(data, "response")
	if !answer.Exists() {
		return "", fmt.Errorf("%w: no response field", ErrBadResponse)
	}
	return answer.String(), nil
}

// classify maps transport failures onto the package sentinels.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}
