package inference

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"net/http"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

var systemPrompts = map[Mode]string{
	ModeAssistant:  "You are Mist, a desktop assistant. Answer with a single JSON object and nothing else.",
	ModeSuggestion: "You are Mist watching the user's screen. Answer with one short sentence or the word none.",
	ModeRecovery:   "You are Mist recovering from a failed desktop action. Answer with a single JSON object and nothing else.",
}

// OpenAI talks to the chat completions API directly instead of the hosted
// endpoint. Request.Model is ignored in favour of the configured model.
type OpenAI struct {
	client openai.Client
	model  string
}

func NewOpenAI(apiKey, model string, httpClient *http.Client) *OpenAI {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	if model == "" {
		model = string(openai.ChatModelGPT5Nano)
	}
	return &OpenAI{client: openai.NewClient(opts...), model: model}
}

func (o *OpenAI) Complete(ctx context.Context, req Request) (string, error) {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompts[req.Mode]),
			openai.UserMessage(req.Message),
		},
		Model: openai.ChatModel(o.model),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("%w: %w", ErrBadResponse, err)
		}
		return "", classify(err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", ErrBadResponse)
	}
	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", fmt.Errorf("%w: empty message content", ErrBadResponse)
	}

	log.Debug("Completion", "mode", req.Mode, "data", content)
	return content, nil
}
