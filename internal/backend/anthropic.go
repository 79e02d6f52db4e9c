package backend

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/soyeahso/mcpchat/internal/domain"
)

const defaultAnthropicMaxTokens = 4096

// AnthropicBackend completes conversations with the Messages API.
type AnthropicBackend struct {
	name      string
	model     anthropic.Model
	maxTokens int64
	client    *anthropic.Client
}

// NewAnthropicBackend creates an Anthropic backend. Empty baseURL uses the
// SDK default endpoint.
func NewAnthropicBackend(name, baseURL, apiKey, model string, maxTokens int) *AnthropicBackend {
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}
	client := anthropic.NewClient(opts...)
	return &AnthropicBackend{
		name:      name,
		model:     anthropic.Model(model),
		maxTokens: int64(maxTokens),
		client:    &client,
	}
}

func (a *AnthropicBackend) Name() string { return a.name }

func (a *AnthropicBackend) Complete(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	params := anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		Messages:  toAnthropicMessages(req.Messages),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return nil, &BackendError{Backend: a.name, Status: apiErr.StatusCode, Body: apiErr.Error(), Err: err}
		}
		return nil, &BackendError{Backend: a.name, Err: err}
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(tb.Text)
		}
	}

	return &Response{
		Text:     text.String(),
		Model:    string(msg.Model),
		Duration: time.Since(start),
	}, nil
}

func toAnthropicMessages(msgs []domain.CoreMessage) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case domain.RoleAssistant:
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		case domain.RoleUser:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	return out
}
