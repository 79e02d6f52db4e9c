package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/soyeahso/mcpchat/internal/domain"
)

// OpenAIBackend completes conversations with the Chat Completions API. Any
// OpenAI-compatible endpoint works through baseURL.
type OpenAIBackend struct {
	name   string
	model  string
	client openai.Client
}

// NewOpenAIBackend creates an OpenAI backend. Empty baseURL uses the SDK
// default endpoint.
func NewOpenAIBackend(name, baseURL, apiKey, model string) *OpenAIBackend {
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIBackend{
		name:   name,
		model:  model,
		client: openai.NewClient(opts...),
	}
}

func (o *OpenAIBackend) Name() string { return o.name }

func (o *OpenAIBackend) Complete(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	msgs := withSystem(req.System, req.Messages)
	params := openai.ChatCompletionNewParams{
		Messages: toOpenAIMessages(msgs),
		Model:    openai.ChatModel(o.model),
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return nil, &BackendError{Backend: o.name, Status: apiErr.StatusCode, Body: apiErr.Message, Err: err}
		}
		return nil, &BackendError{Backend: o.name, Err: err}
	}
	if len(resp.Choices) == 0 {
		return nil, &BackendError{Backend: o.name, Err: fmt.Errorf("no choices in response")}
	}

	return &Response{
		Text:     resp.Choices[0].Message.Content,
		Model:    resp.Model,
		Duration: time.Since(start),
	}, nil
}

func toOpenAIMessages(msgs []domain.CoreMessage) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, len(msgs))
	for i, m := range msgs {
		switch m.Role {
		case domain.RoleSystem:
			out[i] = openai.SystemMessage(m.Content)
		case domain.RoleAssistant:
			out[i] = openai.AssistantMessage(m.Content)
		default:
			out[i] = openai.UserMessage(m.Content)
		}
	}
	return out
}
