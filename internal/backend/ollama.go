package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
)

const defaultOllamaURL = "http://localhost:11434"

// OllamaBackend completes conversations through a local Ollama server.
type OllamaBackend struct {
	name   string
	model  string
	client *api.Client
}

// NewOllamaBackend creates an Ollama backend for baseURL (default
// http://localhost:11434).
func NewOllamaBackend(name, baseURL, model string, httpClient *http.Client) (*OllamaBackend, error) {
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	parsed, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid ollama url: %w", err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &OllamaBackend{
		name:   name,
		model:  model,
		client: api.NewClient(parsed, httpClient),
	}, nil
}

func (o *OllamaBackend) Name() string { return o.name }

func (o *OllamaBackend) Complete(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	msgs := withSystem(req.System, req.Messages)
	apiMsgs := make([]api.Message, 0, len(msgs))
	for _, m := range msgs {
		apiMsgs = append(apiMsgs, api.Message{Role: string(m.Role), Content: m.Content})
	}

	stream := false
	chatReq := &api.ChatRequest{
		Model:    o.model,
		Messages: apiMsgs,
		Stream:   &stream,
	}

	var text strings.Builder
	err := o.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
		text.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		var status api.StatusError
		if errors.As(err, &status) {
			return nil, &BackendError{Backend: o.name, Status: status.StatusCode, Body: status.ErrorMessage, Err: err}
		}
		return nil, &BackendError{Backend: o.name, Err: err}
	}

	return &Response{Text: text.String(), Model: o.model, Duration: time.Since(start)}, nil
}
