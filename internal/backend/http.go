package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/soyeahso/mcpchat/internal/domain"
	"github.com/soyeahso/mcpchat/internal/version"
)

// maxErrorBody bounds how much of a failed response body is kept.
const maxErrorBody = 4096

// HTTPBackend posts {"messages": [...]} to a fixed endpoint and reads
// {"response": "..."} back.
type HTTPBackend struct {
	name     string
	endpoint string
	client   *http.Client
}

// NewHTTPBackend creates an HTTP backend. A nil client uses a client with
// the given timeout (zero means no timeout).
func NewHTTPBackend(name, endpoint string, timeout time.Duration, client *http.Client) *HTTPBackend {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &HTTPBackend{name: name, endpoint: endpoint, client: client}
}

func (h *HTTPBackend) Name() string { return h.name }

type httpRequest struct {
	Messages []domain.CoreMessage `json:"messages"`
}

type httpResponse struct {
	Response string `json:"response"`
}

// Complete performs exactly one POST. The system prompt is not part of this
// wire contract and is ignored.
func (h *HTTPBackend) Complete(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	msgs := req.Messages
	if msgs == nil {
		msgs = []domain.CoreMessage{}
	}
	payload, err := json.Marshal(httpRequest{Messages: msgs})
	if err != nil {
		return nil, &BackendError{Backend: h.name, Err: fmt.Errorf("marshal request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, &BackendError{Backend: h.name, Err: fmt.Errorf("create request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", version.UserAgent())

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return nil, &BackendError{Backend: h.name, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &BackendError{Backend: h.name, Status: resp.StatusCode, Body: string(body)}
	}

	var out httpResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &BackendError{Backend: h.name, Err: fmt.Errorf("decode response: %w", err)}
	}

	return &Response{
		Text:     out.Response,
		Model:    req.Model,
		Duration: time.Since(start),
	}, nil
}
