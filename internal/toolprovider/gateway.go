package toolprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sony/gobreaker/v2"

	"github.com/soyeahso/mcpchat/internal/domain"
	"github.com/soyeahso/mcpchat/internal/logging"
	"github.com/soyeahso/mcpchat/internal/version"
)

const (
	defaultMaxFailures uint32 = 5
	defaultOpenTimeout        = 30 * time.Second
	defaultInterval           = 60 * time.Second
	maxErrorBody              = 4096
)

// GatewayOptions tunes a GatewayClient. Zero values use defaults.
type GatewayOptions struct {
	HTTPClient  *http.Client
	Timeout     time.Duration
	MaxFailures uint32
	OpenTimeout time.Duration
}

// GatewayClient reaches providers through a provider gateway service that
// holds the live MCP sessions. Each provider has its own circuit breaker, so
// a failing provider fails fast without affecting the others.
type GatewayClient struct {
	baseURL string
	http    *http.Client
	opts    GatewayOptions
	log     *logging.Logger

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[[]byte]
}

// NewGatewayClient creates a client for the gateway at baseURL.
func NewGatewayClient(baseURL string, opts GatewayOptions, log *logging.Logger) *GatewayClient {
	if opts.MaxFailures == 0 {
		opts.MaxFailures = defaultMaxFailures
	}
	if opts.OpenTimeout == 0 {
		opts.OpenTimeout = defaultOpenTimeout
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	return &GatewayClient{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		http:     hc,
		opts:     opts,
		log:      log.Sub("toolprovider"),
		breakers: make(map[string]*gobreaker.CircuitBreaker[[]byte]),
	}
}

func (c *GatewayClient) breaker(serverID string) *gobreaker.CircuitBreaker[[]byte] {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cb, ok := c.breakers[serverID]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "provider:" + serverID,
		MaxRequests: 1,
		Interval:    defaultInterval,
		Timeout:     c.opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= c.opts.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("circuit breaker state change")
		},
		IsSuccessful: func(err error) bool {
			// Client errors say nothing about provider health.
			var pe *ProviderError
			if errors.As(err, &pe) && pe.Status > 0 && pe.Status < 500 {
				return true
			}
			return err == nil
		},
	})
	c.breakers[serverID] = cb
	return cb
}

// State reports the breaker state for a provider.
func (c *GatewayClient) State(p domain.ToolProvider) gobreaker.State {
	return c.breaker(p.ServerID()).State()
}

func (c *GatewayClient) serverPath(p domain.ToolProvider, suffix string) string {
	return "/mcp/servers/" + url.PathEscape(p.ServerID()) + suffix
}

// guarded runs one provider request through the provider's breaker.
func (c *GatewayClient) guarded(ctx context.Context, p domain.ToolProvider, op, method, path string, body any) ([]byte, error) {
	data, err := c.breaker(p.ServerID()).Execute(func() ([]byte, error) {
		return c.do(ctx, p.Name, op, method, path, body)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, &ProviderError{Provider: p.Name, Op: op, Message: "circuit open: " + err.Error()}
	}
	return data, err
}

func (c *GatewayClient) do(ctx context.Context, provider, op, method, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal %s request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &ProviderError{Provider: provider, Op: op, Message: err.Error()}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{Provider: provider, Op: op, Message: "read response: " + err.Error()}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(data))
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &ProviderError{Provider: provider, Op: op, Status: resp.StatusCode, Message: msg}
	}
	return data, nil
}

type toolsResponse struct {
	Tools []mcp.Tool `json:"tools"`
}

func (c *GatewayClient) Tools(ctx context.Context, p domain.ToolProvider) ([]mcp.Tool, error) {
	data, err := c.guarded(ctx, p, "tools", http.MethodGet, c.serverPath(p, "/tools"), nil)
	if err != nil {
		return nil, err
	}
	var out toolsResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, &ProviderError{Provider: p.Name, Op: "tools", Message: "decode: " + err.Error()}
	}
	return out.Tools, nil
}

type callRequest struct {
	ToolName  string         `json:"tool_name"`
	Arguments map[string]any `json:"arguments"`
}

func (c *GatewayClient) Call(ctx context.Context, p domain.ToolProvider, name string, args map[string]any) (*CallResult, error) {
	if args == nil {
		args = map[string]any{}
	}
	data, err := c.guarded(ctx, p, "call", http.MethodPost, c.serverPath(p, "/call"),
		callRequest{ToolName: name, Arguments: args})
	if err != nil {
		return nil, err
	}
	var out CallResult
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, &ProviderError{Provider: p.Name, Op: "call", Message: "decode: " + err.Error()}
	}
	return &out, nil
}

func (c *GatewayClient) Ping(ctx context.Context, p domain.ToolProvider) error {
	_, err := c.guarded(ctx, p, "ping", http.MethodGet, c.serverPath(p, "/ping"), nil)
	return err
}

type startAuthRequest struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

// Authenticate registers the provider with the gateway. OAuth providers go
// through the start-auth flow.
func (c *GatewayClient) Authenticate(ctx context.Context, req AuthRequest) (*AuthResult, error) {
	var (
		data []byte
		err  error
	)
	if req.AuthType == domain.AuthOAuth {
		data, err = c.do(ctx, req.Name, "start-auth", http.MethodPost, "/mcp/start-auth",
			startAuthRequest{URL: req.URL, Name: req.Name})
	} else {
		data, err = c.do(ctx, req.Name, "authenticate", http.MethodPost, "/mcp/authenticate", req)
	}
	if err != nil {
		return nil, err
	}
	var out AuthResult
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, &ProviderError{Provider: req.Name, Op: "authenticate", Message: "decode: " + err.Error()}
	}
	return &out, nil
}

func (c *GatewayClient) Disconnect(ctx context.Context, p domain.ToolProvider) error {
	_, err := c.do(ctx, p.Name, "disconnect", http.MethodDelete, c.serverPath(p, ""), nil)
	return err
}
