package toolprovider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/soyeahso/mcpchat/internal/domain"
	"github.com/soyeahso/mcpchat/internal/logging"
	"github.com/soyeahso/mcpchat/internal/version"
)

const defaultCallTimeout = 30 * time.Second

// DirectClient speaks MCP over streamable HTTP straight to provider URLs.
// Each operation opens a short-lived session.
type DirectClient struct {
	callTimeout  time.Duration
	newTransport func(url string, headers map[string]string) (transport.Interface, error)
	log          *logging.Logger
}

func streamableTransport(url string, headers map[string]string) (transport.Interface, error) {
	return transport.NewStreamableHTTP(url, transport.WithHTTPHeaders(headers))
}

// NewDirectClient creates a DirectClient. Zero callTimeout uses 30s.
func NewDirectClient(callTimeout time.Duration, log *logging.Logger) *DirectClient {
	if callTimeout <= 0 {
		callTimeout = defaultCallTimeout
	}
	return &DirectClient{
		callTimeout:  callTimeout,
		newTransport: streamableTransport,
		log:          log.Sub("toolprovider.direct"),
	}
}

// authHeaders builds request headers from provider credentials.
func authHeaders(ctx context.Context, authType domain.AuthType, creds domain.ProviderCredentials) (map[string]string, error) {
	headers := map[string]string{}
	switch authType {
	case domain.AuthBearer:
		if creds.Token == "" {
			return nil, errors.New("bearer auth requires a token")
		}
		headers["Authorization"] = "Bearer " + creds.Token
	case domain.AuthAPIKey:
		if creds.APIKey == "" {
			return nil, errors.New("apikey auth requires an apiKey")
		}
		headers["X-API-Key"] = creds.APIKey
	case domain.AuthOAuth:
		tok, err := oauthToken(ctx, creds)
		if err != nil {
			return nil, err
		}
		headers["Authorization"] = "Bearer " + tok.AccessToken
	}
	return headers, nil
}

// oauthToken obtains an access token: a refresh token is exchanged when
// present, otherwise the client credentials grant is used.
func oauthToken(ctx context.Context, creds domain.ProviderCredentials) (*oauth2.Token, error) {
	if creds.TokenURL == "" || creds.ClientID == "" {
		if creds.AccessToken != "" {
			return &oauth2.Token{AccessToken: creds.AccessToken}, nil
		}
		return nil, errors.New("oauth requires clientId and tokenUrl")
	}

	var src oauth2.TokenSource
	if creds.RefreshToken != "" {
		cfg := &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			Endpoint:     oauth2.Endpoint{AuthURL: creds.AuthURL, TokenURL: creds.TokenURL},
			Scopes:       creds.Scopes,
		}
		src = cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: creds.RefreshToken})
	} else {
		cfg := &clientcredentials.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			TokenURL:     creds.TokenURL,
			Scopes:       creds.Scopes,
		}
		src = cfg.TokenSource(ctx)
	}
	tok, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("oauth token: %w", err)
	}
	return tok, nil
}

// session opens and initializes an MCP session to url.
func (c *DirectClient) session(ctx context.Context, url string, authType domain.AuthType, rawCreds json.RawMessage) (*mcpclient.Client, error) {
	creds, err := domain.ToolProvider{Credentials: rawCreds}.DecodeCredentials()
	if err != nil {
		return nil, fmt.Errorf("decode credentials: %w", err)
	}
	headers, err := authHeaders(ctx, authType, creds)
	if err != nil {
		return nil, err
	}
	headers["User-Agent"] = version.UserAgent()

	t, err := c.newTransport(url, headers)
	if err != nil {
		return nil, fmt.Errorf("create http transport: %w", err)
	}
	cl := mcpclient.NewClient(t)
	if err := cl.Start(ctx); err != nil {
		cl.Close()
		return nil, fmt.Errorf("start http client: %w", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "mcpchat", Version: version.Version}
	if _, err := cl.Initialize(ctx, initReq); err != nil {
		cl.Close()
		return nil, fmt.Errorf("initialize: %w", err)
	}
	return cl, nil
}

func (c *DirectClient) open(ctx context.Context, p domain.ToolProvider, op string) (*mcpclient.Client, context.Context, context.CancelFunc, error) {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	cl, err := c.session(ctx, p.URL, p.AuthType, p.Credentials)
	if err != nil {
		cancel()
		return nil, nil, nil, &ProviderError{Provider: p.Name, Op: op, Message: err.Error()}
	}
	return cl, ctx, cancel, nil
}

func (c *DirectClient) Tools(ctx context.Context, p domain.ToolProvider) ([]mcp.Tool, error) {
	cl, ctx, cancel, err := c.open(ctx, p, "tools")
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer cl.Close()

	res, err := cl.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, &ProviderError{Provider: p.Name, Op: "tools", Message: err.Error()}
	}
	return res.Tools, nil
}

func (c *DirectClient) Call(ctx context.Context, p domain.ToolProvider, name string, args map[string]any) (*CallResult, error) {
	cl, ctx, cancel, err := c.open(ctx, p, "call")
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer cl.Close()

	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	c.log.Debug().Str("provider", p.Name).Str("tool", name).Msg("mcp tool call")
	res, err := cl.CallTool(ctx, req)
	if err != nil {
		return nil, &ProviderError{Provider: p.Name, Op: "call", Message: err.Error()}
	}
	return toCallResult(res), nil
}

// toCallResult maps an MCP result onto the gateway result shape: structured
// content wins, otherwise text blocks are joined.
func toCallResult(res *mcp.CallToolResult) *CallResult {
	text := contentText(res.Content)
	if res.IsError {
		return &CallResult{Success: false, Error: text}
	}
	if res.StructuredContent != nil {
		return &CallResult{Success: true, Result: res.StructuredContent}
	}
	return &CallResult{Success: true, Result: text}
}

func contentText(content []mcp.Content) string {
	var parts []string
	for _, c := range content {
		switch v := c.(type) {
		case mcp.TextContent:
			parts = append(parts, v.Text)
		case *mcp.TextContent:
			parts = append(parts, v.Text)
		default:
			if data, err := json.Marshal(v); err == nil {
				parts = append(parts, string(data))
			}
		}
	}
	return strings.Join(parts, "\n")
}

func (c *DirectClient) Ping(ctx context.Context, p domain.ToolProvider) error {
	cl, ctx, cancel, err := c.open(ctx, p, "ping")
	if err != nil {
		return err
	}
	defer cancel()
	defer cl.Close()

	if err := cl.Ping(ctx); err != nil {
		return &ProviderError{Provider: p.Name, Op: "ping", Message: err.Error()}
	}
	return nil
}

// Authenticate verifies the provider accepts an MCP session with the given
// credentials. Direct providers have no remote id.
func (c *DirectClient) Authenticate(ctx context.Context, req AuthRequest) (*AuthResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()
	cl, err := c.session(ctx, req.URL, req.AuthType, req.Credentials)
	if err != nil {
		return &AuthResult{Success: false, Message: err.Error()}, nil
	}
	cl.Close()
	return &AuthResult{Success: true, Message: "connected"}, nil
}

// Disconnect is a no-op: direct sessions are never kept open.
func (c *DirectClient) Disconnect(context.Context, domain.ToolProvider) error { return nil }
