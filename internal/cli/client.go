package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/soyeahso/mcpchat/internal/config"
	"github.com/soyeahso/mcpchat/internal/version"
)

// apiClient is the thin HTTP client behind the servers and tools commands.
type apiClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// clientConfig loads the client section of the config file and applies the
// --server and --token overrides.
func clientConfig() config.ClientConfig {
	cfg, err := config.Load(paths.Config)
	if err != nil {
		log.Warn().Err(err).Msg("config not loaded, using defaults")
		cfg = config.Defaults()
	}
	cc := cfg.Client
	if serverURL != "" {
		cc.ServerURL = serverURL
	}
	if token != "" {
		cc.Token = token
	}
	return cc
}

func newAPIClient(cc config.ClientConfig) *apiClient {
	return &apiClient{
		baseURL: strings.TrimSuffix(cc.ServerURL, "/"),
		token:   cc.Token,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

// do sends body as JSON and decodes a 2xx reply into out. Error replies are
// reported with the server's message.
func (c *apiClient) do(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s %s: %d %s", method, path, resp.StatusCode, errorText(data))
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// errorText extracts {"error": "..."} bodies, falling back to the raw text.
func errorText(data []byte) string {
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		return body.Error
	}
	return strings.TrimSpace(string(data))
}
