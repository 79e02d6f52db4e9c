package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/soyeahso/mcpchat/internal/version"
)

const (
	chatPath   = "/api/chat"
	chatWSPath = "/api/chat/ws"
	maxErrBody = 4096
)

// HTTPStatusError is returned when the server rejects a submission.
type HTTPStatusError struct {
	Status int
	Body   string
}

func (e *HTTPStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP error! status: %d", e.Status)
	}
	return fmt.Sprintf("HTTP error! status: %d: %s", e.Status, e.Body)
}

// HTTPTransport posts submissions to /api/chat and returns the response body.
type HTTPTransport struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func (t *HTTPTransport) Open(ctx context.Context, req ChatRequest) (io.ReadCloser, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimSuffix(t.BaseURL, "/")+chatPath, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", version.UserAgent())
	if t.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+t.Token)
	}

	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBody))
		return nil, &HTTPStatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return resp.Body, nil
}

// WSError is the single message a WebSocket server sends when a submission
// is rejected.
type WSError struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	Status  int    `json:"status"`
}

// WSTransport sends submissions over a WebSocket to /api/chat/ws. Each
// server text message carries one stream frame.
type WSTransport struct {
	BaseURL string // http(s):// or ws(s)://
	Token   string
	Dialer  *websocket.Dialer
}

func (t *WSTransport) Open(ctx context.Context, req ChatRequest) (io.ReadCloser, error) {
	dialer := t.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	header := http.Header{}
	header.Set("User-Agent", version.UserAgent())
	if t.Token != "" {
		header.Set("Authorization", "Bearer "+t.Token)
	}

	conn, resp, err := dialer.DialContext(ctx, wsURL(t.BaseURL)+chatWSPath, header)
	if err != nil {
		if resp != nil {
			return nil, &HTTPStatusError{Status: resp.StatusCode}
		}
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	if err := conn.WriteJSON(req); err != nil {
		conn.Close()
		return nil, fmt.Errorf("websocket write: %w", err)
	}

	r := &wsReader{conn: conn, done: make(chan struct{})}
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-r.done:
		}
	}()
	return r, nil
}

func wsURL(base string) string {
	base = strings.TrimSuffix(base, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base
}

// wsReader exposes consecutive WebSocket text messages as one byte stream.
type wsReader struct {
	conn *websocket.Conn
	buf  []byte

	once sync.Once
	done chan struct{}
}

func (r *wsReader) Read(p []byte) (int, error) {
	for len(r.buf) == 0 {
		_, msg, err := r.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return 0, io.EOF
			}
			return 0, err
		}
		if !bytes.HasPrefix(msg, []byte(framePrefix)) {
			var we WSError
			if json.Unmarshal(msg, &we) == nil && we.Type == "error" {
				return 0, &HTTPStatusError{Status: we.Status, Body: we.Content}
			}
		}
		r.buf = msg
	}
	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}

func (r *wsReader) Close() error {
	var err error
	r.once.Do(func() {
		close(r.done)
		_ = r.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		err = r.conn.Close()
	})
	if errors.Is(err, websocket.ErrCloseSent) {
		return nil
	}
	return err
}
