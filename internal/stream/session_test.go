package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/mcpchat/internal/domain"
)

// transportFunc adapts a function to Transport.
type transportFunc func(ctx context.Context, req ChatRequest) (io.ReadCloser, error)

func (f transportFunc) Open(ctx context.Context, req ChatRequest) (io.ReadCloser, error) {
	return f(ctx, req)
}

func staticTransport(id, text string) (Transport, *[]ChatRequest) {
	var mu sync.Mutex
	var reqs []ChatRequest
	return transportFunc(func(ctx context.Context, req ChatRequest) (io.ReadCloser, error) {
		mu.Lock()
		reqs = append(reqs, req)
		mu.Unlock()
		return io.NopCloser(NewReader(id, text)), nil
	}), &reqs
}

func seqIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("local-%d", n)
	}
}

func TestSessionSubmitHappyPath(t *testing.T) {
	tr, reqs := staticTransport("server-1", "hello")
	var finished domain.Message
	var updates []domain.Message
	s := NewSession(SessionConfig{
		ChatID:    "chat-1",
		Model:     "chat-model",
		Transport: tr,
		NewID:     seqIDs(),
		InitialMessages: []domain.Message{
			{ID: "old", Role: domain.RoleAssistant, Content: "earlier"},
		},
		OnFinish: func(m domain.Message) { finished = m },
		OnUpdate: func(m domain.Message) { updates = append(updates, m) },
	})

	text, err := s.Submit(context.Background(), "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
	assert.Equal(t, StatusReady, s.Status())

	msgs := s.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "old", msgs[0].ID)
	assert.Equal(t, domain.RoleUser, msgs[1].Role)
	assert.Equal(t, "hi", msgs[1].Content)
	assert.Equal(t, "server-1", msgs[2].ID)
	assert.Equal(t, "hello", msgs[2].Content)
	assert.Equal(t, "hello", msgs[2].Parts[0].Text)

	assert.Equal(t, "server-1", finished.ID)
	require.NotEmpty(t, updates)
	assert.Equal(t, "hello", updates[len(updates)-1].Content)

	require.Len(t, *reqs, 1)
	req := (*reqs)[0]
	assert.Equal(t, "chat-1", req.ID)
	assert.Equal(t, "chat-model", req.SelectedChatModel)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "hi", req.Messages[1].Content)
	require.Len(t, req.Messages[0].Parts, 1, "initial messages get parts")
}

func TestSessionIgnoresEmptyInput(t *testing.T) {
	tr, reqs := staticTransport("x", "y")
	s := NewSession(SessionConfig{Transport: tr})

	text, err := s.Submit(context.Background(), "   ", nil)
	require.NoError(t, err)
	assert.Empty(t, text)
	assert.Empty(t, *reqs)
	assert.Empty(t, s.Messages())

	_, err = s.Submit(context.Background(), "", []domain.Attachment{{URL: "https://f/a.png"}})
	require.NoError(t, err)
	assert.Len(t, *reqs, 1)
}

func TestSessionMultipleDeltasAndUnknownEvents(t *testing.T) {
	body := `data: {"type":"message-annotation","messageIdFromServer":"srv"}` + "\n\n" +
		`data: {"type":"text-delta","content":"hel"}` + "\n\n" +
		`data: {"type":"reasoning","content":"ignored"}` + "\n\n" +
		`data: {"type":"text-delta","content":"lo"}` + "\n\n" +
		`data: {"type":"finish","content":""}` + "\n\n" +
		`data: {"type":"text-delta","content":"after finish"}` + "\n\n"
	tr := transportFunc(func(context.Context, ChatRequest) (io.ReadCloser, error) {
		return io.NopCloser(iotestOneByte(body)), nil
	})
	s := NewSession(SessionConfig{Transport: tr})

	text, err := s.Submit(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
	msgs := s.Messages()
	assert.Equal(t, "srv", msgs[1].ID)
}

func TestSessionEOFWithoutFinish(t *testing.T) {
	body := `data: {"type":"text-delta","content":"partial"}`
	tr := transportFunc(func(context.Context, ChatRequest) (io.ReadCloser, error) {
		return io.NopCloser(iotestOneByte(body)), nil
	})
	s := NewSession(SessionConfig{Transport: tr})

	text, err := s.Submit(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Equal(t, "partial", text)
	assert.Equal(t, StatusReady, s.Status())
}

func TestSessionTransportError(t *testing.T) {
	boom := &HTTPStatusError{Status: 500, Body: "Error with model backend"}
	tr := transportFunc(func(context.Context, ChatRequest) (io.ReadCloser, error) { return nil, boom })

	var gotErr error
	var notice string
	s := NewSession(SessionConfig{
		Transport: tr,
		OnError:   func(err error) { gotErr = err },
		Notify:    func(text string) { notice = text },
	})

	_, err := s.Submit(context.Background(), "q", nil)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StatusError, s.Status())
	assert.Equal(t, boom, gotErr)
	assert.Equal(t, ErrorNotice, notice)
	assert.Len(t, s.Messages(), 1, "user message is kept")

	// a failed session accepts the next submission
	s.cfg.Transport, _ = staticTransport("ok", "fine")
	text, err := s.Submit(context.Background(), "again", nil)
	require.NoError(t, err)
	assert.Equal(t, "fine", text)
	assert.Equal(t, StatusReady, s.Status())
}

func TestSessionReadErrorKeepsContent(t *testing.T) {
	readErr := errors.New("connection reset")
	tr := transportFunc(func(context.Context, ChatRequest) (io.ReadCloser, error) {
		r := io.MultiReader(
			iotestOneByte(`data: {"type":"text-delta","content":"par"}`+"\n\n"),
			errReader{err: readErr},
		)
		return io.NopCloser(r), nil
	})
	s := NewSession(SessionConfig{Transport: tr})

	text, err := s.Submit(context.Background(), "q", nil)
	assert.ErrorIs(t, err, readErr)
	assert.Equal(t, "par", text)
	assert.Equal(t, StatusError, s.Status())
	assert.Equal(t, "par", s.Messages()[1].Content)
}

// blockingTransport streams the first delta and then blocks until the
// request context is cancelled or release is closed.
func blockingTransport(release <-chan struct{}) (Transport, <-chan struct{}) {
	started := make(chan struct{}, 4)
	return transportFunc(func(ctx context.Context, req ChatRequest) (io.ReadCloser, error) {
		pr, pw := io.Pipe()
		go func() {
			_, _ = pw.Write([]byte(`data: {"type":"text-delta","content":"first"}` + "\n\n"))
			started <- struct{}{}
			select {
			case <-ctx.Done():
				pw.CloseWithError(ctx.Err())
			case <-release:
				_, _ = pw.Write([]byte(`data: {"type":"text-delta","content":" second"}` + "\n\n"))
				pw.Close()
			}
		}()
		return pr, nil
	}), started
}

func TestSessionRejectsWhileStreaming(t *testing.T) {
	release := make(chan struct{})
	tr, started := blockingTransport(release)
	s := NewSession(SessionConfig{Transport: tr})

	done := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background(), "one", nil)
		done <- err
	}()
	<-started
	assert.Equal(t, StatusStreaming, s.Status())

	_, err := s.Submit(context.Background(), "two", nil)
	assert.ErrorIs(t, err, ErrBusy)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, StatusReady, s.Status())
	assert.Equal(t, "first second", s.Messages()[1].Content)
	assert.Len(t, s.Messages(), 2, "rejected submission adds nothing")
}

func TestSessionStop(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	tr, started := blockingTransport(release)
	var finishes, errs int
	s := NewSession(SessionConfig{
		Transport: tr,
		OnFinish:  func(domain.Message) { finishes++ },
		OnError:   func(error) { errs++ },
	})

	done := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background(), "one", nil)
		done <- err
	}()
	<-started
	require.Eventually(t, func() bool { return len(s.Messages()) == 2 && s.Messages()[1].Content == "first" },
		time.Second, 5*time.Millisecond)

	s.Stop()
	assert.Equal(t, StatusReady, s.Status())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("submission did not end after Stop")
	}
	assert.Equal(t, StatusReady, s.Status(), "stopped loop leaves status alone")
	assert.Equal(t, "first", s.Messages()[1].Content)
	assert.Zero(t, finishes)
	assert.Zero(t, errs)
}

func TestSessionAppendAndSetMessages(t *testing.T) {
	s := NewSession(SessionConfig{})
	assert.Equal(t, "x", s.Append(domain.Message{ID: "1", Role: domain.RoleUser, Content: "x"}))
	msgs := s.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "x", msgs[0].Parts[0].Text)

	msgs[0].Content = "mutated"
	assert.Equal(t, "x", s.Messages()[0].Content, "Messages returns copies")

	s.SetMessages(nil)
	assert.Empty(t, s.Messages())
	s.Stop()
	assert.Equal(t, StatusReady, s.Status())
}

type errReader struct{ err error }

func (e errReader) Read([]byte) (int, error) { return 0, e.err }

// oneByteReader returns at most one byte per Read.
type oneByteReader struct{ data []byte }

func (r *oneByteReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}
	p[0] = r.data[0]
	r.data = r.data[1:]
	return 1, nil
}

func iotestOneByte(s string) io.Reader { return &oneByteReader{data: []byte(s)} }
