package stream

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/soyeahso/mcpchat/internal/domain"
	"github.com/soyeahso/mcpchat/internal/logging"
)

// Status is the client-side chat state.
type Status string

const (
	StatusReady     Status = "ready"
	StatusStreaming Status = "streaming"
	StatusError     Status = "error"
)

// ErrBusy is returned by Submit while a previous submission is streaming.
var ErrBusy = errors.New("stream: a submission is already streaming")

// ErrorNotice is the user-visible message for a failed submission.
const ErrorNotice = "An error occurred, please try again!"

const readChunkSize = 4096

// ChatRequest is the body a client sends to start a submission.
type ChatRequest struct {
	ID                string           `json:"id"`
	Messages          []domain.Message `json:"messages"`
	SelectedChatModel string           `json:"selectedChatModel,omitempty"`
}

// Transport opens the byte stream for one submission.
type Transport interface {
	Open(ctx context.Context, req ChatRequest) (io.ReadCloser, error)
}

// SessionConfig configures a Session. Callbacks are optional and are never
// invoked while the session lock is held.
type SessionConfig struct {
	ChatID          string
	Model           string
	Transport       Transport
	InitialMessages []domain.Message

	OnFinish func(assistant domain.Message)
	OnError  func(err error)
	OnUpdate func(msg domain.Message)
	Notify   func(text string)

	NewID func() string
	Log   *logging.Logger
}

// Session holds the message list and status for one chat on the client.
type Session struct {
	cfg SessionConfig
	log *logging.Logger

	mu       sync.Mutex
	messages []domain.Message
	status   Status
	gen      uint64 // bumped per submission and per Stop
	cancel   context.CancelFunc
}

// NewSession creates a ready session.
func NewSession(cfg SessionConfig) *Session {
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	log := cfg.Log
	if log == nil {
		log = logging.New(nil, "silent")
	}
	msgs := make([]domain.Message, 0, len(cfg.InitialMessages))
	for _, m := range cfg.InitialMessages {
		m = m.Clone()
		m.EnsureParts()
		msgs = append(msgs, m)
	}
	return &Session{
		cfg:      cfg,
		log:      log.Sub("stream").With("chatId", cfg.ChatID),
		messages: msgs,
		status:   StatusReady,
	}
}

// Submit sends text as a new user message and folds the streamed reply into
// the message list. It returns the assistant text. Empty input without
// attachments is ignored.
func (s *Session) Submit(ctx context.Context, text string, attachments []domain.Attachment) (string, error) {
	if strings.TrimSpace(text) == "" && len(attachments) == 0 {
		return "", nil
	}

	s.mu.Lock()
	if s.status == StatusStreaming {
		s.mu.Unlock()
		return "", ErrBusy
	}
	user := domain.NewTextMessage(s.cfg.NewID(), domain.RoleUser, text)
	user.ChatID = s.cfg.ChatID
	user.Attachments = attachments
	user.CreatedAt = time.Now()
	s.messages = append(s.messages, user)
	s.status = StatusStreaming
	s.gen++
	gen := s.gen
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	req := ChatRequest{
		ID:                s.cfg.ChatID,
		Messages:          cloneAll(s.messages),
		SelectedChatModel: s.cfg.Model,
	}
	s.mu.Unlock()
	defer cancel()

	body, err := s.cfg.Transport.Open(ctx, req)
	if err != nil {
		return "", s.fail(gen, err)
	}
	defer body.Close()

	assistant := domain.NewTextMessage(s.cfg.NewID(), domain.RoleAssistant, "")
	assistant.ChatID = s.cfg.ChatID
	assistant.CreatedAt = time.Now()
	if !s.appendMessage(gen, assistant) {
		return "", nil
	}

	if err := s.read(gen, body, &assistant); err != nil {
		return assistant.Content, s.fail(gen, err)
	}

	s.mu.Lock()
	current := gen == s.gen
	if current {
		s.status = StatusReady
	}
	s.mu.Unlock()

	if current && s.cfg.OnFinish != nil {
		s.cfg.OnFinish(assistant.Clone())
	}
	return assistant.Content, nil
}

// read consumes body until a finish frame or EOF.
func (s *Session) read(gen uint64, body io.Reader, assistant *domain.Message) error {
	var dec Decoder
	buf := make([]byte, readChunkSize)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			for _, ev := range dec.Feed(buf[:n]) {
				if s.apply(gen, assistant, ev) {
					return nil
				}
			}
		}
		if errors.Is(err, io.EOF) {
			for _, ev := range dec.Flush() {
				if s.apply(gen, assistant, ev) {
					return nil
				}
			}
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// apply folds one event into the assistant message and reports whether the
// stream is finished.
func (s *Session) apply(gen uint64, assistant *domain.Message, ev Event) bool {
	switch ev.Type {
	case EventTextDelta:
		assistant.Content += ev.Content
		if len(assistant.Parts) == 0 {
			assistant.Parts = []domain.Part{{Type: domain.PartTypeText}}
		}
		assistant.Parts[0].Text = assistant.Content
		s.replace(gen, assistant.ID, *assistant)
	case EventAnnotation:
		if ev.MessageIDFromServer == "" || ev.MessageIDFromServer == assistant.ID {
			return false
		}
		oldID := assistant.ID
		assistant.ID = ev.MessageIDFromServer
		s.replace(gen, oldID, *assistant)
	case EventFinish:
		return true
	}
	return false
}

func (s *Session) appendMessage(gen uint64, m domain.Message) bool {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return false
	}
	s.messages = append(s.messages, m.Clone())
	s.mu.Unlock()
	s.publish(m)
	return true
}

// replace swaps the message with id for m, keeping its position.
func (s *Session) replace(gen uint64, id string, m domain.Message) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	for i := range s.messages {
		if s.messages[i].ID == id {
			s.messages[i] = m.Clone()
			break
		}
	}
	s.mu.Unlock()
	s.publish(m)
}

func (s *Session) publish(m domain.Message) {
	if s.cfg.OnUpdate != nil {
		s.cfg.OnUpdate(m.Clone())
	}
}

// fail moves a current submission to the error state. Failures of a
// stopped or superseded submission are dropped.
func (s *Session) fail(gen uint64, err error) error {
	s.mu.Lock()
	current := gen == s.gen
	if current {
		s.status = StatusError
	}
	s.mu.Unlock()

	if !current {
		s.log.Debug().Err(err).Msg("stopped submission ended")
		return nil
	}

	s.log.Error().Err(err).Msg("chat submission failed")
	if s.cfg.OnError != nil {
		s.cfg.OnError(err)
	}
	if s.cfg.Notify != nil {
		s.cfg.Notify(ErrorNotice)
	}
	return err
}

// Stop returns the session to ready and abandons the in-flight read.
// Content already received is kept.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusStreaming {
		s.status = StatusReady
		return
	}
	s.status = StatusReady
	s.gen++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Status returns the current state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Messages returns a copy of the message list.
func (s *Session) Messages() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.messages)
}

// Append adds a message without contacting the server.
func (s *Session) Append(m domain.Message) string {
	m = m.Clone()
	m.EnsureParts()
	s.mu.Lock()
	s.messages = append(s.messages, m)
	s.mu.Unlock()
	return m.Content
}

// SetMessages replaces the message list.
func (s *Session) SetMessages(msgs []domain.Message) {
	c := cloneAll(msgs)
	s.mu.Lock()
	s.messages = c
	s.mu.Unlock()
}

func cloneAll(msgs []domain.Message) []domain.Message {
	out := make([]domain.Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.Clone()
	}
	return out
}
