package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/soyeahso/mcpchat/internal/backend"
	"github.com/soyeahso/mcpchat/internal/domain"
	"github.com/soyeahso/mcpchat/internal/logging"
	"github.com/soyeahso/mcpchat/internal/tracing"
)

// ChatStore is the chat persistence the service needs.
type ChatStore interface {
	GetChat(ctx context.Context, id string) (*domain.Chat, error)
	SaveChat(ctx context.Context, c domain.Chat) error
	DeleteChat(ctx context.Context, id string) error
	ListChats(ctx context.Context, userID string) ([]domain.Chat, error)
	UpdateVisibility(ctx context.Context, id string, v domain.Visibility) error
}

// MessageStore is the message persistence the service needs.
type MessageStore interface {
	SaveMessages(ctx context.Context, msgs []domain.Message) error
	MessagesByChat(ctx context.Context, chatID string) ([]domain.Message, error)
	GetMessage(ctx context.Context, id string) (*domain.Message, error)
	DeleteMessagesAfter(ctx context.Context, chatID string, ts time.Time) (int64, error)
}

// SubmitRequest is one chat submission from a client.
type SubmitRequest struct {
	ID                string           `json:"id"`
	Messages          []domain.Message `json:"messages"`
	SelectedChatModel string           `json:"selectedChatModel"`
}

// Reply is the complete assistant turn produced for a submission.
type Reply struct {
	MessageID string
	Content   string
	Backend   string
}

// Service runs the chat submission pipeline and chat management operations.
type Service struct {
	chats    ChatStore
	messages MessageStore
	backends *backend.Registry
	system   string
	log      *logging.Logger

	saves sync.WaitGroup
}

// NewService creates a chat service. system is sent as the system prompt on
// every dispatch.
func NewService(chats ChatStore, messages MessageStore, backends *backend.Registry, system string, log *logging.Logger) *Service {
	return &Service{
		chats:    chats,
		messages: messages,
		backends: backends,
		system:   system,
		log:      log.Sub("chat"),
	}
}

// Submit persists the latest user turn, dispatches the conversation and
// returns the full reply. The assistant turn is saved in the background.
func (s *Service) Submit(ctx context.Context, p *domain.Principal, req SubmitRequest) (reply *Reply, err error) {
	ctx, span := tracing.StartSpan(ctx, "chat.submit",
		attribute.String("chat.id", req.ID),
		attribute.String("chat.model", req.SelectedChatModel))
	defer func() { tracing.End(span, err) }()

	if !p.Authenticated() {
		return nil, domain.ErrUnauthenticated
	}
	userMsg, ok := MostRecentUserMessage(req.Messages)
	if !ok {
		return nil, domain.Invalid("messages", "No user message found")
	}
	if req.ID == "" {
		return nil, domain.Invalid("id", "chat id is required")
	}

	chat, err := s.chats.GetChat(ctx, req.ID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		chat = &domain.Chat{
			ID:         req.ID,
			UserID:     p.UserID,
			Title:      domain.TitleFromMessage(userMsg),
			Visibility: domain.VisibilityPrivate,
			CreatedAt:  time.Now(),
		}
		if err := s.chats.SaveChat(ctx, *chat); err != nil {
			return nil, fmt.Errorf("create chat: %w", err)
		}
		s.log.Debug().Str("chat", chat.ID).Str("title", chat.Title).Msg("chat created")
	case err != nil:
		return nil, fmt.Errorf("load chat: %w", err)
	case chat.UserID != p.UserID:
		return nil, domain.ErrForbidden
	}

	userMsg = userMsg.Clone()
	userMsg.ChatID = chat.ID
	userMsg.CreatedAt = time.Now()
	userMsg.EnsureParts()
	if err := s.claimMessageID(ctx, &userMsg); err != nil {
		return nil, err
	}
	if err := s.messages.SaveMessages(ctx, []domain.Message{userMsg}); err != nil {
		return nil, fmt.Errorf("save user message: %w", err)
	}

	b, err := s.backends.Resolve(req.SelectedChatModel)
	if err != nil {
		return nil, &backend.BackendError{Backend: req.SelectedChatModel, Err: err}
	}
	resp, err := b.Complete(ctx, backend.Request{
		Model:    req.SelectedChatModel,
		System:   s.system,
		Messages: Normalize(req.Messages),
	})
	if err != nil {
		var be *backend.BackendError
		if !errors.As(err, &be) {
			err = &backend.BackendError{Backend: b.Name(), Err: err}
		}
		return nil, err
	}

	reply = &Reply{MessageID: uuid.NewString(), Content: resp.Text, Backend: b.Name()}
	assistant := domain.NewTextMessage(reply.MessageID, domain.RoleAssistant, resp.Text)
	assistant.ChatID = chat.ID
	assistant.CreatedAt = time.Now()
	s.saveDetached(ctx, assistant)

	s.log.Info().Str("chat", chat.ID).Str("backend", b.Name()).
		Dur("duration", resp.Duration).Int("chars", len(resp.Text)).Msg("reply ready")
	return reply, nil
}

// claimMessageID gives msg a fresh id when it has none or when the id is
// already taken by another chat. A persisted message is never overwritten.
func (s *Service) claimMessageID(ctx context.Context, msg *domain.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
		return nil
	}
	existing, err := s.messages.GetMessage(ctx, msg.ID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
	case err != nil:
		return fmt.Errorf("load message: %w", err)
	case existing.ChatID != msg.ChatID:
		s.log.Warn().Str("chat", msg.ChatID).Str("message", msg.ID).
			Msg("message id belongs to another chat, assigning a new one")
		msg.ID = uuid.NewString()
	}
	return nil
}

// saveDetached persists msg without blocking the caller. Failures are logged
// only; the reply has already been delivered.
func (s *Service) saveDetached(ctx context.Context, msg domain.Message) {
	ctx = context.WithoutCancel(ctx)
	s.saves.Add(1)
	go func() {
		defer s.saves.Done()
		if err := s.messages.SaveMessages(ctx, []domain.Message{msg}); err != nil {
			s.log.Error().Err(err).Str("chat", msg.ChatID).Str("message", msg.ID).
				Msg("failed to save assistant message")
		}
	}()
}

// Wait blocks until all background saves have finished.
func (s *Service) Wait() {
	s.saves.Wait()
}

// owned loads a chat and checks that p owns it.
func (s *Service) owned(ctx context.Context, p *domain.Principal, chatID string) (*domain.Chat, error) {
	if !p.Authenticated() {
		return nil, domain.ErrUnauthenticated
	}
	if chatID == "" {
		return nil, domain.ErrNotFound
	}
	chat, err := s.chats.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if chat.UserID != p.UserID {
		return nil, domain.ErrForbidden
	}
	return chat, nil
}

// DeleteChat removes an owned chat and returns it. A missing id is
// ErrNotFound before the principal is checked.
func (s *Service) DeleteChat(ctx context.Context, p *domain.Principal, chatID string) (*domain.Chat, error) {
	if chatID == "" {
		return nil, domain.ErrNotFound
	}
	chat, err := s.owned(ctx, p, chatID)
	if err != nil {
		return nil, err
	}
	if err := s.chats.DeleteChat(ctx, chat.ID); err != nil {
		return nil, err
	}
	s.log.Info().Str("chat", chat.ID).Msg("chat deleted")
	return chat, nil
}

// ListChats returns the principal's chats, newest first.
func (s *Service) ListChats(ctx context.Context, p *domain.Principal) ([]domain.Chat, error) {
	if !p.Authenticated() {
		return nil, domain.ErrUnauthenticated
	}
	return s.chats.ListChats(ctx, p.UserID)
}

// History returns a chat's persisted messages. Public chats are readable by
// any authenticated user.
func (s *Service) History(ctx context.Context, p *domain.Principal, chatID string) ([]domain.Message, error) {
	if !p.Authenticated() {
		return nil, domain.ErrUnauthenticated
	}
	chat, err := s.chats.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if chat.UserID != p.UserID && chat.Visibility != domain.VisibilityPublic {
		return nil, domain.ErrForbidden
	}
	return s.messages.MessagesByChat(ctx, chat.ID)
}

// DeleteTrailingMessages removes messageID and every later message in its chat.
func (s *Service) DeleteTrailingMessages(ctx context.Context, p *domain.Principal, messageID string) (int64, error) {
	if !p.Authenticated() {
		return 0, domain.ErrUnauthenticated
	}
	msg, err := s.messages.GetMessage(ctx, messageID)
	if err != nil {
		return 0, err
	}
	if _, err := s.owned(ctx, p, msg.ChatID); err != nil {
		return 0, err
	}
	return s.messages.DeleteMessagesAfter(ctx, msg.ChatID, msg.CreatedAt)
}

// SetVisibility changes who may read an owned chat.
func (s *Service) SetVisibility(ctx context.Context, p *domain.Principal, chatID string, v domain.Visibility) error {
	if !v.Valid() {
		return domain.Invalid("visibility", fmt.Sprintf("unknown visibility %q", v))
	}
	if _, err := s.owned(ctx, p, chatID); err != nil {
		return err
	}
	return s.chats.UpdateVisibility(ctx, chatID, v)
}
