package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/mcpchat/internal/backend"
	"github.com/soyeahso/mcpchat/internal/domain"
	"github.com/soyeahso/mcpchat/internal/logging"
	"github.com/soyeahso/mcpchat/internal/store"
)

type fixture struct {
	svc      *Service
	chats    *store.ChatStore
	messages *store.MessageStore
	backend  *backend.MockBackend
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logging.New(nil, "silent")
	db, err := store.Open(":memory:", log)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock := &backend.MockBackend{BackendName: "default"}
	reg := backend.NewRegistry(log)
	reg.Register("default", mock)
	reg.SetFallback("default")

	f := &fixture{chats: store.NewChatStore(db), messages: store.NewMessageStore(db), backend: mock}
	f.svc = NewService(f.chats, f.messages, reg, "be brief", log)
	return f
}

var alice = &domain.Principal{UserID: "alice"}

func userMessage(text string) domain.Message {
	return domain.Message{ID: "u-" + text, Role: domain.RoleUser, Content: text}
}

func TestSubmitCreatesChatBeforeDispatch(t *testing.T) {
	f := newFixture(t)
	long := strings.Repeat("x", 100)
	f.backend.CompleteFunc = func(ctx context.Context, req backend.Request) (*backend.Response, error) {
		chat, err := f.chats.GetChat(ctx, "c1")
		require.NoError(t, err, "chat exists at dispatch time")
		assert.Len(t, chat.Title, 80)
		assert.True(t, strings.HasSuffix(chat.Title, "..."))
		msgs, err := f.messages.MessagesByChat(ctx, "c1")
		require.NoError(t, err)
		assert.Len(t, msgs, 1, "user message persisted before dispatch")
		return &backend.Response{Text: "hello back"}, nil
	}

	reply, err := f.svc.Submit(context.Background(), alice, SubmitRequest{
		ID:       "c1",
		Messages: []domain.Message{userMessage(long)},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello back", reply.Content)
	assert.NotEmpty(t, reply.MessageID)
	assert.Equal(t, "default", reply.Backend)

	f.svc.Wait()
	msgs, err := f.messages.MessagesByChat(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.RoleAssistant, msgs[1].Role)
	assert.Equal(t, reply.MessageID, msgs[1].ID)
	assert.Equal(t, "hello back", msgs[1].Text())
}

func TestSubmitNormalizesConversation(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Submit(context.Background(), alice, SubmitRequest{
		ID: "c1",
		Messages: []domain.Message{
			{Role: domain.RoleSystem, Content: "ignored"},
			{Role: domain.RoleUser, Parts: []domain.Part{{Type: "text", Text: "hi"}}},
			{Role: domain.RoleAssistant, Content: "hey"},
			userMessage("again"),
		},
		SelectedChatModel: "chat-model",
	})
	require.NoError(t, err)
	f.svc.Wait()

	reqs := f.backend.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "be brief", reqs[0].System)
	assert.Equal(t, "chat-model", reqs[0].Model)
	assert.Equal(t, []domain.CoreMessage{
		{Role: domain.RoleUser, Content: "hi"},
		{Role: domain.RoleAssistant, Content: "hey"},
		{Role: domain.RoleUser, Content: "again"},
	}, reqs[0].Messages)
}

func TestSubmitRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, nil, SubmitRequest{ID: "c1", Messages: []domain.Message{userMessage("hi")}})
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	_, err = f.svc.Submit(ctx, alice, SubmitRequest{ID: "c1", Messages: []domain.Message{{Role: domain.RoleAssistant, Content: "x"}}})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.svc.Submit(ctx, alice, SubmitRequest{Messages: []domain.Message{userMessage("hi")}})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Empty(t, f.backend.Requests())
}

func TestSubmitForeignChatForbidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.chats.SaveChat(ctx, domain.Chat{ID: "c1", UserID: "bob", Title: "bob's"}))

	_, err := f.svc.Submit(ctx, alice, SubmitRequest{ID: "c1", Messages: []domain.Message{userMessage("hi")}})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Empty(t, f.backend.Requests(), "no dispatch")
}

func TestSubmitBackendFailure(t *testing.T) {
	f := newFixture(t)
	f.backend.CompleteFunc = func(ctx context.Context, req backend.Request) (*backend.Response, error) {
		return nil, errors.New("connection reset")
	}

	_, err := f.svc.Submit(context.Background(), alice, SubmitRequest{ID: "c1", Messages: []domain.Message{userMessage("hi")}})
	var be *backend.BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "default", be.Backend)

	f.svc.Wait()
	msgs, err := f.messages.MessagesByChat(context.Background(), "c1")
	require.NoError(t, err)
	assert.Len(t, msgs, 1, "only the user message is kept")
}

type failingMessages struct {
	*store.MessageStore
	calls int
}

func (m *failingMessages) SaveMessages(ctx context.Context, msgs []domain.Message) error {
	m.calls++
	if msgs[0].Role == domain.RoleAssistant {
		return errors.New("disk full")
	}
	return m.MessageStore.SaveMessages(ctx, msgs)
}

func TestSubmitAssistantSaveFailureStillReplies(t *testing.T) {
	f := newFixture(t)
	msgs := &failingMessages{MessageStore: f.messages}
	reg := backend.NewRegistry(logging.New(nil, "silent"))
	reg.Register("default", f.backend)
	reg.SetFallback("default")
	svc := NewService(f.chats, msgs, reg, "", logging.New(nil, "silent"))

	reply, err := svc.Submit(context.Background(), alice, SubmitRequest{ID: "c1", Messages: []domain.Message{userMessage("hi")}})
	require.NoError(t, err)
	assert.Equal(t, "mock response", reply.Content)
	svc.Wait()
	assert.Equal(t, 2, msgs.calls)
}

func TestSubmitDetachedSaveSurvivesCancel(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	reply, err := f.svc.Submit(ctx, alice, SubmitRequest{ID: "c1", Messages: []domain.Message{userMessage("hi")}})
	require.NoError(t, err)
	cancel()
	f.svc.Wait()

	m, err := f.messages.GetMessage(context.Background(), reply.MessageID)
	require.NoError(t, err)
	assert.Equal(t, "c1", m.ChatID)
}

func TestSubmitNeverOverwritesAnotherChatsMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bob := &domain.Principal{UserID: "bob"}

	_, err := f.svc.Submit(ctx, alice, SubmitRequest{ID: "chat-a",
		Messages: []domain.Message{{ID: "m1", Role: domain.RoleUser, Content: "alice's question"}}})
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, bob, SubmitRequest{ID: "chat-b",
		Messages: []domain.Message{{ID: "m1", Role: domain.RoleUser, Content: "bob's question"}}})
	require.NoError(t, err)
	f.svc.Wait()

	aliceMsgs, err := f.svc.History(ctx, alice, "chat-a")
	require.NoError(t, err)
	require.Len(t, aliceMsgs, 2)
	assert.Equal(t, "m1", aliceMsgs[0].ID)
	assert.Equal(t, "alice's question", aliceMsgs[0].Text())

	bobMsgs, err := f.svc.History(ctx, bob, "chat-b")
	require.NoError(t, err)
	require.Len(t, bobMsgs, 2)
	assert.NotEqual(t, "m1", bobMsgs[0].ID, "taken id is replaced")
	assert.Equal(t, "bob's question", bobMsgs[0].Text())
}

func TestSubmitResendKeepsPersistedMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := domain.Message{ID: "m1", Role: domain.RoleUser, Content: "original"}
	_, err := f.svc.Submit(ctx, alice, SubmitRequest{ID: "c1", Messages: []domain.Message{first}})
	require.NoError(t, err)
	edited := first
	edited.Content = "rewritten"
	_, err = f.svc.Submit(ctx, alice, SubmitRequest{ID: "c1", Messages: []domain.Message{edited}})
	require.NoError(t, err)
	f.svc.Wait()

	m, err := f.messages.GetMessage(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "original", m.Content)
}

func TestSubmitStampsServerTime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	before := time.Now()
	backdated := domain.Message{ID: "m1", Role: domain.RoleUser, Content: "hi",
		CreatedAt: time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)}
	_, err := f.svc.Submit(ctx, alice, SubmitRequest{ID: "c1", Messages: []domain.Message{backdated}})
	require.NoError(t, err)
	f.svc.Wait()

	m, err := f.messages.GetMessage(ctx, "m1")
	require.NoError(t, err)
	assert.False(t, m.CreatedAt.Before(before.Add(-time.Second)), "client timestamp ignored: %v", m.CreatedAt)
}

func TestDeleteChat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.chats.SaveChat(ctx, domain.Chat{ID: "mine", UserID: "alice", Title: "a"}))
	require.NoError(t, f.chats.SaveChat(ctx, domain.Chat{ID: "bobs", UserID: "bob", Title: "b"}))

	_, err := f.svc.DeleteChat(ctx, nil, "mine")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	_, err = f.svc.DeleteChat(ctx, nil, "")
	assert.ErrorIs(t, err, domain.ErrNotFound, "missing id is reported before the session")
	_, err = f.svc.DeleteChat(ctx, alice, "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.svc.DeleteChat(ctx, alice, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.svc.DeleteChat(ctx, alice, "bobs")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	deleted, err := f.svc.DeleteChat(ctx, alice, "mine")
	require.NoError(t, err)
	assert.Equal(t, "a", deleted.Title)
	_, err = f.chats.GetChat(ctx, "mine")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestHistoryAndVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Submit(ctx, alice, SubmitRequest{ID: "c1", Messages: []domain.Message{userMessage("hi")}})
	require.NoError(t, err)
	f.svc.Wait()

	msgs, err := f.svc.History(ctx, alice, "c1")
	require.NoError(t, err)
	assert.Len(t, msgs, 2)

	bob := &domain.Principal{UserID: "bob"}
	_, err = f.svc.History(ctx, bob, "c1")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	assert.ErrorIs(t, f.svc.SetVisibility(ctx, bob, "c1", domain.VisibilityPublic), domain.ErrForbidden)
	assert.ErrorIs(t, f.svc.SetVisibility(ctx, alice, "c1", "secret"), domain.ErrValidation)
	require.NoError(t, f.svc.SetVisibility(ctx, alice, "c1", domain.VisibilityPublic))

	msgs, err = f.svc.History(ctx, bob, "c1")
	require.NoError(t, err)
	assert.Len(t, msgs, 2)

	chats, err := f.svc.ListChats(ctx, alice)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, domain.VisibilityPublic, chats[0].Visibility)
}

func TestDeleteTrailingMessages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.chats.SaveChat(ctx, domain.Chat{ID: "c1", UserID: "alice", Title: "t"}))
	base := time.Now()
	var batch []domain.Message
	for i, id := range []string{"m1", "m2", "m3"} {
		batch = append(batch, domain.Message{ID: id, ChatID: "c1", Role: domain.RoleUser, Content: id,
			CreatedAt: base.Add(time.Duration(i) * time.Second)})
	}
	require.NoError(t, f.messages.SaveMessages(ctx, batch))

	_, err := f.svc.DeleteTrailingMessages(ctx, &domain.Principal{UserID: "bob"}, "m2")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.svc.DeleteTrailingMessages(ctx, alice, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	n, err := f.svc.DeleteTrailingMessages(ctx, alice, "m2")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	msgs, err := f.svc.History(ctx, alice, "c1")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "m1", msgs[0].ID)
}
