package store

import (
	"context"
	"fmt"

	"github.com/soyeahso/mcpchat/internal/domain"
)

// ChatStore persists chats.
type ChatStore struct {
	db *DB
}

// NewChatStore creates a chat store using the given database.
func NewChatStore(db *DB) *ChatStore {
	return &ChatStore{db: db}
}

const chatColumns = `id, user_id, title, visibility, created_at`

// GetChat returns a chat by id.
func (s *ChatStore) GetChat(ctx context.Context, id string) (*domain.Chat, error) {
	row := s.db.sql.QueryRowContext(ctx, `SELECT `+chatColumns+` FROM chats WHERE id = ?`, id)
	c, err := scanChat(row)
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

// SaveChat inserts a new chat.
func (s *ChatStore) SaveChat(ctx context.Context, c domain.Chat) error {
	if c.Visibility == "" {
		c.Visibility = domain.VisibilityPrivate
	}
	_, err := s.db.sql.ExecContext(ctx,
		`INSERT INTO chats (`+chatColumns+`) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Title, string(c.Visibility), formatTime(c.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert chat %s: %w", c.ID, err)
	}
	return nil
}

// DeleteChat removes a chat and, by cascade, its messages.
func (s *ChatStore) DeleteChat(ctx context.Context, id string) error {
	res, err := s.db.sql.ExecContext(ctx, `DELETE FROM chats WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete chat %s: %w", id, err)
	}
	return requireAffected(res)
}

// ListChats returns a user's chats, newest first.
func (s *ChatStore) ListChats(ctx context.Context, userID string) ([]domain.Chat, error) {
	rows, err := s.db.sql.QueryContext(ctx,
		`SELECT `+chatColumns+` FROM chats WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	defer rows.Close()

	chats := []domain.Chat{}
	for rows.Next() {
		c, err := scanChat(rows)
		if err != nil {
			return nil, err
		}
		chats = append(chats, *c)
	}
	return chats, rows.Err()
}

// UpdateVisibility sets a chat's visibility.
func (s *ChatStore) UpdateVisibility(ctx context.Context, id string, v domain.Visibility) error {
	res, err := s.db.sql.ExecContext(ctx, `UPDATE chats SET visibility = ? WHERE id = ?`, string(v), id)
	if err != nil {
		return fmt.Errorf("update chat %s: %w", id, err)
	}
	return requireAffected(res)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanChat(r scanner) (*domain.Chat, error) {
	var c domain.Chat
	var visibility, createdAt string
	if err := r.Scan(&c.ID, &c.UserID, &c.Title, &visibility, &createdAt); err != nil {
		return nil, err
	}
	c.Visibility = domain.Visibility(visibility)
	c.CreatedAt = parseTime(createdAt)
	return &c, nil
}
