package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/soyeahso/mcpchat/internal/domain"
)

// MessageStore persists chat messages.
type MessageStore struct {
	db *DB
}

// NewMessageStore creates a message store using the given database.
func NewMessageStore(db *DB) *MessageStore {
	return &MessageStore{db: db}
}

const messageColumns = `id, chat_id, role, content, parts, attachments, created_at`

// SaveMessages upserts messages in one transaction.
func (s *MessageStore) SaveMessages(ctx context.Context, msgs []domain.Message) error {
	tx, err := s.db.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save messages: %w", err)
	}
	defer tx.Rollback()

	for _, m := range msgs {
		m.EnsureParts()
		parts, err := json.Marshal(m.Parts)
		if err != nil {
			return fmt.Errorf("marshal parts: %w", err)
		}
		attachments := []byte("[]")
		if len(m.Attachments) > 0 {
			if attachments, err = json.Marshal(m.Attachments); err != nil {
				return fmt.Errorf("marshal attachments: %w", err)
			}
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO messages (`+messageColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO NOTHING`,
			m.ID, m.ChatID, string(m.Role), m.Content, string(parts), string(attachments), formatTime(m.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("insert message %s: %w", m.ID, err)
		}
	}
	return tx.Commit()
}

// MessagesByChat returns a chat's messages in creation order.
func (s *MessageStore) MessagesByChat(ctx context.Context, chatID string) ([]domain.Message, error) {
	rows, err := s.db.sql.QueryContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE chat_id = ? ORDER BY created_at, rowid`, chatID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	msgs := []domain.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, *m)
	}
	return msgs, rows.Err()
}

// GetMessage returns a message by id.
func (s *MessageStore) GetMessage(ctx context.Context, id string) (*domain.Message, error) {
	row := s.db.sql.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = ?`, id)
	m, err := scanMessage(row)
	if err != nil {
		return nil, notFound(err)
	}
	return m, nil
}

// DeleteMessagesAfter removes a chat's messages created at or after ts and
// reports how many were deleted.
func (s *MessageStore) DeleteMessagesAfter(ctx context.Context, chatID string, ts time.Time) (int64, error) {
	res, err := s.db.sql.ExecContext(ctx,
		`DELETE FROM messages WHERE chat_id = ? AND created_at >= ?`, chatID, formatTime(ts))
	if err != nil {
		return 0, fmt.Errorf("delete messages: %w", err)
	}
	return res.RowsAffected()
}

func scanMessage(r scanner) (*domain.Message, error) {
	var m domain.Message
	var role, parts, attachments, createdAt string
	if err := r.Scan(&m.ID, &m.ChatID, &role, &m.Content, &parts, &attachments, &createdAt); err != nil {
		return nil, err
	}
	m.Role = domain.Role(role)
	m.CreatedAt = parseTime(createdAt)
	if err := json.Unmarshal([]byte(parts), &m.Parts); err != nil {
		return nil, fmt.Errorf("decode parts of %s: %w", m.ID, err)
	}
	if err := json.Unmarshal([]byte(attachments), &m.Attachments); err != nil {
		return nil, fmt.Errorf("decode attachments of %s: %w", m.ID, err)
	}
	if len(m.Attachments) == 0 {
		m.Attachments = nil
	}
	return &m, nil
}
