package domain

import (
	"time"
	"unicode/utf8"
)

// Visibility controls who may read a chat.
type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityPublic  Visibility = "public"
)

// Valid reports whether v is a known visibility.
func (v Visibility) Valid() bool {
	return v == VisibilityPrivate || v == VisibilityPublic
}

// DefaultTitle is used when the first message has no text.
const DefaultTitle = "New Chat"

const (
	maxTitleRunes  = 80
	titleKeepRunes = 77
	titleEllipsis  = "..."
)

// Chat is a persisted conversation owned by a single user.
type Chat struct {
	ID         string     `json:"id"`
	UserID     string     `json:"userId"`
	Title      string     `json:"title"`
	Visibility Visibility `json:"visibility"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// TitleFromMessage derives a chat title from the message that started it.
func TitleFromMessage(m Message) string {
	text := m.Text()
	if text == "" {
		return DefaultTitle
	}
	if utf8.RuneCountInString(text) <= maxTitleRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:titleKeepRunes]) + titleEllipsis
}

// Principal is the authenticated identity behind a request.
type Principal struct {
	UserID string `json:"userId"`
}

// Authenticated reports whether the principal carries a user id.
func (p *Principal) Authenticated() bool {
	return p != nil && p.UserID != ""
}
