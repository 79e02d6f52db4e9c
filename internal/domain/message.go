package domain

import (
	"strings"
	"time"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// PartTypeText is the only part type the pipeline interprets.
const PartTypeText = "text"

// Part is one typed segment of a message body.
type Part struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Attachment references a file uploaded alongside a message.
type Attachment struct {
	Name        string `json:"name,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	Size        int64  `json:"size,omitempty"`
	URL         string `json:"url"`
}

// Message is a single chat turn as exchanged with clients and persisted.
type Message struct {
	ID          string       `json:"id"`
	ChatID      string       `json:"chatId,omitempty"`
	Role        Role         `json:"role"`
	Content     string       `json:"content"`
	Parts       []Part       `json:"parts"`
	Attachments []Attachment `json:"experimental_attachments,omitempty"`
	CreatedAt   time.Time    `json:"createdAt,omitzero"`
}

// NewTextMessage builds a message whose Content and Parts agree.
func NewTextMessage(id string, role Role, text string) Message {
	return Message{
		ID:      id,
		Role:    role,
		Content: text,
		Parts:   []Part{{Type: PartTypeText, Text: text}},
	}
}

// Text returns Content when set, otherwise the text parts joined in order.
func (m Message) Text() string {
	if m.Content != "" {
		return m.Content
	}
	var b strings.Builder
	for _, p := range m.Parts {
		if p.Type == PartTypeText {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// EnsureParts fills Parts from Content when a sender supplied only Content.
func (m *Message) EnsureParts() {
	if len(m.Parts) == 0 {
		m.Parts = []Part{{Type: PartTypeText, Text: m.Content}}
	}
}

// Clone returns a copy that shares no slices with m.
func (m Message) Clone() Message {
	c := m
	c.Parts = append([]Part(nil), m.Parts...)
	c.Attachments = append([]Attachment(nil), m.Attachments...)
	return c
}

// CoreMessage is the backend-facing form of a message: role and flat text.
type CoreMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
