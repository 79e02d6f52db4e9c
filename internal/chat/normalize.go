package chat

import "github.com/soyeahso/mcpchat/internal/domain"

// Normalize converts client messages into the backend form. Only user and
// assistant turns survive, in their original order. It never fails.
func Normalize(msgs []domain.Message) []domain.CoreMessage {
	out := make([]domain.CoreMessage, 0, len(msgs))
	for _, m := range msgs {
		if m.Role != domain.RoleUser && m.Role != domain.RoleAssistant {
			continue
		}
		out = append(out, domain.CoreMessage{Role: m.Role, Content: m.Text()})
	}
	return out
}

// MostRecentUserMessage returns the last user message, if any.
func MostRecentUserMessage(msgs []domain.Message) (domain.Message, bool) {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == domain.RoleUser {
			return msgs[i], true
		}
	}
	return domain.Message{}, false
}
