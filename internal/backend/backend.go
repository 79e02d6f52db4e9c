// Package backend dispatches normalized conversations to a language-model
// backend and returns the complete reply text. Every dispatch is single-shot:
// failures surface as *BackendError and are never retried here.
package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/soyeahso/mcpchat/internal/domain"
)

// Backend produces one complete reply for a conversation.
type Backend interface {
	// Name returns the configured backend name (e.g. "default", "local").
	Name() string

	// Complete sends the conversation and waits for the full reply.
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Request is a dispatch to a backend.
type Request struct {
	Model    string               `json:"model,omitempty"`
	System   string               `json:"system,omitempty"`
	Messages []domain.CoreMessage `json:"messages"`
}

// Response is the complete reply from a backend.
type Response struct {
	Text     string        `json:"text"`
	Model    string        `json:"model,omitempty"`
	Duration time.Duration `json:"duration"`
}

// BackendError is returned when a backend call fails. Status is the HTTP
// status for non-2xx replies; Err holds transport or decode failures.
type BackendError struct {
	Backend string
	Status  int
	Body    string
	Err     error
}

func (e *BackendError) Error() string {
	switch {
	case e.Status > 0:
		return fmt.Sprintf("backend %s: %d %s", e.Backend, e.Status, e.Body)
	case e.Err != nil:
		return fmt.Sprintf("backend %s: %v", e.Backend, e.Err)
	default:
		return fmt.Sprintf("backend %s: failed", e.Backend)
	}
}

func (e *BackendError) Unwrap() error { return e.Err }

// withSystem returns the conversation prefixed by a system turn when system
// is set. SDK backends without a dedicated system field use it.
func withSystem(system string, msgs []domain.CoreMessage) []domain.CoreMessage {
	if system == "" {
		return msgs
	}
	out := make([]domain.CoreMessage, 0, len(msgs)+1)
	out = append(out, domain.CoreMessage{Role: domain.RoleSystem, Content: system})
	return append(out, msgs...)
}
