package backend

import (
	"context"
	"sync"
)

// MockBackend is a test double for Backend.
type MockBackend struct {
	BackendName  string
	CompleteFunc func(ctx context.Context, req Request) (*Response, error)

	mu       sync.Mutex
	requests []Request
}

func (m *MockBackend) Name() string { return m.BackendName }

func (m *MockBackend) Complete(ctx context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	return &Response{Text: "mock response"}, nil
}

// Requests returns the requests received so far.
func (m *MockBackend) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.requests...)
}
