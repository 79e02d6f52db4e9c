package backend

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"github.com/soyeahso/mcpchat/internal/config"
	"github.com/soyeahso/mcpchat/internal/logging"
	"github.com/soyeahso/mcpchat/internal/tracing"
)

// Registry maps model references from chat submissions to backends.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]Backend // backend name → backend
	aliases  map[string]string  // model alias → backend name
	fallback string
	log      *logging.Logger
}

// NewRegistry creates an empty backend registry.
func NewRegistry(log *logging.Logger) *Registry {
	return &Registry{
		backends: make(map[string]Backend),
		aliases:  make(map[string]string),
		log:      log.Sub("backend.registry"),
	}
}

// Register adds a backend under the given name. The backend is wrapped so
// every completion is traced.
func (r *Registry) Register(name string, b Backend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[name] = traced{Backend: b}
	r.log.Info().Str("backend", name).Msg("registered backend")
}

// Alias maps a model name to a backend.
func (r *Registry) Alias(model, backend string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aliases[model] = backend
}

// SetFallback sets the backend used when a model reference matches nothing.
func (r *Registry) SetFallback(backend string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = backend
}

// Resolve returns the backend for a model reference.
// Resolution order: exact backend name → alias → fallback.
func (r *Registry) Resolve(model string) (Backend, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if b, ok := r.backends[model]; ok {
		return b, nil
	}
	if name, ok := r.aliases[model]; ok {
		if b, ok := r.backends[name]; ok {
			return b, nil
		}
	}
	if r.fallback != "" {
		if b, ok := r.backends[r.fallback]; ok {
			return b, nil
		}
	}
	return nil, fmt.Errorf("no backend for model %q", model)
}

// List returns all registered backend names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.backends))
	for n := range r.backends {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// NewRegistryFromConfig builds a Registry from the backends section.
func NewRegistryFromConfig(cfg config.BackendsConfig, log *logging.Logger) (*Registry, error) {
	reg := NewRegistry(log)
	for _, e := range cfg.List {
		b, err := New(e)
		if err != nil {
			return nil, fmt.Errorf("backend %s: %w", e.Name, err)
		}
		reg.Register(e.Name, b)
		for _, alias := range e.Aliases {
			reg.Alias(alias, e.Name)
		}
		if e.Model != "" {
			reg.Alias(e.Model, e.Name)
		}
	}
	if cfg.Default != "" {
		reg.SetFallback(cfg.Default)
	}
	return reg, nil
}

// New constructs one backend from its config entry.
func New(e config.BackendEntry) (Backend, error) {
	switch e.Kind {
	case "http", "":
		if e.URL == "" {
			return nil, fmt.Errorf("url is required")
		}
		return NewHTTPBackend(e.Name, e.URL, e.Timeout, nil), nil
	case "ollama":
		return NewOllamaBackend(e.Name, e.URL, e.Model, nil)
	case "openai":
		return NewOpenAIBackend(e.Name, e.URL, e.APIKey, e.Model), nil
	case "anthropic":
		return NewAnthropicBackend(e.Name, e.URL, e.APIKey, e.Model, e.MaxTokens), nil
	default:
		return nil, fmt.Errorf("unknown backend kind %q", e.Kind)
	}
}

// traced wraps a backend so each completion runs inside a span.
type traced struct {
	Backend
}

func (t traced) Complete(ctx context.Context, req Request) (resp *Response, err error) {
	ctx, span := tracing.StartSpan(ctx, "backend.complete",
		attribute.String("backend", t.Name()),
		attribute.Int("messages", len(req.Messages)),
	)
	defer func() { tracing.End(span, err) }()
	return t.Backend.Complete(ctx, req)
}
