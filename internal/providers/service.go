// Package providers manages the MCP tool providers registered by users.
package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/soyeahso/mcpchat/internal/domain"
	"github.com/soyeahso/mcpchat/internal/logging"
	"github.com/soyeahso/mcpchat/internal/toolprovider"
	"github.com/soyeahso/mcpchat/internal/tools"
)

// Store is the provider persistence the service needs.
type Store interface {
	tools.ProviderSource
	ListProviders(ctx context.Context, userID string) ([]domain.ToolProvider, error)
	GetProvider(ctx context.Context, id string) (*domain.ToolProvider, error)
	SaveProvider(ctx context.Context, p domain.ToolProvider) error
	UpdateProvider(ctx context.Context, p domain.ToolProvider) error
	DeleteProvider(ctx context.Context, id string) error
}

// CreateProvider is a registration request.
type CreateProvider struct {
	Name        string          `json:"name"`
	URL         string          `json:"url"`
	Description string          `json:"description,omitempty"`
	AuthType    domain.AuthType `json:"authType,omitempty"`
	Credentials json.RawMessage `json:"credentials,omitempty"`
	RemoteID    string          `json:"flaskServerId,omitempty"`
}

// PatchProvider updates a provider. Nil fields are left unchanged.
type PatchProvider struct {
	IsActive *bool   `json:"isActive,omitempty"`
	RemoteID *string `json:"flaskServerId,omitempty"`
}

// Created is the result of a registration. AuthorizationURL is set when an
// oauth provider needs the user to finish authorization in a browser.
type Created struct {
	Provider         domain.ToolProvider `json:"server"`
	AuthorizationURL string              `json:"authorizationUrl,omitempty"`
}

// Service registers providers and exposes their tools.
type Service struct {
	store   Store
	client  toolprovider.Client
	builder *tools.Builder
	log     *logging.Logger
}

// NewService creates a provider service.
func NewService(store Store, client toolprovider.Client, policy tools.Policy, log *logging.Logger) *Service {
	log = log.Sub("providers")
	return &Service{
		store:  store,
		client: client,
		builder: &tools.Builder{
			Providers: store,
			Client:    client,
			Policy:    policy,
			Log:       log,
		},
		log: log,
	}
}

// Create validates and registers a provider. When no remote id is given the
// provider is authenticated with the tool provider client first.
func (s *Service) Create(ctx context.Context, p *domain.Principal, req CreateProvider) (*Created, error) {
	if !p.Authenticated() {
		return nil, domain.ErrUnauthenticated
	}
	req.Name = strings.TrimSpace(req.Name)
	req.URL = strings.TrimSpace(req.URL)
	if req.Name == "" || req.URL == "" {
		return nil, domain.Invalid("", "Name and URL are required")
	}
	if !validURL(req.URL) {
		return nil, domain.Invalid("url", "Invalid URL format")
	}
	if req.AuthType == "" {
		req.AuthType = domain.AuthNone
	}
	if !req.AuthType.Valid() {
		return nil, domain.Invalid("authType", fmt.Sprintf("unknown auth type %q", req.AuthType))
	}

	now := time.Now()
	provider := domain.ToolProvider{
		ID:          uuid.NewString(),
		UserID:      p.UserID,
		Name:        req.Name,
		URL:         req.URL,
		Description: req.Description,
		AuthType:    req.AuthType,
		Credentials: req.Credentials,
		RemoteID:    req.RemoteID,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	out := &Created{}
	if provider.RemoteID == "" && s.client != nil {
		res, err := s.client.Authenticate(ctx, toolprovider.AuthRequest{
			Name:        req.Name,
			URL:         req.URL,
			AuthType:    req.AuthType,
			Credentials: req.Credentials,
		})
		if err != nil {
			return nil, fmt.Errorf("authenticate provider: %w", err)
		}
		if !res.Success {
			msg := res.Message
			if msg == "" {
				msg = "authentication failed"
			}
			return nil, domain.Invalid("credentials", msg)
		}
		provider.RemoteID = res.ServerID
		out.AuthorizationURL = res.AuthorizationURL
	}

	if err := s.store.SaveProvider(ctx, provider); err != nil {
		return nil, err
	}
	s.log.Info().Str("user", p.UserID).Str("provider", provider.Name).Str("id", provider.ID).
		Msg("provider registered")
	out.Provider = provider
	return out, nil
}

func validURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// List returns the principal's providers, newest first.
func (s *Service) List(ctx context.Context, p *domain.Principal) ([]domain.ToolProvider, error) {
	if !p.Authenticated() {
		return nil, domain.ErrUnauthenticated
	}
	return s.store.ListProviders(ctx, p.UserID)
}

// owned loads a provider owned by p. Providers of other users are reported
// as missing.
func (s *Service) owned(ctx context.Context, p *domain.Principal, id string) (*domain.ToolProvider, error) {
	if !p.Authenticated() {
		return nil, domain.ErrUnauthenticated
	}
	provider, err := s.store.GetProvider(ctx, id)
	if err != nil {
		return nil, err
	}
	if provider.UserID != p.UserID {
		return nil, domain.ErrNotFound
	}
	return provider, nil
}

// Patch applies a partial update.
func (s *Service) Patch(ctx context.Context, p *domain.Principal, id string, patch PatchProvider) (*domain.ToolProvider, error) {
	provider, err := s.owned(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if patch.IsActive != nil {
		provider.IsActive = *patch.IsActive
	}
	if patch.RemoteID != nil {
		provider.RemoteID = *patch.RemoteID
	}
	if err := s.store.UpdateProvider(ctx, *provider); err != nil {
		return nil, err
	}
	return s.store.GetProvider(ctx, id)
}

// Delete removes a provider. Disconnecting it remotely is best-effort.
func (s *Service) Delete(ctx context.Context, p *domain.Principal, id string) (*domain.ToolProvider, error) {
	provider, err := s.owned(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.DeleteProvider(ctx, id); err != nil {
		return nil, err
	}
	if s.client != nil {
		if err := s.client.Disconnect(ctx, *provider); err != nil {
			s.log.Warn().Err(err).Str("provider", provider.Name).Msg("remote disconnect failed")
		}
	}
	return provider, nil
}

// Ping reports whether an owned provider is reachable.
func (s *Service) Ping(ctx context.Context, p *domain.Principal, id string) (bool, error) {
	provider, err := s.owned(ctx, p, id)
	if err != nil {
		return false, err
	}
	if err := s.client.Ping(ctx, *provider); err != nil {
		s.log.Debug().Err(err).Str("provider", provider.Name).Msg("ping failed")
		return false, nil
	}
	return true, nil
}

// Tools builds the principal's tool registry from their active providers.
func (s *Service) Tools(ctx context.Context, p *domain.Principal) (*tools.Registry, error) {
	if !p.Authenticated() {
		return nil, domain.ErrUnauthenticated
	}
	return s.builder.Build(ctx, p.UserID)
}

// CallTool executes a tool by its exposed name.
func (s *Service) CallTool(ctx context.Context, p *domain.Principal, name string, args map[string]any) (any, error) {
	reg, err := s.Tools(ctx, p)
	if err != nil {
		return nil, err
	}
	t, ok := reg.Get(name)
	if !ok {
		return nil, fmt.Errorf("tool %q: %w", name, domain.ErrNotFound)
	}
	return t.Execute(ctx, args)
}
