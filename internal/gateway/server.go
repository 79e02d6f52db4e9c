// Package gateway serves the chat, provider and tool HTTP API.
package gateway

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/soyeahso/mcpchat/internal/chat"
	"github.com/soyeahso/mcpchat/internal/config"
	"github.com/soyeahso/mcpchat/internal/logging"
	"github.com/soyeahso/mcpchat/internal/providers"
)

const (
	// replyTimeout bounds a whole chat response, backend call included.
	replyTimeout = 5 * time.Minute
	maxPayload   = 4 * 1024 * 1024
)

// Server is the mcpchat HTTP + WebSocket server.
type Server struct {
	cfg       config.GatewayConfig
	log       *logging.Logger
	chat      *chat.Service
	providers *providers.Service

	auth        *Authenticator
	authLimiter *authRateLimiter
	limiter     *ipRateLimiter
	clients     *ClientRegistry
	upgrader    websocket.Upgrader

	startedAt  time.Time
	httpServer *http.Server

	mu       sync.Mutex
	listenOn string
}

// New creates a new gateway server.
func New(cfg config.GatewayConfig, chatSvc *chat.Service, providerSvc *providers.Service, log *logging.Logger) *Server {
	log = log.Sub("gateway")
	return &Server{
		cfg:         cfg,
		log:         log,
		chat:        chatSvc,
		providers:   providerSvc,
		auth:        NewAuthenticator(cfg.Auth),
		authLimiter: newAuthRateLimiter(),
		limiter:     newIPRateLimiter(cfg.RateLimit),
		clients:     NewClientRegistry(log.Sub("ws")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkWebSocketOrigin(cfg.AllowedOrigins),
		},
	}
}

// checkWebSocketOrigin returns a function that validates WebSocket Origin headers.
// If no origins are configured, only same-origin (no Origin header) or non-browser
// clients are allowed. If origins are configured, the Origin must match one of them.
func checkWebSocketOrigin(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerHTTPRoutes(mux)
	return withMiddleware(mux, s)
}

// resolveBindAddr computes the listen address from config.
func resolveBindAddr(cfg config.GatewayConfig) string {
	switch cfg.Bind {
	case "loopback":
		return fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	case "lan", "auto":
		return fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	case "custom":
		host := cfg.CustomBindHost
		if host == "" {
			host = "0.0.0.0"
		}
		return fmt.Sprintf("%s:%d", host, cfg.Port)
	default:
		return fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	}
}

// Start begins listening for HTTP and WebSocket connections.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	addr := resolveBindAddr(s.cfg)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      replyTimeout,
		IdleTimeout:       120 * time.Second,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	if s.cfg.TLS.Enabled {
		cert, err := tls.LoadX509KeyPair(s.cfg.TLS.CertPath, s.cfg.TLS.KeyPath)
		if err != nil {
			ln.Close()
			return fmt.Errorf("loading TLS certificate: %w", err)
		}
		tlsCfg := &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}
		ln = tls.NewListener(ln, tlsCfg)
		s.log.Info().Msg("TLS enabled")
	} else if s.cfg.Bind != "loopback" {
		s.log.Warn().Msg("TLS is not enabled, tokens will be transmitted in cleartext")
	}

	s.startedAt = time.Now()
	s.mu.Lock()
	s.listenOn = ln.Addr().String()
	s.mu.Unlock()
	s.log.Info().
		Str("addr", ln.Addr().String()).
		Str("bind", s.cfg.Bind).
		Int("users", len(s.auth.users)).
		Msg("gateway server ready")

	// Shutdown drains in-flight requests; their contexts are not tied to ctx.
	go func() {
		<-ctx.Done()
		s.log.Info().Int("clients", s.clients.Count()).Msg("shutting down gateway server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.clients.CloseAll()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr returns the bound listen address, or empty string if not started.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listenOn
}
