package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tillberg/autorestart"

	"github.com/soyeahso/mcpchat/internal/backend"
	"github.com/soyeahso/mcpchat/internal/chat"
	"github.com/soyeahso/mcpchat/internal/config"
	"github.com/soyeahso/mcpchat/internal/gateway"
	"github.com/soyeahso/mcpchat/internal/logging"
	"github.com/soyeahso/mcpchat/internal/providers"
	"github.com/soyeahso/mcpchat/internal/store"
	"github.com/soyeahso/mcpchat/internal/toolprovider"
	"github.com/soyeahso/mcpchat/internal/tools"
	"github.com/soyeahso/mcpchat/internal/tracing"
)

func newServeCmd() *cobra.Command {
	var (
		port    int
		bind    string
		restart bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the chat server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}
			if port != 0 {
				cfg.Gateway.Port = port
			}
			if bind != "" {
				cfg.Gateway.Bind = bind
			}

			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				for _, issue := range issues {
					log.Error().Str("path", issue.Path).Msg(issue.Message)
				}
				return fmt.Errorf("config validation failed with %d issue(s)", len(issues))
			}

			level := cfg.Logging.Level
			if logLevel != "" {
				level = logLevel
			}
			srvLog, closer, err := logging.Open(logging.Options{
				Level: level,
				Style: cfg.Logging.ConsoleStyle,
				File:  cfg.Logging.File,
			})
			if err != nil {
				return err
			}
			defer closer.Close()

			if restart {
				go autorestart.RestartOnChange()
				srvLog.Info().Msg("restarting on binary change")
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing)
			if err != nil {
				return fmt.Errorf("setting up tracing: %w", err)
			}
			defer shutdownTracing(context.Background())

			if err := paths.EnsureDirs(); err != nil {
				return fmt.Errorf("creating data directories: %w", err)
			}
			dbPath := paths.DatabasePath(cfg.Store)
			db, err := store.Open(dbPath, srvLog)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer db.Close()
			srvLog.Info().Str("path", dbPath).Msg("using sqlite store")

			backends, err := backend.NewRegistryFromConfig(cfg.Backends, srvLog)
			if err != nil {
				return err
			}
			srvLog.Info().Strs("backends", backends.List()).Msg("model backends available")

			policy, err := tools.ParsePolicy(cfg.ToolProviders.CollisionPolicy)
			if err != nil {
				return err
			}

			chatSvc := chat.NewService(store.NewChatStore(db), store.NewMessageStore(db), backends, cfg.SystemPrompt, srvLog)
			defer chatSvc.Wait()
			providerSvc := providers.NewService(store.NewProviderStore(db), newToolClient(cfg.ToolProviders, srvLog), policy, srvLog)

			srv := gateway.New(cfg.Gateway, chatSvc, providerSvc, srvLog)
			return srv.Start(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override gateway port")
	cmd.Flags().StringVar(&bind, "bind", "", "override bind mode (auto, lan, loopback, custom)")
	cmd.Flags().BoolVar(&restart, "autorestart", false, "re-exec when the binary changes on disk")

	return cmd
}

// newToolClient picks the tool provider client for the configured mode.
func newToolClient(cfg config.ToolProvidersConfig, log *logging.Logger) toolprovider.Client {
	if cfg.Mode == "direct" {
		return toolprovider.NewDirectClient(cfg.CallTimeout, log)
	}
	return toolprovider.NewGatewayClient(cfg.BaseURL, toolprovider.GatewayOptions{
		Timeout:     cfg.CallTimeout,
		MaxFailures: cfg.Breaker.MaxFailures,
		OpenTimeout: cfg.Breaker.OpenTimeout,
	}, log)
}
