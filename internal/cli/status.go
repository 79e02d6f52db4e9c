package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/soyeahso/mcpchat/internal/config"
	"github.com/soyeahso/mcpchat/internal/version"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configuration summary and server health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "mcpchat %s (commit %s)\n\n", version.Version, version.Commit)

			fmt.Fprintf(out, "Config:   %s\n", paths.Config)
			fmt.Fprintf(out, "Data:     %s\n", paths.Data)
			fmt.Fprintln(out)

			cfg, err := config.Load(paths.Config)
			if err != nil {
				fmt.Fprintf(out, "Config:   error loading: %v\n", err)
				return nil
			}

			fmt.Fprintf(out, "Gateway:  port=%d bind=%s users=%d tls=%v\n",
				cfg.Gateway.Port, cfg.Gateway.Bind, len(cfg.Gateway.Auth.Users), cfg.Gateway.TLS.Enabled)
			fmt.Fprintf(out, "Store:    %s\n", paths.DatabasePath(cfg.Store))

			names := make([]string, 0, len(cfg.Backends.List))
			for _, b := range cfg.Backends.List {
				names = append(names, b.Name+"("+b.Kind+")")
			}
			fmt.Fprintf(out, "Backends: %s default=%s\n", strings.Join(names, ", "), cfg.Backends.Default)
			fmt.Fprintf(out, "Tools:    mode=%s policy=%s\n", cfg.ToolProviders.Mode, cfg.ToolProviders.CollisionPolicy)

			if issues := config.Validate(&cfg); len(issues) > 0 {
				fmt.Fprintf(out, "\nValidation issues (%d):\n", len(issues))
				for _, issue := range issues {
					fmt.Fprintf(out, "  - %s: %s\n", issue.Path, issue.Message)
				}
			}

			cc := clientConfig()
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()
			var health struct {
				Status string `json:"status"`
			}
			if err := newAPIClient(cc).do(ctx, "GET", "/health", nil, &health); err != nil {
				fmt.Fprintf(out, "\nServer:   %s unreachable (%v)\n", cc.ServerURL, err)
				return nil
			}
			fmt.Fprintf(out, "\nServer:   %s %s\n", cc.ServerURL, health.Status)
			return nil
		},
	}
}
