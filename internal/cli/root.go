package cli

import (
	"github.com/spf13/cobra"

	"github.com/soyeahso/mcpchat/internal/config"
	"github.com/soyeahso/mcpchat/internal/logging"
)

var (
	cfgFile   string
	logLevel  string
	serverURL string
	token     string

	// loaded at init time
	paths config.Paths
	log   *logging.Logger
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcpchat",
		Short: "mcpchat: streaming AI chat with MCP tool providers",
		Long:  "mcpchat serves a streaming chat API backed by model backends and user-registered MCP tool providers, and talks to it from the terminal.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			paths, err = config.ResolvePaths()
			if err != nil {
				return err
			}
			if cfgFile != "" {
				paths.Config = cfgFile
			}
			level := logLevel
			if level == "" {
				level = "warn"
			}
			log = logging.New(nil, level)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.mcpchat/config.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error, fatal, silent)")
	cmd.PersistentFlags().StringVar(&serverURL, "server", "", "server base URL for client commands (default client.serverUrl)")
	cmd.PersistentFlags().StringVar(&token, "token", "", "bearer token for client commands (default client.token)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newChatCmd())
	cmd.AddCommand(newServersCmd())
	cmd.AddCommand(newToolsCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}
