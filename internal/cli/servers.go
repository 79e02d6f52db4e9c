package cli

import (
	"encoding/json"
	"fmt"
	"net/url"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/soyeahso/mcpchat/internal/domain"
	"github.com/soyeahso/mcpchat/internal/providers"
)

func newServersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "servers",
		Short: "Manage registered MCP tool providers",
	}

	cmd.AddCommand(newServersListCmd())
	cmd.AddCommand(newServersAddCmd())
	cmd.AddCommand(newServersToggleCmd("enable", true))
	cmd.AddCommand(newServersToggleCmd("disable", false))
	cmd.AddCommand(newServersRemoveCmd())
	return cmd
}

func newServersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your tool providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var list []domain.ToolProvider
			if err := newAPIClient(clientConfig()).do(cmd.Context(), "GET", "/api/mcp/servers", nil, &list); err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no tool providers registered")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tURL\tAUTH\tACTIVE")
			for _, p := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%v\n", p.ID, p.Name, p.URL, p.AuthType, p.IsActive)
			}
			return tw.Flush()
		},
	}
}

func newServersAddCmd() *cobra.Command {
	var (
		description string
		authType    string
		bearer      string
		credentials string
	)

	cmd := &cobra.Command{
		Use:   "add <name> <url>",
		Short: "Register a tool provider",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := providers.CreateProvider{
				Name:        args[0],
				URL:         args[1],
				Description: description,
				AuthType:    domain.AuthType(authType),
			}
			switch {
			case credentials != "":
				if !json.Valid([]byte(credentials)) {
					return fmt.Errorf("--credentials must be a JSON object")
				}
				req.Credentials = json.RawMessage(credentials)
			case bearer != "":
				data, err := json.Marshal(domain.ProviderCredentials{Token: bearer})
				if err != nil {
					return err
				}
				req.Credentials = data
				if req.AuthType == "" {
					req.AuthType = domain.AuthBearer
				}
			}

			var created providers.Created
			if err := newAPIClient(clientConfig()).do(cmd.Context(), "POST", "/api/mcp/servers", req, &created); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "registered %s (%s)\n", created.Provider.Name, created.Provider.ID)
			if created.AuthorizationURL != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "finish authorization at: %s\n", created.AuthorizationURL)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "provider description")
	cmd.Flags().StringVar(&authType, "auth", "", "auth type (none, bearer, oauth)")
	cmd.Flags().StringVar(&bearer, "bearer", "", "bearer token; implies --auth bearer")
	cmd.Flags().StringVar(&credentials, "credentials", "", "raw credentials JSON")

	return cmd
}

func newServersToggleCmd(use string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: fmt.Sprintf("Mark a tool provider %sd", use),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var p domain.ToolProvider
			path := "/api/mcp/servers/" + url.PathEscape(args[0])
			if err := newAPIClient(clientConfig()).do(cmd.Context(), "PATCH", path, providers.PatchProvider{IsActive: &active}, &p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s active=%v\n", p.Name, p.IsActive)
			return nil
		},
	}
}

func newServersRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a tool provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/mcp/servers/" + url.PathEscape(args[0])
			if err := newAPIClient(clientConfig()).do(cmd.Context(), "DELETE", path, nil, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
			return nil
		},
	}
}
