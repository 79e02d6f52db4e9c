package cli

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/soyeahso/mcpchat/internal/tools"
)

func newToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List and call tools from your active providers",
	}

	cmd.AddCommand(newToolsListCmd())
	cmd.AddCommand(newToolsCallCmd())
	return cmd
}

func newToolsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the tools exposed to the model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var out struct {
				Tools []tools.Definition `json:"tools"`
			}
			if err := newAPIClient(clientConfig()).do(cmd.Context(), "GET", "/api/mcp/tools", nil, &out); err != nil {
				return err
			}
			if len(out.Tools) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no tools available")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tPROVIDER\tDESCRIPTION")
			for _, d := range out.Tools {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", d.Name, d.Provider, firstLine(d.Description))
			}
			return tw.Flush()
		},
	}
}

func newToolsCallCmd() *cobra.Command {
	var rawArgs string

	cmd := &cobra.Command{
		Use:   "call <name>",
		Short: "Call a tool with JSON arguments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]any{"arguments": map[string]any{}}
			if rawArgs != "" {
				var parsed map[string]any
				if err := json.Unmarshal([]byte(rawArgs), &parsed); err != nil {
					return fmt.Errorf("--args must be a JSON object: %w", err)
				}
				body["arguments"] = parsed
			}

			var out struct {
				Success bool   `json:"success"`
				Result  any    `json:"result"`
				Error   string `json:"error"`
			}
			path := "/api/mcp/tools/" + url.PathEscape(args[0]) + "/call"
			if err := newAPIClient(clientConfig()).do(cmd.Context(), "POST", path, body, &out); err != nil {
				return err
			}
			if !out.Success {
				return fmt.Errorf("tool %s: %s", args[0], out.Error)
			}
			return printValue(cmd.OutOrStdout(), out.Result)
		},
	}

	cmd.Flags().StringVar(&rawArgs, "args", "", "tool arguments as a JSON object")
	return cmd
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
