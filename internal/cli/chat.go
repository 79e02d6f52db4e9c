package cli

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/soyeahso/mcpchat/internal/domain"
	"github.com/soyeahso/mcpchat/internal/stream"
)

func newChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to a running mcpchat server",
	}

	cmd.AddCommand(newChatSendCmd())
	return cmd
}

func newChatSendCmd() *cobra.Command {
	var (
		chatID string
		model  string
		ws     bool
	)

	cmd := &cobra.Command{
		Use:   "send [message]",
		Short: "Send a message and stream the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := clientConfig()
			if model == "" {
				model = cc.Model
			}
			if chatID == "" {
				chatID = uuid.NewString()
			}

			var transport stream.Transport = &stream.HTTPTransport{BaseURL: cc.ServerURL, Token: cc.Token}
			if ws {
				transport = &stream.WSTransport{BaseURL: cc.ServerURL, Token: cc.Token}
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			_, err := sendMessage(ctx, cmd.OutOrStdout(), stream.SessionConfig{
				ChatID:    chatID,
				Model:     model,
				Transport: transport,
			}, strings.Join(args, " "))
			if err != nil {
				color.New(color.FgRed, color.Bold).Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "[chat=%s]\n", chatID)
			return nil
		},
	}

	cmd.Flags().StringVar(&chatID, "chat", "", "chat id to continue (default: a new chat)")
	cmd.Flags().StringVar(&model, "model", "", "model to select (default client.model)")
	cmd.Flags().BoolVar(&ws, "ws", false, "stream over WebSocket instead of HTTP")

	return cmd
}

// sendMessage submits text on a new session and writes the assistant's
// deltas to out as they arrive.
func sendMessage(ctx context.Context, out io.Writer, cfg stream.SessionConfig, text string) (string, error) {
	label := color.New(color.FgCyan, color.Bold).SprintFunc()
	printed := 0
	started := false
	cfg.OnUpdate = func(m domain.Message) {
		if m.Role != domain.RoleAssistant || len(m.Content) <= printed {
			return
		}
		if !started {
			fmt.Fprintf(out, "%s ", label("assistant:"))
			started = true
		}
		fmt.Fprint(out, m.Content[printed:])
		printed = len(m.Content)
	}

	s := stream.NewSession(cfg)
	reply, err := s.Submit(ctx, text, nil)
	if started {
		fmt.Fprintln(out)
	}
	return reply, err
}
