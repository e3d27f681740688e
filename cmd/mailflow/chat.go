package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ajramos/mailflow/internal/render"
	"github.com/ajramos/mailflow/internal/services"
	"github.com/spf13/cobra"
)

const chatWidth = 80

func newChatCmd(o *options) *cobra.Command {
	var (
		raw    bool
		export string
	)

	cmd := &cobra.Command{
		Use:   "chat <message>",
		Short: "Ask the assistant a question",
		Long: `Send one message to the assistant and print its reply. Replies are
rendered from Markdown unless --raw is given.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			message := strings.Join(args, " ")
			return o.withSession(cmd, func(ctx context.Context, s *session) error {
				chat := services.NewChatSession(s.client, s.notifier, s.logger)
				reply, err := chat.Send(ctx, message)
				if err != nil && reply.Content == "" {
					return err
				}

				content := reply.Content
				if !raw {
					content = render.NewMarkdownRenderer(s.cfg.Layout.MarkdownStyle).Render(content, chatWidth)
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), content)

				if export != "" {
					if xerr := exportChat(chat, expandPath(export)); xerr != nil {
						return xerr
					}
				}
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the reply without Markdown rendering")
	cmd.Flags().StringVar(&export, "export", "", "Also save the exchange to a .md or .jsonl file")
	return cmd
}

func exportChat(chat *services.ChatSession, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	if err := chat.Export(f, filepath.Ext(path)); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to export chat: %w", err)
	}
	return f.Close()
}
