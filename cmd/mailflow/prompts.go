package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ajramos/mailflow/internal/api"
	"github.com/ajramos/mailflow/internal/render"
	"github.com/ajramos/mailflow/internal/services"
	"github.com/spf13/cobra"
)

func newPromptsCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prompts",
		Short: "List and manage assistant prompts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withSession(cmd, func(ctx context.Context, s *session) error {
				prompts := services.NewPromptService(s.client, s.notifier, s.logger)
				if err := prompts.Load(ctx); err != nil {
					return err
				}
				printPrompts(cmd.OutOrStdout(), prompts.Prompts().Items())
				return nil
			})
		},
	}

	cmd.AddCommand(
		newPromptCreateCmd(o),
		newPromptEditCmd(o),
		newPromptDeleteCmd(o),
		newPromptImportCmd(o),
		newPromptExportCmd(o),
	)
	return cmd
}

func printPrompts(out io.Writer, prompts []api.Prompt) {
	if len(prompts) == 0 {
		printEmpty(out, services.EmptyPromptsTitle, services.EmptyPromptsHint)
		return
	}

	printHeader(out, "💡 %d prompt(s)", len(prompts))
	t := newTable(out, "ID", "Name", "Type", "Active", "Content")
	for _, p := range prompts {
		active := "-"
		if p.IsActive != nil {
			active = "no"
			if *p.IsActive {
				active = countStyle.Render("yes")
			}
		}
		t.row(
			renderID(p.ID),
			p.Name,
			p.Type.Label(),
			active,
			hintStyle.Render(render.Preview(p.Content, 40)),
		)
	}
	_ = t.flush()
}

func parsePromptType(s string) (api.PromptType, error) {
	t := api.PromptType(strings.ToLower(strings.TrimSpace(s)))
	if t == "" {
		return api.PromptCustom, nil
	}
	if !t.Valid() {
		names := make([]string, len(api.PromptTypes))
		for i, known := range api.PromptTypes {
			names[i] = string(known)
		}
		return "", fmt.Errorf("%w: unknown prompt type %q (want one of %s)", api.ErrInvalidRequest, s, strings.Join(names, ", "))
	}
	return t, nil
}

func newPromptCreateCmd(o *options) *cobra.Command {
	var name, typ, content, contentFile string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a prompt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pt, err := parsePromptType(typ)
			if err != nil {
				return err
			}
			if contentFile != "" {
				data, err := os.ReadFile(expandPath(contentFile))
				if err != nil {
					return fmt.Errorf("failed to read content: %w", err)
				}
				content = string(data)
			}
			return o.withSession(cmd, func(ctx context.Context, s *session) error {
				_, err := services.NewPromptService(s.client, s.notifier, s.logger).Create(ctx, api.CreatePromptRequest{
					Name:    name,
					Type:    pt,
					Content: content,
				})
				return err
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Prompt name (required)")
	cmd.Flags().StringVar(&typ, "type", string(api.PromptCustom), "categorization, action_extraction, auto_reply or custom")
	cmd.Flags().StringVar(&content, "content", "", "Prompt text")
	cmd.Flags().StringVar(&contentFile, "content-file", "", "Read the prompt text from a file")
	return cmd
}

func newPromptEditCmd(o *options) *cobra.Command {
	var content string

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Replace the content of a prompt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := api.ParseID(args[0])
			if err != nil {
				return err
			}
			return o.withSession(cmd, func(ctx context.Context, s *session) error {
				_, err := services.NewPromptService(s.client, s.notifier, s.logger).Update(ctx, id, content)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&content, "content", "", "New prompt text")
	_ = cmd.MarkFlagRequired("content")
	return cmd
}

func newPromptDeleteCmd(o *options) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a prompt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := api.ParseID(args[0])
			if err != nil {
				return err
			}
			return o.withSession(cmd, func(ctx context.Context, s *session) error {
				prompts := services.NewPromptService(s.client, s.notifier, s.logger)
				prompts.RequestDelete(id)
				if !yes && !confirm(cmd, fmt.Sprintf("Delete prompt %d?", id)) {
					prompts.CancelDelete()
					printNotice(cmd.OutOrStdout(), services.InfoNotice("Delete cancelled."))
					return nil
				}
				_, err := prompts.ConfirmDelete(ctx)
				return err
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Delete without asking")
	return cmd
}

func newPromptImportCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Create a prompt from a Markdown file with YAML front matter",
		Long: `Create a prompt from a Markdown file. The file starts with YAML front
matter naming the prompt:

  ---
  name: Weekly summary
  type: custom
  active: true
  ---
  Summarize this week's emails...`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withSession(cmd, func(ctx context.Context, s *session) error {
				_, err := services.NewPromptService(s.client, s.notifier, s.logger).ImportFile(ctx, expandPath(args[0]))
				return err
			})
		},
	}
}

func newPromptExportCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "export <id> <file>",
		Short: "Write a prompt to a Markdown file with YAML front matter",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := api.ParseID(args[0])
			if err != nil {
				return err
			}
			path := expandPath(args[1])
			return o.withSession(cmd, func(ctx context.Context, s *session) error {
				prompts := services.NewPromptService(s.client, s.notifier, s.logger)
				if err := prompts.Load(ctx); err != nil {
					return err
				}
				if err := prompts.ExportFile(ctx, id, path); err != nil {
					return err
				}
				printNotice(cmd.OutOrStdout(), services.SuccessNotice(fmt.Sprintf("Prompt %d exported to %s", id, path)))
				return nil
			})
		},
	}
}
