package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ajramos/mailflow/internal/api"
	"github.com/ajramos/mailflow/internal/render"
	"github.com/ajramos/mailflow/internal/services"
	"github.com/spf13/cobra"
)

func newDraftsCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drafts",
		Short: "List and manage reply drafts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withSession(cmd, func(ctx context.Context, s *session) error {
				drafts := services.NewDraftService(s.client, s.notifier, s.logger)
				if err := drafts.Load(ctx); err != nil {
					return err
				}
				printDrafts(cmd.OutOrStdout(), drafts.Drafts().Items())
				return nil
			})
		},
	}

	cmd.AddCommand(
		newDraftShowCmd(o),
		newDraftGenerateCmd(o),
		newDraftCreateCmd(o),
		newDraftEditCmd(o),
		newDraftDeleteCmd(o),
	)
	return cmd
}

func printDrafts(out io.Writer, drafts []api.Draft) {
	if len(drafts) == 0 {
		printEmpty(out, services.EmptyDraftsTitle, services.EmptyDraftsHint)
		return
	}

	printHeader(out, "📝 %d draft(s)", len(drafts))
	t := newTable(out, "ID", "", "Subject", "To", "Email", "Updated")
	for _, d := range drafts {
		marker := ""
		if d.AIGenerated() {
			marker = countStyle.Render("✦")
		}
		email := ""
		if id, ok := d.SourceEmail(); ok {
			email = renderID(id)
		}
		updated := d.UpdatedAt.Time
		if updated.IsZero() {
			updated = d.CreatedAt.Time
		}
		when := "-"
		if !updated.IsZero() {
			when = updated.Format("2006-01-02 15:04")
		}
		t.row(
			renderID(d.ID),
			marker,
			render.Truncate(orPlaceholder(d.Subject, "(no subject)"), subjectWidth),
			orPlaceholder(d.Recipient, "(no recipient)"),
			email,
			dateStyle.Render(when),
		)
	}
	_ = t.flush()
}

func printDraft(out io.Writer, d api.Draft) {
	title := orPlaceholder(d.Subject, "(no subject)")
	if d.AIGenerated() {
		title += "  [" + services.BadgeAIGenerated + "]"
	}
	_, _ = fmt.Fprintln(out, headerStyle.Render(title))
	_, _ = fmt.Fprintf(out, "%s %s\n", titleStyle.Render("To:"), orPlaceholder(d.Recipient, "(no recipient)"))
	if id, ok := d.SourceEmail(); ok {
		_, _ = fmt.Fprintf(out, "%s %s\n", titleStyle.Render("Reply to:"), renderID(id))
	}
	if instr := d.Instruction(); instr != "" {
		_, _ = fmt.Fprintf(out, "%s %s\n", titleStyle.Render("Instruction:"), hintStyle.Render(instr))
	}
	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintln(out, render.PlainText(d.Body))
}

func orPlaceholder(s, placeholder string) string {
	if strings.TrimSpace(s) == "" {
		return placeholder
	}
	return s
}

func newDraftShowCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := api.ParseID(args[0])
			if err != nil {
				return err
			}
			return o.withSession(cmd, func(ctx context.Context, s *session) error {
				drafts := services.NewDraftService(s.client, s.notifier, s.logger)
				d, err := drafts.Get(ctx, id)
				if err != nil {
					return fmt.Errorf("get draft %d: %w", id, err)
				}
				printDraft(cmd.OutOrStdout(), *d)
				return nil
			})
		},
	}
}

func newDraftGenerateCmd(o *options) *cobra.Command {
	var instruction string

	cmd := &cobra.Command{
		Use:   "generate <email-id>",
		Short: "Ask the assistant to draft a reply to an email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := api.ParseID(args[0])
			if err != nil {
				return err
			}
			return o.withSession(cmd, func(ctx context.Context, s *session) error {
				inbox := services.NewInboxService(s.client, s.notifier, s.logger, s.filters)
				d, _, err := inbox.GenerateDraftWith(ctx, id, instruction)
				if err != nil {
					return err
				}
				if d != nil {
					_, _ = fmt.Fprintln(cmd.OutOrStdout())
					printDraft(cmd.OutOrStdout(), *d)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&instruction, "instruction", "i", api.DefaultInstruction, "What the reply should do")
	return cmd
}

func newDraftCreateCmd(o *options) *cobra.Command {
	var (
		req     api.CreateDraftRequest
		emailID string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Write a new draft",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if emailID != "" {
				id, err := api.ParseID(emailID)
				if err != nil {
					return err
				}
				req.EmailID = &id
			}
			if err := req.Validate(); err != nil {
				return err
			}
			return o.withSession(cmd, func(ctx context.Context, s *session) error {
				_, err := services.NewDraftService(s.client, s.notifier, s.logger).Create(ctx, req)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&req.Recipient, "to", "", "Recipient address (required)")
	cmd.Flags().StringVar(&req.Subject, "subject", "", "Subject line (required)")
	cmd.Flags().StringVar(&req.Body, "body", "", "Message body")
	cmd.Flags().StringVar(&emailID, "email", "", "ID of the email this draft replies to")
	return cmd
}

func newDraftEditCmd(o *options) *cobra.Command {
	var to, subject, body string

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change the recipient, subject or body of a draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := api.ParseID(args[0])
			if err != nil {
				return err
			}
			var req api.UpdateDraftRequest
			if cmd.Flags().Changed("to") {
				req.Recipient = api.String(to)
			}
			if cmd.Flags().Changed("subject") {
				req.Subject = api.String(subject)
			}
			if cmd.Flags().Changed("body") {
				req.Body = api.String(body)
			}
			if err := req.Validate(); err != nil {
				return err
			}
			return o.withSession(cmd, func(ctx context.Context, s *session) error {
				_, err := services.NewDraftService(s.client, s.notifier, s.logger).Update(ctx, id, req)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "New recipient")
	cmd.Flags().StringVar(&subject, "subject", "", "New subject")
	cmd.Flags().StringVar(&body, "body", "", "New body")
	return cmd
}

func newDraftDeleteCmd(o *options) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := api.ParseID(args[0])
			if err != nil {
				return err
			}
			return o.withSession(cmd, func(ctx context.Context, s *session) error {
				drafts := services.NewDraftService(s.client, s.notifier, s.logger)
				drafts.RequestDelete(id)
				if !yes && !confirm(cmd, fmt.Sprintf("Delete draft %d?", id)) {
					drafts.CancelDelete()
					printNotice(cmd.OutOrStdout(), services.InfoNotice("Delete cancelled."))
					return nil
				}
				_, err := drafts.ConfirmDelete(ctx)
				return err
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Delete without asking")
	return cmd
}

// confirm asks a yes/no question on the command's input; anything but y/yes is no
func confirm(cmd *cobra.Command, question string) bool {
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N] ", question)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		_, _ = fmt.Fprintln(cmd.OutOrStdout())
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
