package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ajramos/mailflow/internal/api"
	"github.com/ajramos/mailflow/internal/render"
	"github.com/ajramos/mailflow/internal/services"
	"github.com/spf13/cobra"
)

const subjectWidth = 50

func newEmailsCmd(o *options) *cobra.Command {
	var (
		search     string
		priority   string
		savedName  string
		saveFilter string
	)

	cmd := &cobra.Command{
		Use:   "emails",
		Short: "List emails",
		Long: `List the emails known to the backend.

Filtering happens locally over the fetched list: --search matches subject,
sender and body; --priority keeps one priority (all, high, medium, low).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validatePriority(priority); err != nil {
				return err
			}
			return o.withSession(cmd, func(ctx context.Context, s *session) error {
				inbox := services.NewInboxService(s.client, s.notifier, s.logger, s.filters)
				out := cmd.OutOrStdout()

				if err := inbox.Load(ctx); err != nil {
					return err
				}

				f := services.Filter{Search: search, Priority: priority}
				if savedName != "" {
					applied, err := inbox.ApplySavedFilter(ctx, savedName)
					if err != nil {
						return fmt.Errorf("saved filter %q: %w", savedName, err)
					}
					f = applied
				}
				inbox.SetFilter(f)

				if saveFilter != "" {
					if err := inbox.SaveFilter(ctx, saveFilter); err != nil {
						return fmt.Errorf("save filter %q: %w", saveFilter, err)
					}
					printNotice(out, services.SuccessNotice(fmt.Sprintf("Filter %q saved.", saveFilter)))
				}

				printEmails(out, inbox, time.Now())
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&search, "search", "s", "", "Only show emails whose subject, sender or body contains this text")
	cmd.Flags().StringVarP(&priority, "priority", "p", services.PriorityAll, "Only show emails of this priority (all, high, medium, low)")
	cmd.Flags().StringVar(&savedName, "filter", "", "Apply a saved filter by name")
	cmd.Flags().StringVar(&saveFilter, "save-filter", "", "Save the active filter under this name")

	cmd.AddCommand(newFiltersCmd(o))
	return cmd
}

func validatePriority(p string) error {
	if p == "" || strings.EqualFold(p, services.PriorityAll) {
		return nil
	}
	for _, known := range api.Priorities {
		if strings.EqualFold(p, string(known)) {
			return nil
		}
	}
	return fmt.Errorf("%w: unknown priority %q (want all, high, medium or low)", api.ErrInvalidRequest, p)
}

func printEmails(out io.Writer, inbox *services.InboxService, now time.Time) {
	emails := inbox.Visible()
	if len(emails) == 0 {
		printEmpty(out, services.EmptyInboxTitle, inbox.Filter().EmptyHint())
		return
	}

	printHeader(out, "📬 %d email(s)", len(emails))
	t := newTable(out, "ID", "Priority", "From", "Subject", "Category", "Draft", "When")
	for _, e := range emails {
		draft := ""
		if inbox.DraftState(e.ID) == services.DraftCreated {
			draft = countStyle.Render("✓")
		}
		t.row(
			renderID(e.ID),
			renderPriority(e.Priority),
			render.SenderName(e.Sender),
			render.Truncate(e.Subject, subjectWidth),
			render.Category(e.Category),
			draft,
			dateStyle.Render(render.Timestamp(e.Timestamp, now)),
		)
	}
	_ = t.flush()
}

func newFiltersCmd(o *options) *cobra.Command {
	var remove string

	cmd := &cobra.Command{
		Use:   "filters",
		Short: "List saved inbox filters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withSession(cmd, func(ctx context.Context, s *session) error {
				inbox := services.NewInboxService(s.client, s.notifier, s.logger, s.filters)
				out := cmd.OutOrStdout()

				if remove != "" {
					if err := inbox.DeleteSavedFilter(ctx, remove); err != nil {
						return fmt.Errorf("delete filter %q: %w", remove, err)
					}
					printNotice(out, services.SuccessNotice(fmt.Sprintf("Filter %q deleted.", remove)))
					return nil
				}

				saved, err := inbox.SavedFilters(ctx)
				if err != nil {
					return err
				}
				if len(saved) == 0 {
					printEmpty(out, "No saved filters", "Save one with: mailflow emails --search text --save-filter name")
					return nil
				}

				printHeader(out, "🔖 %d saved filter(s)", len(saved))
				t := newTable(out, "Name", "Search", "Priority", "Uses", "Last used")
				for _, f := range saved {
					last := "never"
					if f.LastUsed > 0 {
						last = render.RelativeTime(time.Unix(f.LastUsed, 0), time.Now())
					}
					t.row(f.Name, f.Search, f.Priority, countStyle.Render(fmt.Sprint(f.UseCount)), dateStyle.Render(last))
				}
				return t.flush()
			})
		},
	}
	cmd.Flags().StringVar(&remove, "delete", "", "Delete the saved filter with this name")
	return cmd
}

func newActionsCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "actions",
		Short: "List action items extracted from emails",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withSession(cmd, func(ctx context.Context, s *session) error {
				inbox := services.NewInboxService(s.client, s.notifier, s.logger, s.filters)
				if err := inbox.Load(ctx); err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				items := inbox.Actions()
				if len(items) == 0 {
					printEmpty(out, services.EmptyActionItemsTitle, services.EmptyActionItemsHint)
					return nil
				}

				printHeader(out, "✅ %d action item(s)", len(items))
				for _, item := range items {
					line := render.ActionItemLine(item)
					if item.Done() {
						line = dateStyle.Render(line)
					}
					_, _ = fmt.Fprintln(out, line)
				}
				return nil
			})
		},
	}
}

func newProcessCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "process",
		Short: "Ask the backend to process every email",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withSession(cmd, func(ctx context.Context, s *session) error {
				inbox := services.NewInboxService(s.client, s.notifier, s.logger, s.filters)
				_, err := inbox.ProcessAll(ctx)
				return err
			})
		},
	}
}
