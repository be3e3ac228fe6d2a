package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/joshua-takyi/whosin/internal/models"
)

type eventsResult struct {
	Events []*models.Event `json:"events"`
	Total  int             `json:"total"`
	Page   int             `json:"page"`
	Limit  int             `json:"limit"`
}

// NewEventsCommand lists public events, newest first.
func NewEventsCommand(opts *RootOptions) *cobra.Command {
	var page, limit int
	cmd := &cobra.Command{
		Use:           "events",
		Short:         "List public events",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvents(opts, page, limit, cmd)
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&limit, "limit", 6, "events per page")
	return cmd
}

func runEvents(opts *RootOptions, page, limit int, cmd *cobra.Command) error {
	if page < 1 || limit < 1 {
		return NewExitError(ExitCommandError, "--page and --limit must be positive")
	}
	d := opts.deps(cmd)
	events, total, err := d.api.ListEvents(cmd.Context(), page, limit)
	if err != nil {
		return apiFailure("list events", err)
	}
	res := eventsResult{Events: events, Total: total, Page: page, Limit: limit}
	return d.out.Success(res, func(w io.Writer) {
		if len(events) == 0 {
			fmt.Fprintln(w, "no public events")
			return
		}
		for _, e := range events {
			fmt.Fprintf(w, "%s  %s %s  (%s %s, %d responses)\n", e.ID, e.Emoji, e.Name, e.Date, e.Time, len(e.Attendees))
		}
		fmt.Fprintf(w, "page %d, %d events total\n", page, total)
	})
}
