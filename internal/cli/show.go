package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/joshua-takyi/whosin/internal/expiry"
	"github.com/joshua-takyi/whosin/internal/models"
)

func NewShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <event-id>",
		Short:         "Show an event and who's in",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, args[0], cmd)
		},
	}
}

func runShow(opts *RootOptions, eventID string, cmd *cobra.Command) error {
	d := opts.deps(cmd)
	view, err := d.api.GetEvent(cmd.Context(), eventID)
	if err != nil {
		return apiFailure("load event", err)
	}
	return d.out.Success(view, func(w io.Writer) {
		writeEvent(w, view)
	})
}

func writeEvent(w io.Writer, view *models.EventView) {
	e := view.Event
	fmt.Fprintf(w, "%s %s\n", e.Emoji, e.Name)
	fmt.Fprintf(w, "  %s at %s, %s (%s)\n", e.Date, e.Time, e.Place, e.LocationType)
	if e.Description != "" {
		fmt.Fprintf(w, "  %s\n", e.Description)
	}
	if view.Expired {
		fmt.Fprintln(w, "  RSVPs closed")
	} else {
		fmt.Fprintf(w, "  RSVPs close in %s\n", expiry.Format(view.RemainingSeconds))
	}
	writeAttendees(w, e.Attendees)
}
