package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/joshua-takyi/whosin/internal/expiry"
)

// NewCountdownCommand prints the time left on an event's RSVP link every
// second until it closes.
func NewCountdownCommand(opts *RootOptions) *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:           "countdown <event-id>",
		Short:         "Watch an event's RSVP window run out",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCountdown(opts, args[0], once, cmd)
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "print the remaining time once and exit")
	return cmd
}

func runCountdown(opts *RootOptions, eventID string, once bool, cmd *cobra.Command) error {
	d := opts.deps(cmd)
	ctx := cmd.Context()
	view, err := d.api.GetEvent(ctx, eventID)
	if err != nil {
		return apiFailure("load event", err)
	}
	// the server reports what is left of its own window; each tick is
	// recomputed from the wall clock so a suspended terminal catches up
	deadline := expiry.Deadline(view.RemainingSeconds, time.Now())
	if view.Expired {
		deadline = time.Now()
	}
	remaining := func() int64 { return expiry.Until(deadline, time.Now()) }

	if once || d.out.Format == "json" {
		left := remaining()
		res := map[string]any{"eventId": eventID, "remainingSeconds": left, "expired": left == 0}
		return d.out.Success(res, func(w io.Writer) {
			if left == 0 {
				fmt.Fprintln(w, "RSVPs closed")
				return
			}
			fmt.Fprintf(w, "%s left\n", expiry.Format(left))
		})
	}

	w := cmd.OutOrStdout()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		left := remaining()
		if left == 0 {
			fmt.Fprintf(w, "\r%s RSVPs closed        \n", view.Event.Emoji)
			return nil
		}
		fmt.Fprintf(w, "\r%s %s left  ", view.Event.Emoji, expiry.Format(left))
		select {
		case <-ctx.Done():
			fmt.Fprintln(w)
			return nil
		case <-ticker.C:
		}
	}
}
