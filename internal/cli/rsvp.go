package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/joshua-takyi/whosin/internal/client"
	"github.com/joshua-takyi/whosin/internal/models"
)

type rsvpResult struct {
	EventID   string            `json:"eventId"`
	Status    models.RSVPStatus `json:"status"`
	Attendees []models.Attendee `json:"attendees"`
}

func NewRSVPCommand(opts *RootOptions) *cobra.Command {
	var status, name string
	cmd := &cobra.Command{
		Use:   "rsvp <event-id>",
		Short: "Answer in, maybe or out for an event",
		Example: `  whosin rsvp 3f9c2a... --status in --name Alice
  whosin rsvp 3f9c2a... --status maybe`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRSVP(opts, args[0], models.RSVPStatus(status), name, cmd)
		},
	}
	cmd.Flags().StringVarP(&status, "status", "s", "", "in, maybe or out (required)")
	cmd.Flags().StringVarP(&name, "name", "n", "", "display name (default \""+models.DefaultDisplayName+"\")")
	_ = cmd.MarkFlagRequired("status")
	return cmd
}

func runRSVP(opts *RootOptions, eventID string, status models.RSVPStatus, name string, cmd *cobra.Command) error {
	if err := opts.requireSecret(); err != nil {
		return err
	}
	if !status.Valid() {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid status %q: use in, maybe or out", status))
	}
	d := opts.deps(cmd)
	ctx := cmd.Context()

	session := client.NewSession(d.api, d.identity, []byte(opts.Secret), eventID)
	if err := session.Load(ctx); err != nil {
		return apiFailure("load event", err)
	}
	if err := session.Choose(status); err != nil {
		return apiFailure("rsvp", err)
	}
	attendees, err := session.Submit(ctx, name)
	if err != nil {
		return apiFailure("rsvp", err)
	}

	res := rsvpResult{EventID: eventID, Status: status, Attendees: attendees}
	return d.out.Success(res, func(w io.Writer) {
		e := session.Event()
		fmt.Fprintf(w, "You're %s for %s %s\n", statusLabel(status), e.Emoji, e.Name)
		writeAttendees(w, attendees)
	})
}
