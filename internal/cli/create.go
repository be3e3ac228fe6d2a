package cli

import (
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/joshua-takyi/whosin/internal/models"
	"github.com/joshua-takyi/whosin/internal/signature"
)

type createOptions struct {
	name        string
	date        string
	time        string
	place       string
	location    string
	emoji       string
	description string
	private     bool
}

type createResult struct {
	Event *models.Event `json:"event"`
	Link  string        `json:"link"`
}

func NewCreateCommand(opts *RootOptions) *cobra.Command {
	co := &createOptions{}
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an event and print its shareable link",
		Example: `  whosin create --name "Game night" --date 2025-03-31 --time 20:00 \
    --place Discord --location online --emoji 🎲`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(opts, co, cmd)
		},
	}

	cmd.Flags().StringVar(&co.name, "name", "", "event name (required)")
	cmd.Flags().StringVar(&co.date, "date", time.Now().Format("2006-01-02"), "date as YYYY-MM-DD")
	cmd.Flags().StringVar(&co.time, "time", "", "start time as HH:MM (required)")
	cmd.Flags().StringVar(&co.place, "place", "", "where it happens (required)")
	cmd.Flags().StringVar(&co.location, "location", string(models.LocationRealLife), "real-life or online")
	cmd.Flags().StringVar(&co.emoji, "emoji", "🎉", "emoji shown next to the name")
	cmd.Flags().StringVar(&co.description, "description", "", "optional description")
	cmd.Flags().BoolVar(&co.private, "private", false, "hide from the public event list")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("time")
	_ = cmd.MarkFlagRequired("place")

	return cmd
}

func runCreate(opts *RootOptions, co *createOptions, cmd *cobra.Command) error {
	if err := opts.requireSecret(); err != nil {
		return err
	}
	payload := models.EventPayload{
		Name:         co.name,
		Date:         co.date,
		Time:         co.time,
		Place:        co.place,
		LocationType: models.LocationType(co.location),
		Emoji:        co.emoji,
		Description:  co.description,
		Private:      co.private,
	}
	payload.Sanitize()
	if err := models.Validate.Struct(payload); err != nil {
		return WrapExitError(ExitCommandError, "invalid event", err)
	}

	d := opts.deps(cmd)
	ctx := cmd.Context()
	voterID := d.identity.GetOrCreateIdentity(ctx)
	ts := time.Now().UnixMilli()
	env := models.EventEnvelope{
		EventData: payload,
		Signature: signature.Sign(payload, ts, voterID, []byte(opts.Secret)),
		Timestamp: ts,
		UserID:    voterID,
	}
	d.out.VerboseLog("creating event as %s", voterID)

	event, err := d.api.CreateEvent(ctx, env)
	if err != nil {
		return apiFailure("create event", err)
	}
	res := createResult{Event: event, Link: eventLink(opts.Server, event.ID)}
	return d.out.Success(res, func(w io.Writer) {
		fmt.Fprintf(w, "%s %s\n", event.Emoji, event.Name)
		fmt.Fprintf(w, "Share this link: %s\n", res.Link)
	})
}

func eventLink(server, id string) string {
	return strings.TrimRight(server, "/") + "/event/" + url.PathEscape(id)
}
