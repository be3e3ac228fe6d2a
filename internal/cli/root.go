package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/joshua-takyi/whosin/internal/client"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Server    string
	Secret    string
	StatePath string
	Format    string // "json" | "text"
	Verbose   bool
}

var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the whosin CLI. Flag defaults
// come from WHOSIN_SERVER, WHOSIN_SECRET and WHOSIN_STATE.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "whosin",
		Short: "Who's In? - quick RSVPs from the terminal",
		Long: `Create events, share their links and collect in/maybe/out votes.

Votes are signed with the shared RSVP secret and accepted for one hour
after the event is created.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Server, "server", envOr("WHOSIN_SERVER", "http://localhost:8080"), "API base URL")
	cmd.PersistentFlags().StringVar(&opts.Secret, "secret", os.Getenv("WHOSIN_SECRET"), "shared RSVP signing secret")
	cmd.PersistentFlags().StringVar(&opts.StatePath, "state", os.Getenv("WHOSIN_STATE"), "identity file (default: user config dir)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewIdentityCommand(opts))
	cmd.AddCommand(NewCreateCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewEventsCommand(opts))
	cmd.AddCommand(NewRSVPCommand(opts))
	cmd.AddCommand(NewCountdownCommand(opts))

	return cmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// deps is what a command needs to talk to the server as this voter.
type deps struct {
	api      *client.APIClient
	identity *client.Provider
	out      *OutputFormatter
}

func (o *RootOptions) deps(cmd *cobra.Command) *deps {
	level := slog.LevelWarn
	if o.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	path := o.StatePath
	if path == "" {
		var err error
		if path, err = client.DefaultStatePath(); err != nil {
			logger.Warn("no user config directory, identity will not persist", "error", err)
		}
	}
	var store client.Store = client.NewFileStore(path)
	if path == "" {
		store = memoryStore{}
	}

	api := client.NewAPIClient(o.Server)
	return &deps{
		api:      api,
		identity: client.NewProvider(store, api, logger),
		out:      o.formatter(cmd.OutOrStdout(), cmd.ErrOrStderr()),
	}
}

func (o *RootOptions) formatter(w, errW io.Writer) *OutputFormatter {
	return &OutputFormatter{Format: o.Format, Writer: w, ErrWriter: errW, Verbose: o.Verbose}
}

func (o *RootOptions) requireSecret() error {
	if o.Secret == "" {
		return NewExitError(ExitCommandError, "a signing secret is required (--secret or WHOSIN_SECRET)")
	}
	return nil
}

// memoryStore never persists, which puts the provider in degraded mode.
type memoryStore struct{}

func (memoryStore) Load() (*client.State, error) { return nil, fmt.Errorf("no state path") }
func (memoryStore) Save(*client.State) error     { return fmt.Errorf("no state path") }
