package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

type identityResult struct {
	VoterID  string `json:"voterId"`
	Degraded bool   `json:"degraded"`
}

// NewIdentityCommand prints this device's voter identifier, creating and
// registering one on first use.
func NewIdentityCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "identity",
		Short:         "Show this device's voter identity",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIdentity(opts, cmd)
		},
	}
}

func runIdentity(opts *RootOptions, cmd *cobra.Command) error {
	d := opts.deps(cmd)
	res := identityResult{
		VoterID: d.identity.GetOrCreateIdentity(cmd.Context()),
	}
	res.Degraded = d.identity.Degraded()
	return d.out.Success(res, func(w io.Writer) {
		fmt.Fprintln(w, res.VoterID)
		if res.Degraded {
			fmt.Fprintln(w, "warning: identity could not be saved and will change next run")
		}
	})
}
