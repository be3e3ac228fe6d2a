package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "whosin", cmd.Use)
	assert.Contains(t, cmd.Long, "one hour")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"identity", "create", "show", "events", "rsvp", "countdown"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	t.Setenv("WHOSIN_SERVER", "")
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	serverFlag := cmd.PersistentFlags().Lookup("server")
	require.NotNil(t, serverFlag)
	assert.Equal(t, "http://localhost:8080", serverFlag.DefValue)

	// the RSVP window is the server's; the CLI never assumes one
	assert.Nil(t, cmd.PersistentFlags().Lookup("window"))
}

func TestServerFlagReadsEnvironment(t *testing.T) {
	t.Setenv("WHOSIN_SERVER", "https://whosin.example")
	t.Setenv("WHOSIN_SECRET", "s3cret")
	cmd := NewRootCommand()

	assert.Equal(t, "https://whosin.example", cmd.PersistentFlags().Lookup("server").DefValue)
	assert.Equal(t, "s3cret", cmd.PersistentFlags().Lookup("secret").DefValue)
}

func TestRSVPCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	rsvpCmd, _, err := cmd.Find([]string{"rsvp"})
	require.NoError(t, err)

	statusFlag := rsvpCmd.Flags().Lookup("status")
	require.NotNil(t, statusFlag)
	assert.Equal(t, "s", statusFlag.Shorthand)

	nameFlag := rsvpCmd.Flags().Lookup("name")
	require.NotNil(t, nameFlag)
	assert.Equal(t, "n", nameFlag.Shorthand)
	assert.Equal(t, "", nameFlag.DefValue)
}

func TestCreateCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	createCmd, _, err := cmd.Find([]string{"create"})
	require.NoError(t, err)

	for _, name := range []string{"name", "date", "time", "place", "location", "emoji", "description", "private"} {
		assert.NotNil(t, createCmd.Flags().Lookup(name), "flag %s", name)
	}
	assert.Equal(t, "real-life", createCmd.Flags().Lookup("location").DefValue)
	assert.Equal(t, "false", createCmd.Flags().Lookup("private").DefValue)
}

func TestEventsCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	eventsCmd, _, err := cmd.Find([]string{"events"})
	require.NoError(t, err)

	assert.Equal(t, "1", eventsCmd.Flags().Lookup("page").DefValue)
	assert.Equal(t, "6", eventsCmd.Flags().Lookup("limit").DefValue)
}

func TestInvalidFormatRejected(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"identity", "--format", "yaml"})
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad flag")))
	assert.Equal(t, ExitFailure, GetExitCode(assert.AnError))

	wrapped := WrapExitError(ExitFailure, "rsvp", assert.AnError)
	assert.ErrorIs(t, wrapped, assert.AnError)
	assert.Equal(t, "rsvp: "+assert.AnError.Error(), wrapped.Error())
}
