package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/joshua-takyi/whosin/internal/client"
	"github.com/joshua-takyi/whosin/internal/models"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // the server rejected the request
	ExitCommandError = 2 // bad flags, missing secret, unreachable server
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error, ExitFailure otherwise.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// apiFailure turns a client error into an ExitError with a message a voter
// can act on.
func apiFailure(action string, err error) *ExitError {
	switch {
	case errors.Is(err, client.ErrNetworkFailure):
		return WrapExitError(ExitCommandError, action+": server unreachable, try again", err)
	case errors.Is(err, models.ErrLinkExpired):
		return WrapExitError(ExitFailure, action+": this RSVP link has expired", err)
	case errors.Is(err, models.ErrSelfRSVPForbidden):
		return WrapExitError(ExitFailure, action+": you created this event, so you can't RSVP to it", err)
	case errors.Is(err, models.ErrEventNotFound):
		return WrapExitError(ExitFailure, action+": event not found", err)
	}
	return WrapExitError(ExitFailure, action, err)
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
	Verbose   bool
}

// CLIResponse is the JSON envelope written by --format json.
type CLIResponse struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
}

// Success writes data as a JSON envelope, or text via the render callback.
func (f *OutputFormatter) Success(data any, render func(w io.Writer)) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: data})
	}
	if render != nil {
		render(f.Writer)
		return nil
	}
	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// VerboseLog writes to ErrWriter so JSON output on Writer stays clean.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

func statusLabel(s models.RSVPStatus) string {
	switch s {
	case models.StatusIn:
		return "IN"
	case models.StatusMaybe:
		return "MAYBE"
	case models.StatusOut:
		return "OUT"
	}
	return string(s)
}

func writeAttendees(w io.Writer, attendees []models.Attendee) {
	if len(attendees) == 0 {
		fmt.Fprintln(w, "  no responses yet")
		return
	}
	for _, a := range attendees {
		fmt.Fprintf(w, "  %-6s %s\n", statusLabel(a.Status), a.Name)
	}
}
