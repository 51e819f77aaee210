package main

import (
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// Exit codes.
const (
	exitFailure      = 1 // Validation failure or runtime error
	exitCommandError = 2 // Bad flags, unreadable files
)

// commandError carries the exit code a failure should produce.
type commandError struct {
	code int
	err  error
}

func (e *commandError) Error() string { return e.err.Error() }
func (e *commandError) Unwrap() error { return e.err }

func usageErrorf(format string, args ...any) error {
	return &commandError{code: exitCommandError, err: fmt.Errorf(format, args...)}
}

func exitCode(err error) int {
	var cmdErr *commandError
	if errors.As(err, &cmdErr) {
		return cmdErr.code
	}
	return exitFailure
}

// rootOptions holds the flags shared by every command.
type rootOptions struct {
	Format   string // "text" | "json"
	LogLevel string
}

var validFormats = []string{"text", "json"}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "rtiexec",
		Short:         "Federation executor with time management and ownership transfer",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(validFormats, opts.Format) {
				return usageErrorf("invalid format %q: must be one of %v", opts.Format, validFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level, overrides the config file (debug|info|warn|error)")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newJournalCommand(opts))
	cmd.AddCommand(newFOMCommand(opts))
	return cmd
}
