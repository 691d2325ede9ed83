// Package cli wires configuration, logging and the publisher into the
// socialpost command line.
package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// Exit codes returned by the socialpost binary.
const (
	ExitOK        = 0
	ExitRunErrors = 1
	ExitStartup   = 2
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	DryRun     bool
	LogLevel   string // overrides publisher.logLevel when set
}

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }

func startupError(format string, args ...any) error {
	return &ExitError{Code: ExitStartup, Err: fmt.Errorf(format, args...)}
}

// ExitCode maps an error returned by Execute onto a process exit code.
// Errors that carry no code are flag or usage errors and count as startup errors.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitStartup
}

// NewRootCommand creates the root command. Without a subcommand it performs a run.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "socialpost",
		Short: "Publish scheduled Instagram and Facebook posts",
		Long: `socialpost publishes every due payload from the payload directory to
Instagram (and the linked Facebook page when configured), records it in the
published ledger, removes the consumed files and syncs the ledger.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(cmd, opts)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to config file (default $SOCIALPOST_CONFIG or config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().BoolVar(&opts.DryRun, "dry-run", false, "check payloads without publishing or changing anything")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewLedgerCommand(opts))

	return cmd
}
