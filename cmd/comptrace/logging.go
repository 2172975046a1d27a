package main

import (
	"fmt"
	stdlog "log"

	"github.com/Masterminds/log-go"
	"github.com/spf13/cobra"
)

// setupLogging installs the process logger. Diagnostics go to stderr through
// the standard library logger that log.StdLogger writes to.
func setupLogging(cmd *cobra.Command) error {
	verbose, err := cmd.Root().PersistentFlags().GetBool("verbose")
	if err != nil {
		return fmt.Errorf("failed to get verbose flag: %w", err)
	}
	stdlog.SetOutput(cmd.ErrOrStderr())
	stdlog.SetFlags(0)
	stdlog.SetPrefix("comptrace: ")

	logger := log.NewStandard()
	if verbose {
		logger.Level = log.DebugLevel
	}
	log.Current = logger
	return nil
}
