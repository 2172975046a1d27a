package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"comptrace/internal/trace"
)

// setupTracing resolves where traces go: --trace and --trace-dir win over the
// [trace] table of the config file, and --format over [trace].format. Setting
// either flag discards both file-level targets.
func setupTracing(cmd *cobra.Command, cfg loadedConfig) (trace.SinkConfig, error) {
	root := cmd.Root()

	file, err := root.PersistentFlags().GetString("trace")
	if err != nil {
		return trace.SinkConfig{}, fmt.Errorf("failed to get trace flag: %w", err)
	}
	dir, err := root.PersistentFlags().GetString("trace-dir")
	if err != nil {
		return trace.SinkConfig{}, fmt.Errorf("failed to get trace-dir flag: %w", err)
	}
	formatStr, err := root.PersistentFlags().GetString("format")
	if err != nil {
		return trace.SinkConfig{}, fmt.Errorf("failed to get format flag: %w", err)
	}

	sink := trace.SinkConfig{File: file, Dir: dir}
	if file == "" && dir == "" {
		sink.File, sink.Dir = cfg.Config.Trace.File, cfg.Config.Trace.Dir
	}
	if !root.PersistentFlags().Changed("format") && cfg.Config.Trace.Format != "" {
		formatStr = cfg.Config.Trace.Format
	}
	format, err := trace.ParseFormat(formatStr)
	if err != nil {
		return trace.SinkConfig{}, err
	}
	sink.Format = format

	if err := sink.Validate(); err != nil {
		return trace.SinkConfig{}, fmt.Errorf("%w (use --trace or --trace-dir)", err)
	}
	return sink, nil
}
