package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"comptrace/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "comptrace",
	Short: "Compile-time traces for chrome://tracing",
	Long: `comptrace turns the lifecycle signals of a compilation (included files,
optimization passes, finished functions) into a trace viewable in
chrome://tracing or Perfetto.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupCommon,
}

// main registers subcommands and persistent flags, then executes the root
// command. Any error is printed in red and exits with status 1.
func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(versionCmd)

	addPersistentFlags(rootCmd.PersistentFlags())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		os.Exit(1)
	}
}

// addPersistentFlags регистрирует глобальные флаги.
func addPersistentFlags(flags *pflag.FlagSet) {
	flags.String("trace", "", "write the trace to this file (\"-\" for stdout, XXXXXX is replaced with a unique id)")
	flags.String("trace-dir", "", "write traces as trace_XXXXXX.<ext> into this directory")
	flags.String("format", "auto", "trace format (auto|chrome|ndjson|msgpack)")
	flags.String("config", "", "path to comptrace.toml (default: search upwards from the working directory)")
	flags.BoolP("verbose", "v", false, "log debug messages")
	flags.String("color", "auto", "colorize output (auto|on|off)")
	flags.String("cpu-profile", "", "write a CPU profile of comptrace itself")
	flags.String("mem-profile", "", "write a heap profile on exit")
	flags.String("runtime-trace", "", "write a Go runtime trace")
}

// setupCommon runs before every subcommand: logging, then colour.
func setupCommon(cmd *cobra.Command, _ []string) error {
	if err := setupLogging(cmd); err != nil {
		return err
	}
	return setupColor(cmd)
}

func setupColor(cmd *cobra.Command) error {
	colorFlag, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return fmt.Errorf("failed to get color flag: %w", err)
	}
	switch colorFlag {
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	case "auto", "":
		color.NoColor = !isTerminal(os.Stdout)
	default:
		return fmt.Errorf("invalid --color value %q (expected auto|on|off)", colorFlag)
	}
	return nil
}

// isTerminal проверяет, является ли файл терминалом
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
