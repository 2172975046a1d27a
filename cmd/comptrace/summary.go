package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"comptrace/internal/observ"
	"comptrace/internal/trace"
	"comptrace/internal/ui"
)

var summaryCmd = &cobra.Command{
	Use:   "summary <trace>",
	Short: "Summarize where the time went in a written trace",
	Args:  cobra.ExactArgs(1),
	RunE:  runSummary,
}

func init() {
	summaryCmd.Flags().Int("top", 10, "number of longest events to list")
	summaryCmd.Flags().Bool("json", false, "print the report as JSON")
}

func runSummary(cmd *cobra.Command, args []string) error {
	top, err := cmd.Flags().GetInt("top")
	if err != nil {
		return fmt.Errorf("failed to get top flag: %w", err)
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return fmt.Errorf("failed to get json flag: %w", err)
	}
	formatStr, err := cmd.Root().PersistentFlags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	format, err := trace.ParseFormat(formatStr)
	if err != nil {
		return err
	}

	events, err := readTrace(args[0], format)
	if err != nil {
		return err
	}
	report := observ.Summarize(events, top)

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	if color.NoColor {
		_, err = fmt.Fprint(out, report.Summary())
		return err
	}
	_, err = fmt.Fprint(out, ui.RenderSummary(report, terminalWidth()))
	return err
}

func readTrace(path string, format trace.Format) ([]trace.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace: %w", err)
	}
	defer f.Close()
	events, err := trace.ReadEvents(f, format.Resolve(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return events, nil
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 100
	}
	return width
}
