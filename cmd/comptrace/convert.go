package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"comptrace/internal/signal"
)

var convertCmd = &cobra.Command{
	Use:   "convert <in> <out>",
	Short: "Re-encode a signal log between NDJSON and msgpack",
	Long: `Convert reads a signal log and writes it again in the format picked by the
output extension (.mp/.msgpack for msgpack, anything else NDJSON).`,
	Args: cobra.ExactArgs(2),
	RunE: runConvert,
}

func runConvert(cmd *cobra.Command, args []string) (err error) {
	in, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open signal log: %w", err)
	}
	defer in.Close()

	out, err := os.Create(args[1])
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", args[1], err)
	}
	defer func() {
		if closeErr := out.Close(); err == nil && closeErr != nil {
			err = closeErr
		}
	}()

	dec := signal.NewDecoder(in, signal.FormatForPath(args[0]))
	enc := signal.NewEncoder(out, signal.FormatForPath(args[1]))
	n, err := signal.Convert(cmd.Context(), dec, enc)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s (%d signals)\n", args[0], args[1], n)
	return nil
}
