package main

import (
	"fmt"
	"os"

	"github.com/Masterminds/log-go"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"comptrace/internal/replay"
)

var replayCmd = &cobra.Command{
	Use:   "replay [logs...]",
	Short: "Replay recorded signal logs into traces",
	Long: `Replay feeds each signal log (.ndjson or .msgpack) through a fresh trace
session and writes one trace per log. Several logs need --trace-dir or a
--trace template containing XXXXXX.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runReplay,
}

func init() {
	addReplayFlags(replayCmd.Flags())
}

func addReplayFlags(flags *pflag.FlagSet) {
	flags.Int("jobs", 0, "max parallel replays (0=GOMAXPROCS)")
	flags.String("ui", "auto", "progress UI (auto|on|off)")
	flags.Bool("timings", false, "print per-log replay timings")
}

func runReplay(cmd *cobra.Command, args []string) error {
	cleanup, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	configPath, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return fmt.Errorf("failed to get config flag: %w", err)
	}
	cfg, err := loadConfig(configPath, ".")
	if err != nil {
		return err
	}
	if cfg.Path != "" {
		log.Debugf("using %s", cfg.Path)
	}
	sink, err := setupTracing(cmd, cfg)
	if err != nil {
		return err
	}

	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return fmt.Errorf("failed to get jobs flag: %w", err)
	}
	if !cmd.Flags().Changed("jobs") && cfg.Config.Replay.Jobs > 0 {
		jobs = cfg.Config.Replay.Jobs
	}
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return fmt.Errorf("failed to get ui flag: %w", err)
	}
	if !cmd.Flags().Changed("ui") && cfg.Config.Replay.UI != "" {
		uiValue = cfg.Config.Replay.UI
	}
	mode, err := readUIMode(uiValue)
	if err != nil {
		return err
	}
	timings, err := cmd.Flags().GetBool("timings")
	if err != nil {
		return fmt.Errorf("failed to get timings flag: %w", err)
	}

	req := &replay.Request{
		Logs:   args,
		Sink:   sink,
		Jobs:   jobs,
		Logger: log.Current,
	}
	var res replay.Result
	if shouldUseTUI(mode, sink.File == "-") {
		res, err = runReplayWithUI(cmd.Context(), "replay", req)
	} else {
		res, err = replay.Run(cmd.Context(), req)
	}

	out := cmd.OutOrStdout()
	if sink.File == "-" {
		out = cmd.ErrOrStderr()
	}
	for _, o := range res.Outputs {
		if o.Err == nil && o.Trace != "" {
			fmt.Fprintf(out, "%s -> %s (%d events)\n", o.Log, o.Trace, o.Events)
		}
	}
	if timings {
		printReplayTimings(out, res)
	}
	if err != nil {
		if failed := len(res.Failed()); failed > 0 {
			fmt.Fprintln(os.Stderr, color.YellowString("%d of %d logs failed", failed, len(res.Outputs)))
		}
		return err
	}
	return nil
}
