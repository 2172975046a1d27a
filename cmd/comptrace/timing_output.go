package main

import (
	"fmt"
	"io"
	"time"

	"comptrace/internal/replay"
)

func printReplayTimings(out io.Writer, res replay.Result) {
	if out == nil {
		return
	}
	var total time.Duration
	for _, o := range res.Outputs {
		total += o.Elapsed
		status := "ok"
		if o.Err != nil {
			status = "failed"
		}
		fmt.Fprintf(out, "%-40s %6d signals %8.1f ms  %s\n", o.Log, o.Signals, toMillis(o.Elapsed), status)
	}
	fmt.Fprintf(out, "%-40s %6s         %8.1f ms\n", "total", "", toMillis(total))
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
