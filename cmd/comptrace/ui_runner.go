package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"comptrace/internal/replay"
	"comptrace/internal/ui"
)

type replayOutcome struct {
	result replay.Result
	err    error
}

// runReplayWithUI runs the replay in the background while a Bubble Tea
// program renders its progress events.
func runReplayWithUI(ctx context.Context, title string, req *replay.Request) (replay.Result, error) {
	if req == nil {
		return replay.Result{}, fmt.Errorf("missing replay request")
	}
	events := make(chan replay.Event, 256)
	outcomeCh := make(chan replayOutcome, 1)

	go func() {
		reqCopy := *req
		reqCopy.Progress = replay.ChannelSink{Ch: events}
		res, err := replay.Run(ctx, &reqCopy)
		outcomeCh <- replayOutcome{result: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, req.Logs, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	if uiErr != nil {
		// the UI is gone; keep the replay from blocking on progress
		go func() {
			for range events {
			}
		}()
	}
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.result, fmt.Errorf("progress UI: %w", uiErr)
	}
	return outcome.result, outcome.err
}
