// Package replay turns recorded signal logs into trace files, several at a
// time.
package replay

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"comptrace/internal/signal"
	"comptrace/internal/trace"
)

// Run replays every log in req. A failing log does not stop the others; its
// error is kept in the corresponding Output and joined into the returned error.
func Run(ctx context.Context, req *Request) (Result, error) {
	if req == nil {
		return Result{}, fmt.Errorf("missing replay request")
	}
	if len(req.Logs) == 0 {
		return Result{}, fmt.Errorf("no signal logs given")
	}
	if err := req.Sink.Validate(); err != nil {
		return Result{}, err
	}
	if len(req.Logs) > 1 && req.Sink.File != "" && !strings.Contains(req.Sink.File, "XXXXXX") {
		return Result{}, fmt.Errorf("%d logs would overwrite %s: use a trace directory", len(req.Logs), req.Sink.File)
	}

	jobs := req.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	for _, path := range req.Logs {
		report(req.Progress, Event{File: path, Status: StatusQueued})
	}

	// индексы уникальны для каждой горутины, мьютекс не нужен
	outputs := make([]Output, len(req.Logs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(req.Logs)))
	for i, path := range req.Logs {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				outputs[i] = Output{Log: path, Err: gctx.Err()}
				return gctx.Err()
			default:
			}
			report(req.Progress, Event{File: path, Status: StatusWorking})
			out := replayOne(gctx, req, path)
			outputs[i] = out
			status := StatusDone
			if out.Err != nil {
				status = StatusError
			}
			report(req.Progress, Event{File: path, Status: status, Err: out.Err, Elapsed: out.Elapsed})
			return nil
		})
	}
	waitErr := g.Wait()

	res := Result{Outputs: outputs}
	var errs []error
	for _, o := range res.Failed() {
		errs = append(errs, fmt.Errorf("%s: %w", o.Log, o.Err))
	}
	if waitErr != nil && len(errs) == 0 {
		errs = append(errs, waitErr)
	}
	return res, errors.Join(errs...)
}

func replayOne(ctx context.Context, req *Request, path string) Output {
	started := time.Now()
	out := Output{Log: path}
	finish := func(err error) Output {
		out.Err = err
		out.Elapsed = time.Since(started)
		return out
	}

	f, err := os.Open(path)
	if err != nil {
		return finish(fmt.Errorf("failed to open signal log: %w", err))
	}
	defer f.Close()

	sink, err := trace.OpenSink(req.Sink, req.Logger)
	if err != nil {
		return finish(err)
	}
	out.Trace = sink.Path()

	clock := trace.NewManualClock(0)
	opts := []trace.Option{trace.WithClock(clock)}
	if req.Logger != nil {
		opts = append(opts, trace.WithLogger(req.Logger))
	}
	if req.Resolver != nil {
		opts = append(opts, trace.WithResolver(req.Resolver))
	}
	session, err := trace.NewSession(sink, opts...)
	if err != nil {
		_ = sink.Close()
		return finish(err)
	}

	dec := signal.NewDecoder(f, signal.FormatForPath(path))
	n, err := signal.Replay(ctx, session, clock, dec)
	out.Signals = n
	out.Events = session.Written()
	return finish(err)
}

func report(sink ProgressSink, ev Event) {
	if sink != nil {
		sink.OnEvent(ev)
	}
}
