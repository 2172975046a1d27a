package signal

import (
	"context"
	"errors"
	"io"

	"comptrace/internal/trace"
)

// Replay feeds every signal from dec into s, driving clock with the recorded
// times, and ends the session. The session is ended even when decoding fails
// or ctx is cancelled, so whatever was traced so far reaches the sink.
func Replay(ctx context.Context, s *trace.Session, clock *trace.ManualClock, dec Decoder) (int, error) {
	n, replayErr := feed(ctx, s, clock, dec)
	endErr := s.End()
	if errors.Is(endErr, trace.ErrSessionEnded) {
		endErr = nil
	}
	return n, errors.Join(replayErr, endErr)
}

func feed(ctx context.Context, h Host, clock *trace.ManualClock, dec Decoder) (int, error) {
	n := 0
	for {
		select {
		case <-ctx.Done():
			return n, ctx.Err()
		default:
		}
		sig, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		if err := Dispatch(h, clock, sig); err != nil {
			return n, err
		}
		n++
		if sig.Kind == KindEnd {
			return n, nil
		}
	}
}
