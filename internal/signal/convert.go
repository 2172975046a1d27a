package signal

import (
	"context"
	"errors"

	"comptrace/internal/trace"
)

// Convert re-encodes every signal from dec through enc, ending with an end
// signal, and flushes enc. Recorded times are kept, except that repeated
// times become strictly increasing, as a replay would read them.
func Convert(ctx context.Context, dec Decoder, enc *Encoder) (int, error) {
	clock := trace.NewManualClock(0)
	rec := NewRecorder(enc, clock)
	n, err := feed(ctx, rec, clock, dec)
	return n, errors.Join(err, rec.Close())
}
