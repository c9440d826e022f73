package adapter

import (
	"context"

	"github.com/shapestone/shape-dsv/internal/errs"
)

// PushAdapter stands in for the spec's "Push-stream adapter": a source
// that delivers data/end/error events rather than being pulled from. The
// three channels are the idiomatic Go rendering of those three event
// types. Backpressure is applied by not reading Data while the stream is
// paused, matching spec §4.5's "applies backpressure by pausing the
// source when the parser is paused".
type PushAdapter struct {
	Data chan []byte
	End  chan struct{}
	Err  chan error

	Streamer streamerLike
}

func (a *PushAdapter) Pause()  { a.Streamer.Pause() }
func (a *PushAdapter) Resume() { a.Streamer.Resume() }
func (a *PushAdapter) Abort()  { a.Streamer.Abort() }

func (a *PushAdapter) Stream(ctx context.Context) error {
	for {
		if err := waitWhilePaused(ctx, a.Streamer); err != nil {
			return err
		}
		if a.Streamer.Aborted() || a.Streamer.Halted() {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case chunk, ok := <-a.Data:
			if !ok {
				a.Streamer.ParseChunk("", true)
				return nil
			}
			a.Streamer.ParseChunk(string(chunk), false)
			if a.Streamer.Halted() {
				return nil
			}
		case <-a.End:
			a.Streamer.ParseChunk("", true)
			return nil
		case err := <-a.Err:
			a.Streamer.Error(&errs.TransportError{Kind: errs.KindNetwork, Code: errs.CodeNetworkError, Message: "push source reported an error", Err: err})
			return err
		}
	}
}
