package adapter

import "context"

// StringAdapter streams an in-memory string, either whole (ChunkSize <= 0)
// or sliced by rune-safe byte index (ChunkSize > 0), per spec §4.5's
// "String adapter".
type StringAdapter struct {
	Text      string
	ChunkSize int

	Streamer streamerLike
}

func (a *StringAdapter) Pause()  { a.Streamer.Pause() }
func (a *StringAdapter) Resume() { a.Streamer.Resume() }
func (a *StringAdapter) Abort()  { a.Streamer.Abort() }

func (a *StringAdapter) Stream(ctx context.Context) error {
	if a.ChunkSize <= 0 {
		a.Streamer.ParseChunk(a.Text, true)
		return ctx.Err()
	}

	pos := 0
	for {
		if err := waitWhilePaused(ctx, a.Streamer); err != nil {
			return err
		}
		if a.Streamer.Aborted() || a.Streamer.Halted() {
			return nil
		}

		end := runeSafeEnd(a.Text, pos, a.ChunkSize)
		chunk := a.Text[pos:end]
		pos = end
		final := pos >= len(a.Text)

		a.Streamer.ParseChunk(chunk, final)
		if final || a.Streamer.Halted() {
			return nil
		}
	}
}
