// Package adapter implements the five input adapters (A) from spec §4.5
// behind a shared Adapter interface. Each adapter owns a
// streamer.Streamer and drives it by calling ParseChunk as its transport
// produces data; pause/resume/abort propagate to the transport when that
// is meaningful (an in-flight HTTP request, an open file, a channel
// read) and otherwise just gate the adapter's own read loop.
//
// The pause/resume coordination between an adapter's read loop and a
// callback-triggered Handle.Pause() (which only flips an atomic flag on
// the scanner) is a short poll loop — there is no teacher equivalent,
// since the teacher never runs this cooperative-suspension model; this
// is the idiomatic Go rendering of spec §5's suspension-point contract.
package adapter

import (
	"context"
	"time"
	"unicode/utf8"
)

// Adapter is the shape every input source conforms to.
type Adapter interface {
	Stream(ctx context.Context) error
	Pause()
	Resume()
	Abort()
}

// pauseState is satisfied by streamer.Streamer; kept minimal here so this
// package doesn't need to import streamer's Handle type just to poll it.
type pauseState interface {
	Paused() bool
	Aborted() bool
}

// streamerLike is the subset of *streamer.Streamer every adapter drives.
// Declaring it as a local interface (instead of importing the concrete
// type in every adapter file) keeps each adapter's dependency surface to
// "something I can feed chunks into and pause/resume/abort", matching the
// accept-interfaces idiom; *streamer.Streamer satisfies it structurally.
type streamerLike interface {
	ParseChunk(chunk string, final bool)
	Error(err error)
	Pause()
	Resume()
	Abort()
	Paused() bool
	Aborted() bool
	Halted() bool
}

// waitWhilePaused blocks the calling adapter's read loop while s is
// paused, waking periodically to re-check (and to notice ctx
// cancellation or an abort). Returns ctx.Err() if the context is
// cancelled while waiting.
func waitWhilePaused(ctx context.Context, s pauseState) error {
	for s.Paused() && !s.Aborted() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Millisecond):
		}
	}
	return nil
}

// runeSafeEnd returns start+size (capped at len(s)), moved forward past
// any UTF-8 continuation bytes to the next rune start, so string-chunking
// never hands the scanner a truncated rune at a chunk boundary. The
// result can therefore exceed start+size by up to three bytes.
func runeSafeEnd(s string, start, size int) int {
	end := start + size
	if end >= len(s) {
		return len(s)
	}
	for end < len(s) && !utf8.RuneStart(s[end]) {
		end++
	}
	return end
}
