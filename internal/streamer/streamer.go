// Package streamer implements the ChunkStreamer (C): it coordinates chunk
// delivery from an input adapter into a header.Typer, carrying the partial
// trailing line across chunk boundaries, tracking row counts and preview
// cutoffs, and dispatching step/chunk/complete/error callbacks.
//
// Grounded on the buffering discipline of the teacher's
// internal/fastparser/chunked.go (chunk-at-a-time processing with a
// pooled scratch buffer) and pool.go's sync.Pool usage pattern, adapted
// from a single-shot whole-buffer parse into the cross-call partial-line
// carryover spec §4.4 requires. Each Streamer is assigned a
// uuid.NewString() SessionID at construction (expansion: correlates
// callback invocations and log lines back to one streaming session).
package streamer

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/shapestone/shape-dsv/internal/header"
	"github.com/shapestone/shape-dsv/internal/model"
)

// partialLineBufPool holds string-builder scratch space, grounded on the
// teacher's pool.go sync.Pool discipline. skipLines takes a builder from
// it and returns it unused; the skip itself works on substrings of the
// chunk.
var partialLineBufPool = sync.Pool{
	New: func() any { return new(strings.Builder) },
}

// Handle is the capability object passed to Step/Chunk callbacks, letting
// them pause, resume, or abort the in-flight stream.
type Handle struct {
	sc pausable
}

type pausable interface {
	Pause()
	Resume()
	Paused() bool
	Abort()
	Aborted() bool
}

func (h *Handle) Pause()        { h.sc.Pause() }
func (h *Handle) Resume()       { h.sc.Resume() }
func (h *Handle) Paused() bool  { return h.sc.Paused() }
func (h *Handle) Abort()        { h.sc.Abort() }
func (h *Handle) Aborted() bool { return h.sc.Aborted() }

// Callbacks are the user-supplied hooks from spec §4.4's contract summary.
type Callbacks struct {
	// Step, when set, is invoked once per row in arrival order instead of
	// accumulating rows into Complete's result. Exactly one of row/named
	// is non-nil, matching whichever mode the Typer is running in.
	Step func(row model.Row, named model.NamedRow, handle *Handle)
	// Chunk, when set, is invoked once per ParseChunk call with that
	// chunk's result; mutually exclusive with Step for accumulation.
	Chunk func(result model.Result, handle *Handle)
	// Complete is invoked exactly once, at natural end, preview cutoff, or
	// after abort (with Meta.Aborted true).
	Complete func(result model.Result)
	// Error reports fatal transport/config errors, not per-row ParseErrors.
	Error func(err error)
}

// Options configures a Streamer.
type Options struct {
	SkipFirstNLines int
	// BeforeFirstChunk, if set, is run once against the first chunk
	// (after skipFirstNLines); if ok is true, its returned string replaces
	// the chunk.
	BeforeFirstChunk func(chunk string) (rewritten string, ok bool)
	Preview          int
	Callbacks        Callbacks
	// RequestNext is invoked when the streamer is ready for another chunk
	// and has not finished; adapters set this to their _nextChunk hook.
	RequestNext func()
}

// Streamer drives one header.Typer across successive ParseChunk calls.
type Streamer struct {
	SessionID string

	typer *header.Typer
	opts  Options

	partialLine     string
	baseIndex       int
	rowCount        int
	isFirstChunk    bool
	finished        bool
	halted          bool
	completed       bool
	completeResults model.Result
}

// New creates a Streamer around typer.
func New(typer *header.Typer, opts Options) *Streamer {
	return &Streamer{
		SessionID:    uuid.NewString(),
		typer:        typer,
		opts:         opts,
		isFirstChunk: true,
	}
}

func (s *Streamer) handle() *Handle { return &Handle{sc: s} }

// Pause, Resume, Abort, Paused, and Aborted forward to the underlying
// scanner, letting an adapter control the stream directly (as opposed to
// through a callback's Handle). Streamer itself satisfies the pausable
// interface Handle wraps.
func (s *Streamer) Pause()        { s.typer.Scanner().Pause() }
func (s *Streamer) Resume()       { s.typer.Scanner().Resume() }
func (s *Streamer) Abort()        { s.typer.Scanner().Abort() }
func (s *Streamer) Paused() bool  { return s.typer.Scanner().Paused() }
func (s *Streamer) Aborted() bool { return s.typer.Scanner().Aborted() }

// Halted reports whether the stream stopped because of a pause or abort
// (as opposed to reaching natural or preview-cutoff completion).
func (s *Streamer) Halted() bool { return s.halted }

// Finished reports whether ParseChunk has seen the final chunk.
func (s *Streamer) Finished() bool { return s.finished }

// ParseChunk feeds one more chunk of raw text into the pipeline. final
// signals that no further chunks follow (the adapter has reached EOF, or
// this is an explicit "no more data" marker); the trailing partial line is
// then treated as a complete final row.
func (s *Streamer) ParseChunk(chunk string, final bool) {
	if s.halted || s.completed {
		return
	}

	if s.isFirstChunk {
		if s.opts.SkipFirstNLines > 0 {
			chunk = skipLines(chunk, s.opts.SkipFirstNLines, s.typer.Linebreak())
		}
		if s.opts.BeforeFirstChunk != nil {
			if rewritten, ok := s.opts.BeforeFirstChunk(chunk); ok {
				chunk = rewritten
			}
		}
		s.isFirstChunk = false
	}

	aggregate := s.partialLine + chunk
	s.partialLine = ""
	s.finished = final

	result := s.typer.Parse(aggregate, s.baseIndex, !s.finished)
	result.Meta.SessionID = s.SessionID

	sc := s.typer.Scanner()
	if sc.Paused() || sc.Aborted() {
		s.halted = true
		result.Meta.Aborted = sc.Aborted()
		s.dispatch(result)
		if result.Meta.Aborted {
			s.finish(result.Meta)
		}
		return
	}

	cursor := result.Meta.Cursor
	if !s.finished {
		offset := cursor - s.baseIndex
		if offset < 0 {
			offset = 0
		}
		if offset > len(aggregate) {
			offset = len(aggregate)
		}
		s.partialLine = aggregate[offset:]
		s.baseIndex = cursor
	}

	s.rowCount += len(result.Rows) + len(result.Named)

	if s.opts.Preview > 0 && s.rowCount >= s.opts.Preview {
		s.finished = true
		result.Meta.Truncated = true
	}

	s.dispatch(result)

	// A Step/Chunk callback may have called handle.Abort() mid-dispatch,
	// which halts the scanner itself (see Handle.Abort) — checked here
	// rather than relying on the pre-dispatch sc.Paused()/Aborted() check
	// above, since that ran before this chunk's callbacks fired.
	if s.halted {
		result.Meta.Aborted = sc.Aborted()
		if result.Meta.Aborted {
			s.finish(result.Meta)
		}
		return
	}

	if !s.finished {
		if s.opts.RequestNext != nil {
			s.opts.RequestNext()
		}
		return
	}

	s.finish(result.Meta)
}

// finish invokes Complete exactly once, carrying meta (with Aborted set
// when the stream ended via Handle.Abort rather than reaching its
// natural or preview-cutoff end) alongside whatever rows/errors were
// accumulated — empty when Step or Chunk delivered rows directly instead.
func (s *Streamer) finish(meta model.Meta) {
	if s.completed {
		return
	}
	s.completed = true
	s.completeResults.Meta = meta
	if s.opts.Callbacks.Complete != nil {
		s.opts.Callbacks.Complete(s.completeResults)
	}
}

// Error reports a fatal transport/config error via the configured Error
// callback, marking the stream halted so no further chunks are processed.
func (s *Streamer) Error(err error) {
	s.halted = true
	if s.opts.Callbacks.Error != nil {
		s.opts.Callbacks.Error(err)
	}
}

func (s *Streamer) dispatch(result model.Result) {
	switch {
	case s.opts.Callbacks.Chunk != nil:
		h := s.handle()
		s.opts.Callbacks.Chunk(result, h)
		if h.Aborted() {
			s.halted = true
		}
	case s.opts.Callbacks.Step != nil:
		h := s.handle()
		for _, row := range result.Rows {
			s.opts.Callbacks.Step(row, nil, h)
			if s.halted || h.Aborted() {
				s.halted = true
				return
			}
		}
		for _, named := range result.Named {
			s.opts.Callbacks.Step(nil, named, h)
			if s.halted || h.Aborted() {
				s.halted = true
				return
			}
		}
	default:
		s.accumulate(result)
	}
}

func (s *Streamer) accumulate(result model.Result) {
	s.completeResults.Rows = append(s.completeResults.Rows, result.Rows...)
	s.completeResults.Named = append(s.completeResults.Named, result.Named...)
	s.completeResults.Errors = append(s.completeResults.Errors, result.Errors...)
	s.completeResults.Meta = result.Meta
}

// skipLines drops the first n lines from chunk, scanning for line
// terminators using newline (falling back to \n when newline is unset,
// i.e. auto-detection never resolved before the first chunk arrived).
func skipLines(chunk string, n int, newline string) string {
	if newline == "" {
		newline = "\n"
	}
	sb := partialLineBufPool.Get().(*strings.Builder)
	sb.Reset()
	defer partialLineBufPool.Put(sb)

	remaining := chunk
	for i := 0; i < n; i++ {
		idx := strings.Index(remaining, newline)
		if idx == -1 {
			return ""
		}
		remaining = remaining[idx+len(newline):]
	}
	return remaining
}
