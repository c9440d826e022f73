// Package scanner implements the character-level tokenizer/parser state
// machine at the bottom of the parse pipeline. It converts a text window
// into rows of raw string fields plus a cursor and a list of row-scoped
// ParseErrors.
//
// The state machine follows RFC-4180-ish CSV with configurable delimiter,
// quote, and escape characters: FieldStart, InUnquotedField, InQuotedField,
// AfterClosingQuote, RowEnd. It is deliberately forgiving — malformed input
// produces a ParseError and the scanner keeps making progress rather than
// aborting, mirroring the teacher's chunked byte-scanning loops adapted to
// run as one coherent state machine instead of a separate tokenizer and
// recursive-descent parser.
package scanner

import (
	"strings"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"github.com/shapestone/shape-dsv/internal/errs"
)

// state is one node of the transition table in spec §4.1.
type state int

const (
	stateFieldStart state = iota
	stateInUnquotedField
	stateInQuotedField
	stateAfterClosingQuote
)

// Options configures one Scanner. Comma/Quote/Escape are single runes;
// Newline, when non-empty, pins the line terminator to exactly that
// sequence (otherwise \r\n, \r, and \n are all recognized). Comment, when
// non-zero, marks lines beginning with that rune (at column 0) as
// comments to be skipped; it is silently disabled if it collides with
// Comma.
type Options struct {
	Comma    rune
	Quote    rune
	Escape   rune
	Newline  string
	Comment  rune
	Preview  int // 0 = unlimited
	FastMode *bool
}

// DefaultOptions returns the RFC-4180 defaults.
func DefaultOptions() Options {
	return Options{Comma: ',', Quote: '"', Escape: '"'}
}

// Result is the outcome of one Scan call.
type Result struct {
	Rows   [][]string
	Errors []*errs.ParseError
	// Cursor is baseIndex + the offset just past the last fully consumed
	// row. If IgnoreLastRow was set and a trailing partial line exists, it
	// is excluded from both Rows and Cursor.
	Cursor int
	// Truncated is true if Preview cut parsing off before EOF.
	Truncated bool
}

// fieldBufPool reuses the []byte scratch buffer used to assemble quoted
// field content across escaped-quote boundaries, grounded on the teacher's
// sync.Pool discipline in internal/fastparser/pool.go.
var fieldBufPool = sync.Pool{
	New: func() any {
		b := make([]byte, 0, 64)
		return &b
	},
}

func getFieldBuf() []byte {
	p := fieldBufPool.Get().(*[]byte)
	return (*p)[:0]
}

func putFieldBuf(b []byte) {
	if cap(b) > 64*1024 {
		return
	}
	b = b[:0]
	fieldBufPool.Put(&b)
}

// Scanner runs the state machine over successive text windows. A Scanner
// is not safe for concurrent use by multiple goroutines, matching the
// single-owner StreamerState rule in spec §3.
type Scanner struct {
	opts    Options
	paused  atomic.Bool
	aborted atomic.Bool
}

// New creates a Scanner with the given options.
func New(opts Options) *Scanner {
	return &Scanner{opts: opts}
}

// Pause requests that Scan return at the next row boundary.
func (s *Scanner) Pause() { s.paused.Store(true) }

// Resume clears a prior Pause.
func (s *Scanner) Resume() { s.paused.Store(false) }

// Paused reports whether Pause is currently in effect.
func (s *Scanner) Paused() bool { return s.paused.Load() }

// Abort requests that Scan stop at the next row boundary and not resume.
func (s *Scanner) Abort() { s.aborted.Store(true) }

// Aborted reports whether Abort has been called.
func (s *Scanner) Aborted() bool { return s.aborted.Load() }

// usesFastMode decides whether the delimiter-split fast path may be used:
// explicit opt-out always wins; otherwise fast mode activates only when no
// quote rune appears anywhere in the window, since the fast path cannot
// process quoted fields.
func (s *Scanner) usesFastMode(text string) bool {
	if s.opts.FastMode != nil {
		if !*s.opts.FastMode {
			return false
		}
	}
	return !strings.ContainsRune(text, s.opts.Quote)
}

// Scan runs the state machine over text, a window whose absolute start
// offset in the overall stream is baseIndex. When ignoreLastRow is true,
// the final line may be incomplete and is deferred: it is excluded from
// Rows, and Cursor points just past the last fully-consumed row so the
// caller can prepend the remainder to the next window.
func (s *Scanner) Scan(text string, baseIndex int, ignoreLastRow bool) Result {
	if s.usesFastMode(text) {
		return s.scanFast(text, baseIndex, ignoreLastRow)
	}
	return s.scanStateMachine(text, baseIndex, ignoreLastRow)
}

// scanStateMachine is the general path, used whenever the window may
// contain quoted fields.
func (s *Scanner) scanStateMachine(text string, baseIndex int, ignoreLastRow bool) Result {
	var res Result
	st := stateFieldStart
	var fields []string
	buf := getFieldBuf()
	defer putFieldBuf(buf)

	lastCompleteEnd := 0 // byte offset (within text) just past the last full row
	rowStart := 0
	quoteContentStart := 0 // byte offset where the current quoted field's content begins
	atLineStart := true
	invalidQuotesReported := false

	emitField := func() {
		fields = append(fields, string(buf))
		buf = buf[:0]
	}
	emitRow := func(endOffset int) {
		emitField()
		res.Rows = append(res.Rows, fields)
		fields = nil
		lastCompleteEnd = endOffset
		st = stateFieldStart
		atLineStart = true
		if s.opts.Preview > 0 && len(res.Rows) >= s.opts.Preview {
			res.Truncated = true
		}
	}

	commentActive := s.opts.Comment != 0 && s.opts.Comment != s.opts.Comma
	i := 0
	n := len(text)
	for i < n {
		if s.aborted.Load() || s.paused.Load() {
			break
		}
		if res.Truncated {
			break
		}

		if atLineStart && commentActive && st == stateFieldStart && runeAt(text, i) == s.opts.Comment {
			// Skip to next line break, discarding the line entirely.
			j := i
			for j < n && !isLineBreakStart(text, j, s.opts.Newline) {
				_, size := utf8.DecodeRuneInString(text[j:])
				j += size
			}
			if j < n {
				j += lineBreakLen(text, j, s.opts.Newline)
			}
			lastCompleteEnd = j
			rowStart = j
			i = j
			continue
		}
		atLineStart = false

		r, size := utf8.DecodeRuneInString(text[i:])

		switch st {
		case stateFieldStart:
			if r == s.opts.Quote {
				st = stateInQuotedField
				i += size
				quoteContentStart = i
				continue
			}
			if isLineBreakStart(text, i, s.opts.Newline) {
				lb := lineBreakLen(text, i, s.opts.Newline)
				emitRow(i + lb)
				rowStart = i + lb
				i += lb
				continue
			}
			if r == s.opts.Comma {
				emitField()
				i += size
				continue
			}
			st = stateInUnquotedField
			buf = append(buf, text[i:i+size]...)
			i += size

		case stateInUnquotedField:
			if isLineBreakStart(text, i, s.opts.Newline) {
				lb := lineBreakLen(text, i, s.opts.Newline)
				emitRow(i + lb)
				rowStart = i + lb
				i += lb
				continue
			}
			if r == s.opts.Comma {
				emitField()
				st = stateFieldStart
				i += size
				continue
			}
			buf = append(buf, text[i:i+size]...)
			i += size

		case stateInQuotedField:
			if r == s.opts.Escape && s.opts.Escape == s.opts.Quote {
				// Escape==Quote: "" inside a quoted field means a literal
				// quote only when followed by another quote; otherwise
				// this quote closes the field (handled by falling through
				// to the close check below).
				if i+size < n && runeAt(text, i+size) == s.opts.Quote {
					buf = append(buf, string(s.opts.Quote)...)
					i += size + runeSize(text, i+size)
					continue
				}
				st = stateAfterClosingQuote
				i += size
				continue
			}
			if r == s.opts.Escape && s.opts.Escape != s.opts.Quote {
				if i+size < n && runeAt(text, i+size) == s.opts.Quote {
					buf = append(buf, string(s.opts.Quote)...)
					i += size + runeSize(text, i+size)
					continue
				}
				buf = append(buf, text[i:i+size]...)
				i += size
				continue
			}
			if r == s.opts.Quote {
				st = stateAfterClosingQuote
				i += size
				continue
			}
			buf = append(buf, text[i:i+size]...)
			i += size

		case stateAfterClosingQuote:
			if r == s.opts.Comma {
				emitField()
				st = stateFieldStart
				i += size
				continue
			}
			if isLineBreakStart(text, i, s.opts.Newline) {
				lb := lineBreakLen(text, i, s.opts.Newline)
				emitRow(i + lb)
				rowStart = i + lb
				i += lb
				continue
			}
			if r == ' ' || r == '\t' {
				i += size
				continue
			}
			if !invalidQuotesReported {
				res.Errors = append(res.Errors, errs.New(errs.KindQuotes, errs.CodeInvalidQuotes,
					len(res.Rows), baseIndex+i, "unexpected character after closing quote"))
				invalidQuotesReported = true
			}
			// Permissive recovery: treat remaining content as part of the
			// field, re-entering the quoted-field state.
			st = stateInQuotedField
			buf = append(buf, text[i:i+size]...)
			i += size
		}
	}

	if s.aborted.Load() || s.paused.Load() || res.Truncated {
		res.Cursor = baseIndex + lastCompleteEnd
		return res
	}

	// EOF reached.
	switch st {
	case stateInQuotedField:
		res.Errors = append(res.Errors, errs.New(errs.KindQuotes, errs.CodeMissingQuotes,
			len(res.Rows), baseIndex+quoteContentStart, "quoted field not closed before end of input"))
		if ignoreLastRow {
			res.Cursor = baseIndex + lastCompleteEnd
			return res
		}
		// Best effort: flush what we have as a final row.
		emitRow(n)
	case stateFieldStart, stateInUnquotedField, stateAfterClosingQuote:
		if rowStart == n && len(fields) == 0 {
			// Clean EOF right at a row boundary, nothing pending.
			break
		}
		if ignoreLastRow {
			res.Cursor = baseIndex + lastCompleteEnd
			return res
		}
		emitRow(n)
	}

	res.Cursor = baseIndex + lastCompleteEnd
	return res
}

// scanFast is the specialised path used when the window provably contains
// no quote characters: splitting on newline then delimiter is equivalent
// to the general state machine and considerably cheaper.
func (s *Scanner) scanFast(text string, baseIndex int, ignoreLastRow bool) Result {
	var res Result
	n := len(text)
	rowStart := 0
	lastCompleteEnd := 0
	i := 0
	commentActive := s.opts.Comment != 0 && s.opts.Comment != s.opts.Comma

	flushLine := func(line string, lineEnd int) {
		if commentActive && len(line) > 0 && runeAt(line, 0) == s.opts.Comment {
			lastCompleteEnd = lineEnd
			return
		}
		fields := strings.Split(line, string(s.opts.Comma))
		res.Rows = append(res.Rows, fields)
		lastCompleteEnd = lineEnd
		if s.opts.Preview > 0 && len(res.Rows) >= s.opts.Preview {
			res.Truncated = true
		}
	}

	for i < n {
		if s.aborted.Load() || s.paused.Load() || res.Truncated {
			break
		}
		if isLineBreakStart(text, i, s.opts.Newline) {
			lb := lineBreakLen(text, i, s.opts.Newline)
			flushLine(text[rowStart:i], i+lb)
			rowStart = i + lb
			i += lb
			continue
		}
		_, size := utf8.DecodeRuneInString(text[i:])
		i += size
	}

	if s.aborted.Load() || s.paused.Load() || res.Truncated {
		res.Cursor = baseIndex + lastCompleteEnd
		return res
	}

	if rowStart < n {
		if ignoreLastRow {
			res.Cursor = baseIndex + lastCompleteEnd
			return res
		}
		flushLine(text[rowStart:n], n)
	}

	res.Cursor = baseIndex + lastCompleteEnd
	return res
}

func runeAt(s string, i int) rune {
	r, _ := utf8.DecodeRuneInString(s[i:])
	return r
}

func runeSize(s string, i int) int {
	_, size := utf8.DecodeRuneInString(s[i:])
	return size
}

// isLineBreakStart reports whether a line break begins at byte offset i.
// When newline is non-empty it is the only recognized sequence; otherwise
// \r\n, \r, and \n are all recognized.
func isLineBreakStart(s string, i int, newline string) bool {
	if newline != "" {
		return strings.HasPrefix(s[i:], newline)
	}
	c := s[i]
	return c == '\r' || c == '\n'
}

// lineBreakLen returns the byte length of the line break starting at i (0
// if none). Assumes isLineBreakStart(s, i, newline) is true.
func lineBreakLen(s string, i int, newline string) int {
	if newline != "" {
		return len(newline)
	}
	if s[i] == '\r' {
		if i+1 < len(s) && s[i+1] == '\n' {
			return 2
		}
		return 1
	}
	return 1
}
