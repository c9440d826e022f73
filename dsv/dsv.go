// Package dsv is the public facade (F): Parse/Unparse over the
// tokenizer/parser, header/typing, heuristics, chunk-streaming, and
// input-adapter layers underneath internal/.
//
// Grounded on the teacher's pkg/csv/csv.go and pkg/csv/options.go: a
// handful of top-level functions (Parse/ParseReader/Validate plus the
// *WithOptions variants) backed by a Default*Options()/Validate() pair,
// doc comments in the same register (a short behavior paragraph, a
// worked example, an explicit note on what's returned).
package dsv

import (
	"context"
	"io"
	"net/http"
	"os"

	"github.com/shapestone/shape-dsv/internal/adapter"
	"github.com/shapestone/shape-dsv/internal/errs"
	"github.com/shapestone/shape-dsv/internal/header"
	"github.com/shapestone/shape-dsv/internal/heuristics"
	"github.com/shapestone/shape-dsv/internal/model"
	"github.com/shapestone/shape-dsv/internal/scanner"
	"github.com/shapestone/shape-dsv/internal/streamer"
)

// Row, NamedRow, ParseResult, and Meta re-export the shared value types so
// callers never need to import internal/model directly.
type (
	Row         = model.Row
	NamedRow    = model.NamedRow
	ParseResult = model.Result
	Meta        = model.Meta
)

// DynamicTyping and SkipEmptyLines re-export internal/header's types.
type (
	DynamicTyping  = header.DynamicTyping
	SkipEmptyLines = header.SkipEmptyLines
)

const (
	SkipEmptyLinesNone   = header.SkipEmptyLinesNone
	SkipEmptyLinesTrue   = header.SkipEmptyLinesTrue
	SkipEmptyLinesGreedy = header.SkipEmptyLinesGreedy
)

// Callbacks re-exports internal/streamer's callback bundle (step, chunk,
// complete, error) unchanged.
type Callbacks = streamer.Callbacks

// Handle re-exports the pause/resume/abort handle passed into Step/Chunk
// callbacks.
type Handle = streamer.Handle

// duplexSentinel is the value callers pass as Parse's input to request
// pipe-mode: "a sentinel value -> duplex adapter (pipe-mode) and return
// the duplex gateway" (spec §4.7 step 3a). There is exactly one value of
// this type, Duplex.
type duplexSentinel struct{}

// Duplex requests pipe-mode: Parse returns a *ParserHandle whose Duplex
// field is the gateway the caller writes bytes into and eventually drains
// rows from, instead of running the adapter to completion synchronously.
var Duplex = duplexSentinel{}

// PushSource is the Go rendering of the spec's "push-stream-like object":
// a source that delivers data/end/error events rather than being pulled
// from. Pass one as Parse's input to select the push adapter.
type PushSource struct {
	Data chan []byte
	End  chan struct{}
	Err  chan error
}

// Config configures Parse, mirroring spec.md §6's "Configuration options
// accepted by parse" table.
type Config struct {
	// Delimiter is the field delimiter; 0 requests auto-detection.
	Delimiter rune
	// Newline is one of "\r", "\n", "\r\n", or "" for auto-recognition.
	Newline string
	QuoteChar  rune
	EscapeChar rune

	Header          bool
	TransformHeader func(name string, index int) string
	DynamicTyping   *DynamicTyping
	Transform       func(value string, fieldKey any) string

	// Comment is the line-comment prefix rune; 0 disables comment
	// handling. Spec's "comments: true" maps to the caller passing '#'.
	Comment rune

	SkipEmptyLines  SkipEmptyLines
	SkipFirstNLines int
	Preview         int
	FastMode        *bool
	ChunkSize       int
	DelimitersToGuess []rune

	Callbacks        Callbacks
	BeforeFirstChunk func(chunk string) (rewritten string, ok bool)

	Worker bool

	Download               bool
	DownloadRequestHeaders map[string]string
	DownloadRequestBody    io.Reader
	WithCredentials        bool
	Client                 *http.Client
}

// ParserHandle is returned by Parse. For every input shape except Duplex
// it wraps the streamer that drove the parse, which has already run to
// its end (or halted) by the time Parse returns. For Duplex input it wraps the pipe gateway
// instead, and the caller is responsible for writing bytes and invoking
// Stream.
type ParserHandle struct {
	Streamer *streamer.Streamer
	DuplexGW *adapter.DuplexAdapter
}

// Pause, Resume, and Abort are no-ops when neither DuplexGW nor Streamer
// is set — true only for the handle parseViaWorker returns, since the
// worker goroutine owns its own Streamer and this package doesn't thread
// pause/resume/abort through the worker channel (spec's worker messages
// carry only completed results, not live control signals).
func (h *ParserHandle) Pause() {
	switch {
	case h.DuplexGW != nil:
		h.DuplexGW.Pause()
	case h.Streamer != nil:
		h.Streamer.Pause()
	}
}

func (h *ParserHandle) Resume() {
	switch {
	case h.DuplexGW != nil:
		h.DuplexGW.Resume()
	case h.Streamer != nil:
		h.Streamer.Resume()
	}
}

func (h *ParserHandle) Abort() {
	switch {
	case h.DuplexGW != nil:
		h.DuplexGW.Abort()
	case h.Streamer != nil:
		h.Streamer.Abort()
	}
}

// SessionID reports the correlation id assigned to this parse call, or
// "" for a duplex or worker handle that has none to report.
func (h *ParserHandle) SessionID() string {
	if h.Streamer != nil {
		return h.Streamer.SessionID
	}
	return ""
}

func buildHeaderOptions(cfg Config) header.Options {
	return header.Options{
		Scanner: scanner.Options{
			Comma:    cfg.Delimiter,
			Quote:    cfg.QuoteChar,
			Escape:   cfg.EscapeChar,
			Newline:  cfg.Newline,
			Comment:  cfg.Comment,
			Preview:  cfg.Preview,
			FastMode: cfg.FastMode,
		},
		DelimitersToGuess: cfg.DelimitersToGuess,
		Header:            cfg.Header,
		TransformHeader:   cfg.TransformHeader,
		DynamicTyping:     cfg.DynamicTyping,
		Transform:         cfg.Transform,
		SkipEmptyLines:    cfg.SkipEmptyLines,
	}
}

func buildStreamerOptions(cfg Config, requestNext func()) streamer.Options {
	return streamer.Options{
		SkipFirstNLines:  cfg.SkipFirstNLines,
		BeforeFirstChunk: cfg.BeforeFirstChunk,
		Preview:          cfg.Preview,
		Callbacks:        cfg.Callbacks,
		RequestNext:      requestNext,
	}
}

// Parse parses input (whose shape selects the adapter — see buildAdapter)
// according to cfg. For every input shape except Duplex, Parse blocks
// until the adapter finishes and returns the accumulated result (nil if
// cfg.Callbacks.Chunk or cfg.Callbacks.Step was set, since rows were
// already delivered to them instead of being accumulated). For Duplex
// input, Parse returns immediately with a handle whose DuplexGW the
// caller drives directly.
func Parse(ctx context.Context, input any, cfg Config) (*ParseResult, *ParserHandle, error) {
	if cfg.Worker {
		return parseViaWorker(ctx, input, cfg)
	}

	if _, ok := input.(duplexSentinel); ok {
		typ := header.New(buildHeaderOptions(cfg), "")
		gw := adapter.NewDuplexAdapter(typ, buildStreamerOptions(cfg, nil))
		return nil, &ParserHandle{DuplexGW: gw}, nil
	}

	var captured *ParseResult
	sopts := buildStreamerOptions(cfg, nil)
	userComplete := sopts.Callbacks.Complete
	sopts.Callbacks.Complete = func(r model.Result) {
		if cfg.Callbacks.Chunk == nil && cfg.Callbacks.Step == nil {
			cp := r
			captured = &cp
		}
		if userComplete != nil {
			userComplete(r)
		}
	}

	st, a, err := buildAdapter(input, cfg, sopts)
	if err != nil {
		return nil, nil, err
	}

	if err := a.Stream(ctx); err != nil {
		return captured, &ParserHandle{Streamer: st}, err
	}
	return captured, &ParserHandle{Streamer: st}, nil
}

// buildAdapter selects a concrete adapter by the shape of input (spec
// §4.7 step 3) and builds the one Streamer that both it and the caller
// share: the Streamer must be constructed after the Typer (which may
// need a sample of the input for delimiter guessing) but before the
// concrete adapter (which needs the Streamer), so this is the one place
// that ordering happens.
func buildAdapter(input any, cfg Config, sopts streamer.Options) (*streamer.Streamer, adapter.Adapter, error) {
	newStreamer := func(sample string) *streamer.Streamer {
		return streamer.New(header.New(buildHeaderOptions(cfg), sample), sopts)
	}

	switch v := input.(type) {
	case string:
		text, _ := heuristics.StripBOM(v)
		if cfg.Download {
			st := newStreamer("")
			return st, &adapter.NetworkAdapter{
				URL:                    v,
				ChunkSize:              cfg.ChunkSize,
				DownloadRequestHeaders: cfg.DownloadRequestHeaders,
				DownloadRequestBody:    cfg.DownloadRequestBody,
				WithCredentials:        cfg.WithCredentials,
				Client:                 cfg.Client,
				Streamer:               st,
			}, nil
		}
		st := newStreamer(sampleOf(text, cfg.ChunkSize))
		return st, &adapter.StringAdapter{Text: text, ChunkSize: cfg.ChunkSize, Streamer: st}, nil

	case *os.File:
		st := newStreamer("")
		return st, &adapter.FileAdapter{Path: v.Name(), ChunkSize: cfg.ChunkSize, Streamer: st}, nil

	case PushSource:
		st := newStreamer("")
		return st, &adapter.PushAdapter{Data: v.Data, End: v.End, Err: v.Err, Streamer: st}, nil

	case io.Reader:
		data, err := io.ReadAll(v)
		if err != nil {
			return nil, nil, &errs.TransportError{Kind: errs.KindFile, Code: errs.CodeFileReadError, Message: "reading input reader", Err: err}
		}
		st := newStreamer(sampleOf(string(data), cfg.ChunkSize))
		return st, &adapter.StringAdapter{Text: string(data), ChunkSize: cfg.ChunkSize, Streamer: st}, nil

	default:
		return nil, nil, &errs.ConfigError{Field: "input", Message: "unsupported parse input type"}
	}
}

func sampleOf(s string, chunkSize int) string {
	if chunkSize <= 0 || chunkSize > len(s) {
		return s
	}
	return s[:chunkSize]
}
