package streamer

import (
	"strings"
	"testing"

	"github.com/shapestone/shape-dsv/internal/header"
	"github.com/shapestone/shape-dsv/internal/model"
)

func TestStreamerAccumulatesAcrossChunks(t *testing.T) {
	typ := header.New(header.Options{Header: true}, "A,B\n1,2\n3,4\n")
	s := New(typ, Options{})

	full := "A,B\n1,2\n3,4\n"
	// Feed the input split across two chunk boundaries, including one
	// that lands mid-row, to exercise the partial-line carryover path.
	mid := len("A,B\n1,")
	s.ParseChunk(full[:mid], false)
	s.ParseChunk(full[mid:], true)

	if !s.Finished() {
		t.Fatalf("expected Finished after final chunk")
	}
	if len(s.completeResults.Named) != 2 {
		t.Fatalf("rows = %d, want 2: %#v", len(s.completeResults.Named), s.completeResults.Named)
	}
	if s.completeResults.Named[0]["A"] != "1" || s.completeResults.Named[1]["B"] != "4" {
		t.Fatalf("unexpected rows: %#v", s.completeResults.Named)
	}
}

func TestStreamerCompleteCallbackFiresOnce(t *testing.T) {
	typ := header.New(header.Options{}, "a,b\nc,d\n")
	calls := 0
	var got model.Result
	s := New(typ, Options{Callbacks: Callbacks{Complete: func(result model.Result) {
		calls++
		got = result
	}}})

	s.ParseChunk("a,b\n", false)
	s.ParseChunk("c,d\n", true)

	if calls != 1 {
		t.Fatalf("complete called %d times, want 1", calls)
	}
	if len(got.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(got.Rows))
	}
}

func TestStreamerStepCallbackSkipsAccumulation(t *testing.T) {
	typ := header.New(header.Options{}, "a\nb\n")
	var seen []model.Row
	s := New(typ, Options{Callbacks: Callbacks{Step: func(row model.Row, named model.NamedRow, handle *Handle) {
		seen = append(seen, row)
	}}})

	s.ParseChunk("a\nb\n", true)

	if len(seen) != 2 {
		t.Fatalf("step invoked %d times, want 2", len(seen))
	}
	if len(s.completeResults.Rows) != 0 {
		t.Fatalf("expected no accumulation when Step is set, got %#v", s.completeResults.Rows)
	}
}

func TestStreamerPreviewCutoffMarksTruncated(t *testing.T) {
	typ := header.New(header.Options{}, "1\n2\n3\n4\n")
	completed := false
	s := New(typ, Options{Preview: 2, Callbacks: Callbacks{Complete: func(result model.Result) {
		completed = true
	}}})

	s.ParseChunk("1\n2\n3\n4\n", false)

	if !completed {
		t.Fatalf("expected complete to fire at the preview cutoff")
	}
	if !s.Finished() {
		t.Fatalf("expected Finished once preview cutoff reached")
	}
}

func TestStreamerSkipFirstNLines(t *testing.T) {
	typ := header.New(header.Options{}, "skip1\nskip2\na\nb\n")
	s := New(typ, Options{SkipFirstNLines: 2})
	s.ParseChunk("skip1\nskip2\na\nb\n", true)

	if len(s.completeResults.Rows) != 2 {
		t.Fatalf("rows = %d, want 2: %#v", len(s.completeResults.Rows), s.completeResults.Rows)
	}
}

func TestStreamerBeforeFirstChunkRewrites(t *testing.T) {
	typ := header.New(header.Options{}, "a\nb\n")
	s := New(typ, Options{BeforeFirstChunk: func(chunk string) (string, bool) {
		return strings.ToUpper(chunk), true
	}})
	s.ParseChunk("a\nb\n", true)

	if len(s.completeResults.Rows) != 2 || s.completeResults.Rows[0][0] != "A" {
		t.Fatalf("rows = %#v, want upper-cased", s.completeResults.Rows)
	}
}

func TestStreamerRequestNextCalledUntilFinished(t *testing.T) {
	typ := header.New(header.Options{}, "a\nb\n")
	calls := 0
	s := New(typ, Options{RequestNext: func() { calls++ }})

	s.ParseChunk("a\n", false)
	if calls != 1 {
		t.Fatalf("RequestNext called %d times after first non-final chunk, want 1", calls)
	}
	s.ParseChunk("b\n", true)
	if calls != 1 {
		t.Fatalf("RequestNext called %d times after final chunk, want still 1", calls)
	}
}

func TestStreamerAbortFromStepFiresCompleteOnce(t *testing.T) {
	typ := header.New(header.Options{}, "1\n2\n3\n4\n")
	var seen []model.Row
	completes := 0
	var got model.Result
	s := New(typ, Options{Callbacks: Callbacks{
		Step: func(row model.Row, named model.NamedRow, handle *Handle) {
			seen = append(seen, row)
			if len(seen) == 2 {
				handle.Abort()
			}
		},
		Complete: func(result model.Result) {
			completes++
			got = result
		},
	}})

	s.ParseChunk("1\n2\n3\n4\n", false)

	if completes != 1 {
		t.Fatalf("complete called %d times, want exactly 1", completes)
	}
	if !got.Meta.Aborted {
		t.Fatalf("expected Meta.Aborted=true, got %#v", got.Meta)
	}
	if len(seen) != 2 {
		t.Fatalf("step invoked %d times, want 2 (aborted after the 2nd row)", len(seen))
	}

	// Further chunks must not re-invoke Complete.
	s.ParseChunk("", true)
	if completes != 1 {
		t.Fatalf("complete called %d times after abort, want still 1", completes)
	}
}

func TestStreamerSessionIDAssigned(t *testing.T) {
	typ := header.New(header.Options{}, "a\n")
	s := New(typ, Options{})
	if s.SessionID == "" {
		t.Fatalf("expected a non-empty SessionID")
	}
}
