package scanner

import (
	"reflect"
	"testing"
)

func scan(t *testing.T, text string, opts Options) Result {
	t.Helper()
	s := New(opts)
	return s.Scan(text, 0, false)
}

func TestScanBasic(t *testing.T) {
	res := scan(t, "a,b,c\nd,e,f", DefaultOptions())
	want := [][]string{{"a", "b", "c"}, {"d", "e", "f"}}
	if !reflect.DeepEqual(res.Rows, want) {
		t.Fatalf("rows = %#v, want %#v", res.Rows, want)
	}
	if len(res.Errors) != 0 {
		t.Fatalf("errors = %v, want none", res.Errors)
	}
	if res.Cursor != len(text11) {
		t.Fatalf("cursor = %d, want %d", res.Cursor, len(text11))
	}
}

const text11 = "a,b,c\nd,e,f"

func TestScanQuotedComma(t *testing.T) {
	res := scan(t, `A,"B,B",C`, DefaultOptions())
	want := [][]string{{"A", "B,B", "C"}}
	if !reflect.DeepEqual(res.Rows, want) {
		t.Fatalf("rows = %#v, want %#v", res.Rows, want)
	}
}

func TestScanEscapedQuote(t *testing.T) {
	res := scan(t, `A,"B""B""B",C`, DefaultOptions())
	want := [][]string{{"A", `B"B"B`, "C"}}
	if !reflect.DeepEqual(res.Rows, want) {
		t.Fatalf("rows = %#v, want %#v", res.Rows, want)
	}
}

func TestScanMissingQuotes(t *testing.T) {
	res := scan(t, "a,\"b,c\nd,e,f", DefaultOptions())
	want := [][]string{{"a", "b,c\nd,e,f"}}
	if !reflect.DeepEqual(res.Rows, want) {
		t.Fatalf("rows = %#v, want %#v", res.Rows, want)
	}
	if len(res.Errors) != 1 || res.Errors[0].Code != "MissingQuotes" {
		t.Fatalf("errors = %v, want one MissingQuotes", res.Errors)
	}
	if res.Errors[0].Index != 3 {
		t.Fatalf("index = %d, want 3 (start of quoted field content)", res.Errors[0].Index)
	}
}

func TestScanEmptyInput(t *testing.T) {
	res := scan(t, "", DefaultOptions())
	if len(res.Rows) != 0 {
		t.Fatalf("rows = %v, want none", res.Rows)
	}
}

func TestScanCRLF(t *testing.T) {
	res := scan(t, "a,b\r\nc,d\r\n", DefaultOptions())
	want := [][]string{{"a", "b"}, {"c", "d"}}
	if !reflect.DeepEqual(res.Rows, want) {
		t.Fatalf("rows = %#v, want %#v", res.Rows, want)
	}
}

func TestScanCustomDelimiter(t *testing.T) {
	opts := DefaultOptions()
	opts.Comma = ';'
	res := scan(t, "a;b;c", opts)
	want := [][]string{{"a", "b", "c"}}
	if !reflect.DeepEqual(res.Rows, want) {
		t.Fatalf("rows = %#v, want %#v", res.Rows, want)
	}
}

func TestScanComments(t *testing.T) {
	opts := DefaultOptions()
	opts.Comment = '#'
	res := scan(t, "# a comment\na,b\n# another\nc,d", opts)
	want := [][]string{{"a", "b"}, {"c", "d"}}
	if !reflect.DeepEqual(res.Rows, want) {
		t.Fatalf("rows = %#v, want %#v", res.Rows, want)
	}
}

func TestScanCommentCollidesWithDelimiter(t *testing.T) {
	opts := DefaultOptions()
	opts.Comment = ','
	res := scan(t, ",a,b", opts)
	// Comment silently disabled: this is parsed as a normal row.
	want := [][]string{{"", "a", "b"}}
	if !reflect.DeepEqual(res.Rows, want) {
		t.Fatalf("rows = %#v, want %#v", res.Rows, want)
	}
}

func TestScanPreview(t *testing.T) {
	opts := DefaultOptions()
	opts.Preview = 2
	res := scan(t, "a\nb\nc\nd\n", opts)
	if len(res.Rows) != 2 {
		t.Fatalf("rows = %v, want 2", res.Rows)
	}
	if !res.Truncated {
		t.Fatalf("want Truncated=true")
	}
}

func TestScanIgnoreLastRow(t *testing.T) {
	s := New(DefaultOptions())
	res := s.Scan("a,b\nc,d\ne,f", 0, true)
	want := [][]string{{"a", "b"}, {"c", "d"}}
	if !reflect.DeepEqual(res.Rows, want) {
		t.Fatalf("rows = %#v, want %#v", res.Rows, want)
	}
	if res.Cursor != len("a,b\nc,d\n") {
		t.Fatalf("cursor = %d, want %d", res.Cursor, len("a,b\nc,d\n"))
	}
}

func TestScanAbortStopsAtBoundary(t *testing.T) {
	s := New(DefaultOptions())
	s.Abort()
	res := s.Scan("a,b\nc,d\n", 0, false)
	if len(res.Rows) != 0 {
		t.Fatalf("rows = %v, want none after immediate abort", res.Rows)
	}
}

func TestScanFastModeMatchesStateMachine(t *testing.T) {
	text := "a,b,c\nd,e,f\ng,h,i\n"
	fast := New(DefaultOptions()).Scan(text, 0, false)
	opt := DefaultOptions()
	disable := false
	opt.FastMode = &disable
	slow := New(opt).Scan(text, 0, false)
	if !reflect.DeepEqual(fast.Rows, slow.Rows) {
		t.Fatalf("fast = %#v, slow = %#v", fast.Rows, slow.Rows)
	}
}

func TestScanChunkingIsTransparent(t *testing.T) {
	text := "name,age\nAlice,30\nBob,25\n"
	whole := New(DefaultOptions()).Scan(text, 0, false)

	for chunkSize := 1; chunkSize <= len(text); chunkSize++ {
		s := New(DefaultOptions())
		var rows [][]string
		var partial string
		base := 0
		for i := 0; i < len(text); i += chunkSize {
			end := i + chunkSize
			if end > len(text) {
				end = len(text)
			}
			agg := partial + text[i:end]
			res := s.Scan(agg, base, true)
			rows = append(rows, res.Rows...)
			partial = agg[res.Cursor-base:]
			base = res.Cursor
		}
		if partial != "" {
			res := s.Scan(partial, base, false)
			rows = append(rows, res.Rows...)
		}
		if !reflect.DeepEqual(rows, whole.Rows) {
			t.Fatalf("chunkSize=%d: rows = %#v, want %#v", chunkSize, rows, whole.Rows)
		}
	}
}
