package heuristics

import "testing"

func TestGuessDelimiterComma(t *testing.T) {
	d, err := GuessDelimiter("a,b,c\nd,e,f\ng,h,i\n", nil, true)
	if err != nil {
		t.Fatalf("unexpected warning: %v", err)
	}
	if d != ',' {
		t.Fatalf("delimiter = %q, want ','", d)
	}
}

func TestGuessDelimiterSemicolon(t *testing.T) {
	d, err := GuessDelimiter("a;b;c\nd;e;f\n", nil, true)
	if err != nil {
		t.Fatalf("unexpected warning: %v", err)
	}
	if d != ';' {
		t.Fatalf("delimiter = %q, want ';'", d)
	}
}

func TestGuessDelimiterEmptyInputFallsBack(t *testing.T) {
	d, err := GuessDelimiter("", nil, true)
	if err == nil {
		t.Fatalf("expected UndetectableDelimiter warning")
	}
	if d != ',' {
		t.Fatalf("delimiter = %q, want ',' fallback", d)
	}
	if err.Code != "UndetectableDelimiter" {
		t.Fatalf("code = %s, want UndetectableDelimiter", err.Code)
	}
}

func TestGuessLineEndingLF(t *testing.T) {
	if got := GuessLineEnding("a,b\nc,d\n", '"'); got != "\n" {
		t.Fatalf("got %q, want \\n", got)
	}
}

func TestGuessLineEndingCRLF(t *testing.T) {
	if got := GuessLineEnding("a,b\r\nc,d\r\n", '"'); got != "\r\n" {
		t.Fatalf("got %q, want \\r\\n", got)
	}
}

func TestGuessLineEndingCR(t *testing.T) {
	if got := GuessLineEnding("a,b\rc,d\r", '"'); got != "\r" {
		t.Fatalf("got %q, want \\r", got)
	}
}

func TestGuessLineEndingIgnoresQuotedContent(t *testing.T) {
	// The quoted field contains a lone \r, but the real line endings are \n.
	if got := GuessLineEnding("a,\"em\rbedded\"\nb,c\n", '"'); got != "\n" {
		t.Fatalf("got %q, want \\n", got)
	}
}

func TestStripBOM(t *testing.T) {
	s, had := StripBOM(ByteOrderMark + "a,b")
	if !had || s != "a,b" {
		t.Fatalf("got (%q, %v), want (\"a,b\", true)", s, had)
	}
	s, had = StripBOM("a,b")
	if had || s != "a,b" {
		t.Fatalf("got (%q, %v), want (\"a,b\", false)", s, had)
	}
}
