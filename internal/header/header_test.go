package header

import (
	"testing"

	"github.com/shapestone/shape-dsv/internal/model"
	"github.com/shapestone/shape-dsv/internal/scanner"
)

func newFixedTyper(opts Options) *Typer {
	if opts.Scanner.Comma == 0 {
		opts.Scanner.Comma = ','
	}
	if opts.Scanner.Quote == 0 {
		opts.Scanner.Quote = '"'
	}
	if opts.Scanner.Escape == 0 {
		opts.Scanner.Escape = opts.Scanner.Quote
	}
	t := &Typer{opts: opts, predicateMemo: make(map[string]bool)}
	t.sc = scanner.New(t.opts.Scanner)
	return t
}

func TestHeaderDynamicTyping(t *testing.T) {
	typ := newFixedTyper(Options{
		Header:        true,
		DynamicTyping: &DynamicTyping{All: true},
	})
	res := typ.Parse("A,B,C\r\n1,2,3", 0, false)
	if len(res.Named) != 1 {
		t.Fatalf("rows = %d, want 1", len(res.Named))
	}
	row := res.Named[0]
	if row["A"] != float64(1) || row["B"] != float64(2) || row["C"] != float64(3) {
		t.Fatalf("row = %#v, want numeric 1/2/3", row)
	}
}

func TestHeaderNoDynamicTyping(t *testing.T) {
	typ := newFixedTyper(Options{Header: true})
	res := typ.Parse("A,B\n1,2", 0, false)
	row := res.Named[0]
	if row["A"] != "1" || row["B"] != "2" {
		t.Fatalf("row = %#v, want string values", row)
	}
}

func TestHeaderDuplicateNamesDisambiguated(t *testing.T) {
	typ := newFixedTyper(Options{Header: true})
	res := typ.Parse("A,A,B\n1,2,3", 0, false)
	if len(res.Meta.Fields) != 3 || res.Meta.Fields[0] != "A" || res.Meta.Fields[1] != "A_1" {
		t.Fatalf("fields = %#v", res.Meta.Fields)
	}
	if res.Meta.RenamedHeaders["A_1"] != "A" {
		t.Fatalf("renamed = %#v", res.Meta.RenamedHeaders)
	}
	row := res.Named[0]
	if row["A"] != "1" || row["A_1"] != "2" || row["B"] != "3" {
		t.Fatalf("row = %#v", row)
	}
}

func TestHeaderTooFewFields(t *testing.T) {
	typ := newFixedTyper(Options{Header: true})
	res := typ.Parse("A,B,C\n1,2", 0, false)
	if len(res.Errors) == 0 {
		t.Fatalf("expected a TooFewFields error")
	}
	if res.Errors[0].Code != "TooFewFields" {
		t.Fatalf("code = %s, want TooFewFields", res.Errors[0].Code)
	}
}

func TestHeaderTooFewFieldsOnePerRow(t *testing.T) {
	typ := newFixedTyper(Options{Header: true})
	res := typ.Parse("A,B,C\n1", 0, false)
	if len(res.Errors) != 1 {
		t.Fatalf("errors = %v, want exactly one TooFewFields error for the row", res.Errors)
	}
	if res.Errors[0].Code != "TooFewFields" {
		t.Fatalf("code = %s, want TooFewFields", res.Errors[0].Code)
	}
}

func TestHeaderTooManyFieldsBucketsExtra(t *testing.T) {
	typ := newFixedTyper(Options{Header: true})
	res := typ.Parse("A,B\n1,2,3,4", 0, false)
	row := res.Named[0]
	extra, ok := row[model.ExtraFieldsKey].([]any)
	if !ok || len(extra) != 2 {
		t.Fatalf("extra = %#v", row[model.ExtraFieldsKey])
	}
	found := false
	for _, e := range res.Errors {
		if e.Code == "TooManyFields" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a TooManyFields error, got %#v", res.Errors)
	}
}

func TestHeaderPositionalNoHeader(t *testing.T) {
	typ := newFixedTyper(Options{DynamicTyping: &DynamicTyping{All: true}})
	res := typ.Parse("1,2,true", 0, false)
	if len(res.Rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(res.Rows))
	}
	row := res.Rows[0]
	if row[0] != float64(1) || row[1] != float64(2) || row[2] != true {
		t.Fatalf("row = %#v", row)
	}
}

func TestHeaderNullOnEmptyStringWhenTyped(t *testing.T) {
	typ := newFixedTyper(Options{DynamicTyping: &DynamicTyping{All: true}})
	res := typ.Parse("1,,3", 0, false)
	row := res.Rows[0]
	if row[1] != nil {
		t.Fatalf("row[1] = %#v, want nil", row[1])
	}
}

func TestHeaderPerFieldDynamicTypingByName(t *testing.T) {
	typ := newFixedTyper(Options{
		Header:        true,
		DynamicTyping: &DynamicTyping{ByName: map[string]bool{"A": true}},
	})
	res := typ.Parse("A,B\n1,2", 0, false)
	row := res.Named[0]
	if row["A"] != float64(1) {
		t.Fatalf("A = %#v, want float64(1)", row["A"])
	}
	if row["B"] != "2" {
		t.Fatalf("B = %#v, want string \"2\"", row["B"])
	}
}

func TestHeaderPredicateMemoized(t *testing.T) {
	calls := 0
	typ := newFixedTyper(Options{
		Header: true,
		DynamicTyping: &DynamicTyping{Predicate: func(value string, field any) bool {
			calls++
			return field == "A"
		}},
	})
	typ.Parse("A,B\n1,2\n3,4\n5,6", 0, false)
	if calls != 2 {
		t.Fatalf("predicate invoked %d times, want 2 (once per field key, memoized across rows)", calls)
	}
}

func TestHeaderSkipEmptyLinesTrue(t *testing.T) {
	typ := newFixedTyper(Options{Header: true, SkipEmptyLines: SkipEmptyLinesTrue})
	res := typ.Parse("A,B\n1,2\n\n3,4", 0, false)
	if len(res.Named) != 2 {
		t.Fatalf("rows = %d, want 2", len(res.Named))
	}
}

func TestHeaderSkipEmptyLinesGreedy(t *testing.T) {
	typ := newFixedTyper(Options{Header: true, SkipEmptyLines: SkipEmptyLinesGreedy})
	res := typ.Parse("A,B\n1,2\n , \n3,4", 0, false)
	if len(res.Named) != 2 {
		t.Fatalf("rows = %d, want 2", len(res.Named))
	}
}

func TestHeaderTransformAppliesBeforeTyping(t *testing.T) {
	typ := newFixedTyper(Options{
		Header:        true,
		DynamicTyping: &DynamicTyping{All: true},
		Transform: func(value string, fieldKey any) string {
			return value + "0"
		},
	})
	res := typ.Parse("A\n1", 0, false)
	if res.Named[0]["A"] != float64(10) {
		t.Fatalf("A = %#v, want float64(10)", res.Named[0]["A"])
	}
}

func TestHeaderAutoDetectDelimiter(t *testing.T) {
	typ := New(Options{Header: true}, "A;B;C\n1;2;3\n4;5;6\n")
	res := typ.Parse("A;B;C\n1;2;3\n4;5;6\n", 0, false)
	if res.Meta.Delimiter != ";" {
		t.Fatalf("delimiter = %q, want ;", res.Meta.Delimiter)
	}
	if len(res.Named) != 2 {
		t.Fatalf("rows = %d, want 2", len(res.Named))
	}
}
