// Package header implements the HeaderTyper (H): it wraps a scanner.Scanner,
// invokes delimiter/line-ending guessing in New (against the sample it is
// given) when needed, then applies header extraction, duplicate-header disambiguation, field
// mismatch detection, per-field transforms, and the five-step dynamic
// typing ladder from spec §4.2.
//
// Numeric/boolean/timestamp coercion is grounded on the teacher's
// converters in pkg/csv/converters.go (IntConverter/FloatConverter's
// boundary handling), extended with the spec's ±2^53 safe-integer ceiling
// and a precompiled ISO-8601 regexp for timestamps.
package header

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shapestone/shape-dsv/internal/errs"
	"github.com/shapestone/shape-dsv/internal/heuristics"
	"github.com/shapestone/shape-dsv/internal/model"
	"github.com/shapestone/shape-dsv/internal/scanner"
)

// SkipEmptyLines mirrors Config.SkipEmptyLines's three states.
type SkipEmptyLines int

const (
	SkipEmptyLinesNone SkipEmptyLines = iota
	SkipEmptyLinesTrue
	SkipEmptyLinesGreedy
)

// DynamicTyping is the per-field coercion policy. Exactly one of the
// fields should be set; nil/zero means "disabled everywhere".
type DynamicTyping struct {
	All       bool
	ByName    map[string]bool
	ByIndex   map[int]bool
	Predicate func(value string, field any) bool
}

func (d *DynamicTyping) enabledFor(name string, index int) bool {
	if d == nil {
		return false
	}
	if d.Predicate != nil {
		return true // evaluated lazily per-value by caller, memoised there
	}
	if d.ByName != nil {
		if v, ok := d.ByName[name]; ok {
			return v
		}
		return false
	}
	if d.ByIndex != nil {
		if v, ok := d.ByIndex[index]; ok {
			return v
		}
		return false
	}
	return d.All
}

// Options configures a Typer.
type Options struct {
	Scanner scanner.Options

	// DelimitersToGuess is used only when Scanner.Comma == 0 (unset).
	DelimitersToGuess []rune

	Header          bool
	TransformHeader func(name string, index int) string
	DynamicTyping   *DynamicTyping
	Transform       func(value string, fieldKey any) string
	SkipEmptyLines  SkipEmptyLines
}

// Typer drives one Scanner across the lifetime of one parse call,
// remembering guessed delimiter/newline, captured headers, and per-field
// predicate memoisation.
type Typer struct {
	opts Options
	sc   *scanner.Scanner

	guessedDelimiter  bool
	delimiterWarning  *errs.ParseError
	reportedLinebreak string

	headersCaptured bool
	headers         []string
	renamed         map[string]string

	predicateMemo map[string]bool
	rowsSeen      int
}

// DelimiterUnset is the sentinel the caller uses in Options.Scanner.Comma
// to request auto-detection.
const DelimiterUnset = rune(0)

// New creates a Typer, performing delimiter/line-ending guessing against
// sample (normally the first chunk the caller has in hand) when the
// corresponding Options fields are left unset.
func New(opts Options, sample string) *Typer {
	guessedDelim := false
	var warn *errs.ParseError
	if opts.Scanner.Comma == DelimiterUnset {
		d, w := heuristics.GuessDelimiter(sample, opts.DelimitersToGuess, opts.SkipEmptyLines != SkipEmptyLinesNone)
		opts.Scanner.Comma = d
		warn = w
		guessedDelim = true
	}
	if opts.Scanner.Quote == 0 {
		opts.Scanner.Quote = '"'
	}
	if opts.Scanner.Escape == 0 {
		opts.Scanner.Escape = opts.Scanner.Quote
	}
	// Options.Scanner.Newline stays "" to mean "auto-recognize any of
	// \r\n/\r/\n" during scanning itself; the guess here is only used to
	// populate Meta.Linebreak for reporting.
	reportedLinebreak := opts.Scanner.Newline
	if reportedLinebreak == "" {
		reportedLinebreak = heuristics.GuessLineEnding(sample, opts.Scanner.Quote)
	}

	t := newTyper(opts)
	t.guessedDelimiter = guessedDelim
	t.delimiterWarning = warn
	t.reportedLinebreak = reportedLinebreak
	return t
}

func newTyper(opts Options) *Typer {
	if opts.Scanner.Comma == 0 {
		opts.Scanner.Comma = ','
	}
	t := &Typer{opts: opts, predicateMemo: make(map[string]bool)}
	t.sc = scanner.New(t.opts.Scanner)
	return t
}

// Scanner exposes the underlying scanner so a streamer can drive
// Pause/Resume/Abort directly.
func (t *Typer) Scanner() *scanner.Scanner { return t.sc }

// Parse drives one Scan over text and post-processes the result into
// model.Result: header projection, field-count mismatch detection, and
// dynamic typing.
func (t *Typer) Parse(text string, baseIndex int, ignoreLastRow bool) model.Result {
	sres := t.sc.Scan(text, baseIndex, ignoreLastRow)

	out := model.Result{
		Errors: sres.Errors,
		Meta: model.Meta{
			Delimiter: string(t.opts.Scanner.Comma),
			Linebreak: t.linebreak(),
			Truncated: sres.Truncated,
			Cursor:    sres.Cursor,
		},
	}
	if t.delimiterWarning != nil {
		out.Errors = append([]*errs.ParseError{t.delimiterWarning}, out.Errors...)
		t.delimiterWarning = nil
	}

	rows := t.filterEmpty(sres.Rows)

	for _, raw := range rows {
		if t.opts.Header && !t.headersCaptured {
			t.captureHeaders(raw)
			continue
		}
		t.rowsSeen++
		if t.opts.Header {
			named, rowErrs := t.projectNamed(raw)
			out.Named = append(out.Named, named)
			out.Errors = append(out.Errors, rowErrs...)
		} else {
			out.Rows = append(out.Rows, t.typeRowPositional(raw))
		}
	}

	out.Meta.Fields = t.headers
	out.Meta.RenamedHeaders = t.renamed
	return out
}

func (t *Typer) linebreak() string {
	if t.opts.Scanner.Newline != "" {
		return t.opts.Scanner.Newline
	}
	return t.reportedLinebreak
}

// Linebreak reports the configured or guessed line ending, for callers
// (the chunk streamer's skipFirstNLines scan) that need it before Parse
// has run.
func (t *Typer) Linebreak() string { return t.linebreak() }

func (t *Typer) filterEmpty(rows [][]string) [][]string {
	if t.opts.SkipEmptyLines == SkipEmptyLinesNone {
		return rows
	}
	out := rows[:0:0]
	for _, r := range rows {
		if isEmptyRow(r, t.opts.SkipEmptyLines) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func isEmptyRow(r []string, mode SkipEmptyLines) bool {
	if mode == SkipEmptyLinesTrue {
		return len(r) == 1 && r[0] == ""
	}
	// Greedy: drop if every field, trimmed, is empty.
	for _, f := range r {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func (t *Typer) captureHeaders(raw []string) {
	headers := make([]string, len(raw))
	for i, h := range raw {
		if t.opts.TransformHeader != nil {
			h = t.opts.TransformHeader(h, i)
		}
		headers[i] = h
	}
	t.headers, t.renamed = disambiguate(headers)
	t.headersCaptured = true
}

// disambiguate suffixes duplicate header names with an incrementing
// counter and records newName -> originalName in renamed, per spec §4.2.
func disambiguate(headers []string) (out []string, renamed map[string]string) {
	seen := make(map[string]int)
	out = make([]string, len(headers))
	for i, h := range headers {
		seen[h]++
		if seen[h] == 1 {
			out[i] = h
			continue
		}
		newName := fmt.Sprintf("%s_%d", h, seen[h]-1)
		for {
			if _, clash := seen[newName]; !clash {
				break
			}
			seen[h]++
			newName = fmt.Sprintf("%s_%d", h, seen[h]-1)
		}
		seen[newName]++
		out[i] = newName
		if renamed == nil {
			renamed = make(map[string]string)
		}
		renamed[newName] = h
	}
	return out, renamed
}

func (t *Typer) projectNamed(raw []string) (model.NamedRow, []*errs.ParseError) {
	row := make(model.NamedRow, len(t.headers))
	var rowErrs []*errs.ParseError

	for i, name := range t.headers {
		var raw0 string
		if i < len(raw) {
			raw0 = raw[i]
		}
		row[name] = t.coerce(raw0, name, i)
	}

	if len(raw) < len(t.headers) {
		rowErrs = append(rowErrs, errs.New(errs.KindFieldMismatch, errs.CodeTooFewFields,
			t.rowsSeen-1, -1, "row has fewer fields than header"))
	}

	if len(raw) > len(t.headers) {
		extra := make([]any, 0, len(raw)-len(t.headers))
		for i := len(t.headers); i < len(raw); i++ {
			extra = append(extra, t.coerce(raw[i], model.ExtraFieldsKey, i))
		}
		row[model.ExtraFieldsKey] = extra
		rowErrs = append(rowErrs, errs.New(errs.KindFieldMismatch, errs.CodeTooManyFields,
			t.rowsSeen-1, -1, "row has more fields than header"))
	}

	return row, rowErrs
}

func (t *Typer) typeRowPositional(raw []string) model.Row {
	row := make(model.Row, len(raw))
	for i, v := range raw {
		row[i] = t.coerce(v, "", i)
	}
	return row
}

// coerce applies Transform then the dynamic typing ladder to one raw
// string value. fieldKey is the header name in header mode (or "" in
// positional mode); index is always the column index.
func (t *Typer) coerce(raw string, fieldKey string, index int) model.Field {
	value := raw
	if t.opts.Transform != nil {
		key := any(fieldKey)
		if fieldKey == "" {
			key = index
		}
		value = t.opts.Transform(value, key)
	}

	if !t.typingEnabled(value, fieldKey, index) {
		return value
	}
	return typeValue(value)
}

func (t *Typer) typingEnabled(value, fieldKey string, index int) bool {
	d := t.opts.DynamicTyping
	if d == nil {
		return false
	}
	if d.Predicate == nil {
		return d.enabledFor(fieldKey, index)
	}
	memoKey := fieldKey
	if memoKey == "" {
		memoKey = strconv.Itoa(index)
	}
	if v, ok := t.predicateMemo[memoKey]; ok {
		return v
	}
	var key any = fieldKey
	if fieldKey == "" {
		key = index
	}
	v := d.Predicate(value, key)
	t.predicateMemo[memoKey] = v
	return v
}

var (
	numericRe = regexp.MustCompile(`^[-+]?(\d+(\.\d*)?|\.\d+)([eE][-+]?\d+)?$`)
	iso8601Re = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}([T ]\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:?\d{2})?)?$`)

	maxSafeInteger = math.Pow(2, 53)
)

// typeValue runs the five-step coercion ladder from spec §4.2, steps 2-6
// (step 1, "dynamic typing disabled", is handled by the caller).
func typeValue(value string) model.Field {
	switch value {
	case "true", "TRUE":
		return true
	case "false", "FALSE":
		return false
	}

	if numericRe.MatchString(value) {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			if math.Abs(f) <= maxSafeInteger {
				return f
			}
		}
	}

	if iso8601Re.MatchString(value) {
		for _, layout := range []string{
			time.RFC3339Nano,
			time.RFC3339,
			"2006-01-02T15:04:05",
			"2006-01-02 15:04:05",
			"2006-01-02",
		} {
			if ts, err := time.Parse(layout, value); err == nil {
				return ts
			}
		}
	}

	if value == "" {
		return nil
	}

	return value
}
