// Package unparse implements the Unparser (U): serializing rows back into
// delimited text per spec §4.6 — input-shape dispatch (rows-of-rows,
// rows-of-maps, {fields, data}, a JSON string re-dispatched), the quoting
// and escaping rules, BAD_DELIMITERS rejection, skipEmptyLines, and
// formula-injection defense.
//
// Directly grounded on the teacher's pkg/csv/render.go: writeCSVFieldWithDelim
// (quote-doubling, delimiter-aware quoting) and renderWithOptions
// (configurable delimiter/line-ending), generalized from rendering
// AST nodes to rendering directly off []model.Row/[]model.NamedRow values,
// since this module does not carry the teacher's shape-core AST layer
// (see DESIGN.md).
package unparse

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shapestone/shape-dsv/internal/errs"
	"github.com/shapestone/shape-dsv/internal/header"
	"github.com/shapestone/shape-dsv/internal/model"
)

// badDelimiters mirrors spec §6's BAD_DELIMITERS set: a configured
// delimiter containing one of these is rejected in favor of the default.
var badDelimiters = map[rune]bool{
	'\r':         true,
	'\n':         true,
	'"':          true,
	'\U0000FEFF': true,
}

// defaultFormulaPattern matches values spreadsheet software would treat as
// formulas: a leading '=', '+', '-', '@', TAB, or CR.
var defaultFormulaPattern = regexp.MustCompile(`^[=+\-@\t\r]`)

// QuotePolicy decides, beyond the structural quoting rules, whether a
// field must be quoted. At most one of the three modes should be set.
type QuotePolicy struct {
	All       bool
	Predicate func(value string, index int) bool
	PerColumn []bool
}

func (q *QuotePolicy) requires(value string, index int) bool {
	if q == nil {
		return false
	}
	if q.Predicate != nil {
		return q.Predicate(value, index)
	}
	if q.PerColumn != nil {
		return index < len(q.PerColumn) && q.PerColumn[index]
	}
	return q.All
}

// FormulaPolicy configures formula-injection defense.
type FormulaPolicy struct {
	Enabled bool
	Pattern *regexp.Regexp // nil uses defaultFormulaPattern
}

func (f *FormulaPolicy) pattern() *regexp.Regexp {
	if f == nil || f.Pattern == nil {
		return defaultFormulaPattern
	}
	return f.Pattern
}

// Config configures Unparse.
type Config struct {
	Quotes         *QuotePolicy
	QuoteChar      rune
	EscapeChar     rune
	Delimiter      rune
	Newline        string
	Header         *bool // nil means true (default); explicit false suppresses the header row
	Columns        []string
	SkipEmptyLines header.SkipEmptyLines
	EscapeFormulae *FormulaPolicy
}

func (c Config) headerEnabled() bool {
	return c.Header == nil || *c.Header
}

func (c Config) resolvedDelimiter() rune {
	d := c.Delimiter
	if d == 0 || badDelimiters[d] {
		return ','
	}
	return d
}

func (c Config) resolvedNewline() string {
	if c.Newline == "" {
		return "\r\n"
	}
	return c.Newline
}

func (c Config) resolvedQuoteChar() rune {
	if c.QuoteChar == 0 {
		return '"'
	}
	return c.QuoteChar
}

func (c Config) resolvedEscapeChar() rune {
	if c.EscapeChar == 0 {
		return c.resolvedQuoteChar()
	}
	return c.EscapeChar
}

// FieldsData is the {fields, data} input shape: explicit headers paired
// with rows of either shape.
type FieldsData struct {
	Fields []string
	Data   any
}

// Unparse serializes data into delimited text per cfg.
func Unparse(data any, cfg Config) (string, error) {
	if cfg.Columns != nil && len(cfg.Columns) == 0 {
		return "", &errs.ConfigError{Field: "columns", Message: "columns must not be an empty sequence"}
	}

	switch v := data.(type) {
	case string:
		var decoded any
		if err := json.Unmarshal([]byte(v), &decoded); err != nil {
			return "", &errs.ConfigError{Field: "data", Message: fmt.Sprintf("string input is not valid JSON: %v", err)}
		}
		return Unparse(decoded, cfg)

	case FieldsData:
		rows, named, err := normalizeDataShape(v.Data)
		if err != nil {
			return "", err
		}
		headers := v.Fields
		if cfg.Columns != nil {
			headers = cfg.Columns
		}
		return render(headers, rows, named, cfg)

	case []model.Row:
		return render(cfg.Columns, v, nil, cfg)

	case [][]string:
		return render(cfg.Columns, rowsFromStrings(v), nil, cfg)

	case []model.NamedRow:
		headers := cfg.Columns
		if headers == nil {
			headers = unionKeys(v)
		}
		return render(headers, nil, v, cfg)

	default:
		rows, named, err := normalizeDataShape(data)
		if err != nil {
			return "", err
		}
		headers := cfg.Columns
		if headers == nil && named != nil {
			headers = unionKeys(named)
		}
		return render(headers, rows, named, cfg)
	}
}

// normalizeDataShape dispatches a value of unknown shape (typically
// produced by json.Unmarshal into `any`, or passed directly by a caller
// that built plain []any/map[string]any values) into either positional or
// named rows.
func normalizeDataShape(data any) ([]model.Row, []model.NamedRow, error) {
	switch v := data.(type) {
	case []model.Row:
		return v, nil, nil
	case []model.NamedRow:
		return nil, v, nil
	case [][]string:
		return rowsFromStrings(v), nil, nil
	case []any:
		if len(v) == 0 {
			return nil, nil, nil
		}
		switch v[0].(type) {
		case map[string]any:
			named := make([]model.NamedRow, len(v))
			for i, item := range v {
				m, ok := item.(map[string]any)
				if !ok {
					return nil, nil, &errs.ConfigError{Field: "data", Message: "rows must be uniformly shaped"}
				}
				named[i] = model.NamedRow(m)
			}
			return nil, named, nil
		default:
			rows := make([]model.Row, len(v))
			for i, item := range v {
				seq, ok := item.([]any)
				if !ok {
					return nil, nil, &errs.ConfigError{Field: "data", Message: "rows must be uniformly shaped"}
				}
				row := make(model.Row, len(seq))
				copy(row, seq)
				rows[i] = row
			}
			return rows, nil, nil
		}
	default:
		return nil, nil, &errs.ConfigError{Field: "data", Message: fmt.Sprintf("unsupported unparse input type %T", data)}
	}
}

func rowsFromStrings(v [][]string) []model.Row {
	rows := make([]model.Row, len(v))
	for i, r := range v {
		row := make(model.Row, len(r))
		for j, f := range r {
			row[j] = f
		}
		rows[i] = row
	}
	return rows
}

// unionKeys computes the header as the union of the first row's keys, per
// spec §4.6. Go maps have no inherent order, so beyond the first row's
// keys (sorted for determinism — see DESIGN.md's Open Question decision)
// any additional keys introduced by later rows are appended in sorted
// order too.
func unionKeys(rows []model.NamedRow) []string {
	if len(rows) == 0 {
		return nil
	}
	first := sortedKeys(rows[0])
	seen := make(map[string]bool, len(first))
	for _, k := range first {
		seen[k] = true
	}
	headers := append([]string(nil), first...)
	for _, row := range rows[1:] {
		extra := sortedKeys(row)
		for _, k := range extra {
			if !seen[k] {
				seen[k] = true
				headers = append(headers, k)
			}
		}
	}
	return headers
}

func sortedKeys(row model.NamedRow) []string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func render(headers []string, rows []model.Row, named []model.NamedRow, cfg Config) (string, error) {
	delim := cfg.resolvedDelimiter()
	newline := cfg.resolvedNewline()
	quoteChar := cfg.resolvedQuoteChar()
	escapeChar := cfg.resolvedEscapeChar()

	var lines []string

	if cfg.headerEnabled() && len(headers) > 0 {
		headerValues := make([]any, len(headers))
		for i, h := range headers {
			headerValues[i] = h
		}
		lines = append(lines, renderRow(headerValues, delim, quoteChar, escapeChar, cfg))
	}

	for _, row := range rows {
		if skipRow(stringifyRow(row, cfg), cfg.SkipEmptyLines) {
			continue
		}
		values := make([]any, len(row))
		copy(values, row)
		lines = append(lines, renderRow(values, delim, quoteChar, escapeChar, cfg))
	}

	for _, row := range named {
		values := make([]any, len(headers))
		for i, h := range headers {
			values[i] = row[h]
		}
		if skipRow(stringifyValues(values, cfg), cfg.SkipEmptyLines) {
			continue
		}
		lines = append(lines, renderRow(values, delim, quoteChar, escapeChar, cfg))
	}

	return strings.Join(lines, newline), nil
}

func stringifyRow(row model.Row, cfg Config) []string {
	values := make([]any, len(row))
	copy(values, row)
	return stringifyValues(values, cfg)
}

func stringifyValues(values []any, cfg Config) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = stringifyValue(v)
	}
	return out
}

func skipRow(fields []string, mode header.SkipEmptyLines) bool {
	switch mode {
	case header.SkipEmptyLinesTrue:
		return len(fields) == 1 && fields[0] == ""
	case header.SkipEmptyLinesGreedy:
		for _, f := range fields {
			if strings.TrimSpace(f) != "" {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func renderRow(values []any, delim, quoteChar, escapeChar rune, cfg Config) string {
	fields := make([]string, len(values))
	for i, v := range values {
		fields[i] = renderField(v, i, delim, quoteChar, escapeChar, cfg)
	}
	return strings.Join(fields, string(delim))
}

func renderField(v any, index int, delim, quoteChar, escapeChar rune, cfg Config) string {
	_, isString := v.(string)
	str := stringifyValue(v)

	forceQuote := false
	if isString && cfg.EscapeFormulae != nil && cfg.EscapeFormulae.Enabled {
		if cfg.EscapeFormulae.pattern().MatchString(str) {
			str = "'" + str
			forceQuote = true
		}
	}

	needsQuote := forceQuote ||
		cfg.Quotes.requires(str, index) ||
		strings.ContainsRune(str, delim) ||
		strings.ContainsRune(str, quoteChar) ||
		strings.ContainsAny(str, "\r\n") ||
		strings.HasPrefix(str, " ") ||
		strings.HasSuffix(str, " ")

	if !needsQuote {
		return str
	}

	escaped := strings.ReplaceAll(str, string(quoteChar), string(escapeChar)+string(quoteChar))
	return string(quoteChar) + escaped + string(quoteChar)
}

func stringifyValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		if x {
			return "true"
		}
		return "false"
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case time.Time:
		return x.UTC().Truncate(time.Millisecond).Format("2006-01-02T15:04:05.000Z")
	default:
		return fmt.Sprintf("%v", x)
	}
}
