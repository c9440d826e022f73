// Package model holds the value types shared by every layer of the
// pipeline (scanner → header → streamer → dsv facade). They live in their
// own package, rather than in the root dsv package, so internal layers can
// produce and consume them without an import cycle; the dsv package
// re-exports them as the public API via type aliases.
package model

import "github.com/shapestone/shape-dsv/internal/errs"

// Field is one cell's dynamically-typed value: string, float64, bool,
// time.Time, or nil.
type Field = any

// Row is a positional record (header mode off).
type Row []Field

// ExtraFieldsKey is the reserved NamedRow key that collects fields beyond
// the header count, per spec §4.2.
const ExtraFieldsKey = "__parsed_extra"

// NamedRow is a header-mode record: column name to typed value.
type NamedRow map[string]Field

// Meta is the per-parse bookkeeping record returned alongside rows.
type Meta struct {
	Delimiter      string
	Linebreak      string
	Aborted        bool
	Truncated      bool
	Cursor         int
	Fields         []string
	RenamedHeaders map[string]string
	SessionID      string
}

// Result is what one HeaderTyper.Parse (or Scanner.Scan, lifted) call
// produces: raw or named rows plus errors and bookkeeping.
type Result struct {
	Rows   []Row
	Named  []NamedRow
	Errors []*errs.ParseError
	Meta   Meta
}
