// Package dom provides a user-friendly, fluent API for building and
// reading delimited documents without touching raw rows directly.
//
// # Document Type
//
// Document represents a delimited file with optional headers and data
// records:
//
//	doc := dom.NewDocument().
//		SetHeaders([]string{"name", "age"}).
//		AddRecord([]string{"Alice", "30"}).
//		AddRecord([]string{"Bob", "25"})
//
// # Record Type
//
// Record represents a single row with typed access:
//
//	record, _ := doc.GetRecord(0)
//	name, _ := record.Get(0)          // by index
//	age, _ := record.GetByName("age") // by header name
//
// # Round-trip Support
//
//	doc, _ := dom.ParseDocument("name,age\nAlice,30", dsv.Config{Header: true})
//	out, _ := doc.DSV(dsv.UnparseConfig{})
package dom

import (
	"context"
	"fmt"

	"github.com/shapestone/shape-dsv/dsv"
)

// Document represents a delimited file with a fluent API for
// manipulation. All setter methods return *Document to enable chaining.
type Document struct {
	headers []string
	records [][]string
}

// Record represents a single row. It provides type-safe access to
// field values by index or by header name.
type Record struct {
	fields  []string
	headers []string
}

// NewDocument creates a new empty Document.
func NewDocument() *Document {
	return &Document{headers: []string{}, records: make([][]string, 0)}
}

// ParseDocument parses input according to cfg and returns a Document.
// When cfg.Header is true the parsed header row becomes the Document's
// headers; otherwise every row is a data record.
func ParseDocument(input string, cfg dsv.Config) (*Document, error) {
	result, _, err := dsv.Parse(context.Background(), input, cfg)
	if err != nil {
		return nil, err
	}

	doc := NewDocument()
	if result == nil {
		return doc, nil
	}

	if cfg.Header && len(result.Meta.Fields) > 0 {
		doc.SetHeaders(result.Meta.Fields)
		for _, named := range result.Named {
			fields := make([]string, len(result.Meta.Fields))
			for i, h := range result.Meta.Fields {
				fields[i] = stringify(named[h])
			}
			doc.AddRecord(fields)
		}
	}
	for _, row := range result.Rows {
		fields := make([]string, len(row))
		for i, v := range row {
			fields[i] = stringify(v)
		}
		doc.AddRecord(fields)
	}
	return doc, nil
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		return fmt.Sprintf("%v", x)
	}
}

// SetHeaders sets the column headers for this document. Headers are
// used by Record.GetByName. Returns the Document for chaining.
func (d *Document) SetHeaders(headers []string) *Document {
	d.headers = headers
	return d
}

// AddRecord adds a data record (row). Returns the Document for
// chaining.
func (d *Document) AddRecord(fields []string) *Document {
	d.records = append(d.records, fields)
	return d
}

// Headers returns the column headers, or an empty slice if none were
// set.
func (d *Document) Headers() []string {
	return d.headers
}

// Records returns all data records as Record values.
func (d *Document) Records() []Record {
	records := make([]Record, len(d.records))
	for i, fields := range d.records {
		records[i] = Record{fields: fields, headers: d.headers}
	}
	return records
}

// RecordCount returns the number of data records, excluding the header.
func (d *Document) RecordCount() int {
	return len(d.records)
}

// GetRecord returns the 0-indexed data record, or (Record{}, false) if
// index is out of bounds.
func (d *Document) GetRecord(index int) (Record, bool) {
	if index < 0 || index >= len(d.records) {
		return Record{}, false
	}
	return Record{fields: d.records[index], headers: d.headers}, true
}

// DSV renders the Document back to delimited text, headers (if set)
// followed by every data record, via the package's own Unparse.
func (d *Document) DSV(cfg dsv.UnparseConfig) (string, error) {
	rows := make([]dsv.Row, len(d.records))
	for i, fields := range d.records {
		row := make(dsv.Row, len(fields))
		for j, f := range fields {
			row[j] = f
		}
		rows[i] = row
	}
	if len(d.headers) > 0 && cfg.Columns == nil {
		cfg.Columns = d.headers
	}
	return dsv.Unparse(rows, cfg)
}

// Get gets the field value at index. Returns ("", false) if index is
// out of bounds.
func (r Record) Get(index int) (string, bool) {
	if index < 0 || index >= len(r.fields) {
		return "", false
	}
	return r.fields[index], true
}

// GetByName gets the field value by header name. Returns ("", false) if
// the name isn't found or no headers are set.
func (r Record) GetByName(name string) (string, bool) {
	for i, h := range r.headers {
		if h == name {
			return r.Get(i)
		}
	}
	return "", false
}

// Fields returns a copy of the record's field values.
func (r Record) Fields() []string {
	fields := make([]string, len(r.fields))
	copy(fields, r.fields)
	return fields
}

// Len returns the number of fields in the record.
func (r Record) Len() int {
	return len(r.fields)
}
