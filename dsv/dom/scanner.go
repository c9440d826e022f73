package dom

import (
	"context"
	"io"

	"github.com/shapestone/shape-dsv/dsv"
)

// Scanner provides a pull-based, one-record-at-a-time interface over a
// parsed source, for callers who find that a more natural shape than a
// Document built all at once.
//
// Like the teacher's own version, Scanner parses the whole source on
// the first call to Scan rather than incrementally: "a true streaming
// implementation would parse incrementally" — that belongs to
// dsv.Parse's Callbacks.Step, not here, and callers who need it should
// use Callbacks.Step directly instead of Scanner.
type Scanner struct {
	reader     io.Reader
	hasHeaders bool
	cfg        dsv.Config
	headers    []string
	records    [][]string
	index      int
	err        error
	parsed     bool
}

// NewScanner creates a Scanner that reads from reader. By default no
// header row is assumed; call SetHasHeaders(true) to treat the first
// row as column names.
func NewScanner(reader io.Reader) *Scanner {
	return &Scanner{reader: reader, index: -1}
}

// SetHasHeaders sets whether the first row is a header row. Returns the
// Scanner for chaining.
func (s *Scanner) SetHasHeaders(hasHeaders bool) *Scanner {
	s.hasHeaders = hasHeaders
	s.cfg.Header = hasHeaders
	return s
}

// SetConfig replaces the dsv.Config used for the underlying parse
// (delimiter, newline, dynamic typing, and so on). Header is
// overwritten by whatever SetHasHeaders was last called with. Returns
// the Scanner for chaining.
func (s *Scanner) SetConfig(cfg dsv.Config) *Scanner {
	hasHeaders := s.hasHeaders
	s.cfg = cfg
	s.cfg.Header = hasHeaders
	return s
}

// Scan advances to the next record, returning false when there are no
// more or a parse error occurred; check Err after Scan returns false.
func (s *Scanner) Scan() bool {
	if !s.parsed {
		if err := s.parse(); err != nil {
			s.err = err
			return false
		}
		s.parsed = true
	}
	s.index++
	return s.index < len(s.records)
}

// Record returns the current record. Only valid after Scan returns
// true.
func (s *Scanner) Record() Record {
	if s.index < 0 || s.index >= len(s.records) {
		return Record{fields: []string{}, headers: s.headers}
	}
	return Record{fields: s.records[s.index], headers: s.headers}
}

// Err returns the error, if any, encountered while scanning.
func (s *Scanner) Err() error {
	return s.err
}

// Headers returns the column headers, available once Scan has been
// called at least once and SetHasHeaders(true) was set.
func (s *Scanner) Headers() []string {
	return s.headers
}

func (s *Scanner) parse() error {
	data, err := io.ReadAll(s.reader)
	if err != nil {
		return err
	}

	result, _, err := dsv.Parse(context.Background(), string(data), s.cfg)
	if err != nil {
		return err
	}
	if result == nil {
		// s.cfg set Step or Chunk, which received the rows instead.
		s.headers = []string{}
		return nil
	}

	if s.hasHeaders {
		s.headers = result.Meta.Fields
	} else {
		s.headers = []string{}
	}

	s.records = make([][]string, len(result.Rows))
	for i, row := range result.Rows {
		fields := make([]string, len(row))
		for j, v := range row {
			fields[j] = stringify(v)
		}
		s.records[i] = fields
	}
	for _, named := range result.Named {
		fields := make([]string, len(s.headers))
		for j, h := range s.headers {
			fields[j] = stringify(named[h])
		}
		s.records = append(s.records, fields)
	}
	return nil
}
