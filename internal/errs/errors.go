// Package errs defines the error taxonomy shared by every layer of the
// parse/unparse pipeline (scanner, header, heuristics, streamer, unparse).
//
// Keeping the taxonomy in its own package (instead of in the root dsv
// package) lets every internal layer produce and inspect ParseError values
// without creating an import cycle back to dsv, which imports all of them.
package errs

import "fmt"

// Kind classifies a ParseError into one of the families from the error
// taxonomy. Kind does not by itself say whether the error is fatal; see
// the Fatal method.
type Kind string

const (
	KindQuotes        Kind = "Quotes"
	KindDelimiter     Kind = "Delimiter"
	KindFieldMismatch Kind = "FieldMismatch"
	KindNetwork       Kind = "Network"
	KindFile          Kind = "File"
	KindWorker        Kind = "Worker"
	KindConfig        Kind = "Config"
)

// Code identifies the specific condition within a Kind.
type Code string

const (
	CodeMissingQuotes       Code = "MissingQuotes"
	CodeInvalidQuotes       Code = "InvalidQuotes"
	CodeUndetectableDelim   Code = "UndetectableDelimiter"
	CodeTooFewFields        Code = "TooFewFields"
	CodeTooManyFields       Code = "TooManyFields"
	CodeNetworkError        Code = "NetworkError"
	CodeDownloadError       Code = "DownloadError"
	CodeFileReadError       Code = "FileReadError"
	CodeFileSizeError       Code = "FileSizeError"
	CodeWorkerError         Code = "WorkerError"
	CodeConfigError         Code = "ConfigError"
)

// ParseError is a single non-fatal (or, for Config, synchronous-fatal)
// diagnostic produced while parsing. Quotes/Delimiter/FieldMismatch errors
// ride alongside the rows they describe in ParseResult.Errors; they never
// stop parsing.
type ParseError struct {
	Kind    Kind
	Code    Code
	Message string
	// Row is the zero-indexed row the error pertains to, or -1 if the error
	// is not associated with a specific row (e.g. UndetectableDelimiter).
	Row int
	// Index is the byte offset into the input the error occurred at, or -1
	// if not applicable.
	Index int
}

func (e *ParseError) Error() string {
	if e.Row >= 0 {
		return fmt.Sprintf("%s/%s at row %d: %s", e.Kind, e.Code, e.Row, e.Message)
	}
	return fmt.Sprintf("%s/%s: %s", e.Kind, e.Code, e.Message)
}

// Fatal reports whether errors of this Kind stop parsing immediately
// (Network, File, Worker, Config) as opposed to being collected alongside
// the rows that produced them (Quotes, Delimiter, FieldMismatch).
func (k Kind) Fatal() bool {
	switch k {
	case KindNetwork, KindFile, KindWorker, KindConfig:
		return true
	default:
		return false
	}
}

// New constructs a row-scoped ParseError.
func New(kind Kind, code Code, row, index int, format string, args ...any) *ParseError {
	return &ParseError{
		Kind:    kind,
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Row:     row,
		Index:   index,
	}
}

// NewGeneral constructs a ParseError not tied to a specific row (Row=-1,
// Index=-1), such as Delimiter/UndetectableDelimiter.
func NewGeneral(kind Kind, code Code, format string, args ...any) *ParseError {
	return New(kind, code, -1, -1, format, args...)
}

// TransportError wraps a fatal adapter-level failure (Network/File/Worker).
// It satisfies error and Unwrap so callers can inspect the underlying cause.
type TransportError struct {
	Kind    Kind
	Code    Code
	Message string
	Err     error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s/%s: %s: %v", e.Kind, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s/%s: %s", e.Kind, e.Code, e.Message)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ConfigError reports an invalid configuration, returned synchronously by
// the facade before any parsing begins.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("dsv: invalid %s: %s", e.Field, e.Message)
}
