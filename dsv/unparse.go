package dsv

import "github.com/shapestone/shape-dsv/internal/unparse"

// UnparseConfig, QuotePolicy, and FormulaPolicy re-export internal/unparse's
// types so callers never need to import it directly.
type (
	UnparseConfig = unparse.Config
	QuotePolicy   = unparse.QuotePolicy
	FormulaPolicy = unparse.FormulaPolicy
	FieldsData    = unparse.FieldsData
)

// Unparse serializes data (rows-of-rows, rows-of-maps, a FieldsData, or a
// JSON string re-dispatched to one of those) into delimited text per cfg.
func Unparse(data any, cfg UnparseConfig) (string, error) {
	return unparse.Unparse(data, cfg)
}
