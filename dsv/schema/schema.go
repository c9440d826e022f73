// Package schema implements explicit, user-declared column validation —
// a different feature from the dynamic-typing inference the core parser
// performs, and one the core library has always offered alongside it.
//
// Ported wholesale in spirit from the teacher's pkg/csv/schema.go
// (ColumnDefinition/Schema/ValidationError/ValidationResult/
// ValidateSchema/SchemaFromStruct). ValidateSchema, like the teacher's,
// takes raw [][]string records (header row first); the "dsv" struct tag
// replaces "csv".
package schema

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// ColumnType is the expected data type of a column's values.
type ColumnType string

const (
	ColumnTypeString   ColumnType = "string"
	ColumnTypeInt      ColumnType = "int"
	ColumnTypeFloat    ColumnType = "float"
	ColumnTypeBool     ColumnType = "bool"
	ColumnTypeDateTime ColumnType = "datetime"
	ColumnTypeAny      ColumnType = "any"
)

// ColumnDefinition defines the schema for a single column.
type ColumnDefinition struct {
	Name          string
	Type          ColumnType
	Required      bool
	Default       string
	Validator     func(value string) error
	AllowedValues []string
	MinLength     int
	MaxLength     int
}

// Schema defines the expected structure of delimited data.
type Schema struct {
	Columns             []ColumnDefinition
	AllowExtraColumns   bool
	AllowMissingColumns bool
	HeaderRequired      bool
}

// NewSchema creates an empty schema with a header required by default.
func NewSchema() *Schema {
	return &Schema{HeaderRequired: true}
}

func (s *Schema) AddColumn(col ColumnDefinition) *Schema {
	s.Columns = append(s.Columns, col)
	return s
}

func (s *Schema) AddSimpleColumn(name string, colType ColumnType) *Schema {
	return s.AddColumn(ColumnDefinition{Name: name, Type: colType})
}

func (s *Schema) AddRequiredColumn(name string, colType ColumnType) *Schema {
	return s.AddColumn(ColumnDefinition{Name: name, Type: colType, Required: true})
}

// ValidationError reports one schema violation.
type ValidationError struct {
	// Row is 0-indexed; -1 means the error is about the header itself.
	Row     int
	Column  string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("header validation error for column %q: %s", e.Column, e.Message)
	}
	return fmt.Sprintf("row %d, column %q: %s (value: %q)", e.Row, e.Column, e.Message, e.Value)
}

// ValidationResult collects every error found by ValidateSchema.
type ValidationResult struct {
	Valid  bool
	Errors []ValidationError
}

func (r *ValidationResult) AddError(err ValidationError) {
	r.Errors = append(r.Errors, err)
	r.Valid = false
}

func (r *ValidationResult) Error() string {
	if r.Valid || len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[0].Error()
}

func (r *ValidationResult) AllErrors() string {
	if r.Valid || len(r.Errors) == 0 {
		return ""
	}
	msgs := make([]string, len(r.Errors))
	for i, err := range r.Errors {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "\n")
}

// ValidateSchema validates rows (header row first, data rows after)
// against schema.
func ValidateSchema(rows [][]string, s *Schema) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if len(rows) == 0 {
		if s.HeaderRequired {
			result.AddError(ValidationError{Row: -1, Message: "data is empty, header required"})
		}
		return result
	}

	header := rows[0]
	columnIndex := make(map[string]int, len(header))
	for i, name := range header {
		columnIndex[name] = i
	}

	for _, col := range s.Columns {
		if _, ok := columnIndex[col.Name]; !ok && !s.AllowMissingColumns {
			result.AddError(ValidationError{Row: -1, Column: col.Name, Message: "required column not found in header"})
		}
	}

	if !s.AllowExtraColumns {
		known := make(map[string]bool, len(s.Columns))
		for _, col := range s.Columns {
			known[col.Name] = true
		}
		for _, name := range header {
			if !known[name] {
				result.AddError(ValidationError{Row: -1, Column: name, Message: "unexpected column not in schema"})
			}
		}
	}

	for rowIdx := 1; rowIdx < len(rows); rowIdx++ {
		row := rows[rowIdx]
		for _, col := range s.Columns {
			colIdx, ok := columnIndex[col.Name]
			if !ok {
				continue
			}
			var value string
			if colIdx < len(row) {
				value = row[colIdx]
			}
			if value == "" && col.Default != "" {
				value = col.Default
			}
			if col.Required && value == "" {
				result.AddError(ValidationError{Row: rowIdx, Column: col.Name, Value: value, Message: "required field is empty"})
				continue
			}
			if value == "" {
				continue
			}
			if err := validateType(value, col.Type); err != nil {
				result.AddError(ValidationError{Row: rowIdx, Column: col.Name, Value: value, Message: err.Error()})
			}
			if len(col.AllowedValues) > 0 && !contains(col.AllowedValues, value) {
				result.AddError(ValidationError{Row: rowIdx, Column: col.Name, Value: value, Message: fmt.Sprintf("value not in allowed set: %v", col.AllowedValues)})
			}
			if col.MinLength > 0 && len(value) < col.MinLength {
				result.AddError(ValidationError{Row: rowIdx, Column: col.Name, Value: value, Message: fmt.Sprintf("value length %d is less than minimum %d", len(value), col.MinLength)})
			}
			if col.MaxLength > 0 && len(value) > col.MaxLength {
				result.AddError(ValidationError{Row: rowIdx, Column: col.Name, Value: value, Message: fmt.Sprintf("value length %d exceeds maximum %d", len(value), col.MaxLength)})
			}
			if col.Validator != nil {
				if err := col.Validator(value); err != nil {
					result.AddError(ValidationError{Row: rowIdx, Column: col.Name, Value: value, Message: err.Error()})
				}
			}
		}
	}

	return result
}

func contains(haystack []string, needle string) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}

// validateType checks that value parses as colType. Simplified relative
// to the teacher's ConverterRegistry-backed version (see DESIGN.md): this
// module has no converter registry of its own, so each case calls the
// stdlib parser directly.
func validateType(value string, colType ColumnType) error {
	switch colType {
	case ColumnTypeAny, ColumnTypeString, "":
		return nil
	case ColumnTypeInt:
		if _, err := strconv.ParseInt(value, 10, 64); err != nil {
			return fmt.Errorf("invalid integer: %s", value)
		}
	case ColumnTypeFloat:
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return fmt.Errorf("invalid float: %s", value)
		}
	case ColumnTypeBool:
		if _, err := strconv.ParseBool(value); err != nil {
			return fmt.Errorf("invalid boolean: %s", value)
		}
	case ColumnTypeDateTime:
		if _, err := time.Parse(time.RFC3339, value); err != nil {
			return fmt.Errorf("invalid datetime: %s", value)
		}
	}
	return nil
}

// SchemaFromStruct builds a Schema from a struct's "dsv" tags, matching
// the tag format dsv.Marshal/dsv.Unmarshal use.
func SchemaFromStruct(v any) (*Schema, error) {
	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("schema: SchemaFromStruct requires a struct type, got %s", t.Kind())
	}

	s := NewSchema()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.PkgPath != "" {
			continue
		}
		tag := field.Tag.Get("dsv")
		if tag == "-" {
			continue
		}

		name := field.Name
		parts := strings.Split(tag, ",")
		if parts[0] != "" {
			name = parts[0]
		}

		col := ColumnDefinition{Name: name, Type: goTypeToColumnType(field.Type)}
		for _, opt := range parts[1:] {
			if opt == "required" {
				col.Required = true
			}
		}
		s.AddColumn(col)
	}
	return s, nil
}

func goTypeToColumnType(t reflect.Type) ColumnType {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return ColumnTypeInt
	case reflect.Float32, reflect.Float64:
		return ColumnTypeFloat
	case reflect.Bool:
		return ColumnTypeBool
	case reflect.String:
		return ColumnTypeString
	default:
		if t.String() == "time.Time" {
			return ColumnTypeDateTime
		}
		return ColumnTypeAny
	}
}
