package dsv

import (
	"context"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shapestone/shape-dsv/internal/errs"
	"github.com/shapestone/shape-dsv/internal/model"
)

// Marshal and Unmarshal map between []struct and delimited text using a
// "dsv" struct tag, the same shape as encoding/json's: a column name
// followed by a comma-separated option list, currently just "omitempty".
// A tag of "-" always skips the field.
//
//	type Person struct {
//	    Name string `dsv:"name"`
//	    Age  int    `dsv:"age,omitempty"`
//	    internal string `dsv:"-"`
//	}
//
// Grounded on the teacher's pkg/csv/marshal.go and unmarshal.go (tag
// parsing, omitempty semantics, exported-field-only assignment) and
// internal/fastparser/typecache.go's per-(type, header) reflection cache.
// On the way in, string cells are converted per field kind with strconv
// (assignFromString); values already typed by cfg.DynamicTyping are
// assigned directly when their type fits the field.
const structTag = "dsv"

type fieldInfo struct {
	name      string
	index     int
	omitEmpty bool
}

var fieldInfoCache sync.Map // map[reflect.Type][]fieldInfo

func collectFields(t reflect.Type) []fieldInfo {
	if cached, ok := fieldInfoCache.Load(t); ok {
		return cached.([]fieldInfo)
	}

	var fields []fieldInfo
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" { // unexported
			continue
		}
		name, omitEmpty, skip := parseFieldTag(f)
		if skip {
			continue
		}
		fields = append(fields, fieldInfo{name: name, index: i, omitEmpty: omitEmpty})
	}
	fieldInfoCache.Store(t, fields)
	return fields
}

func parseFieldTag(f reflect.StructField) (name string, omitEmpty bool, skip bool) {
	tag := f.Tag.Get(structTag)
	if tag == "-" {
		return "", false, true
	}
	if tag == "" {
		return f.Name, false, false
	}
	parts := strings.Split(tag, ",")
	name = parts[0]
	if name == "" {
		name = f.Name
	}
	for _, opt := range parts[1:] {
		if opt == "omitempty" {
			omitEmpty = true
		}
	}
	return name, omitEmpty, false
}

func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String, reflect.Array:
		return v.Len() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Interface, reflect.Ptr, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func:
		return v.IsNil()
	default:
		return false
	}
}

func fieldToAny(v reflect.Value) model.Field {
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil
		}
		return fieldToAny(v.Elem())
	}
	switch v.Kind() {
	case reflect.String:
		return v.String()
	case reflect.Bool:
		return v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'f', -1, 64)
	default:
		if t, ok := v.Interface().(time.Time); ok {
			return t
		}
		return nil
	}
}

// Marshal encodes v, a slice of structs (or pointers to structs), into
// delimited text. Columns come from the "dsv" struct tags (or field
// names) in declaration order unless cfg.Columns is already set.
func Marshal(v any, cfg UnparseConfig) (string, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return "", &errs.ConfigError{Field: "v", Message: "Marshal expects a slice"}
	}
	elemType := rv.Type().Elem()
	ptrElems := elemType.Kind() == reflect.Ptr
	if ptrElems {
		elemType = elemType.Elem()
	}
	if elemType.Kind() != reflect.Struct {
		return "", &errs.ConfigError{Field: "v", Message: "Marshal expects a slice of structs"}
	}

	fields := collectFields(elemType)
	headers := make([]string, len(fields))
	for i, f := range fields {
		headers[i] = f.name
	}

	rows := make([]model.Row, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		elem := rv.Index(i)
		if ptrElems {
			if elem.IsNil() {
				continue
			}
			elem = elem.Elem()
		}
		row := make(model.Row, len(fields))
		for j, f := range fields {
			fv := elem.Field(f.index)
			if f.omitEmpty && isEmptyValue(fv) {
				row[j] = ""
				continue
			}
			row[j] = fieldToAny(fv)
		}
		rows = append(rows, row)
	}

	if cfg.Columns == nil {
		cfg.Columns = headers
	}
	return Unparse(rows, cfg)
}

// Unmarshal parses data and assigns the rows to *v, a pointer to a slice
// of structs. cfg.Header is forced to true: struct-field mapping needs
// column names. Columns are matched to struct fields by "dsv" tag name or
// field name, case-insensitively; unmatched columns are ignored and
// unmatched fields keep their zero value.
func Unmarshal(data []byte, v any, cfg Config) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Slice {
		return &errs.ConfigError{Field: "v", Message: "Unmarshal expects a pointer to a slice"}
	}
	sliceType := rv.Elem().Type()
	elemType := sliceType.Elem()
	ptrElems := elemType.Kind() == reflect.Ptr
	structType := elemType
	if ptrElems {
		structType = elemType.Elem()
	}
	if structType.Kind() != reflect.Struct {
		return &errs.ConfigError{Field: "v", Message: "Unmarshal expects a slice of structs"}
	}

	cfg.Header = true
	result, _, err := Parse(context.Background(), string(data), cfg)
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}

	fields := collectFields(structType)
	byLowerName := make(map[string]fieldInfo, len(fields))
	for _, f := range fields {
		byLowerName[strings.ToLower(f.name)] = f
	}

	out := reflect.MakeSlice(sliceType, 0, len(result.Named))
	for _, named := range result.Named {
		structVal := reflect.New(structType).Elem()
		for col, value := range named {
			f, ok := byLowerName[strings.ToLower(col)]
			if !ok {
				continue
			}
			if err := assignField(structVal.Field(f.index), value); err != nil {
				return err
			}
		}
		if ptrElems {
			ptr := reflect.New(structType)
			ptr.Elem().Set(structVal)
			out = reflect.Append(out, ptr)
		} else {
			out = reflect.Append(out, structVal)
		}
	}
	rv.Elem().Set(out)
	return nil
}

func assignField(fv reflect.Value, value model.Field) error {
	if value == nil {
		return nil
	}
	if fv.Kind() == reflect.Ptr {
		fv.Set(reflect.New(fv.Type().Elem()))
		return assignField(fv.Elem(), value)
	}

	switch x := value.(type) {
	case string:
		return assignFromString(fv, x)
	case bool:
		if fv.Kind() == reflect.Bool {
			fv.SetBool(x)
			return nil
		}
		return assignFromString(fv, strconv.FormatBool(x))
	case float64:
		switch fv.Kind() {
		case reflect.Float32, reflect.Float64:
			fv.SetFloat(x)
			return nil
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			fv.SetInt(int64(x))
			return nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			fv.SetUint(uint64(x))
			return nil
		default:
			return assignFromString(fv, strconv.FormatFloat(x, 'f', -1, 64))
		}
	case time.Time:
		if fv.Type() == reflect.TypeOf(time.Time{}) {
			fv.Set(reflect.ValueOf(x))
			return nil
		}
		return assignFromString(fv, x.Format(time.RFC3339))
	default:
		return nil
	}
}

func assignFromString(fv reflect.Value, s string) error {
	switch fv.Kind() {
	case reflect.String:
		fv.SetString(s)
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil
		}
		fv.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil
		}
		fv.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil
		}
		fv.SetUint(n)
	case reflect.Float32, reflect.Float64:
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		fv.SetFloat(n)
	}
	return nil
}
