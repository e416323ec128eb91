// Package query translates document filters into parameterized SQL over the
// documents table.
//
// Field names are validated with package ident and embedded in JSON path
// literals; every value is passed as a bound parameter. All field access
// goes through Extract, the same expression the expression indexes are
// built on, so SQLite can use an index whenever one exists without the
// translator knowing about it.
package query

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/liliang-cn/sagittadb/internal/encoding"
	"github.com/liliang-cn/sagittadb/internal/ident"
)

const (
	// Table holds one row per document.
	Table = "documents"
	// Column holds the encoded document body.
	Column = "data"
)

var (
	// ErrInvalidFilter is returned for malformed or ambiguous filters.
	ErrInvalidFilter = errors.New("invalid filter")

	// ErrInvalidPattern is matched by every *PatternError.
	ErrInvalidPattern = errors.New("invalid pattern")
)

// PatternError reports a regular expression that does not compile.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid pattern %q: %v", e.Pattern, e.Err)
}

// Unwrap returns both ErrInvalidPattern and the compile error.
func (e *PatternError) Unwrap() []error {
	return []error{ErrInvalidPattern, e.Err}
}

// Filter is one of Equality, Pattern or Membership.
type Filter interface {
	isFilter()
}

// Equality matches documents whose fields equal every given value. An
// empty Equality matches every document.
type Equality map[string]any

// Pattern matches documents whose field, read as text, matches Expr.
type Pattern struct {
	Field string
	Expr  string
}

// Membership matches documents whose field equals any of Values.
type Membership struct {
	Field  string
	Values []any
}

func (Equality) isFilter()   {}
func (Pattern) isFilter()    {}
func (Membership) isFilter() {}

// Clause is a WHERE condition with its bound arguments.
type Clause struct {
	Where string
	Args  []any
}

// Extract returns the SQL expression reading field from the document body.
// field must already be validated.
func Extract(field string) string {
	return fmt.Sprintf("json_extract(%s, '$.%s')", Column, field)
}

// typeOf returns the SQL expression reporting the JSON type of field.
func typeOf(field string) string {
	return fmt.Sprintf("json_type(%s, '$.%s')", Column, field)
}

// Translate converts f into a WHERE clause.
func Translate(f Filter) (Clause, error) {
	switch f := f.(type) {
	case nil:
		return Clause{Where: "1=1"}, nil
	case Equality:
		return translateEquality(f)
	case Pattern:
		return translatePattern(f)
	case Membership:
		return translateMembership(f)
	default:
		return Clause{}, fmt.Errorf("%w: unsupported filter type %T", ErrInvalidFilter, f)
	}
}

func translateEquality(f Equality) (Clause, error) {
	if len(f) == 0 {
		return Clause{Where: "1=1"}, nil
	}

	fields := make([]string, 0, len(f))
	for field := range f {
		if _, err := ident.Validate(field); err != nil {
			return Clause{}, err
		}
		fields = append(fields, field)
	}
	sort.Strings(fields)

	conditions := make([]string, 0, len(fields))
	var args []any
	for _, field := range fields {
		value, err := BindValue(f[field])
		if err != nil {
			return Clause{}, fmt.Errorf("%w: field %q: %w", ErrInvalidFilter, field, err)
		}
		switch value.(type) {
		case nil:
			conditions = append(conditions, typeOf(field)+" = 'null'")
			continue
		case string:
			// json_extract returns arrays and objects as JSON text.
			conditions = append(conditions, Extract(field)+" = ? AND "+typeOf(field)+" = 'text'")
		default:
			conditions = append(conditions, Extract(field)+" = ?")
		}
		args = append(args, value)
	}

	return Clause{Where: strings.Join(conditions, " AND "), Args: args}, nil
}

func translatePattern(f Pattern) (Clause, error) {
	if _, err := ident.Validate(f.Field); err != nil {
		return Clause{}, err
	}
	if f.Expr == "" {
		return Clause{}, &PatternError{Pattern: f.Expr, Err: errors.New("pattern must not be empty")}
	}
	if _, err := regexp.Compile(f.Expr); err != nil {
		return Clause{}, &PatternError{Pattern: f.Expr, Err: err}
	}

	return Clause{
		Where: patternSubject(f.Field) + " REGEXP ?",
		Args:  []any{f.Expr},
	}, nil
}

// patternSubject is the text a Pattern is matched against: strings as is,
// numbers as stored, booleans as true or false. Null, arrays, objects and
// missing fields yield NULL, which never matches.
func patternSubject(field string) string {
	x := Extract(field)
	return fmt.Sprintf("CASE %s WHEN 'text' THEN %s WHEN 'integer' THEN %s WHEN 'real' THEN %s "+
		"WHEN 'true' THEN 'true' WHEN 'false' THEN 'false' END", typeOf(field), x, x, x)
}

func translateMembership(f Membership) (Clause, error) {
	if _, err := ident.Validate(f.Field); err != nil {
		return Clause{}, err
	}
	if len(f.Values) == 0 {
		return Clause{}, fmt.Errorf("%w: membership on %q needs at least one value", ErrInvalidFilter, f.Field)
	}

	seen := make(map[any]struct{}, len(f.Values))
	var (
		texts, others []any
		wantNull      bool
	)
	for i, v := range f.Values {
		value, err := BindValue(v)
		if err != nil {
			return Clause{}, fmt.Errorf("%w: value %d: %w", ErrInvalidFilter, i, err)
		}
		if value == nil {
			wantNull = true
			continue
		}
		if _, dup := seen[value]; dup {
			continue
		}
		seen[value] = struct{}{}
		if _, ok := value.(string); ok {
			texts = append(texts, value)
		} else {
			others = append(others, value)
		}
	}

	var conditions []string
	if len(texts) > 0 {
		conditions = append(conditions, fmt.Sprintf("(%s IN (%s) AND %s = 'text')",
			Extract(f.Field), placeholders(len(texts)), typeOf(f.Field)))
	}
	if len(others) > 0 {
		conditions = append(conditions, fmt.Sprintf("%s IN (%s)", Extract(f.Field), placeholders(len(others))))
	}
	if wantNull {
		conditions = append(conditions, typeOf(f.Field)+" = 'null'")
	}

	where := strings.Join(conditions, " OR ")
	if len(conditions) > 1 {
		where = "(" + where + ")"
	}
	return Clause{Where: where, Args: append(texts, others...)}, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// BindValue converts a scalar filter value into the form SQLite compares
// against json_extract output: int64, float64, string, or nil for JSON
// null. Booleans bind as 1 and 0, which is how json_extract reports them.
func BindValue(v any) (any, error) {
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, nil
		}
		v = rv.Elem().Interface()
	}

	switch x := v.(type) {
	case nil:
		return nil, nil
	case string:
		return x, nil
	case bool:
		if x {
			return int64(1), nil
		}
		return int64(0), nil
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint:
		return bindUint(uint64(x))
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		return bindUint(x)
	case float32:
		return bindFloat(float64(x))
	case float64:
		return bindFloat(x)
	case json.Number:
		switch n := encoding.NormalizeNumber(x).(type) {
		case int64:
			return n, nil
		case float64:
			return bindFloat(n)
		default:
			f, err := x.Float64()
			if err != nil {
				return nil, fmt.Errorf("number %q is not valid", x)
			}
			return f, nil
		}
	}

	kind := encoding.KindOf(v)
	if kind == encoding.KindArray || kind == encoding.KindObject {
		return nil, fmt.Errorf("%s values cannot be used as filter values", kind)
	}
	return nil, fmt.Errorf("unsupported filter value of type %T", v)
}

func bindUint(u uint64) (any, error) {
	if u > math.MaxInt64 {
		return float64(u), nil
	}
	return int64(u), nil
}

func bindFloat(f float64) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("non-finite number %v", f)
	}
	return f, nil
}
