package encoding

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// Document is a schema-less JSON object. Values are limited to the kinds
// reported by KindOf.
type Document map[string]any

// Kind enumerates the closed set of values a Document may hold.
type Kind int

const (
	KindInvalid Kind = iota
	KindNull
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// String returns the JSON name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "invalid"
	}
}

// IsScalar reports whether the kind can be bound as a single SQL parameter.
func (k Kind) IsScalar() bool {
	return k == KindNull || k == KindBool || k == KindNumber || k == KindString
}

// ErrUnserializable is matched by every *UnserializableError.
var ErrUnserializable = errors.New("unserializable value")

// ErrMalformed is returned when stored bytes are not a JSON object.
var ErrMalformed = errors.New("malformed document")

// UnserializableError reports the first value in a document that falls
// outside the supported kinds.
type UnserializableError struct {
	Path string
	Type string
}

func (e *UnserializableError) Error() string {
	return fmt.Sprintf("value at %s of type %s cannot be stored", e.Path, e.Type)
}

// Unwrap returns ErrUnserializable.
func (e *UnserializableError) Unwrap() error {
	return ErrUnserializable
}

// KindOf classifies v. Typed slices and maps with string keys are accepted
// alongside []any and map[string]any.
func KindOf(v any) Kind {
	switch x := v.(type) {
	case nil:
		return KindNull
	case bool:
		return KindBool
	case string:
		return KindString
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return KindNumber
	case float32:
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return KindInvalid
		}
		return KindNumber
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return KindInvalid
		}
		return KindNumber
	case json.Number:
		if _, err := strconv.ParseFloat(string(x), 64); err != nil {
			return KindInvalid
		}
		return KindNumber
	case []any:
		return KindArray
	case map[string]any, Document:
		return KindObject
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			// []byte would be base64 encoded by encoding/json.
			return KindInvalid
		}
		return KindArray
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			return KindObject
		}
	case reflect.Pointer:
		if rv.IsNil() {
			return KindNull
		}
		return KindOf(rv.Elem().Interface())
	}
	return KindInvalid
}

// Validate walks doc and returns an *UnserializableError for the first
// value outside the supported kinds.
func Validate(doc Document) error {
	for key, value := range doc {
		if err := validateValue(key, value); err != nil {
			return err
		}
	}
	return nil
}

func validateValue(path string, v any) error {
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && !rv.IsNil() {
		return validateValue(path, rv.Elem().Interface())
	}
	switch KindOf(v) {
	case KindInvalid:
		return &UnserializableError{Path: path, Type: fmt.Sprintf("%T", v)}
	case KindArray:
		rv := reflect.ValueOf(v)
		for i := 0; i < rv.Len(); i++ {
			if err := validateValue(fmt.Sprintf("%s[%d]", path, i), rv.Index(i).Interface()); err != nil {
				return err
			}
		}
	case KindObject:
		rv := reflect.ValueOf(v)
		iter := rv.MapRange()
		for iter.Next() {
			if err := validateValue(path+"."+iter.Key().String(), iter.Value().Interface()); err != nil {
				return err
			}
		}
	}
	return nil
}

// NormalizeNumber converts a decoded json.Number into int64 when it is an
// integer that fits, keeps it as json.Number for larger integers and falls
// back to float64 otherwise.
func NormalizeNumber(n json.Number) any {
	s := string(n)
	if i, err := n.Int64(); err == nil {
		return i
	}
	if !strings.ContainsAny(s, ".eE") {
		return n
	}
	f, err := n.Float64()
	if err != nil {
		return n
	}
	return f
}

// normalize replaces json.Number values produced by a UseNumber decoder.
func normalize(v any) any {
	switch x := v.(type) {
	case json.Number:
		return NormalizeNumber(x)
	case map[string]any:
		for k, item := range x {
			x[k] = normalize(item)
		}
		return x
	case []any:
		for i, item := range x {
			x[i] = normalize(item)
		}
		return x
	default:
		return v
	}
}
