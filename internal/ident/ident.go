// Package ident validates document field names before they are embedded in
// generated SQL text (JSON paths, expression index names).
package ident

import (
	"errors"
	"fmt"
	"regexp"
)

// MaxLength is the longest accepted field name in bytes.
const MaxLength = 64

var namePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ErrInvalid is matched by every *Error.
var ErrInvalid = errors.New("invalid identifier")

// Error describes why a field name was rejected.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid field name %q: %s", e.Field, e.Reason)
}

// Unwrap returns ErrInvalid.
func (e *Error) Unwrap() error {
	return ErrInvalid
}

// Validate returns name unchanged if it is safe to interpolate into query
// text, or an *Error otherwise.
func Validate(name string) (string, error) {
	switch {
	case name == "":
		return "", &Error{Field: name, Reason: "must not be empty"}
	case len(name) > MaxLength:
		return "", &Error{Field: name, Reason: fmt.Sprintf("longer than %d bytes", MaxLength)}
	case name[0] >= '0' && name[0] <= '9':
		return "", &Error{Field: name, Reason: "must not start with a digit"}
	case !namePattern.MatchString(name):
		return "", &Error{Field: name, Reason: "only letters, digits and underscore are allowed"}
	}
	return name, nil
}
