package core

import (
	"errors"
	"fmt"

	"github.com/liliang-cn/sagittadb/internal/encoding"
	"github.com/liliang-cn/sagittadb/internal/ident"
	"github.com/liliang-cn/sagittadb/internal/query"
	"github.com/liliang-cn/sagittadb/internal/sqlite"
)

// Common errors. Use errors.Is to test for them; every error returned by a
// Collection is a *StoreError wrapping one of these.
var (
	// ErrInvalidIdentifier is returned when a field name is not a safe identifier
	ErrInvalidIdentifier = ident.ErrInvalid

	// ErrInvalidFilter is returned for malformed or semantically empty filters
	ErrInvalidFilter = query.ErrInvalidFilter

	// ErrInvalidPattern is returned when a regular expression does not compile
	ErrInvalidPattern = query.ErrInvalidPattern

	// ErrUnserializable is returned when a document holds a value that cannot be encoded
	ErrUnserializable = encoding.ErrUnserializable

	// ErrCorrupted is returned when a stored body cannot be decoded
	ErrCorrupted = errors.New("corrupted document")

	// ErrExecution is returned when the SQLite engine reports a failure
	ErrExecution = sqlite.ErrExecution

	// ErrClosed is returned when trying to use a closed collection
	ErrClosed = sqlite.ErrClosed

	// ErrInvalidDocument is returned when a nil document is inserted
	ErrInvalidDocument = errors.New("document must be a non-nil mapping")

	// ErrInvalidArgument is returned for out-of-range arguments such as a negative limit
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound is returned when no document has the requested id
	ErrNotFound = errors.New("document not found")
)

// IdentifierError reports a rejected field name.
type IdentifierError = ident.Error

// PatternError reports a regular expression that does not compile.
type PatternError = query.PatternError

// UnserializableValueError reports the path of a value that cannot be encoded.
type UnserializableValueError = encoding.UnserializableError

// CorruptionError reports a stored record whose body failed to decode.
type CorruptionError struct {
	ID  int64
	Err error
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("document %d: %v", e.ID, e.Err)
}

// Unwrap returns both ErrCorrupted and the decode error.
func (e *CorruptionError) Unwrap() []error {
	return []error{ErrCorrupted, e.Err}
}

// StoreError wraps errors with operation context
type StoreError struct {
	Op  string // Operation name
	Err error  // Underlying error
}

// Error implements the error interface
func (e *StoreError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("sagittadb: %v", e.Err)
	}
	return fmt.Sprintf("sagittadb: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *StoreError) Unwrap() error {
	return e.Err
}

// wrapError wraps an error with operation context
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}
