package sagittadb

import "github.com/liliang-cn/sagittadb/pkg/core"

// Errors returned by Collection methods. Test for them with errors.Is.
var (
	ErrInvalidIdentifier = core.ErrInvalidIdentifier
	ErrInvalidFilter     = core.ErrInvalidFilter
	ErrInvalidPattern    = core.ErrInvalidPattern
	ErrUnserializable    = core.ErrUnserializable
	ErrCorrupted         = core.ErrCorrupted
	ErrExecution         = core.ErrExecution
	ErrClosed            = core.ErrClosed
	ErrInvalidDocument   = core.ErrInvalidDocument
	ErrInvalidArgument   = core.ErrInvalidArgument
	ErrNotFound          = core.ErrNotFound
)

type (
	// StoreError carries the name of the failed operation.
	StoreError = core.StoreError
	// IdentifierError reports a rejected field name.
	IdentifierError = core.IdentifierError
	// PatternError reports a regular expression that does not compile.
	PatternError = core.PatternError
	// UnserializableValueError reports the path of a value that cannot be encoded.
	UnserializableValueError = core.UnserializableValueError
	// CorruptionError reports a stored document that failed to decode.
	CorruptionError = core.CorruptionError
)
