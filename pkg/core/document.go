package core

import (
	"github.com/liliang-cn/sagittadb/internal/encoding"
	"github.com/liliang-cn/sagittadb/internal/query"
)

// Document is a JSON-like mapping from field names to values. Values are
// strings, numbers, booleans, nil, nested Documents or map[string]any, and
// slices of these.
type Document = encoding.Document

// Equality matches documents whose fields equal every given scalar value.
// A nil value matches a field holding JSON null.
type Equality = query.Equality

// Codec converts documents to and from their stored text form.
type Codec = encoding.Codec

// JSONCodec is the default codec, built on encoding/json.
type JSONCodec = encoding.JSONCodec

// FastJSONCodec produces the same format as JSONCodec using goccy/go-json.
type FastJSONCodec = encoding.FastJSONCodec

// CodecByName returns the codec registered under name ("std" or "fast").
func CodecByName(name string) (Codec, error) {
	return encoding.CodecByName(name)
}

// IndexInfo describes an expression index on a document field.
type IndexInfo struct {
	Field      string `json:"field" yaml:"field"`
	Name       string `json:"name" yaml:"name"`
	Expression string `json:"expression" yaml:"expression"`
}

// Stats summarises a collection.
type Stats struct {
	ID        string      `json:"id" yaml:"id"`
	Path      string      `json:"path" yaml:"path"`
	InMemory  bool        `json:"in_memory" yaml:"in_memory"`
	Codec     string      `json:"codec" yaml:"codec"`
	Documents int64       `json:"documents" yaml:"documents"`
	LastID    int64       `json:"last_id" yaml:"last_id"`
	Indexes   []IndexInfo `json:"indexes" yaml:"indexes"`
	PageSize  int64       `json:"page_size" yaml:"page_size"`
	PageCount int64       `json:"page_count" yaml:"page_count"`
	SizeBytes int64       `json:"size_bytes" yaml:"size_bytes"`
}
