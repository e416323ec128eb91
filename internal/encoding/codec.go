package encoding

import (
	"bytes"
	"encoding/json"
	"fmt"

	gojson "github.com/goccy/go-json"
)

// Codec turns documents into the text stored in the data column and back.
// Implementations must agree on the wire format so that a store written
// with one codec can be read with another.
type Codec interface {
	// Name identifies the codec in logs and configuration.
	Name() string
	// Encode validates doc and returns its compact JSON encoding.
	Encode(doc Document) ([]byte, error)
	// Decode parses a stored body back into a Document.
	Decode(data []byte) (Document, error)
}

// JSONCodec is the canonical codec built on encoding/json.
type JSONCodec struct{}

// Name implements Codec.
func (JSONCodec) Name() string { return "std" }

// Encode implements Codec.
func (JSONCodec) Encode(doc Document) ([]byte, error) {
	if err := Validate(doc); err != nil {
		return nil, err
	}
	data, err := json.Marshal(map[string]any(doc))
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return data, nil
}

// Decode implements Codec.
func (JSONCodec) Decode(data []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: not a JSON object", ErrMalformed)
	}
	return Document(normalize(doc).(map[string]any)), nil
}

// FastJSONCodec produces the same encoding as JSONCodec using
// github.com/goccy/go-json.
type FastJSONCodec struct{}

// Name implements Codec.
func (FastJSONCodec) Name() string { return "fast" }

// Encode implements Codec.
func (FastJSONCodec) Encode(doc Document) ([]byte, error) {
	if err := Validate(doc); err != nil {
		return nil, err
	}
	data, err := gojson.Marshal(map[string]any(doc))
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return data, nil
}

// Decode implements Codec.
func (FastJSONCodec) Decode(data []byte) (Document, error) {
	dec := gojson.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: not a JSON object", ErrMalformed)
	}
	return Document(normalize(doc).(map[string]any)), nil
}

// CodecByName returns the codec registered under name ("std" or "fast").
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", "std", "json":
		return JSONCodec{}, nil
	case "fast":
		return FastJSONCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}
