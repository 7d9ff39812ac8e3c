package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrUnsupportedVersion is returned for documents written by a newer build
var ErrUnsupportedVersion = errors.New("unsupported document version")

// JSONCodec reads and writes the JSON save document
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Format returns the codec format identifier
func (c *JSONCodec) Format() string {
	return "json"
}

// Parse decodes exactly one save document. Documents without a version are
// treated as version 1 so the migrator upgrades them.
func (c *JSONCodec) Parse(r io.Reader) (*Document, error) {
	var doc Document
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("failed to parse JSON: trailing data after document")
	}
	if err := checkVersion(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Export encodes a save document
func (c *JSONCodec) Export(doc *Document, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func checkVersion(doc *Document) error {
	switch {
	case doc.Version == 0:
		doc.Version = 1
	case doc.Version < 0 || doc.Version > CurrentVersion:
		return fmt.Errorf("document version %d (max %d): %w", doc.Version, CurrentVersion, ErrUnsupportedVersion)
	}
	return nil
}
