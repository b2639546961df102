// Package schema provides the document validators blueprints declare.
//
// A Schema accepts or rejects a candidate document and reports field-level
// problems. Three engines are available:
//   - CUE: schemas written in CUE, evaluated with the CUE SDK
//   - JSONSchema: JSON Schema documents, evaluated with gojsonschema
//   - Reflect: a JSON Schema reflected from a Go type
//
// Documents are always handed to the engine as their JSON encoding, so a
// value decoded from the log and the value originally written validate the
// same way.
package schema

import (
	"github.com/roach88/ddb/internal/fault"
)

// Format names for Schema.Format.
const (
	FormatCUE        = "cue"
	FormatJSONSchema = "jsonschema"
	FormatAny        = "any"
)

// Schema validates documents.
// Implementations must be safe for concurrent use.
type Schema interface {
	// Validate returns nil if doc conforms, or the field-level errors.
	Validate(doc any) []fault.FieldError

	// Format names the schema engine.
	Format() string
}

type anySchema struct{}

// Any returns a schema that accepts every document.
// Blueprints must always declare a schema; Any makes "no constraints" an
// explicit choice.
func Any() Schema {
	return anySchema{}
}

func (anySchema) Validate(any) []fault.FieldError { return nil }

func (anySchema) Format() string { return FormatAny }

// Compile builds a schema from source in the named format.
func Compile(format, src string) (Schema, error) {
	switch format {
	case FormatCUE, "":
		return CUE(src)
	case FormatJSONSchema:
		return JSONSchema(src)
	case FormatAny:
		return Any(), nil
	default:
		return nil, &UnknownFormatError{Format: format}
	}
}

// UnknownFormatError is returned by Compile for an unsupported format.
type UnknownFormatError struct {
	Format string
}

func (e *UnknownFormatError) Error() string {
	return "unknown schema format " + e.Format
}
