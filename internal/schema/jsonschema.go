package schema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/xeipuuv/gojsonschema"

	"github.com/roach88/ddb/internal/fault"
)

// rootField is how gojsonschema names the document root.
const rootField = "(root)"

// JSONSchemaSchema validates documents against a JSON Schema document.
type JSONSchemaSchema struct {
	schema *gojsonschema.Schema
	source string
}

// JSONSchema compiles a JSON Schema document (draft-04 to draft-07).
func JSONSchema(src string) (*JSONSchemaSchema, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		return nil, fmt.Errorf("compile json schema: %w", err)
	}
	return &JSONSchemaSchema{schema: s, source: src}, nil
}

// Reflect builds a JSON Schema from the Go type of v.
//
// Struct fields are required unless tagged omitempty, and unknown fields are
// rejected.
func Reflect(v any) (*JSONSchemaSchema, error) {
	r := jsonschema.Reflector{Anonymous: true, DoNotReference: true}
	s := r.Reflect(v)
	// gojsonschema only understands drafts up to 7; drop the 2020-12 marker.
	s.Version = ""
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("reflect schema for %T: %w", v, err)
	}
	return JSONSchema(string(data))
}

// MustReflect is like Reflect but panics on error.
func MustReflect(v any) *JSONSchemaSchema {
	s, err := Reflect(v)
	if err != nil {
		panic(err)
	}
	return s
}

// Format implements Schema.
func (s *JSONSchemaSchema) Format() string { return FormatJSONSchema }

// Source returns the JSON Schema document.
func (s *JSONSchemaSchema) Source() string { return s.source }

// Validate implements Schema.
func (s *JSONSchemaSchema) Validate(doc any) []fault.FieldError {
	data, err := json.Marshal(doc)
	if err != nil {
		return []fault.FieldError{{Message: fmt.Sprintf("document is not JSON encodable: %v", err)}}
	}
	res, err := s.schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return []fault.FieldError{{Message: err.Error()}}
	}
	if res.Valid() {
		return nil
	}
	out := make([]fault.FieldError, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		path := e.Field()
		if path == rootField {
			path = ""
		}
		out = append(out, fault.FieldError{Path: path, Message: e.Description()})
	}
	return out
}
