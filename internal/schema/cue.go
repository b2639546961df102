package schema

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"

	"github.com/roach88/ddb/internal/fault"
)

// CUEOption configures a CUE schema.
type CUEOption func(*cueConfig)

type cueConfig struct {
	path string
}

// WithDefinition validates against the named definition (e.g. "#Profile")
// instead of the whole compiled value. Definitions are closed, so documents
// with unknown fields are rejected.
func WithDefinition(path string) CUEOption {
	return func(c *cueConfig) {
		c.path = path
	}
}

// CUESchema validates documents by unifying them with a CUE value.
//
// A cue.Context is not safe for concurrent use, so every evaluation holds mu.
type CUESchema struct {
	mu     sync.Mutex
	ctx    *cue.Context
	value  cue.Value
	source string
}

// CUE compiles src into a schema.
//
// Regular fields are required (a missing field leaves an incomplete value
// and fails concrete validation); use "field?:" for optional fields.
func CUE(src string, opts ...CUEOption) (*CUESchema, error) {
	var cfg cueConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx := cuecontext.New()
	v := ctx.CompileString(src)
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile cue schema: %w", formatCUEError(err))
	}
	if cfg.path != "" {
		v = v.LookupPath(cue.ParsePath(cfg.path))
		if !v.Exists() {
			return nil, fmt.Errorf("compile cue schema: definition %s not found", cfg.path)
		}
	}

	return &CUESchema{ctx: ctx, value: v, source: src}, nil
}

// MustCUE is like CUE but panics on error. Use for static blueprint tables.
func MustCUE(src string, opts ...CUEOption) *CUESchema {
	s, err := CUE(src, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// Format implements Schema.
func (s *CUESchema) Format() string { return FormatCUE }

// Source returns the CUE source the schema was compiled from.
func (s *CUESchema) Source() string { return s.source }

// Validate implements Schema.
func (s *CUESchema) Validate(doc any) []fault.FieldError {
	data, err := json.Marshal(doc)
	if err != nil {
		return []fault.FieldError{{Message: fmt.Sprintf("document is not JSON encodable: %v", err)}}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dv := s.ctx.CompileBytes(data)
	if err := dv.Err(); err != nil {
		return fieldErrors(err)
	}
	if err := s.value.Unify(dv).Validate(cue.Concrete(true)); err != nil {
		return fieldErrors(err)
	}
	return nil
}

// fieldErrors flattens a CUE error list into field errors.
func fieldErrors(err error) []fault.FieldError {
	var out []fault.FieldError
	for _, e := range errors.Errors(err) {
		format, args := e.Msg()
		out = append(out, fault.FieldError{
			Path:    strings.Join(e.Path(), "."),
			Message: fmt.Sprintf(format, args...),
		})
	}
	if len(out) == 0 {
		out = append(out, fault.FieldError{Message: err.Error()})
	}
	return out
}

// formatCUEError renders every error in a CUE error list on one line.
func formatCUEError(err error) error {
	list := errors.Errors(err)
	if len(list) <= 1 {
		return err
	}
	msgs := make([]string, len(list))
	for i, e := range list {
		msgs[i] = e.Error()
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}
