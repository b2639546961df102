// Package fault defines the error taxonomy shared by every DDB package.
//
// Errors raised by DDB itself are *Error values carrying a Code. Callers
// classify them with Is (which unwraps) instead of matching on strings.
// Errors coming from the peer node substrate are never converted into an
// *Error: they pass through as-is so their substrate-specific meaning is
// preserved.
package fault

import (
	"errors"
	"fmt"
	"strings"
)

// Code categorizes DDB errors.
type Code string

const (
	// ErrCodeMalformedAddress indicates a string that is not a canonical address.
	ErrCodeMalformedAddress Code = "MALFORMED_ADDRESS"

	// ErrCodeInvalidIdentifierForm indicates a resolver identifier that is
	// not of the form "<key>.<id>".
	ErrCodeInvalidIdentifierForm Code = "INVALID_IDENTIFIER_FORM"

	// ErrCodeResolverNotFound indicates no resolver is registered for the key.
	ErrCodeResolverNotFound Code = "RESOLVER_NOT_FOUND"

	// ErrCodeResolvedAddressInvalid indicates a resolver returned a string
	// that does not parse as an address.
	ErrCodeResolvedAddressInvalid Code = "RESOLVED_ADDRESS_INVALID"

	// ErrCodeInvalidStoreName indicates a blueprint name containing a dot.
	ErrCodeInvalidStoreName Code = "INVALID_STORE_NAME"

	// ErrCodeSchemaMissing indicates a blueprint declared without a schema.
	ErrCodeSchemaMissing Code = "SCHEMA_MISSING"

	// ErrCodeWrongBlueprintForStore indicates the address name segment does
	// not match the blueprint used to open it.
	ErrCodeWrongBlueprintForStore Code = "WRONG_BLUEPRINT_FOR_STORE"

	// ErrCodeStoreKindMismatch indicates the opened log reports a different
	// kind than the blueprint requires.
	ErrCodeStoreKindMismatch Code = "STORE_KIND_MISMATCH"

	// ErrCodeSchemaValidation indicates a document rejected by the schema.
	ErrCodeSchemaValidation Code = "SCHEMA_VALIDATION"

	// ErrCodeBlueprintNotFound indicates a lookup of an unregistered blueprint.
	ErrCodeBlueprintNotFound Code = "BLUEPRINT_NOT_FOUND"

	// ErrCodeDuplicateBlueprint indicates two blueprints registered under one name.
	ErrCodeDuplicateBlueprint Code = "DUPLICATE_BLUEPRINT"

	// ErrCodeUnsupportedOperation indicates an operation the store kind lacks.
	ErrCodeUnsupportedOperation Code = "UNSUPPORTED_OPERATION"

	// ErrCodeManagerStopped indicates use of a manager after Stop.
	ErrCodeManagerStopped Code = "MANAGER_STOPPED"
)

// FieldError is a single field-level complaint from a schema validator.
type FieldError struct {
	// Path is the dotted path of the offending field ("" for the document root).
	Path string `json:"path"`

	// Message is the validator's description of the problem.
	Message string `json:"message"`
}

func (f FieldError) String() string {
	if f.Path == "" {
		return f.Message
	}
	return f.Path + ": " + f.Message
}

// Error is a DDB error with a code and optional structured detail.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Message is a human-readable description.
	Message string

	// Address is the canonical address or identifier involved, if any.
	Address string

	// Fields carries validator detail for ErrCodeSchemaValidation.
	Fields []FieldError

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)
	if e.Address != "" {
		fmt.Fprintf(&b, " (address=%s)", e.Address)
	}
	if len(e.Fields) > 0 {
		parts := make([]string, len(e.Fields))
		for i, f := range e.Fields {
			parts[i] = f.String()
		}
		fmt.Fprintf(&b, " [%s]", strings.Join(parts, "; "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error with the given code and message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error with the given code around an underlying cause.
func Wrap(code Code, err error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// WithAddress returns e with Address set. It mutates and returns e for chaining.
func (e *Error) WithAddress(addr string) *Error {
	e.Address = addr
	return e
}

// NewValidationError creates an ErrCodeSchemaValidation error for a store.
func NewValidationError(store string, fields []FieldError) *Error {
	return &Error{
		Code:    ErrCodeSchemaValidation,
		Message: fmt.Sprintf("document rejected by schema of store %s", store),
		Fields:  fields,
	}
}

// Is reports whether err, or anything it wraps, is an *Error with the code.
func Is(err error, code Code) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code == code
	}
	return false
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) Code {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return ""
}

// FieldsOf returns the validator detail carried by err, if any.
func FieldsOf(err error) []FieldError {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Fields
	}
	return nil
}
