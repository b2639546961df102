package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/roach88/ddb/internal/fault"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Command ran and the request succeeded
	ExitFailure      = 1 // SCHEMA_VALIDATION, NOT_FOUND, UNAUTHORIZED, RESOLVED_ADDRESS_INVALID
	ExitCommandError = 2 // CONFIG, INVALID_JSON, BLUEPRINT_NOT_FOUND, MANAGER_STOPPED and the rest
)

// ExitError carries the exit code a failed command terminates with.
// Message is the DDB error code the failure was reported under.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError returns an ExitError with no underlying cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError returns an ExitError around err.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from err, ExitFailure if it carries none.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter writes command results as text or as JSON envelopes.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // diagnostics; defaults to Writer
	Verbose   bool
}

// CLIResponse is the JSON envelope every command writes in json mode.
type CLIResponse struct {
	Status string    `json:"status"` // "ok" or "error"
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError describes a failed request.
//
// Code is a fault code (SCHEMA_VALIDATION, BLUEPRINT_NOT_FOUND,
// MALFORMED_ADDRESS, ...) or one of the CLI codes for failures without one
// (NOT_FOUND, UNAUTHORIZED, INVALID_JSON, CONFIG, NO_IDENTITY, INTERNAL).
// Address names the store or identifier the failure concerns. Details holds
// the field errors of a rejected document.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Address string `json:"address,omitempty"`
	Details any    `json:"details,omitempty"`
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error with no address in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	return f.write(&CLIError{Code: code, Message: message, Details: details})
}

// Report outputs err under code. The address and schema field errors of a
// fault are carried along.
func (f *OutputFormatter) Report(code string, err error) error {
	e := &CLIError{Code: code, Message: err.Error()}
	var fe *fault.Error
	if errors.As(err, &fe) {
		e.Address = fe.Address
		if len(fe.Fields) > 0 {
			e.Details = fe.Fields
		}
	}
	return f.write(e)
}

// write renders e. Text errors are red when the output is a terminal and
// field errors print one per line in verbose mode.
func (f *OutputFormatter) write(e *CLIError) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "error", Error: e})
	}

	red := color.New(color.FgRed)
	red.Fprintf(f.Writer, "Error [%s]: %s\n", e.Code, e.Message)
	if !f.Verbose || e.Details == nil {
		return nil
	}
	if fields, ok := e.Details.([]fault.FieldError); ok {
		for _, field := range fields {
			fmt.Fprintf(f.Writer, "  - %s\n", field)
		}
		return nil
	}
	fmt.Fprintf(f.Writer, "Details: %v\n", e.Details)
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
