package cli

import (
	"errors"

	"github.com/roach88/ddb/internal/fault"
	"github.com/roach88/ddb/internal/logstore"
)

// CLI error codes for failures that carry no fault code.
const (
	ErrCodeGeneric      = "INTERNAL"
	ErrCodeConfig       = "CONFIG"
	ErrCodeInvalidJSON  = "INVALID_JSON"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeNoIdentity   = "NO_IDENTITY"
)

var (
	// errNotFound marks a missing key, document or store.
	errNotFound = errors.New("not found")

	// errInvalidJSON marks an argument that is not the JSON the command needs.
	errInvalidJSON = errors.New("invalid json")
)

// errorCode maps err to the code reported to the user.
func errorCode(err error) string {
	if code := fault.CodeOf(err); code != "" {
		return string(code)
	}
	switch {
	case errors.Is(err, errNotFound), errors.Is(err, logstore.ErrNotFound):
		return ErrCodeNotFound
	case errors.Is(err, errInvalidJSON):
		return ErrCodeInvalidJSON
	case errors.Is(err, logstore.ErrUnauthorized):
		return ErrCodeUnauthorized
	case errors.Is(err, logstore.ErrNoIdentity):
		return ErrCodeNoIdentity
	default:
		return ErrCodeGeneric
	}
}

// exitCodeFor separates failures of the request itself from failures to
// run the command at all.
func exitCodeFor(code string) int {
	switch code {
	case string(fault.ErrCodeSchemaValidation),
		string(fault.ErrCodeResolvedAddressInvalid),
		ErrCodeNotFound,
		ErrCodeUnauthorized:
		return ExitFailure
	default:
		return ExitCommandError
	}
}

// fail reports err through f and returns the ExitError the command exits
// with. Validation errors carry their field list as details.
func fail(f *OutputFormatter, err error) error {
	return failWith(f, errorCode(err), err)
}

func failWith(f *OutputFormatter, code string, err error) error {
	_ = f.Report(code, err)
	return WrapExitError(exitCodeFor(code), code, err)
}
