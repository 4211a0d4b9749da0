package cli

import (
	"errors"

	"github.com/thenoetrevino/kanban/internal/models"
)

// Exit codes for CLI commands.
// These codes follow Unix conventions and provide consistent error reporting
// across all CLI commands.
const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess = 0

	// ExitGeneral indicates a general error occurred.
	// Use for: network errors, server faults, or anything that doesn't fit
	// the specific categories below.
	ExitGeneral = 1

	// ExitUsage indicates incorrect command usage.
	// Use for: missing arguments, unparsable ids or flag combinations.
	ExitUsage = 2

	// ExitNotFound indicates a requested board, list, task or user does not exist.
	ExitNotFound = 3

	// ExitDataErr indicates invalid or malformed data, such as an unreadable
	// stdin description.
	ExitDataErr = 4

	// ExitValidation indicates the server rejected the input.
	ExitValidation = 5

	// ExitForbidden indicates the caller is not a member or not the owner.
	ExitForbidden = 6

	// ExitUnauthenticated indicates a missing, expired or rejected token.
	ExitUnauthenticated = 7
)

// ExitError carries the process exit code for a failed command. The message
// has already been printed by the formatter when Reported is set.
type ExitError struct {
	Code     int
	Err      error
	Reported bool
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode maps an error to the process exit code
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	code, _ := classify(err)
	return code
}

// classify returns the exit code and the machine-readable error code of err
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return ExitNotFound, "NOT_FOUND"
	case errors.Is(err, models.ErrValidation):
		return ExitValidation, "VALIDATION_ERROR"
	case errors.Is(err, models.ErrForbidden):
		return ExitForbidden, "FORBIDDEN"
	case errors.Is(err, models.ErrUnauthenticated):
		return ExitUnauthenticated, "UNAUTHENTICATED"
	}
	return ExitGeneral, "ERROR"
}
