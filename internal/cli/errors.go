package cli

import (
	"errors"
	"fmt"

	"aioniser/internal/action"
	"aioniser/internal/config"
	"aioniser/internal/cycle"
	"aioniser/internal/state"
)

// Exit codes. Each error kind has its own code so scripts bound to a
// trigger can tell failures apart.
const (
	ExitCodeOK             = 0
	ExitCodeGeneric        = 1
	ExitCodeConfigNotFound = 2
	ExitCodeCycleNotFound  = 3
	ExitCodeCorruptState   = 4
	ExitCodePersistence    = 5
	ExitCodeInvalidConfig  = 6
)

// ExitError represents a command failure with a specific exit code.
//
// This error type allows Cobra RunE functions to signal non-zero exit codes
// without calling os.Exit() directly, enabling testable CLI behavior.
// The [Execute] function performs the actual os.Exit() based on the code.
type ExitError struct {
	// Code is the exit code to return to the shell.
	Code int

	// Err is the underlying failure, if any.
	Err error
}

// Error implements the error interface. Without an underlying error it
// returns "exit status N", matching the os/exec ExitError format.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates an [ExitError] with the given exit code.
func NewExitError(code int) *ExitError {
	return &ExitError{Code: code}
}

// usageError reports a command invoked with invalid arguments or flags.
func usageError(format string, args ...any) *ExitError {
	return &ExitError{Code: ExitCodeGeneric, Err: fmt.Errorf(format, args...)}
}

// IsExitError checks if an error is an [ExitError] and extracts its exit code.
//
// Returns (code, true) if err is or wraps an *ExitError, (0, false) otherwise.
func IsExitError(err error) (int, bool) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code, true
	}
	return 0, false
}

// ExitCodeFor maps an error to its exit code.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitCodeOK
	}
	if code, ok := IsExitError(err); ok {
		return code
	}

	var (
		configNotFound *config.ConfigNotFoundError
		invalidConfig  *config.InvalidConfigError
		cycleNotFound  *config.CycleNotFoundError
		corrupt        *state.CorruptStateError
		persistence    *state.PersistenceError
		unknownAction  *action.UnknownActionError
		missingParam   *action.MissingTemplateParameterError
		unusedParam    *action.UnusedTemplateParameterError
		malformed      *action.MalformedTemplateError
	)

	switch {
	case errors.As(err, &configNotFound):
		return ExitCodeConfigNotFound
	case errors.As(err, &cycleNotFound):
		return ExitCodeCycleNotFound
	case errors.As(err, &corrupt):
		return ExitCodeCorruptState
	case errors.As(err, &persistence):
		return ExitCodePersistence
	case errors.As(err, &invalidConfig),
		errors.As(err, &unknownAction),
		errors.As(err, &missingParam),
		errors.As(err, &unusedParam),
		errors.As(err, &malformed),
		errors.Is(err, cycle.ErrEmptyCycle),
		errors.Is(err, cycle.ErrEmptyStep),
		errors.Is(err, cycle.ErrMissingAction),
		errors.Is(err, cycle.ErrNegativeResetTimeout):
		return ExitCodeInvalidConfig
	default:
		return ExitCodeGeneric
	}
}

// Describe returns the user-facing message for an error, with a hint on
// how to recover where one exists.
func Describe(err error) string {
	var (
		configNotFound *config.ConfigNotFoundError
		cycleNotFound  *config.CycleNotFoundError
		corrupt        *state.CorruptStateError
		persistence    *state.PersistenceError
		unknownAction  *action.UnknownActionError
	)

	switch {
	case errors.As(err, &configNotFound):
		return fmt.Sprintf("config file not found: %s (run 'aioniser init' to create one)", configNotFound.Path)
	case errors.As(err, &cycleNotFound):
		return cycleNotFound.Error()
	case errors.As(err, &corrupt):
		return fmt.Sprintf("%v (run 'aioniser reset --all' to start over)", corrupt)
	case errors.As(err, &persistence):
		return fmt.Sprintf("could not save cycle state: %v", persistence)
	case errors.As(err, &unknownAction):
		return fmt.Sprintf("invalid configuration: %v", err)
	case ExitCodeFor(err) == ExitCodeInvalidConfig:
		return fmt.Sprintf("invalid configuration: %v", err)
	default:
		return err.Error()
	}
}
