package module

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateCommand is matched by *DuplicateCommandError.
	ErrDuplicateCommand = errors.New("duplicate command")

	// ErrValidation is matched by *ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrUnknownCommand is returned when no module owns a command name.
	ErrUnknownCommand = errors.New("unknown command")
)

// DuplicateCommandError reports two modules declaring the same command name.
// It is a configuration bug and aborts startup.
type DuplicateCommandError struct {
	Command  string
	Existing string
	Incoming string
}

func (e *DuplicateCommandError) Error() string {
	return fmt.Sprintf("duplicate command: %q declared by module %s is already owned by module %s",
		e.Command, e.Incoming, e.Existing)
}

func (e *DuplicateCommandError) Is(target error) bool {
	return target == ErrDuplicateCommand
}

// ValidationError carries a corrective message for the invoking user. No state
// is created when a handler returns one.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Invalid returns a *ValidationError with the given user-facing message.
func Invalid(message string) error {
	return &ValidationError{Message: message}
}
