package winkeyer

import (
	"errors"
	"fmt"
)

// Normalized encoder errors.
var (
	// ErrInvalidPayload marks a command whose payload violates the device layout.
	ErrInvalidPayload = errors.New("INVALID_PAYLOAD")

	// ErrNilCommand is returned when there is no command to encode.
	ErrNilCommand = errors.New("NIL_COMMAND")
)

// PayloadError describes which field of which command was rejected.
type PayloadError struct {
	Command string // Catalog name, e.g. "Admin/LoadEEPROM"
	Field   string
	Reason  string
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("%v: %s.%s %s", ErrInvalidPayload, e.Command, e.Field, e.Reason)
}

func (e *PayloadError) Unwrap() error {
	return ErrInvalidPayload
}

func invalidPayload(command, field, format string, args ...interface{}) error {
	return &PayloadError{
		Command: command,
		Field:   field,
		Reason:  fmt.Sprintf(format, args...),
	}
}
