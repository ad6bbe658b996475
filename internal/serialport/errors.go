package serialport

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// Normalized port errors
var (
	ErrUnavailable = errors.New("UNAVAILABLE")
	ErrBusy        = errors.New("BUSY")
	ErrInternal    = errors.New("INTERNAL")
	ErrUnsupported = errors.New("UNSUPPORTED")
)

// PortError wraps a raw I/O error with its normalized code.
type PortError struct {
	Code     error // Normalized code
	Original error // Raw error from the OS
	Port     string
}

func (e *PortError) Error() string {
	if e.Port == "" {
		return fmt.Sprintf("%v (port: %v)", e.Code, e.Original)
	}
	return fmt.Sprintf("%v (port %s: %v)", e.Code, e.Port, e.Original)
}

func (e *PortError) Unwrap() []error {
	return []error{e.Code, e.Original}
}

// Normalize maps err to a *PortError. nil stays nil and errors that are
// already normalized are returned unchanged.
func Normalize(err error, port string) error {
	if err == nil {
		return nil
	}
	var portErr *PortError
	if errors.As(err, &portErr) {
		return err
	}

	return &PortError{
		Code:     classify(err),
		Original: err,
		Port:     port,
	}
}

func classify(err error) error {
	if code, ok := classifyErrno(err); ok {
		return code
	}

	switch {
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, fs.ErrPermission):
		return ErrUnavailable
	case errors.Is(err, os.ErrClosed), errors.Is(err, io.ErrClosedPipe), errors.Is(err, io.EOF):
		return ErrUnavailable
	case errors.Is(err, io.ErrShortWrite):
		return ErrBusy
	case errors.Is(err, os.ErrDeadlineExceeded):
		return ErrBusy
	}
	return ErrInternal
}
