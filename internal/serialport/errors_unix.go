//go:build unix

package serialport

import (
	"errors"

	"golang.org/x/sys/unix"
)

// errnoCodes is the deterministic errno mapping table.
var errnoCodes = map[unix.Errno]error{
	unix.ENOENT: ErrUnavailable,
	unix.ENODEV: ErrUnavailable,
	unix.ENXIO:  ErrUnavailable,
	unix.EIO:    ErrUnavailable,
	unix.EBADF:  ErrUnavailable,
	unix.EBUSY:  ErrBusy,
	unix.EAGAIN: ErrBusy,
	unix.EACCES: ErrUnavailable,
	unix.EPERM:  ErrUnavailable,
}

// classifyErrno maps an errno anywhere in err's chain. Unlisted errnos
// are INTERNAL.
func classifyErrno(err error) (error, bool) {
	var errno unix.Errno
	if !errors.As(err, &errno) {
		return nil, false
	}
	if code, ok := errnoCodes[errno]; ok {
		return code, true
	}
	return ErrInternal, true
}
