//go:build !unix

package serialport

// classifyErrno leaves OS errors to the portable fs/io checks.
func classifyErrno(error) (error, bool) {
	return nil, false
}
