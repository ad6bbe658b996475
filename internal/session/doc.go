// Package session drives a WinKeyer over an open serial line.
//
// A Session owns the port. Every command is encoded with the winkeyer
// package and written as one contiguous Write under a mutex, so frames
// from concurrent callers never interleave on the wire. Each frame is
// logged, audited and optionally captured.
//
// Session timing (Pulse, Run) is best effort: the keyer itself does the
// precise element timing.
package session
