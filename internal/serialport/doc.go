// Package serialport opens and configures the keyer's serial line.
//
// The keyer speaks 8 data bits, no parity, two stop bits at 1200 baud
// until told otherwise by the admin baud-rate commands. Errors coming off
// the line are normalized to UNAVAILABLE, BUSY or INTERNAL so callers can
// decide whether to abort the session.
package serialport
