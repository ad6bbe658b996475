// Package winkeyer implements the host-to-keyer command encoder for the
// WinKeyer serial protocol.
//
// Every operation the host can request is a value of the sealed Command
// interface. Administrative operations live in a second catalog,
// AdminCommand, and reach the wire wrapped in Admin. Encoding is a pure
// function of the value: the same command always yields the same frame,
// and a frame is never partially produced.
//
// Device References:
//   - WK3 Datasheet §Host Commands: command opcodes 0x00-0x1F
//   - WK3 Datasheet §Admin Commands: admin sub-opcodes
//   - WK3 Datasheet §Serial Interface: 1200 baud default, 9600 after admin SetBaudRateHigh
package winkeyer
