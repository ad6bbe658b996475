// Package audit implements the frame audit log for the keyer runner.
//
// Every frame the session writes, or fails to write, is appended as one
// JSON line with the command name, opcode, hex frame, outcome and a
// normalized code. The file rotates by size.
package audit
