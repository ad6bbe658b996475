// Package fake provides an in-memory serial port for testing.
package fake

import (
	"fmt"
	"os"
	"sync"

	"github.com/radio-control/keyer/internal/serialport"
)

// Port records every Write as one frame.
type Port struct {
	mu     sync.Mutex
	frames [][]byte
	bauds  []int
	baud   int
	closed bool

	// Error simulation
	simulateErrors bool
	errorType      string
	shortWrite     bool
}

// NewPort creates a fake port at 1200 baud.
func NewPort() *Port {
	return &Port{baud: 1200}
}

// Write records b as one frame.
func (p *Port) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0, serialport.Normalize(os.ErrClosed, "fake")
	}
	if p.simulateErrors {
		return 0, p.getSimulatedError()
	}
	if p.shortWrite && len(b) > 1 {
		p.frames = append(p.frames, append([]byte(nil), b[:1]...))
		return 1, nil
	}

	p.frames = append(p.frames, append([]byte(nil), b...))
	return len(b), nil
}

// SetBaud records a line speed change.
func (p *Port) SetBaud(baud int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.simulateErrors {
		return p.getSimulatedError()
	}
	p.baud = baud
	p.bauds = append(p.bauds, baud)
	return nil
}

// Close marks the port closed; later writes fail as UNAVAILABLE.
func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Helper methods for testing

// Frames returns a copy of the frames written so far.
func (p *Port) Frames() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([][]byte, len(p.frames))
	for i, f := range p.frames {
		out[i] = append([]byte(nil), f...)
	}
	return out
}

// Bytes returns every written byte in order.
func (p *Port) Bytes() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []byte
	for _, f := range p.frames {
		out = append(out, f...)
	}
	return out
}

// Bauds returns the line speeds set through SetBaud.
func (p *Port) Bauds() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int(nil), p.bauds...)
}

// Baud returns the current line speed.
func (p *Port) Baud() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.baud
}

// Closed reports whether Close was called.
func (p *Port) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// SetErrorSimulation makes every later write fail with errorType
// (UNAVAILABLE, BUSY or INTERNAL).
func (p *Port) SetErrorSimulation(errorType string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.simulateErrors = true
	p.errorType = errorType
}

// SetShortWrite makes multi-byte writes accept only their first byte.
func (p *Port) SetShortWrite(short bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shortWrite = short
}

// DisableErrorSimulation disables error simulation.
func (p *Port) DisableErrorSimulation() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.simulateErrors = false
	p.errorType = ""
}

func (p *Port) getSimulatedError() error {
	var code error
	switch p.errorType {
	case "UNAVAILABLE":
		code = serialport.ErrUnavailable
	case "BUSY":
		code = serialport.ErrBusy
	default:
		code = serialport.ErrInternal
	}
	return &serialport.PortError{
		Code:     code,
		Original: fmt.Errorf("simulated %s error", p.errorType),
		Port:     "fake",
	}
}
