package serialport

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/tarm/serial"
)

// Config holds serial port configuration
type Config struct {
	Path        string        // Device path, e.g. /dev/ttyUSB0
	Baud        int           // 1200 or 9600
	StopBits    int           // 1 or 2
	ReadTimeout time.Duration // Read timeout, 100 ms resolution
}

var supportedBauds = map[int]bool{
	1200: true,
	9600: true,
}

// candidatePatterns are the device nodes USB serial adapters show up as.
var candidatePatterns = []string{
	"/dev/ttyUSB*",
	"/dev/ttyACM*",
	"/dev/serial/by-id/*",
	"/dev/cu.usbserial*",
}

// Port is an open serial line.
type Port struct {
	mu   sync.Mutex
	port *serial.Port
	cfg  Config
}

// Open opens the device at cfg.Baud, 8 data bits, no parity.
func Open(cfg Config) (*Port, error) {
	if !supportedBauds[cfg.Baud] {
		return nil, &PortError{Code: ErrUnsupported, Original: fmt.Errorf("baud %d", cfg.Baud), Port: cfg.Path}
	}

	sp, err := serial.OpenPort(lineConfig(cfg))
	if err != nil {
		return nil, Normalize(err, cfg.Path)
	}
	return &Port{port: sp, cfg: cfg}, nil
}

func lineConfig(cfg Config) *serial.Config {
	stop := serial.Stop1
	if cfg.StopBits == 2 {
		stop = serial.Stop2
	}
	return &serial.Config{
		Name:        cfg.Path,
		Baud:        cfg.Baud,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    stop,
		ReadTimeout: cfg.ReadTimeout,
	}
}

// Write writes b to the line.
func (p *Port) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.port == nil {
		return 0, Normalize(os.ErrClosed, p.cfg.Path)
	}
	n, err := p.port.Write(b)
	return n, Normalize(err, p.cfg.Path)
}

// SetBaud changes the local line speed after the keyer has been told to
// switch. The line is closed and reopened at the new speed; closing a tty
// waits for queued output, so bytes written at the old speed go out first.
// If the reopen fails the port stays closed.
func (p *Port) SetBaud(baud int) error {
	if !supportedBauds[baud] {
		return &PortError{Code: ErrUnsupported, Original: fmt.Errorf("baud %d", baud), Port: p.cfg.Path}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.port == nil {
		return Normalize(os.ErrClosed, p.cfg.Path)
	}
	if err := p.port.Close(); err != nil {
		p.port = nil
		return Normalize(err, p.cfg.Path)
	}

	next := p.cfg
	next.Baud = baud
	sp, err := serial.OpenPort(lineConfig(next))
	if err != nil {
		p.port = nil
		return Normalize(err, p.cfg.Path)
	}
	p.port = sp
	p.cfg = next
	return nil
}

// Close closes the device.
func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.port == nil {
		return nil
	}
	err := p.port.Close()
	p.port = nil
	return Normalize(err, p.cfg.Path)
}

// List returns serial device nodes present on this host. It is only used
// to tell the operator what exists; the port is always chosen explicitly.
func List() []string {
	return listMatching(candidatePatterns)
}

func listMatching(patterns []string) []string {
	var ports []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			continue
		}
		ports = append(ports, matches...)
	}
	sort.Strings(ports)
	return ports
}
