package audit

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/radio-control/keyer/internal/serialport"
	"github.com/radio-control/keyer/internal/winkeyer"
)

// Entry represents a single audit log entry.
type Entry struct {
	Timestamp time.Time `json:"ts"`
	Port      string    `json:"port"`
	Action    string    `json:"action"`
	Opcode    string    `json:"opcode,omitempty"`
	Frame     string    `json:"frame,omitempty"`
	Outcome   string    `json:"outcome"`
	Code      string    `json:"code"`
	Error     string    `json:"error,omitempty"`
}

// Options control file rotation.
type Options struct {
	MaxSizeMB  int
	MaxBackups int
}

// Logger appends audit entries to logs/audit.jsonl.
type Logger struct {
	mu       sync.Mutex
	filePath string
	port     string
	out      *lumberjack.Logger
}

// NewLogger creates a new audit logger for frames sent to port.
func NewLogger(logDir, port string, opts Options) (*Logger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	filePath := filepath.Join(logDir, "audit.jsonl")

	return &Logger{
		filePath: filePath,
		port:     port,
		out: &lumberjack.Logger{
			Filename:   filePath,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
		},
	}, nil
}

// LogFrame records one frame write. frame may be nil when encoding failed.
func (l *Logger) LogFrame(ctx context.Context, action string, frame []byte, err error) {
	entry := Entry{
		Timestamp: time.Now().UTC(),
		Port:      l.port,
		Action:    action,
		Outcome:   "SUCCESS",
		Code:      CodeFromError(err),
	}
	if len(frame) > 0 {
		entry.Opcode = fmt.Sprintf("0x%02x", frame[0])
		entry.Frame = hex.EncodeToString(frame)
	}
	if err != nil {
		entry.Outcome = "ERROR"
		entry.Error = err.Error()
	}
	if ctx.Err() != nil && err != nil {
		entry.Outcome = "CANCELLED"
	}

	l.writeEntry(entry)
}

// writeEntry writes an audit entry to the log file.
func (l *Logger) writeEntry(entry Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.out == nil {
		return
	}

	jsonData, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to marshal audit entry: %v\n", err)
		return
	}

	if _, err := l.out.Write(append(jsonData, '\n')); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write audit entry: %v\n", err)
	}
}

// CodeFromError maps errors to the codes used in audit records.
func CodeFromError(err error) string {
	switch {
	case err == nil:
		return "SUCCESS"
	case errors.Is(err, winkeyer.ErrInvalidPayload):
		return "INVALID_PAYLOAD"
	case errors.Is(err, winkeyer.ErrNilCommand):
		return "NIL_COMMAND"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "CANCELLED"
	case errors.Is(err, serialport.ErrUnavailable):
		return "UNAVAILABLE"
	case errors.Is(err, serialport.ErrBusy):
		return "BUSY"
	case errors.Is(err, serialport.ErrUnsupported):
		return "UNSUPPORTED"
	case errors.Is(err, serialport.ErrInternal):
		return "INTERNAL"
	default:
		return "ERROR"
	}
}

// Close closes the audit logger and its file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.out != nil {
		err := l.out.Close()
		l.out = nil
		return err
	}
	return nil
}

// Rotate closes the current file and starts a new one; the old file is
// kept as a timestamped backup.
func (l *Logger) Rotate() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.out == nil {
		return errors.New("audit logger closed")
	}
	return l.out.Rotate()
}

// GetFilePath returns the path to the audit log file.
func (l *Logger) GetFilePath() string {
	return l.filePath
}
