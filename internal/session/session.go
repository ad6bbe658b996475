package session

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/radio-control/keyer/internal/winkeyer"
)

// Auditor records frame writes. Implemented by *audit.Logger.
type Auditor interface {
	LogFrame(ctx context.Context, action string, frame []byte, err error)
}

// Recorder captures written frames. Implemented by *capture.Recorder.
type Recorder interface {
	Record(name string, frame []byte) error
}

// BaudSetter is implemented by ports whose local line speed can change.
type BaudSetter interface {
	SetBaud(baud int) error
}

// Line speeds the keyer switches between.
const (
	BaudLow  = 1200
	BaudHigh = 9600
)

var (
	frameSetBaudLow  = []byte{byte(winkeyer.OpAdmin), byte(winkeyer.AdminSetBaudRateLow)}
	frameSetBaudHigh = []byte{byte(winkeyer.OpAdmin), byte(winkeyer.AdminSetBaudRateHigh)}
	frameOpen        = []byte{byte(winkeyer.OpAdmin), byte(winkeyer.AdminOpenHostConnection)}
	frameClose       = []byte{byte(winkeyer.OpAdmin), byte(winkeyer.AdminCloseHostConnection)}
)

// Status is a snapshot of what the session has sent.
type Status struct {
	Open        bool              `json:"open"`
	Key         winkeyer.KeyInput `json:"key"`
	Frames      uint64            `json:"frames"`
	LastCommand string            `json:"lastCommand,omitempty"`
	Baud        int               `json:"baud,omitempty"`
}

// Option configures a Session.
type Option func(*Session)

// WithAuditor sets the audit sink.
func WithAuditor(a Auditor) Option {
	return func(s *Session) { s.auditor = a }
}

// WithRecorder sets the capture sink.
func WithRecorder(r Recorder) Option {
	return func(s *Session) { s.recorder = r }
}

// WithBaud sets the line speed reported before any baud switch.
func WithBaud(baud int) Option {
	return func(s *Session) { s.status.Baud = baud }
}

// Session serializes commands onto one port.
type Session struct {
	mu       sync.Mutex
	port     io.Writer
	logger   *zap.Logger
	auditor  Auditor
	recorder Recorder
	status   Status
}

// New creates a session writing to port.
func New(port io.Writer, logger *zap.Logger, opts ...Option) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Session{
		port:   port,
		logger: logger.Named("session"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send encodes cmd and writes it as one frame. Nothing is written when
// encoding fails.
func (s *Session) Send(ctx context.Context, cmd winkeyer.Command) error {
	name := winkeyer.Name(cmd)
	if err := ctx.Err(); err != nil {
		s.audit(ctx, name, nil, err)
		return err
	}

	frame, err := winkeyer.Encode(cmd)
	if err != nil {
		s.audit(ctx, name, nil, err)
		return fmt.Errorf("encode %s: %w", name, err)
	}

	return s.write(ctx, name, frame)
}

// SendRaw writes an already encoded frame, as read back from a capture.
func (s *Session) SendRaw(ctx context.Context, name string, frame []byte) error {
	if err := ctx.Err(); err != nil {
		s.audit(ctx, name, nil, err)
		return err
	}
	if len(frame) == 0 {
		return nil
	}
	return s.write(ctx, name, frame)
}

func (s *Session) write(ctx context.Context, name string, frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.port.Write(frame)
	if err == nil && n != len(frame) {
		err = fmt.Errorf("wrote %d of %d bytes: %w", n, len(frame), io.ErrShortWrite)
	}
	s.audit(ctx, name, frame, err)
	if err != nil {
		s.logger.Error("Frame write failed",
			zap.String("command", name),
			zap.Binary("frame", frame),
			zap.Error(err))
		return fmt.Errorf("write %s: %w", name, err)
	}

	s.logger.Debug("Frame written",
		zap.String("command", name),
		zap.String("frame", fmt.Sprintf("% x", frame)))

	if s.recorder != nil {
		if err := s.recorder.Record(name, frame); err != nil {
			s.logger.Warn("Capture failed", zap.String("command", name), zap.Error(err))
		}
	}

	s.track(name, frame)
	return s.switchBaud(frame)
}

// track updates the status snapshot. Callers hold s.mu.
func (s *Session) track(name string, frame []byte) {
	s.status.Frames++
	s.status.LastCommand = name

	switch {
	case bytes.Equal(frame, frameOpen):
		s.status.Open = true
	case bytes.Equal(frame, frameClose):
		s.status.Open = false
		s.status.Key = winkeyer.KeyRelease
	case len(frame) == 2 && frame[0] == byte(winkeyer.OpDoKey):
		s.status.Key = winkeyer.KeyInput(frame[1])
	}
}

// switchBaud follows the keyer to its new line speed once the switch
// command is on the wire. Callers hold s.mu.
func (s *Session) switchBaud(frame []byte) error {
	var baud int
	switch {
	case bytes.Equal(frame, frameSetBaudHigh):
		baud = BaudHigh
	case bytes.Equal(frame, frameSetBaudLow):
		baud = BaudLow
	default:
		return nil
	}

	setter, ok := s.port.(BaudSetter)
	if !ok {
		s.status.Baud = baud
		return nil
	}
	if err := setter.SetBaud(baud); err != nil {
		return fmt.Errorf("switch line to %d baud: %w", baud, err)
	}
	s.status.Baud = baud
	s.logger.Info("Line speed changed", zap.Int("baud", baud))
	return nil
}

func (s *Session) audit(ctx context.Context, name string, frame []byte, err error) {
	if s.auditor != nil {
		s.auditor.LogFrame(ctx, name, frame, err)
	}
}

// Status returns a snapshot of the session state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Open opens the host connection.
func (s *Session) Open(ctx context.Context) error {
	return s.Send(ctx, winkeyer.Admin{Command: winkeyer.OpenHostConnection{}})
}

// Close closes the host connection.
func (s *Session) Close(ctx context.Context) error {
	return s.Send(ctx, winkeyer.Admin{Command: winkeyer.CloseHostConnection{}})
}

// Key sets the paddle state.
func (s *Session) Key(ctx context.Context, input winkeyer.KeyInput) error {
	return s.Send(ctx, winkeyer.DoKey{Input: input})
}

// Echo sends an echo test byte. The keyer answers on the read side.
func (s *Session) Echo(ctx context.Context, value byte) error {
	return s.Send(ctx, winkeyer.Admin{Command: winkeyer.EchoTest{Value: value}})
}

// SetSpeed sets the keying speed in WPM.
func (s *Session) SetSpeed(ctx context.Context, wpm byte) error {
	return s.Send(ctx, winkeyer.SetSpeedWPM{WPM: wpm})
}

// Pulse holds input for hold, then releases. The release is sent even
// when ctx is cancelled during the hold.
func (s *Session) Pulse(ctx context.Context, input winkeyer.KeyInput, hold time.Duration) error {
	if err := s.Key(ctx, input); err != nil {
		return err
	}

	waitErr := wait(ctx, hold)
	if err := s.Key(context.WithoutCancel(ctx), winkeyer.KeyRelease); err != nil {
		return err
	}
	return waitErr
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
