// keyer drives a WinKeyer over a serial line.
//
// By default it opens the host connection, keys the configured paddle
// input a number of times and closes the connection. With --control-port
// it instead serves a JSON-RPC control interface until interrupted. With
// --replay it re-sends a captured frame stream verbatim.
//
// --dry-run prints each frame as hex instead of opening a port.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/radio-control/keyer/internal/audit"
	"github.com/radio-control/keyer/internal/auth"
	"github.com/radio-control/keyer/internal/capture"
	"github.com/radio-control/keyer/internal/config"
	"github.com/radio-control/keyer/internal/control"
	"github.com/radio-control/keyer/internal/logging"
	"github.com/radio-control/keyer/internal/serialport"
	"github.com/radio-control/keyer/internal/session"
	"github.com/radio-control/keyer/internal/winkeyer"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	configPath string
	replayPath string
	dryRun     bool
	listPorts  bool
}

func newFlagSet(cfg *config.Config, opts *options) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet("keyer", pflag.ContinueOnError)
	flagSet.StringVar(&opts.configPath, "config", "", "path to YAML config (default: $KEYER_CONFIG)")
	flagSet.StringVar(&opts.replayPath, "replay", "", "re-send frames from a capture file")
	flagSet.BoolVar(&opts.dryRun, "dry-run", false, "print frames as hex instead of opening a port")
	flagSet.BoolVar(&opts.listPorts, "list-ports", false, "list serial ports and exit")

	flagSet.StringVar(&cfg.Serial.Port, "port", cfg.Serial.Port, "serial device path")
	flagSet.IntVar(&cfg.Serial.Baud, "baud", cfg.Serial.Baud, "line speed (1200 or 9600)")
	flagSet.IntVar(&cfg.Session.Repeat, "repeat", cfg.Session.Repeat, "number of key pulses")
	flagSet.StringVar(&cfg.Session.Key, "key", cfg.Session.Key, "paddle input to pulse: dit, dah or both")
	flagSet.DurationVar(&cfg.Session.Hold, "hold", cfg.Session.Hold, "how long each pulse is held")
	flagSet.DurationVar(&cfg.Session.Gap, "gap", cfg.Session.Gap, "pause after each pulse")
	flagSet.StringVar(&cfg.Capture.File, "capture", cfg.Capture.File, "record written frames to this file")
	flagSet.IntVar(&cfg.Control.Port, "control-port", cfg.Control.Port, "serve the control interface on this TCP port")
	flagSet.StringVar(&cfg.Logging.Level, "log-level", cfg.Logging.Level, "debug, info, warn or error")
	flagSet.StringVar(&cfg.Audit.Dir, "audit-dir", cfg.Audit.Dir, "directory for audit.jsonl")
	return flagSet
}

// loadConfig resolves flags over config file over environment over
// defaults. The config path is itself a flag, so flags are parsed twice:
// once to find the file and once over the loaded values.
func loadConfig(args []string) (*config.Config, *options, error) {
	var opts options
	first := newFlagSet(config.Default(), &opts)
	first.SetOutput(io.Discard)
	if err := first.Parse(args); err != nil {
		return nil, nil, err
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, nil, err
	}

	flagSet := newFlagSet(cfg, &opts)
	if err := flagSet.Parse(args); err != nil {
		return nil, nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, &opts, nil
}

func run(args []string, stdout io.Writer) error {
	cfg, opts, err := loadConfig(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			var helpOpts options
			flagSet := newFlagSet(config.Default(), &helpOpts)
			flagSet.SetOutput(stdout)
			flagSet.PrintDefaults()
			return nil
		}
		return err
	}

	if opts.listPorts {
		for _, p := range serialport.List() {
			fmt.Fprintln(stdout, p)
		}
		return nil
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("Starting up")
	for _, p := range serialport.List() {
		logger.Debug("Available port", zap.String("port", p))
	}

	var port io.Writer
	portName := cfg.Serial.Port
	if opts.dryRun {
		port = &hexDumper{w: stdout}
		portName = "dry-run"
	} else {
		if cfg.Serial.Port == "" {
			return errors.New("no serial port configured (set --port or KEYER_SERIAL_PORT)")
		}
		logger.Info("Connecting", zap.String("port", cfg.Serial.Port), zap.Int("baud", cfg.Serial.Baud))
		serial, err := serialport.Open(serialport.Config{
			Path:        cfg.Serial.Port,
			Baud:        cfg.Serial.Baud,
			StopBits:    cfg.Serial.StopBits,
			ReadTimeout: cfg.Serial.ReadTimeout,
		})
		if err != nil {
			return fmt.Errorf("open %s: %w", cfg.Serial.Port, err)
		}
		defer serial.Close()
		port = serial
		logger.Info("Connected to serial device")
	}

	auditLogger, err := audit.NewLogger(cfg.Audit.Dir, portName, audit.Options{
		MaxSizeMB:  cfg.Audit.MaxSizeMB,
		MaxBackups: cfg.Audit.MaxBackups,
	})
	if err != nil {
		return err
	}
	defer auditLogger.Close()

	sessionOpts := []session.Option{
		session.WithAuditor(auditLogger),
		session.WithBaud(cfg.Serial.Baud),
	}
	var recorder *capture.Recorder
	if cfg.Capture.File != "" {
		f, err := os.Create(cfg.Capture.File)
		if err != nil {
			return fmt.Errorf("create capture file: %w", err)
		}
		defer f.Close()
		recorder = capture.NewRecorder(f)
		sessionOpts = append(sessionOpts, session.WithRecorder(recorder))
	}
	sess := session.New(port, logger, sessionOpts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hangup := make(chan os.Signal, 1)
	signal.Notify(hangup, syscall.SIGHUP)
	defer signal.Stop(hangup)
	rotateDone := make(chan struct{})
	defer close(rotateDone)
	go rotateOnHangup(hangup, rotateDone, auditLogger, logger)

	switch {
	case opts.replayPath != "":
		err = replay(ctx, sess, opts.replayPath, logger)
	case cfg.Control.Port != 0:
		err = serveControl(ctx, sess, cfg.Control, logger)
	default:
		err = runPlan(ctx, sess, cfg.Session)
	}

	if recorder != nil {
		logger.Info("Capture written",
			zap.String("file", cfg.Capture.File),
			zap.Uint64("frames", recorder.Count()))
	}

	if errors.Is(err, context.Canceled) {
		logger.Info("Interrupted")
		return nil
	}
	return err
}

// serveControl runs the control server until ctx is done, then leaves the
// keyer released and the host connection closed.
func serveControl(ctx context.Context, sess *session.Session, cfg config.ControlConfig, logger *zap.Logger) error {
	var serverOpts []control.Option
	if cfg.Auth.Algorithm != "" {
		verifier, err := newVerifier(cfg.Auth)
		if err != nil {
			return err
		}
		serverOpts = append(serverOpts, control.WithVerifier(verifier))
	}

	server := control.NewServer(cfg, sess, logger, serverOpts...)
	serveErr := server.ListenAndServe(ctx)

	if err := sess.Shutdown(ctx); err != nil {
		logger.Error("Failed to release keyer on shutdown", zap.Error(err))
		if serveErr == nil {
			serveErr = err
		}
	}
	return serveErr
}

// rotateOnHangup starts a new audit file on SIGHUP.
func rotateOnHangup(hangup <-chan os.Signal, done <-chan struct{}, auditLogger *audit.Logger, logger *zap.Logger) {
	for {
		select {
		case <-hangup:
			if err := auditLogger.Rotate(); err != nil {
				logger.Warn("Audit rotation failed", zap.Error(err))
				continue
			}
			logger.Info("Audit log rotated", zap.String("file", auditLogger.GetFilePath()))
		case <-done:
			return
		}
	}
}

func newVerifier(cfg config.AuthConfig) (*auth.Verifier, error) {
	vc := auth.VerifierConfig{
		Algorithm: cfg.Algorithm,
		SecretKey: cfg.SecretKey,
	}
	if cfg.PublicKeyFile != "" {
		pemData, err := os.ReadFile(cfg.PublicKeyFile)
		if err != nil {
			return nil, fmt.Errorf("read control public key: %w", err)
		}
		vc.PublicKeyPEM = string(pemData)
	}
	return auth.NewVerifier(vc)
}

func runPlan(ctx context.Context, sess *session.Session, cfg config.SessionConfig) error {
	key, err := winkeyer.ParseKeyInput(cfg.Key)
	if err != nil {
		return err
	}
	return sess.Run(ctx, session.Plan{
		Repeat:   cfg.Repeat,
		Key:      key,
		Hold:     cfg.Hold,
		Gap:      cfg.Gap,
		Settings: cfg.Settings,
	})
}

func replay(ctx context.Context, sess *session.Session, path string, logger *zap.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open capture: %w", err)
	}
	defer f.Close()

	start := time.Now()
	count := 0
	err = capture.Replay(f, func(rec capture.Record) error {
		count++
		return sess.SendRaw(ctx, rec.Name, rec.Frame)
	})
	logger.Info("Replay finished",
		zap.Int("frames", count),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err))
	return err
}

// hexDumper prints one line per frame.
type hexDumper struct {
	w io.Writer
}

func (h *hexDumper) Write(b []byte) (int, error) {
	if _, err := fmt.Fprintf(h.w, "% x\n", b); err != nil {
		return 0, err
	}
	return len(b), nil
}
