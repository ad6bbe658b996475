package session

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/radio-control/keyer/internal/winkeyer"
)

// Plan is a keying run: Repeat pulses of Key, each held for Hold and
// followed by Gap.
type Plan struct {
	Repeat   int
	Key      winkeyer.KeyInput
	Hold     time.Duration
	Gap      time.Duration
	Settings *winkeyer.Settings
}

// Run opens the host connection, loads Settings if set, keys the plan and
// closes the connection. On cancellation the key is released and the
// connection closed before ctx.Err() is returned.
func (s *Session) Run(ctx context.Context, plan Plan) error {
	s.logger.Info("Starting session",
		zap.Int("repeat", plan.Repeat),
		zap.Stringer("key", plan.Key),
		zap.Duration("hold", plan.Hold),
		zap.Duration("gap", plan.Gap))

	if err := s.Open(ctx); err != nil {
		return err
	}

	if plan.Settings != nil {
		if err := s.Send(ctx, winkeyer.LoadSettings{Settings: *plan.Settings}); err != nil {
			return s.abort(ctx, err)
		}
	}

	for i := 0; i < plan.Repeat; i++ {
		if err := s.Pulse(ctx, plan.Key, plan.Hold); err != nil {
			return s.abort(ctx, err)
		}
		if err := wait(ctx, plan.Gap); err != nil {
			return s.abort(ctx, err)
		}
	}

	if err := s.Close(ctx); err != nil {
		return err
	}
	s.logger.Info("Closed session")
	return nil
}

// abort leaves the keyer safe after a failed or cancelled run. Cleanup
// errors are logged; cause is returned.
func (s *Session) abort(ctx context.Context, cause error) error {
	if err := s.Shutdown(ctx); err != nil {
		s.logger.Warn("Cleanup after abort failed", zap.Error(err))
	}

	if errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
		s.logger.Info("Session cancelled")
	} else {
		s.logger.Error("Session aborted", zap.Error(cause))
	}
	return cause
}

// Shutdown releases the key if it is down and closes the host connection
// if it is open. It sends even when ctx is already cancelled.
func (s *Session) Shutdown(ctx context.Context) error {
	cleanup := context.WithoutCancel(ctx)
	status := s.Status()

	var errs []error
	if status.Key != winkeyer.KeyRelease {
		if err := s.Key(cleanup, winkeyer.KeyRelease); err != nil {
			errs = append(errs, err)
		}
	}
	if status.Open {
		if err := s.Close(cleanup); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
