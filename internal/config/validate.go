package config

import (
	"fmt"
	"net"

	"github.com/radio-control/keyer/internal/winkeyer"
)

var validLevels = []string{"debug", "info", "warn", "error"}

// Validate checks a merged configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if err := validateSerial(&cfg.Serial); err != nil {
		return fmt.Errorf("serial: %w", err)
	}

	if err := validateSession(&cfg.Session); err != nil {
		return fmt.Errorf("session: %w", err)
	}

	if !contains(validLevels, cfg.Logging.Level) {
		return fmt.Errorf("logging: invalid level %s, must be one of: %v", cfg.Logging.Level, validLevels)
	}

	if cfg.Control.Port < 0 || cfg.Control.Port > 65535 {
		return fmt.Errorf("control: port %d is outside range [0, 65535]", cfg.Control.Port)
	}
	for _, cidr := range cfg.Control.AllowedCIDRs {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			return fmt.Errorf("control: invalid CIDR %s: %w", cidr, err)
		}
	}
	if err := validateAuth(&cfg.Control.Auth); err != nil {
		return fmt.Errorf("control: %w", err)
	}

	return nil
}

func validateSerial(s *SerialConfig) error {
	if s.Baud != BaudLow && s.Baud != BaudHigh {
		return fmt.Errorf("baud %d not supported by the keyer, must be %d or %d", s.Baud, BaudLow, BaudHigh)
	}
	if s.StopBits != 1 && s.StopBits != 2 {
		return fmt.Errorf("stop bits %d, must be 1 or 2", s.StopBits)
	}
	if s.ReadTimeout < 0 {
		return fmt.Errorf("read timeout must be non-negative, got %v", s.ReadTimeout)
	}
	return nil
}

func validateSession(s *SessionConfig) error {
	if s.Repeat < 0 {
		return fmt.Errorf("repeat must be non-negative, got %d", s.Repeat)
	}
	if _, err := winkeyer.ParseKeyInput(s.Key); err != nil {
		return err
	}
	if s.Hold < 0 || s.Gap < 0 {
		return fmt.Errorf("hold %v and gap %v must be non-negative", s.Hold, s.Gap)
	}
	return nil
}

func validateAuth(a *AuthConfig) error {
	switch a.Algorithm {
	case "":
		return nil
	case "HS256":
		if a.SecretKey == "" {
			return fmt.Errorf("auth: HS256 requires secretKey")
		}
	case "RS256":
		if a.PublicKeyFile == "" {
			return fmt.Errorf("auth: RS256 requires publicKeyFile")
		}
	default:
		return fmt.Errorf("auth: unsupported algorithm %s, must be HS256 or RS256", a.Algorithm)
	}
	return nil
}

// contains checks if a string slice contains a specific string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
