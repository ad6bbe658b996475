package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/radio-control/keyer/internal/winkeyer"
)

// Config represents the complete configuration for the keyer runner
type Config struct {
	Serial  SerialConfig  `yaml:"serial"`
	Session SessionConfig `yaml:"session"`
	Logging LoggingConfig `yaml:"logging"`
	Audit   AuditConfig   `yaml:"audit"`
	Control ControlConfig `yaml:"control"`
	Capture CaptureConfig `yaml:"capture"`
}

// SerialConfig holds serial line settings
type SerialConfig struct {
	Port        string        `yaml:"port"`
	Baud        int           `yaml:"baud"`
	StopBits    int           `yaml:"stopBits"`
	ReadTimeout time.Duration `yaml:"readTimeout"`
}

// SessionConfig holds the keying plan run when no control port is set
type SessionConfig struct {
	Repeat   int                `yaml:"repeat"`
	Key      string             `yaml:"key"`
	Hold     time.Duration      `yaml:"hold"`
	Gap      time.Duration      `yaml:"gap"`
	Settings *winkeyer.Settings `yaml:"settings,omitempty"`
}

// LoggingConfig holds zap logger settings
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMb"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
	Compress   bool   `yaml:"compress"`
}

// AuditConfig holds frame audit log settings
type AuditConfig struct {
	Dir        string `yaml:"dir"`
	MaxSizeMB  int    `yaml:"maxSizeMb"`
	MaxBackups int    `yaml:"maxBackups"`
}

// ControlConfig holds control TCP server settings. Port 0 disables it.
type ControlConfig struct {
	Port         int        `yaml:"port"`
	AllowedCIDRs []string   `yaml:"allowedCidrs"`
	Auth         AuthConfig `yaml:"auth"`
}

// AuthConfig holds bearer token settings for the control server. An
// empty Algorithm leaves the server open to every allowed address.
type AuthConfig struct {
	Algorithm     string `yaml:"algorithm"` // "HS256" or "RS256"
	SecretKey     string `yaml:"secretKey"`
	PublicKeyFile string `yaml:"publicKeyFile"`
}

// CaptureConfig holds frame capture settings. An empty File disables it.
type CaptureConfig struct {
	File string `yaml:"file"`
}

// Supported serial line speeds.
const (
	BaudLow  = 1200
	BaudHigh = 9600
)

// Load loads configuration from file and environment variables.
// An empty path falls back to KEYER_CONFIG; if that is unset too only
// defaults and environment apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("KEYER_CONFIG")
	}
	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:        "",
			Baud:        BaudLow,
			StopBits:    2,
			ReadTimeout: time.Second,
		},
		Session: SessionConfig{
			Repeat: 5,
			Key:    "dah",
			Hold:   3 * time.Second,
			Gap:    time.Second,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Audit: AuditConfig{
			Dir:        "logs",
			MaxSizeMB:  10,
			MaxBackups: 5,
		},
		Control: ControlConfig{
			Port:         0,
			AllowedCIDRs: []string{"127.0.0.0/8", "::1/128"},
		},
	}
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(cfg *Config, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}

	return yaml.UnmarshalStrict(data, cfg)
}

// applyEnvOverrides applies environment variable overrides.
// KEYER_SERIAL_PORT wins over the older WINKEYER_SERIAL_PORT.
func applyEnvOverrides(cfg *Config) error {
	if port := os.Getenv("WINKEYER_SERIAL_PORT"); port != "" {
		cfg.Serial.Port = port
	}
	if port := os.Getenv("KEYER_SERIAL_PORT"); port != "" {
		cfg.Serial.Port = port
	}

	if val := os.Getenv("KEYER_BAUD"); val != "" {
		baud, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("KEYER_BAUD: %w", err)
		}
		cfg.Serial.Baud = baud
	}

	if level := os.Getenv("KEYER_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}

	if secret := os.Getenv("KEYER_CONTROL_SECRET"); secret != "" {
		cfg.Control.Auth.SecretKey = secret
		if cfg.Control.Auth.Algorithm == "" {
			cfg.Control.Auth.Algorithm = "HS256"
		}
	}

	return nil
}
