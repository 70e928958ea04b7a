package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	SQLite SQLiteConfig      `yaml:"sqlite"`
	SSE    SSEConfig         `yaml:"sse"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	return c.SSE.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SSEConfig holds server-sent events configuration.
//
// TreeThrottle bounds how often tree.updated events reach clients; note
// events are never throttled.
type SSEConfig struct {
	TreeThrottle time.Duration `yaml:"tree_throttle"`
}

// UnmarshalYAML accepts Go duration strings like "2s" or "500ms".
func (c *SSEConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		TreeThrottle string `yaml:"tree_throttle"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.TreeThrottle == "" {
		return nil
	}
	d, err := time.ParseDuration(raw.TreeThrottle)
	if err != nil {
		return fmt.Errorf("sse: tree_throttle: %w", err)
	}
	c.TreeThrottle = d
	return nil
}

// Validate validates the SSE configuration.
func (c *SSEConfig) Validate() error {
	if c.TreeThrottle < 0 {
		return fmt.Errorf("sse: tree_throttle must not be negative")
	}
	return nil
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		SQLite: SQLiteConfig{
			Path: "./laguz.db",
		},
		SSE: SSEConfig{
			TreeThrottle: 2 * time.Second,
		},
	}
}
