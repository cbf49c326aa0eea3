package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// Environments
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config holds all application configuration.
type Config struct {
	Host      string `toml:"host"`
	Port      int    `toml:"port"`
	Directory string `toml:"directory"`

	// Timeouts in seconds, 0 disables
	ReadTimeout     int `toml:"read_timeout"`
	WriteTimeout    int `toml:"write_timeout"`
	ShutdownTimeout int `toml:"shutdown_timeout"`

	MaxConnections int     `toml:"max_connections"`
	AcceptRate     float64 `toml:"accept_rate"`
	MaxBodyBytes   int64   `toml:"max_body_bytes"`
	MaxHeaderBytes int     `toml:"max_header_bytes"`
	ReusePort      bool    `toml:"reuse_port"`

	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Host:            "0.0.0.0",
		Port:            4221,
		Directory:       "files",
		ReadTimeout:     10,
		WriteTimeout:    30,
		ShutdownTimeout: 5,
		MaxConnections:  1024,
		MaxBodyBytes:    10 << 20,
		MaxHeaderBytes:  64 << 10,
		Env:             EnvDevelopment,
		LogLevel:        "info",
	}
}

// Addr returns host:port for listening
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c *Config) ReadTimeoutDuration() time.Duration {
	return time.Duration(c.ReadTimeout) * time.Second
}

func (c *Config) WriteTimeoutDuration() time.Duration {
	return time.Duration(c.WriteTimeout) * time.Second
}

func (c *Config) ShutdownTimeoutDuration() time.Duration {
	return time.Duration(c.ShutdownTimeout) * time.Second
}

// IsProduction reports whether the production environment is selected
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// Validate checks every field and reports all problems at once
func (c *Config) Validate() error {
	var errs []error
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.Directory == "" {
		errs = append(errs, errors.New("directory must not be empty"))
	}
	if c.ReadTimeout < 0 || c.WriteTimeout < 0 || c.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("timeouts must not be negative"))
	}
	if c.MaxConnections < 0 {
		errs = append(errs, errors.New("max_connections must not be negative"))
	}
	if c.AcceptRate < 0 {
		errs = append(errs, errors.New("accept_rate must not be negative"))
	}
	if c.MaxBodyBytes < 0 || c.MaxHeaderBytes < 0 {
		errs = append(errs, errors.New("size limits must not be negative"))
	}
	if c.Env != EnvDevelopment && c.Env != EnvProduction {
		errs = append(errs, fmt.Errorf("unknown env %q", c.Env))
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
