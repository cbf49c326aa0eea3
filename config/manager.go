package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Environment variables read by Load
const (
	EnvPort      = "PORT"
	EnvDirectory = "FILES_DIRECTORY"
	EnvLogLevel  = "LOG_LEVEL"
	EnvAppEnv    = "APP_ENV"
)

// New loads configuration from the process arguments and environment.
// It exits the process when configuration is invalid.
func New() *Config {
	cfg, err := Load(os.Args[1:], os.Getenv)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	return cfg
}

// Load builds a Config in layers: defaults, then the TOML file named by
// --config, then environment variables, then flags set explicitly in args.
func Load(args []string, getenv func(string) string) (*Config, error) {
	fs := flag.NewFlagSet("mini-server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var path string
	fc := Default()
	fs.StringVar(&path, "config", "", "TOML config file")
	fs.StringVar(&fc.Host, "host", fc.Host, "listen host")
	fs.IntVar(&fc.Port, "port", fc.Port, "listen port")
	fs.StringVar(&fc.Directory, "directory", fc.Directory, "base directory for /files")
	fs.IntVar(&fc.ReadTimeout, "read-timeout", fc.ReadTimeout, "request read timeout (seconds)")
	fs.IntVar(&fc.WriteTimeout, "write-timeout", fc.WriteTimeout, "response write timeout (seconds)")
	fs.IntVar(&fc.ShutdownTimeout, "shutdown-timeout", fc.ShutdownTimeout, "graceful shutdown timeout (seconds)")
	fs.IntVar(&fc.MaxConnections, "max-connections", fc.MaxConnections, "concurrent connection cap, 0 for none")
	fs.Float64Var(&fc.AcceptRate, "accept-rate", fc.AcceptRate, "accepted connections per second, 0 for unlimited")
	fs.Int64Var(&fc.MaxBodyBytes, "max-body-bytes", fc.MaxBodyBytes, "largest accepted request body")
	fs.IntVar(&fc.MaxHeaderBytes, "max-header-bytes", fc.MaxHeaderBytes, "largest accepted request head")
	fs.BoolVar(&fc.ReusePort, "reuse-port", fc.ReusePort, "set SO_REUSEPORT on the listener")
	fs.StringVar(&fc.Env, "env", fc.Env, "environment (development/production)")
	fs.StringVar(&fc.LogLevel, "log-level", fc.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg := Default()
	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}
	if err := applyEnv(cfg, getenv); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) {
		applyFlag(cfg, fc, f.Name)
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return fmt.Errorf("config: %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	return nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	if getenv == nil {
		return nil
	}
	if v := getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s=%q: %w", EnvPort, v, err)
		}
		cfg.Port = port
	}
	if v := getenv(EnvDirectory); v != "" {
		cfg.Directory = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v := getenv(EnvAppEnv); v != "" {
		cfg.Env = v
	}
	return nil
}

func applyFlag(cfg, fc *Config, name string) {
	switch name {
	case "host":
		cfg.Host = fc.Host
	case "port":
		cfg.Port = fc.Port
	case "directory":
		cfg.Directory = fc.Directory
	case "read-timeout":
		cfg.ReadTimeout = fc.ReadTimeout
	case "write-timeout":
		cfg.WriteTimeout = fc.WriteTimeout
	case "shutdown-timeout":
		cfg.ShutdownTimeout = fc.ShutdownTimeout
	case "max-connections":
		cfg.MaxConnections = fc.MaxConnections
	case "accept-rate":
		cfg.AcceptRate = fc.AcceptRate
	case "max-body-bytes":
		cfg.MaxBodyBytes = fc.MaxBodyBytes
	case "max-header-bytes":
		cfg.MaxHeaderBytes = fc.MaxHeaderBytes
	case "reuse-port":
		cfg.ReusePort = fc.ReusePort
	case "env":
		cfg.Env = fc.Env
	case "log-level":
		cfg.LogLevel = fc.LogLevel
	}
}
