// Package config provides layered settings for sqlrunner: built-in
// defaults, a config file, then environment variables. Command-line flags
// are applied last by the caller.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Default values.
const (
	DefaultScript       = "script.sql"
	DefaultDriver       = "sqlite"
	DefaultDSN          = ":memory:"
	DefaultPollInterval = 100 * time.Millisecond
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "auto"
	lockFileName        = ".sqlrunner.lock"
)

// Environment variable names.
const (
	EnvScript    = "SQLRUNNER_SCRIPT"
	EnvDriver    = "SQLRUNNER_DRIVER"
	EnvDSN       = "SQLRUNNER_DSN"
	EnvLogLevel  = "SQLRUNNER_LOG_LEVEL"
	EnvLogFormat = "SQLRUNNER_LOG_FORMAT"
)

// Settings holds everything needed to run the watcher.
type Settings struct {
	Script       string
	Driver       string
	DSN          string
	LockFile     string
	PollInterval time.Duration
	LogLevel     string
	LogFormat    string
	Table        bool
}

// Defaults returns the built-in settings.
func Defaults() Settings {
	return Settings{
		Script:       DefaultScript,
		Driver:       DefaultDriver,
		DSN:          DefaultDSN,
		PollInterval: DefaultPollInterval,
		LogLevel:     DefaultLogLevel,
		LogFormat:    DefaultLogFormat,
	}
}

// Dir returns the sqlrunner config directory, respecting XDG_CONFIG_HOME.
// Defaults to ~/.config/sqlrunner if XDG_CONFIG_HOME is not set.
func Dir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "sqlrunner"), nil
}

// LoadFile reads {dir}/config and applies its key=value lines on top of s.
// If the file does not exist, s is left unchanged without an error.
// Blank lines, comments, lines without "=" and unknown keys are skipped.
func LoadFile(dir string, s *Settings) error {
	path := filepath.Join(dir, "config")
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		// Skip blank lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		idx := strings.IndexByte(line, '=')
		if idx <= 0 {
			continue
		}

		key := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])

		if err := s.set(key, value); err != nil {
			return fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
	}

	return scanner.Err()
}

// set applies one config file entry. Unknown keys are ignored.
func (s *Settings) set(key, value string) error {
	switch key {
	case "script":
		s.Script = value
	case "driver":
		s.Driver = value
	case "dsn":
		s.DSN = value
	case "lock_file":
		s.LockFile = value
	case "log_level":
		s.LogLevel = value
	case "log_format":
		s.LogFormat = value
	case "poll_interval":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid poll_interval: %w", err)
		}
		s.PollInterval = d
	case "table":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid table: %w", err)
		}
		s.Table = b
	}
	return nil
}

// ApplyEnv overrides s with any non-empty SQLRUNNER_* variables returned
// by getenv (typically os.Getenv).
func ApplyEnv(s *Settings, getenv func(string) string) {
	if v := getenv(EnvScript); v != "" {
		s.Script = v
	}
	if v := getenv(EnvDriver); v != "" {
		s.Driver = v
	}
	if v := getenv(EnvDSN); v != "" {
		s.DSN = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		s.LogLevel = v
	}
	if v := getenv(EnvLogFormat); v != "" {
		s.LogFormat = v
	}
}

// LockPath returns the instance lock file, defaulting to a hidden file
// next to the script.
func (s Settings) LockPath() string {
	if s.LockFile != "" {
		return s.LockFile
	}
	return filepath.Join(filepath.Dir(s.Script), lockFileName)
}

// Validate reports settings that cannot be used.
func (s Settings) Validate() error {
	var errs []error
	if s.Script == "" {
		errs = append(errs, errors.New("script path must not be empty"))
	}
	if s.Driver == "" {
		errs = append(errs, errors.New("driver must not be empty"))
	}
	if s.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("poll interval must be positive, got %s", s.PollInterval))
	}
	switch s.LogFormat {
	case "auto", "console", "json":
	default:
		errs = append(errs, fmt.Errorf("invalid log format %q", s.LogFormat))
	}
	return errors.Join(errs...)
}
