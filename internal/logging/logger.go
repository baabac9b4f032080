// Package logging builds the zap logger used across sqlrunner.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Supported output formats.
const (
	FormatAuto    = "auto"
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Options configures New.
type Options struct {
	// Level is a zap level name: debug, info, warn, error.
	Level string
	// Format is one of FormatAuto, FormatConsole or FormatJSON. Auto picks
	// console when Output is a terminal and JSON otherwise.
	Format string
	// Output defaults to os.Stderr.
	Output io.Writer
}

// New creates a logger for the given options.
func New(opts Options) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		parsed, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	format, err := resolveFormat(opts.Format, out)
	if err != nil {
		return nil, err
	}

	var encoder zapcore.Encoder
	if format == FormatConsole {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		if isTerminal(out) {
			cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
		encoder = zapcore.NewConsoleEncoder(cfg)
	} else {
		cfg := zap.NewProductionEncoderConfig()
		cfg.TimeKey = "timestamp"
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(cfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(out)), zap.NewAtomicLevelAt(level))
	return zap.New(core), nil
}

// resolveFormat maps FormatAuto (or empty) to a concrete format.
func resolveFormat(format string, out io.Writer) (string, error) {
	switch format {
	case "", FormatAuto:
		if isTerminal(out) {
			return FormatConsole, nil
		}
		return FormatJSON, nil
	case FormatConsole, FormatJSON:
		return format, nil
	default:
		return "", fmt.Errorf("invalid log format %q (want %s, %s or %s)", format, FormatAuto, FormatConsole, FormatJSON)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
