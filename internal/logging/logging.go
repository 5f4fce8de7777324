// Package logging builds the zap logger shared by every component of the
// chat server.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Format selects the log encoder.
type Format string

const (
	// JSONFormat emits one JSON object per line.
	JSONFormat Format = "json"
	// ConsoleFormat emits human-readable lines.
	ConsoleFormat Format = "console"
)

// IsValid reports whether f names a supported encoder.
func (f Format) IsValid() bool {
	return f == JSONFormat || f == ConsoleFormat
}

// Config controls logger construction.
type Config struct {
	Level  string
	Format Format
	Output io.Writer
}

func (c *Config) setDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = JSONFormat
	}
	if c.Output == nil {
		c.Output = os.Stdout
	}
}

// New builds a logger from cfg.
func New(cfg Config) (*zap.Logger, error) {
	cfg.setDefaults()

	level, err := zapcore.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	if !cfg.Format.IsValid() {
		return nil, fmt.Errorf("logging: unknown format %q", cfg.Format)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if cfg.Format == ConsoleFormat {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	} else {
		enc = zapcore.NewJSONEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(cfg.Output), level)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}
