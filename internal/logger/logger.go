package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Default rotation parameters for service logs.
const (
	DefaultMaxSizeMB  = 50 // MB; inference servers log a lot during model load
	DefaultMaxBackups = 3
	DefaultMaxAgeDays = 7
)

// Config describes log destinations for a supervised service.
// If StdoutPath/StderrPath are empty and Dir is set, files will be
// Dir/<name>.stdout.log and Dir/<name>.stderr.log.
// Rotation parameters follow lumberjack semantics.
type Config struct {
	Dir        string `mapstructure:"dir"`
	StdoutPath string `mapstructure:"stdout"`
	StderrPath string `mapstructure:"stderr"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// StdoutFile returns the effective stdout path for the named service.
func (c Config) StdoutFile(name string) string {
	if c.StdoutPath != "" {
		return c.StdoutPath
	}
	if c.Dir != "" {
		return filepath.Join(c.Dir, fmt.Sprintf("%s.stdout.log", name))
	}
	return ""
}

// StderrFile returns the effective stderr path for the named service.
func (c Config) StderrFile(name string) string {
	if c.StderrPath != "" {
		return c.StderrPath
	}
	if c.Dir != "" {
		return filepath.Join(c.Dir, fmt.Sprintf("%s.stderr.log", name))
	}
	return ""
}

// Writers returns rotating io.WriteClosers for stdout and stderr of the
// named service. Either writer may be nil when no destination applies.
func (c Config) Writers(name string) (io.WriteCloser, io.WriteCloser, error) {
	var outW, errW io.WriteCloser
	if p := c.StdoutFile(name); p != "" {
		outW = c.rotating(p)
	}
	if p := c.StderrFile(name); p != "" {
		errW = c.rotating(p)
	}
	return outW, errW, nil
}

func (c Config) rotating(path string) io.WriteCloser {
	return &lj.Logger{
		Filename:   path,
		MaxSize:    valOr(c.MaxSizeMB, DefaultMaxSizeMB),
		MaxBackups: valOr(c.MaxBackups, DefaultMaxBackups),
		MaxAge:     valOr(c.MaxAgeDays, DefaultMaxAgeDays),
		Compress:   c.Compress,
	}
}

func valOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// NewOperator returns the slog logger used for operator-facing output on
// stderr, colored by level.
func NewOperator(level slog.Level) *slog.Logger {
	h := NewColorTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(h)
}
