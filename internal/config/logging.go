package config

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LogSettings selects the log level and an optional rotating log file.
type LogSettings struct {
	LogLevel slog.Level   `yaml:"logLevel"`
	LogFile  *LogFileSpec `yaml:"logFile"`
}

// LogFileSpec configures log file rotation.
type LogFileSpec struct {
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"maxSize"` // MB
	MaxBackups int    `yaml:"maxBackups"`
	MaxAge     int    `yaml:"maxAge"` // days
	Compress   bool   `yaml:"compress"`
}

// Writer returns the log destination. Without a log file it is stdout and
// closing it is a no-op.
func (s *LogSettings) Writer() io.WriteCloser {
	if s.LogFile == nil || s.LogFile.Path == "" {
		return nopCloser{os.Stdout}
	}

	w := &lumberjack.Logger{
		Filename:   s.LogFile.Path,
		MaxSize:    s.LogFile.MaxSize,
		MaxBackups: s.LogFile.MaxBackups,
		MaxAge:     s.LogFile.MaxAge,
		Compress:   s.LogFile.Compress,
	}
	if w.MaxSize == 0 {
		w.MaxSize = 64 // MB
	}
	return w
}

// Apply sets the configured level on lvl.
func (s *LogSettings) Apply(lvl *slog.LevelVar) {
	lvl.Set(s.LogLevel)
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error {
	return nil
}
