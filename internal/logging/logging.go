package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps logrus with file rotation. Output goes to both the rotated
// log file and stdout.
type Logger struct {
	log *logrus.Logger
}

// New creates a Logger writing to dir/skyalert.log at the given level.
func New(dir, level string) (*Logger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log folder failed: %w", err)
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}

	rotated := &lumberjack.Logger{
		Filename:   filepath.Join(dir, "skyalert.log"),
		MaxSize:    20, // MB
		MaxBackups: 5,
		MaxAge:     30, // days
	}

	l := logrus.New()
	l.SetLevel(lvl)
	l.SetOutput(io.MultiWriter(rotated, os.Stdout))
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	return &Logger{log: l}, nil
}

func (l *Logger) Debugf(msg string, args ...interface{}) {
	l.log.Debugf(msg, args...)
}

func (l *Logger) Infof(msg string, args ...interface{}) {
	l.log.Infof(msg, args...)
}

func (l *Logger) Warnf(msg string, args ...interface{}) {
	l.log.Warnf(msg, args...)
}

func (l *Logger) Errorf(msg string, args ...interface{}) {
	l.log.Errorf(msg, args...)
}

// Discard returns a logger that drops everything. Used in tests.
func Discard() *Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return &Logger{log: l}
}

// Capture returns a logger that records entries in memory via a logrus
// test hook. Used in tests that assert on log output.
func Capture() (*Logger, *logrustest.Hook) {
	l, hook := logrustest.NewNullLogger()
	l.SetLevel(logrus.DebugLevel)
	return &Logger{log: l}, hook
}
