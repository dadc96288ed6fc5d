// Package logger wraps logrus behind the small logging surface used across
// the synapse service. All output goes to stderr so that the stdio MCP
// transport keeps stdout free for protocol frames.
package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

var std = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	return l
}

// Init configures the global log level from a textual level name.
// Unknown names fall back to info.
func Init(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	std.SetLevel(lvl)
}

// SetOutput redirects log output, used by tests.
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}

// WithField returns an entry carrying a single structured field.
func WithField(key string, value interface{}) *logrus.Entry {
	return std.WithField(key, value)
}

// WithFields returns an entry carrying structured fields.
func WithFields(fields logrus.Fields) *logrus.Entry {
	return std.WithFields(fields)
}

func Debug(args ...interface{})                 { std.Debug(args...) }
func Debugf(format string, args ...interface{}) { std.Debugf(format, args...) }
func Info(args ...interface{})                  { std.Info(args...) }
func Infof(format string, args ...interface{})  { std.Infof(format, args...) }
func Warn(args ...interface{})                  { std.Warn(args...) }
func Warnf(format string, args ...interface{})  { std.Warnf(format, args...) }
func Error(args ...interface{})                 { std.Error(args...) }
func Errorf(format string, args ...interface{}) { std.Errorf(format, args...) }
