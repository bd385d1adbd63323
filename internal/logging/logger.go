// Package logging provides the injectable logger contract used by every
// decode layer and by the collector.
package logging

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Severity mirrors the decode-layer notion of log importance.
type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "DEBUG"
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (s Severity) level() logrus.Level {
	switch s {
	case SeverityDebug:
		return logrus.DebugLevel
	case SeverityInfo:
		return logrus.InfoLevel
	case SeverityWarning:
		return logrus.WarnLevel
	case SeverityError:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// Logger is the contract every decode layer and the collector log through.
// Decode-layer problems (bad checksum, overlong packet, reserved ITM header)
// are logged at Warning and counted in the layer's own stats; they are never
// turned into Go errors on the hot path.
type Logger interface {
	Log(severity Severity, msg string)
	Logf(severity Severity, format string, args ...interface{})
	Error(err error)
	Debug(msg string)
	Debugf(format string, args ...interface{})
	Info(msg string)
	Infof(format string, args ...interface{})
	Warning(msg string)
	Warningf(format string, args ...interface{})
}

// logrusLogger backs Logger with a logrus.Entry that carries the tag as a
// "component" field (component=COBS, component=ITM, ...).
type logrusLogger struct {
	entry *logrus.Entry
}

// New returns a Logger that writes through logrus, tagging every line with
// tag (e.g. "ITM", "COBS", "OFLOW", "COLLECTOR").
func New(tag string, minLevel Severity, out io.Writer) Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	l.SetLevel(minLevel.level())
	if out != nil {
		l.SetOutput(out)
	}
	return &logrusLogger{entry: l.WithField("component", tag)}
}

func (l *logrusLogger) Log(severity Severity, msg string) {
	l.entry.Log(severity.level(), msg)
}

func (l *logrusLogger) Logf(severity Severity, format string, args ...interface{}) {
	l.entry.Logf(severity.level(), format, args...)
}

func (l *logrusLogger) Error(err error) {
	if err != nil {
		l.entry.Error(err.Error())
	}
}

func (l *logrusLogger) Debug(msg string) { l.entry.Debug(msg) }

func (l *logrusLogger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }

func (l *logrusLogger) Info(msg string) { l.entry.Info(msg) }

func (l *logrusLogger) Infof(format string, args ...interface{}) { l.entry.Infof(format, args...) }

func (l *logrusLogger) Warning(msg string) { l.entry.Warning(msg) }

func (l *logrusLogger) Warningf(format string, args ...interface{}) { l.entry.Warningf(format, args...) }

// NoOp discards everything. Useful for library callers that don't want
// decode-layer chatter and for tests.
type NoOp struct{}

func (NoOp) Log(Severity, string)                       {}
func (NoOp) Logf(Severity, string, ...interface{})       {}
func (NoOp) Error(error)                                 {}
func (NoOp) Debug(string)                                {}
func (NoOp) Debugf(string, ...interface{})               {}
func (NoOp) Info(string)                                 {}
func (NoOp) Infof(string, ...interface{})                {}
func (NoOp) Warning(string)                              {}
func (NoOp) Warningf(string, ...interface{})             {}
