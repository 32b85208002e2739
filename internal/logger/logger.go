// Package logger provides leveled loggers for the scan reader.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

// LogLevel orders log messages by severity.
type LogLevel int

const (
	// LogDebug - DEBUG log level
	LogDebug LogLevel = iota
	// LogInfo - INFO log level
	LogInfo
	// LogError - ERROR log level (does not call os.Exit!)
	LogError
)

var logLevelPrefix = map[LogLevel]string{
	LogDebug: "DEBUG",
	LogInfo:  "INFO",
	LogError: "ERROR",
}

// ParseLevel maps "debug", "info" and "error" to a LogLevel.
func ParseLevel(s string) (LogLevel, error) {
	for level, name := range logLevelPrefix {
		if strings.EqualFold(s, name) {
			return level, nil
		}
	}
	return LogInfo, fmt.Errorf("unknown log level %q", s)
}

func (l LogLevel) String() string {
	if s, ok := logLevelPrefix[l]; ok {
		return s
	}
	return fmt.Sprintf("LogLevel(%d)", int(l))
}

// ILogger is implemented by every logger in this package.
type ILogger interface {
	Printf(level LogLevel, format string, a ...interface{})
	Debugf(format string, a ...interface{})
	Infof(format string, a ...interface{})
	Errorf(format string, a ...interface{})
}

// NullLogger - For mocking out in tests
type NullLogger struct{}

func (NullLogger) Printf(level LogLevel, format string, a ...interface{}) {}
func (NullLogger) Debugf(format string, a ...interface{})                 {}
func (NullLogger) Infof(format string, a ...interface{})                  {}
func (NullLogger) Errorf(format string, a ...interface{})                 {}

// WriterLogger writes messages at or above its level to an io.Writer.
type WriterLogger struct {
	logLevel LogLevel
	out      *log.Logger
}

// NewWriterLogger logs to w.
func NewWriterLogger(w io.Writer, level LogLevel) *WriterLogger {
	return &WriterLogger{logLevel: level, out: log.New(w, "", log.LstdFlags)}
}

// NewStdErrLogger logs to standard error.
func NewStdErrLogger(level LogLevel) *WriterLogger {
	return NewWriterLogger(os.Stderr, level)
}

func (l *WriterLogger) Printf(level LogLevel, format string, a ...interface{}) {
	if level < l.logLevel {
		return
	}
	l.out.Println(logLevelPrefix[level] + ": " + fmt.Sprintf(format, a...))
}

func (l *WriterLogger) Debugf(format string, a ...interface{}) {
	l.Printf(LogDebug, format, a...)
}

func (l *WriterLogger) Infof(format string, a ...interface{}) {
	l.Printf(LogInfo, format, a...)
}

func (l *WriterLogger) Errorf(format string, a ...interface{}) {
	l.Printf(LogError, format, a...)
}

func (l *WriterLogger) SetLogLevel(level LogLevel) {
	l.logLevel = level
}

func (l *WriterLogger) GetLogLevel() LogLevel {
	return l.logLevel
}
