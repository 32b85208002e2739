package logger

import (
	"github.com/natefinch/lumberjack"
)

// FileLogger writes to a size- and age-rotated log file.
type FileLogger struct {
	*WriterLogger
	file *lumberjack.Logger
}

// NewFileLogger logs to filename, rotating after maxSize megabytes and
// deleting rotated files older than maxAge days.
func NewFileLogger(filename string, maxSize, maxAge int, level LogLevel) *FileLogger {
	l := &lumberjack.Logger{
		Filename: filename,
		MaxSize:  maxSize, // megabytes
		MaxAge:   maxAge,  // days
	}
	return &FileLogger{WriterLogger: NewWriterLogger(l, level), file: l}
}

// Close closes the current log file.
func (l *FileLogger) Close() error {
	return l.file.Close()
}
