// Package logging builds the process-wide logger. The TUI owns the
// terminal while a session runs, so logs go to a rotating file instead
// of stdout.
package logging

import (
	"io"
	"log"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// NewFileLogger returns a *log.Logger writing to a size-rotated file
// under dir, plus the underlying closer for shutdown.
func NewFileLogger(dir string) (*log.Logger, io.Closer) {
	sink := &lumberjack.Logger{
		Filename:   filepath.Join(dir, "openhiit.log"),
		MaxSize:    5, // megabytes
		MaxBackups: 3,
		MaxAge:     30, // days
	}
	return log.New(sink, "", log.LstdFlags|log.Lmsgprefix), sink
}

// NewDiscardLogger returns a logger that drops everything. Used by
// tests and as a fallback when the log directory is unavailable.
func NewDiscardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}
