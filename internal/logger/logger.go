package logger

import (
	"io"
	"log"
	"os"
)

// Logger wraps standard log with debug flag. Printf/Print/Println only write
// in debug mode; Warnf, Errorf and Fatalf always write.
type Logger struct {
	debug bool
	*log.Logger
}

// New creates a new logger writing to stderr
func New(debug bool) *Logger {
	return NewWithWriter(debug, os.Stderr)
}

// NewWithWriter creates a logger writing to w
func NewWithWriter(debug bool, w io.Writer) *Logger {
	if w == nil {
		w = io.Discard
	}
	return &Logger{
		debug:  debug,
		Logger: log.New(w, "", log.LstdFlags),
	}
}

// Discard returns a logger that drops everything
func Discard() *Logger {
	return NewWithWriter(false, io.Discard)
}

// With returns a logger that prefixes every line with the component name
func (l *Logger) With(component string) *Logger {
	return &Logger{
		debug:  l.debug,
		Logger: log.New(l.Writer(), l.Prefix()+component+": ", l.Flags()|log.Lmsgprefix),
	}
}

// Debug reports whether debug output is enabled
func (l *Logger) Debug() bool {
	return l.debug
}

// Printf logs if debug is enabled
func (l *Logger) Printf(format string, v ...interface{}) {
	if l.debug {
		l.Logger.Printf(format, v...)
	}
}

// Print logs if debug is enabled
func (l *Logger) Print(v ...interface{}) {
	if l.debug {
		l.Logger.Print(v...)
	}
}

// Println logs if debug is enabled
func (l *Logger) Println(v ...interface{}) {
	if l.debug {
		l.Logger.Println(v...)
	}
}

// Warnf always logs
func (l *Logger) Warnf(format string, v ...interface{}) {
	l.Logger.Printf("warn: "+format, v...)
}

// Errorf always logs
func (l *Logger) Errorf(format string, v ...interface{}) {
	l.Logger.Printf("error: "+format, v...)
}

// Fatalf always logs (fatal errors)
func (l *Logger) Fatalf(format string, v ...interface{}) {
	l.Logger.Fatalf(format, v...)
}
