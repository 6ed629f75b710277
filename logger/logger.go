// Package logger defines the debug logging interface shared by every
// layer of the OSI stack. Implementations decide the output format;
// the stack only emits printf-style debug lines and structured hex
// dumps of the frames it sends and receives.
package logger

import "log"

// Logger receives debug output from the protocol layers.
type Logger interface {
	Debug(format string, v ...any)
}

// stdLogger implements Logger on the standard log package.
type stdLogger struct {
	category string
}

// New creates a logger writing to the standard log package with the
// given category prefix.
func New(category string) Logger {
	return &stdLogger{category: category}
}

func (l *stdLogger) Debug(format string, v ...any) {
	if l.category == "" {
		log.Printf(format, v...)
	} else {
		log.Printf("["+l.category+"] "+format, v...)
	}
}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return nopLogger{}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
