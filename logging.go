package ringoram

import (
	"io"
	"log"
	"os"

	"github.com/hashicorp/logutils"
)

// Logger is the leveled logging surface RingORAM uses for recoverable
// corruption and arithmetic-fallback events (spec.md §7). Its shape follows
// the reference corpus's own log package: a handful of level-tagged methods
// wrapping the stdlib logger rather than a full structured-logging facade,
// since the core never needs more than "this happened, here's the context".
type Logger interface {
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Infof(format string, args ...interface{})
}

// Level names understood by NewLogger, ordered least to most verbose.
const (
	LevelError = "ERROR"
	LevelWarn  = "WARN"
	LevelInfo  = "INFO"
)

// stdLogger implements Logger over a stdlib *log.Logger filtered through
// hashicorp/logutils, matching the level-filter pattern the reference
// corpus's own log package uses ahead of hashicorp/raft integration.
type stdLogger struct {
	filter *logutils.LevelFilter
	std    *log.Logger
}

// NewLogger builds a Logger that writes to w, showing only levels at or
// above minLevel (one of LevelError, LevelWarn, LevelInfo).
func NewLogger(w io.Writer, minLevel string) Logger {
	filter := &logutils.LevelFilter{
		Levels:   []logutils.LogLevel{LevelInfo, LevelWarn, LevelError},
		MinLevel: logutils.LogLevel(minLevel),
		Writer:   w,
	}
	return &stdLogger{
		filter: filter,
		std:    log.New(filter, "ringoram: ", log.LstdFlags),
	}
}

// NewSilentLogger discards everything; it is the zero-value default so a
// RingORAM built without an explicit Logger never touches stderr.
func NewSilentLogger() Logger {
	return NewLogger(io.Discard, LevelError)
}

// NewStderrLogger is a convenience constructor for the CLI and for tests
// that want to see fallback/corruption events on the console.
func NewStderrLogger(minLevel string) Logger {
	return NewLogger(os.Stderr, minLevel)
}

func (l *stdLogger) Warnf(format string, args ...interface{}) {
	l.std.Printf("[WARN] "+format, args...)
}

func (l *stdLogger) Errorf(format string, args ...interface{}) {
	l.std.Printf("[ERROR] "+format, args...)
}

func (l *stdLogger) Infof(format string, args ...interface{}) {
	l.std.Printf("[INFO] "+format, args...)
}
