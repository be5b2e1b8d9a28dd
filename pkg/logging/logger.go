package logging

import (
	"bytes"
	"fmt"
	"io"
	"log"

	"github.com/fatih/color"
)

// writer is an io.Writer that splits its input stream into lines and writes
// those lines to an underlying logger.
type writer struct {
	// callback is the logging callback.
	callback func(string)
	// buffer is any incomplete line fragment left over from a previous write.
	buffer []byte
}

// trimCarriageReturn trims any single trailing carriage return from the end of
// a byte slice.
func trimCarriageReturn(buffer []byte) []byte {
	if len(buffer) > 0 && buffer[len(buffer)-1] == '\r' {
		return buffer[:len(buffer)-1]
	}
	return buffer
}

// Write implements io.Writer.Write.
func (w *writer) Write(buffer []byte) (int, error) {
	w.buffer = append(w.buffer, buffer...)

	var processed int
	remaining := w.buffer
	for {
		index := bytes.IndexByte(remaining, '\n')
		if index == -1 {
			break
		}
		w.callback(string(trimCarriageReturn(remaining[:index])))
		processed += index + 1
		remaining = remaining[index+1:]
	}

	if processed > 0 {
		leftover := len(w.buffer) - processed
		if leftover > 0 {
			copy(w.buffer[:leftover], w.buffer[processed:])
		}
		w.buffer = w.buffer[:leftover]
	}

	return len(buffer), nil
}

// Logger is the core's logging facade. It still functions if nil, in which
// case it logs nothing, so components can be constructed without a logger in
// tests. A Logger carries a level and a dotted prefix rather than relying on
// a package-level singleton, so independent pipelines (e.g. two Miner
// instances in the same process) never share logging state. It is safe for
// concurrent use.
type Logger struct {
	// prefix is any prefix specified for the logger.
	prefix string
	// level is the minimum severity this logger (and its subloggers) will
	// emit.
	level Level
}

// NewLogger creates a root logger at the given level.
func NewLogger(level Level) *Logger {
	return &Logger{level: level}
}

// Sublogger creates a new sublogger with the specified name, inheriting the
// parent's level.
func (l *Logger) Sublogger(name string) *Logger {
	if l == nil {
		return nil
	}
	prefix := name
	if l.prefix != "" {
		prefix = l.prefix + "." + name
	}
	return &Logger{prefix: prefix, level: l.level}
}

// Level reports the logger's configured severity threshold.
func (l *Logger) Level() Level {
	if l == nil {
		return LevelDisabled
	}
	return l.level
}

func (l *Logger) output(calldepth int, line string) {
	if l.prefix != "" {
		line = fmt.Sprintf("[%s] %s", l.prefix, line)
	}
	log.Output(calldepth, line)
}

func (l *Logger) enabled(level Level) bool {
	return l != nil && l.level >= level
}

// Trace logs low-level execution information (e.g. per-event queue
// bookkeeping) when the logger's level is at least LevelTrace.
func (l *Logger) Trace(v ...interface{}) {
	if l.enabled(LevelTrace) {
		l.output(3, fmt.Sprint(v...))
	}
}

// Tracef is the formatted equivalent of Trace.
func (l *Logger) Tracef(format string, v ...interface{}) {
	if l.enabled(LevelTrace) {
		l.output(3, fmt.Sprintf(format, v...))
	}
}

// Debug logs advanced execution information (e.g. per-tick scheduler
// decisions) when the logger's level is at least LevelDebug.
func (l *Logger) Debug(v ...interface{}) {
	if l.enabled(LevelDebug) {
		l.output(3, fmt.Sprint(v...))
	}
}

// Debugf is the formatted equivalent of Debug.
func (l *Logger) Debugf(format string, v ...interface{}) {
	if l.enabled(LevelDebug) {
		l.output(3, fmt.Sprintf(format, v...))
	}
}

// Info logs basic execution information (crawl start/finish, throttle
// changes) when the logger's level is at least LevelInfo. This corresponds
// to the "message" severity used for extractor NotFound errors.
func (l *Logger) Info(v ...interface{}) {
	if l.enabled(LevelInfo) {
		l.output(3, fmt.Sprint(v...))
	}
}

// Infof is the formatted equivalent of Info.
func (l *Logger) Infof(format string, v ...interface{}) {
	if l.enabled(LevelInfo) {
		l.output(3, fmt.Sprintf(format, v...))
	}
}

// Warn logs a non-fatal error in yellow when the logger's level is at least
// LevelWarn.
func (l *Logger) Warn(err error) {
	if l.enabled(LevelWarn) {
		l.output(3, color.YellowString("warning: %v", err))
	}
}

// Warnf logs a formatted non-fatal warning in yellow when the logger's
// level is at least LevelWarn.
func (l *Logger) Warnf(format string, v ...interface{}) {
	if l.enabled(LevelWarn) {
		l.output(3, color.YellowString("warning: "+format, v...))
	}
}

// Critical logs a fatal-to-the-job error in red when the logger's level is
// at least LevelError. This is used for StoreQueryError, StoreUpdateError,
// and ExtractorContractViolation.
func (l *Logger) Critical(err error) {
	if l.enabled(LevelError) {
		l.output(3, color.RedString("critical: %v", err))
	}
}

// Writer returns an io.Writer that writes lines at Info severity.
func (l *Logger) Writer() io.Writer {
	return &writer{callback: func(s string) { l.Info(s) }}
}
