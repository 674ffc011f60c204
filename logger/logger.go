package logger

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// noopFunc is a reusable no-op function to avoid allocations
var noopFunc = func() {}

// Trace returns a function that logs operation duration when called.
// Returns a no-op function when TRACE level is disabled to avoid overhead.
// Usage: defer logger.Trace("matrix build")()
func Trace(name string) func() {
	l := current()
	if !l.shouldLog(LogLevelTrace) {
		return noopFunc
	}
	start := time.Now()
	return func() {
		l.logWithLevel(LogLevelTrace, "%s: %v", name, time.Since(start))
	}
}

// defaultLogger is used before the global logger is initialized
var defaultLogger = &LimitedLogger{
	out:      os.Stderr,
	level:    LogLevelInfo,
	maxLines: MaxLogLines,
}

// MaxLogLines defines the maximum number of lines to keep in a log file
const MaxLogLines = 5000

// LogLevel represents the logging level
type LogLevel int

const (
	LogLevelTrace LogLevel = iota
	LogLevelDebug
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

// String returns the string representation of a log level
func (l LogLevel) String() string {
	switch l {
	case LogLevelTrace:
		return "TRACE"
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLogLevel parses a string into a LogLevel. Unknown names map to INFO.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return LogLevelTrace
	case "DEBUG":
		return LogLevelDebug
	case "INFO":
		return LogLevelInfo
	case "WARN", "WARNING":
		return LogLevelWarn
	case "ERROR":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

// LimitedLogger is a levelled logger. When backed by a file it keeps at most
// maxLines lines, trimming the oldest ones.
type LimitedLogger struct {
	out       io.Writer
	file      *os.File // nil unless the sink is a rotatable file
	lineCount int
	maxLines  int
	level     LogLevel
	mutex     sync.Mutex
}

// Global logger instance
var (
	globalLogger *LimitedLogger
	globalMu     sync.RWMutex
)

func current() *LimitedLogger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalLogger != nil {
		return globalLogger
	}
	return defaultLogger
}

func setGlobal(ll *LimitedLogger) {
	globalMu.Lock()
	globalLogger = ll
	globalMu.Unlock()
}

// NewLimitedLogger creates a file-backed logger and installs it as the global logger.
// Caller must Close it.
func NewLimitedLogger(file *os.File, level LogLevel) *LimitedLogger {
	ll := &LimitedLogger{
		out:      file,
		file:     file,
		level:    level,
		maxLines: MaxLogLines,
	}

	// Count existing lines in the file
	ll.countExistingLines()
	setGlobal(ll)
	return ll
}

// NewWriterLogger creates a logger writing to w without line limiting and installs
// it as the global logger.
func NewWriterLogger(w io.Writer, level LogLevel) *LimitedLogger {
	ll := &LimitedLogger{
		out:   w,
		level: level,
	}
	setGlobal(ll)
	return ll
}

// Reset drops the global logger; package-level functions fall back to stderr at INFO.
func Reset() {
	setGlobal(nil)
}

// SetLevel sets the logging level
func (ll *LimitedLogger) SetLevel(level LogLevel) {
	ll.mutex.Lock()
	defer ll.mutex.Unlock()
	ll.level = level
}

// SetGlobalLevel sets the logging level on the global logger
func SetGlobalLevel(level LogLevel) {
	current().SetLevel(level)
}

// Enabled reports whether messages at level would be written by the global logger.
func Enabled(level LogLevel) bool {
	return current().shouldLog(level)
}

// shouldLog returns true if the given level should be logged
func (ll *LimitedLogger) shouldLog(level LogLevel) bool {
	ll.mutex.Lock()
	defer ll.mutex.Unlock()
	return level >= ll.level
}

// logWithLevel logs a message at the specified level
func (ll *LimitedLogger) logWithLevel(level LogLevel, format string, v ...any) {
	if !ll.shouldLog(level) {
		return
	}
	// Format with timestamp and write through Write() for proper line counting/rotation
	msg := fmt.Sprintf("%s [%s] %s\n", time.Now().Format("2006/01/02 15:04:05"), level.String(), fmt.Sprintf(format, v...))
	ll.Write([]byte(msg))
}

// Debug logs a debug message
func (ll *LimitedLogger) Debug(format string, v ...any) {
	ll.logWithLevel(LogLevelDebug, format, v...)
}

// Info logs an info message
func (ll *LimitedLogger) Info(format string, v ...any) {
	ll.logWithLevel(LogLevelInfo, format, v...)
}

// Warn logs a warning message
func (ll *LimitedLogger) Warn(format string, v ...any) {
	ll.logWithLevel(LogLevelWarn, format, v...)
}

// Error logs an error message
func (ll *LimitedLogger) Error(format string, v ...any) {
	ll.logWithLevel(LogLevelError, format, v...)
}

// Package-level logging functions that use the global logger (or default if not initialized)
func Debug(format string, v ...any) {
	current().Debug(format, v...)
}

func Info(format string, v ...any) {
	current().Info(format, v...)
}

func Warn(format string, v ...any) {
	current().Warn(format, v...)
}

func Error(format string, v ...any) {
	current().Error(format, v...)
}

// countExistingLines counts the number of lines in the current log file
func (ll *LimitedLogger) countExistingLines() {
	ll.mutex.Lock()
	defer ll.mutex.Unlock()

	if ll.file == nil {
		return
	}

	ll.file.Seek(0, io.SeekStart)
	scanner := bufio.NewScanner(ll.file)

	count := 0
	for scanner.Scan() {
		count++
	}

	ll.lineCount = count

	// Seek back to end of file for appending
	ll.file.Seek(0, io.SeekEnd)
}

// Write implements io.Writer interface
func (ll *LimitedLogger) Write(p []byte) (n int, err error) {
	ll.mutex.Lock()
	defer ll.mutex.Unlock()

	n, err = ll.out.Write(p)
	if err != nil {
		return n, err
	}

	if ll.file == nil || ll.maxLines <= 0 {
		return n, nil
	}

	ll.lineCount += strings.Count(string(p), "\n")
	if ll.lineCount > ll.maxLines {
		ll.rotateLogFile()
	}

	return n, nil
}

// rotateLogFile trims the log file to keep only the last maxLines lines
func (ll *LimitedLogger) rotateLogFile() {
	ll.file.Seek(0, io.SeekStart)
	scanner := bufio.NewScanner(ll.file)
	var lines []string

	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}

	if len(lines) > ll.maxLines {
		lines = lines[len(lines)-ll.maxLines:]
	}

	ll.file.Truncate(0)
	ll.file.Seek(0, io.SeekStart)

	for _, line := range lines {
		ll.file.WriteString(line + "\n")
	}

	ll.lineCount = len(lines)
}

// Close closes the underlying file, if any, and uninstalls the logger.
func (ll *LimitedLogger) Close() error {
	globalMu.Lock()
	if globalLogger == ll {
		globalLogger = nil
	}
	globalMu.Unlock()

	if ll.file == nil {
		return nil
	}
	return ll.file.Close()
}
