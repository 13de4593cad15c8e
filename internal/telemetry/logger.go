// Package telemetry carries the sync engine's ambient concerns: leveled
// logging and the typed error taxonomy from spec.md §7. It deliberately
// does not know about tasks, stores, or sync strategy.
package telemetry

import (
	"log"
	"os"
	"sync"
)

// Logger is a leveled logger with a verbose toggle, grounded on
// internal/utils/logger.go's GetLogger/SetVerbose singleton.
type Logger struct {
	verbose bool
	mu      sync.RWMutex
	out     *log.Logger
}

var (
	global     *Logger
	globalOnce sync.Once
)

// Get returns the process-wide logger instance.
func Get() *Logger {
	globalOnce.Do(func() {
		global = &Logger{out: log.New(os.Stderr, "", log.LstdFlags)}
	})
	return global
}

// SetVerbose toggles debug-level output.
func (l *Logger) SetVerbose(v bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.verbose = v
}

func (l *Logger) isVerbose() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.verbose
}

// Debug logs a debug message, only when verbose mode is enabled.
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.isVerbose() {
		l.out.Printf("[DEBUG] "+format, args...)
	}
}

// Info logs an informational message.
func (l *Logger) Info(format string, args ...interface{}) {
	l.out.Printf("[INFO] "+format, args...)
}

// Warn logs a warning message.
func (l *Logger) Warn(format string, args ...interface{}) {
	l.out.Printf("[WARN] "+format, args...)
}

// Error logs an error message.
func (l *Logger) Error(format string, args ...interface{}) {
	l.out.Printf("[ERROR] "+format, args...)
}

// Debugf, Infof, Warnf, and Errorf are package-level convenience wrappers
// around the global logger, mirroring the teacher's utils.Debugf family.
func Debugf(format string, args ...interface{}) { Get().Debug(format, args...) }
func Infof(format string, args ...interface{})  { Get().Info(format, args...) }
func Warnf(format string, args ...interface{})  { Get().Warn(format, args...) }
func Errorf(format string, args ...interface{}) { Get().Error(format, args...) }
