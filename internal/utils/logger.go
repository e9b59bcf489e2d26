package utils

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger provides leveled logging with verbose mode support
type Logger struct {
	verbose bool
	mu      sync.RWMutex
}

var (
	globalLogger *Logger
	loggerOnce   sync.Once
)

// GetLogger returns the global logger instance
func GetLogger() *Logger {
	loggerOnce.Do(func() {
		globalLogger = &Logger{
			verbose: false,
		}
	})
	return globalLogger
}

// SetVerbose enables or disables verbose logging
func (l *Logger) SetVerbose(verbose bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.verbose = verbose
}

// IsVerbose returns whether verbose logging is enabled
func (l *Logger) IsVerbose() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.verbose
}

// Debug logs a debug message (only when verbose is enabled)
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.IsVerbose() {
		log.Printf("[DEBUG] "+format, args...)
	}
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	log.Printf("[INFO] "+format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	log.Printf("[WARN] "+format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	log.Printf("[ERROR] "+format, args...)
}

// Debugf is a convenience function for debug logging
func Debugf(format string, args ...interface{}) {
	GetLogger().Debug(format, args...)
}

// Infof is a convenience function for info logging
func Infof(format string, args ...interface{}) {
	GetLogger().Info(format, args...)
}

// Warnf is a convenience function for warning logging
func Warnf(format string, args ...interface{}) {
	GetLogger().Warn(format, args...)
}

// Errorf is a convenience function for error logging
func Errorf(format string, args ...interface{}) {
	GetLogger().Error(format, args...)
}

// SetVerboseMode is a convenience function to set global verbose mode
func SetVerboseMode(verbose bool) {
	GetLogger().SetVerbose(verbose)
	if verbose {
		log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	} else {
		log.SetFlags(0)
	}
}

// SetOutput redirects every leveled log line, e.g. to a rotating file for
// the background sync process.
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

// LogOperation logs the start and end of an operation
func LogOperation(operation string, fn func() error) error {
	logger := GetLogger()
	logger.Debug("Starting operation: %s", operation)

	err := fn()

	if err != nil {
		logger.Debug("Operation failed: %s - %v", operation, err)
	} else {
		logger.Debug("Operation completed: %s", operation)
	}

	return err
}

// LogOperationf logs the start and end of an operation with formatted message
func LogOperationf(format string, fn func() error, args ...interface{}) error {
	operation := fmt.Sprintf(format, args...)
	return LogOperation(operation, fn)
}

// RotationOptions configures the rotating file behind a BackgroundLogger.
type RotationOptions struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// BackgroundLogger writes to a size-rotated log file. It is used by the
// long-running sync watcher, whose stderr is usually detached.
type BackgroundLogger struct {
	writer *lumberjack.Logger
	logger *log.Logger
	path   string
}

// DefaultBackgroundLogPath returns $XDG_STATE_HOME/jurnalguru/sync.log or
// ~/.local/state/jurnalguru/sync.log.
func DefaultBackgroundLogPath() (string, error) {
	dir, err := AppDir("XDG_STATE_HOME", ".local", "state")
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "sync.log"), nil
}

// NewBackgroundLogger opens (creating if needed) the rotating log file.
// An empty path selects DefaultBackgroundLogPath.
func NewBackgroundLogger(opts RotationOptions) (*BackgroundLogger, error) {
	path := opts.Path
	if path == "" {
		p, err := DefaultBackgroundLogPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve log path: %w", err)
		}
		path = p
	}
	path, err := ExpandPath(path)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	w := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
	}
	return &BackgroundLogger{
		writer: w,
		logger: log.New(w, "", log.LstdFlags),
		path:   path,
	}, nil
}

func (b *BackgroundLogger) Printf(format string, args ...interface{}) {
	b.logger.Printf(format, args...)
}

func (b *BackgroundLogger) Println(args ...interface{}) {
	b.logger.Println(args...)
}

// Writer exposes the rotating file for SetOutput.
func (b *BackgroundLogger) Writer() io.Writer {
	return b.writer
}

// GetLogPath returns the path of the active log file
func (b *BackgroundLogger) GetLogPath() string {
	return b.path
}

func (b *BackgroundLogger) Close() error {
	return b.writer.Close()
}
