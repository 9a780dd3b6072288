// Package logger provides the structured zap logger shared by campusbridge.
//
// Init configures the process-wide logger once from the environment and
// level. Components take a named child via Named and log with typed fields.
// When verbose mode is enabled via the --verbose flag, the level drops to
// debug so page tokens and request parameters are visible.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu      sync.RWMutex
	log     *zap.Logger
	sugar   *zap.SugaredLogger
	level   = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	base    = zapcore.InfoLevel
	verbose bool
	output  io.Writer = os.Stderr
	dev     bool
)

// Init initializes the global logger.
// Environment can be "dev" ("development"), "test" or "prod". Dev output
// is human readable.
func Init(service, env, lvl string) {
	mu.Lock()
	defer mu.Unlock()

	dev = env == "dev" || env == "development" || env == ""
	base = zapcore.InfoLevel
	if parsed, err := zapcore.ParseLevel(lvl); err == nil {
		base = parsed
	}
	applyLevelLocked()
	buildLocked()

	log = log.With(zap.String("service", service), zap.String("env", env))
	sugar = log.Sugar()
	log.Debug("logger initialized", zap.String("level", base.String()))
}

// L returns the base structured logger.
func L() *zap.Logger {
	mu.RLock()
	l := log
	mu.RUnlock()
	if l == nil {
		Init("campusbridge", "dev", "info")
		mu.RLock()
		l = log
		mu.RUnlock()
	}
	return l
}

// S returns the sugared logger.
func S() *zap.SugaredLogger {
	mu.RLock()
	s := sugar
	mu.RUnlock()
	if s == nil {
		Init("campusbridge", "dev", "info")
		mu.RLock()
		s = sugar
		mu.RUnlock()
	}
	return s
}

// Named returns a child logger for a component.
func Named(name string) *zap.Logger {
	return L().Named(name)
}

// SetVerbose enables or disables debug output.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	applyLevelLocked()
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput redirects log output, as JSON lines, to w.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	dev = false
	buildLocked()
}

// Debug logs a formatted debug message.
func Debug(format string, args ...any) {
	S().Debug(fmt.Sprintf(format, args...))
}

// Info logs a formatted informational message.
func Info(format string, args ...any) {
	S().Info(fmt.Sprintf(format, args...))
}

// Warn logs a formatted warning.
func Warn(format string, args ...any) {
	S().Warn(fmt.Sprintf(format, args...))
}

// Sync flushes any buffered logs (defer this in main()).
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	if log != nil {
		_ = log.Sync()
	}
}

func applyLevelLocked() {
	if verbose {
		level.SetLevel(zapcore.DebugLevel)
		return
	}
	level.SetLevel(base)
}

func buildLocked() {
	var enc zapcore.Encoder
	if dev {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(cfg)
	} else {
		enc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	}
	core := zapcore.NewCore(enc, zapcore.AddSync(output), level)
	log = zap.New(core, zap.AddCaller())
	sugar = log.Sugar()
}
