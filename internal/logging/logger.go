// Package logging provides config-driven categorized logging for replykit.
// Every category is a named child of one zap logger. Logging is controlled by
// debug_mode in the logging config - when false, every category is a no-op.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/subsystem
type Category string

const (
	CategoryBoot         Category = "boot"         // Startup, config resolution
	CategoryArticulation Category = "articulation" // Raw model output -> segments
	CategoryAPI          Category = "api"          // Language-model transport calls
	CategoryServer       Category = "server"       // HTTP response handler
	CategoryRender       Category = "render"       // Terminal rendering, copy/link actions
	CategoryInbox        Category = "inbox"        // Directory watcher
)

// LogFileName is the file written inside Options.Dir.
const LogFileName = "replykit.log"

// Options mirrors config.LoggingConfig to avoid an import cycle.
type Options struct {
	DebugMode  bool
	Level      string          // debug, info, warn, error
	Format     string          // json, console
	Dir        string          // empty = stderr
	Categories map[string]bool // per-category toggles; missing = enabled
}

// Logger is a category-scoped printf-style logger.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	mu      sync.RWMutex
	base    = zap.NewNop()
	opts    Options
	loggers = make(map[Category]*Logger)
)

// Initialize builds the process-wide zap logger from opts.
// With DebugMode off it installs a no-op logger and writes nothing.
func Initialize(o Options) error {
	if !o.DebugMode {
		Use(zap.NewNop(), o)
		return nil
	}

	level, err := zapcore.ParseLevel(strings.TrimSpace(o.Level))
	if err != nil || o.Level == "" {
		level = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.Sampling = nil
	if o.Format != "json" {
		cfg.Encoding = "console"
		cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if o.Dir != "" {
		if err := os.MkdirAll(o.Dir, 0755); err != nil {
			return fmt.Errorf("failed to create logs directory: %w", err)
		}
		cfg.OutputPaths = []string{filepath.Join(o.Dir, LogFileName)}
	} else {
		cfg.OutputPaths = []string{"stderr"}
	}
	cfg.ErrorOutputPaths = []string{"stderr"}

	l, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	Use(l, o)

	boot := Get(CategoryBoot)
	boot.Info("logging initialized level=%s format=%s dir=%q", level, cfg.Encoding, o.Dir)
	for cat, enabled := range o.Categories {
		boot.Debug("category %q enabled=%v", cat, enabled)
	}
	return nil
}

// Use installs l as the base logger. Tests inject an observer core here.
func Use(l *zap.Logger, o Options) {
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	defer mu.Unlock()
	base = l
	opts = o
	loggers = make(map[Category]*Logger)
}

// Sync flushes buffered entries. Call at shutdown.
func Sync() {
	mu.RLock()
	l := base
	mu.RUnlock()
	_ = l.Sync()
}

// IsDebugMode returns whether debug logging is enabled
func IsDebugMode() bool {
	mu.RLock()
	defer mu.RUnlock()
	return opts.DebugMode
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	return categoryEnabled(category)
}

func categoryEnabled(category Category) bool {
	if !opts.DebugMode {
		return false
	}
	enabled, exists := opts.Categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

// Get returns (or creates) the logger for a category.
// Disabled categories get a no-op logger.
func Get(category Category) *Logger {
	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}

	l := &Logger{category: category}
	if categoryEnabled(category) {
		l.sugar = base.Named(string(category)).Sugar()
	}
	loggers[category] = l
	return l
}

// Category returns the category this logger writes to.
func (l *Logger) Category() Category { return l.category }

// Enabled reports whether the logger writes anything.
func (l *Logger) Enabled() bool { return l.sugar != nil }

func (l *Logger) Debug(format string, args ...interface{}) {
	if l.sugar != nil {
		l.sugar.Debugf(format, args...)
	}
}

func (l *Logger) Info(format string, args ...interface{}) {
	if l.sugar != nil {
		l.sugar.Infof(format, args...)
	}
}

func (l *Logger) Warn(format string, args ...interface{}) {
	if l.sugar != nil {
		l.sugar.Warnf(format, args...)
	}
}

func (l *Logger) Error(format string, args ...interface{}) {
	if l.sugar != nil {
		l.sugar.Errorf(format, args...)
	}
}

// With returns a child logger carrying structured key/value context,
// e.g. With("request_id", id).
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	if l.sugar == nil {
		return l
	}
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

// =============================================================================
// CONVENIENCE FUNCTIONS - no-ops when the category is disabled
// =============================================================================

func Boot(format string, args ...interface{}) { Get(CategoryBoot).Info(format, args...) }

func Articulation(format string, args ...interface{}) {
	Get(CategoryArticulation).Info(format, args...)
}

func ArticulationDebug(format string, args ...interface{}) {
	Get(CategoryArticulation).Debug(format, args...)
}

func API(format string, args ...interface{}) { Get(CategoryAPI).Info(format, args...) }

func APIDebug(format string, args ...interface{}) { Get(CategoryAPI).Debug(format, args...) }

func APIError(format string, args ...interface{}) { Get(CategoryAPI).Error(format, args...) }

func Server(format string, args ...interface{}) { Get(CategoryServer).Info(format, args...) }

func ServerError(format string, args ...interface{}) { Get(CategoryServer).Error(format, args...) }

func Render(format string, args ...interface{}) { Get(CategoryRender).Info(format, args...) }

func RenderDebug(format string, args ...interface{}) { Get(CategoryRender).Debug(format, args...) }

func Inbox(format string, args ...interface{}) { Get(CategoryInbox).Info(format, args...) }

func InboxError(format string, args ...interface{}) { Get(CategoryInbox).Error(format, args...) }

// =============================================================================
// TIMING HELPERS
// =============================================================================

// Timer measures an operation and logs its duration on Stop.
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, op: operation, start: time.Now()}
}

// Stop ends the timer and logs the duration at debug level
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithThreshold logs a warning if the duration exceeds threshold
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s took %v (threshold: %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}
