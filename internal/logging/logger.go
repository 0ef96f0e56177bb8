// Package logging provides categorized structured logging for postcouncil.
// Every category is a named child of one zap logger; until Initialize or
// SetLogger is called all output is discarded.
package logging

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot      Category = "boot"      // Startup, config, migrations
	CategoryCampaign  Category = "campaign"  // Activation and unit fan-out
	CategoryContext   Category = "context"   // Context assembly
	CategoryProvider  Category = "provider"  // LLM backend calls
	CategoryCouncil   Category = "council"   // Council rounds and aggregation
	CategoryStore     Category = "store"     // SQLite persistence
	CategoryExecLog   Category = "execlog"   // Execution log writes
	CategoryTelemetry Category = "telemetry" // Tracing setup
)

// Options configures the root logger.
type Options struct {
	// Level is one of debug, info, warn, error. Empty means info.
	Level string
	// Format is "json" or "console". Empty means json.
	Format string
	// Categories disables individual categories when mapped to false.
	// Unlisted categories are enabled.
	Categories map[string]bool
}

// Logger is a category-scoped printf-style logger.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	mu       sync.RWMutex
	root     = zap.NewNop()
	disabled = map[Category]bool{}
	loggers  = map[Category]*Logger{}
	nop      = &Logger{sugar: zap.NewNop().Sugar()}
)

// Initialize builds the root zap logger from opts.
func Initialize(opts Options) error {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return err
	}

	var cfg zap.Config
	switch strings.ToLower(opts.Format) {
	case "", "json":
		cfg = zap.NewProductionConfig()
	case "console":
		cfg = zap.NewDevelopmentConfig()
	default:
		return fmt.Errorf("unknown log format %q", opts.Format)
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	l, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}

	off := make(map[Category]bool)
	for name, enabled := range opts.Categories {
		if !enabled {
			off[Category(name)] = true
		}
	}

	install(l, off)
	Get(CategoryBoot).Debug("logging initialized (level=%s, format=%s)", level, cfg.Encoding)
	return nil
}

// SetLogger replaces the root logger. All categories are enabled.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	install(l, map[Category]bool{})
}

// Root returns the underlying zap logger.
func Root() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root
}

// Sync flushes buffered output. Call at shutdown.
func Sync() {
	_ = Root().Sync()
}

func install(l *zap.Logger, off map[Category]bool) {
	mu.Lock()
	defer mu.Unlock()
	root = l
	disabled = off
	loggers = map[Category]*Logger{}
}

// ParseLevel maps a level name to a zap level. Empty means info.
func ParseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	}
	return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", s)
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	return !disabled[category]
}

// Get returns (or creates) the logger for a category.
// Disabled categories get a no-op logger.
func Get(category Category) *Logger {
	mu.RLock()
	l, ok := loggers[category]
	off := disabled[category]
	mu.RUnlock()
	if ok {
		return l
	}
	if off {
		return nop
	}

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}
	l = &Logger{
		category: category,
		sugar:    root.Named(string(category)).Sugar(),
	}
	loggers[category] = l
	return l
}

func (l *Logger) Debug(format string, args ...interface{}) { l.sugar.Debugf(format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.sugar.Infof(format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.sugar.Warnf(format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.sugar.Errorf(format, args...) }

// With returns a child logger carrying the given key/value pairs.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

// Zap exposes the category logger as a structured zap logger.
func (l *Logger) Zap() *zap.Logger {
	return l.sugar.Desugar()
}

// =============================================================================
// CONVENIENCE FUNCTIONS - Quick logging without getting a logger first
// =============================================================================

// Boot logs to the boot category
func Boot(format string, args ...interface{}) { Get(CategoryBoot).Info(format, args...) }

// BootDebug logs debug to the boot category
func BootDebug(format string, args ...interface{}) { Get(CategoryBoot).Debug(format, args...) }

// BootWarn logs warning to the boot category
func BootWarn(format string, args ...interface{}) { Get(CategoryBoot).Warn(format, args...) }

// BootError logs error to the boot category
func BootError(format string, args ...interface{}) { Get(CategoryBoot).Error(format, args...) }

// Campaign logs to the campaign category
func Campaign(format string, args ...interface{}) { Get(CategoryCampaign).Info(format, args...) }

// CampaignDebug logs debug to the campaign category
func CampaignDebug(format string, args ...interface{}) { Get(CategoryCampaign).Debug(format, args...) }

// CampaignWarn logs warning to the campaign category
func CampaignWarn(format string, args ...interface{}) { Get(CategoryCampaign).Warn(format, args...) }

// CampaignError logs error to the campaign category
func CampaignError(format string, args ...interface{}) { Get(CategoryCampaign).Error(format, args...) }

// Context logs to the context category
func Context(format string, args ...interface{}) { Get(CategoryContext).Info(format, args...) }

// ContextDebug logs debug to the context category
func ContextDebug(format string, args ...interface{}) { Get(CategoryContext).Debug(format, args...) }

// ContextWarn logs warning to the context category
func ContextWarn(format string, args ...interface{}) { Get(CategoryContext).Warn(format, args...) }

// Provider logs to the provider category
func Provider(format string, args ...interface{}) { Get(CategoryProvider).Info(format, args...) }

// ProviderDebug logs debug to the provider category
func ProviderDebug(format string, args ...interface{}) { Get(CategoryProvider).Debug(format, args...) }

// ProviderWarn logs warning to the provider category
func ProviderWarn(format string, args ...interface{}) { Get(CategoryProvider).Warn(format, args...) }

// ProviderError logs error to the provider category
func ProviderError(format string, args ...interface{}) { Get(CategoryProvider).Error(format, args...) }

// Council logs to the council category
func Council(format string, args ...interface{}) { Get(CategoryCouncil).Info(format, args...) }

// CouncilDebug logs debug to the council category
func CouncilDebug(format string, args ...interface{}) { Get(CategoryCouncil).Debug(format, args...) }

// CouncilWarn logs warning to the council category
func CouncilWarn(format string, args ...interface{}) { Get(CategoryCouncil).Warn(format, args...) }

// Store logs to the store category
func Store(format string, args ...interface{}) { Get(CategoryStore).Info(format, args...) }

// StoreDebug logs debug to the store category
func StoreDebug(format string, args ...interface{}) { Get(CategoryStore).Debug(format, args...) }

// StoreWarn logs warning to the store category
func StoreWarn(format string, args ...interface{}) { Get(CategoryStore).Warn(format, args...) }

// StoreError logs error to the store category
func StoreError(format string, args ...interface{}) { Get(CategoryStore).Error(format, args...) }

// ExecLogError logs error to the execlog category
func ExecLogError(format string, args ...interface{}) { Get(CategoryExecLog).Error(format, args...) }

// =============================================================================
// EXECUTION TRACING - Correlate output with an activation or unit id
// =============================================================================

// WithExecution returns a category logger that tags every line with execution_id.
func WithExecution(category Category, executionID string) *Logger {
	return Get(category).With("execution_id", executionID)
}

// =============================================================================
// TIMING HELPERS
// =============================================================================

// Timer helps measure operation duration
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation
func StartTimer(category Category, operation string) *Timer {
	return &Timer{
		category: category,
		op:       operation,
		start:    time.Now(),
	}
}

// Stop ends the timer and logs the duration at debug level
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithInfo ends the timer and logs at info level
func (t *Timer) StopWithInfo() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Info("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithThreshold logs a warning if duration exceeds threshold
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s took %v (threshold: %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}
