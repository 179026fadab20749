// Package logging provides categorized logging for synthfeed on top of zap.
// Every subsystem logs through a named category; categories can be toggled
// individually. Console output goes to stderr, and when debug mode is on a
// JSON log file is written per day under the configured directory.
// Until Initialize is called every logger is a no-op.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot         Category = "boot"         // Startup, config
	CategoryFeed         Category = "feed"         // RSS fetch and headline selection
	CategoryMedia        Category = "media"        // Image download and resize
	CategoryAPI          Category = "api"          // Generator API calls
	CategoryArticulation Category = "articulation" // Response sanitizing and repair
	CategoryEmbedding    Category = "embedding"    // Embedding and clustering
	CategoryStore        Category = "store"        // History file and archive
	CategoryRender       Category = "render"       // HTML rendering and watcher
	CategoryChat         Category = "chat"         // Persona chat sessions
	CategoryCycle        Category = "cycle"        // Generation cycle orchestration
)

// Options configures Initialize.
type Options struct {
	// Dir receives the daily log file when DebugMode is set.
	Dir string
	// DebugMode enables the JSON file log.
	DebugMode bool
	// Level applies to the file log: debug, info, warn, error.
	Level string
	// Verbose lowers the console level to debug.
	Verbose bool
	// Quiet disables console output entirely.
	Quiet bool
	// Categories disables a category when its entry is false.
	Categories map[string]bool
	// Console overrides stderr (tests).
	Console io.Writer
}

// Logger is a category-scoped printf-style logger.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	mu      sync.RWMutex
	base    = zap.NewNop()
	options Options
	loggers = make(map[Category]*Logger)
	logFile *os.File
)

// Initialize builds the root logger from opts. It may be called again to
// reconfigure; previously handed out loggers keep their old sink.
func Initialize(opts Options) error {
	var cores []zapcore.Core

	if !opts.Quiet {
		console := opts.Console
		if console == nil {
			console = os.Stderr
		}
		level := zapcore.InfoLevel
		if opts.Verbose {
			level = zapcore.DebugLevel
		}
		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(encCfg),
			zapcore.AddSync(console),
			level,
		))
	}

	var file *os.File
	if opts.DebugMode {
		if opts.Dir == "" {
			return fmt.Errorf("log directory required in debug mode")
		}
		if err := os.MkdirAll(opts.Dir, 0755); err != nil {
			return fmt.Errorf("failed to create logs directory: %w", err)
		}
		name := fmt.Sprintf("%s_synthfeed.log", time.Now().Format("2006-01-02"))
		var err error
		file, err = os.OpenFile(filepath.Join(opts.Dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		level, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			level = zapcore.InfoLevel
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(file),
			level,
		))
	}

	InitializeWithCore(zapcore.NewTee(cores...), opts)

	mu.Lock()
	logFile = file
	mu.Unlock()

	Boot("logging initialized (debug_mode=%v, verbose=%v)", opts.DebugMode, opts.Verbose)
	return nil
}

// InitializeWithCore installs an explicit zap core, e.g. an observer in tests.
func InitializeWithCore(core zapcore.Core, opts Options) {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
	base = zap.New(core)
	options = opts
	loggers = make(map[Category]*Logger)
}

// Base returns the root zap logger.
func Base() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	if options.Categories == nil {
		return true
	}
	enabled, exists := options.Categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if the category is disabled.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) {
		return &Logger{category: category, sugar: zap.NewNop().Sugar()}
	}

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
	l := &Logger{
		category: category,
		sugar:    base.Named(string(category)).Sugar(),
	}
	loggers[category] = l
	return l
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

// StructuredLog writes a log entry with explicit key/value fields.
func (l *Logger) StructuredLog(level string, msg string, fields map[string]interface{}) {
	kv := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		kv = append(kv, k, v)
	}
	switch level {
	case "debug":
		l.sugar.Debugw(msg, kv...)
	case "warn":
		l.sugar.Warnw(msg, kv...)
	case "error":
		l.sugar.Errorw(msg, kv...)
	default:
		l.sugar.Infow(msg, kv...)
	}
}

// With returns a logger that attaches the given key/value pairs to every entry.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

// Sync flushes buffered entries and closes the log file.
func Sync() {
	mu.Lock()
	defer mu.Unlock()
	_ = base.Sync()
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}

// =============================================================================
// CONVENIENCE FUNCTIONS
// =============================================================================

// Boot logs to the boot category
func Boot(format string, args ...interface{}) {
	Get(CategoryBoot).Info(format, args...)
}

// BootDebug logs debug to the boot category
func BootDebug(format string, args ...interface{}) {
	Get(CategoryBoot).Debug(format, args...)
}

// Feed logs to the feed category
func Feed(format string, args ...interface{}) {
	Get(CategoryFeed).Info(format, args...)
}

// FeedDebug logs debug to the feed category
func FeedDebug(format string, args ...interface{}) {
	Get(CategoryFeed).Debug(format, args...)
}

// FeedWarn logs warning to the feed category
func FeedWarn(format string, args ...interface{}) {
	Get(CategoryFeed).Warn(format, args...)
}

// Media logs to the media category
func Media(format string, args ...interface{}) {
	Get(CategoryMedia).Info(format, args...)
}

// MediaDebug logs debug to the media category
func MediaDebug(format string, args ...interface{}) {
	Get(CategoryMedia).Debug(format, args...)
}

// API logs to the api category
func API(format string, args ...interface{}) {
	Get(CategoryAPI).Info(format, args...)
}

// APIDebug logs debug to the api category
func APIDebug(format string, args ...interface{}) {
	Get(CategoryAPI).Debug(format, args...)
}

// Articulation logs to the articulation category
func Articulation(format string, args ...interface{}) {
	Get(CategoryArticulation).Info(format, args...)
}

// ArticulationDebug logs debug to the articulation category
func ArticulationDebug(format string, args ...interface{}) {
	Get(CategoryArticulation).Debug(format, args...)
}

// ArticulationWarn logs warning to the articulation category
func ArticulationWarn(format string, args ...interface{}) {
	Get(CategoryArticulation).Warn(format, args...)
}

// ArticulationError logs error to the articulation category
func ArticulationError(format string, args ...interface{}) {
	Get(CategoryArticulation).Error(format, args...)
}

// Embedding logs to the embedding category
func Embedding(format string, args ...interface{}) {
	Get(CategoryEmbedding).Info(format, args...)
}

// EmbeddingDebug logs debug to the embedding category
func EmbeddingDebug(format string, args ...interface{}) {
	Get(CategoryEmbedding).Debug(format, args...)
}

// Store logs to the store category
func Store(format string, args ...interface{}) {
	Get(CategoryStore).Info(format, args...)
}

// StoreDebug logs debug to the store category
func StoreDebug(format string, args ...interface{}) {
	Get(CategoryStore).Debug(format, args...)
}

// Render logs to the render category
func Render(format string, args ...interface{}) {
	Get(CategoryRender).Info(format, args...)
}

// RenderDebug logs debug to the render category
func RenderDebug(format string, args ...interface{}) {
	Get(CategoryRender).Debug(format, args...)
}

// Chat logs to the chat category
func Chat(format string, args ...interface{}) {
	Get(CategoryChat).Info(format, args...)
}

// Cycle logs to the cycle category
func Cycle(format string, args ...interface{}) {
	Get(CategoryCycle).Info(format, args...)
}

// CycleWarn logs warning to the cycle category
func CycleWarn(format string, args ...interface{}) {
	Get(CategoryCycle).Warn(format, args...)
}

// =============================================================================
// TIMING
// =============================================================================

// Timer measures an operation and logs its duration on Stop.
type Timer struct {
	category  Category
	operation string
	start     time.Time
}

// StartTimer starts timing an operation.
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, operation: operation, start: time.Now()}
}

// Stop logs the elapsed time at debug level and returns it.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.operation, elapsed)
	return elapsed
}

// StopWithThreshold logs at warn level when the operation exceeded threshold.
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s slow: %v (threshold %v)", t.operation, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.operation, elapsed)
	}
	return elapsed
}
