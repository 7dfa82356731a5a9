// Package logging provides config-driven categorized logging for the
// etymology graph pipeline. Each pipeline phase writes to its own
// category; logging is only active once Initialize has been called
// with a debug-mode configuration, so a default run stays silent.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category identifies a pipeline subsystem a log line belongs to.
type Category string

const (
	CategoryBoot       Category = "boot"       // driver startup/shutdown
	CategoryIngest     Category = "ingest"     // pass 1: dump scan, item store, redirects
	CategoryTemplates  Category = "templates"  // etymology/descendants/root parsing
	CategoryEmbed      Category = "embed"      // pass 2: embedding batching + cache
	CategoryDisambig   Category = "disambig"   // homograph disambiguation
	CategoryGraph      Category = "graph"      // pass 3: edge assembly, cycle removal
	CategoryPipeline   Category = "pipeline"   // overall pass orchestration
)

// Config mirrors the logging section of the pipeline's YAML config.
type Config struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories"`
	Level      string          `yaml:"level"`
	JSONFormat bool            `yaml:"json_format"`
	Dir        string          `yaml:"dir"`
}

// Logger wraps a zap.SugaredLogger scoped to one Category. A Logger
// created before Initialize (or for a disabled category) is a no-op.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	mu        sync.RWMutex
	cfg       Config
	loggers   = make(map[Category]*Logger)
	logLevel  = zapcore.InfoLevel
	logsDir   string
)

// Initialize configures the package from cfg and, when DebugMode is
// set, creates the log directory that per-category files are written
// under. Calling Initialize more than once replaces the configuration
// and closes no previously opened files (callers are expected to call
// this once at process start, as the pipeline driver does).
func Initialize(c Config) error {
	mu.Lock()
	defer mu.Unlock()

	cfg = c
	loggers = make(map[Category]*Logger)
	logLevel = parseLevel(c.Level)

	if !c.DebugMode {
		logsDir = ""
		return nil
	}

	logsDir = c.Dir
	if logsDir == "" {
		logsDir = "./wety-logs"
	}
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return fmt.Errorf("logging: create log dir: %w", err)
	}
	return nil
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func categoryEnabled(category Category) bool {
	if !cfg.DebugMode {
		return false
	}
	if cfg.Categories == nil {
		return true
	}
	enabled, ok := cfg.Categories[string(category)]
	if !ok {
		return true
	}
	return enabled
}

// Get returns (creating if needed) the Logger for category. When the
// category is disabled or Initialize has not run in debug mode, the
// returned Logger discards everything it is given.
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
	if categoryEnabled(category) && logsDir != "" {
		l.sugar = newSugaredLogger(category)
	}
	loggers[category] = l
	return l
}

func newSugaredLogger(category Category) *zap.SugaredLogger {
	date := time.Now().Format("2006-01-02")
	path := filepath.Join(logsDir, fmt.Sprintf("%s_%s.log", date, category))

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if cfg.JSONFormat {
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: could not open %s: %v\n", path, err)
		return nil
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(f), logLevel)
	return zap.New(core).Sugar().With("category", string(category))
}

func (l *Logger) Debug(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Debugf(format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Infof(format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Warnf(format, args...)
}

// Error always reaches stderr in addition to the category file, since
// per §7 fatal errors must surface to the caller regardless of debug
// mode.
func (l *Logger) Error(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(os.Stderr, "%s: %s\n", l.category, msg)
	if l.sugar != nil {
		l.sugar.Error(msg)
	}
}

// Timer measures and logs the duration of one named operation.
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation under category.
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, op: operation, start: time.Now()}
}

// Stop logs the elapsed duration at Debug level and returns it.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithThreshold logs at Warn level if elapsed exceeds threshold,
// otherwise at Debug level. Used around pass boundaries where a slow
// phase is worth flagging even outside debug mode review.
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s took %v (threshold %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}
