package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// Logger is the logging interface used by every chatmesh package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
	WithContext(ctx context.Context) Logger
}

// Component names used across chatmesh nodes.
const (
	ComponentGeneral       = "general"
	ComponentCommunication = "communication"
	ComponentChat          = "chat"
	ComponentElection      = "election"
	ComponentTest          = "test"
)

// ComponentKey is the attribute key a component logger is tagged with.
const ComponentKey = "component"

// Config holds logger configuration.
type Config struct {
	// Level is the process-wide minimum level (debug, info, warn, error).
	Level string
	// Components overrides Level for single components, e.g. {"election": "debug"}.
	Components map[string]string
	// Format is the output format (json, text).
	Format string
	// Output defaults to os.Stderr.
	Output io.Writer
	// AddSource adds the calling file and line to each entry.
	AddSource bool
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "json",
		Output: os.Stderr,
	}
}

// levels holds the process level and the per-component overrides. Loggers
// read it on every call, so changes apply to loggers already handed out.
var levels = struct {
	global slog.LevelVar
	mu     sync.RWMutex
	byName map[string]slog.Level
}{byName: make(map[string]slog.Level)}

// componentLevel is the slog.Leveler of one component. The empty name is
// the process level.
type componentLevel string

func (c componentLevel) Level() slog.Level {
	if c != "" {
		levels.mu.RLock()
		l, ok := levels.byName[string(c)]
		levels.mu.RUnlock()
		if ok {
			return l
		}
	}
	return levels.global.Level()
}

// gate filters records by a component's level before the output handler
// sees them. The output handler itself accepts everything from debug up.
type gate struct {
	level componentLevel
	next  slog.Handler
}

func (g *gate) Enabled(ctx context.Context, l slog.Level) bool {
	return l >= g.level.Level() && g.next.Enabled(ctx, l)
}

func (g *gate) Handle(ctx context.Context, r slog.Record) error {
	return g.next.Handle(ctx, r)
}

func (g *gate) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &gate{level: g.level, next: g.next.WithAttrs(attrs)}
}

func (g *gate) WithGroup(name string) slog.Handler {
	return &gate{level: g.level, next: g.next.WithGroup(name)}
}

// slogLogger implements Logger on a gated slog handler.
type slogLogger struct {
	gate *gate
	ctx  context.Context
}

func newSlogLogger(ctx context.Context, g *gate) *slogLogger {
	return &slogLogger{gate: g, ctx: ctx}
}

// New creates a logger writing to cfg.Output and sets the process level and
// component overrides from cfg.
func New(cfg Config) (Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	overrides := make(map[string]slog.Level, len(cfg.Components))
	for name, s := range cfg.Components {
		l, err := ParseLevel(s)
		if err != nil {
			return nil, fmt.Errorf("component %q: %w", name, err)
		}
		overrides[strings.ToLower(name)] = l
	}
	levels.global.Set(level)
	levels.mu.Lock()
	levels.byName = overrides
	levels.mu.Unlock()

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	opts := &slog.HandlerOptions{
		Level:     slog.LevelDebug,
		AddSource: cfg.AddSource,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			return redactSensitive(a, componentLevel(ComponentChat).Level())
		},
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "text", "console":
		handler = slog.NewTextHandler(output, opts)
	case "json", "":
		handler = slog.NewJSONHandler(output, opts)
	default:
		return nil, fmt.Errorf("logger: unknown format %q", cfg.Format)
	}
	return newSlogLogger(context.Background(), &gate{next: handler}), nil
}

// ParseLevel parses a level name. The empty string is info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("logger: unknown level %q", s)
}

func levelName(l slog.Level) string {
	switch {
	case l <= slog.LevelDebug:
		return "debug"
	case l <= slog.LevelInfo:
		return "info"
	case l <= slog.LevelWarn:
		return "warn"
	default:
		return "error"
	}
}

// SetLevel changes the process level at runtime. An unknown name is
// ignored and reported.
func SetLevel(level string) error {
	l, err := ParseLevel(level)
	if err != nil {
		return err
	}
	levels.global.Set(l)
	return nil
}

// GetLevel returns the process level name.
func GetLevel() string {
	return levelName(levels.global.Level())
}

// SetComponentLevel overrides the level of one component. The empty level
// removes the override.
func SetComponentLevel(component, level string) error {
	component = strings.ToLower(component)
	levels.mu.Lock()
	defer levels.mu.Unlock()
	if level == "" {
		delete(levels.byName, component)
		return nil
	}
	l, err := ParseLevel(level)
	if err != nil {
		return err
	}
	levels.byName[component] = l
	return nil
}

// ComponentLevel returns the effective level name of a component.
func ComponentLevel(component string) string {
	return levelName(componentLevel(strings.ToLower(component)).Level())
}

// ComponentLevels returns the current overrides as "name=level" pairs,
// sorted by name.
func ComponentLevels() []string {
	levels.mu.RLock()
	out := make([]string, 0, len(levels.byName))
	for name, l := range levels.byName {
		out = append(out, name+"="+levelName(l))
	}
	levels.mu.RUnlock()
	sort.Strings(out)
	return out
}

func (l *slogLogger) log(level slog.Level, msg string, args []any) {
	if !l.gate.Enabled(l.ctx, level) {
		return
	}
	slog.New(l.gate).Log(l.ctx, level, msg, args...)
}

func (l *slogLogger) Debug(msg string, args ...any) { l.log(slog.LevelDebug, msg, args) }

func (l *slogLogger) Info(msg string, args ...any) { l.log(slog.LevelInfo, msg, args) }

func (l *slogLogger) Warn(msg string, args ...any) { l.log(slog.LevelWarn, msg, args) }

func (l *slogLogger) Error(msg string, args ...any) { l.log(slog.LevelError, msg, args) }

func (l *slogLogger) With(args ...any) Logger {
	if len(args) == 0 {
		return l
	}
	h := slog.New(l.gate).With(args...).Handler().(*gate)
	return newSlogLogger(l.ctx, h)
}

func (l *slogLogger) WithContext(ctx context.Context) Logger {
	return newSlogLogger(ctx, l.gate)
}

// Component returns l tagged with a component name and gated by that
// component's level. A nil l uses the default logger.
func Component(l Logger, name string) Logger {
	if l == nil {
		l = Default()
	}
	sl, ok := l.(*slogLogger)
	if !ok {
		return l.With(ComponentKey, name)
	}
	next := sl.gate.next.WithAttrs([]slog.Attr{slog.String(ComponentKey, name)})
	return newSlogLogger(sl.ctx, &gate{level: componentLevel(strings.ToLower(name)), next: next})
}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return newSlogLogger(context.Background(), &gate{next: slog.DiscardHandler})
}

var defaultLogger atomic.Pointer[slogLogger]

func init() {
	l, _ := New(DefaultConfig())
	defaultLogger.Store(l.(*slogLogger))
}

// SetDefault sets the logger returned by Default and used by the package
// level functions.
func SetDefault(l Logger) {
	if sl, ok := l.(*slogLogger); ok {
		defaultLogger.Store(sl)
	}
}

// Default returns the process logger.
func Default() Logger {
	return defaultLogger.Load()
}

// Debug logs at debug level using the default logger.
func Debug(msg string, args ...any) { defaultLogger.Load().Debug(msg, args...) }

// Info logs at info level using the default logger.
func Info(msg string, args ...any) { defaultLogger.Load().Info(msg, args...) }

// Warn logs at warn level using the default logger.
func Warn(msg string, args ...any) { defaultLogger.Load().Warn(msg, args...) }

// Error logs at error level using the default logger.
func Error(msg string, args ...any) { defaultLogger.Load().Error(msg, args...) }
