package logger

import (
	"fmt"
	"log/slog"
)

// TextKey is the attribute key chat message bodies are logged under.
const TextKey = "text"

// redactSensitive hides chat bodies unless the logger runs at debug level.
func redactSensitive(a slog.Attr, level slog.Level) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		if a.Key == TextKey && level > slog.LevelDebug {
			return slog.String(a.Key, RedactText(a.Value.String()))
		}
	case slog.KindGroup:
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			out[i] = redactSensitive(attr, level)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	}
	return a
}

// RedactText replaces a chat body by its length.
func RedactText(s string) string {
	if s == "" {
		return ""
	}
	return fmt.Sprintf("***(%d bytes)", len(s))
}
