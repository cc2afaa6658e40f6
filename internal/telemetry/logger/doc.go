// Package logger provides structured logging for chatmesh nodes.
//
// It wraps log/slog:
//
//   - logger.go: Logger interface, JSON/text handlers, the process level and
//     component loggers with their own level overrides
//   - context.go: loggers carried in a context with request and node ids
//   - redact.go: chat text redaction
//
// Every node logs through component loggers (general, communication, chat,
// election, test). A component logs at the process level unless it has an
// override, so election traffic can be traced at debug while the rest of the
// node stays at warn. Levels are read on every call; SetLevel and
// SetComponentLevel apply to loggers already handed out, which the config
// watcher relies on at reload.
//
// Chat message bodies logged under the "text" key are shown only when the
// chat component logs at debug.
package logger
