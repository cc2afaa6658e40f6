package logger

import "context"

type contextKey string

const (
	loggerKey    contextKey = "chatmesh.logger"
	requestIDKey contextKey = "chatmesh.request_id"
	nodeKey      contextKey = "chatmesh.node"
)

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext extracts the logger from context.
// Returns the default logger if none is set.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(loggerKey).(Logger); ok {
		return l
	}
	return Default()
}

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext extracts the request ID from context.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// WithNode records the identity of the node the context belongs to.
func WithNode(ctx context.Context, node string) context.Context {
	return context.WithValue(ctx, nodeKey, node)
}

// NodeFromContext extracts the node identity from context.
func NodeFromContext(ctx context.Context) string {
	if n, ok := ctx.Value(nodeKey).(string); ok {
		return n
	}
	return ""
}

// L is a shorthand for FromContext that also enriches the logger
// with the request ID and node from the context.
func L(ctx context.Context) Logger {
	l := FromContext(ctx)

	if reqID := RequestIDFromContext(ctx); reqID != "" {
		l = l.With("request_id", reqID)
	}
	if node := NodeFromContext(ctx); node != "" {
		l = l.With("node", node)
	}

	return l
}
