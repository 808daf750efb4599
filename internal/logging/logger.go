// Package logging defines the structured-logging interface shared by the web
// server, the CLI and the backend adapters. The only implementation wraps
// log/slog.
package logging

import "context"

// Logger is a context-aware, structured logger. Variadic args are key-value
// pairs:
//
//	log.Info(ctx, "complaint submitted", "complaint_id", id, "user_id", uid)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given pairs.
	With(args ...any) Logger
}
