// Package logger provides structured logging functionality for the application.
//
// It configures log/slog to emit JSON at a configurable level and carries
// request-scoped loggers through context.Context.
package logger
