// Package logger provides structured logging with configurable log levels.
// It wraps the standard log/slog package: JSON output in production, text
// output elsewhere. It also provides an HTTP access log middleware that tags
// every line with the chi request ID.
package logger
