package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// loggerKey carries the request- or job-scoped logger through a
// context. Helpers below tag it with the identifiers this pipeline
// logs everywhere: request id and user id on the gateway side, job id
// and image id on the worker side.
type loggerKey struct{}

var defaultLogger *slog.Logger

func Init(level string) {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	defaultLogger = slog.New(handler)
	slog.SetDefault(defaultLogger)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func Default() *slog.Logger {
	if defaultLogger == nil {
		Init("info")
	}
	return defaultLogger
}

func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return Default()
}

func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// WithRequestID tags the context logger with the HTTP request id.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return withAttrs(ctx, "request_id", requestID)
}

// WithUserID tags the context logger with the authenticated user.
func WithUserID(ctx context.Context, userID string) context.Context {
	return withAttrs(ctx, "user_id", userID)
}

// WithJob tags the context logger with queue job identifiers.
func WithJob(ctx context.Context, jobID, jobType string) context.Context {
	return withAttrs(ctx, "job_id", jobID, "job_type", jobType)
}

// WithImageID tags the context logger with the image being processed.
func WithImageID(ctx context.Context, imageID string) context.Context {
	return withAttrs(ctx, "image_id", imageID)
}

func withAttrs(ctx context.Context, args ...any) context.Context {
	return WithLogger(ctx, FromContext(ctx).With(args...))
}
