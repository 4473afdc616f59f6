package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// ServiceName is attached to every record so shared log sinks can filter on it.
const ServiceName = "nikahfirst-credits"

// New returns the process logger for appEnv: human-readable text at debug level
// for local and dev, JSON at info level everywhere else.
func New(appEnv string) *slog.Logger {
	return newLogger(os.Stdout, appEnv)
}

func newLogger(w io.Writer, appEnv string) *slog.Logger {
	var h slog.Handler
	switch appEnv {
	case "local", "dev":
		h = slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	default:
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return slog.New(h).With("service", ServiceName, "env", appEnv)
}

type ctxKey struct{}

// With stores l in ctx; services pick it up with From.
func With(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From returns the request-scoped logger, or slog.Default outside a request.
func From(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}
