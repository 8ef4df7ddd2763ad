// Package logger provides the storefront's structured, levelled logger built
// on log/slog.
//
// Production (APP_ENV=production) writes JSON; every other environment writes
// the human-readable text format. LOG_LEVEL selects debug, info, warn or error.
//
// Handlers should log through WithCtx so every line carries the request ID:
//
//	log := logger.WithCtx(r.Context())
//	log.Info("order created", "order_id", order.ID, "total", order.TotalAmount)
//	// → time=... level=INFO msg="order created" request_id=a1b2c3d4 order_id=...
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/naturelovers/storefront/config"
)

var L *slog.Logger

func init() {
	L = New(os.Stdout)
	slog.SetDefault(L)
}

// New builds a logger writing to w with the handler and level chosen by config.
func New(w io.Writer) *slog.Logger {
	return slog.New(newHandler(w))
}

func newHandler(w io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{Level: Level()}
	if config.IsProduction() {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// Level parses LOG_LEVEL. Production defaults to info, everything else to debug.
func Level() slog.Level {
	def := "debug"
	if config.IsProduction() {
		def = "info"
	}
	switch strings.ToLower(config.Get("LOG_LEVEL", def)) {
	case "error":
		return slog.LevelError
	case "warn", "warning":
		return slog.LevelWarn
	case "info":
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

// EnableMongo adds a MongoDB sink next to stdout. The returned func flushes
// pending records and disconnects; call it during shutdown.
func EnableMongo(uri, db string) (func(), error) {
	mh, err := NewMongoHandler(uri, db, "logs", Level())
	if err != nil {
		return func() {}, err
	}
	L = slog.New(NewMultiHandler(newHandler(os.Stdout), mh))
	slog.SetDefault(L)
	return mh.Close, nil
}

// ─── Context-aware logger ─────────────────────────────────────────────────────

type ctxKey struct{}

// WithCtx returns the request-scoped logger stored by InjectLogger, or the
// base logger when ctx carries none.
func WithCtx(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return L
	}
	if log, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && log != nil {
		return log
	}
	return L
}

// InjectLogger stores a *slog.Logger (pre-tagged with request_id) into ctx.
// Called by the Logger middleware and by queue workers.
func InjectLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}

// ─── Short-hand helpers (use base logger) ─────────────────────────────────────

func Debug(msg string, args ...any) { L.Debug(msg, args...) }
func Info(msg string, args ...any)  { L.Info(msg, args...) }
func Warn(msg string, args ...any)  { L.Warn(msg, args...) }
func Error(msg string, args ...any) { L.Error(msg, args...) }
