package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/labstack/echo/v4"
	"gopkg.in/natefinch/lumberjack.v2"
)

type ctxKey struct{}

var (
	once sync.Once
	base *slog.Logger
)

// Init はグローバルロガーを一度だけ作る。
// stdoutとローテーション付きファイルの両方に出す。
func Init(component string, filePath string) *slog.Logger {
	once.Do(func() {
		_ = os.MkdirAll(filepath.Dir(filePath), 0o755)

		rot := &lumberjack.Logger{
			Filename:   filePath,
			MaxSize:    50, // MB
			MaxBackups: 3,
			MaxAge:     7, // days
		}
		mw := io.MultiWriter(os.Stdout, rot)

		h := slog.NewJSONHandler(mw, &slog.HandlerOptions{Level: slog.LevelInfo})
		base = slog.New(h).With("component", component)
	})
	return base
}

// Base はグローバルロガー（未Initなら安全なデフォルト）。
func Base() *slog.Logger {
	if base == nil {
		return Init("app", "./logs/app.log")
	}
	return base
}

// New は子ロガーを返す。handlerは共有する。
func New(component string) *slog.Logger {
	return Base().With("component", component)
}

// WithCtx はcontextにロガーを入れる。
func WithCtx(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromCtx はcontextからロガーを取り出す（無ければグローバル）。
func FromCtx(ctx context.Context) *slog.Logger {
	if v := ctx.Value(ctxKey{}); v != nil {
		if l, ok := v.(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return Base()
}

// With はecho.Contextにリクエスト用ロガーを入れる。
func With(c echo.Context, l *slog.Logger) {
	c.Set("logger", l)
}

// From はecho.Contextからロガーを取り出す（無ければグローバル）。
func From(c echo.Context) *slog.Logger {
	if v := c.Get("logger"); v != nil {
		if l, ok := v.(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return Base()
}
