package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"app/internal/logging"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// RequestLogger はリクエスト1件ごとに構造化ログを書き、
// request loggerをcontextへ入れて各層から使えるようにする。
func RequestLogger(base *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			//request id（なければ採番）
			reqID := c.Request().Header.Get("X-Request-Id")
			if reqID == "" {
				reqID = uuid.NewString()
			}
			c.Response().Header().Set("X-Request-Id", reqID)

			l := base.With(
				"req_id", reqID,
				"method", c.Request().Method,
				"path", c.Path(),
				"remote", c.RealIP(),
			)
			logging.With(c, l)
			ctx := logging.WithCtx(c.Request().Context(), l)
			c.SetRequest(c.Request().WithContext(ctx))

			err := next(c)

			status := c.Response().Status
			if err != nil {
				//echoのHTTPErrorは本来のstatusで記録する
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else {
					status = http.StatusInternalServerError
				}
			}

			attrs := []any{
				"status", status,
				"dur_ms", time.Since(start).Milliseconds(),
				"resp_bytes", c.Response().Size,
			}
			if err != nil {
				attrs = append(attrs, "error", err.Error())
			}

			if status >= http.StatusBadRequest {
				l.Error("http_request", attrs...)
			} else {
				l.Info("http_request", attrs...)
			}

			return err
		}
	}
}
