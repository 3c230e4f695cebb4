package echoapi

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/njia/services/metrics"
)

// adminMiddleware must run after userMiddleware.
func adminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx)
			if err != nil {
				return err
			}
			if !usr.IsAdmin() {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}

// metricsMiddleware records every request by route pattern, not by raw path.
func metricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			if err := next(ctx); err != nil {
				// commit the error response so its status is known
				ctx.Error(err)
			}

			code := ctx.Response().Status
			path := ctx.Path()
			if path == "" {
				path = "unmatched"
			}
			metrics.RecordHTTPRequest(ctx.Request().Method, path, code, time.Since(start))
			return nil
		}
	}
}
