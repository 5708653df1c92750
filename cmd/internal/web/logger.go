package web

import (
	logging "github.com/ipfs/go-log/v2"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// requestLogger logs every request at info, except the endpoints the page
// polls, which are logged at debug.
func requestLogger(log *logging.ZapEventLogger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURIPath:  true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			kv := []any{
				"method", v.Method,
				"path", v.URIPath,
				"status", v.Status,
				"latency", v.Latency,
				"remote", v.RemoteIP,
			}
			switch {
			case v.Error != nil:
				log.Warnw("request failed", append(kv, "error", v.Error)...)
			case v.URIPath == "/status" || v.URIPath == "/image":
				log.Debugw("request", kv...)
			default:
				log.Infow("request", kv...)
			}
			return nil
		},
	})
}
