package web

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"moodle-portal/internal/obs"
	"moodle-portal/internal/session"
)

const (
	cookieName = "moodle_portal_session"
	ctxKey     = "sessionKey"
)

// sessionKeyMiddleware makes sure every request carries a valid session key,
// issuing a new cookie when the browser has none.
func sessionKeyMiddleware(secure bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var key string
			if ck, err := c.Cookie(cookieName); err == nil {
				key, _ = session.ParseKey(ck.Value)
			}
			if key == "" {
				key = session.NewKey()
				c.SetCookie(sessionCookie(key, secure))
			}
			c.Set(ctxKey, key)
			return next(c)
		}
	}
}

func sessionCookie(key string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     cookieName,
		Value:    key,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func sessionKey(c echo.Context) string {
	key, _ := c.Get(ctxKey).(string)
	return key
}

// requestLogger logs each request and records it in the HTTP metrics.
func requestLogger(log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}
			took := time.Since(start)

			req, res := c.Request(), c.Response()
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			obs.ObserveHTTP(req.Method, path, res.Status, took)

			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.Int("status", res.Status),
				zap.Duration("took", took),
				zap.String("remote_ip", c.RealIP()),
				zap.String("request_id", res.Header().Get(echo.HeaderXRequestID)),
			}
			switch {
			case res.Status >= 500:
				log.Error("request", fields...)
			case path == "/healthz" || path == "/metrics":
				log.Debug("request", fields...)
			default:
				log.Info("request", fields...)
			}
			return nil
		}
	}
}
