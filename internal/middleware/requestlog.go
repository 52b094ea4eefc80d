package middleware

import (
    "time"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"
)

// CtxError lets handlers attach an internal error that is logged with the
// request but never returned to the client.
const CtxError = "request_error"

// RequestLogger writes one entry per request.  It expects echo's RequestID
// middleware to run first.
func RequestLogger(log *logrus.Logger) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            err := next(c)
            if err != nil {
                c.Error(err)
            }
            req, res := c.Request(), c.Response()
            entry := log.WithFields(logrus.Fields{
                "method":     req.Method,
                "path":       req.URL.Path,
                "route":      c.Path(),
                "status":     res.Status,
                "latency_ms": time.Since(start).Milliseconds(),
                "request_id": res.Header().Get(echo.HeaderXRequestID),
                "remote_ip":  c.RealIP(),
            })
            if id := UserID(c); id != "" {
                entry = entry.WithField("user_id", id)
            }
            if e, ok := c.Get(CtxError).(error); ok {
                entry = entry.WithError(e)
            }
            switch {
            case res.Status >= 500:
                entry.Error("request")
            case res.Status >= 400:
                entry.Warn("request")
            default:
                entry.Info("request")
            }
            return nil
        }
    }
}
