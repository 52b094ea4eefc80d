package middleware

import (
    "bytes"
    "context"
    "crypto/sha1"
    "encoding/binary"
    "encoding/json"
    "fmt"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/wild-pasta-booking/internal/config"
)

// captureWriter tees the response body, up to limit bytes, while it is
// written to the client.
type captureWriter struct {
    http.ResponseWriter
    status    int
    buf       bytes.Buffer
    size      int64
    limit     int64
    truncated bool
}

func (cw *captureWriter) WriteHeader(code int) {
    cw.status = code
    cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
    switch {
    case cw.limit <= 0:
        cw.buf.Write(b)
    case cw.size+int64(len(b)) <= cw.limit:
        cw.buf.Write(b)
    default:
        cw.truncated = true
    }
    cw.size += int64(len(b))
    return cw.ResponseWriter.Write(b)
}

// cacheKeyFrom builds a stable key honoring prefix and strategy.
func cacheKeyFrom(cfg config.CacheConfig, c echo.Context) string {
    r := c.Request()
    route := c.Path()
    var parts []string
    switch strings.ToLower(cfg.KeyStrategy) {
    case "route":
        parts = []string{"route", route}
    case "method_route":
        parts = []string{"method", r.Method, "route", route}
    case "method_route_query":
        parts = []string{"method", r.Method, "route", route, "q", r.URL.Query().Encode()}
    default: // route_query
        parts = []string{"route", route, "q", r.URL.Query().Encode()}
    }
    sum := sha1.Sum([]byte(strings.Join(parts, ":")))
    return fmt.Sprintf("%s:%x", cfg.Prefix, sum[:])
}

// encodePayload packs [4 bytes status][4 bytes headerLen][headerJSON][body].
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
    hdrJSON, err := json.Marshal(header)
    if err != nil {
        return nil, err
    }
    out := make([]byte, 8+len(hdrJSON)+len(body))
    binary.BigEndian.PutUint32(out[0:4], uint32(status))
    binary.BigEndian.PutUint32(out[4:8], uint32(len(hdrJSON)))
    copy(out[8:], hdrJSON)
    copy(out[8+len(hdrJSON):], body)
    return out, nil
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
    if len(bs) < 8 {
        return 0, nil, nil, false
    }
    status = int(binary.BigEndian.Uint32(bs[0:4]))
    hlen := int(binary.BigEndian.Uint32(bs[4:8]))
    if hlen < 0 || 8+hlen > len(bs) {
        return 0, nil, nil, false
    }
    header = make(http.Header)
    if hlen > 0 {
        if err := json.Unmarshal(bs[8:8+hlen], &header); err != nil {
            return 0, nil, nil, false
        }
    }
    return status, header, bs[8+hlen:], true
}

// NewRedisCache replays stored 200 responses for the configured methods.
// Availability counts are display data; admission re-checks capacity under
// lock, so a hit can be at most TTL stale without affecting correctness.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client, log *logrus.Logger) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return passthrough
    }
    ttl := cfg.TTL
    if ttl <= 0 {
        ttl = 5 * time.Second
    }
    maxBody := int64(cfg.MaxBodyBytes)

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
                return next(c)
            }
            key := cacheKeyFrom(cfg, c)

            if bs, err := rdb.Get(c.Request().Context(), key).Bytes(); err == nil {
                if status, hdr, body, ok := decodePayload(bs); ok {
                    for k, vals := range hdr {
                        if strings.EqualFold(k, echo.HeaderContentLength) {
                            continue
                        }
                        for _, v := range vals {
                            c.Response().Header().Add(k, v)
                        }
                    }
                    c.Response().Header().Set("X-Cache", "HIT")
                    c.Response().WriteHeader(status)
                    _, err := c.Response().Write(body)
                    return err
                }
            } else if err != redis.Nil {
                log.WithError(err).Debug("cache read failed")
            }

            cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: maxBody}
            c.Response().Writer = cw
            c.Response().Header().Set("X-Cache", "MISS")
            if err := next(c); err != nil {
                return err
            }
            if cw.status != http.StatusOK || cw.truncated {
                return nil
            }

            hdr := c.Response().Header().Clone()
            hdr.Del("X-Cache")
            payload, err := encodePayload(cw.status, hdr, cw.buf.Bytes())
            if err != nil {
                return nil
            }
            if err := rdb.Set(context.WithoutCancel(c.Request().Context()), key, payload, ttl).Err(); err != nil {
                log.WithError(err).Debug("cache write failed")
            }
            return nil
        }
    }
}
