package logger

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// Middleware writes one access log line per request. Requests answered with
// a 5xx status are logged at error level.
func Middleware(l *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			path := r.URL.Path

			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}

				latencyMS := fmt.Sprintf("%.3f", float64(time.Since(start).Nanoseconds())/1e6)
				attrs := []any{
					slog.String("request_id", GetRequestID(r)),
					slog.String("remote_ip", r.RemoteAddr),
					slog.String("proto", r.Proto),
					slog.String("method", r.Method),
					slog.String("url", path),
					slog.String("user_agent", r.UserAgent()),
					slog.Int("status", status),
					slog.String("latency_ms", latencyMS),
					slog.Int("bytes_out", ww.BytesWritten()),
				}

				if status >= http.StatusInternalServerError {
					l.Error("request", attrs...)
					return
				}
				l.Info("request", attrs...)
			}()

			next.ServeHTTP(ww, r)
		}
		return http.HandlerFunc(fn)
	}
}

// GetRequestID returns the chi request ID, or "-" when there is none.
func GetRequestID(r *http.Request) string {
	requestID := middleware.GetReqID(r.Context())
	if requestID == "" {
		return "-"
	}
	return requestID
}

// WithRequestID returns a sub-logger with the request_id field set.
func WithRequestID(l *slog.Logger, r *http.Request) *slog.Logger {
	return l.With(slog.String("request_id", GetRequestID(r)))
}
