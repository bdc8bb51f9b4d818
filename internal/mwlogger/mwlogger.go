// Package mwlogger provides UUID-logging to every request
package mwlogger

import (
	"context"
	"net/http"
	"time"

	"github.com/wb-go/wbf/helpers"
	"github.com/wb-go/wbf/zlog"
)

type loggerWithRequestID struct{}

// statusRecorder запоминает код ответа для лога
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// NewMWLogger - обёртка для логирования запросов с присвоением UUID каждому запросу и пробросу логгера в контекст запроса
func NewMWLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Fetching/generating UUID for request
		reqID := r.Header.Get("X-Request-Id")
		if reqID == "" {
			reqID = helpers.CreateUUID()
		}
		w.Header().Set("X-Request-Id", reqID)

		// Creating logger
		logger := zlog.Logger.With().
			Str("request_id", reqID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Logger()

		// Putting logger to context
		r = r.WithContext(WithLogger(r.Context(), logger))

		// Running handler
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		logger.Info().
			Int("status", rec.status).
			Dur("latency", time.Since(start)).
			Msg("Request handled")
	})
}

// WithLogger puts logger into ctx - used by worker for per-job logging
func WithLogger(ctx context.Context, logger zlog.Zerolog) context.Context {
	return context.WithValue(ctx, loggerWithRequestID{}, logger)
}

// LoggerFromContext extracts logger from context - used in service-layer
func LoggerFromContext(ctx context.Context) zlog.Zerolog {
	if l, ok := ctx.Value(loggerWithRequestID{}).(zlog.Zerolog); ok {
		return l
	}
	return zlog.Logger
}
