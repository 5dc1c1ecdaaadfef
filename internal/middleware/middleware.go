// Package middleware carries the HTTP middleware shared by the replay
// server: correlation-ID propagation and structured request logging.
package middleware

import (
	"context"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// correlationHeader is the wire name of the correlation ID. Trainers that
// drive the sample/update loop reuse it across the paired requests so both
// ends of a priority round-trip can be stitched together in the logs.
const correlationHeader = "X-Correlation-ID"

type ctxKey int

const correlationKey ctxKey = 0

// CorrelationIDFrom returns the correlation ID stored in ctx, or the empty
// string when the request never passed through CorrelationID.
func CorrelationIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey).(string)
	return id
}

// CorrelationID reads the caller-supplied correlation ID, minting one when
// absent, and carries it through the request context rather than by
// rewriting request headers. The ID is echoed on the response so callers
// that did not supply one still learn it.
func CorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(correlationHeader)
		if id == "" {
			id = uuid.New().String()
		}

		w.Header().Set(correlationHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), correlationKey, id)))
	})
}

// RequestLogger emits one zerolog line per completed request. Buffer
// operations are short and frequent, so there is a single completion line
// rather than a start/finish pair, levelled by response status.
func RequestLogger(logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				status := ww.Status()
				level := zerolog.InfoLevel
				switch {
				case status >= 500:
					level = zerolog.ErrorLevel
				case status >= 400:
					level = zerolog.WarnLevel
				}

				logger.WithLevel(level).
					Str("correlation_id", CorrelationIDFrom(r.Context())).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Str("remote_addr", r.RemoteAddr).
					Int("status", status).
					Int("bytes", ww.BytesWritten()).
					Dur("elapsed", time.Since(start)).
					Msg("request completed")
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
