package httpsvc

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
)

// Роли вызывающих, принимаемые в заголовке X-Role.
const (
	RoleAdmin  = "Admin"
	RoleVendor = "Vendor"

	headerRole      = "X-Role"
	headerRequestID = "X-Request-ID"
)

type contextKey string

const requestIDKey contextKey = "request_id"

var httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "salesorders_http_request_duration_seconds",
	Help:    "Duration of HTTP requests in seconds.",
	Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
}, []string{"method", "route", "status"})

// RequestID назначает запросу идентификатор: берёт его из заголовка
// X-Request-ID или генерирует новый.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(headerRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(headerRequestID, requestID)

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIDFromContext возвращает идентификатор запроса или пустую строку.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// RequestLogger логирует каждый запрос и записывает метрику длительности.
func RequestLogger(logger *log.Entry) func(http.Handler) http.Handler {
	if logger == nil {
		logger = log.WithField("component", "http")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			elapsed := time.Since(start)
			httpRequestDuration.WithLabelValues(
				r.Method, r.URL.Path, strconv.Itoa(ww.Status()),
			).Observe(elapsed.Seconds())

			logger.WithFields(log.Fields{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"bytes":      ww.BytesWritten(),
				"elapsed_ms": elapsed.Milliseconds(),
				"request_id": RequestIDFromContext(r.Context()),
			}).Info("http request")
		})
	}
}

// RequireRole пропускает запрос только при наличии одной из перечисленных
// ролей в заголовке X-Role.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := r.Header.Get(headerRole)
			if _, ok := allowed[role]; !ok {
				writeError(w, http.StatusForbidden, "caller role is not allowed to perform this operation")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
