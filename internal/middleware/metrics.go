package middleware

import (
	"net/http"
	"time"
)

// MetricsSink はHTTPメトリクスの記録インターフェース。
type MetricsSink interface {
	RecordHTTPStatus(statusCode int)
	RecordRequestDuration(duration time.Duration)
}

// NewMetricsMiddleware はレスポンスのステータスコードと処理時間を記録するミドルウェアを返す。
func NewMetricsMiddleware(sink MetricsSink) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rec := &statusRecorder{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rec, r)

			sink.RecordHTTPStatus(rec.statusCode)
			sink.RecordRequestDuration(time.Since(start))
		})
	}
}
