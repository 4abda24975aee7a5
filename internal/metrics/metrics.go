// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はAPIとSupabase連携のPrometheusメトリクスを収集する。
type Collector struct {
	httpRequests     *prometheus.CounterVec
	httpLatency      *prometheus.HistogramVec
	upstreamRequests *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bookswap_http_requests_total",
			Help: "HTTPリクエストの合計数（メソッド・ルート・ステータス別）",
		}, []string{"method", "path", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bookswap_http_request_duration_seconds",
			Help:    "HTTPリクエスト処理のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bookswap_upstream_requests_total",
			Help: "Supabaseへのリクエスト数（サービス・結果別）",
		}, []string{"service", "outcome"}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpLatency,
		c.upstreamRequests,
	)

	return c
}

// RecordHTTPRequest はHTTPリクエストの完了を記録する。
func (c *Collector) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	c.httpLatency.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordUpstreamRequest はSupabaseへのリクエスト結果を記録する。
// supabaseパッケージのUpstreamRecorderを満たす。
func (c *Collector) RecordUpstreamRequest(service, outcome string) {
	c.upstreamRequests.WithLabelValues(service, outcome).Inc()
}

// recordingResponseWriter はステータスコードを捕捉するResponseWriterラッパー。
type recordingResponseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rw *recordingResponseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *recordingResponseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.statusCode = http.StatusOK
		rw.written = true
	}
	return rw.ResponseWriter.Write(b)
}

// Middleware はHTTPリクエストメトリクスを記録するミドルウェアを返す。
// pathラベルにはカーディナリティ爆発を避けるためchiのルートパターン
// （/books/{id}など）を使い、生のURLパスは使わない。
func (c *Collector) Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &recordingResponseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			path := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					path = pattern
				}
			}

			c.RecordHTTPRequest(r.Method, path, rw.statusCode, time.Since(start))
		})
	}
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
