// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ミドルウェア、サービス層、ワーカーから利用する。
type MetricsCollector interface {
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
	RecordCatalogOperation(operation, result string)
	RecordLoginAttempt(result string)
	RecordRowsImported(count int)
	RecordSessionsSwept(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpStatus     *prometheus.CounterVec
	requestLatency prometheus.Histogram
	catalogOps     *prometheus.CounterVec
	loginAttempts  *prometheus.CounterVec
	rowsImported   prometheus.Counter
	sessionsSwept  prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_http_requests_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "catalog_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		catalogOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_operations_total",
			Help: "カタログ操作の種類・結果別の合計数",
		}, []string{"operation", "result"}),
		loginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_login_attempts_total",
			Help: "ログイン試行の結果別の合計数",
		}, []string{"result"}),
		rowsImported: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "catalog_import_rows_total",
			Help: "CSVインポートで登録された商品の合計数",
		}),
		sessionsSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "catalog_sessions_swept_total",
			Help: "期限切れで削除されたセッションの合計数",
		}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.requestLatency,
		c.catalogOps,
		c.loginAttempts,
		c.rowsImported,
		c.sessionsSwept,
	)

	return c
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエスト処理時間を記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// RecordCatalogOperation はカタログ操作の結果を記録する。
func (c *Collector) RecordCatalogOperation(operation, result string) {
	c.catalogOps.WithLabelValues(operation, result).Inc()
}

// RecordLoginAttempt はログイン試行の結果を記録する。
func (c *Collector) RecordLoginAttempt(result string) {
	c.loginAttempts.WithLabelValues(result).Inc()
}

// RecordRowsImported はインポートされた行数を記録する。
func (c *Collector) RecordRowsImported(count int) {
	c.rowsImported.Add(float64(count))
}

// RecordSessionsSwept は削除された期限切れセッション数を記録する。
func (c *Collector) RecordSessionsSwept(count int64) {
	c.sessionsSwept.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
