// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はPrometheusメトリクスを収集する実装。
// 台帳サービスとHTTPミドルウェアから利用する。
type Collector struct {
	registrations   prometheus.Counter
	investments     prometheus.Counter
	investedAmount  prometheus.Counter
	accrualRuns     prometheus.Counter
	accruedAmount   prometheus.Counter
	httpStatus      *prometheus.CounterVec
	requestDuration prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "yieldman_registrations_total",
			Help: "口座登録の合計数",
		}),
		investments: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "yieldman_investments_created_total",
			Help: "作成された投資の合計数",
		}),
		investedAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "yieldman_invested_amount_total",
			Help: "投資元本の累計額",
		}),
		accrualRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "yieldman_accrual_runs_total",
			Help: "利息配分パスの実行回数",
		}),
		accruedAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "yieldman_accrued_amount_total",
			Help: "配分された利息の累計額",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "yieldman_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "yieldman_request_duration_seconds",
			Help:    "HTTPリクエスト処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.registrations,
		c.investments,
		c.investedAmount,
		c.accrualRuns,
		c.accruedAmount,
		c.httpStatus,
		c.requestDuration,
	)

	return c
}

// RecordRegistration は口座登録を記録する。
func (c *Collector) RecordRegistration() {
	c.registrations.Inc()
}

// RecordInvestmentCreated は投資作成と元本額を記録する。
func (c *Collector) RecordInvestmentCreated(amount float64) {
	c.investments.Inc()
	c.investedAmount.Add(amount)
}

// RecordAccrualRun は利息配分パスの実行と配分額を記録する。
func (c *Collector) RecordAccrualRun(usersAffected int, totalAccrued float64) {
	c.accrualRuns.Inc()
	c.accruedAmount.Add(totalAccrued)
}

// RecordHTTPStatus はレスポンスのステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestDuration はリクエスト処理時間を記録する。
func (c *Collector) RecordRequestDuration(duration time.Duration) {
	c.requestDuration.Observe(duration.Seconds())
}

// SetupMetricsRoute は/metricsで公開するハンドラーを返す。
func SetupMetricsRoute(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
