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
// 検索・評価サービスとサジェストインデックスから利用する。
type MetricsCollector interface {
	RecordSearch(sortField string, duration time.Duration)
	RecordSearchFailure()
	RecordRatingAccepted()
	RecordRatingDuplicate()
	RecordSuggestIndexSize(size int)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	searches         *prometheus.CounterVec
	searchFailures   prometheus.Counter
	searchLatency    prometheus.Histogram
	ratingAccepted   prometheus.Counter
	ratingDuplicate  prometheus.Counter
	suggestIndexSize prometheus.Gauge
	httpStatus       *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carsearch_searches_total",
			Help: "実行された検索の合計数（ソートフィールド別）",
		}, []string{"sort_field"}),
		searchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "carsearch_search_failures_total",
			Help: "バックエンド要因で失敗した検索の合計数",
		}),
		searchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "carsearch_search_latency_seconds",
			Help:    "検索処理のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		ratingAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "carsearch_rating_accepted_total",
			Help: "受理された評価投稿の合計数",
		}),
		ratingDuplicate: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "carsearch_rating_duplicate_total",
			Help: "重複として拒否された評価投稿の合計数",
		}),
		suggestIndexSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "carsearch_suggest_index_words",
			Help: "サジェストインデックスの登録語数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carsearch_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.searches,
		c.searchFailures,
		c.searchLatency,
		c.ratingAccepted,
		c.ratingDuplicate,
		c.suggestIndexSize,
		c.httpStatus,
	)

	return c
}

// RecordSearch は検索の実行とレイテンシを記録する。
func (c *Collector) RecordSearch(sortField string, duration time.Duration) {
	c.searches.WithLabelValues(sortField).Inc()
	c.searchLatency.Observe(duration.Seconds())
}

// RecordSearchFailure は検索の失敗を記録する。
func (c *Collector) RecordSearchFailure() {
	c.searchFailures.Inc()
}

// RecordRatingAccepted は評価投稿の受理を記録する。
func (c *Collector) RecordRatingAccepted() {
	c.ratingAccepted.Inc()
}

// RecordRatingDuplicate は重複評価投稿の拒否を記録する。
func (c *Collector) RecordRatingDuplicate() {
	c.ratingDuplicate.Inc()
}

// RecordSuggestIndexSize はサジェストインデックスの語数を記録する。
func (c *Collector) RecordSuggestIndexSize(size int) {
	c.suggestIndexSize.Set(float64(size))
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
