// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はPrometheusメトリクスを収集する実装。
// 上流APIクライアントとalt判定エンジンのMetricsRecorderを実装する。
type Collector struct {
	upstreamRequests  *prometheus.CounterVec
	upstreamLatency   prometheus.Histogram
	altScans          prometheus.Counter
	candidatesScored  prometheus.Counter
	candidatesSkipped prometheus.Counter
	serverSearches    *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "altscope_upstream_requests_total",
			Help: "上流APIリクエストのホスト・結果別の合計数",
		}, []string{"host", "outcome"}),
		upstreamLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "altscope_upstream_latency_seconds",
			Help:    "上流APIリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		altScans: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "altscope_alt_scans_total",
			Help: "alt判定スキャン実行の合計数",
		}),
		candidatesScored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "altscope_candidates_scored_total",
			Help: "スコアリング完了した候補の合計数",
		}),
		candidatesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "altscope_candidates_skipped_total",
			Help: "フェッチ失敗によりスキップされた候補の合計数",
		}),
		serverSearches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "altscope_server_searches_total",
			Help: "サーバー検索の結果別の合計数",
		}, []string{"result"}),
	}

	reg.MustRegister(
		c.upstreamRequests,
		c.upstreamLatency,
		c.altScans,
		c.candidatesScored,
		c.candidatesSkipped,
		c.serverSearches,
	)

	return c
}

// RecordUpstreamRequest は上流APIリクエストの結果を記録する。
func (c *Collector) RecordUpstreamRequest(host, outcome string) {
	c.upstreamRequests.WithLabelValues(host, outcome).Inc()
}

// RecordUpstreamLatency は上流APIリクエストのレイテンシを記録する。
func (c *Collector) RecordUpstreamLatency(duration time.Duration) {
	c.upstreamLatency.Observe(duration.Seconds())
}

// RecordAltScan はalt判定スキャンの実行を記録する。
func (c *Collector) RecordAltScan() {
	c.altScans.Inc()
}

// RecordCandidateScored はスコアリング完了した候補を記録する。
func (c *Collector) RecordCandidateScored() {
	c.candidatesScored.Inc()
}

// RecordCandidateSkipped はスキップされた候補を記録する。
func (c *Collector) RecordCandidateSkipped() {
	c.candidatesSkipped.Inc()
}

// RecordServerSearch はサーバー検索の結果を記録する。
func (c *Collector) RecordServerSearch(result string) {
	c.serverSearches.WithLabelValues(result).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
