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
// サービス層とミドルウェアから利用する。
type MetricsCollector interface {
	RecordXpAwarded(amount int)
	RecordLevelUp()
	RecordSessionCompleted(result string)
	RecordAchievementUnlocked(code string)
	RecordAchievementCheckFailure()
	RecordHTTPStatus(statusCode int)
	RecordStoreLatency(operation string, duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	xpAwarded        prometheus.Counter
	levelUps         prometheus.Counter
	sessionsDone     *prometheus.CounterVec
	achUnlocked      *prometheus.CounterVec
	achCheckFailures prometheus.Counter
	httpStatus       *prometheus.CounterVec
	storeLatency     *prometheus.HistogramVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		xpAwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "goalquiz_xp_awarded_total",
			Help: "付与されたXPの合計量",
		}),
		levelUps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "goalquiz_level_ups_total",
			Help: "検知されたレベルアップの合計数",
		}),
		sessionsDone: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "goalquiz_sessions_completed_total",
			Help: "確定したチャレンジセッションの勝敗別合計数",
		}, []string{"result"}),
		achUnlocked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "goalquiz_achievements_unlocked_total",
			Help: "解除された実績のコード別合計数",
		}, []string{"code"}),
		achCheckFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "goalquiz_achievement_check_failures_total",
			Help: "実績チェック失敗の合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "goalquiz_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		storeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "goalquiz_store_latency_seconds",
			Help:    "ストア操作のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}

	reg.MustRegister(
		c.xpAwarded,
		c.levelUps,
		c.sessionsDone,
		c.achUnlocked,
		c.achCheckFailures,
		c.httpStatus,
		c.storeLatency,
	)

	return c
}

// RecordXpAwarded は付与XP量を記録する。
func (c *Collector) RecordXpAwarded(amount int) {
	c.xpAwarded.Add(float64(amount))
}

// RecordLevelUp はレベルアップを記録する。
func (c *Collector) RecordLevelUp() {
	c.levelUps.Inc()
}

// RecordSessionCompleted はチャレンジセッションの確定を勝敗別に記録する。
func (c *Collector) RecordSessionCompleted(result string) {
	if result == "" {
		result = "unknown"
	}
	c.sessionsDone.WithLabelValues(result).Inc()
}

// RecordAchievementUnlocked は実績解除をコード別に記録する。
func (c *Collector) RecordAchievementUnlocked(code string) {
	c.achUnlocked.WithLabelValues(code).Inc()
}

// RecordAchievementCheckFailure は実績チェックの失敗を記録する。
func (c *Collector) RecordAchievementCheckFailure() {
	c.achCheckFailures.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordStoreLatency はストア操作のレイテンシを記録する。
func (c *Collector) RecordStoreLatency(operation string, duration time.Duration) {
	c.storeLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
// ルーターが/metricsにマウントする。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
