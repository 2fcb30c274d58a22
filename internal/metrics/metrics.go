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
// セッションマネージャーやハンドラー層から利用する。
type MetricsCollector interface {
	// SessionPublished はセッション公開を記録する。absentの場合roleは空。
	SessionPublished(role string)
	// StaleMergeDropped は古いマージ結果の破棄を記録する。
	StaleMergeDropped()
	// ProfileFetchFailed はプロファイル取得失敗によるフォールバックを記録する。
	ProfileFetchFailed()
	RecordSignup()
	RecordLogin(method string)
	RecordToolSubmission(category string)
	RecordValidationFailure(form string)
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
// session.Observerとしてセッションマネージャーに渡せる。
type Collector struct {
	sessionPublished *prometheus.CounterVec
	staleMergeDrops  prometheus.Counter
	profileFetchFail prometheus.Counter
	signups          prometheus.Counter
	logins           *prometheus.CounterVec
	toolSubmissions  *prometheus.CounterVec
	validationFails  *prometheus.CounterVec
	httpStatus       *prometheus.CounterVec
	requestLatency   prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		sessionPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "freetools_session_published_total",
			Help: "公開されたセッションの合計数（ロール別。absentはrole=none）",
		}, []string{"role"}),
		staleMergeDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "freetools_stale_merge_dropped_total",
			Help: "破棄された古いセッションマージの合計数",
		}),
		profileFetchFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "freetools_profile_fetch_fail_total",
			Help: "プロファイル取得失敗によるフォールバックの合計数",
		}),
		signups: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "freetools_signups_total",
			Help: "サインアップ成功の合計数",
		}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "freetools_logins_total",
			Help: "ログイン成功の合計数（method: password, google）",
		}, []string{"method"}),
		toolSubmissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "freetools_tool_submissions_total",
			Help: "受け付けたツール投稿の合計数（カテゴリ別）",
		}, []string{"category"}),
		validationFails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "freetools_validation_failures_total",
			Help: "バリデーションで拒否されたリクエストの合計数（フォーム別）",
		}, []string{"form"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "freetools_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "freetools_request_latency_seconds",
			Help:    "HTTPリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.sessionPublished,
		c.staleMergeDrops,
		c.profileFetchFail,
		c.signups,
		c.logins,
		c.toolSubmissions,
		c.validationFails,
		c.httpStatus,
		c.requestLatency,
	)

	return c
}

// SessionPublished はセッション公開を記録する。
func (c *Collector) SessionPublished(role string) {
	if role == "" {
		role = "none"
	}
	c.sessionPublished.WithLabelValues(role).Inc()
}

// StaleMergeDropped は古いマージ結果の破棄を記録する。
func (c *Collector) StaleMergeDropped() {
	c.staleMergeDrops.Inc()
}

// ProfileFetchFailed はプロファイル取得失敗を記録する。
func (c *Collector) ProfileFetchFailed() {
	c.profileFetchFail.Inc()
}

// RecordSignup はサインアップ成功を記録する。
func (c *Collector) RecordSignup() {
	c.signups.Inc()
}

// RecordLogin はログイン成功を記録する。
func (c *Collector) RecordLogin(method string) {
	c.logins.WithLabelValues(method).Inc()
}

// RecordToolSubmission はツール投稿の受け付けを記録する。
func (c *Collector) RecordToolSubmission(category string) {
	c.toolSubmissions.WithLabelValues(category).Inc()
}

// RecordValidationFailure はバリデーションによるリクエスト拒否を記録する。
func (c *Collector) RecordValidationFailure(form string) {
	c.validationFails.WithLabelValues(form).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエストのレイテンシを記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
