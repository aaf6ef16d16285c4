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
// ハンドラーやサービス層から利用する。
type MetricsCollector interface {
	RecordHTTPRequest(method, path string, statusCode int, duration time.Duration)
	RecordLogin(provider string)
	RecordLoginFailure(provider string)
	RecordNoticeView(noticeID string)
	RecordRSVPSubmitted(attending bool)
	RecordGuestbookEntry()
	RecordLinkPreview(blocked bool)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpRequests    *prometheus.CounterVec
	httpLatency     prometheus.Histogram
	logins          *prometheus.CounterVec
	loginFailures   *prometheus.CounterVec
	noticeViews     prometheus.Counter
	rsvpSubmitted   *prometheus.CounterVec
	guestbookTotal  prometheus.Counter
	linkPreviews    prometheus.Counter
	linkPreviewsBlk prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "letter_http_requests_total",
			Help: "HTTPリクエストの合計数（メソッド・ステータスコード別）",
		}, []string{"method", "status_code"}),
		httpLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "letter_http_latency_seconds",
			Help:    "HTTPリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "letter_logins_total",
			Help: "ログイン成功の合計数（プロバイダ別）",
		}, []string{"provider"}),
		loginFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "letter_login_failures_total",
			Help: "ログイン失敗の合計数（プロバイダ別）",
		}, []string{"provider"}),
		noticeViews: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "letter_notice_views_total",
			Help: "公開お知らせ閲覧の合計数",
		}),
		rsvpSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "letter_rsvps_total",
			Help: "出欠回答登録の合計数（出欠別）",
		}, []string{"attending"}),
		guestbookTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "letter_guestbook_entries_total",
			Help: "芳名帳書き込みの合計数",
		}),
		linkPreviews: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "letter_link_previews_total",
			Help: "リンクプレビュー取得試行の合計数",
		}),
		linkPreviewsBlk: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "letter_link_previews_blocked_total",
			Help: "セキュリティポリシーでブロックされたリンクプレビューの合計数",
		}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpLatency,
		c.logins,
		c.loginFailures,
		c.noticeViews,
		c.rsvpSubmitted,
		c.guestbookTotal,
		c.linkPreviews,
		c.linkPreviewsBlk,
	)

	return c
}

// RecordHTTPRequest はHTTPリクエストの完了を記録する。
// pathはカーディナリティ抑制のためラベルには含めない。
func (c *Collector) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, strconv.Itoa(statusCode)).Inc()
	c.httpLatency.Observe(duration.Seconds())
}

// RecordLogin はログイン成功を記録する。
func (c *Collector) RecordLogin(provider string) {
	c.logins.WithLabelValues(provider).Inc()
}

// RecordLoginFailure はログイン失敗を記録する。
func (c *Collector) RecordLoginFailure(provider string) {
	c.loginFailures.WithLabelValues(provider).Inc()
}

// RecordNoticeView は公開お知らせの閲覧を記録する。
func (c *Collector) RecordNoticeView(noticeID string) {
	c.noticeViews.Inc()
}

// RecordRSVPSubmitted は出欠回答の登録を記録する。
func (c *Collector) RecordRSVPSubmitted(attending bool) {
	c.rsvpSubmitted.WithLabelValues(strconv.FormatBool(attending)).Inc()
}

// RecordGuestbookEntry は芳名帳書き込みを記録する。
func (c *Collector) RecordGuestbookEntry() {
	c.guestbookTotal.Inc()
}

// RecordLinkPreview はリンクプレビュー取得の試行を記録する。
func (c *Collector) RecordLinkPreview(blocked bool) {
	c.linkPreviews.Inc()
	if blocked {
		c.linkPreviewsBlk.Inc()
	}
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
