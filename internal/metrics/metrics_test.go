package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// counterValue はレジストリから指定メトリクスのカウンタ値を取り出す。
func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() == name {
			var total float64
			for _, m := range mf.GetMetric() {
				total += m.GetCounter().GetValue()
			}
			return total
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	if c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestRecordLogin_IncrementsCounter はログインカウンタがプロバイダ別に増加することを検証する。
func TestRecordLogin_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordLogin("google")
	c.RecordLogin("google")
	c.RecordLogin("kakao")

	if got := counterValue(t, reg, "letter_logins_total"); got != 3 {
		t.Errorf("logins_total = %v, want 3", got)
	}
}

// TestRecordLoginFailure_IncrementsCounter はログイン失敗カウンタが増加することを検証する。
func TestRecordLoginFailure_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordLoginFailure("google")

	if got := counterValue(t, reg, "letter_login_failures_total"); got != 1 {
		t.Errorf("login_failures_total = %v, want 1", got)
	}
}

// TestRecordHTTPRequest はHTTPリクエストカウンタとレイテンシの記録を検証する。
func TestRecordHTTPRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPRequest(http.MethodGet, "/api/notices", 200, 15*time.Millisecond)
	c.RecordHTTPRequest(http.MethodPost, "/api/notices", 400, 5*time.Millisecond)

	if got := counterValue(t, reg, "letter_http_requests_total"); got != 2 {
		t.Errorf("http_requests_total = %v, want 2", got)
	}
}

// TestRecordRSVPSubmitted は出欠回答カウンタが出欠別に増加することを検証する。
func TestRecordRSVPSubmitted(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRSVPSubmitted(true)
	c.RecordRSVPSubmitted(true)
	c.RecordRSVPSubmitted(false)

	if got := counterValue(t, reg, "letter_rsvps_total"); got != 3 {
		t.Errorf("rsvps_total = %v, want 3", got)
	}
}

// TestRecordLinkPreview_Blocked はブロックされたプレビューが両方のカウンタに記録されることを検証する。
func TestRecordLinkPreview_Blocked(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordLinkPreview(false)
	c.RecordLinkPreview(true)

	if got := counterValue(t, reg, "letter_link_previews_total"); got != 2 {
		t.Errorf("link_previews_total = %v, want 2", got)
	}
	if got := counterValue(t, reg, "letter_link_previews_blocked_total"); got != 1 {
		t.Errorf("link_previews_blocked_total = %v, want 1", got)
	}
}

// TestSetupMetricsRoute_ServesMetrics は/metricsパスでメトリクスが返ることを検証する。
func TestSetupMetricsRoute_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordGuestbookEntry()

	handler := SetupMetricsRoute(reg)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "letter_guestbook_entries_total") {
		t.Error("response should contain letter_guestbook_entries_total metric")
	}
}

// TestCollectorInterface はMetricsCollectorインターフェースの適合を検証する。
func TestCollectorInterface(t *testing.T) {
	reg := prometheus.NewRegistry()
	var _ MetricsCollector = NewCollector(reg)
}
