package handler

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"
)

// nopMetrics はテスト用のメトリクス実装。呼び出し回数のみ記録する。
type nopMetrics struct {
	logins        int
	loginFailures int
	noticeViews   int
	rsvps         int
	guestbook     int
	previews      int
	blocked       int
}

func (m *nopMetrics) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
}
func (m *nopMetrics) RecordLogin(provider string)        { m.logins++ }
func (m *nopMetrics) RecordLoginFailure(provider string) { m.loginFailures++ }
func (m *nopMetrics) RecordNoticeView(noticeID string)   { m.noticeViews++ }
func (m *nopMetrics) RecordRSVPSubmitted(attending bool) { m.rsvps++ }
func (m *nopMetrics) RecordGuestbookEntry()              { m.guestbook++ }
func (m *nopMetrics) RecordLinkPreview(blocked bool) {
	m.previews++
	if blocked {
		m.blocked++
	}
}

// decodeBody はレスポンスボディをmapとしてデコードする。
func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return body
}
