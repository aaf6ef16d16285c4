package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/wedding-letter/letter-api/internal/model"
)

func testRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:      rate.Limit(1000),
		GeneralBurst:     3,
		PublicWriteRate:  rate.Limit(1000),
		PublicWriteBurst: 2,
		CleanupInterval:  time.Hour,
	}
}

func authedRequest(userID, path string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	return req.WithContext(ContextWithIdentity(req.Context(), &model.Identity{UserID: userID}))
}

// TestGeneralMiddleware_AllowsWithinBurst はバースト内のリクエストが通過することを検証する。
func TestGeneralMiddleware_AllowsWithinBurst(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, authedRequest("user-1", "/api/my/invitations"))
		if rec.Code != http.StatusOK {
			t.Errorf("request %d: expected status 200, got %d", i+1, rec.Code)
		}
	}
}

// TestGeneralMiddleware_BlocksOverBurst はバースト超過で429になることを検証する。
func TestGeneralMiddleware_BlocksOverBurst(t *testing.T) {
	config := testRateLimiterConfig()
	config.GeneralRate = rate.Limit(0.001) // 補充をほぼ止める
	rl := NewRateLimiter(config)
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, authedRequest("user-1", "/api/my/invitations"))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected status 200, got %d", i+1, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest("user-1", "/api/my/invitations"))

	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}

	body := decodeErrorBody(t, rec)
	if body.Code != "RATE_LIMIT_EXCEEDED" {
		t.Errorf("expected code RATE_LIMIT_EXCEEDED, got %s", body.Code)
	}
	if body.ClientAction != model.ClientActionRetryLater {
		t.Errorf("expected clientAction %s, got %s", model.ClientActionRetryLater, body.ClientAction)
	}
}

// TestGeneralMiddleware_PerUser はユーザーごとに独立した制限であることを検証する。
func TestGeneralMiddleware_PerUser(t *testing.T) {
	config := testRateLimiterConfig()
	config.GeneralRate = rate.Limit(0.001)
	rl := NewRateLimiter(config)
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// user-1 のバーストを使い切る
	for i := 0; i < 4; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, authedRequest("user-1", "/api/my/invitations"))
	}

	// user-2 は影響を受けない
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest("user-2", "/api/my/invitations"))
	if rec.Code != http.StatusOK {
		t.Errorf("expected user-2 to be unaffected, got status %d", rec.Code)
	}

	if rl.GeneralLimiterCount() != 2 {
		t.Errorf("expected 2 limiter entries, got %d", rl.GeneralLimiterCount())
	}
}

// TestGeneralMiddleware_Unauthenticated は未認証リクエストの拒否を検証する。
func TestGeneralMiddleware_Unauthenticated(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/my/invitations", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rec.Code)
	}
}

// TestPublicWriteMiddleware_PerIP は公開側書き込みがIPごとに制限されることを検証する。
func TestPublicWriteMiddleware_PerIP(t *testing.T) {
	config := testRateLimiterConfig()
	config.PublicWriteRate = rate.Limit(0.001)
	rl := NewRateLimiter(config)
	defer rl.Stop()

	handler := rl.PublicWriteMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	newReq := func(ip string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/api/invitations/slug/rsvps", nil)
		req.RemoteAddr = ip + ":12345"
		return req
	}

	// バースト2を使い切る
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, newReq("203.0.113.1"))
		if rec.Code != http.StatusCreated {
			t.Fatalf("request %d: expected status 201, got %d", i+1, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, newReq("203.0.113.1"))
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected status 429 for exhausted IP, got %d", rec.Code)
	}

	// 別IPは影響を受けない
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, newReq("203.0.113.2"))
	if rec.Code != http.StatusCreated {
		t.Errorf("expected other IP to be unaffected, got status %d", rec.Code)
	}
}

// TestPublicWriteMiddleware_XForwardedFor はX-Forwarded-Forの先頭値がキーになることを検証する。
func TestPublicWriteMiddleware_XForwardedFor(t *testing.T) {
	config := testRateLimiterConfig()
	config.PublicWriteRate = rate.Limit(0.001)
	rl := NewRateLimiter(config)
	defer rl.Stop()

	handler := rl.PublicWriteMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	newReq := func(xff string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/api/invitations/slug/guestbook", nil)
		req.RemoteAddr = "10.0.0.1:80" // プロキシのアドレス
		req.Header.Set("X-Forwarded-For", xff)
		return req
	}

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, newReq("198.51.100.7, 10.0.0.1"))
	}

	// 同じ転送元IPは制限される
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, newReq("198.51.100.7, 10.0.0.1"))
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", rec.Code)
	}

	// 異なる転送元IPは通過する
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, newReq("198.51.100.8, 10.0.0.1"))
	if rec.Code != http.StatusCreated {
		t.Errorf("expected different forwarded IP to pass, got status %d", rec.Code)
	}
}

// TestClientIP はクライアントIP抽出を検証する。
func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		want       string
	}{
		{name: "RemoteAddrのみ", remoteAddr: "203.0.113.1:54321", want: "203.0.113.1"},
		{name: "XFF単一値", remoteAddr: "10.0.0.1:80", xff: "198.51.100.7", want: "198.51.100.7"},
		{name: "XFF複数値は先頭", remoteAddr: "10.0.0.1:80", xff: "198.51.100.7, 10.0.0.2", want: "198.51.100.7"},
		{name: "XFF空白付き", remoteAddr: "10.0.0.1:80", xff: " 198.51.100.7 ", want: "198.51.100.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := clientIP(req); got != tt.want {
				t.Errorf("clientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestRateLimiterCleanup は期限切れエントリのクリーンアップを検証する。
func TestRateLimiterCleanup(t *testing.T) {
	config := testRateLimiterConfig()
	config.CleanupInterval = 10 * time.Millisecond
	rl := NewRateLimiter(config)
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest("user-1", "/api/my/invitations"))

	if rl.GeneralLimiterCount() != 1 {
		t.Fatalf("expected 1 limiter entry, got %d", rl.GeneralLimiterCount())
	}

	// TTL（CleanupInterval*2）経過後にエントリが削除される
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if rl.GeneralLimiterCount() == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("expected limiter entry to be cleaned up")
}
