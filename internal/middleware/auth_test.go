package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/wedding-letter/letter-api/internal/auth"
	"github.com/wedding-letter/letter-api/internal/model"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestManagers(t *testing.T) (*auth.TokenManager, *auth.CookieManager) {
	t.Helper()
	tokens, err := auth.NewTokenManager(testSecret, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("NewTokenManager() returned error: %v", err)
	}
	cookies := auth.NewCookieManager("example.com", 604800)
	return tokens, cookies
}

// okHandler はアイデンティティがコンテキストに入っていることを確認するハンドラ。
func okHandler(t *testing.T, wantUserID string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := IdentityFromContext(r.Context())
		if err != nil {
			t.Errorf("IdentityFromContext() returned error: %v", err)
		}
		if identity.UserID != wantUserID {
			t.Errorf("expected user %s in context, got %s", wantUserID, identity.UserID)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func decodeErrorBody(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponseBody {
	t.Helper()
	var body ErrorResponseBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return body
}

// TestAuthMiddleware_ValidToken は有効なトークンが通過することを検証する。
func TestAuthMiddleware_ValidToken(t *testing.T) {
	tokens, cookies := newTestManagers(t)

	token, err := tokens.CreateToken(model.Identity{
		UserID:   "user-1",
		Name:     "太郎",
		Email:    "taro@example.com",
		Provider: "google",
	})
	if err != nil {
		t.Fatalf("CreateToken() returned error: %v", err)
	}

	mw := NewAuthMiddleware(tokens, cookies)
	handler := mw(okHandler(t, "user-1"))

	req := httptest.NewRequest(http.MethodGet, "/api/my/invitations", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: token})
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
}

// TestAuthMiddleware_NoCookie はCookie無しでAUTH_REQUIREDになることを検証する。
func TestAuthMiddleware_NoCookie(t *testing.T) {
	tokens, cookies := newTestManagers(t)
	mw := NewAuthMiddleware(tokens, cookies)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/my/invitations", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rec.Code)
	}

	body := decodeErrorBody(t, rec)
	if body.Code != model.ErrCodeAuthRequired {
		t.Errorf("expected code %s, got %s", model.ErrCodeAuthRequired, body.Code)
	}
	if body.ClientAction != model.ClientActionClearSessionAndLogin {
		t.Errorf("expected clientAction %s, got %s", model.ClientActionClearSessionAndLogin, body.ClientAction)
	}
}

// TestAuthMiddleware_InvalidToken は無効なトークンでSESSION_EXPIREDになることを検証する。
// AUTH_REQUIREDとはコードが異なることが重要（フロントエンドの導線出し分け）。
func TestAuthMiddleware_InvalidToken(t *testing.T) {
	tokens, cookies := newTestManagers(t)
	mw := NewAuthMiddleware(tokens, cookies)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/my/invitations", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: "not-a-valid-token"})
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rec.Code)
	}

	body := decodeErrorBody(t, rec)
	if body.Code != model.ErrCodeSessionExpired {
		t.Errorf("expected code %s, got %s", model.ErrCodeSessionExpired, body.Code)
	}
	if body.ClientAction != model.ClientActionClearSessionAndLogin {
		t.Errorf("expected clientAction %s, got %s", model.ClientActionClearSessionAndLogin, body.ClientAction)
	}
}

// TestAuthMiddleware_TamperedToken は改ざんされたトークンの拒否を検証する。
func TestAuthMiddleware_TamperedToken(t *testing.T) {
	tokens, cookies := newTestManagers(t)

	token, err := tokens.CreateToken(model.Identity{UserID: "user-1"})
	if err != nil {
		t.Fatalf("CreateToken() returned error: %v", err)
	}
	// 署名部分の末尾1文字を書き換える
	tampered := token[:len(token)-1]
	if strings.HasSuffix(token, "A") {
		tampered += "B"
	} else {
		tampered += "A"
	}

	mw := NewAuthMiddleware(tokens, cookies)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/my/invitations", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: tampered})
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rec.Code)
	}
	body := decodeErrorBody(t, rec)
	if body.Code != model.ErrCodeSessionExpired {
		t.Errorf("expected code %s, got %s", model.ErrCodeSessionExpired, body.Code)
	}
}

// TestAuthMiddleware_ClearsBrokenCookie は無効トークン時にCookieクリアが
// 全ドメイン候補へブロードキャストされることを検証する。
func TestAuthMiddleware_ClearsBrokenCookie(t *testing.T) {
	tokens, cookies := newTestManagers(t)
	mw := NewAuthMiddleware(tokens, cookies)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/api/my/invitations", nil)
	req.Host = "app.example.com"
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: "broken"})
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	setCookies := rec.Header().Values("Set-Cookie")
	if len(setCookies) < 2 {
		t.Fatalf("expected multiple Set-Cookie headers for broadcast clear, got %d", len(setCookies))
	}

	sawSecure, sawInsecure := false, false
	for _, sc := range setCookies {
		if !strings.Contains(sc, auth.SessionCookieName+"=") {
			t.Errorf("unexpected cookie name in %q", sc)
		}
		if !strings.Contains(sc, "Max-Age=0") {
			t.Errorf("expected Max-Age=0 in %q", sc)
		}
		if strings.Contains(sc, "Secure") {
			sawSecure = true
		} else {
			sawInsecure = true
		}
	}
	if !sawSecure || !sawInsecure {
		t.Error("expected both secure and insecure clear cookies")
	}
}

// TestIdentityFromContext_Missing はアイデンティティ未設定時のエラーを検証する。
func TestIdentityFromContext_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	if _, err := IdentityFromContext(req.Context()); err == nil {
		t.Error("expected error for missing identity")
	}
	if _, err := UserIDFromContext(req.Context()); err == nil {
		t.Error("expected error for missing user ID")
	}
}
