package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/wedding-letter/letter-api/internal/model"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestTokenManager(t *testing.T) *TokenManager {
	t.Helper()
	tm, err := NewTokenManager(testSecret, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("failed to create token manager: %v", err)
	}
	return tm
}

func testIdentity() model.Identity {
	return model.Identity{
		UserID:   "user-1",
		Name:     "山田太郎",
		Email:    "taro@example.com",
		Provider: "google",
	}
}

// TestNewTokenManager_ShortSecret は32バイト未満のシークレットの拒否を検証する。
// 脆弱なシークレットは実行時の回復ができないため、生成時点で失敗させる。
func TestNewTokenManager_ShortSecret(t *testing.T) {
	_, err := NewTokenManager("too-short", 7*24*time.Hour)
	if err == nil {
		t.Fatal("expected error for short secret, got nil")
	}
	if !strings.Contains(err.Error(), "32") {
		t.Errorf("error should mention the minimum length, got: %v", err)
	}
}

// TestNewTokenManager_ExactMinimumSecret はちょうど32バイトのシークレットが許可されることを検証する。
func TestNewTokenManager_ExactMinimumSecret(t *testing.T) {
	if _, err := NewTokenManager(testSecret, time.Hour); err != nil {
		t.Fatalf("32-byte secret should be accepted: %v", err)
	}
}

// TestCreateToken_IsValid は発行直後のトークンが有効であることを検証する。
func TestCreateToken_IsValid(t *testing.T) {
	tm := newTestTokenManager(t)

	token, err := tm.CreateToken(testIdentity())
	if err != nil {
		t.Fatalf("failed to create token: %v", err)
	}
	if !tm.IsValid(token) {
		t.Error("freshly created token should be valid")
	}
}

// TestIsValid_Expired は有効期限切れトークンの拒否を検証する。
func TestIsValid_Expired(t *testing.T) {
	tm := newTestTokenManager(t)

	issued := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	tm.now = func() time.Time { return issued }

	token, err := tm.CreateToken(testIdentity())
	if err != nil {
		t.Fatalf("failed to create token: %v", err)
	}

	// 有効期限（7日）を過ぎた時点に時計を進める
	tm.now = func() time.Time { return issued.Add(7*24*time.Hour + time.Minute) }

	if tm.IsValid(token) {
		t.Error("expired token should be invalid")
	}
	if _, err := tm.ParseIdentity(token); err == nil {
		t.Error("ParseIdentity should fail for expired token")
	}
}

// TestIsValid_Tampered は改ざんされたトークンの拒否を検証する。
func TestIsValid_Tampered(t *testing.T) {
	tm := newTestTokenManager(t)

	token, err := tm.CreateToken(testIdentity())
	if err != nil {
		t.Fatalf("failed to create token: %v", err)
	}

	// 署名部分の末尾1文字を書き換える
	tampered := token[:len(token)-1]
	if strings.HasSuffix(token, "A") {
		tampered += "B"
	} else {
		tampered += "A"
	}

	if tm.IsValid(tampered) {
		t.Error("tampered token should be invalid")
	}
}

// TestIsValid_WrongSecret は別のシークレットで署名されたトークンの拒否を検証する。
func TestIsValid_WrongSecret(t *testing.T) {
	tm1 := newTestTokenManager(t)
	tm2, err := NewTokenManager("another-secret-that-is-32-bytes!", time.Hour)
	if err != nil {
		t.Fatalf("failed to create second token manager: %v", err)
	}

	token, err := tm2.CreateToken(testIdentity())
	if err != nil {
		t.Fatalf("failed to create token: %v", err)
	}

	if tm1.IsValid(token) {
		t.Error("token signed with a different secret should be invalid")
	}
}

// TestIsValid_Garbage はJWT形式ですらない文字列の拒否を検証する。
func TestIsValid_Garbage(t *testing.T) {
	tm := newTestTokenManager(t)

	for _, input := range []string{"", "not-a-jwt", "a.b.c", "ヘッダー.ペイロード.署名"} {
		if tm.IsValid(input) {
			t.Errorf("garbage input %q should be invalid", input)
		}
	}
}

// TestParseIdentity_RoundTrip はトークンからアイデンティティが復元できることを検証する。
func TestParseIdentity_RoundTrip(t *testing.T) {
	tm := newTestTokenManager(t)

	want := testIdentity()
	token, err := tm.CreateToken(want)
	if err != nil {
		t.Fatalf("failed to create token: %v", err)
	}

	got, err := tm.ParseIdentity(token)
	if err != nil {
		t.Fatalf("failed to parse identity: %v", err)
	}
	if got.UserID != want.UserID {
		t.Errorf("UserID = %q, want %q", got.UserID, want.UserID)
	}
	if got.Name != want.Name {
		t.Errorf("Name = %q, want %q", got.Name, want.Name)
	}
	if got.Email != want.Email {
		t.Errorf("Email = %q, want %q", got.Email, want.Email)
	}
	if got.Provider != want.Provider {
		t.Errorf("Provider = %q, want %q", got.Provider, want.Provider)
	}
}

// TestParseIdentity_MissingProvider はproviderクレーム欠落時のデフォルト値を検証する。
func TestParseIdentity_MissingProvider(t *testing.T) {
	tm := newTestTokenManager(t)

	identity := testIdentity()
	identity.Provider = ""
	token, err := tm.CreateToken(identity)
	if err != nil {
		t.Fatalf("failed to create token: %v", err)
	}

	got, err := tm.ParseIdentity(token)
	if err != nil {
		t.Fatalf("failed to parse identity: %v", err)
	}
	if got.Provider != "unknown" {
		t.Errorf("Provider = %q, want %q", got.Provider, "unknown")
	}
}
