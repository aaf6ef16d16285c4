package auth

import (
	"net"
	"net/http"
	"strings"
	"time"
)

// SessionCookieName はセッショントークンを運ぶCookieの名前。
const SessionCookieName = "WL_ACCESS_TOKEN"

// expiredTime は過去時刻のExpires属性。Max-Age=0を解釈しない
// 古いクライアント向けの保険としてMax-Ageと併記する。
var expiredTime = time.Unix(0, 0)

// CookieManager はセッションCookieの発行とクリアを行う。
type CookieManager struct {
	domain string // 設定由来のCookieドメイン（先頭ドットは除去済み）。空なら未指定
	maxAge int    // 発行時のMax-Age（秒）
}

// NewCookieManager はCookieManagerを生成する。
// domainの先頭ドットは除去される（RFC 6265ではドット有無は同義だが、
// Set-Cookie時の表記を統一するため）。
func NewCookieManager(domain string, maxAgeSeconds int) *CookieManager {
	return &CookieManager{
		domain: strings.TrimPrefix(domain, "."),
		maxAge: maxAgeSeconds,
	}
}

// Issue はセッショントークンをHTTP Only Cookieとして設定する。
// Secure属性はリクエストがHTTPS経由と判定された場合のみ付与する。
func (cm *CookieManager) Issue(w http.ResponseWriter, r *http.Request, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Domain:   cm.domain,
		MaxAge:   cm.maxAge,
		HttpOnly: true,
		Secure:   IsSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear はセッションCookieを無効化するSet-Cookieヘッダー群を出力する。
//
// Cookieは設定時と同じDomain/Secure属性の組み合わせでないと確実に削除
// できないため、{設定ドメイン, リクエストホスト, ドット付きホスト, ドメイン
// 指定なし} × {secure有, secure無} の全組み合わせに対してMax-Age=0を
// 送出する。単一のSet-Cookieに簡略化してはならない（環境をまたいだ
// ログアウトの正しさがこの多重送出に依存している）。
func (cm *CookieManager) Clear(w http.ResponseWriter, r *http.Request) {
	for _, domain := range cm.domainCandidates(r) {
		for _, secure := range []bool{true, false} {
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookieName,
				Value:    "",
				Path:     "/",
				Domain:   domain,
				MaxAge:   -1, // Max-Age=0 として送出される
				Expires:  expiredTime,
				HttpOnly: true,
				Secure:   secure,
				SameSite: http.SameSiteLaxMode,
			})
		}
	}
}

// domainCandidates はクリア対象のCookieドメイン候補を返す。
// 重複は除去し、「ドメイン指定なし」（空文字）を必ず含める。
func (cm *CookieManager) domainCandidates(r *http.Request) []string {
	seen := make(map[string]bool)
	var candidates []string

	add := func(d string) {
		if seen[d] {
			return
		}
		seen[d] = true
		candidates = append(candidates, d)
	}

	// ドメイン指定なし（ホストオンリーCookie）
	add("")

	// 設定由来のドメイン
	if cm.domain != "" {
		add(cm.domain)
	}

	// リクエストホスト（ポートは除去）
	host := requestHost(r)
	if host != "" && net.ParseIP(host) == nil {
		add(strings.TrimPrefix(host, "."))
		add("." + strings.TrimPrefix(host, "."))
	}

	return candidates
}

// requestHost はリクエストからホスト名（ポート除去済み）を取り出す。
func requestHost(r *http.Request) string {
	host := r.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return host
}

// IsSecureRequest はリクエストがHTTPS経由かを判定する。
// 直接TLS、X-Forwarded-Proto、Forwardedヘッダー（RFC 7239）の順に確認する。
func IsSecureRequest(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	if strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		return true
	}
	// Forwarded: for=...;proto=https;by=...
	forwarded := r.Header.Get("Forwarded")
	for _, part := range strings.Split(forwarded, ";") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) == 2 && strings.EqualFold(kv[0], "proto") &&
			strings.EqualFold(strings.Trim(kv[1], `"`), "https") {
			return true
		}
	}
	return false
}
