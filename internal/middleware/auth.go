package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/wedding-letter/letter-api/internal/auth"
	"github.com/wedding-letter/letter-api/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// identityContextKey はリクエストコンテキストにアイデンティティを格納するためのキー。
var identityContextKey = contextKey("identity")

// NewAuthMiddleware はセッションCookieからトークンを読み取り、
// 検証済みアイデンティティをリクエストコンテキストに注入するミドルウェアを返す。
//
// Cookieが無い場合はAUTH_REQUIRED、Cookieはあるがトークンが無効・期限切れの
// 場合はSESSION_EXPIREDを返す。この区別によりフロントエンドは
// 「未ログイン」と「セッション切れ」で導線を出し分けられる。
// どちらの場合もCookieのクリアを全ドメイン候補へブロードキャストし、
// 壊れたCookieが残り続けてリクエストのたびに401になる状態を防ぐ。
func NewAuthMiddleware(tokens *auth.TokenManager, cookies *auth.CookieManager) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. Cookieからトークンを取得
			cookie, err := r.Cookie(auth.SessionCookieName)
			if err != nil || cookie.Value == "" {
				cookies.Clear(w, r)
				WriteErrorResponse(w, model.NewAuthRequiredError())
				return
			}

			// 2. トークンの検証とアイデンティティの取り出し（fail closed）
			identity, err := tokens.ParseIdentity(cookie.Value)
			if err != nil {
				slog.Info("session token rejected", "error", err)
				cookies.Clear(w, r)
				WriteErrorResponse(w, model.NewSessionExpiredError())
				return
			}

			// 3. 検証済みアイデンティティをコンテキストに注入
			ctx := ContextWithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext はリクエストコンテキストからアイデンティティを取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func IdentityFromContext(ctx context.Context) (*model.Identity, error) {
	identity, ok := ctx.Value(identityContextKey).(*model.Identity)
	if !ok || identity == nil {
		return nil, fmt.Errorf("identity not found in context")
	}
	return identity, nil
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
func UserIDFromContext(ctx context.Context) (string, error) {
	identity, err := IdentityFromContext(ctx)
	if err != nil {
		return "", err
	}
	return identity.UserID, nil
}

// ContextWithIdentity はコンテキストにアイデンティティを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithIdentity(ctx context.Context, identity *model.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}
