package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wedding-letter/letter-api/internal/auth"
	"github.com/wedding-letter/letter-api/internal/metrics"
	"github.com/wedding-letter/letter-api/internal/model"
)

const oauthStateCookie = "WL_OAUTH_STATE"

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	GetLoginURL(provider, state string) (string, error)
	HandleCallback(ctx context.Context, provider, code string) (string, error)
	GetCurrentUser(ctx context.Context, identity *model.Identity) (*model.User, error)
}

// TokenParser はMeエンドポイントが必要とするトークン検証インターフェース。
type TokenParser interface {
	ParseIdentity(tokenString string) (*model.Identity, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	BaseURL      string // ログイン完了後のリダイレクト先
	CookieSecure bool   // stateクッキーのSecure属性
}

// AuthHandler はOAuth認証関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	tokens  TokenParser
	cookies *auth.CookieManager
	metrics metrics.MetricsCollector
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(
	service AuthServiceInterface,
	tokens TokenParser,
	cookies *auth.CookieManager,
	collector metrics.MetricsCollector,
	config AuthHandlerConfig,
) *AuthHandler {
	return &AuthHandler{
		service: service,
		tokens:  tokens,
		cookies: cookies,
		metrics: collector,
		config:  config,
	}
}

// Login はOAuthフローを開始する。
// GET /auth/{provider}/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")

	state, err := auth.GenerateState()
	if err != nil {
		slog.Error("failed to generate oauth state", slog.String("error", err.Error()))
		handleServiceError(w, model.NewInternalError())
		return
	}

	url, err := h.service.GetLoginURL(provider, state)
	if err != nil {
		handleServiceError(w, model.NewInvalidRequestError("未対応のログインプロバイダです。"))
		return
	}

	// stateをCookieに保存（CSRF対策）
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10分
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// Callback はOAuthコールバックを処理し、セッションCookieを発行する。
// GET /auth/{provider}/callback?code=xxx&state=yyy
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")

	// 1. stateの検証（CSRF対策）
	state := r.URL.Query().Get("state")
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || state == "" || stateCookie.Value != state {
		slog.Warn("oauth state mismatch", slog.String("provider", provider))
		handleServiceError(w, model.NewInvalidRequestError("stateパラメータが一致しません。"))
		return
	}

	// stateクッキーを削除
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	// 2. 認可コードの取得
	code := r.URL.Query().Get("code")
	if code == "" {
		handleServiceError(w, model.NewInvalidRequestError("認可コードがありません。"))
		return
	}

	// 3. 認証処理とトークン発行
	token, err := h.service.HandleCallback(r.Context(), provider, code)
	if err != nil {
		slog.Error("oauth callback failed",
			slog.String("provider", provider),
			slog.String("error", err.Error()),
		)
		h.metrics.RecordLoginFailure(provider)
		handleServiceError(w, model.NewInternalError())
		return
	}

	// 4. セッションCookieを設定（HTTP Only）
	h.cookies.Issue(w, r, token)
	h.metrics.RecordLogin(provider)

	// 5. フロントエンドにリダイレクト
	http.Redirect(w, r, h.config.BaseURL, http.StatusTemporaryRedirect)
}

// Logout はセッションCookieを無効化する。
// サーバー側に破棄すべき状態は無く、Cookieのクリアがログアウトの全てである。
// クリアは全ドメイン候補へブロードキャストされる。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.cookies.Clear(w, r)
	w.WriteHeader(http.StatusNoContent)
}

// meResponse は現在のログイン状態のAPIレスポンス。
type meResponse struct {
	LoggedIn bool   `json:"loggedIn"`
	UserID   string `json:"userId,omitempty"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Provider string `json:"provider,omitempty"`
	Role     string `json:"role,omitempty"`
	IsAdmin  bool   `json:"isAdmin"`
}

// Me は現在のログインユーザー情報を返す。
// 認証ミドルウェアの外に配置され、未ログインでも200で loggedIn:false を返す。
// フロントエンドが起動時のセッション確認に使うため、401は返さない。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(auth.SessionCookieName)
	if err != nil || cookie.Value == "" {
		writeJSON(w, http.StatusOK, meResponse{LoggedIn: false})
		return
	}

	identity, err := h.tokens.ParseIdentity(cookie.Value)
	if err != nil {
		// 無効トークンは未ログイン扱い。壊れたCookieはクリアしておく
		h.cookies.Clear(w, r)
		writeJSON(w, http.StatusOK, meResponse{LoggedIn: false})
		return
	}

	user, err := h.service.GetCurrentUser(r.Context(), identity)
	if err != nil {
		slog.Error("failed to get current user", slog.String("error", err.Error()))
		handleServiceError(w, model.NewInternalError())
		return
	}
	if user == nil {
		// トークンは有効だがアカウントが削除済み
		h.cookies.Clear(w, r)
		writeJSON(w, http.StatusOK, meResponse{LoggedIn: false})
		return
	}

	writeJSON(w, http.StatusOK, meResponse{
		LoggedIn: true,
		UserID:   user.ID,
		Name:     user.Name,
		Email:    user.Email,
		Provider: user.Provider,
		Role:     string(user.Role),
		IsAdmin:  user.IsAdmin(),
	})
}
