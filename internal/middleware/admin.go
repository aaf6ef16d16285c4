package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/wedding-letter/letter-api/internal/model"
)

// UserFinder はロール解決に必要なインターフェース。
// repository.UserRepositoryの部分集合として定義する。
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// NewAdminMiddleware は管理者ロールを要求するミドルウェアを返す。
// ロールはトークンのクレームではなくDBから都度解決する。
// トークン発行後にロールが剥奪されたユーザーを即座に締め出すため。
// 認証ミドルウェアの後に配置すること。
func NewAdminMiddleware(userFinder UserFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := IdentityFromContext(r.Context())
			if err != nil {
				WriteErrorResponse(w, model.NewAuthRequiredError())
				return
			}

			user, err := userFinder.FindByID(r.Context(), identity.UserID)
			if err != nil {
				slog.Error("failed to resolve user role", "user_id", identity.UserID, "error", err)
				WriteInternalServerError(w)
				return
			}
			if user == nil || !user.IsAdmin() {
				slog.Warn("admin access denied", "user_id", identity.UserID)
				WriteErrorResponse(w, model.NewForbiddenError())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
