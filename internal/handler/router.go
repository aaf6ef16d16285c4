package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wedding-letter/letter-api/internal/metrics"
	"github.com/wedding-letter/letter-api/internal/middleware"
	"github.com/wedding-letter/letter-api/internal/repository"
)

// RouterDeps はルーター構築に必要な依存をまとめる。
type RouterDeps struct {
	AuthHandler        *AuthHandler
	NoticeHandler      *NoticeHandler
	AdminNoticeHandler *AdminNoticeHandler
	InvitationHandler  *InvitationHandler
	RSVPHandler        *RSVPHandler
	GuestbookHandler   *GuestbookHandler
	HealthHandler      *HealthHandler

	AuthMiddleware func(next http.Handler) http.Handler
	RateLimiter    *middleware.RateLimiter
	UserRepo       repository.UserRepository
	Logger         *slog.Logger
	Metrics        metrics.MetricsCollector
	AllowedOrigin  string
}

// NewRouter はアプリケーションの全ルートを構築する。
//
// ルートは3つの領域に分かれる:
//   - 公開: 認証不要。招待状の閲覧、出欠・芳名帳の書き込み、お知らせの閲覧。
//   - 所有者: セッション認証必須。/api/my/ 以下。
//   - 管理者: セッション認証に加えてロールチェック。/admin/ 以下。
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	// 全ルート共通のミドルウェア
	r.Use(middleware.NewCORSMiddleware(deps.AllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewMetricsMiddleware(deps.Metrics))

	// ヘルスチェック
	r.Get("/health", deps.HealthHandler.Liveness)
	r.Get("/health/ready", deps.HealthHandler.Readiness)

	// 認証フロー。セッションが無い状態で使うため認証ミドルウェアの外に置く
	r.Route("/auth", func(r chi.Router) {
		r.Get("/{provider}/login", deps.AuthHandler.Login)
		r.Get("/{provider}/callback", deps.AuthHandler.Callback)
		r.Post("/logout", deps.AuthHandler.Logout)
		r.Get("/me", deps.AuthHandler.Me)
	})

	// 公開API（認証不要）
	r.Route("/api", func(r chi.Router) {
		r.Get("/notices", deps.NoticeHandler.List)
		r.Get("/notices/banners", deps.NoticeHandler.Banners)
		r.Get("/notices/{noticeID}", deps.NoticeHandler.Get)

		r.Get("/invitations/{slug}", deps.InvitationHandler.PublicBySlug)
		r.Get("/invitations/{slug}/guestbook", deps.GuestbookHandler.List)

		// 未ログインの書き込みはIP単位のレート制限をかける
		r.With(deps.RateLimiter.PublicWriteMiddleware()).
			Post("/invitations/{slug}/rsvps", deps.RSVPHandler.Submit)
		r.With(deps.RateLimiter.PublicWriteMiddleware()).
			Post("/invitations/{slug}/guestbook", deps.GuestbookHandler.Add)

		// 所有者API（セッション認証必須）
		r.Group(func(r chi.Router) {
			r.Use(deps.AuthMiddleware)
			r.Use(deps.RateLimiter.GeneralMiddleware())

			r.Route("/my/invitations", func(r chi.Router) {
				r.Get("/", deps.InvitationHandler.ListMine)
				r.Post("/", deps.InvitationHandler.Create)
				r.Get("/{invitationID}", deps.InvitationHandler.GetMine)
				r.Put("/{invitationID}", deps.InvitationHandler.Update)
				r.Delete("/{invitationID}", deps.InvitationHandler.Delete)
				r.Get("/{invitationID}/venue-preview", deps.InvitationHandler.VenuePreview)
				r.Get("/{invitationID}/rsvps", deps.RSVPHandler.ListMine)
				r.Delete("/{invitationID}/guestbook/{entryID}", deps.GuestbookHandler.Delete)
			})
		})
	})

	// 管理者API（セッション認証 + ロールチェック）
	r.Group(func(r chi.Router) {
		r.Use(deps.AuthMiddleware)
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(middleware.NewAdminMiddleware(deps.UserRepo))

		r.Route("/admin/notices", func(r chi.Router) {
			r.Get("/", deps.AdminNoticeHandler.Search)
			r.Post("/", deps.AdminNoticeHandler.Create)
			r.Put("/{noticeID}", deps.AdminNoticeHandler.Update)
			r.Patch("/{noticeID}/status", deps.AdminNoticeHandler.UpdateStatus)
		})
	})

	return r
}
