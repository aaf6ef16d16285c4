// Package app はアプリケーションの起動と依存関係のワイヤリングを行う。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/wedding-letter/letter-api/internal/auth"
	"github.com/wedding-letter/letter-api/internal/config"
	"github.com/wedding-letter/letter-api/internal/database"
	"github.com/wedding-letter/letter-api/internal/handler"
	"github.com/wedding-letter/letter-api/internal/invitation"
	"github.com/wedding-letter/letter-api/internal/logger"
	"github.com/wedding-letter/letter-api/internal/metrics"
	"github.com/wedding-letter/letter-api/internal/middleware"
	"github.com/wedding-letter/letter-api/internal/notice"
	"github.com/wedding-letter/letter-api/internal/repository"
	"github.com/wedding-letter/letter-api/internal/security"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	noticeRepo := repository.NewPostgresNoticeRepo(db)
	invitationRepo := repository.NewPostgresInvitationRepo(db)
	rsvpRepo := repository.NewPostgresRSVPRepo(db)
	guestbookRepo := repository.NewPostgresGuestbookRepo(db)

	// 3. セキュリティサービスの初期化
	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewContentSanitizer()

	// 4. 認証スタックの初期化
	tokens, err := auth.NewTokenManager(cfg.TokenSecret, cfg.TokenValidity)
	if err != nil {
		// 秘密鍵が短い場合は起動自体を失敗させる
		return fmt.Errorf("failed to initialize token manager: %w", err)
	}
	cookies := auth.NewCookieManager(cfg.CookieDomain, int(cfg.TokenValidity.Seconds()))

	providers := map[string]auth.OAuthProvider{
		"google": auth.NewGoogleOAuthProvider(auth.GoogleOAuthConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
		}),
	}
	if cfg.KakaoClientID != "" {
		providers["kakao"] = auth.NewKakaoOAuthProvider(auth.KakaoOAuthConfig{
			ClientID:     cfg.KakaoClientID,
			ClientSecret: cfg.KakaoClientSecret,
			RedirectURL:  cfg.KakaoRedirectURL,
		})
	}
	authService := auth.NewService(providers, userRepo, tokens)

	// 5. ドメインサービスの初期化
	noticeService := notice.NewService(noticeRepo, sanitizer)
	invitationService := invitation.NewService(
		invitationRepo, rsvpRepo, guestbookRepo, sanitizer, ssrfGuard,
	)
	previewFetcher := invitation.NewPreviewFetcher(ssrfGuard, cfg.PreviewTimeout, cfg.PreviewMaxSize)

	// 6. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 7. レート制限の初期化（configはreq/min単位、rate.Limitはreq/sec単位）
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
	rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	rateLimiterCfg.PublicWriteRate = rate.Limit(float64(cfg.RateLimitPublicWrite) / 60.0)
	rateLimiterCfg.PublicWriteBurst = cfg.RateLimitPublicWrite
	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)

	// 8. ハンドラーとルーターの構築
	deps := handler.RouterDeps{
		AuthHandler: handler.NewAuthHandler(authService, tokens, cookies, collector, handler.AuthHandlerConfig{
			BaseURL:      cfg.BaseURL,
			CookieSecure: cfg.CookieSecure,
		}),
		NoticeHandler:      handler.NewNoticeHandler(noticeService, collector),
		AdminNoticeHandler: handler.NewAdminNoticeHandler(noticeService),
		InvitationHandler:  handler.NewInvitationHandler(invitationService, previewFetcher, collector),
		RSVPHandler:        handler.NewRSVPHandler(invitationService, collector),
		GuestbookHandler:   handler.NewGuestbookHandler(invitationService, collector),
		HealthHandler:      handler.NewHealthHandler(db),

		AuthMiddleware: middleware.NewAuthMiddleware(tokens, cookies),
		RateLimiter:    rateLimiter,
		UserRepo:       userRepo,
		Logger:         slog.Default(),
		Metrics:        collector,
		AllowedOrigin:  cfg.CORSAllowedOrigin,
	}

	router := handler.NewRouter(deps)

	// 9. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// メトリクスはAPIとは別ポートで公開する（外部に晒さないため）
	metricsServer := &http.Server{
		Addr:    ":" + cfg.MetricsPort,
		Handler: metrics.SetupMetricsRoute(registry),
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("metrics server starting", slog.String("addr", metricsServer.Addr))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server listen error", slog.String("error", err.Error()))
		}
	}()

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := metricsServer.Shutdown(ctx); err != nil {
		slog.Error("metrics server shutdown failed", slog.String("error", err.Error()))
	}
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
