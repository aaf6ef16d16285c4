package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/wedding-letter/letter-api/internal/model"
	"github.com/wedding-letter/letter-api/internal/repository"
)

// Service は認証に関するビジネスロジックを提供する。
// セッション状態はサーバー側に持たず、署名付きトークンで完結する。
type Service struct {
	providers map[string]OAuthProvider
	userRepo  repository.UserRepository
	tokens    *TokenManager
}

// NewService はServiceを生成する。
// providersのキーはプロバイダー名（"google", "kakao"）。
func NewService(providers map[string]OAuthProvider, userRepo repository.UserRepository, tokens *TokenManager) *Service {
	return &Service{
		providers: providers,
		userRepo:  userRepo,
		tokens:    tokens,
	}
}

// GetLoginURL は指定プロバイダーのOAuth認証URLを生成する。
// 未登録のプロバイダー名の場合はエラーを返す。
func (s *Service) GetLoginURL(provider, state string) (string, error) {
	p, ok := s.providers[provider]
	if !ok {
		return "", fmt.Errorf("unknown oauth provider: %s", provider)
	}
	return p.GetLoginURL(state), nil
}

// HandleCallback はOAuthコールバックを処理し、セッショントークンを発行する。
// 未登録ユーザーの場合は(provider, provider_user_id)をキーにアカウントを
// 自動作成する。登録済みユーザーの場合はそのままログインする。
func (s *Service) HandleCallback(ctx context.Context, provider, code string) (string, error) {
	p, ok := s.providers[provider]
	if !ok {
		return "", fmt.Errorf("unknown oauth provider: %s", provider)
	}

	// 1. 認可コードをトークンに交換し、ユーザー情報を取得
	userInfo, err := p.ExchangeCode(ctx, code)
	if err != nil {
		return "", fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	// 2. (provider, provider_user_id)で既存ユーザーを検索
	user, err := s.userRepo.FindByProviderAndProviderUserID(ctx, userInfo.Provider, userInfo.ProviderUserID)
	if err != nil {
		return "", fmt.Errorf("failed to find user: %w", err)
	}

	if user == nil {
		// 3. 新規ユーザーの自動作成（初期ロールはUSER）
		now := time.Now()
		user = &model.User{
			ID:             uuid.New().String(),
			Email:          userInfo.Email,
			Name:           userInfo.Name,
			Provider:       userInfo.Provider,
			ProviderUserID: userInfo.ProviderUserID,
			Role:           model.RoleUser,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := s.userRepo.Create(ctx, user); err != nil {
			return "", fmt.Errorf("failed to create user: %w", err)
		}
		slog.Info("new user created",
			slog.String("user_id", user.ID),
			slog.String("provider", userInfo.Provider),
		)
	} else {
		slog.Info("existing user logged in",
			slog.String("user_id", user.ID),
			slog.String("provider", userInfo.Provider),
		)
	}

	// 4. セッショントークンを発行
	token, err := s.tokens.CreateToken(model.Identity{
		UserID:   user.ID,
		Name:     user.Name,
		Email:    user.Email,
		Provider: user.Provider,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create session token: %w", err)
	}

	return token, nil
}

// GetCurrentUser はトークン由来のアイデンティティから永続化済みアカウントを
// 取得する。ロールはトークンではなくDBの値を信頼する。
// ユーザーが削除済みの場合はnilを返す。
func (s *Service) GetCurrentUser(ctx context.Context, identity *model.Identity) (*model.User, error) {
	if identity == nil || identity.UserID == "" {
		return nil, fmt.Errorf("identity is required")
	}

	user, err := s.userRepo.FindByID(ctx, identity.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// GenerateState はOAuthのCSRF対策用ランダムstate値を生成する。
func GenerateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
