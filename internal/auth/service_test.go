package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wedding-letter/letter-api/internal/model"
)

// mockUserRepo はrepository.UserRepositoryのテスト用実装。
type mockUserRepo struct {
	findByIDFunc       func(ctx context.Context, id string) (*model.User, error)
	findByProviderFunc func(ctx context.Context, provider, providerUserID string) (*model.User, error)
	createFunc         func(ctx context.Context, user *model.User) error
	updateRoleFunc     func(ctx context.Context, id string, role model.Role) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return m.findByIDFunc(ctx, id)
}

func (m *mockUserRepo) FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.User, error) {
	return m.findByProviderFunc(ctx, provider, providerUserID)
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	return m.createFunc(ctx, user)
}

func (m *mockUserRepo) UpdateRole(ctx context.Context, id string, role model.Role) error {
	return m.updateRoleFunc(ctx, id, role)
}

// fakeProvider はOAuthProviderのテスト用実装。
type fakeProvider struct {
	loginURL string
	userInfo *OAuthUserInfo
	err      error
}

func (f *fakeProvider) GetLoginURL(state string) string {
	return f.loginURL + "?state=" + state
}

func (f *fakeProvider) ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.userInfo, nil
}

func newTestAuthService(t *testing.T, repo *mockUserRepo, providers map[string]OAuthProvider) *Service {
	t.Helper()
	tokens, err := NewTokenManager(testSecret, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("failed to create token manager: %v", err)
	}
	return NewService(providers, repo, tokens)
}

// TestService_GetLoginURL は登録済みプロバイダーのURL生成を検証する。
func TestService_GetLoginURL(t *testing.T) {
	s := newTestAuthService(t, &mockUserRepo{}, map[string]OAuthProvider{
		"google": &fakeProvider{loginURL: "https://accounts.google.com/auth"},
	})

	url, err := s.GetLoginURL("google", "state-123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != "https://accounts.google.com/auth?state=state-123" {
		t.Errorf("unexpected url: %q", url)
	}
}

// TestService_GetLoginURL_UnknownProvider は未登録プロバイダーのエラーを検証する。
func TestService_GetLoginURL_UnknownProvider(t *testing.T) {
	s := newTestAuthService(t, &mockUserRepo{}, map[string]OAuthProvider{})

	if _, err := s.GetLoginURL("github", "state"); err == nil {
		t.Fatal("expected error for unknown provider, got nil")
	}
}

// TestService_HandleCallback_NewUser は初回ログイン時のアカウント自動作成を検証する。
func TestService_HandleCallback_NewUser(t *testing.T) {
	var created *model.User
	repo := &mockUserRepo{
		findByProviderFunc: func(ctx context.Context, provider, providerUserID string) (*model.User, error) {
			return nil, nil
		},
		createFunc: func(ctx context.Context, user *model.User) error {
			created = user
			return nil
		},
	}
	providers := map[string]OAuthProvider{
		"google": &fakeProvider{userInfo: &OAuthUserInfo{
			ProviderUserID: "g-12345",
			Email:          "taro@example.com",
			Name:           "山田太郎",
			Provider:       "google",
		}},
	}
	s := newTestAuthService(t, repo, providers)

	token, err := s.HandleCallback(context.Background(), "google", "auth-code")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token == "" {
		t.Fatal("expected a session token")
	}

	if created == nil {
		t.Fatal("new user should be created")
	}
	if created.Role != model.RoleUser {
		t.Errorf("new user role = %q, want %q", created.Role, model.RoleUser)
	}
	if created.ProviderUserID != "g-12345" {
		t.Errorf("providerUserID = %q", created.ProviderUserID)
	}

	// 発行されたトークンから同じユーザーが復元できること
	identity, err := s.tokens.ParseIdentity(token)
	if err != nil {
		t.Fatalf("issued token should be parseable: %v", err)
	}
	if identity.UserID != created.ID {
		t.Errorf("token subject = %q, want %q", identity.UserID, created.ID)
	}
}

// TestService_HandleCallback_ExistingUser は登録済みユーザーの再ログインを検証する。
func TestService_HandleCallback_ExistingUser(t *testing.T) {
	createCalled := false
	repo := &mockUserRepo{
		findByProviderFunc: func(ctx context.Context, provider, providerUserID string) (*model.User, error) {
			return &model.User{ID: "existing-1", Name: "既存ユーザー", Provider: "google"}, nil
		},
		createFunc: func(ctx context.Context, user *model.User) error {
			createCalled = true
			return nil
		},
	}
	providers := map[string]OAuthProvider{
		"google": &fakeProvider{userInfo: &OAuthUserInfo{ProviderUserID: "g-1", Provider: "google"}},
	}
	s := newTestAuthService(t, repo, providers)

	token, err := s.HandleCallback(context.Background(), "google", "auth-code")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if createCalled {
		t.Error("existing user should not be re-created")
	}

	identity, err := s.tokens.ParseIdentity(token)
	if err != nil {
		t.Fatalf("issued token should be parseable: %v", err)
	}
	if identity.UserID != "existing-1" {
		t.Errorf("token subject = %q, want existing-1", identity.UserID)
	}
}

// TestService_HandleCallback_ExchangeFailure はコード交換失敗時のエラー伝播を検証する。
func TestService_HandleCallback_ExchangeFailure(t *testing.T) {
	providers := map[string]OAuthProvider{
		"google": &fakeProvider{err: errors.New("invalid code")},
	}
	s := newTestAuthService(t, &mockUserRepo{}, providers)

	if _, err := s.HandleCallback(context.Background(), "google", "bad-code"); err == nil {
		t.Fatal("expected error for failed code exchange, got nil")
	}
}

// TestService_GetCurrentUser はDBからのユーザー解決を検証する。
func TestService_GetCurrentUser(t *testing.T) {
	repo := &mockUserRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Role: model.RoleAdmin}, nil
		},
	}
	s := newTestAuthService(t, repo, nil)

	user, err := s.GetCurrentUser(context.Background(), &model.Identity{UserID: "user-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// ロールはトークンではなくDBの値で決まる
	if !user.IsAdmin() {
		t.Error("role should come from the database")
	}
}

// TestService_GetCurrentUser_NilIdentity はアイデンティティ無しのエラーを検証する。
func TestService_GetCurrentUser_NilIdentity(t *testing.T) {
	s := newTestAuthService(t, &mockUserRepo{}, nil)

	if _, err := s.GetCurrentUser(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil identity, got nil")
	}
}

// TestGenerateState はstate値の生成とユニーク性を検証する。
func TestGenerateState(t *testing.T) {
	a, err := GenerateState()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := GenerateState()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(a) != 32 {
		t.Errorf("state length = %d, want 32 hex chars", len(a))
	}
	if a == b {
		t.Error("two generated states should not collide")
	}
}
