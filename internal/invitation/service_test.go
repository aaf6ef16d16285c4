package invitation

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/wedding-letter/letter-api/internal/model"
)

// mockInvitationRepo はテスト用のInvitationRepositoryモック。
type mockInvitationRepo struct {
	findByIDFunc    func(ctx context.Context, id string) (*model.Invitation, error)
	findBySlugFunc  func(ctx context.Context, slug string) (*model.Invitation, error)
	listByOwnerFunc func(ctx context.Context, ownerID string) ([]model.Invitation, error)
	createFunc      func(ctx context.Context, inv *model.Invitation) error
	updateFunc      func(ctx context.Context, inv *model.Invitation) error
	deleteByIDFunc  func(ctx context.Context, id string) error
}

func (m *mockInvitationRepo) FindByID(ctx context.Context, id string) (*model.Invitation, error) {
	return m.findByIDFunc(ctx, id)
}

func (m *mockInvitationRepo) FindBySlug(ctx context.Context, slug string) (*model.Invitation, error) {
	return m.findBySlugFunc(ctx, slug)
}

func (m *mockInvitationRepo) ListByOwner(ctx context.Context, ownerID string) ([]model.Invitation, error) {
	return m.listByOwnerFunc(ctx, ownerID)
}

func (m *mockInvitationRepo) Create(ctx context.Context, inv *model.Invitation) error {
	return m.createFunc(ctx, inv)
}

func (m *mockInvitationRepo) Update(ctx context.Context, inv *model.Invitation) error {
	return m.updateFunc(ctx, inv)
}

func (m *mockInvitationRepo) DeleteByID(ctx context.Context, id string) error {
	return m.deleteByIDFunc(ctx, id)
}

// mockRSVPRepo はテスト用のRSVPRepositoryモック。
type mockRSVPRepo struct {
	createFunc           func(ctx context.Context, rsvp *model.RSVP) error
	listByInvitationFunc func(ctx context.Context, invitationID string) ([]model.RSVP, error)
}

func (m *mockRSVPRepo) Create(ctx context.Context, rsvp *model.RSVP) error {
	return m.createFunc(ctx, rsvp)
}

func (m *mockRSVPRepo) ListByInvitation(ctx context.Context, invitationID string) ([]model.RSVP, error) {
	return m.listByInvitationFunc(ctx, invitationID)
}

// mockGuestbookRepo はテスト用のGuestbookRepositoryモック。
type mockGuestbookRepo struct {
	createFunc           func(ctx context.Context, entry *model.GuestbookEntry) error
	listByInvitationFunc func(ctx context.Context, invitationID string) ([]model.GuestbookEntry, error)
	findByIDFunc         func(ctx context.Context, id string) (*model.GuestbookEntry, error)
	deleteByIDFunc       func(ctx context.Context, id string) error
}

func (m *mockGuestbookRepo) Create(ctx context.Context, entry *model.GuestbookEntry) error {
	return m.createFunc(ctx, entry)
}

func (m *mockGuestbookRepo) ListByInvitation(ctx context.Context, invitationID string) ([]model.GuestbookEntry, error) {
	return m.listByInvitationFunc(ctx, invitationID)
}

func (m *mockGuestbookRepo) FindByID(ctx context.Context, id string) (*model.GuestbookEntry, error) {
	return m.findByIDFunc(ctx, id)
}

func (m *mockGuestbookRepo) DeleteByID(ctx context.Context, id string) error {
	return m.deleteByIDFunc(ctx, id)
}

// passthroughSanitizer は呼び出しを記録するテスト用サニタイザ。
type passthroughSanitizer struct {
	calls []string
}

func (s *passthroughSanitizer) Sanitize(rawHTML string) string {
	s.calls = append(s.calls, rawHTML)
	return "[clean]" + rawHTML
}

// validateOnlyGuard はURL検証を常に通すテスト用SSRFガード。
type validateOnlyGuard struct{}

func (g *validateOnlyGuard) NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client {
	return http.DefaultClient
}

func (g *validateOnlyGuard) ValidateURL(rawURL string) error {
	return nil
}

var fixedNow = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func newTestService(invRepo *mockInvitationRepo, rsvpRepo *mockRSVPRepo, gbRepo *mockGuestbookRepo, sanitizer *passthroughSanitizer) *Service {
	svc := NewService(invRepo, rsvpRepo, gbRepo, sanitizer, &validateOnlyGuard{})
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func validInput() *Input {
	return &Input{
		Slug:        "taro-hanako-2026",
		Title:       "太郎と花子の結婚式",
		GroomName:   "太郎",
		BrideName:   "花子",
		CeremonyAt:  time.Date(2026, 10, 10, 11, 0, 0, 0, time.UTC),
		VenueName:   "グランドホール東京",
		IsPublished: false,
	}
}

// TestCreate_Success は招待状作成の成功経路を検証する。
func TestCreate_Success(t *testing.T) {
	var saved *model.Invitation
	invRepo := &mockInvitationRepo{
		findBySlugFunc: func(ctx context.Context, slug string) (*model.Invitation, error) {
			return nil, nil
		},
		createFunc: func(ctx context.Context, inv *model.Invitation) error {
			saved = inv
			return nil
		},
	}

	svc := newTestService(invRepo, &mockRSVPRepo{}, &mockGuestbookRepo{}, &passthroughSanitizer{})
	input := validInput()
	input.Message = "<p>ぜひお越しください</p>"

	inv, err := svc.Create(context.Background(), "owner-1", input)
	if err != nil {
		t.Fatalf("Create() returned error: %v", err)
	}

	if inv.ID == "" {
		t.Error("expected generated invitation ID")
	}
	if saved.OwnerID != "owner-1" {
		t.Errorf("expected owner owner-1, got %s", saved.OwnerID)
	}
	if !strings.HasPrefix(saved.Message, "[clean]") {
		t.Errorf("expected message to be sanitized, got %q", saved.Message)
	}
	if !saved.CreatedAt.Equal(fixedNow) {
		t.Errorf("expected CreatedAt %v, got %v", fixedNow, saved.CreatedAt)
	}
}

// TestCreate_InvalidSlug は不正なスラッグの拒否を検証する。
func TestCreate_InvalidSlug(t *testing.T) {
	svc := newTestService(&mockInvitationRepo{}, &mockRSVPRepo{}, &mockGuestbookRepo{}, &passthroughSanitizer{})

	badSlugs := []string{"", "ab", "UPPER-CASE", "日本語スラッグ", "-leading", "trailing-", "has space"}
	for _, slug := range badSlugs {
		input := validInput()
		input.Slug = slug
		_, err := svc.Create(context.Background(), "owner-1", input)

		apiErr, ok := err.(*model.APIError)
		if !ok {
			t.Fatalf("slug %q: expected *model.APIError, got %T", slug, err)
		}
		if apiErr.Code != model.ErrCodeInvalidRequest {
			t.Errorf("slug %q: expected code %s, got %s", slug, model.ErrCodeInvalidRequest, apiErr.Code)
		}
	}
}

// TestCreate_DuplicateSlug はスラッグ重複の拒否を検証する。
func TestCreate_DuplicateSlug(t *testing.T) {
	invRepo := &mockInvitationRepo{
		findBySlugFunc: func(ctx context.Context, slug string) (*model.Invitation, error) {
			return &model.Invitation{ID: "existing", Slug: slug}, nil
		},
	}

	svc := newTestService(invRepo, &mockRSVPRepo{}, &mockGuestbookRepo{}, &passthroughSanitizer{})
	_, err := svc.Create(context.Background(), "owner-1", validInput())

	apiErr, ok := err.(*model.APIError)
	if !ok {
		t.Fatalf("expected *model.APIError, got %T", err)
	}
	if apiErr.Code != model.ErrCodeInvalidRequest {
		t.Errorf("expected code %s, got %s", model.ErrCodeInvalidRequest, apiErr.Code)
	}
}

// TestGetMine_Forbidden は他人の招待状へのアクセス拒否を検証する。
func TestGetMine_Forbidden(t *testing.T) {
	invRepo := &mockInvitationRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Invitation, error) {
			return &model.Invitation{ID: id, OwnerID: "someone-else"}, nil
		},
	}

	svc := newTestService(invRepo, &mockRSVPRepo{}, &mockGuestbookRepo{}, &passthroughSanitizer{})
	_, err := svc.GetMine(context.Background(), "owner-1", "inv-1")

	apiErr, ok := err.(*model.APIError)
	if !ok {
		t.Fatalf("expected *model.APIError, got %T", err)
	}
	if apiErr.Code != model.ErrCodeForbidden {
		t.Errorf("expected code %s, got %s", model.ErrCodeForbidden, apiErr.Code)
	}
}

// TestPublicBySlug_Unpublished は非公開招待状が存在しない扱いになることを検証する。
func TestPublicBySlug_Unpublished(t *testing.T) {
	invRepo := &mockInvitationRepo{
		findBySlugFunc: func(ctx context.Context, slug string) (*model.Invitation, error) {
			return &model.Invitation{ID: "inv-1", Slug: slug, IsPublished: false}, nil
		},
	}

	svc := newTestService(invRepo, &mockRSVPRepo{}, &mockGuestbookRepo{}, &passthroughSanitizer{})
	_, err := svc.PublicBySlug(context.Background(), "taro-hanako-2026")

	apiErr, ok := err.(*model.APIError)
	if !ok {
		t.Fatalf("expected *model.APIError, got %T", err)
	}
	// 非公開と未存在は同じエラーコードで区別させない
	if apiErr.Code != model.ErrCodeInvitationNotFound {
		t.Errorf("expected code %s, got %s", model.ErrCodeInvitationNotFound, apiErr.Code)
	}
}

// TestSubmitRSVP_Success は出欠回答の登録を検証する。
func TestSubmitRSVP_Success(t *testing.T) {
	var saved *model.RSVP
	invRepo := &mockInvitationRepo{
		findBySlugFunc: func(ctx context.Context, slug string) (*model.Invitation, error) {
			return &model.Invitation{ID: "inv-1", Slug: slug, IsPublished: true}, nil
		},
	}
	rsvpRepo := &mockRSVPRepo{
		createFunc: func(ctx context.Context, rsvp *model.RSVP) error {
			saved = rsvp
			return nil
		},
	}

	svc := newTestService(invRepo, rsvpRepo, &mockGuestbookRepo{}, &passthroughSanitizer{})
	rsvp, err := svc.SubmitRSVP(context.Background(), "taro-hanako-2026", &RSVPInput{
		GuestName: "山田一郎",
		Attending: true,
		Headcount: 2,
		Message:   "楽しみにしています",
	})
	if err != nil {
		t.Fatalf("SubmitRSVP() returned error: %v", err)
	}

	if saved.InvitationID != "inv-1" {
		t.Errorf("expected invitation inv-1, got %s", saved.InvitationID)
	}
	if rsvp.Headcount != 2 || !rsvp.Attending {
		t.Errorf("unexpected rsvp: %+v", rsvp)
	}
}

// TestSubmitRSVP_InvalidHeadcount は人数の範囲チェックを検証する。
func TestSubmitRSVP_InvalidHeadcount(t *testing.T) {
	svc := newTestService(&mockInvitationRepo{}, &mockRSVPRepo{}, &mockGuestbookRepo{}, &passthroughSanitizer{})

	for _, headcount := range []int{0, -1, MaxHeadcount + 1} {
		_, err := svc.SubmitRSVP(context.Background(), "slug", &RSVPInput{
			GuestName: "山田一郎",
			Headcount: headcount,
		})
		apiErr, ok := err.(*model.APIError)
		if !ok {
			t.Fatalf("headcount %d: expected *model.APIError, got %T", headcount, err)
		}
		if apiErr.Code != model.ErrCodeInvalidRequest {
			t.Errorf("headcount %d: expected code %s, got %s", headcount, model.ErrCodeInvalidRequest, apiErr.Code)
		}
	}
}

// TestAddGuestbookEntry_Sanitizes は芳名帳本文のサニタイズを検証する。
func TestAddGuestbookEntry_Sanitizes(t *testing.T) {
	var saved *model.GuestbookEntry
	invRepo := &mockInvitationRepo{
		findBySlugFunc: func(ctx context.Context, slug string) (*model.Invitation, error) {
			return &model.Invitation{ID: "inv-1", Slug: slug, IsPublished: true}, nil
		},
	}
	gbRepo := &mockGuestbookRepo{
		createFunc: func(ctx context.Context, entry *model.GuestbookEntry) error {
			saved = entry
			return nil
		},
	}
	sanitizer := &passthroughSanitizer{}

	svc := newTestService(invRepo, &mockRSVPRepo{}, gbRepo, sanitizer)
	_, err := svc.AddGuestbookEntry(context.Background(), "taro-hanako-2026", &GuestbookInput{
		AuthorName: "山田一郎",
		Body:       "<p>おめでとう</p>",
	})
	if err != nil {
		t.Fatalf("AddGuestbookEntry() returned error: %v", err)
	}

	if len(sanitizer.calls) != 1 {
		t.Fatalf("expected 1 sanitizer call, got %d", len(sanitizer.calls))
	}
	if saved.Body != "[clean]<p>おめでとう</p>" {
		t.Errorf("expected sanitized body to be saved, got %q", saved.Body)
	}
}

// TestDeleteGuestbookEntry_WrongInvitation は他の招待状のエントリ削除が拒否されることを検証する。
func TestDeleteGuestbookEntry_WrongInvitation(t *testing.T) {
	invRepo := &mockInvitationRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Invitation, error) {
			return &model.Invitation{ID: id, OwnerID: "owner-1"}, nil
		},
	}
	gbRepo := &mockGuestbookRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.GuestbookEntry, error) {
			return &model.GuestbookEntry{ID: id, InvitationID: "other-invitation"}, nil
		},
	}

	svc := newTestService(invRepo, &mockRSVPRepo{}, gbRepo, &passthroughSanitizer{})
	err := svc.DeleteGuestbookEntry(context.Background(), "owner-1", "inv-1", "entry-1")

	apiErr, ok := err.(*model.APIError)
	if !ok {
		t.Fatalf("expected *model.APIError, got %T", err)
	}
	if apiErr.Code != model.ErrCodeForbidden {
		t.Errorf("expected code %s, got %s", model.ErrCodeForbidden, apiErr.Code)
	}
}

// TestDeleteGuestbookEntry_NotFound は存在しないエントリの削除エラーを検証する。
func TestDeleteGuestbookEntry_NotFound(t *testing.T) {
	invRepo := &mockInvitationRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Invitation, error) {
			return &model.Invitation{ID: id, OwnerID: "owner-1"}, nil
		},
	}
	gbRepo := &mockGuestbookRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.GuestbookEntry, error) {
			return nil, nil
		},
	}

	svc := newTestService(invRepo, &mockRSVPRepo{}, gbRepo, &passthroughSanitizer{})
	err := svc.DeleteGuestbookEntry(context.Background(), "owner-1", "inv-1", "missing")

	apiErr, ok := err.(*model.APIError)
	if !ok {
		t.Fatalf("expected *model.APIError, got %T", err)
	}
	if apiErr.Code != model.ErrCodeGuestbookEntryNotFound {
		t.Errorf("expected code %s, got %s", model.ErrCodeGuestbookEntryNotFound, apiErr.Code)
	}
}
