// Package invitation は招待状の作成・公開・出欠・芳名帳の機能を提供する。
package invitation

import (
	"context"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/wedding-letter/letter-api/internal/model"
	"github.com/wedding-letter/letter-api/internal/repository"
	"github.com/wedding-letter/letter-api/internal/security"
)

const (
	// MaxHeadcount は1件の出欠回答で申告できる人数の上限。
	MaxHeadcount = 10
	// MaxGuestbookBodyLength は芳名帳本文の最大文字数（サニタイズ前）。
	MaxGuestbookBodyLength = 1000
)

// slugPattern は公開URLに使用できるスラッグの形式。
// 小文字英数とハイフンのみ、3〜64文字。
var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,62}[a-z0-9]$`)

// Service は招待状のサービス。
// 所有者向けの操作は必ず所有者チェックを通し、公開側の操作は
// is_published=trueの招待状に対してのみ許可する。
type Service struct {
	invitationRepo repository.InvitationRepository
	rsvpRepo       repository.RSVPRepository
	guestbookRepo  repository.GuestbookRepository
	sanitizer      security.ContentSanitizerService
	ssrfGuard      security.SSRFGuardService
	now            func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	invitationRepo repository.InvitationRepository,
	rsvpRepo repository.RSVPRepository,
	guestbookRepo repository.GuestbookRepository,
	sanitizer security.ContentSanitizerService,
	ssrfGuard security.SSRFGuardService,
) *Service {
	return &Service{
		invitationRepo: invitationRepo,
		rsvpRepo:       rsvpRepo,
		guestbookRepo:  guestbookRepo,
		sanitizer:      sanitizer,
		ssrfGuard:      ssrfGuard,
		now:            time.Now,
	}
}

// Input は招待状の作成・更新の入力。
type Input struct {
	Slug         string // 作成時のみ使用される。更新では無視。
	Title        string
	GroomName    string
	BrideName    string
	CeremonyAt   time.Time
	VenueName    string
	VenueAddress string
	VenueURL     string
	Message      string
	IsPublished  bool
}

// validate は作成・更新共通の入力検証を行う。
func (s *Service) validate(input *Input) error {
	if input.Title == "" {
		return model.NewInvalidRequestError("タイトルは必須です。")
	}
	if input.GroomName == "" || input.BrideName == "" {
		return model.NewInvalidRequestError("新郎名と新婦名は必須です。")
	}
	if input.CeremonyAt.IsZero() {
		return model.NewInvalidRequestError("挙式日時は必須です。")
	}
	if input.VenueURL != "" {
		if err := s.ssrfGuard.ValidateURL(input.VenueURL); err != nil {
			return model.NewInvalidRequestError("会場URLの形式が正しくありません。")
		}
	}
	return nil
}

// Create は新規招待状を作成する。
// スラッグは全招待状を通じて一意であり、重複時はINVALID_REQUESTを返す。
func (s *Service) Create(ctx context.Context, ownerID string, input *Input) (*model.Invitation, error) {
	if !slugPattern.MatchString(input.Slug) {
		return nil, model.NewInvalidRequestError("スラッグは3〜64文字の小文字英数とハイフンで指定してください。")
	}
	if err := s.validate(input); err != nil {
		return nil, err
	}

	existing, err := s.invitationRepo.FindBySlug(ctx, input.Slug)
	if err != nil {
		slog.Error("failed to check slug uniqueness", "slug", input.Slug, "error", err)
		return nil, model.NewInternalError()
	}
	if existing != nil {
		return nil, model.NewInvalidRequestError("このスラッグはすでに使用されています。")
	}

	now := s.now()
	inv := &model.Invitation{
		ID:           uuid.New().String(),
		OwnerID:      ownerID,
		Slug:         input.Slug,
		Title:        input.Title,
		GroomName:    input.GroomName,
		BrideName:    input.BrideName,
		CeremonyAt:   input.CeremonyAt,
		VenueName:    input.VenueName,
		VenueAddress: input.VenueAddress,
		VenueURL:     input.VenueURL,
		Message:      s.sanitizer.Sanitize(input.Message),
		IsPublished:  input.IsPublished,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.invitationRepo.Create(ctx, inv); err != nil {
		slog.Error("failed to create invitation", "error", err)
		return nil, model.NewInternalError()
	}

	slog.Info("invitation created", "invitation_id", inv.ID, "owner_id", ownerID, "slug", inv.Slug)
	return inv, nil
}

// ListMine は所有者の招待状一覧を返す。
func (s *Service) ListMine(ctx context.Context, ownerID string) ([]model.Invitation, error) {
	invitations, err := s.invitationRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		slog.Error("failed to list invitations", "owner_id", ownerID, "error", err)
		return nil, model.NewInternalError()
	}
	return invitations, nil
}

// GetMine は所有者の招待状を1件返す。
// 他人の招待状に対してはFORBIDDENを返す。
func (s *Service) GetMine(ctx context.Context, ownerID, id string) (*model.Invitation, error) {
	return s.findOwned(ctx, ownerID, id)
}

// Update は所有者の招待状を上書き更新する。スラッグは変更できない。
func (s *Service) Update(ctx context.Context, ownerID, id string, input *Input) (*model.Invitation, error) {
	if err := s.validate(input); err != nil {
		return nil, err
	}

	inv, err := s.findOwned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	inv.Title = input.Title
	inv.GroomName = input.GroomName
	inv.BrideName = input.BrideName
	inv.CeremonyAt = input.CeremonyAt
	inv.VenueName = input.VenueName
	inv.VenueAddress = input.VenueAddress
	inv.VenueURL = input.VenueURL
	inv.Message = s.sanitizer.Sanitize(input.Message)
	inv.IsPublished = input.IsPublished
	inv.UpdatedAt = s.now()

	if err := s.invitationRepo.Update(ctx, inv); err != nil {
		slog.Error("failed to update invitation", "invitation_id", id, "error", err)
		return nil, model.NewInternalError()
	}

	slog.Info("invitation updated", "invitation_id", id)
	return inv, nil
}

// Delete は所有者の招待状を関連レコードごと削除する。
func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	if _, err := s.findOwned(ctx, ownerID, id); err != nil {
		return err
	}

	if err := s.invitationRepo.DeleteByID(ctx, id); err != nil {
		slog.Error("failed to delete invitation", "invitation_id", id, "error", err)
		return model.NewInternalError()
	}

	slog.Info("invitation deleted", "invitation_id", id)
	return nil
}

// PublicBySlug は公開中の招待状をスラッグで返す。
// 存在しないスラッグと非公開の招待状は区別せず、
// どちらもINVITATION_NOT_FOUNDを返す。
func (s *Service) PublicBySlug(ctx context.Context, slug string) (*model.Invitation, error) {
	inv, err := s.invitationRepo.FindBySlug(ctx, slug)
	if err != nil {
		slog.Error("failed to find invitation by slug", "slug", slug, "error", err)
		return nil, model.NewInternalError()
	}
	if inv == nil || !inv.IsPublished {
		return nil, model.NewInvitationNotFoundError(slug)
	}
	return inv, nil
}

// RSVPInput は出欠回答の入力。
type RSVPInput struct {
	GuestName string
	Attending bool
	Headcount int
	Message   string
}

// SubmitRSVP は公開中の招待状に出欠回答を登録する。
// ゲストは未ログインのため、招待状の公開状態だけで受け付けを判定する。
func (s *Service) SubmitRSVP(ctx context.Context, slug string, input *RSVPInput) (*model.RSVP, error) {
	if input.GuestName == "" {
		return nil, model.NewInvalidRequestError("お名前は必須です。")
	}
	if input.Headcount < 1 || input.Headcount > MaxHeadcount {
		return nil, model.NewInvalidRequestError("人数は1〜10名で指定してください。")
	}

	inv, err := s.PublicBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	rsvp := &model.RSVP{
		ID:           uuid.New().String(),
		InvitationID: inv.ID,
		GuestName:    input.GuestName,
		Attending:    input.Attending,
		Headcount:    input.Headcount,
		Message:      s.sanitizer.Sanitize(input.Message),
		CreatedAt:    s.now(),
	}

	if err := s.rsvpRepo.Create(ctx, rsvp); err != nil {
		slog.Error("failed to create rsvp", "invitation_id", inv.ID, "error", err)
		return nil, model.NewInternalError()
	}

	slog.Info("rsvp submitted", "invitation_id", inv.ID, "attending", rsvp.Attending, "headcount", rsvp.Headcount)
	return rsvp, nil
}

// ListRSVPs は所有者向けに出欠回答一覧を返す。
func (s *Service) ListRSVPs(ctx context.Context, ownerID, invitationID string) ([]model.RSVP, error) {
	if _, err := s.findOwned(ctx, ownerID, invitationID); err != nil {
		return nil, err
	}

	rsvps, err := s.rsvpRepo.ListByInvitation(ctx, invitationID)
	if err != nil {
		slog.Error("failed to list rsvps", "invitation_id", invitationID, "error", err)
		return nil, model.NewInternalError()
	}
	return rsvps, nil
}

// GuestbookInput は芳名帳書き込みの入力。
type GuestbookInput struct {
	AuthorName string
	Body       string
}

// AddGuestbookEntry は公開中の招待状の芳名帳に書き込む。
// 本文はXSS対策のため保存前にサニタイズする。
func (s *Service) AddGuestbookEntry(ctx context.Context, slug string, input *GuestbookInput) (*model.GuestbookEntry, error) {
	if input.AuthorName == "" {
		return nil, model.NewInvalidRequestError("お名前は必須です。")
	}
	if input.Body == "" {
		return nil, model.NewInvalidRequestError("メッセージは必須です。")
	}
	if len([]rune(input.Body)) > MaxGuestbookBodyLength {
		return nil, model.NewInvalidRequestError("メッセージが長すぎます。")
	}

	inv, err := s.PublicBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	entry := &model.GuestbookEntry{
		ID:           uuid.New().String(),
		InvitationID: inv.ID,
		AuthorName:   input.AuthorName,
		Body:         s.sanitizer.Sanitize(input.Body),
		CreatedAt:    s.now(),
	}

	if err := s.guestbookRepo.Create(ctx, entry); err != nil {
		slog.Error("failed to create guestbook entry", "invitation_id", inv.ID, "error", err)
		return nil, model.NewInternalError()
	}

	slog.Info("guestbook entry added", "invitation_id", inv.ID, "entry_id", entry.ID)
	return entry, nil
}

// ListGuestbook は公開中の招待状の芳名帳一覧を返す。
func (s *Service) ListGuestbook(ctx context.Context, slug string) ([]model.GuestbookEntry, error) {
	inv, err := s.PublicBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	entries, err := s.guestbookRepo.ListByInvitation(ctx, inv.ID)
	if err != nil {
		slog.Error("failed to list guestbook entries", "invitation_id", inv.ID, "error", err)
		return nil, model.NewInternalError()
	}
	return entries, nil
}

// DeleteGuestbookEntry は所有者が芳名帳の書き込みを削除する。
// 書き込みが自分の招待状に属していない場合はFORBIDDENを返す。
func (s *Service) DeleteGuestbookEntry(ctx context.Context, ownerID, invitationID, entryID string) error {
	if _, err := s.findOwned(ctx, ownerID, invitationID); err != nil {
		return err
	}

	entry, err := s.guestbookRepo.FindByID(ctx, entryID)
	if err != nil {
		slog.Error("failed to find guestbook entry", "entry_id", entryID, "error", err)
		return model.NewInternalError()
	}
	if entry == nil {
		return model.NewGuestbookEntryNotFoundError(entryID)
	}
	if entry.InvitationID != invitationID {
		return model.NewForbiddenError()
	}

	if err := s.guestbookRepo.DeleteByID(ctx, entryID); err != nil {
		slog.Error("failed to delete guestbook entry", "entry_id", entryID, "error", err)
		return model.NewInternalError()
	}

	slog.Info("guestbook entry deleted", "invitation_id", invitationID, "entry_id", entryID)
	return nil
}

// findOwned は招待状を取得し、所有者チェックを行う。
// 存在しない場合はINVITATION_NOT_FOUND、他人の招待状はFORBIDDENを返す。
func (s *Service) findOwned(ctx context.Context, ownerID, id string) (*model.Invitation, error) {
	inv, err := s.invitationRepo.FindByID(ctx, id)
	if err != nil {
		slog.Error("failed to find invitation", "invitation_id", id, "error", err)
		return nil, model.NewInternalError()
	}
	if inv == nil {
		return nil, model.NewInvitationNotFoundError(id)
	}
	if inv.OwnerID != ownerID {
		return nil, model.NewForbiddenError()
	}
	return inv, nil
}
