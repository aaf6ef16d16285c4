// Package notice はお知らせの公開・管理機能を提供する。
package notice

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/wedding-letter/letter-api/internal/model"
	"github.com/wedding-letter/letter-api/internal/repository"
	"github.com/wedding-letter/letter-api/internal/security"
)

const (
	// DefaultPageSize は一覧・検索のページサイズのデフォルト値。
	DefaultPageSize = 10
	// MaxPageSize はページサイズの上限。超過分は黙って切り詰める。
	MaxPageSize = 100
)

// Service はお知らせのサービス。
// 公開側の読み取りは常に可視性述語（PUBLISHED かつ掲載期間内）を通す。
// 期限切れはステータスを書き換えるのではなく、読み取り時に現在時刻で判定する。
type Service struct {
	noticeRepo repository.NoticeRepository
	sanitizer  security.ContentSanitizerService
	// now はテストから時刻を注入するためのフック。
	now func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(noticeRepo repository.NoticeRepository, sanitizer security.ContentSanitizerService) *Service {
	return &Service{
		noticeRepo: noticeRepo,
		sanitizer:  sanitizer,
		now:        time.Now,
	}
}

// Page はページネーション付きの一覧結果。
type Page struct {
	Notices    []model.Notice
	Page       int
	Size       int
	TotalCount int64
	IsLast     bool
}

// PublicList は公開中のお知らせ一覧をページネーション付きで返す。
// 掲載開始日時の降順で並び、非公開・期間外のお知らせは含まれない。
func (s *Service) PublicList(ctx context.Context, page, size int) (*Page, error) {
	page, size = normalizePaging(page, size)
	now := s.now()

	total, err := s.noticeRepo.CountVisible(ctx, now)
	if err != nil {
		slog.Error("failed to count visible notices", "error", err)
		return nil, model.NewInternalError()
	}

	offset := (page - 1) * size
	notices, err := s.noticeRepo.ListVisible(ctx, now, offset, size)
	if err != nil {
		slog.Error("failed to list visible notices", "error", err)
		return nil, model.NewInternalError()
	}

	return &Page{
		Notices:    notices,
		Page:       page,
		Size:       size,
		TotalCount: total,
		IsLast:     int64(offset+len(notices)) >= total,
	}, nil
}

// PublicGet は公開中のお知らせを1件返す。
// 存在しないIDと、存在するが非公開・期間外のIDは区別せず
// どちらもNOTICE_NOT_FOUNDを返す。
func (s *Service) PublicGet(ctx context.Context, id string) (*model.Notice, error) {
	notice, err := s.noticeRepo.FindVisibleByID(ctx, id, s.now())
	if err != nil {
		slog.Error("failed to find visible notice", "notice_id", id, "error", err)
		return nil, model.NewInternalError()
	}
	if notice == nil {
		return nil, model.NewNoticeNotFoundError(id)
	}
	return notice, nil
}

// Banners は公開中のバナーお知らせを全件返す。
func (s *Service) Banners(ctx context.Context) ([]model.Notice, error) {
	notices, err := s.noticeRepo.ListVisibleBanners(ctx, s.now())
	if err != nil {
		slog.Error("failed to list banner notices", "error", err)
		return nil, model.NewInternalError()
	}
	return notices, nil
}

// Search は管理者向けの条件付き検索を行う。
// キーワード・ステータス・バナーフラグは省略可能で、指定された条件のみAND結合される。
// 許可リストに無いソートフィールドは黙って無視される。
func (s *Service) Search(ctx context.Context, filter *model.NoticeSearchFilter) (*Page, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Size <= 0 {
		filter.Size = DefaultPageSize
	}
	if filter.Size > MaxPageSize {
		filter.Size = MaxPageSize
	}

	result, err := s.noticeRepo.Search(ctx, filter)
	if err != nil {
		slog.Error("failed to search notices", "error", err)
		return nil, model.NewInternalError()
	}

	offset := filter.Offset()
	return &Page{
		Notices:    result.Notices,
		Page:       filter.Page,
		Size:       filter.Size,
		TotalCount: result.TotalCount,
		IsLast:     int64(offset+len(result.Notices)) >= result.TotalCount,
	}, nil
}

// CreateInput はお知らせ作成の入力。
type CreateInput struct {
	Title    string
	Content  string
	Status   string
	IsBanner bool
	StartAt  time.Time
	EndAt    *time.Time
}

// Create は新規お知らせを作成する。
// 本文はXSS対策のため保存前にサニタイズする。
func (s *Service) Create(ctx context.Context, input *CreateInput) (*model.Notice, error) {
	if input.Title == "" {
		return nil, model.NewInvalidRequestError("タイトルは必須です。")
	}
	status, ok := model.ParseNoticeStatus(input.Status)
	if !ok {
		return nil, model.NewInvalidStatusError(input.Status)
	}
	if input.StartAt.IsZero() {
		return nil, model.NewInvalidRequestError("掲載開始日時は必須です。")
	}
	if input.EndAt != nil && input.EndAt.Before(input.StartAt) {
		return nil, model.NewInvalidRequestError("掲載終了日時は掲載開始日時より後でなければなりません。")
	}

	now := s.now()
	notice := &model.Notice{
		ID:        uuid.New().String(),
		Title:     input.Title,
		Content:   s.sanitizer.Sanitize(input.Content),
		Status:    status,
		IsBanner:  input.IsBanner,
		StartAt:   input.StartAt,
		EndAt:     input.EndAt,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.noticeRepo.Create(ctx, notice); err != nil {
		slog.Error("failed to create notice", "error", err)
		return nil, model.NewInternalError()
	}

	slog.Info("notice created", "notice_id", notice.ID, "status", notice.Status, "is_banner", notice.IsBanner)
	return notice, nil
}

// UpdateInput はお知らせ更新の入力。ステータスはUpdateStatusで個別に変更する。
type UpdateInput struct {
	Title    string
	Content  string
	IsBanner bool
	StartAt  time.Time
	EndAt    *time.Time
}

// Update は既存お知らせを上書き更新する。更新履歴は保持しない。
func (s *Service) Update(ctx context.Context, id string, input *UpdateInput) (*model.Notice, error) {
	if input.Title == "" {
		return nil, model.NewInvalidRequestError("タイトルは必須です。")
	}
	if input.StartAt.IsZero() {
		return nil, model.NewInvalidRequestError("掲載開始日時は必須です。")
	}
	if input.EndAt != nil && input.EndAt.Before(input.StartAt) {
		return nil, model.NewInvalidRequestError("掲載終了日時は掲載開始日時より後でなければなりません。")
	}

	notice, err := s.noticeRepo.FindByID(ctx, id)
	if err != nil {
		slog.Error("failed to find notice", "notice_id", id, "error", err)
		return nil, model.NewInternalError()
	}
	if notice == nil {
		return nil, model.NewNoticeNotFoundError(id)
	}

	notice.Title = input.Title
	notice.Content = s.sanitizer.Sanitize(input.Content)
	notice.IsBanner = input.IsBanner
	notice.StartAt = input.StartAt
	notice.EndAt = input.EndAt
	notice.UpdatedAt = s.now()

	if err := s.noticeRepo.Update(ctx, notice); err != nil {
		slog.Error("failed to update notice", "notice_id", id, "error", err)
		return nil, model.NewInternalError()
	}

	slog.Info("notice updated", "notice_id", id)
	return notice, nil
}

// UpdateStatus はお知らせのステータスのみを変更する。
// 未知のステータス値はINVALID_STATUSとして拒否する。
func (s *Service) UpdateStatus(ctx context.Context, id, statusStr string) (*model.Notice, error) {
	status, ok := model.ParseNoticeStatus(statusStr)
	if !ok {
		return nil, model.NewInvalidStatusError(statusStr)
	}

	notice, err := s.noticeRepo.FindByID(ctx, id)
	if err != nil {
		slog.Error("failed to find notice", "notice_id", id, "error", err)
		return nil, model.NewInternalError()
	}
	if notice == nil {
		return nil, model.NewNoticeNotFoundError(id)
	}

	if err := s.noticeRepo.UpdateStatus(ctx, id, status); err != nil {
		slog.Error("failed to update notice status", "notice_id", id, "error", err)
		return nil, model.NewInternalError()
	}

	notice.Status = status
	slog.Info("notice status updated", "notice_id", id, "status", status)
	return notice, nil
}

// normalizePaging はページ番号とサイズにデフォルト値と上限を適用する。
func normalizePaging(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size
}
