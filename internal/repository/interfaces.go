// Package repository はPostgreSQLへの永続化を提供する。
package repository

import (
	"context"
	"time"

	"github.com/wedding-letter/letter-api/internal/model"
)

// UserRepository はアカウントの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)
	// FindByProviderAndProviderUserID はOAuth識別子でユーザーを検索する。
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.User, error)
	// Create は新規ユーザーを作成する。
	Create(ctx context.Context, user *model.User) error
	// UpdateRole はユーザーのロールを変更する。
	UpdateRole(ctx context.Context, id string, role model.Role) error
}

// NoticeSearchResult は管理者検索の結果ページ。
type NoticeSearchResult struct {
	Notices    []model.Notice
	TotalCount int64
}

// NoticeRepository はお知らせの永続化インターフェース。
// 公開側の読み取りはすべて可視性述語
// (status=PUBLISHED AND start_at<=now AND (end_at IS NULL OR end_at>=now))
// を通して行われる。
type NoticeRepository interface {
	// ListVisible は公開中のお知らせをstart_at降順・id降順で取得する。
	ListVisible(ctx context.Context, now time.Time, offset, limit int) ([]model.Notice, error)
	// CountVisible は公開中のお知らせの総数を返す。
	CountVisible(ctx context.Context, now time.Time) (int64, error)
	// FindVisibleByID は公開中のお知らせをIDで取得する。
	// 存在しても可視性述語を満たさない場合はnilを返す（公開側には区別させない）。
	FindVisibleByID(ctx context.Context, id string, now time.Time) (*model.Notice, error)
	// ListVisibleBanners は公開中のバナーお知らせを全件取得する（ページネーションなし）。
	ListVisibleBanners(ctx context.Context, now time.Time) ([]model.Notice, error)

	// FindByID はお知らせをIDで取得する（可視性を問わない。管理者用）。
	FindByID(ctx context.Context, id string) (*model.Notice, error)
	// Search は管理者向けの条件付き検索を行う。
	Search(ctx context.Context, filter *model.NoticeSearchFilter) (*NoticeSearchResult, error)
	// Create は新規お知らせを作成する。
	Create(ctx context.Context, notice *model.Notice) error
	// Update は既存お知らせを上書き更新する。
	Update(ctx context.Context, notice *model.Notice) error
	// UpdateStatus はステータスのみを更新する。
	UpdateStatus(ctx context.Context, id string, status model.NoticeStatus) error
}

// InvitationRepository は招待状の永続化インターフェース。
type InvitationRepository interface {
	// FindByID は招待状をIDで取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Invitation, error)
	// FindBySlug は招待状をスラッグで取得する。見つからない場合はnilを返す。
	FindBySlug(ctx context.Context, slug string) (*model.Invitation, error)
	// ListByOwner は所有者の招待状一覧を作成日降順で取得する。
	ListByOwner(ctx context.Context, ownerID string) ([]model.Invitation, error)
	// Create は新規招待状を作成する。
	Create(ctx context.Context, inv *model.Invitation) error
	// Update は既存招待状を上書き更新する。
	Update(ctx context.Context, inv *model.Invitation) error
	// DeleteByID は招待状と関連レコード（出欠・芳名帳）を削除する。
	DeleteByID(ctx context.Context, id string) error
}

// RSVPRepository は出欠回答の永続化インターフェース。
type RSVPRepository interface {
	// Create は新規出欠回答を登録する。
	Create(ctx context.Context, rsvp *model.RSVP) error
	// ListByInvitation は招待状の出欠回答一覧を登録順で取得する。
	ListByInvitation(ctx context.Context, invitationID string) ([]model.RSVP, error)
}

// GuestbookRepository は芳名帳の永続化インターフェース。
type GuestbookRepository interface {
	// Create は新規書き込みを登録する。
	Create(ctx context.Context, entry *model.GuestbookEntry) error
	// ListByInvitation は招待状の書き込み一覧を新しい順で取得する。
	ListByInvitation(ctx context.Context, invitationID string) ([]model.GuestbookEntry, error)
	// FindByID は書き込みをIDで取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.GuestbookEntry, error)
	// DeleteByID は書き込みを削除する。
	DeleteByID(ctx context.Context, id string) error
}
