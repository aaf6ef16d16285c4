package model

import "time"

// NoticeStatus はお知らせの公開ステータスを表す。
type NoticeStatus string

const (
	// NoticeStatusDraft は下書き。公開側には一切表示されない。
	NoticeStatusDraft NoticeStatus = "DRAFT"
	// NoticeStatusPublished は公開中。掲載期間内であれば公開側に表示される。
	NoticeStatusPublished NoticeStatus = "PUBLISHED"
	// NoticeStatusHidden は非表示。管理者が明示的に取り下げた状態。
	NoticeStatusHidden NoticeStatus = "HIDDEN"
)

// ParseNoticeStatus は文字列をNoticeStatusに変換する。
// 未知の値の場合はfalseを返す。
func ParseNoticeStatus(s string) (NoticeStatus, bool) {
	switch NoticeStatus(s) {
	case NoticeStatusDraft, NoticeStatusPublished, NoticeStatusHidden:
		return NoticeStatus(s), true
	default:
		return "", false
	}
}

// Notice はお知らせを表す。
// 掲載期間はstart_at（必須）とend_at（任意）で表現し、期限切れは
// 読み取り時に計算される。ステータスを書き換える定期ジョブは存在しない。
type Notice struct {
	ID        string
	Title     string
	Content   string
	Status    NoticeStatus
	IsBanner  bool
	StartAt   time.Time
	EndAt     *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsVisibleAt は指定時刻において公開側に表示されるかを返す。
// 条件: status=PUBLISHED かつ start_at<=now かつ (end_atなし または end_at>=now)。
// SQL側の可視性述語と同一の判定であること。
func (n *Notice) IsVisibleAt(now time.Time) bool {
	if n.Status != NoticeStatusPublished {
		return false
	}
	if n.StartAt.After(now) {
		return false
	}
	if n.EndAt != nil && n.EndAt.Before(now) {
		return false
	}
	return true
}

// NoticeSortOrder は管理者検索の明示的なソート指定を表す。
type NoticeSortOrder struct {
	Field string // ソート対象フィールド名（APIのキャメルケース表記）
	Desc  bool
}

// NoticeSearchFilter は管理者向けお知らせ検索の条件を表す。
// nilのフィールドは条件を課さない（省略可能な条件のAND結合）。
// 永続化されない一時的なクエリ仕様である。
type NoticeSearchFilter struct {
	Keyword  string        // タイトルまたは本文への大文字小文字を無視した部分一致
	Status   *NoticeStatus // 完全一致
	IsBanner *bool         // 完全一致
	Sort     []NoticeSortOrder
	Page     int // 1始まり
	Size     int
}

// Offset はページ番号からSQLのOFFSET値を計算する。
func (f *NoticeSearchFilter) Offset() int {
	page := f.Page
	if page < 1 {
		page = 1
	}
	return (page - 1) * f.Size
}
