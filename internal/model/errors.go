// Package model はドメインモデルを定義する。
package model

import (
	"fmt"
	"net/http"
)

// APIError は統一エラーフォーマットを表す。
// HTTPステータスと、フロントエンドが機械的に解釈できる対処指示を含む。
type APIError struct {
	Status        int    // HTTPステータスコード
	Code          string // エラーコード
	Message       string // ユーザー向けメッセージ
	DetailMessage string // 詳細メッセージ（デバッグ向け、空でもよい）
	ClientAction  string // フロントエンド向け対処指示
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// ClientAction の値。フロントエンドはこの値で後続動作を分岐する。
const (
	// ClientActionNone は追加の対処が不要であることを示す。
	ClientActionNone = "NONE"
	// ClientActionClearSessionAndLogin はセッションを破棄して
	// /login へ遷移すべきであることを示す。
	ClientActionClearSessionAndLogin = "CLEAR_SESSION_AND_LOGIN"
	// ClientActionRetryLater は時間をおいて再試行すべきであることを示す。
	ClientActionRetryLater = "RETRY_LATER"
)

// 定義済みエラーコード
const (
	ErrCodeAuthRequired           = "AUTH_REQUIRED"
	ErrCodeSessionExpired         = "SESSION_EXPIRED"
	ErrCodeForbidden              = "FORBIDDEN"
	ErrCodeInvalidRequest         = "INVALID_REQUEST"
	ErrCodeInvalidStatus          = "INVALID_STATUS"
	ErrCodeNoticeNotFound         = "NOTICE_NOT_FOUND"
	ErrCodeInvitationNotFound     = "INVITATION_NOT_FOUND"
	ErrCodeGuestbookEntryNotFound = "GUESTBOOK_ENTRY_NOT_FOUND"
	ErrCodeLinkBlocked            = "LINK_BLOCKED"
	ErrCodeInternalError          = "INTERNAL_ERROR"
)

// NewAuthRequiredError はセッションCookieが存在しない場合のエラーを生成する。
// Cookieがそもそも無いケースであり、サイレントな再試行は無意味である。
func NewAuthRequiredError() *APIError {
	return &APIError{
		Status:        http.StatusUnauthorized,
		Code:          ErrCodeAuthRequired,
		Message:       "ログインが必要です。",
		DetailMessage: "セッションCookieが存在しません。",
		ClientAction:  ClientActionClearSessionAndLogin,
	}
}

// NewSessionExpiredError はセッションCookieはあるが無効・期限切れの場合のエラーを生成する。
// AUTH_REQUIREDと区別することで、フロントエンドが再ログイン導線を出し分けられる。
func NewSessionExpiredError() *APIError {
	return &APIError{
		Status:        http.StatusUnauthorized,
		Code:          ErrCodeSessionExpired,
		Message:       "セッションの有効期限が切れました。",
		DetailMessage: "セッショントークンが無効または期限切れです。",
		ClientAction:  ClientActionClearSessionAndLogin,
	}
}

// NewForbiddenError は権限不足エラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Status:       http.StatusForbidden,
		Code:         ErrCodeForbidden,
		Message:      "この操作を行う権限がありません。",
		ClientAction: ClientActionNone,
	}
}

// NewInvalidRequestError はリクエスト不正エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Status:        http.StatusBadRequest,
		Code:          ErrCodeInvalidRequest,
		Message:       "リクエストの内容が正しくありません。",
		DetailMessage: reason,
		ClientAction:  ClientActionNone,
	}
}

// NewInvalidStatusError はお知らせステータスが未知の値の場合のエラーを生成する。
func NewInvalidStatusError(status string) *APIError {
	return &APIError{
		Status:        http.StatusBadRequest,
		Code:          ErrCodeInvalidStatus,
		Message:       "指定されたステータスは使用できません。",
		DetailMessage: fmt.Sprintf("未知のステータス値です: %s", status),
		ClientAction:  ClientActionNone,
	}
}

// NewNoticeNotFoundError はお知らせ未検出エラーを生成する。
// 公開側では非公開のお知らせも存在しないものとして同じエラーを返す。
func NewNoticeNotFoundError(id string) *APIError {
	return &APIError{
		Status:        http.StatusNotFound,
		Code:          ErrCodeNoticeNotFound,
		Message:       "お知らせが見つかりません。",
		DetailMessage: fmt.Sprintf("お知らせID: %s", id),
		ClientAction:  ClientActionNone,
	}
}

// NewInvitationNotFoundError は招待状未検出エラーを生成する。
func NewInvitationNotFoundError(key string) *APIError {
	return &APIError{
		Status:        http.StatusNotFound,
		Code:          ErrCodeInvitationNotFound,
		Message:       "招待状が見つかりません。",
		DetailMessage: fmt.Sprintf("招待状: %s", key),
		ClientAction:  ClientActionNone,
	}
}

// NewGuestbookEntryNotFoundError は芳名帳エントリ未検出エラーを生成する。
func NewGuestbookEntryNotFoundError(id string) *APIError {
	return &APIError{
		Status:        http.StatusNotFound,
		Code:          ErrCodeGuestbookEntryNotFound,
		Message:       "芳名帳の書き込みが見つかりません。",
		DetailMessage: fmt.Sprintf("エントリID: %s", id),
		ClientAction:  ClientActionNone,
	}
}

// NewLinkBlockedError はリンクプレビュー対象URLがセキュリティポリシーで
// ブロックされた場合のエラーを生成する。
func NewLinkBlockedError(reason string) *APIError {
	return &APIError{
		Status:        http.StatusForbidden,
		Code:          ErrCodeLinkBlocked,
		Message:       "指定されたURLへのアクセスはブロックされました。",
		DetailMessage: reason,
		ClientAction:  ClientActionNone,
	}
}

// NewInternalError は内部エラーを生成する。詳細はログのみに記録する。
func NewInternalError() *APIError {
	return &APIError{
		Status:       http.StatusInternalServerError,
		Code:         ErrCodeInternalError,
		Message:      "内部エラーが発生しました。",
		ClientAction: ClientActionRetryLater,
	}
}
