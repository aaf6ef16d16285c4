package model

import "time"

// Role はアカウントの役割を表す。
type Role string

const (
	// RoleUser は一般ユーザー。
	RoleUser Role = "USER"
	// RoleAdmin は管理コンソールを利用できる管理者。
	RoleAdmin Role = "ADMIN"
)

// User はログイン済みアカウントを表す。
// OAuthプロバイダーの(provider, provider_user_id)の組で一意に識別される。
type User struct {
	ID             string
	Email          string
	Name           string
	Provider       string // "google", "kakao" 等
	ProviderUserID string
	Role           Role
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsAdmin は管理者権限を持つかを返す。
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Identity はセッショントークンに埋め込まれる認証済みアイデンティティ。
// トークンのクレームから復元される軽量な形で、Roleは含まない。
// Roleは都度usersテーブルから解決する（トークン発行後の権限変更を反映するため）。
type Identity struct {
	UserID   string
	Name     string
	Email    string
	Provider string
}
