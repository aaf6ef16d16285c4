package model

import "time"

// Invitation はデジタル招待状を表す。
// 公開URLはスラッグで決まり、is_published=trueの間だけ公開側から閲覧できる。
type Invitation struct {
	ID           string
	OwnerID      string
	Slug         string
	Title        string
	GroomName    string
	BrideName    string
	CeremonyAt   time.Time
	VenueName    string
	VenueAddress string
	VenueURL     string // 式場の案内ページや地図へのリンク（任意）
	Message      string
	IsPublished  bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// LinkPreview は外部リンクから取得したOGメタデータ。
// 永続化されず、取得のたびに生成される。
type LinkPreview struct {
	URL         string
	Title       string
	Description string
	ImageURL    string
}
