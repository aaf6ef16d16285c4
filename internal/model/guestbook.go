package model

import "time"

// GuestbookEntry は招待状の芳名帳への書き込みを表す。
// 本文は保存前にHTMLサニタイズされる。
type GuestbookEntry struct {
	ID           string
	InvitationID string
	AuthorName   string
	Body         string
	CreatedAt    time.Time
}
