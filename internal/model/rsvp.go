package model

import "time"

// RSVP は招待状に対する出欠回答を表す。
// 公開中の招待状に対してのみ、未ログインのゲストが登録できる。
type RSVP struct {
	ID           string
	InvitationID string
	GuestName    string
	Attending    bool
	Headcount    int
	Message      string
	CreatedAt    time.Time
}
