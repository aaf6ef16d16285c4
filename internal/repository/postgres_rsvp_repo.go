package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/wedding-letter/letter-api/internal/model"
)

// PostgresRSVPRepo はPostgreSQLを使用した出欠回答リポジトリ。
type PostgresRSVPRepo struct {
	db *sql.DB
}

// NewPostgresRSVPRepo はPostgresRSVPRepoを生成する。
func NewPostgresRSVPRepo(db *sql.DB) *PostgresRSVPRepo {
	return &PostgresRSVPRepo{db: db}
}

// Create は新規出欠回答を登録する。
func (r *PostgresRSVPRepo) Create(ctx context.Context, rsvp *model.RSVP) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO rsvps (id, invitation_id, guest_name, attending, headcount, message, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rsvp.ID, rsvp.InvitationID, rsvp.GuestName,
		rsvp.Attending, rsvp.Headcount, rsvp.Message, rsvp.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("出欠回答の登録に失敗しました: %w", err)
	}
	return nil
}

// ListByInvitation は招待状の出欠回答一覧を登録順で取得する。
func (r *PostgresRSVPRepo) ListByInvitation(ctx context.Context, invitationID string) ([]model.RSVP, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, invitation_id, guest_name, attending, headcount, message, created_at
		 FROM rsvps WHERE invitation_id = $1
		 ORDER BY created_at ASC, id ASC`,
		invitationID,
	)
	if err != nil {
		return nil, fmt.Errorf("出欠回答一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var rsvps []model.RSVP
	for rows.Next() {
		var rsvp model.RSVP
		if err := rows.Scan(
			&rsvp.ID, &rsvp.InvitationID, &rsvp.GuestName,
			&rsvp.Attending, &rsvp.Headcount, &rsvp.Message, &rsvp.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("出欠回答行の読み取りに失敗しました: %w", err)
		}
		rsvps = append(rsvps, rsvp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("出欠回答一覧の走査に失敗しました: %w", err)
	}

	return rsvps, nil
}

// compile-time interface check
var _ RSVPRepository = (*PostgresRSVPRepo)(nil)
