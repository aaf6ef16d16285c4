package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/wedding-letter/letter-api/internal/model"
)

// PostgresGuestbookRepo はPostgreSQLを使用した芳名帳リポジトリ。
type PostgresGuestbookRepo struct {
	db *sql.DB
}

// NewPostgresGuestbookRepo はPostgresGuestbookRepoを生成する。
func NewPostgresGuestbookRepo(db *sql.DB) *PostgresGuestbookRepo {
	return &PostgresGuestbookRepo{db: db}
}

// Create は新規書き込みを登録する。
func (r *PostgresGuestbookRepo) Create(ctx context.Context, entry *model.GuestbookEntry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO guestbook_entries (id, invitation_id, author_name, body, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		entry.ID, entry.InvitationID, entry.AuthorName, entry.Body, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("芳名帳への書き込みに失敗しました: %w", err)
	}
	return nil
}

// ListByInvitation は招待状の書き込み一覧を新しい順で取得する。
func (r *PostgresGuestbookRepo) ListByInvitation(ctx context.Context, invitationID string) ([]model.GuestbookEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, invitation_id, author_name, body, created_at
		 FROM guestbook_entries WHERE invitation_id = $1
		 ORDER BY created_at DESC, id DESC`,
		invitationID,
	)
	if err != nil {
		return nil, fmt.Errorf("芳名帳一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var entries []model.GuestbookEntry
	for rows.Next() {
		var entry model.GuestbookEntry
		if err := rows.Scan(
			&entry.ID, &entry.InvitationID, &entry.AuthorName,
			&entry.Body, &entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("芳名帳行の読み取りに失敗しました: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("芳名帳一覧の走査に失敗しました: %w", err)
	}

	return entries, nil
}

// FindByID は書き込みをIDで取得する。見つからない場合はnilを返す。
func (r *PostgresGuestbookRepo) FindByID(ctx context.Context, id string) (*model.GuestbookEntry, error) {
	entry := &model.GuestbookEntry{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, invitation_id, author_name, body, created_at
		 FROM guestbook_entries WHERE id = $1`,
		id,
	).Scan(
		&entry.ID, &entry.InvitationID, &entry.AuthorName,
		&entry.Body, &entry.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("芳名帳エントリの取得に失敗しました: %w", err)
	}

	return entry, nil
}

// DeleteByID は書き込みを削除する。
func (r *PostgresGuestbookRepo) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM guestbook_entries WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("芳名帳エントリの削除に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ GuestbookRepository = (*PostgresGuestbookRepo)(nil)
