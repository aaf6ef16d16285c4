package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/wedding-letter/letter-api/internal/model"
)

// invitationColumns はSELECT句の共通カラムリスト。
const invitationColumns = `id, owner_id, slug, title, groom_name, bride_name,
	ceremony_at, venue_name, venue_address, venue_url, message, is_published,
	created_at, updated_at`

// PostgresInvitationRepo はPostgreSQLを使用した招待状リポジトリ。
type PostgresInvitationRepo struct {
	db *sql.DB
}

// NewPostgresInvitationRepo はPostgresInvitationRepoを生成する。
func NewPostgresInvitationRepo(db *sql.DB) *PostgresInvitationRepo {
	return &PostgresInvitationRepo{db: db}
}

// FindByID は招待状をIDで取得する。見つからない場合はnilを返す。
func (r *PostgresInvitationRepo) FindByID(ctx context.Context, id string) (*model.Invitation, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+invitationColumns+` FROM invitations WHERE id = $1`,
		id,
	)
	inv, err := scanInvitation(row)
	if err != nil {
		return nil, fmt.Errorf("招待状の取得に失敗しました: %w", err)
	}
	return inv, nil
}

// FindBySlug は招待状をスラッグで取得する。見つからない場合はnilを返す。
func (r *PostgresInvitationRepo) FindBySlug(ctx context.Context, slug string) (*model.Invitation, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+invitationColumns+` FROM invitations WHERE slug = $1`,
		slug,
	)
	inv, err := scanInvitation(row)
	if err != nil {
		return nil, fmt.Errorf("スラッグによる招待状の検索に失敗しました: %w", err)
	}
	return inv, nil
}

// ListByOwner は所有者の招待状一覧を作成日降順で取得する。
func (r *PostgresInvitationRepo) ListByOwner(ctx context.Context, ownerID string) ([]model.Invitation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+invitationColumns+`
		 FROM invitations WHERE owner_id = $1
		 ORDER BY created_at DESC, id DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("招待状一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var invitations []model.Invitation
	for rows.Next() {
		var inv model.Invitation
		if err := rows.Scan(
			&inv.ID, &inv.OwnerID, &inv.Slug, &inv.Title,
			&inv.GroomName, &inv.BrideName, &inv.CeremonyAt,
			&inv.VenueName, &inv.VenueAddress, &inv.VenueURL,
			&inv.Message, &inv.IsPublished, &inv.CreatedAt, &inv.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("招待状行の読み取りに失敗しました: %w", err)
		}
		invitations = append(invitations, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("招待状一覧の走査に失敗しました: %w", err)
	}

	return invitations, nil
}

// Create は新規招待状を作成する。
func (r *PostgresInvitationRepo) Create(ctx context.Context, inv *model.Invitation) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO invitations (id, owner_id, slug, title, groom_name, bride_name,
		                          ceremony_at, venue_name, venue_address, venue_url,
		                          message, is_published, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		inv.ID, inv.OwnerID, inv.Slug, inv.Title, inv.GroomName, inv.BrideName,
		inv.CeremonyAt, inv.VenueName, inv.VenueAddress, inv.VenueURL,
		inv.Message, inv.IsPublished, inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("招待状の作成に失敗しました: %w", err)
	}
	return nil
}

// Update は既存招待状を上書き更新する。スラッグと所有者は変更しない。
func (r *PostgresInvitationRepo) Update(ctx context.Context, inv *model.Invitation) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE invitations SET
		    title = $2, groom_name = $3, bride_name = $4, ceremony_at = $5,
		    venue_name = $6, venue_address = $7, venue_url = $8,
		    message = $9, is_published = $10, updated_at = $11
		 WHERE id = $1`,
		inv.ID, inv.Title, inv.GroomName, inv.BrideName, inv.CeremonyAt,
		inv.VenueName, inv.VenueAddress, inv.VenueURL,
		inv.Message, inv.IsPublished, inv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("招待状の更新に失敗しました: %w", err)
	}
	return nil
}

// DeleteByID は招待状と関連レコードをトランザクション内で削除する。
func (r *PostgresInvitationRepo) DeleteByID(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM guestbook_entries WHERE invitation_id = $1`, id); err != nil {
		return fmt.Errorf("芳名帳の削除に失敗しました: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM rsvps WHERE invitation_id = $1`, id); err != nil {
		return fmt.Errorf("出欠回答の削除に失敗しました: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM invitations WHERE id = $1`, id); err != nil {
		return fmt.Errorf("招待状の削除に失敗しました: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}
	return nil
}

// scanInvitation は単一行から招待状を読み取る。ErrNoRowsはnilに変換する。
func scanInvitation(row *sql.Row) (*model.Invitation, error) {
	inv := &model.Invitation{}
	err := row.Scan(
		&inv.ID, &inv.OwnerID, &inv.Slug, &inv.Title,
		&inv.GroomName, &inv.BrideName, &inv.CeremonyAt,
		&inv.VenueName, &inv.VenueAddress, &inv.VenueURL,
		&inv.Message, &inv.IsPublished, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// compile-time interface check
var _ InvitationRepository = (*PostgresInvitationRepo)(nil)
