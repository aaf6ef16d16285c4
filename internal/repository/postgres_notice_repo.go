package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/wedding-letter/letter-api/internal/model"
)

// visiblePredicate は公開側の可視性述語。
// 期限切れはステータスを書き換えるのではなく、読み取り時にこの条件で判定する。
const visiblePredicate = `status = 'PUBLISHED' AND start_at <= $1 AND (end_at IS NULL OR end_at >= $1)`

// noticeColumns はSELECT句の共通カラムリスト。
const noticeColumns = `id, title, content, status, is_banner, start_at, end_at, created_at, updated_at`

// sortableColumns は管理者検索で指定可能なソートフィールドの許可リスト。
// APIのキャメルケース表記からカラム名へマッピングする。
// ここに無いフィールドは黙って無視し、デフォルト順序にフォールバックする。
var sortableColumns = map[string]string{
	"id":        "id",
	"title":     "title",
	"status":    "status",
	"startAt":   "start_at",
	"endAt":     "end_at",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"isBanner":  "is_banner",
}

// PostgresNoticeRepo はPostgreSQLを使用したお知らせリポジトリ。
type PostgresNoticeRepo struct {
	db *sql.DB
}

// NewPostgresNoticeRepo はPostgresNoticeRepoを生成する。
func NewPostgresNoticeRepo(db *sql.DB) *PostgresNoticeRepo {
	return &PostgresNoticeRepo{db: db}
}

// ListVisible は公開中のお知らせをstart_at降順・id降順で取得する。
func (r *PostgresNoticeRepo) ListVisible(ctx context.Context, now time.Time, offset, limit int) ([]model.Notice, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+noticeColumns+`
		 FROM notices
		 WHERE `+visiblePredicate+`
		 ORDER BY start_at DESC, id DESC
		 OFFSET $2 LIMIT $3`,
		now, offset, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("公開お知らせ一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return scanNotices(rows)
}

// CountVisible は公開中のお知らせの総数を返す。
func (r *PostgresNoticeRepo) CountVisible(ctx context.Context, now time.Time) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notices WHERE `+visiblePredicate,
		now,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("公開お知らせ数の取得に失敗しました: %w", err)
	}
	return count, nil
}

// FindVisibleByID は公開中のお知らせをIDで取得する。
// IDが存在しても可視性述語を満たさない場合はnilを返す。
// 公開側の呼び出し元には「非公開」と「存在しない」を区別させない。
func (r *PostgresNoticeRepo) FindVisibleByID(ctx context.Context, id string, now time.Time) (*model.Notice, error) {
	notice := &model.Notice{}
	var endAt sql.NullTime

	err := r.db.QueryRowContext(ctx,
		`SELECT `+noticeColumns+`
		 FROM notices
		 WHERE `+visiblePredicate+` AND id = $2`,
		now, id,
	).Scan(
		&notice.ID, &notice.Title, &notice.Content, &notice.Status,
		&notice.IsBanner, &notice.StartAt, &endAt,
		&notice.CreatedAt, &notice.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("公開お知らせの取得に失敗しました: %w", err)
	}

	if endAt.Valid {
		notice.EndAt = &endAt.Time
	}
	return notice, nil
}

// ListVisibleBanners は公開中のバナーお知らせを全件取得する。
// バナーは件数が少ない前提のためページネーションしない。
func (r *PostgresNoticeRepo) ListVisibleBanners(ctx context.Context, now time.Time) ([]model.Notice, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+noticeColumns+`
		 FROM notices
		 WHERE `+visiblePredicate+` AND is_banner = true
		 ORDER BY start_at DESC, id DESC`,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("バナーお知らせ一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return scanNotices(rows)
}

// FindByID はお知らせをIDで取得する（可視性を問わない。管理者用）。
func (r *PostgresNoticeRepo) FindByID(ctx context.Context, id string) (*model.Notice, error) {
	notice := &model.Notice{}
	var endAt sql.NullTime

	err := r.db.QueryRowContext(ctx,
		`SELECT `+noticeColumns+` FROM notices WHERE id = $1`,
		id,
	).Scan(
		&notice.ID, &notice.Title, &notice.Content, &notice.Status,
		&notice.IsBanner, &notice.StartAt, &endAt,
		&notice.CreatedAt, &notice.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("お知らせの取得に失敗しました: %w", err)
	}

	if endAt.Valid {
		notice.EndAt = &endAt.Time
	}
	return notice, nil
}

// Search は管理者向けの条件付き検索を行う。
// 省略可能な条件（キーワード、ステータス、バナーフラグ）をAND結合し、
// 総数は同じ述語を共有するカウントクエリで求める。
func (r *PostgresNoticeRepo) Search(ctx context.Context, filter *model.NoticeSearchFilter) (*NoticeSearchResult, error) {
	where := buildSearchPredicate(filter)

	// カウントクエリ（検索クエリと述語を共有する）
	countSQL, countArgs, err := sq.Select("COUNT(*)").
		From("notices").
		Where(where).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("検索カウントクエリの構築に失敗しました: %w", err)
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("検索対象お知らせ数の取得に失敗しました: %w", err)
	}

	// 検索クエリ
	querySQL, queryArgs, err := sq.Select(noticeColumns).
		From("notices").
		Where(where).
		OrderBy(buildOrderBy(filter.Sort)...).
		Offset(uint64(filter.Offset())).
		Limit(uint64(filter.Size)).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("検索クエリの構築に失敗しました: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, querySQL, queryArgs...)
	if err != nil {
		return nil, fmt.Errorf("お知らせ検索に失敗しました: %w", err)
	}
	defer rows.Close()

	notices, err := scanNotices(rows)
	if err != nil {
		return nil, err
	}

	return &NoticeSearchResult{Notices: notices, TotalCount: total}, nil
}

// buildSearchPredicate は省略可能な検索条件からWHERE句を構築する。
// nilのフィールドは条件を課さない。
func buildSearchPredicate(filter *model.NoticeSearchFilter) sq.And {
	where := sq.And{}

	if filter.Keyword != "" {
		pattern := "%" + filter.Keyword + "%"
		where = append(where, sq.Or{
			sq.ILike{"title": pattern},
			sq.ILike{"content": pattern},
		})
	}
	if filter.Status != nil {
		where = append(where, sq.Eq{"status": *filter.Status})
	}
	if filter.IsBanner != nil {
		where = append(where, sq.Eq{"is_banner": *filter.IsBanner})
	}

	return where
}

// buildOrderBy は明示的なソート指定をORDER BY句に変換する。
// 許可リストに無いフィールドは黙って無視し、有効な指定がひとつも
// 残らない場合はデフォルト順序（created_at DESC, id DESC）を返す。
func buildOrderBy(sort []model.NoticeSortOrder) []string {
	var orders []string
	for _, s := range sort {
		col, ok := sortableColumns[s.Field]
		if !ok {
			continue
		}
		dir := "ASC"
		if s.Desc {
			dir = "DESC"
		}
		orders = append(orders, col+" "+dir)
	}

	if len(orders) == 0 {
		return []string{"created_at DESC", "id DESC"}
	}
	return orders
}

// Create は新規お知らせを作成する。
func (r *PostgresNoticeRepo) Create(ctx context.Context, notice *model.Notice) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO notices (id, title, content, status, is_banner, start_at, end_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		notice.ID, notice.Title, notice.Content, notice.Status,
		notice.IsBanner, notice.StartAt, notice.EndAt,
		notice.CreatedAt, notice.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("お知らせの作成に失敗しました: %w", err)
	}
	return nil
}

// Update は既存お知らせを上書き更新する。履歴は保持しない。
func (r *PostgresNoticeRepo) Update(ctx context.Context, notice *model.Notice) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE notices SET
		    title = $2, content = $3, is_banner = $4,
		    start_at = $5, end_at = $6, updated_at = $7
		 WHERE id = $1`,
		notice.ID, notice.Title, notice.Content, notice.IsBanner,
		notice.StartAt, notice.EndAt, notice.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("お知らせの更新に失敗しました: %w", err)
	}
	return nil
}

// UpdateStatus はステータスのみを更新する。
func (r *PostgresNoticeRepo) UpdateStatus(ctx context.Context, id string, status model.NoticeStatus) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE notices SET status = $2, updated_at = now() WHERE id = $1`,
		id, status,
	)
	if err != nil {
		return fmt.Errorf("お知らせステータスの更新に失敗しました: %w", err)
	}
	return nil
}

// scanNotices は結果セットからお知らせのスライスを読み取る。
func scanNotices(rows *sql.Rows) ([]model.Notice, error) {
	var notices []model.Notice
	for rows.Next() {
		var notice model.Notice
		var endAt sql.NullTime

		if err := rows.Scan(
			&notice.ID, &notice.Title, &notice.Content, &notice.Status,
			&notice.IsBanner, &notice.StartAt, &endAt,
			&notice.CreatedAt, &notice.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("お知らせ行の読み取りに失敗しました: %w", err)
		}

		if endAt.Valid {
			notice.EndAt = &endAt.Time
		}
		notices = append(notices, notice)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("お知らせ一覧の走査に失敗しました: %w", err)
	}

	return notices, nil
}

// compile-time interface check
var _ NoticeRepository = (*PostgresNoticeRepo)(nil)
