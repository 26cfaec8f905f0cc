package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/hitoshi/carsearch/internal/model"
)

// PostgresListingRepo はPostgreSQLを使用したリスティングリポジトリ。
type PostgresListingRepo struct {
	db *sql.DB
}

// NewPostgresListingRepo はPostgresListingRepoを生成する。
func NewPostgresListingRepo(db *sql.DB) *PostgresListingRepo {
	return &PostgresListingRepo{db: db}
}

// listingColumns はリスティング取得で共通して使用するSELECT列。
const listingColumns = `id, title, excerpt, content, categories, permalink, website,
	        published_at, comment_count, attrs, created_at, updated_at`

// scanListing は1行分のリスティングを読み取る。
func scanListing(scanner interface{ Scan(dest ...any) error }) (*model.Listing, error) {
	l := &model.Listing{}
	var excerpt, content, categories, website sql.NullString
	var attrs []byte

	if err := scanner.Scan(
		&l.ID, &l.Title, &excerpt, &content, &categories, &l.Permalink, &website,
		&l.PublishedAt, &l.CommentCount, &attrs, &l.CreatedAt, &l.UpdatedAt,
	); err != nil {
		return nil, err
	}

	l.Excerpt = nullStringValue(excerpt)
	l.Content = nullStringValue(content)
	l.Categories = nullStringValue(categories)
	l.Website = nullStringValue(website)

	if len(attrs) > 0 {
		if err := json.Unmarshal(attrs, &l.Attrs); err != nil {
			return nil, fmt.Errorf("構造化属性の解析に失敗しました: %w", err)
		}
	}

	return l, nil
}

// FindByID は指定IDのリスティングを取得する。見つからない場合はnilを返す。
func (r *PostgresListingRepo) FindByID(ctx context.Context, id int64) (*model.Listing, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+listingColumns+` FROM listings WHERE id = $1`,
		id,
	)

	l, err := scanListing(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("リスティングの取得に失敗しました: %w", err)
	}

	return l, nil
}

// FindByIDs は指定ID群のリスティングを引数の順序を保って取得する。
// 存在しないIDは結果から除外される。
func (r *PostgresListingRepo) FindByIDs(ctx context.Context, ids []int64) ([]*model.Listing, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+listingColumns+` FROM listings WHERE id = ANY($1)`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("リスティングの一括取得に失敗しました: %w", err)
	}
	defer rows.Close()

	byID := make(map[int64]*model.Listing, len(ids))
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("リスティング行の読み取りに失敗しました: %w", err)
		}
		byID[l.ID] = l
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("リスティングの走査に失敗しました: %w", err)
	}

	// 引数の順序を維持する
	listings := make([]*model.Listing, 0, len(ids))
	for _, id := range ids {
		if l, ok := byID[id]; ok {
			listings = append(listings, l)
		}
	}

	return listings, nil
}

// orderableColumns はORDER BYに使用できる列のホワイトリスト。
// キーはquery.Builderが生成する並び替えキー、値は実際のORDER BY式。
var orderableColumns = map[string]string{
	"title":         "lower(title)",
	"categories":    "lower(categories)",
	"published_at":  "published_at",
	"comment_count": "comment_count",
}

// Search はフィルタ・並び替え・ページネーションを適用したリスティング一覧を返す。
// 並び替えキーが等しい行同士は自然順（published_at降順、id降順）を保つ。
func (r *PostgresListingRepo) Search(
	ctx context.Context,
	filter ListingFilter,
	orderKey string,
	order model.SortOrder,
	limit, offset int,
) ([]*model.Listing, error) {
	where, args := buildListingFilter(filter)

	query := `SELECT ` + listingColumns + ` FROM listings` + where

	// 並び替え。orderKeyはホワイトリスト外の値を受け付けない。
	dir := "DESC"
	if order == model.SortOrderAsc {
		dir = "ASC"
	}
	if col, ok := orderableColumns[orderKey]; ok {
		query += fmt.Sprintf(" ORDER BY %s %s, published_at DESC, id DESC", col, dir)
	} else {
		// 自然順（新着順）
		query += " ORDER BY published_at DESC, id DESC"
	}

	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("リスティング検索に失敗しました: %w", err)
	}
	defer rows.Close()

	var listings []*model.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("リスティング行の読み取りに失敗しました: %w", err)
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("リスティング検索結果の走査に失敗しました: %w", err)
	}

	return listings, nil
}

// Count はフィルタに一致するリスティングの総数を返す。
func (r *PostgresListingRepo) Count(ctx context.Context, filter ListingFilter) (int, error) {
	where, args := buildListingFilter(filter)

	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM listings`+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("リスティング件数の取得に失敗しました: %w", err)
	}

	return count, nil
}

// buildListingFilter はフィルタ条件からWHERE句とバインド引数を構築する。
func buildListingFilter(filter ListingFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}

	if filter.Keyword != "" {
		n := len(args) + 1
		conds = append(conds, fmt.Sprintf(
			"(title ILIKE '%%' || $%d || '%%' OR excerpt ILIKE '%%' || $%d || '%%' OR content ILIKE '%%' || $%d || '%%')",
			n, n, n,
		))
		args = append(args, filter.Keyword)
	}

	if filter.Category != "" {
		// カンマ区切りのカテゴリ列を分割し、ラベルまたはスラッグ形式で一致判定する
		n := len(args) + 1
		conds = append(conds, fmt.Sprintf(
			`EXISTS (
			    SELECT 1 FROM regexp_split_to_table(categories, ',') AS c
			    WHERE lower(trim(c)) = lower(trim($%d))
			       OR replace(lower(trim(c)), ' ', '-') = lower(trim($%d))
			)`, n, n,
		))
		args = append(args, filter.Category)
	}

	if len(conds) == 0 {
		return "", nil
	}

	return " WHERE " + strings.Join(conds, " AND "), args
}

// ListTitles は公開中リスティングのタイトルを最大limit件返す。
func (r *PostgresListingRepo) ListTitles(ctx context.Context, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT title FROM listings ORDER BY id LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("タイトル一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, fmt.Errorf("タイトル行の読み取りに失敗しました: %w", err)
		}
		titles = append(titles, title)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("タイトル一覧の走査に失敗しました: %w", err)
	}

	return titles, nil
}

// ListCategories は掲載数1件以上のカテゴリを名前昇順で返す。
// カテゴリはリスティング行のカンマ区切り列から導出され、専用テーブルは持たない。
// IDは名前昇順での連番となる。
func (r *PostgresListingRepo) ListCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT
		    row_number() OVER (ORDER BY name) AS id,
		    name,
		    count
		 FROM (
		    SELECT trim(c) AS name, COUNT(*) AS count
		    FROM listings, regexp_split_to_table(categories, ',') AS c
		    WHERE trim(c) <> ''
		    GROUP BY trim(c)
		 ) t
		 ORDER BY name ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("カテゴリ一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var categories []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Count); err != nil {
			return nil, fmt.Errorf("カテゴリ行の読み取りに失敗しました: %w", err)
		}
		c.Slug = Slugify(c.Name)
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("カテゴリ一覧の走査に失敗しました: %w", err)
	}

	return categories, nil
}

// Slugify はカテゴリ名をURL用のスラッグに変換する。
// 小文字化し、空白をハイフンに置き換える。
func Slugify(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "-")
}

// nullStringValue はsql.NullStringから値を取り出す。無効な場合は空文字を返す。
func nullStringValue(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// compile-time interface check
var _ ListingRepository = (*PostgresListingRepo)(nil)
