// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/carsearch/internal/model"
)

// ListingFilter はリスティング検索の絞り込み条件を表す。
// 空文字のフィールドは「指定なし」として扱う。
type ListingFilter struct {
	// Keyword はタイトル・概要・本文に対する部分一致キーワード。
	Keyword string
	// Category はカテゴリラベルまたはそのスラッグとの一致条件。
	Category string
}

// ListingRepository はリスティングデータの読み取りインターフェース。
// 検索コアからは読み取り専用の外部コラボレータとして扱う。
type ListingRepository interface {
	// FindByID は指定IDのリスティングを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Listing, error)

	// FindByIDs は指定ID群のリスティングを引数の順序を保って取得する。
	// 存在しないIDは結果から除外される。
	FindByIDs(ctx context.Context, ids []int64) ([]*model.Listing, error)

	// Search はフィルタ・並び替え・ページネーションを適用したリスティング一覧を返す。
	// orderKeyはリポジトリの並び替えキー（title/categories/published_at/comment_count）。
	// 空の場合は自然順（published_at降順、id降順）となる。
	// 並び替えキーが等しい行同士は常に自然順を保つ（安定ソート）。
	Search(ctx context.Context, filter ListingFilter, orderKey string, order model.SortOrder, limit, offset int) ([]*model.Listing, error)

	// Count はフィルタに一致するリスティングの総数を返す。
	Count(ctx context.Context, filter ListingFilter) (int, error)

	// ListTitles は公開中リスティングのタイトルを最大limit件返す。
	// サジェストインデックスの構築に使用する。
	ListTitles(ctx context.Context, limit int) ([]string, error)

	// ListCategories は掲載数1件以上のカテゴリを名前昇順で返す。
	ListCategories(ctx context.Context) ([]model.Category, error)
}

// RatingRepository は評価投稿の永続化インターフェース。
// 評価行は追記専用で、集計は読み取りのたびに再計算される。
type RatingRepository interface {
	// Insert は評価投稿を1件追加する。
	// 同一(listing_id, fingerprint)の行が既に存在する場合は
	// model.ErrDuplicateRatingを返し、既存行は変更しない。
	Insert(ctx context.Context, rating *model.Rating) error

	// Aggregate は指定リスティングの評価集計（平均・件数）を返す。
	// 評価が1件もない場合はAverage==0、Count==0を返す。
	Aggregate(ctx context.Context, listingID int64) (model.RatingAggregate, error)

	// AggregateForListings は複数リスティングの評価集計を一括で返す。
	// 評価のないリスティングはマップに含まれない。
	AggregateForListings(ctx context.Context, listingIDs []int64) (map[int64]model.RatingAggregate, error)
}
