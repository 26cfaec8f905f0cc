package model

// SortField は検索結果の並び替え対象フィールドを表す。
type SortField string

const (
	// SortFieldTitle はタイトルによる並び替え。
	SortFieldTitle SortField = "title"
	// SortFieldCategory はカテゴリによる並び替え。
	SortFieldCategory SortField = "category"
	// SortFieldDate は公開日による並び替え（デフォルト）。
	SortFieldDate SortField = "date"
	// SortFieldRating は評価平均による並び替え。
	// 評価はリスティング行に保存されないため、リポジトリでは並び替えできず
	// サービス層で集計後にメモリ上で並び替える。
	SortFieldRating SortField = "rating"
	// SortFieldComments はコメント数による並び替え。
	// 表示名"comments"はリポジトリの並び替えキー"comment_count"に変換される。
	SortFieldComments SortField = "comments"
)

// Native はリポジトリがこのフィールドでネイティブに並び替えできるかどうかを返す。
// title/category/date/commentsはリスティング行の列に対応するためネイティブ。
// ratingは派生値のためサービス層での集計後ソートが必要。
func (f SortField) Native() bool {
	return f != SortFieldRating
}

// SortOrder は並び替えの方向を表す。
type SortOrder string

const (
	// SortOrderAsc は昇順。
	SortOrderAsc SortOrder = "asc"
	// SortOrderDesc は降順（デフォルト）。
	SortOrderDesc SortOrder = "desc"
)

// DefaultOrderFor はフィールドに応じたデフォルトの並び替え方向を返す。
// テキストフィールド（title/category）は昇順、date/rating/commentsは
// 新しい・高い順が自然なため降順となる。
func DefaultOrderFor(f SortField) SortOrder {
	switch f {
	case SortFieldTitle, SortFieldCategory:
		return SortOrderAsc
	default:
		return SortOrderDesc
	}
}

// SearchQuery は正規化済みの検索クエリを表す。
// query.Builderが未検証の文字列パラメータから構築する。
type SearchQuery struct {
	Page      int       // 1以上
	PageSize  int       // 正の値、上限100
	SortField SortField // 列挙値のいずれか
	SortOrder SortOrder // asc | desc
	OrderKey  string    // リポジトリの並び替えキー（builderが変換する）。派生フィールドの場合は空
	Keyword   string    // 空の場合はフィルタなし
	Category  string    // 空の場合はフィルタなし
}

// ResultPage は検索結果の1ページ分を表す。
// Items数はPageSizeを超えない。TotalPagesはTotalItems==0でも1以上となる。
type ResultPage struct {
	Items       []ListingWithRating
	TotalItems  int
	TotalPages  int
	CurrentPage int
	PageSize    int
}
