// Package query は未検証のリクエストパラメータから正規化済み検索クエリを構築する。
//
// 検索はユーザーが自分で修正できるベストエフォートな操作であり、
// 検証付きのトランザクショナルAPIではない。そのため不正な入力に対して
// エラーを返すことはなく、すべてデフォルト値に縮退させる。
package query

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/hitoshi/carsearch/internal/model"
)

// デフォルト値
const (
	// DefaultPageSize は1ページあたり件数のデフォルト。
	DefaultPageSize = 12
	// MaxPageSize はper_pageパラメータの上限。
	MaxPageSize = 100
)

// orderKeys は表示用フィールド名からリポジトリの並び替えキーへの変換表。
// "comments"は表示名と異なる"comment_count"キーに変換される。
// この変換はビルダーの責務であり、リポジトリは変換済みキーのみを受け取る。
// ratingは派生値のためリポジトリキーを持たない。
var orderKeys = map[model.SortField]string{
	model.SortFieldTitle:    "title",
	model.SortFieldCategory: "categories",
	model.SortFieldDate:     "published_at",
	model.SortFieldComments: "comment_count",
}

// Builder は未検証の文字列パラメータからSearchQueryを構築する。
type Builder struct {
	pageSizeDefault int
	pageSizeMax     int
}

// NewBuilder はBuilderを生成する。
// 引数が0以下の場合はパッケージのデフォルト値を使用する。
func NewBuilder(pageSizeDefault, pageSizeMax int) *Builder {
	if pageSizeDefault <= 0 {
		pageSizeDefault = DefaultPageSize
	}
	if pageSizeMax <= 0 {
		pageSizeMax = MaxPageSize
	}
	return &Builder{
		pageSizeDefault: pageSizeDefault,
		pageSizeMax:     pageSizeMax,
	}
}

// OrderKeyFor は表示用フィールド名に対応するリポジトリの並び替えキーを返す。
// 派生フィールド（rating）は空文字を返す。
func OrderKeyFor(f model.SortField) string {
	return orderKeys[f]
}

// PageSizeDefault は構成済みのデフォルトページサイズを返す。
func (b *Builder) PageSizeDefault() int {
	return b.pageSizeDefault
}

// Build はURLまたはフォーム由来の未検証パラメータからSearchQueryを構築する。
// APIパラメータ名（page/keyword/per_page）とクライアントURLパラメータ名
// （paged/s）の両方の綴りを受け付ける。
// 不正な値はエラーにせずデフォルトに縮退させる。
func (b *Builder) Build(params url.Values) model.SearchQuery {
	q := model.SearchQuery{
		Page:      parsePage(firstOf(params, "page", "paged")),
		PageSize:  b.parsePageSize(params.Get("per_page")),
		SortField: parseSortField(params.Get("orderby")),
		SortOrder: parseSortOrder(params.Get("order")),
		Keyword:   strings.TrimSpace(firstOf(params, "keyword", "s")),
		Category:  strings.TrimSpace(params.Get("category")),
	}

	// 表示用フィールド名からリポジトリの並び替えキーへ変換する。
	// ratingは派生フィールドのためキーは空のままとなる。
	q.OrderKey = orderKeys[q.SortField]

	return q
}

// Encode はSearchQueryをクライアントURLクエリパラメータに直列化する。
// Buildとの往復で検索状態が保存されるため、URLはブックマーク可能かつ
// ブラウザ履歴で復元可能となる。デフォルト値のパラメータは省略する。
func Encode(q model.SearchQuery) url.Values {
	values := url.Values{}

	if q.Page > 1 {
		values.Set("paged", strconv.Itoa(q.Page))
	}
	if q.Keyword != "" {
		values.Set("s", q.Keyword)
	}
	if q.Category != "" {
		values.Set("category", q.Category)
	}
	// デフォルトの並び（date降順）のときはパラメータを省略する
	if q.SortField != model.SortFieldDate || q.SortOrder != model.SortOrderDesc {
		values.Set("orderby", string(q.SortField))
		values.Set("order", string(q.SortOrder))
	}

	return values
}

// parsePage はページ番号を解析する。不正・0以下は1に縮退する。
func parsePage(raw string) int {
	page, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// parsePageSize は1ページあたり件数を解析する。
// 不正・0以下はデフォルトに、上限超過は上限に縮退する。
func (b *Builder) parsePageSize(raw string) int {
	size, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || size < 1 {
		return b.pageSizeDefault
	}
	if size > b.pageSizeMax {
		return b.pageSizeMax
	}
	return size
}

// parseSortField は並び替えフィールドを解析する。
// 列挙値以外はデフォルトのdateに縮退する。
func parseSortField(raw string) model.SortField {
	switch model.SortField(strings.ToLower(strings.TrimSpace(raw))) {
	case model.SortFieldTitle:
		return model.SortFieldTitle
	case model.SortFieldCategory:
		return model.SortFieldCategory
	case model.SortFieldRating:
		return model.SortFieldRating
	case model.SortFieldComments:
		return model.SortFieldComments
	default:
		return model.SortFieldDate
	}
}

// parseSortOrder は並び替え方向を解析する。大文字小文字は区別しない。
// asc/desc以外はデフォルトのdescに縮退する。
func parseSortOrder(raw string) model.SortOrder {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "asc":
		return model.SortOrderAsc
	case "desc":
		return model.SortOrderDesc
	default:
		return model.SortOrderDesc
	}
}

// firstOf は複数のパラメータ名のうち最初に値が存在するものを返す。
func firstOf(params url.Values, keys ...string) string {
	for _, key := range keys {
		if v := params.Get(key); v != "" {
			return v
		}
	}
	return ""
}
