// Package render は検索結果ページを表示用マークアップに変換する。
//
// 変換は純粋関数であり、ネットワークアクセスや状態変更を行わない。
// ソート・ページネーション・比較のイベント配線は呼び出し側の責務で、
// 本パッケージはクリック対象をdata属性で示すだけにとどめる。
package render

import (
	"fmt"
	"math"
	"strings"

	"github.com/hitoshi/carsearch/internal/model"
)

// ViewMode は結果表示のビュー種別。
type ViewMode string

const (
	// ViewGrid はカードを並べるグリッド表示。
	ViewGrid ViewMode = "grid"
	// ViewList は1行1件のテーブル表示。
	ViewList ViewMode = "list"
)

// MobileBreakpoint はモバイル表示に切り替えるビューポート幅（論理ピクセル）。
const MobileBreakpoint = 800

// SortState は現在のソート状態。カラムヘッダの矢印表示に使用する。
type SortState struct {
	Field model.SortField
	Order model.SortOrder
}

// Field は表示カラムの識別子。タイトルは常に表示されるため含まない。
type Field string

const (
	FieldCategory Field = "category"
	FieldDate     Field = "date"
	FieldRating   Field = "rating"
	FieldComments Field = "comments"
)

// fieldLabels はカラムの見出しとソートキーの対応表。
var fieldLabels = map[Field]struct {
	label   string
	orderBy model.SortField
}{
	FieldCategory: {"Category", model.SortFieldCategory},
	FieldDate:     {"Date", model.SortFieldDate},
	FieldRating:   {"Rating", model.SortFieldRating},
	FieldComments: {"Comments", model.SortFieldComments},
}

// ColumnConfig は表示するカラムの明示的な一覧。
// 順序がそのまま表示順になる。
type ColumnConfig struct {
	Fields []Field
}

// DefaultColumnConfig は全カラムを表示する設定を返す。
func DefaultColumnConfig() ColumnConfig {
	return ColumnConfig{Fields: []Field{FieldCategory, FieldDate, FieldRating, FieldComments}}
}

// Validate はカラム設定を検証する。
// 未知のカラム名と重複はエラーとなる。
func (c ColumnConfig) Validate() error {
	seen := make(map[Field]struct{}, len(c.Fields))
	for _, f := range c.Fields {
		if _, ok := fieldLabels[f]; !ok {
			return fmt.Errorf("未知のカラムです: %q", f)
		}
		if _, ok := seen[f]; ok {
			return fmt.Errorf("カラムが重複しています: %q", f)
		}
		seen[f] = struct{}{}
	}
	return nil
}

// Renderer は検証済みカラム設定を保持するレンダラ。
type Renderer struct {
	cols ColumnConfig
}

// New はカラム設定を一度だけ検証してRendererを生成する。
func New(cols ColumnConfig) (*Renderer, error) {
	if err := cols.Validate(); err != nil {
		return nil, fmt.Errorf("カラム設定が不正です: %w", err)
	}
	return &Renderer{cols: cols}, nil
}

// Render は結果ページをHTMLフラグメントに変換する。
//   - itemsが空の場合は空のテーブル殻ではなく「結果なし」プレースホルダを返す。
//   - listビューはワイドビューポートでのみテーブルになり、
//     モバイル幅では縦積みカードにフォールバックする。
//   - gridビューはビューポート幅に関わらずカードを返す。
func (r *Renderer) Render(page *model.ResultPage, view ViewMode, viewportWidth int, sort SortState) (string, error) {
	if page == nil || len(page.Items) == 0 {
		return renderNoResults()
	}

	items := make([]itemView, len(page.Items))
	for i, it := range page.Items {
		items[i] = newItemView(it)
	}

	switch {
	case view == ViewList && viewportWidth > MobileBreakpoint:
		return r.renderTable(items, sort)
	case view == ViewList:
		return r.renderCards(items, "listing-stack")
	default:
		return r.renderCards(items, "listing-grid")
	}
}

// itemView は1件分の表示用データ。
type itemView struct {
	ID          int64
	Title       string
	Permalink   string
	Categories  []string
	Date        string
	Comments    int
	Stars       string
	RatingLabel string
	HasRatings  bool
}

func newItemView(it model.ListingWithRating) itemView {
	v := itemView{
		ID:         it.ID,
		Title:      it.Title,
		Permalink:  it.Permalink,
		Categories: it.CategoryLabels(),
		Comments:   it.CommentCount,
		HasRatings: it.Rating.Count > 0,
	}
	if !it.PublishedAt.IsZero() {
		v.Date = it.PublishedAt.Format("Jan 2, 2006")
	}
	if v.HasRatings {
		v.Stars = starString(it.Rating.Average)
		v.RatingLabel = fmt.Sprintf("%.1f (%d)", it.Rating.Average, it.Rating.Count)
	}
	return v
}

// starString は平均値を四捨五入して5つ星表示を生成する。
func starString(average float64) string {
	filled := int(math.Round(average))
	if filled < 0 {
		filled = 0
	}
	if filled > 5 {
		filled = 5
	}
	return strings.Repeat("★", filled) + strings.Repeat("☆", 5-filled)
}

// sortIndicator は3状態のソート矢印を返す。
// 非アクティブカラムは中立、アクティブカラムは昇順/降順の矢印となる。
func sortIndicator(field model.SortField, sort SortState) string {
	if field != sort.Field {
		return "↕"
	}
	if sort.Order == model.SortOrderAsc {
		return "↑"
	}
	return "↓"
}
