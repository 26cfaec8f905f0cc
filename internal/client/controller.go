// Package client はブラウザ側検索UIの状態機械をサーバサイドで表現する。
//
// 状態はControllerが保持する単一のStateに集約され、グローバル変数を
// 介した共有は行わない。描画・履歴・ネットワークは小さなポート
// インターフェースとして注入され、遷移ロジック自体はブラウザ環境
// なしでテストできる。
package client

import (
	"context"
	"net/url"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/hitoshi/carsearch/internal/model"
	"github.com/hitoshi/carsearch/internal/query"
	"github.com/hitoshi/carsearch/internal/render"
	"github.com/hitoshi/carsearch/internal/suggest"
)

// デバウンス間隔
const (
	// SuggestDebounce はキー入力から補完リクエストまでの待機時間。
	SuggestDebounce = 250 * time.Millisecond
	// ResizeDebounce はリサイズイベントの待機時間。
	ResizeDebounce = 120 * time.Millisecond
)

// Fetcher は検索結果の取得ポート。
type Fetcher interface {
	Fetch(ctx context.Context, q model.SearchQuery) (*model.ResultPage, error)
}

// SuggestFetcher はキーワード補完の取得ポート。
type SuggestFetcher interface {
	Suggest(ctx context.Context, q string) ([]string, error)
}

// History はブラウザ履歴への反映ポート。
// rawQueryはURLクエリ文字列（例: "paged=2&s=sedan"）。
type History interface {
	Push(rawQuery string)
}

// Presenter は表示面への反映ポート。
type Presenter interface {
	ShowLoading()
	ShowResults(html string)
	ShowError(message string)
	ShowSuggestions(words []string)
}

// State は検索UIの可視状態。
type State struct {
	Page          int
	MaxPages      int
	Keyword       string
	Category      string
	SortField     model.SortField
	SortOrder     model.SortOrder
	View          render.ViewMode
	ViewportWidth int
	// LastResultPage はビュー切り替え時の再描画用キャッシュ。
	LastResultPage *model.ResultPage
}

// Controller は検索UIの遷移を実行する状態機械。
// 非同期応答がイベント順と逆に解決しても、各リクエストに付与した
// 単調増加のシーケンス番号で古い応答を破棄する。
type Controller struct {
	mu    sync.Mutex
	state State

	builder  *query.Builder
	renderer *render.Renderer
	fetcher  Fetcher
	suggest  SuggestFetcher
	history  History
	view     Presenter

	fetchSeq   uint64
	suggestSeq uint64

	suggestTimer *time.Timer
	resizeTimer  *time.Timer
}

// NewController はControllerを生成する。
// viewportWidthは初期ビューポート幅。
func NewController(
	builder *query.Builder,
	renderer *render.Renderer,
	fetcher Fetcher,
	suggest SuggestFetcher,
	history History,
	view Presenter,
	viewportWidth int,
) *Controller {
	return &Controller{
		builder:  builder,
		renderer: renderer,
		fetcher:  fetcher,
		suggest:  suggest,
		history:  history,
		view:     view,
		state: State{
			Page:          1,
			MaxPages:      1,
			SortField:     model.SortFieldDate,
			SortOrder:     model.SortOrderDesc,
			View:          render.ViewGrid,
			ViewportWidth: viewportWidth,
		},
	}
}

// State は現在の状態のコピーを返す。
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Initialize はURLクエリから状態を復元する。
// 検索に関わるパラメータ（keyword/category/page>1/明示ソート）が
// 1つでも存在する場合のみ取得を行い、素のランディングでは何もしない。
func (c *Controller) Initialize(ctx context.Context, rawQuery string) {
	params, err := url.ParseQuery(rawQuery)
	if err != nil {
		params = url.Values{}
	}
	q := c.builder.Build(params)

	c.mu.Lock()
	c.applyQuery(q)
	c.mu.Unlock()

	if q.Keyword != "" || q.Category != "" || q.Page > 1 ||
		params.Get("orderby") != "" || params.Get("order") != "" {
		c.startFetch(ctx, false)
	}
}

// UserSearch はキーワード・カテゴリ検索を実行する。
// ページは1にリセットし、現在のソートは維持する。
func (c *Controller) UserSearch(ctx context.Context, keyword, category string) {
	c.mu.Lock()
	c.state.Keyword = keyword
	c.state.Category = category
	c.state.Page = 1
	c.mu.Unlock()

	c.startFetch(ctx, true)
}

// SortToggle はカラムヘッダのクリックを処理する。
// 同一フィールドなら方向を反転し、別フィールドならそのフィールドの
// デフォルト方向に切り替える。いずれの場合もページは1に戻す。
func (c *Controller) SortToggle(ctx context.Context, field model.SortField) {
	c.mu.Lock()
	if field == c.state.SortField {
		if c.state.SortOrder == model.SortOrderAsc {
			c.state.SortOrder = model.SortOrderDesc
		} else {
			c.state.SortOrder = model.SortOrderAsc
		}
	} else {
		c.state.SortField = field
		c.state.SortOrder = model.DefaultOrderFor(field)
	}
	c.state.Page = 1
	c.mu.Unlock()

	c.startFetch(ctx, true)
}

// PageChange はページ移動を処理する。
// 範囲外へはクランプし、境界で変化しない場合は取得を行わない。
func (c *Controller) PageChange(ctx context.Context, delta int) {
	c.mu.Lock()
	next := c.state.Page + delta
	if next < 1 {
		next = 1
	}
	if next > c.state.MaxPages {
		next = c.state.MaxPages
	}
	if next == c.state.Page {
		c.mu.Unlock()
		return
	}
	c.state.Page = next
	c.mu.Unlock()

	c.startFetch(ctx, true)
}

// GoToPage は指定ページへ直接移動する。
func (c *Controller) GoToPage(ctx context.Context, page int) {
	c.mu.Lock()
	if page < 1 {
		page = 1
	}
	if page > c.state.MaxPages {
		page = c.state.MaxPages
	}
	if page == c.state.Page {
		c.mu.Unlock()
		return
	}
	c.state.Page = page
	c.mu.Unlock()

	c.startFetch(ctx, true)
}

// ViewToggle はグリッド/リスト切り替えを処理する。
// モバイル幅では無視される。取得は行わず、キャッシュから再描画する。
func (c *Controller) ViewToggle() {
	c.mu.Lock()
	if c.state.ViewportWidth <= render.MobileBreakpoint {
		c.mu.Unlock()
		return
	}
	if c.state.View == render.ViewGrid {
		c.state.View = render.ViewList
	} else {
		c.state.View = render.ViewGrid
	}
	c.mu.Unlock()

	c.rerenderFromCache()
}

// ViewportResize はビューポート幅の変更を処理する。
// 連続リサイズはデバウンスし、モバイル境界を跨いだ場合のみ
// キャッシュから再描画する。
func (c *Controller) ViewportResize(width int) {
	c.mu.Lock()
	if c.resizeTimer != nil {
		c.resizeTimer.Stop()
	}
	c.resizeTimer = time.AfterFunc(ResizeDebounce, func() {
		c.applyResize(width)
	})
	c.mu.Unlock()
}

func (c *Controller) applyResize(width int) {
	c.mu.Lock()
	prev := c.state.ViewportWidth
	c.state.ViewportWidth = width
	crossed := (prev <= render.MobileBreakpoint) != (width <= render.MobileBreakpoint)
	c.mu.Unlock()

	if crossed {
		c.rerenderFromCache()
	}
}

// PopState はブラウザの戻る/進むを処理する。
// URLを再解析して状態を置き換え、無条件に取得する。
func (c *Controller) PopState(ctx context.Context, rawQuery string) {
	params, err := url.ParseQuery(rawQuery)
	if err != nil {
		params = url.Values{}
	}
	q := c.builder.Build(params)

	c.mu.Lock()
	c.applyQuery(q)
	c.mu.Unlock()

	// 履歴遷移はURLが既に変わっているためpushしない
	c.startFetch(ctx, false)
}

// KeywordInput はキーワード欄への入力を処理する。
// 2文字以上の入力を250msデバウンスして補完を取得する。
func (c *Controller) KeywordInput(ctx context.Context, text string) {
	c.mu.Lock()
	if c.suggestTimer != nil {
		c.suggestTimer.Stop()
	}
	if utf8.RuneCountInString(text) < suggest.MinQueryLength {
		c.mu.Unlock()
		c.view.ShowSuggestions(nil)
		return
	}
	seq := c.suggestSeq + 1
	c.suggestSeq = seq
	c.suggestTimer = time.AfterFunc(SuggestDebounce, func() {
		c.fetchSuggestions(ctx, seq, text)
	})
	c.mu.Unlock()
}

func (c *Controller) fetchSuggestions(ctx context.Context, seq uint64, text string) {
	words, err := c.suggest.Suggest(ctx, text)
	if err != nil {
		// 補完は補助機能のため失敗しても通知しない
		return
	}

	c.mu.Lock()
	stale := seq != c.suggestSeq
	c.mu.Unlock()
	if stale {
		return
	}
	c.view.ShowSuggestions(words)
}

// applyQuery は正規化済みクエリを状態に反映する。呼び出し側がロックを握る。
func (c *Controller) applyQuery(q model.SearchQuery) {
	c.state.Keyword = q.Keyword
	c.state.Category = q.Category
	c.state.Page = q.Page
	c.state.SortField = q.SortField
	c.state.SortOrder = q.SortOrder
}

// currentQuery は状態から検索クエリを組み立てる。呼び出し側がロックを握る。
func (c *Controller) currentQuery() model.SearchQuery {
	return model.SearchQuery{
		Page:      c.state.Page,
		PageSize:  c.builder.PageSizeDefault(),
		SortField: c.state.SortField,
		SortOrder: c.state.SortOrder,
		OrderKey:  query.OrderKeyFor(c.state.SortField),
		Keyword:   c.state.Keyword,
		Category:  c.state.Category,
	}
}

// startFetch は検索取得を開始する。
// pushURLがtrueの場合は現在状態を履歴に反映する。
// 応答の適用はシーケンス番号が最新の場合に限られる。
func (c *Controller) startFetch(ctx context.Context, pushURL bool) {
	c.mu.Lock()
	c.fetchSeq++
	seq := c.fetchSeq
	q := c.currentQuery()
	c.mu.Unlock()

	if pushURL {
		c.history.Push(query.Encode(q).Encode())
	}
	c.view.ShowLoading()

	go func() {
		page, err := c.fetcher.Fetch(ctx, q)
		c.applyFetchResult(seq, page, err)
	}()
}

// applyFetchResult は取得結果を状態と表示に反映する。
// 古い応答（seqが最新でない）は状態を変更せずに破棄される。
func (c *Controller) applyFetchResult(seq uint64, page *model.ResultPage, err error) {
	c.mu.Lock()
	if seq != c.fetchSeq {
		c.mu.Unlock()
		return
	}
	if err != nil {
		c.mu.Unlock()
		// フィルタは維持したまま再試行を促す
		c.view.ShowError("Search is temporarily unavailable. Please try again.")
		return
	}

	c.state.LastResultPage = page
	c.state.MaxPages = page.TotalPages
	c.state.Page = page.CurrentPage
	html, renderErr := c.renderer.Render(page, c.state.View, c.state.ViewportWidth, render.SortState{
		Field: c.state.SortField,
		Order: c.state.SortOrder,
	})
	c.mu.Unlock()

	if renderErr != nil {
		c.view.ShowError("Search is temporarily unavailable. Please try again.")
		return
	}
	c.view.ShowResults(html)
}

// rerenderFromCache はキャッシュ済み結果を現在のビュー設定で再描画する。
// キャッシュがない場合は何もしない。
func (c *Controller) rerenderFromCache() {
	c.mu.Lock()
	page := c.state.LastResultPage
	if page == nil {
		c.mu.Unlock()
		return
	}
	html, err := c.renderer.Render(page, c.state.View, c.state.ViewportWidth, render.SortState{
		Field: c.state.SortField,
		Order: c.state.SortOrder,
	})
	c.mu.Unlock()

	if err != nil {
		return
	}
	c.view.ShowResults(html)
}
