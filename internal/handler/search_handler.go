package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/carsearch/internal/model"
	"github.com/hitoshi/carsearch/internal/query"
	"github.com/hitoshi/carsearch/internal/security"
)

// SearchServiceInterface は検索ハンドラーが必要とするサービスインターフェース。
type SearchServiceInterface interface {
	// Search は正規化済みクエリで検索を実行し、1ページ分の結果を返す。
	Search(ctx context.Context, q model.SearchQuery) (*model.ResultPage, error)
}

// SearchHandler はリスティング検索のHTTPハンドラー。
type SearchHandler struct {
	service   SearchServiceInterface
	builder   *query.Builder
	sanitizer security.ContentSanitizerService
}

// NewSearchHandler はSearchHandlerを生成する。
func NewSearchHandler(service SearchServiceInterface, builder *query.Builder, sanitizer security.ContentSanitizerService) *SearchHandler {
	return &SearchHandler{
		service:   service,
		builder:   builder,
		sanitizer: sanitizer,
	}
}

// --- レスポンス型 ---

// postResponse は検索結果1件分のレスポンス。
type postResponse struct {
	ID        int64   `json:"ID"`
	Title     string  `json:"title"`
	Excerpt   string  `json:"excerpt"`
	Permalink string  `json:"permalink"`
	Category  string  `json:"category"`
	Date      string  `json:"date"`
	Comments  int     `json:"comments"`
	Rating    float64 `json:"rating"`
	Votes     int     `json:"votes"`
}

// searchResponse は検索結果のレスポンス。
type searchResponse struct {
	Total       int            `json:"total"`
	Posts       []postResponse `json:"posts"`
	MaxNumPages int            `json:"max_num_pages"`
	CurrentPage int            `json:"current_page"`
}

// Search はリスティングを検索する。
// GET /api/v1/search?page=1&orderby=date&order=desc&keyword=xxx&category=xxx&per_page=12
// 不正なパラメータはエラーにせずデフォルトに正規化される。
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := h.builder.Build(r.URL.Query())

	page, err := h.service.Search(r.Context(), q)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	posts := make([]postResponse, len(page.Items))
	for i, item := range page.Items {
		posts[i] = h.toPostResponse(item)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(searchResponse{
		Total:       page.TotalItems,
		Posts:       posts,
		MaxNumPages: page.TotalPages,
		CurrentPage: page.CurrentPage,
	})
}

// excerptMaxRunes はレスポンスに含める概要の最大文字数。
const excerptMaxRunes = 160

// plainExcerpt は外部掲載元由来のHTMLをプレーンテキストの概要に変換する。
// サニタイズ後にタグを落とし、最大文字数で切り詰める。
func plainExcerpt(sanitized string) string {
	return security.TruncateText(security.ExtractText(sanitized), excerptMaxRunes)
}

// toPostResponse はリスティングをレスポンス型に変換する。
// 概要は外部掲載元由来のHTMLを含みうるためプレーンテキスト化して返す。
func (h *SearchHandler) toPostResponse(item model.ListingWithRating) postResponse {
	resp := postResponse{
		ID:        item.ID,
		Title:     item.Title,
		Excerpt:   plainExcerpt(h.sanitizer.Sanitize(item.Excerpt)),
		Permalink: item.Permalink,
		Category:  item.Categories,
		Comments:  item.CommentCount,
		Rating:    item.Rating.Average,
		Votes:     item.Rating.Count,
	}
	if !item.PublishedAt.IsZero() {
		resp.Date = item.PublishedAt.Format("2006-01-02")
	}
	return resp
}
