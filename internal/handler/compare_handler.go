package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/carsearch/internal/compare"
	"github.com/hitoshi/carsearch/internal/model"
)

// CompareServiceInterface は比較ハンドラーが必要とするサービスインターフェース。
type CompareServiceInterface interface {
	// Resolve は比較対象のリスティングを評価集計付きで最大4件返す。
	Resolve(ctx context.Context, ids []int64) ([]model.ListingWithRating, error)
}

// CompareHandler は比較ビューのHTTPハンドラー。
type CompareHandler struct {
	service   CompareServiceInterface
	sanitizer excerptSanitizer
	pagePath  string
}

type excerptSanitizer interface {
	Sanitize(rawHTML string) string
}

// NewCompareHandler はCompareHandlerを生成する。
// pagePathは比較ビューの共有URLを組み立てるベースパス。
func NewCompareHandler(service CompareServiceInterface, sanitizer excerptSanitizer, pagePath string) *CompareHandler {
	return &CompareHandler{service: service, sanitizer: sanitizer, pagePath: pagePath}
}

// compareResponse は比較ビューのレスポンス。
// 対象が空の場合はエラーではなくMessageに明示的な空状態を設定する。
type compareResponse struct {
	Items      []postResponse `json:"items"`
	CompareURL string         `json:"compare_url,omitempty"`
	Message    string         `json:"message,omitempty"`
}

// Compare は比較対象のリスティングを取得する。
// GET /api/v1/compare?compare_ids=7,3,11
// 不正なIDは読み飛ばされ、最大4件に切り詰められる。
func (h *CompareHandler) Compare(w http.ResponseWriter, r *http.Request) {
	ids := compare.ParseCompareIDs(r.URL.Query().Get("compare_ids"))

	items, err := h.service.Resolve(r.Context(), ids)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := compareResponse{Items: make([]postResponse, len(items))}
	for i, item := range items {
		resp.Items[i] = postResponse{
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
			resp.Items[i].Date = item.PublishedAt.Format("2006-01-02")
		}
	}
	if len(resp.Items) == 0 {
		resp.Message = "No items selected"
	} else {
		resolved := make([]int64, len(items))
		for i, item := range items {
			resolved[i] = item.ID
		}
		resp.CompareURL = compare.BuildCompareURL(h.pagePath, resolved)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
