package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/carsearch/internal/model"
)

// CategoryListerInterface はカテゴリハンドラーが必要とするインターフェース。
type CategoryListerInterface interface {
	// ListCategories は掲載数1件以上のカテゴリを名前昇順で返す。
	ListCategories(ctx context.Context) ([]model.Category, error)
}

// CategoryHandler はカテゴリ一覧のHTTPハンドラー。
type CategoryHandler struct {
	lister CategoryListerInterface
}

// NewCategoryHandler はCategoryHandlerを生成する。
func NewCategoryHandler(lister CategoryListerInterface) *CategoryHandler {
	return &CategoryHandler{lister: lister}
}

// categoryResponse はカテゴリ1件分のレスポンス。
type categoryResponse struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Count int    `json:"count"`
}

// List はカテゴリ一覧を取得する。
// GET /api/v1/categories
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := h.lister.ListCategories(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]categoryResponse, len(categories))
	for i, c := range categories {
		resp[i] = categoryResponse{
			ID:    c.ID,
			Name:  c.Name,
			Slug:  c.Slug,
			Count: c.Count,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
