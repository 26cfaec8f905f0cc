package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/hitoshi/carsearch/internal/middleware"
	"github.com/hitoshi/carsearch/internal/model"
)

// RatingServiceInterface は評価ハンドラーが必要とするサービスインターフェース。
type RatingServiceInterface interface {
	// Submit は評価投稿を1件受理する。
	// 同一フィンガープリントからの同一リスティングへの再投稿は拒否される。
	Submit(ctx context.Context, listingID int64, value int, fingerprint string) error
	// Get はリスティングの評価集計を返す。評価が無い場合は平均0・件数0。
	Get(ctx context.Context, listingID int64) (model.RatingAggregate, error)
}

// RatingHandler は評価投稿・取得のHTTPハンドラー。
type RatingHandler struct {
	service RatingServiceInterface
}

// NewRatingHandler はRatingHandlerを生成する。
func NewRatingHandler(service RatingServiceInterface) *RatingHandler {
	return &RatingHandler{service: service}
}

// ratingSubmitRequest は評価投稿リクエストのボディ。
type ratingSubmitRequest struct {
	PostID int64 `json:"post_id"`
	Rating int   `json:"rating"`
}

// ratingSubmitResponse は評価投稿成功のレスポンス。
type ratingSubmitResponse struct {
	Success bool `json:"success"`
}

// ratingAggregateResponse は評価集計のレスポンス。
type ratingAggregateResponse struct {
	Avg   float64 `json:"avg"`
	Count int     `json:"count"`
}

// Submit は評価を投稿する。
// POST /api/v1/ratings  body: {"post_id": 7, "rating": 4}
// フィンガープリントはリクエスト送信元のIPから導出される。
func (h *RatingHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req ratingSubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディの解析に失敗しました。"))
		return
	}

	fingerprint := middleware.Fingerprint(r)
	if err := h.service.Submit(r.Context(), req.PostID, req.Rating, fingerprint); err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ratingSubmitResponse{Success: true})
}

// Get はリスティングの評価集計を取得する。
// GET /api/v1/ratings?post_id=7
func (h *RatingHandler) Get(w http.ResponseWriter, r *http.Request) {
	listingID, err := strconv.ParseInt(r.URL.Query().Get("post_id"), 10, 64)
	if err != nil || listingID <= 0 {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("post_idには正の整数を指定してください。"))
		return
	}

	agg, err := h.service.Get(r.Context(), listingID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ratingAggregateResponse{
		Avg:   agg.Average,
		Count: agg.Count,
	})
}
