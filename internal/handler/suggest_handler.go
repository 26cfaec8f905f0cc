package handler

import (
	"encoding/json"
	"net/http"
)

// Suggester は補完ハンドラーが必要とするインデックスインターフェース。
type Suggester interface {
	// Suggest はクエリに前方一致する単語を昇順で最大10件返す。
	Suggest(q string) []string
}

// SuggestHandler はキーワード補完のHTTPハンドラー。
type SuggestHandler struct {
	index Suggester
}

// NewSuggestHandler はSuggestHandlerを生成する。
func NewSuggestHandler(index Suggester) *SuggestHandler {
	return &SuggestHandler{index: index}
}

// Suggest はキーワード補完候補を取得する。
// GET /api/v1/suggest?q=se
// 候補が無い場合も空配列を返す（nullにはしない）。
func (h *SuggestHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	words := h.index.Suggest(r.URL.Query().Get("q"))
	if words == nil {
		words = []string{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(words)
}
