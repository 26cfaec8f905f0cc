package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// mockSuggester は補完インデックスのモック。
type mockSuggester struct {
	suggestFunc func(q string) []string
	lastQuery   string
}

func (m *mockSuggester) Suggest(q string) []string {
	m.lastQuery = q
	return m.suggestFunc(q)
}

// TestSuggest_ReturnsWords は補完候補が配列で返ることを検証する。
func TestSuggest_ReturnsWords(t *testing.T) {
	idx := &mockSuggester{
		suggestFunc: func(q string) []string {
			return []string{"sedan", "sedans"}
		},
	}
	h := NewSuggestHandler(idx)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/suggest?q=se", nil)
	w := httptest.NewRecorder()
	h.Suggest(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if idx.lastQuery != "se" {
		t.Errorf("index received query %q, want %q", idx.lastQuery, "se")
	}

	body := strings.TrimSpace(w.Body.String())
	if body != `["sedan","sedans"]` {
		t.Errorf("body = %q, want sorted word array", body)
	}
}

// TestSuggest_EmptyResultIsArrayNotNull は候補なし時にnullではなく[]が返ることを検証する。
func TestSuggest_EmptyResultIsArrayNotNull(t *testing.T) {
	idx := &mockSuggester{
		suggestFunc: func(q string) []string {
			return nil
		},
	}
	h := NewSuggestHandler(idx)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/suggest?q=z", nil)
	w := httptest.NewRecorder()
	h.Suggest(w, req)

	body := strings.TrimSpace(w.Body.String())
	if body != "[]" {
		t.Errorf("body = %q, want []", body)
	}
}
