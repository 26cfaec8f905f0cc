// Package compare は車両リスティングの比較トレイと比較ビューを提供する。
package compare

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/hitoshi/carsearch/internal/model"
)

// MaxItems は比較トレイに入れられるリスティングの最大数。
const MaxItems = 4

// compareIDsParam は比較ページURLのIDリストパラメータ名。
const compareIDsParam = "compare_ids"

// Item は比較トレイの選択1件分。表示用のタイトルをキャッシュとして
// 保持し、トレイの描画でリスティングを再取得せずに済むようにする。
type Item struct {
	ID    int64
	Title string
}

// Tray は比較対象リスティングの選択状態。
// 選択順を保持し、同一IDは1回のみ保持する。
// Trayは並行アクセスに対して安全ではない。呼び出し側（通常は
// クライアント状態機械）が単一ゴルーチンで扱うことを想定する。
type Tray struct {
	items []Item
}

// NewTray は空のTrayを生成する。
func NewTray() *Tray {
	return &Tray{}
}

// Items は選択中のリスティングを選択順で返す。
func (t *Tray) Items() []Item {
	out := make([]Item, len(t.items))
	copy(out, t.items)
	return out
}

// IDs は選択中のリスティングIDを選択順で返す。
func (t *Tray) IDs() []int64 {
	out := make([]int64, len(t.items))
	for i, item := range t.items {
		out[i] = item.ID
	}
	return out
}

// Len は選択中のリスティング数を返す。
func (t *Tray) Len() int {
	return len(t.items)
}

// Contains は指定IDが選択中かを返す。
func (t *Tray) Contains(id int64) bool {
	for _, item := range t.items {
		if item.ID == id {
			return true
		}
	}
	return false
}

// Toggle は指定IDの選択状態を反転する。
// 選択中なら解除し、未選択ならタイトルとともに末尾に追加する。
// 既に4件選択されている状態で5件目を追加しようとした場合は
// トレイを変更せずエラーを返す。
func (t *Tray) Toggle(id int64, title string) error {
	for i, item := range t.items {
		if item.ID == id {
			t.items = append(t.items[:i], t.items[i+1:]...)
			return nil
		}
	}
	if len(t.items) >= MaxItems {
		return model.NewCompareLimitError(MaxItems)
	}
	t.items = append(t.items, Item{ID: id, Title: title})
	return nil
}

// Clear はすべての選択を解除する。
func (t *Tray) Clear() {
	t.items = nil
}

// CompareURL は比較ページのURLを生成する。
// basePathは比較ページのパス（例: /compare-vehicles/）。
// 選択が空の場合は空文字を返す。
func (t *Tray) CompareURL(basePath string) string {
	return BuildCompareURL(basePath, t.IDs())
}

// BuildCompareURL は比較ページのURLをID一覧から生成する。
// IDが空の場合は空文字を返す。
func BuildCompareURL(basePath string, ids []int64) string {
	if len(ids) == 0 {
		return ""
	}
	params := url.Values{}
	params.Set(compareIDsParam, joinIDs(ids))
	return basePath + "?" + params.Encode()
}

// ParseCompareIDs はcompare_idsパラメータ値をID一覧に解析する。
// 解析できない要素と重複は読み飛ばし、最大4件に切り詰める。
func ParseCompareIDs(raw string) []int64 {
	var ids []int64
	seen := make(map[int64]struct{})
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
		if len(ids) == MaxItems {
			break
		}
	}
	return ids
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}
