// Package suggest はキーワード自動補完のインメモリインデックスを提供する。
//
// インデックスはリスティングタイトルから抽出した単語の整列済みスナップ
// ショットであり、リクエストごとにタイトルを走査する代わりに
// 定期的に再構築される。スナップショットはRWMutexで保護され、
// 再構築時に丸ごと差し替えられる。
package suggest

import (
	"sort"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

// 補完の動作パラメータ
const (
	// MinWordLength はインデックスに登録する単語の最小長。
	MinWordLength = 3
	// MinQueryLength は補完を実行するクエリの最小文字数（バイト数ではない）。
	MinQueryLength = 2
	// MaxSuggestions は1回の補完で返す候補の最大数。
	MaxSuggestions = 10
)

// DefaultStopwords はインデックスから除外するデフォルトのストップワード。
var DefaultStopwords = []string{
	"the", "an", "and", "or", "but", "if", "then", "so", "for", "of", "on", "at", "by", "with", "a",
}

// Index はタイトル単語の整列済みインデックス。
// すべての公開メソッドは並行呼び出しに対して安全。
type Index struct {
	mu        sync.RWMutex
	words     []string // 小文字・重複なし・昇順
	stopwords map[string]struct{}
}

// NewIndex は空のIndexを生成する。
// stopwordsがnilの場合はDefaultStopwordsを使用する。
func NewIndex(stopwords []string) *Index {
	if stopwords == nil {
		stopwords = DefaultStopwords
	}
	set := make(map[string]struct{}, len(stopwords))
	for _, w := range stopwords {
		set[strings.ToLower(strings.TrimSpace(w))] = struct{}{}
	}
	return &Index{stopwords: set}
}

// Rebuild はタイトル一覧からインデックスを再構築して差し替える。
// 単語は小文字化し、3文字未満とストップワードを除外する。
func (idx *Index) Rebuild(titles []string) {
	seen := make(map[string]struct{})
	for _, title := range titles {
		for _, word := range tokenize(title) {
			if utf8.RuneCountInString(word) < MinWordLength {
				continue
			}
			if _, ok := idx.stopwords[word]; ok {
				continue
			}
			seen[word] = struct{}{}
		}
	}

	words := make([]string, 0, len(seen))
	for w := range seen {
		words = append(words, w)
	}
	sort.Strings(words)

	idx.mu.Lock()
	idx.words = words
	idx.mu.Unlock()
}

// Suggest はクエリに前方一致する単語を昇順で最大10件返す。
// クエリが2文字未満の場合は候補を返さない。
func (idx *Index) Suggest(q string) []string {
	q = strings.ToLower(strings.TrimSpace(q))
	if utf8.RuneCountInString(q) < MinQueryLength {
		return nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	// 整列済みのため前方一致区間を二分探索で特定する
	start := sort.SearchStrings(idx.words, q)

	var results []string
	for i := start; i < len(idx.words) && len(results) < MaxSuggestions; i++ {
		if !strings.HasPrefix(idx.words[i], q) {
			break
		}
		results = append(results, idx.words[i])
	}

	return results
}

// Size は現在のインデックスに登録されている単語数を返す。
func (idx *Index) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.words)
}

// tokenize はタイトルを小文字の単語に分割する。
// 英数字以外の文字をすべて区切りとして扱う。
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
