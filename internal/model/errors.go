package model

import (
	"errors"
	"fmt"
)

// ErrSearchUnavailable はリポジトリまたは評価ストアの障害により
// 検索を実行できなかったことを表すセンチネルエラー。
// 「一致なし」と「バックエンド障害」を呼び出し側で区別するために使用する。
var ErrSearchUnavailable = errors.New("search backend unavailable")

// ErrDuplicateRating は同一fingerprintからの重複評価投稿を表すセンチネルエラー。
// 一意制約違反をリポジトリが変換して返す。
var ErrDuplicateRating = errors.New("duplicate rating submission")

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, rating, search, compare, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidRating     = "INVALID_RATING"
	ErrCodeDuplicateRating   = "DUPLICATE_RATING"
	ErrCodeListingNotFound   = "LISTING_NOT_FOUND"
	ErrCodeSearchUnavailable = "SEARCH_UNAVAILABLE"
	ErrCodeCompareLimit      = "COMPARE_LIMIT"
	ErrCodeInvalidRequest    = "INVALID_REQUEST"
)

// NewInvalidRatingError は評価値または対象リスティングが無効な場合のエラーを生成する。
func NewInvalidRatingError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRating,
		Message:  "評価値または対象リスティングが無効です。",
		Category: "validation",
		Action:   "評価値は1から5の整数で、有効なリスティングIDを指定してください。",
	}
}

// NewDuplicateRatingError は同一fingerprintからの重複投稿エラーを生成する。
func NewDuplicateRatingError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateRating,
		Message:  "このリスティングには既に評価を投稿済みです。",
		Category: "rating",
		Action:   "1つのリスティングに投稿できる評価は1件のみです。",
	}
}

// NewListingNotFoundError はリスティング未検出エラーを生成する。
func NewListingNotFoundError(listingID int64) *APIError {
	return &APIError{
		Code:     ErrCodeListingNotFound,
		Message:  fmt.Sprintf("指定されたリスティングが見つかりません: %d", listingID),
		Category: "search",
		Action:   "リスティングIDを確認してください。",
	}
}

// NewSearchUnavailableError はバックエンド障害による検索不能エラーを生成する。
// 現在の検索条件は保持したまま再試行を促すメッセージを返す。
func NewSearchUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeSearchUnavailable,
		Message:  "検索バックエンドに接続できませんでした。",
		Category: "search",
		Action:   "検索条件はそのままで、しばらく待ってから再度お試しください。",
	}
}

// NewCompareLimitError は比較トレイの上限超過エラーを生成する。
func NewCompareLimitError(limit int) *APIError {
	return &APIError{
		Code:     ErrCodeCompareLimit,
		Message:  fmt.Sprintf("比較できるリスティングは最大%d件です。", limit),
		Category: "compare",
		Action:   "比較トレイからリスティングを外してから追加してください。",
	}
}

// NewInvalidRequestError はリクエスト形式エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストの解析に失敗しました: %s", reason),
		Category: "validation",
		Action:   "正しい形式でリクエストしてください。",
	}
}
