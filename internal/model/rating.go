package model

import "time"

// RatingAggregate は1リスティングに対する評価の集計値を表す。
// 生の評価行からオンデマンドで再計算され、キャッシュとして永続化されることはない。
// 評価が1件もない場合はAverage==0、Count==0となる（エラーではなく中立表示）。
type RatingAggregate struct {
	Average float64 // 0〜5、小数第1位まで
	Count   int     // 非負の評価件数
}

// Rating は1件の評価投稿を表す。
// 同一(listing, fingerprint)ペアからの投稿は高々1件であり、
// 重複はデータベースの一意制約で拒否される（上書きはしない）。
type Rating struct {
	ID          string // UUID
	ListingID   int64
	Value       int    // 1〜5の整数
	Fingerprint string // 投稿者識別子（クライアントIP）
	CreatedAt   time.Time
}

const (
	// RatingMin は評価値の下限。
	RatingMin = 1
	// RatingMax は評価値の上限。
	RatingMax = 5
)

// ValidRatingValue は評価値が許容範囲内かどうかを返す。
func ValidRatingValue(v int) bool {
	return v >= RatingMin && v <= RatingMax
}
