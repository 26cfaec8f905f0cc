// Package model はドメインモデルを定義する。
package model

import (
	"strings"
	"time"
)

// Listing はカタログに掲載される車両リスティングを表す。
// 検索コアからは読み取り専用として扱う。
type Listing struct {
	ID           int64
	Title        string
	Excerpt      string // サニタイズ済みプレーンテキスト
	Content      string // サニタイズ済みHTML
	Categories   string // カンマ区切りのカテゴリラベル（例: "sedan, hybrid"）
	Permalink    string
	Website      string
	PublishedAt  time.Time
	CommentCount int
	Attrs        map[string]string // 構造化属性（走行距離、年式など）
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CategoryLabels はカンマ区切りのカテゴリ文字列を個別のラベルに分割して返す。
// 空要素は除外する。
func (l *Listing) CategoryLabels() []string {
	if l.Categories == "" {
		return nil
	}
	parts := strings.Split(l.Categories, ",")
	labels := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			labels = append(labels, p)
		}
	}
	return labels
}

// ListingWithRating はリスティングと評価集計を結合したモデル。
// 検索結果の1件分として返される。
type ListingWithRating struct {
	Listing
	Rating RatingAggregate
}

// Category はカテゴリファセットの1件分を表す。
// 掲載数が1件以上のカテゴリのみが返される。
type Category struct {
	ID    int
	Name  string
	Slug  string
	Count int
}
