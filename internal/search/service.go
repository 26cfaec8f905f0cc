// Package search は検索クエリの実行と結果ページの組み立てを提供する。
package search

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/hitoshi/carsearch/internal/model"
	"github.com/hitoshi/carsearch/internal/repository"
)

// defaultRatingSortCandidates は評価ソート時にメモリ上で並び替える候補件数の上限。
const defaultRatingSortCandidates = 3000

// MetricsRecorder は検索メトリクスの記録インターフェース。
type MetricsRecorder interface {
	// RecordSearch は検索成功とそのレイテンシを記録する。
	RecordSearch(sortField string, duration time.Duration)
	// RecordSearchFailure はバックエンド障害による検索失敗を記録する。
	RecordSearchFailure()
}

// noopMetrics はメトリクス未設定時のレコーダー。
type noopMetrics struct{}

func (noopMetrics) RecordSearch(string, time.Duration) {}
func (noopMetrics) RecordSearchFailure()                        {}

// Service は検索の実行と評価集計の付与を行うサービス。
//
// 並び替えの実行方法はフィールドにより異なる:
//   - title/category/date/comments: リスティング行の列に対応するため
//     リポジトリがネイティブに並び替える
//   - rating: 評価はリスティング行に保存されない派生値のため、
//     候補を自然順で取得し、集計を付与した後にメモリ上で安定ソートする
type Service struct {
	listingRepo      repository.ListingRepository
	ratingRepo       repository.RatingRepository
	metrics          MetricsRecorder
	ratingCandidates int
}

// NewService はServiceを生成する。
// metricsがnilの場合は記録を行わない。
// ratingCandidatesが0以下の場合はデフォルト値3000を使用する。
func NewService(
	listingRepo repository.ListingRepository,
	ratingRepo repository.RatingRepository,
	metrics MetricsRecorder,
	ratingCandidates int,
) *Service {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if ratingCandidates <= 0 {
		ratingCandidates = defaultRatingSortCandidates
	}
	return &Service{
		listingRepo:      listingRepo,
		ratingRepo:       ratingRepo,
		metrics:          metrics,
		ratingCandidates: ratingCandidates,
	}
}

// Search は正規化済みクエリを実行し、評価集計付きの結果ページを返す。
//
// ページはtotalが判明した後に[1, totalPages]へクランプされる。最終ページを
// 超えるページ指定はエラーにならず、最後の有効なページを返す。
// リポジトリまたは評価ストアの障害はすべてmodel.ErrSearchUnavailableに
// ラップして伝播する。部分的な縮退（障害時の空結果）は行わない。
func (s *Service) Search(ctx context.Context, q model.SearchQuery) (*model.ResultPage, error) {
	start := time.Now()

	page, err := s.search(ctx, q)
	if err != nil {
		s.metrics.RecordSearchFailure()
		return nil, err
	}

	s.metrics.RecordSearch(string(q.SortField), time.Since(start))
	return page, nil
}

func (s *Service) search(ctx context.Context, q model.SearchQuery) (*model.ResultPage, error) {
	filter := repository.ListingFilter{
		Keyword:  q.Keyword,
		Category: q.Category,
	}

	total, err := s.listingRepo.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrSearchUnavailable, err)
	}

	totalPages := (total + q.PageSize - 1) / q.PageSize
	if totalPages < 1 {
		totalPages = 1
	}

	// 最終ページ超過はエラーではなく最後の有効なページにクランプする
	page := q.Page
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	result := &model.ResultPage{
		Items:       []model.ListingWithRating{},
		TotalItems:  total,
		TotalPages:  totalPages,
		CurrentPage: page,
		PageSize:    q.PageSize,
	}

	if total == 0 {
		return result, nil
	}

	var items []model.ListingWithRating
	if q.SortField.Native() {
		items, err = s.fetchNativePage(ctx, filter, q, page)
	} else {
		items, err = s.fetchRatingSortedPage(ctx, filter, q, page)
	}
	if err != nil {
		return nil, err
	}

	result.Items = items
	return result, nil
}

// fetchNativePage はリポジトリのネイティブ並び替えで1ページ分を取得し、
// 各リスティングに評価集計を付与する。
func (s *Service) fetchNativePage(
	ctx context.Context,
	filter repository.ListingFilter,
	q model.SearchQuery,
	page int,
) ([]model.ListingWithRating, error) {
	offset := (page - 1) * q.PageSize
	listings, err := s.listingRepo.Search(ctx, filter, q.OrderKey, q.SortOrder, q.PageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrSearchUnavailable, err)
	}

	return s.attachRatings(ctx, listings)
}

// fetchRatingSortedPage は評価平均による並び替えページを取得する。
//
// 評価はリスティング行に存在しないため、フィルタ一致分を自然順で
// 取得（上限ratingCandidates件）し、集計を一括付与した後に
// メモリ上で安定ソートしてからページ範囲を切り出す。
// 安定ソートにより、平均が等しいリスティング同士はリポジトリの
// 自然順（新着順）を保ち、同一クエリの再実行で順序が変わらない。
//
// 一致件数が候補窓を超える場合、窓より後ろのページは自然順で
// 取得する。総ページ数は実際の一致件数から算出されるため、
// 窓の外のページも空ではなく有効な内容を返す。
func (s *Service) fetchRatingSortedPage(
	ctx context.Context,
	filter repository.ListingFilter,
	q model.SearchQuery,
	page int,
) ([]model.ListingWithRating, error) {
	candidates, err := s.listingRepo.Search(ctx, filter, "", model.SortOrderDesc, s.ratingCandidates, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrSearchUnavailable, err)
	}

	items, err := s.attachRatings(ctx, candidates)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(items, func(i, j int) bool {
		if q.SortOrder == model.SortOrderAsc {
			return items[i].Rating.Average < items[j].Rating.Average
		}
		return items[i].Rating.Average > items[j].Rating.Average
	})

	// ページ範囲の切り出し
	start := (page - 1) * q.PageSize
	if start >= len(items) {
		// 窓が飽和している場合、このページは窓の外にある有効なページ。
		// 自然順（OrderKeyは空）のまま該当オフセットを取得する。
		if len(candidates) == s.ratingCandidates {
			return s.fetchNativePage(ctx, filter, q, page)
		}
		return []model.ListingWithRating{}, nil
	}
	end := start + q.PageSize
	if end > len(items) {
		end = len(items)
	}

	return items[start:end], nil
}

// attachRatings は各リスティングに評価集計を一括で付与する。
// 評価のないリスティングはAverage==0、Count==0となる。
func (s *Service) attachRatings(ctx context.Context, listings []*model.Listing) ([]model.ListingWithRating, error) {
	ids := make([]int64, len(listings))
	for i, l := range listings {
		ids[i] = l.ID
	}

	aggregates, err := s.ratingRepo.AggregateForListings(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrSearchUnavailable, err)
	}

	items := make([]model.ListingWithRating, len(listings))
	for i, l := range listings {
		items[i] = model.ListingWithRating{
			Listing: *l,
			Rating:  aggregates[l.ID],
		}
	}

	return items, nil
}
