package compare

import (
	"context"
	"fmt"

	"github.com/hitoshi/carsearch/internal/model"
	"github.com/hitoshi/carsearch/internal/repository"
)

// Service は比較ビューの表示データを組み立てるサービス。
type Service struct {
	listingRepo repository.ListingRepository
	ratingRepo  repository.RatingRepository
}

// NewService はServiceを生成する。
func NewService(listingRepo repository.ListingRepository, ratingRepo repository.RatingRepository) *Service {
	return &Service{
		listingRepo: listingRepo,
		ratingRepo:  ratingRepo,
	}
}

// Resolve は比較対象のリスティングを評価集計付きで取得する。
// IDは最大4件まで処理し、存在しないIDは結果から除外される。
// すべてのIDが存在しない場合や指定が空の場合は空スライスを返す。
func (s *Service) Resolve(ctx context.Context, ids []int64) ([]model.ListingWithRating, error) {
	if len(ids) > MaxItems {
		ids = ids[:MaxItems]
	}
	if len(ids) == 0 {
		return []model.ListingWithRating{}, nil
	}

	listings, err := s.listingRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("比較対象リスティングの取得に失敗しました: %w", err)
	}
	if len(listings) == 0 {
		return []model.ListingWithRating{}, nil
	}

	foundIDs := make([]int64, len(listings))
	for i, l := range listings {
		foundIDs[i] = l.ID
	}
	aggregates, err := s.ratingRepo.AggregateForListings(ctx, foundIDs)
	if err != nil {
		return nil, fmt.Errorf("比較対象の評価集計の取得に失敗しました: %w", err)
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
