// Package rating は評価投稿の受付と集計読み取りを提供する。
package rating

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/carsearch/internal/model"
	"github.com/hitoshi/carsearch/internal/repository"
)

// MetricsRecorder は評価メトリクスの記録インターフェース。
type MetricsRecorder interface {
	// RecordRatingAccepted は評価投稿の受理を記録する。
	RecordRatingAccepted()
	// RecordRatingDuplicate は重複による拒否を記録する。
	RecordRatingDuplicate()
}

// noopMetrics はメトリクス未設定時のレコーダー。
type noopMetrics struct{}

func (noopMetrics) RecordRatingAccepted()  {}
func (noopMetrics) RecordRatingDuplicate() {}

// Service は評価投稿の検証・重複拒否・集計読み取りを行うサービス。
//
// 重複判定のキーはfingerprint（クライアントIP）のみであり、
// 共有IP配下の別ユーザーを誤って拒否しうる粗い識別子である。
// 全エンドポイントが匿名公開のため、これ以上強い識別子は持たない。
type Service struct {
	listingRepo repository.ListingRepository
	ratingRepo  repository.RatingRepository
	metrics     MetricsRecorder
	now         func() time.Time
}

// NewService はServiceを生成する。metricsがnilの場合は記録を行わない。
func NewService(listingRepo repository.ListingRepository, ratingRepo repository.RatingRepository, metrics MetricsRecorder) *Service {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Service{
		listingRepo: listingRepo,
		ratingRepo:  ratingRepo,
		metrics:     metrics,
		now:         time.Now,
	}
}

// Submit は評価投稿を1件受け付ける。
//
// 評価値が1〜5の範囲外、または対象リスティングが存在しない場合は
// model.APIError（validation）を返す。同一fingerprintからの重複投稿は
// model.APIError（rating/DUPLICATE_RATING）を返し、既存の評価は変更しない。
// 重複判定はストレージ層の一意制約で直列化されるため、同時投稿の
// 競合でも二重登録は起こらない。
func (s *Service) Submit(ctx context.Context, listingID int64, value int, fingerprint string) error {
	if !model.ValidRatingValue(value) || listingID <= 0 {
		return model.NewInvalidRatingError()
	}

	listing, err := s.listingRepo.FindByID(ctx, listingID)
	if err != nil {
		return fmt.Errorf("評価対象リスティングの確認に失敗しました: %w", err)
	}
	if listing == nil {
		return model.NewListingNotFoundError(listingID)
	}

	r := &model.Rating{
		ID:          uuid.NewString(),
		ListingID:   listingID,
		Value:       value,
		Fingerprint: fingerprint,
		CreatedAt:   s.now(),
	}

	if err := s.ratingRepo.Insert(ctx, r); err != nil {
		if err == model.ErrDuplicateRating {
			s.metrics.RecordRatingDuplicate()
			return model.NewDuplicateRatingError()
		}
		return fmt.Errorf("評価の保存に失敗しました: %w", err)
	}

	s.metrics.RecordRatingAccepted()
	return nil
}

// Get は指定リスティングの評価集計を返す。
// 評価が1件もない場合はAverage==0、Count==0を返す（エラーではない）。
func (s *Service) Get(ctx context.Context, listingID int64) (model.RatingAggregate, error) {
	if listingID <= 0 {
		return model.RatingAggregate{}, model.NewInvalidRatingError()
	}

	agg, err := s.ratingRepo.Aggregate(ctx, listingID)
	if err != nil {
		return model.RatingAggregate{}, fmt.Errorf("評価集計の取得に失敗しました: %w", err)
	}

	return agg, nil
}
