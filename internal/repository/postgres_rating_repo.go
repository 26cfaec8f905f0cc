package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/carsearch/internal/model"
)

// PostgresRatingRepo はPostgreSQLを使用した評価リポジトリ。
// 評価行は追記専用で、集計値は問い合わせのたびに再計算される。
type PostgresRatingRepo struct {
	db *sql.DB
}

// NewPostgresRatingRepo はPostgresRatingRepoを生成する。
func NewPostgresRatingRepo(db *sql.DB) *PostgresRatingRepo {
	return &PostgresRatingRepo{db: db}
}

// Insert は評価投稿を1件追加する。
// 重複判定はread-then-writeではなく一意制約によるアトミックな
// check-and-insertで行う。ON CONFLICT DO NOTHINGで挿入されなかった場合は
// 同一(listing_id, fingerprint)の行が既に存在するためmodel.ErrDuplicateRatingを返す。
func (r *PostgresRatingRepo) Insert(ctx context.Context, rating *model.Rating) error {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO ratings (id, listing_id, rating, fingerprint, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT ON CONSTRAINT ratings_listing_fingerprint_key DO NOTHING`,
		rating.ID, rating.ListingID, rating.Value, rating.Fingerprint, rating.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("評価の保存に失敗しました: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("評価の保存結果の確認に失敗しました: %w", err)
	}
	if affected == 0 {
		return model.ErrDuplicateRating
	}

	return nil
}

// Aggregate は指定リスティングの評価集計を返す。
// 評価が1件もない場合はAVGがNULLとなるため、Average==0、Count==0を返す。
func (r *PostgresRatingRepo) Aggregate(ctx context.Context, listingID int64) (model.RatingAggregate, error) {
	var avg sql.NullFloat64
	var count int

	err := r.db.QueryRowContext(ctx,
		`SELECT ROUND(AVG(rating)::numeric, 1), COUNT(*)
		 FROM ratings WHERE listing_id = $1`,
		listingID,
	).Scan(&avg, &count)
	if err != nil {
		return model.RatingAggregate{}, fmt.Errorf("評価集計の取得に失敗しました: %w", err)
	}

	agg := model.RatingAggregate{Count: count}
	if avg.Valid {
		agg.Average = avg.Float64
	}

	return agg, nil
}

// AggregateForListings は複数リスティングの評価集計を一括で返す。
// 評価のないリスティングはマップに含まれない。
func (r *PostgresRatingRepo) AggregateForListings(ctx context.Context, listingIDs []int64) (map[int64]model.RatingAggregate, error) {
	result := make(map[int64]model.RatingAggregate, len(listingIDs))
	if len(listingIDs) == 0 {
		return result, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT listing_id, ROUND(AVG(rating)::numeric, 1), COUNT(*)
		 FROM ratings
		 WHERE listing_id = ANY($1)
		 GROUP BY listing_id`,
		pq.Array(listingIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("評価集計の一括取得に失敗しました: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var listingID int64
		var agg model.RatingAggregate
		if err := rows.Scan(&listingID, &agg.Average, &agg.Count); err != nil {
			return nil, fmt.Errorf("評価集計行の読み取りに失敗しました: %w", err)
		}
		result[listingID] = agg
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("評価集計の走査に失敗しました: %w", err)
	}

	return result, nil
}

// compile-time interface check
var _ RatingRepository = (*PostgresRatingRepo)(nil)
