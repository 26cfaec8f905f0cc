package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/carsearch/internal/middleware"
	"github.com/hitoshi/carsearch/internal/query"
	"github.com/hitoshi/carsearch/internal/security"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	StatusRecorder    middleware.HTTPStatusRecorder

	// ドメインサービス
	SearchService  SearchServiceInterface
	RatingService  RatingServiceInterface
	CompareService CompareServiceInterface
	CategoryLister CategoryListerInterface
	SuggestIndex   Suggester

	// 比較ビューの共有URLを組み立てるベースパス
	ComparePagePath string

	// 共有部品
	QueryBuilder *query.Builder
	Sanitizer    security.ContentSanitizerService

	// ヘルスチェック
	DB Pinger
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → Metrics → RateLimit(General)
//
// /healthはレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	}
	if deps.StatusRecorder != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.StatusRecorder))
	}

	searchHandler := NewSearchHandler(deps.SearchService, deps.QueryBuilder, deps.Sanitizer)
	ratingHandler := NewRatingHandler(deps.RatingService)
	suggestHandler := NewSuggestHandler(deps.SuggestIndex)
	categoryHandler := NewCategoryHandler(deps.CategoryLister)
	compareHandler := NewCompareHandler(deps.CompareService, deps.Sanitizer, deps.ComparePagePath)
	healthHandler := NewHealthHandler(deps.DB)

	// ヘルスチェック（レート制限の対象外）
	r.Get("/health", healthHandler.Health)

	// --- 公開API ---
	// ミドルウェアスタック: RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/search", searchHandler.Search)
			r.Get("/suggest", suggestHandler.Suggest)
			r.Get("/categories", categoryHandler.List)
			r.Get("/compare", compareHandler.Compare)

			r.Route("/ratings", func(r chi.Router) {
				r.Get("/", ratingHandler.Get)
				// POST /api/v1/ratings - 評価投稿（投稿専用レート制限を追加）
				r.With(deps.RateLimiter.RatingMiddleware()).Post("/", ratingHandler.Submit)
			})
		})
	})

	return r
}
