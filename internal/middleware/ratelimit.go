package middleware

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/carsearch/internal/model"
)

// RateLimiterConfig はレート制限の設定を保持する。
type RateLimiterConfig struct {
	GeneralRate     rate.Limit    // API全般のレート（req/sec）。120/60 = 2 req/sec
	GeneralBurst    int           // API全般のバーストサイズ
	RatingRate      rate.Limit    // 評価投稿のレート（req/sec）。10/60
	RatingBurst     int           // 評価投稿のバーストサイズ
	CleanupInterval time.Duration // 期限切れエントリのクリーンアップ間隔
}

// DefaultRateLimiterConfig はデフォルトのレート制限設定を返す。
// API全般 120 req/min、評価投稿 10 req/min（いずれもフィンガープリント単位）
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     rate.Limit(120.0 / 60.0), // 2 req/sec
		GeneralBurst:    120,
		RatingRate:      rate.Limit(10.0 / 60.0), // ~0.167 req/sec
		RatingBurst:     10,
		CleanupInterval: 5 * time.Minute,
	}
}

// clientLimiter はフィンガープリントごとのレートリミッターとアクセス時刻を保持する。
type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter はフィンガープリントごとのレート制限を管理する。
// API全般のレート制限と評価投稿のレート制限の2種類を提供する。
type RateLimiter struct {
	config RateLimiterConfig

	generalMu       sync.RWMutex
	generalLimiters map[string]*clientLimiter

	ratingMu       sync.RWMutex
	ratingLimiters map[string]*clientLimiter

	stopCh chan struct{}
}

// NewRateLimiter は新しいRateLimiterを生成する。
// バックグラウンドで期限切れエントリのクリーンアップを開始する。
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	rl := &RateLimiter{
		config:          config,
		generalLimiters: make(map[string]*clientLimiter),
		ratingLimiters:  make(map[string]*clientLimiter),
		stopCh:          make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

// GeneralMiddleware はAPI全般のレート制限ミドルウェアを返す。
// 制限はリクエストのフィンガープリント（クライアントIP）単位で適用される。
func (rl *RateLimiter) GeneralMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fingerprint := Fingerprint(r)
			limiter := rl.getOrCreateGeneralLimiter(fingerprint)

			if !limiter.Allow() {
				writeRateLimitResponse(w, rl.config.GeneralRate)
				slog.Warn("rate limit exceeded",
					slog.String("fingerprint", fingerprint),
					slog.String("limit_type", "general"),
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RatingMiddleware は評価投稿専用のレート制限ミドルウェアを返す。
// API全般のレート制限とは独立に動作する。
func (rl *RateLimiter) RatingMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fingerprint := Fingerprint(r)
			limiter := rl.getOrCreateRatingLimiter(fingerprint)

			if !limiter.Allow() {
				writeRateLimitResponse(w, rl.config.RatingRate)
				slog.Warn("rate limit exceeded",
					slog.String("fingerprint", fingerprint),
					slog.String("limit_type", "rating"),
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GeneralLimiterCount は現在管理されているAPI全般リミッターのエントリ数を返す。
// テストおよびメトリクス用。
func (rl *RateLimiter) GeneralLimiterCount() int {
	rl.generalMu.RLock()
	defer rl.generalMu.RUnlock()
	return len(rl.generalLimiters)
}

// RatingLimiterCount は現在管理されている評価投稿リミッターのエントリ数を返す。
// テストおよびメトリクス用。
func (rl *RateLimiter) RatingLimiterCount() int {
	rl.ratingMu.RLock()
	defer rl.ratingMu.RUnlock()
	return len(rl.ratingLimiters)
}

// getOrCreateGeneralLimiter はフィンガープリントのAPI全般リミッターを取得または作成する。
func (rl *RateLimiter) getOrCreateGeneralLimiter(fingerprint string) *rate.Limiter {
	rl.generalMu.RLock()
	cl, exists := rl.generalLimiters[fingerprint]
	rl.generalMu.RUnlock()

	if exists {
		rl.generalMu.Lock()
		cl.lastAccess = time.Now()
		rl.generalMu.Unlock()
		return cl.limiter
	}

	rl.generalMu.Lock()
	defer rl.generalMu.Unlock()

	// ダブルチェック
	if cl, exists := rl.generalLimiters[fingerprint]; exists {
		cl.lastAccess = time.Now()
		return cl.limiter
	}

	limiter := rate.NewLimiter(rl.config.GeneralRate, rl.config.GeneralBurst)
	rl.generalLimiters[fingerprint] = &clientLimiter{
		limiter:    limiter,
		lastAccess: time.Now(),
	}

	return limiter
}

// getOrCreateRatingLimiter はフィンガープリントの評価投稿リミッターを取得または作成する。
func (rl *RateLimiter) getOrCreateRatingLimiter(fingerprint string) *rate.Limiter {
	rl.ratingMu.RLock()
	cl, exists := rl.ratingLimiters[fingerprint]
	rl.ratingMu.RUnlock()

	if exists {
		rl.ratingMu.Lock()
		cl.lastAccess = time.Now()
		rl.ratingMu.Unlock()
		return cl.limiter
	}

	rl.ratingMu.Lock()
	defer rl.ratingMu.Unlock()

	// ダブルチェック
	if cl, exists := rl.ratingLimiters[fingerprint]; exists {
		cl.lastAccess = time.Now()
		return cl.limiter
	}

	limiter := rate.NewLimiter(rl.config.RatingRate, rl.config.RatingBurst)
	rl.ratingLimiters[fingerprint] = &clientLimiter{
		limiter:    limiter,
		lastAccess: time.Now(),
	}

	return limiter
}

// cleanupLoop はバックグラウンドで期限切れエントリを定期的にクリーンアップする。
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup は最終アクセス時刻がCleanupIntervalの2倍を超えたエントリを削除する。
func (rl *RateLimiter) cleanup() {
	ttl := rl.config.CleanupInterval * 2

	now := time.Now()

	rl.generalMu.Lock()
	for fingerprint, cl := range rl.generalLimiters {
		if now.Sub(cl.lastAccess) > ttl {
			delete(rl.generalLimiters, fingerprint)
		}
	}
	rl.generalMu.Unlock()

	rl.ratingMu.Lock()
	for fingerprint, cl := range rl.ratingLimiters {
		if now.Sub(cl.lastAccess) > ttl {
			delete(rl.ratingLimiters, fingerprint)
		}
	}
	rl.ratingMu.Unlock()
}

// writeRateLimitResponse は429 Too Many Requestsレスポンスを書き込む。
// Retry-Afterヘッダーにはトークンが補充されるまでの推定秒数を設定する。
func writeRateLimitResponse(w http.ResponseWriter, r rate.Limit) {
	// Retry-Afterの算出: 1トークンが補充されるまでの秒数
	retryAfterSec := int(math.Ceil(1.0 / float64(r)))
	if retryAfterSec < 1 {
		retryAfterSec = 1
	}

	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSec))
	WriteErrorResponse(w, http.StatusTooManyRequests, &model.APIError{
		Code:     "RATE_LIMIT_EXCEEDED",
		Message:  "リクエストが多すぎます。しばらく待ってから再度お試しください。",
		Category: "system",
		Action:   "Retry-Afterに示された秒数の後に再試行してください。",
	})
}
