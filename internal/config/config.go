package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Search
	PerPageDefault       int // 検索結果の1ページあたり件数（デフォルト）
	PerPageMax           int // per_pageパラメータの上限
	RatingSortCandidates int // 評価ソート時にメモリ上で並び替える候補件数の上限

	// Suggest
	SuggestRefreshInterval time.Duration // サジェストインデックスの再構築間隔
	SuggestScanLimit       int           // インデックス構築時に走査するタイトル件数の上限

	// Rate Limit（req/min単位）
	RateLimitGeneral int
	RateLimitRating  int

	// Compare
	ComparePagePath string // 比較ビューのパス。compare_idsクエリパラメータを付与して遷移する

	// Server
	ServerPort  string
	MetricsPort string
	BaseURL     string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.PerPageDefault = getEnvInt("PER_PAGE_DEFAULT", 12)
	cfg.PerPageMax = getEnvInt("PER_PAGE_MAX", 100)
	cfg.RatingSortCandidates = getEnvInt("RATING_SORT_CANDIDATES", 3000)
	cfg.SuggestRefreshInterval = getEnvDuration("SUGGEST_REFRESH_INTERVAL", 10*time.Minute)
	cfg.SuggestScanLimit = getEnvInt("SUGGEST_SCAN_LIMIT", 3000)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitRating = getEnvInt("RATE_LIMIT_RATING", 10)
	cfg.ComparePagePath = getEnvString("COMPARE_PAGE_PATH", "/compare-vehicles/")
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.MetricsPort = getEnvString("METRICS_PORT", "9090")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
