package suggest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/carsearch/internal/repository"
)

// MetricsRecorder は補完インデックスのメトリクスを記録するインターフェース。
type MetricsRecorder interface {
	RecordSuggestIndexSize(size int)
}

type noopMetrics struct{}

func (noopMetrics) RecordSuggestIndexSize(int) {}

// RefresherConfig はRefresherの動作設定。
type RefresherConfig struct {
	// Interval はインデックス再構築の間隔。
	Interval time.Duration
	// ScanLimit は1回の再構築で読み込むタイトルの最大数。
	ScanLimit int
}

// Refresher は補完インデックスを定期的に再構築するバックグラウンドジョブ。
type Refresher struct {
	listingRepo repository.ListingRepository
	index       *Index
	logger      *slog.Logger
	metrics     MetricsRecorder
	config      RefresherConfig
}

// NewRefresher はRefresherを生成する。
func NewRefresher(
	listingRepo repository.ListingRepository,
	index *Index,
	logger *slog.Logger,
	metrics MetricsRecorder,
	config RefresherConfig,
) *Refresher {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Refresher{
		listingRepo: listingRepo,
		index:       index,
		logger:      logger,
		metrics:     metrics,
		config:      config,
	}
}

// Start はインデックス再構築をティッカーで定期実行する。
// コンテキストがキャンセルされるまで実行を継続する。
func (r *Refresher) Start(ctx context.Context) {
	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	r.logger.Info("suggest index refresher started",
		slog.Duration("interval", r.config.Interval),
		slog.Int("scan_limit", r.config.ScanLimit),
	)

	// 起動直後に1回実行
	if err := r.RunOnce(ctx); err != nil {
		r.logger.Error("suggest index rebuild failed",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("suggest index refresher stopped")
			return
		case <-ticker.C:
			if err := r.RunOnce(ctx); err != nil {
				r.logger.Error("suggest index rebuild failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce はインデックスを1回再構築する。
func (r *Refresher) RunOnce(ctx context.Context) error {
	start := time.Now()

	titles, err := r.listingRepo.ListTitles(ctx, r.config.ScanLimit)
	if err != nil {
		return fmt.Errorf("タイトル一覧の取得に失敗しました: %w", err)
	}

	r.index.Rebuild(titles)
	r.metrics.RecordSuggestIndexSize(r.index.Size())

	r.logger.Info("suggest index rebuilt",
		slog.Int("titles", len(titles)),
		slog.Int("words", r.index.Size()),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}
