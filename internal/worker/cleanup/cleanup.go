// Package cleanup は終了済みゲームの自動破棄ジョブを提供する。
// 保持期間（デフォルト24時間）を超過した終了済みゲームを
// 定期バッチでインメモリストアから削除する。
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/jinro/internal/store"
)

// PurgeRecorder は破棄件数メトリクスを記録するインターフェース。
type PurgeRecorder interface {
	RecordGamesPurged(count int)
}

// Job は保持期間を超過した終了済みゲームの自動破棄ジョブ。
// 定期実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
type Job struct {
	store     *store.Store
	logger    *slog.Logger
	metrics   PurgeRecorder
	Retention time.Duration // 終了済みゲームの保持期間（デフォルト: 24時間）
}

// NewJob は新しいJobを生成する。
// デフォルトの保持期間は24時間。metricsはnilでもよい。
func NewJob(st *store.Store, logger *slog.Logger, metrics PurgeRecorder) *Job {
	return &Job{
		store:     st,
		logger:    logger,
		metrics:   metrics,
		Retention: 24 * time.Hour,
	}
}

// RunOnce は保持期間を超過した終了済みゲームを1回削除する。
// EndedAtがRetention前より古いゲームが対象。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *Job) RunOnce() {
	start := time.Now()

	purged := j.store.PurgeEnded(j.Retention, time.Now())
	if j.metrics != nil && purged > 0 {
		j.metrics.RecordGamesPurged(purged)
	}

	duration := time.Since(start)
	if purged > 0 {
		j.logger.Info("ゲームクリーンアップジョブが完了しました",
			slog.Int("purged_count", purged),
			slog.Duration("retention", j.Retention),
			slog.Float64("duration_ms", float64(duration.Milliseconds())),
		)
	}
}

// Start は指定間隔のティッカーでクリーンアップジョブを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (j *Job) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("ゲームクリーンアップジョブを開始しました",
		slog.Duration("interval", interval),
		slog.Duration("retention", j.Retention),
	)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("ゲームクリーンアップジョブを停止しました")
			return
		case <-ticker.C:
			j.RunOnce()
		}
	}
}
