// Package worker はバックグラウンドジョブのスケジューリングを提供する。
package worker

import (
	"context"
	"log/slog"
	"time"
)

// Job は定期実行されるバッチジョブのインターフェース。
type Job interface {
	Run(ctx context.Context) error
}

// Scheduler は単一ジョブを一定間隔で実行する。
// コンテキストがキャンセルされるまで実行を継続する。
type Scheduler struct {
	name   string
	job    Job
	logger *slog.Logger
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
func NewScheduler(name string, job Job, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		name:   name,
		job:    job,
		logger: logger,
	}
}

// Start は指定間隔のティッカーでスケジューラを起動する。
// 起動直後に1回実行し、以降はティッカーに従う。
// ジョブの失敗はログに残して次のサイクルへ進む。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("スケジューラを開始しました",
		slog.String("job", s.name),
		slog.Duration("interval", interval),
	)

	// 起動直後に1回実行
	s.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("スケジューラを停止しました", slog.String("job", s.name))
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if err := s.job.Run(ctx); err != nil {
		s.logger.Error("ジョブの実行に失敗しました",
			slog.String("job", s.name),
			slog.String("error", err.Error()),
		)
	}
}
