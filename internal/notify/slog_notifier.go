package notify

import (
	"context"
	"log/slog"
)

// SlogNotifier は構造化ログへ通知を書き出すNotifier実装。
// 配送チャネルが未設定の環境でのデフォルト実装。
type SlogNotifier struct {
	logger *slog.Logger
}

// NewSlogNotifier はSlogNotifierを生成する。loggerがnilの場合はslog.Default()を使う。
func NewSlogNotifier(logger *slog.Logger) *SlogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogNotifier{logger: logger}
}

// NotifyLevelUp はレベルアップをログに記録する。
func (n *SlogNotifier) NotifyLevelUp(ctx context.Context, event LevelUpEvent) {
	n.logger.Info("レベルアップ通知",
		slog.String("user_id", event.UserID),
		slog.Int("level", event.Level),
	)
}

// NotifyAchievement は実績解除をログに記録する。
func (n *SlogNotifier) NotifyAchievement(ctx context.Context, event AchievementEvent) {
	n.logger.Info("実績解除通知",
		slog.String("user_id", event.UserID),
		slog.String("code", event.Code),
		slog.Int("points", event.Points),
	)
}

// compile-time interface check
var _ Notifier = (*SlogNotifier)(nil)
