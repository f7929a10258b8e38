// Package notify はレベルアップ・実績解除の通知ポートを提供する。
//
// 通知はfire-and-forgetの副作用であり、配送失敗はログに記録するのみで
// 呼び出し元のトランザクション結果には決して影響させない。
package notify

import "context"

// LevelUpEvent はレベルアップ通知のペイロード。
type LevelUpEvent struct {
	UserID string `json:"user_id"`
	Level  int    `json:"level"`
}

// AchievementEvent は実績解除通知のペイロード。
type AchievementEvent struct {
	UserID string `json:"user_id"`
	Code   string `json:"code"`
	Name   string `json:"name"`
	Points int    `json:"points"`
}

// Notifier は進行状況の変化をユーザー向け配送チャネルへ伝えるポート。
// 実装はエラーを返さない。失敗は実装側で握りつぶしてログに残す。
type Notifier interface {
	// NotifyLevelUp はレベルアップをユーザーへ通知する。
	NotifyLevelUp(ctx context.Context, event LevelUpEvent)
	// NotifyAchievement は実績解除をユーザーへ通知する。
	NotifyAchievement(ctx context.Context, event AchievementEvent)
}
