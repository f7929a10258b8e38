// Package streak はデイリーチャレンジの連続勝利日数の計算を提供する。
//
// ストリークは「敗北を挟まない連続したチャレンジ勝利」を測る。
// プレイしなかった日はストリークを伸ばさないが、途切れさせもしない
// （ギャップ中立）。途切れるのは明示的な敗北のみ。
package streak

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/hitoshi/goalquiz/internal/model"
	"github.com/hitoshi/goalquiz/internal/repository"
)

// historyLimit はストリーク計算で遡るセッションの上限件数。
const historyLimit = 365

// Tracker はセッション履歴からストリークを計算する。
// 読み取り専用の導出計算であり、取得失敗時は0に退避してUI表示を壊さない。
type Tracker struct {
	sessionRepo repository.GameSessionRepository
}

// NewTracker はTrackerの新しいインスタンスを生成する。
func NewTracker(sessionRepo repository.GameSessionRepository) *Tracker {
	return &Tracker{sessionRepo: sessionRepo}
}

// dayResults はセッション履歴を暦日→その日の代表結果に畳み込む。
// 対象は確定済みのチャレンジセッションのみで、中断セッションと
// 通常・練習プレイはmetadataにresultがあっても数えない。
// 同一日に複数セッションがある場合は最新のセッションが代表となる
// （入力はstarted_at降順のため最初に見えたものを採用する）。
func dayResults(sessions []*model.GameSession) map[string]model.GameResult {
	byDay := make(map[string]model.GameResult)
	for _, s := range sessions {
		if !s.Finished() || s.Mode() != model.GameModeChallenge {
			continue
		}
		key := dayKey(s.StartedAt)
		if _, seen := byDay[key]; !seen {
			byDay[key] = s.Result()
		}
	}
	return byDay
}

// sortedDays は日付キーを返す。descがtrueなら新しい順。
func sortedDays(byDay map[string]model.GameResult, desc bool) []string {
	days := make([]string, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Strings(days)
	if desc {
		for i, j := 0, len(days)-1; i < j; i, j = i+1, j-1 {
			days[i], days[j] = days[j], days[i]
		}
	}
	return days
}

// DailyWinStreak は現在の連続勝利日数を返す。
// 最後にプレイした日から過去へ向かって歩き、勝利で+1、敗北で打ち切り。
// 結果不明の日はストリークに影響させない。
func (t *Tracker) DailyWinStreak(ctx context.Context, userID, gameID string) int {
	sessions, err := t.sessionRepo.ListByUserAndGame(ctx, userID, gameID, historyLimit)
	if err != nil {
		slog.Error("ストリーク計算用セッションの取得に失敗しました",
			slog.String("user_id", userID),
			slog.String("game_id", gameID),
			slog.String("error", err.Error()),
		)
		return 0
	}

	byDay := dayResults(sessions)
	streak := 0
	for _, day := range sortedDays(byDay, true) {
		switch byDay[day] {
		case model.GameResultWin:
			streak++
		case model.GameResultLoss:
			return streak
		}
	}
	return streak
}

// MaxDailyWinStreak は歴代最高の連続勝利日数を返す。
// 古い日から新しい日へ歩き、勝利で+1、敗北で0にリセットしながら最大値を追う。
func (t *Tracker) MaxDailyWinStreak(ctx context.Context, userID, gameID string) int {
	sessions, err := t.sessionRepo.ListByUserAndGame(ctx, userID, gameID, historyLimit)
	if err != nil {
		slog.Error("最大ストリーク計算用セッションの取得に失敗しました",
			slog.String("user_id", userID),
			slog.String("game_id", gameID),
			slog.String("error", err.Error()),
		)
		return 0
	}

	byDay := dayResults(sessions)
	maxStreak, cur := 0, 0
	for _, day := range sortedDays(byDay, false) {
		switch byDay[day] {
		case model.GameResultWin:
			cur++
		case model.GameResultLoss:
			cur = 0
		}
		if cur > maxStreak {
			maxStreak = cur
		}
	}
	return maxStreak
}

// LifetimeMaxStreak はセッション内連続正解（metadata.maxStreak）の歴代最高値を返す。
// 日またぎのストリークとは別の、1セッション内の指標である。
func (t *Tracker) LifetimeMaxStreak(ctx context.Context, userID, gameID string) int {
	sessions, err := t.sessionRepo.ListByUserAndGame(ctx, userID, gameID, historyLimit)
	if err != nil {
		slog.Error("生涯最大ストリーク用セッションの取得に失敗しました",
			slog.String("user_id", userID),
			slog.String("game_id", gameID),
			slog.String("error", err.Error()),
		)
		return 0
	}

	max := 0
	for _, s := range sessions {
		if v := s.Metadata.Int("maxStreak"); v > max {
			max = v
		}
	}
	return max
}

// dayKey は時刻をUTC暦日キーに変換する。
func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
