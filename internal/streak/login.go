package streak

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/goalquiz/internal/model"
	"github.com/hitoshi/goalquiz/internal/repository"
)

// Unlocker は実績解除のインターフェース。
// achievement.Engineの部分集合として定義する（importサイクル回避）。
type Unlocker interface {
	Unlock(ctx context.Context, userID, code string, meta model.Meta) (bool, error)
}

// LoginResult はログインストリーク更新の結果を表す。
type LoginResult struct {
	Updated bool
	Streak  int
	IsBest  bool
}

// LoginService は「1日に1ゲーム以上プレイした」連続日数を管理する。
// チャレンジの勝利ストリークとは独立した、より単純なカウンタ。
//
// ルール:
//   - その日の最初のプレイで1回だけ更新される
//   - 前日にプレイしていれば+1、2日以上空いたら1にリセット
//   - UTCの暦日（YYYY-MM-DD）で判定する
type LoginService struct {
	userRepo repository.UserRepository
	unlocker Unlocker
}

// NewLoginService はLoginServiceの新しいインスタンスを生成する。
func NewLoginService(userRepo repository.UserRepository, unlocker Unlocker) *LoginService {
	return &LoginService{userRepo: userRepo, unlocker: unlocker}
}

// Update はログインストリークを更新する。本日更新済みの場合は何もしない。
// ストリーク閾値の実績（3日・7日・30日）の解除も試みる。
// 実績解除の失敗はログのみでエラーにしない。
func (s *LoginService) Update(ctx context.Context, userID string) (LoginResult, error) {
	return s.updateAt(ctx, userID, time.Now().UTC())
}

// updateAt は基準時刻を指定してストリークを更新する（テスト用に分離）。
func (s *LoginService) updateAt(ctx context.Context, userID string, now time.Time) (LoginResult, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return LoginResult{}, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return LoginResult{}, model.NewUserNotFoundError()
	}

	today := now.Truncate(24 * time.Hour)

	if user.LastActivityDate != nil {
		last := user.LastActivityDate.UTC().Truncate(24 * time.Hour)
		if last.Equal(today) {
			// 本日分は既にカウント済み
			return LoginResult{Updated: false, Streak: user.DailyStreak}, nil
		}
	}

	newStreak := 1
	if user.LastActivityDate != nil {
		last := user.LastActivityDate.UTC().Truncate(24 * time.Hour)
		if today.Sub(last) == 24*time.Hour {
			newStreak = user.DailyStreak + 1
		}
	}

	newBest := user.BestDailyStreak
	isBest := false
	if newStreak > newBest {
		newBest = newStreak
		isBest = true
	}

	if err := s.userRepo.UpdateLoginStreak(ctx, userID, newStreak, newBest, today); err != nil {
		return LoginResult{}, err
	}

	s.unlockMilestones(ctx, userID, newStreak)

	return LoginResult{Updated: true, Streak: newStreak, IsBest: isBest}, nil
}

// unlockMilestones はログインストリークの閾値実績を解除する。
func (s *LoginService) unlockMilestones(ctx context.Context, userID string, streak int) {
	if s.unlocker == nil {
		return
	}

	milestones := []struct {
		days int
		code string
	}{
		{3, model.AchStreakRookie},
		{7, model.AchStreakVeteran},
		{30, model.AchStreakLegend},
	}

	for _, m := range milestones {
		if streak < m.days {
			continue
		}
		if _, err := s.unlocker.Unlock(ctx, userID, m.code, model.Meta{"streak": streak}); err != nil {
			slog.Warn("ログインストリーク実績の解除に失敗しました",
				slog.String("user_id", userID),
				slog.String("code", m.code),
				slog.String("error", err.Error()),
			)
		}
	}
}
