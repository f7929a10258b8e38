// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/goalquiz/internal/model"
)

// XpEventRepository はXP台帳の永続化インターフェース。
// 台帳は追記専用であり、更新・削除のメソッドは提供しない。
type XpEventRepository interface {
	// Append はXPイベントを台帳に追記し、採番したイベントIDを返す。
	// Amountが負の場合はVALIDATION_ERRORを返す。
	Append(ctx context.Context, event *model.XpEvent) (string, error)

	// SumByUser はユーザーの全XPイベントの合計を返す。
	// イベントが1件もない場合は0を返す。
	SumByUser(ctx context.Context, userID string) (int, error)

	// SumByUserPerGame はユーザーのXP合計をゲームIDごとに集計して返す。
	// 実績ボーナス（reason = 'achievement'）は特定ゲームに帰属しないため除外する。
	SumByUserPerGame(ctx context.Context, userID string) (map[string]int, error)
}

// GameSessionRepository はゲームセッションの永続化インターフェース。
type GameSessionRepository interface {
	// Create は新規セッションを作成する（ended_atはnil）。
	Create(ctx context.Context, session *model.GameSession) error

	// FindByID は指定IDのセッションを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.GameSession, error)

	// Complete はセッションを確定する。score_final、xp_earned、ended_at、
	// マージ済みmetadataを1回のUPDATEで書き込む。
	// (user, game, UTC日) につき確定済みチャレンジは部分ユニークインデックスにより
	// 高々1件に制約される。2件目の確定はErrDuplicateFinishを返す。
	Complete(ctx context.Context, id string, score, xp int, endedAt time.Time, metadata model.Meta) error

	// ListByUserAndGameSince は指定日時以降に開始されたセッションを
	// started_at降順で返す。
	ListByUserAndGameSince(ctx context.Context, userID, gameID string, since time.Time) ([]*model.GameSession, error)

	// ListByUserAndGame はユーザー＋ゲームのセッションをstarted_at降順で最大limit件返す。
	ListByUserAndGame(ctx context.Context, userID, gameID string, limit int) ([]*model.GameSession, error)

	// ListWonSince は指定日時以降に開始された勝利セッション
	// （metadata.result = 'win'）をstarted_at降順で返す。
	ListWonSince(ctx context.Context, userID string, since time.Time) ([]*model.GameSession, error)

	// CountWins はユーザーの通算勝利セッション数を返す。
	CountWins(ctx context.Context, userID string) (int, error)

	// CountWinsByGame はユーザーの特定ゲームでの勝利セッション数を返す。
	CountWinsByGame(ctx context.Context, userID, gameID string) (int, error)

	// SumCorrectsByGame は特定ゲームの全セッションのmetadata.correctsの合計を返す。
	SumCorrectsByGame(ctx context.Context, userID, gameID string) (int, error)

	// MaxMetaStreakPerGame はセッションmetadata.maxStreakのゲームごとの最大値を返す。
	MaxMetaStreakPerGame(ctx context.Context, userID string) (map[string]int, error)

	// CountFirstTrySessions は初手正解（metadata.firstTryCorrect = true
	// または attempts = 1）のセッション数を返す。
	CountFirstTrySessions(ctx context.Context, userID string) (int, error)
}

// AchievementRepository は実績カタログの読み取りインターフェース。
type AchievementRepository interface {
	// ListAll は実績カタログ全件をcode昇順で返す。
	ListAll(ctx context.Context) ([]*model.Achievement, error)

	// FindByCode は指定コードの実績を取得する。見つからない場合はnilを返す。
	FindByCode(ctx context.Context, code string) (*model.Achievement, error)
}

// UserAchievementRepository は実績解除記録の永続化インターフェース。
type UserAchievementRepository interface {
	// Unlock は実績解除を冪等に記録する。
	// UNIQUE(user_id, achievement_id)制約を利用したINSERT ON CONFLICT DO NOTHINGで、
	// 新規解除ならtrue、既に解除済みならfalseを返す。並行呼び出しでも
	// trueを観測するのは高々1呼び出しのみ。
	Unlock(ctx context.Context, userID, achievementID string, meta model.Meta) (bool, error)

	// ListByUserID はユーザーの解除済み実績を実績情報付きでearned_at降順で返す。
	ListByUserID(ctx context.Context, userID string) ([]UserAchievementWithDetail, error)
}

// LevelThresholdRepository はレベル閾値テーブルの読み取りインターフェース。
type LevelThresholdRepository interface {
	// ListAll は全閾値をlevel昇順で返す。
	ListAll(ctx context.Context) ([]model.LevelThreshold, error)
}

// GameRepository はゲームカタログの読み取りインターフェース。
type GameRepository interface {
	// FindBySlug は指定スラッグのゲームを取得する。見つからない場合はnilを返す。
	FindBySlug(ctx context.Context, slug string) (*model.Game, error)

	// FindByID は指定IDのゲームを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Game, error)

	// ListDaily はデイリーチャレンジ対象のゲーム一覧を返す。
	ListDaily(ctx context.Context) ([]*model.Game, error)
}

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// UpdateLastLevel はレベルアップ検知用の最終観測レベルを更新する。
	// 現在値より小さいレベルでの上書きはしない（冪等な比較を保つため）。
	UpdateLastLevel(ctx context.Context, userID string, level int) error

	// UpdateLoginStreak はログインストリークの現在値・最高値・最終活動日を更新する。
	UpdateLoginStreak(ctx context.Context, userID string, streak, best int, activityDate time.Time) error

	// DeleteByID は指定IDのユーザーを削除する。進行状況データはCASCADEで削除される。
	DeleteByID(ctx context.Context, id string) error
}

// SessionRepository はログインセッションの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
	// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// LeaderboardRepository はリーダーボードの読み取りインターフェース。
type LeaderboardRepository interface {
	// Top は指定期間のXP合計上位ユーザーをランク付きで返す。
	// periodはall_time、weekly、monthlyのいずれか。
	// gameIDを指定すると当該ゲームのXPのみで集計する。
	Top(ctx context.Context, period model.LeaderboardPeriod, gameID *string, limit, offset int) ([]LeaderboardEntry, error)
}

// UserAchievementWithDetail は解除記録と実績カタログ情報を結合した構造体。
type UserAchievementWithDetail struct {
	model.UserAchievement
	Code        string
	Name        string
	Description string
	Points      int
	Difficulty  string
}

// LeaderboardEntry はリーダーボードの1行を表す。
type LeaderboardEntry struct {
	UserID      string
	DisplayName string
	Xp          int
	Level       int
	Rank        int
}
