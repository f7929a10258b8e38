// Package model はドメインモデルを定義する。
package model

import "time"

// Achievement は実績カタログの1エントリを表す。
// ポイントは表示専用のスコアであり、解除してもXPには加算されない。
type Achievement struct {
	ID          string
	Code        string // 一意の識別子（例: first_win, hat_trick）
	Name        string
	Description string
	Points      int
	Difficulty  string // fácil, media, difícil, épico
	CreatedAt   time.Time
}

// UserAchievement は実績の解除記録を表す。
// (UserID, AchievementID) はユニークであり、1ユーザーにつき各実績は高々1回しか解除されない。
type UserAchievement struct {
	ID            string
	UserID        string
	AchievementID string
	EarnedAt      time.Time
	Meta          Meta
}

// 実績コード定義。シードSQLのカタログと一致させること。
const (
	// 基本
	AchFirstCorrect = "first_correct" // セッション最初の正解
	AchTenCorrect   = "ten_correct"   // 1セッションで10問正解
	AchXp100        = "xp_100"        // 累計100XP
	AchXp1000       = "xp_1000"       // 累計1000XP

	// セッション内の連続正解
	AchStreak3  = "streak_3"
	AchStreak5  = "streak_5"
	AchStreak10 = "streak_10"
	AchStreak15 = "streak_15"

	// 同日のデイリーチャレンジ勝利数
	AchDailyWins3   = "daily_wins_3"
	AchDailyWins5   = "daily_wins_5"
	AchDailyWins10  = "daily_wins_10"
	AchDailyWinsAll = "daily_wins_all"

	// 同一ゲームの連続勝利日数
	AchDailyStreak3  = "daily_streak_3"
	AchDailyStreak5  = "daily_streak_5"
	AchDailyStreak10 = "daily_streak_10"

	// ログインストリーク（連続プレイ日数）
	AchStreakRookie  = "streak_rookie"  // 3日
	AchStreakVeteran = "streak_veteran" // 7日
	AchStreakLegend  = "streak_legend"  // 30日

	// チャレンジ系
	AchFirstWin       = "first_win"
	AchHatTrick       = "hat_trick"       // 同日に3ゲーム勝利
	AchGrandSlam      = "grand_slam"      // 1週間で全デイリーゲーム勝利
	AchCenturion      = "centurion"       // 通算100勝
	AchPerfectionist  = "perfectionist"   // ミスゼロで勝利
	AchComebackKing   = "comeback_king"   // 3連続ミスから勝利
	AchLuckyFirst     = "lucky_first"     // 初手正解セッション10回
	AchWeekendWarrior = "weekend_warrior" // 週末に10勝

	// 時間帯
	AchNightOwl  = "night_owl"  // 深夜 00:00-05:00
	AchEarlyBird = "early_bird" // 早朝 07:00 より前

	// ゲーム別マスタリー
	AchGuessMaster       = "guess_master"       // guess-player 20勝
	AchNationalityExpert = "nationality_expert" // nationality 通算50問正解
	AchPositionGuru      = "position_guru"      // player-position 通算50問正解

	// ソーシャル（外部コラボレータのカウンタを参照）
	AchSocialButterfly = "social_butterfly" // コネクション10件
	AchChatMaster      = "chat_master"      // メッセージ100件

	// スーパー実績（複数ゲーム横断）
	AchStreakDual100 = "streak_dual_100" // 2ゲームでセッション内連続正解100
	AchXpMulti5k3    = "xp_multi_5k_3"   // 3ゲームで各5000XP
	AchDailySuper5x3 = "daily_super_5x3" // 3ゲームで同時に5日連続勝利
)
