// Package model はドメインモデルを定義する。
package model

import "time"

// Game はトリビアのミニゲーム1種を表す。
// カタログとして静的に管理され、スラッグで参照される。
type Game struct {
	ID          string
	Slug        string
	Name        string
	Description string
	HasDaily    bool // デイリーチャレンジ対象か
	CreatedAt   time.Time
}

// GameFamily はデイリーチャレンジの勝敗推定に使うゲーム系統を表す。
// 一部の旧ゲームクライアントがresultを設定しないまま終了するため、
// 系統ごとのルールで勝敗を後方互換的に推定する。
type GameFamily string

const (
	// GameFamilyOrdering は並べ替え系（5問中5問正解で勝ち）。
	GameFamilyOrdering GameFamily = "ordering"
	// GameFamilyLives はライフ制（明示的なresultのみ信頼する）。
	GameFamilyLives GameFamily = "lives"
	// GameFamilyTimedMCQ は時間制限付き選択式（10問正解で勝ち）。
	GameFamilyTimedMCQ GameFamily = "timed_mcq"
)

// orderingSlugs は並べ替え系ゲームのスラッグ。
var orderingSlugs = map[string]bool{
	"value-order":  true,
	"age-order":    true,
	"height-order": true,
}

// livesSlugs はライフ制ゲームのスラッグ。
var livesSlugs = map[string]bool{
	"who-is": true,
}

// FamilyForSlug はスラッグからゲーム系統を判定する。
// 未知のスラッグは時間制限付き選択式として扱う。
func FamilyForSlug(slug string) GameFamily {
	switch {
	case orderingSlugs[slug]:
		return GameFamilyOrdering
	case livesSlugs[slug]:
		return GameFamilyLives
	default:
		return GameFamilyTimedMCQ
	}
}
