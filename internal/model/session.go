// Package model はドメインモデルを定義する。
package model

import "time"

// GameMode はゲームセッションのプレイモードを表す。
type GameMode string

const (
	// GameModeChallenge はデイリーチャレンジ（1日1回）。
	GameModeChallenge GameMode = "challenge"
	// GameModeNormal は通常プレイ（XP付与あり）。
	GameModeNormal GameMode = "normal"
	// GameModeFree は練習プレイ（XP付与なし）。
	GameModeFree GameMode = "free"
)

// GameResult はチャレンジの勝敗を表す。
type GameResult string

const (
	// GameResultWin は勝利。
	GameResultWin GameResult = "win"
	// GameResultLoss は敗北。
	GameResultLoss GameResult = "loss"
)

// ReasonAlreadyPlayed は本日分のチャレンジが確定済みであることを示す理由コード。
const ReasonAlreadyPlayed = "already_played"

// ChallengeAvailability は本日のチャレンジ可否の判定結果を表す。
// LastResultは本日の確定済みチャレンジセッションの勝敗で、
// 未プレイまたは中断のみの場合は空になる。
type ChallengeAvailability struct {
	Available  bool
	Reason     string
	LastResult GameResult
}

// GameSession はチャレンジ1回分のプレイ記録を表す。
// 開始時に作成され（EndedAt = nil）、終了時に1回だけ確定される。
// EndedAtがnilのセッションは「本日プレイ済み」には数えない。
// 中断したまま放置されたセッションは許容される状態であり、エラーではない。
type GameSession struct {
	ID         string
	UserID     string
	GameID     string
	StartedAt  time.Time
	EndedAt    *time.Time
	ScoreFinal *int
	XpEarned   *int
	Metadata   Meta // mode, result, corrects, maxStreak, seconds 等
}

// Finished はセッションが確定済みかを返す。
func (s *GameSession) Finished() bool {
	return s.EndedAt != nil
}

// Mode はメタデータからプレイモードを取り出す。
func (s *GameSession) Mode() GameMode {
	return GameMode(s.Metadata.String("mode"))
}

// Result はメタデータから明示的に記録された勝敗を取り出す。
// 未記録の場合は空文字を返す（系統別の推定はchallengeパッケージが行う）。
func (s *GameSession) Result() GameResult {
	return GameResult(s.Metadata.String("result"))
}
