// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, game, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeAlreadyPlayed       = "ALREADY_PLAYED"
	ErrCodeGameNotFound        = "GAME_NOT_FOUND"
	ErrCodeSessionNotFound     = "SESSION_NOT_FOUND"
	ErrCodeAchievementNotFound = "ACHIEVEMENT_NOT_FOUND"
	ErrCodeUserNotFound        = "USER_NOT_FOUND"
	ErrCodeInvalidPeriod       = "INVALID_PERIOD"
)

// NewValidationError は入力値検証エラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("入力値が不正です: %s", reason),
		Category: "validation",
		Action:   "リクエスト内容を確認してください。",
	}
}

// NewNegativeXpError はXP量が負の場合のエラーを生成する。
func NewNegativeXpError(amount int) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("XP量は0以上である必要があります: %d", amount),
		Category: "validation",
		Action:   "XP量を確認してください。",
	}
}

// NewAlreadyPlayedError は本日のデイリーチャレンジが既に完了している場合のエラーを生成する。
func NewAlreadyPlayedError(gameSlug string) *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyPlayed,
		Message:  fmt.Sprintf("本日のチャレンジは既にプレイ済みです: %s", gameSlug),
		Category: "game",
		Action:   "明日再度挑戦してください。",
	}
}

// NewGameNotFoundError はゲームが見つからない場合のエラーを生成する。
func NewGameNotFoundError(slug string) *APIError {
	return &APIError{
		Code:     ErrCodeGameNotFound,
		Message:  fmt.Sprintf("指定されたゲームが見つかりません: %s", slug),
		Category: "game",
		Action:   "ゲームのスラッグを確認してください。",
	}
}

// NewSessionNotFoundError はゲームセッションが見つからない場合のエラーを生成する。
func NewSessionNotFoundError(sessionID string) *APIError {
	return &APIError{
		Code:     ErrCodeSessionNotFound,
		Message:  fmt.Sprintf("指定されたセッションが見つかりません: %s", sessionID),
		Category: "game",
		Action:   "セッションIDを確認してください。",
	}
}

// NewAchievementNotFoundError は実績コードが見つからない場合のエラーを生成する。
func NewAchievementNotFoundError(code string) *APIError {
	return &APIError{
		Code:     ErrCodeAchievementNotFound,
		Message:  fmt.Sprintf("指定された実績が見つかりません: %s", code),
		Category: "game",
		Action:   "実績コードを確認してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewInvalidPeriodError はリーダーボードの集計期間が無効な場合のエラーを生成する。
func NewInvalidPeriodError(period string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPeriod,
		Message:  fmt.Sprintf("無効な集計期間です: %s", period),
		Category: "validation",
		Action:   "期間には all_time、weekly、monthly のいずれかを指定してください。",
	}
}
