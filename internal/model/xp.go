// Package model はドメインモデルを定義する。
package model

import "time"

// XpReason はXP付与の理由を表す。
type XpReason string

const (
	// XpReasonCorrectAnswer は正解によるXP付与。
	XpReasonCorrectAnswer XpReason = "correct_answer"
	// XpReasonAchievement は実績解除に伴うXP付与。
	XpReasonAchievement XpReason = "achievement"
	// XpReasonBonus はイベント等のボーナスXP付与。
	XpReasonBonus XpReason = "bonus"
)

// Valid はXpReasonが定義済みの値であるかを返す。
func (r XpReason) Valid() bool {
	switch r {
	case XpReasonCorrectAnswer, XpReasonAchievement, XpReasonBonus:
		return true
	}
	return false
}

// XpEvent はXP台帳の1エントリを表す。
// 追記専用のイミュータブルな記録であり、更新も削除もされない。
// ユーザーのXP合計は当該ユーザーの全XpEvent.Amountの総和が権威値となる。
type XpEvent struct {
	ID        string
	UserID    string
	Amount    int // 0以上
	Reason    XpReason
	GameID    *string // 紐づくゲーム（実績ボーナス等はnil）
	SessionID *string // 紐づくゲームセッション（任意）
	Meta      Meta    // 付随情報: streak, corrects, difficulty, game スラッグ等
	CreatedAt time.Time
}

// LevelThreshold はレベル到達に必要な累積XPの閾値を表す。
// 静的な参照データであり、levelに対してxp_requiredは狭義単調増加する。
// レベル1のxp_requiredは常に0。
type LevelThreshold struct {
	Level      int
	XpRequired int
}

// Meta はXpEventやGameSessionに付随する自由形式の属性集合。
// スキーマレスな拡張ポイントだが、各利用側が解釈するキーは閉じた集合として文書化する。
// 認識されるキー: game, corrects, streak, maxStreak, difficulty, result, mode,
// seconds, errors, consecutiveErrors, attempts, firstTryCorrect
type Meta map[string]any

// Int はMetaから数値キーを取り出す。欠損・型不一致の場合は0を返す。
// JSONデコード後はfloat64になるため両方の型を受け付ける。
func (m Meta) Int(key string) int {
	if m == nil {
		return 0
	}
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// String はMetaから文字列キーを取り出す。欠損・型不一致の場合は空文字を返す。
func (m Meta) String(key string) string {
	if m == nil {
		return ""
	}
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

// Bool はMetaから真偽値キーを取り出す。欠損・型不一致の場合はfalseを返す。
func (m Meta) Bool(key string) bool {
	if m == nil {
		return false
	}
	if b, ok := m[key].(bool); ok {
		return b
	}
	return false
}
