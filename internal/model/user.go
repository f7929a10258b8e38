// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// 進行状況（XP・実績・セッション）はすべて参照で紐づき、本体には埋め込まない。
// LastLevelはレベルアップ検知用の最終観測レベルであり、権威値は常にXP合計から導出される。
type User struct {
	ID               string
	DisplayName      string
	LastLevel        int
	DailyStreak      int        // 連続プレイ日数（ログインストリーク）
	BestDailyStreak  int        // ログインストリークの歴代最高値
	LastActivityDate *time.Time // 最終アクティビティ日（UTC・日付のみ意味を持つ）
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Session はユーザーのログインセッションを表す。
// 認証フロー自体は外部のIDプロバイダが担い、本コアはセッション行の検証のみ行う。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
