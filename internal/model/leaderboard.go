// Package model はドメインモデルを定義する。
package model

// LeaderboardPeriod はリーダーボードの集計期間を表す。
type LeaderboardPeriod string

const (
	// PeriodAllTime は全期間集計。
	PeriodAllTime LeaderboardPeriod = "all_time"
	// PeriodWeekly は直近7日間集計。
	PeriodWeekly LeaderboardPeriod = "weekly"
	// PeriodMonthly は直近30日間集計。
	PeriodMonthly LeaderboardPeriod = "monthly"
)

// Valid はLeaderboardPeriodが定義済みの値であるかを返す。
func (p LeaderboardPeriod) Valid() bool {
	switch p {
	case PeriodAllTime, PeriodWeekly, PeriodMonthly:
		return true
	}
	return false
}
