// Package level はXP合計からのレベル導出とレベルアップ検知を提供する。
//
// レベルは保存された値ではなく、常にXP合計と閾値テーブルから導出される
// 純関数の結果が権威値となる。users.last_levelはレベルアップ通知を
// 1回に抑えるための最終観測値に過ぎない。
package level

import "github.com/hitoshi/goalquiz/internal/model"

// Compute はXP合計に対応するレベルを返す。
// xp_required <= xpTotal を満たす最大のlevelを返し、
// 閾値テーブルが空の場合やどの閾値にも届かない場合はレベル1を返す。
// 決定的な純関数であり、同一入力に対して常に同一の結果を返す。
func Compute(xpTotal int, thresholds []model.LevelThreshold) int {
	lvl := 1
	for _, t := range thresholds {
		if t.XpRequired <= xpTotal && t.Level > lvl {
			lvl = t.Level
		}
	}
	return lvl
}

// NextThreshold は現在のXP合計から次のレベルに必要な残りXPを返す。
// 最高レベル到達済みの場合は0を返す。
func NextThreshold(xpTotal int, thresholds []model.LevelThreshold) int {
	next := 0
	for _, t := range thresholds {
		if t.XpRequired > xpTotal && (next == 0 || t.XpRequired < next) {
			next = t.XpRequired
		}
	}
	if next == 0 {
		return 0
	}
	return next - xpTotal
}
