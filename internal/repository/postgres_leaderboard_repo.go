package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/goalquiz/internal/model"
)

// PostgresLeaderboardRepo はPostgreSQLを使用したリーダーボードリポジトリ。
// xp_eventsをユーザーごとに集計し、ウィンドウ関数でランクを付与する。
type PostgresLeaderboardRepo struct {
	db *sql.DB
}

// NewPostgresLeaderboardRepo はPostgresLeaderboardRepoを生成する。
func NewPostgresLeaderboardRepo(db *sql.DB) *PostgresLeaderboardRepo {
	return &PostgresLeaderboardRepo{db: db}
}

// Top は指定期間のXP合計上位ユーザーをランク付きで返す。
// Levelは埋めない（閾値テーブルを持つ上位層が導出する）。
func (r *PostgresLeaderboardRepo) Top(ctx context.Context, period model.LeaderboardPeriod, gameID *string, limit, offset int) ([]LeaderboardEntry, error) {
	if !period.Valid() {
		return nil, model.NewInvalidPeriodError(string(period))
	}

	// 期間フィルタ。all_timeは条件なし。
	var interval string
	switch period {
	case model.PeriodWeekly:
		interval = "7 days"
	case model.PeriodMonthly:
		interval = "30 days"
	}

	query := `
		SELECT e.user_id, u.display_name, SUM(e.amount) AS xp,
		       RANK() OVER (ORDER BY SUM(e.amount) DESC) AS rank
		FROM xp_events e
		JOIN users u ON u.id = e.user_id
		WHERE ($1::text IS NULL OR e.game_id = $1::uuid)
		  AND ($2::text = '' OR e.created_at >= now() - $2::interval)
		GROUP BY e.user_id, u.display_name
		ORDER BY xp DESC, e.user_id ASC
		LIMIT $3 OFFSET $4`

	var gameArg sql.NullString
	if gameID != nil {
		gameArg = sql.NullString{String: *gameID, Valid: true}
	}

	rows, err := r.db.QueryContext(ctx, query, gameArg, interval, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("リーダーボードの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var entries []LeaderboardEntry
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.DisplayName, &e.Xp, &e.Rank); err != nil {
			return nil, fmt.Errorf("リーダーボード行の読み取りに失敗しました: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("リーダーボードの走査に失敗しました: %w", err)
	}

	return entries, nil
}

// compile-time interface check
var _ LeaderboardRepository = (*PostgresLeaderboardRepo)(nil)
