package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/goalquiz/internal/model"
)

// PostgresUserAchievementRepo はPostgreSQLを使用した実績解除記録リポジトリ。
type PostgresUserAchievementRepo struct {
	db *sql.DB
}

// NewPostgresUserAchievementRepo はPostgresUserAchievementRepoを生成する。
func NewPostgresUserAchievementRepo(db *sql.DB) *PostgresUserAchievementRepo {
	return &PostgresUserAchievementRepo{db: db}
}

// Unlock は実績解除を冪等に記録する。
// UNIQUE(user_id, achievement_id)制約を利用したINSERT ON CONFLICT DO NOTHINGで、
// 新規解除ならtrue、既に解除済みならfalseを返す。
// 並行して同じ解除を試みても、RETURNING句が行を返すのは挿入に成功した1呼び出しのみ。
func (r *PostgresUserAchievementRepo) Unlock(ctx context.Context, userID, achievementID string, meta model.Meta) (bool, error) {
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return false, fmt.Errorf("metaのJSON変換に失敗しました: %w", err)
	}

	var insertedID string
	err = r.db.QueryRowContext(ctx,
		`INSERT INTO user_achievements (id, user_id, achievement_id, earned_at, meta)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id, achievement_id) DO NOTHING
		 RETURNING id`,
		uuid.New().String(), userID, achievementID, time.Now().UTC(), metaJSON,
	).Scan(&insertedID)

	if err == sql.ErrNoRows {
		// 既に解除済み
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("実績解除の記録に失敗しました: %w", err)
	}

	return true, nil
}

// ListByUserID はユーザーの解除済み実績を実績情報付きでearned_at降順で返す。
func (r *PostgresUserAchievementRepo) ListByUserID(ctx context.Context, userID string) ([]UserAchievementWithDetail, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT ua.id, ua.user_id, ua.achievement_id, ua.earned_at, ua.meta,
		        a.code, a.name, a.description, a.points, a.difficulty
		 FROM user_achievements ua
		 JOIN achievements a ON a.id = ua.achievement_id
		 WHERE ua.user_id = $1
		 ORDER BY ua.earned_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("解除済み実績一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var results []UserAchievementWithDetail
	for rows.Next() {
		var row UserAchievementWithDetail
		var metaJSON []byte
		if err := rows.Scan(
			&row.ID, &row.UserID, &row.AchievementID, &row.EarnedAt, &metaJSON,
			&row.Code, &row.Name, &row.Description, &row.Points, &row.Difficulty,
		); err != nil {
			return nil, fmt.Errorf("解除済み実績の読み取りに失敗しました: %w", err)
		}
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &row.Meta); err != nil {
				return nil, fmt.Errorf("実績metaの解析に失敗しました: %w", err)
			}
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("解除済み実績一覧の走査に失敗しました: %w", err)
	}

	return results, nil
}

// compile-time interface check
var _ UserAchievementRepository = (*PostgresUserAchievementRepo)(nil)
