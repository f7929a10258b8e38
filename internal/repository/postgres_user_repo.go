package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/goalquiz/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	user := &model.User{}
	var lastActivity sql.NullTime

	err := r.db.QueryRowContext(ctx,
		`SELECT id, display_name, last_level, daily_streak, best_daily_streak,
		        last_activity_date, created_at, updated_at
		 FROM users WHERE id = $1`,
		id,
	).Scan(
		&user.ID, &user.DisplayName, &user.LastLevel,
		&user.DailyStreak, &user.BestDailyStreak,
		&lastActivity, &user.CreatedAt, &user.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}

	if lastActivity.Valid {
		user.LastActivityDate = &lastActivity.Time
	}

	return user, nil
}

// UpdateLastLevel はレベルアップ検知用の最終観測レベルを更新する。
// 重複・順序逆転したXP付与でも検知が冪等になるよう、現在値より
// 小さいレベルでは上書きしない。
func (r *PostgresUserRepo) UpdateLastLevel(ctx context.Context, userID string, level int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET last_level = $2, updated_at = now()
		 WHERE id = $1 AND last_level < $2`,
		userID, level,
	)
	if err != nil {
		return fmt.Errorf("最終観測レベルの更新に失敗しました: %w", err)
	}
	return nil
}

// UpdateLoginStreak はログインストリークの現在値・最高値・最終活動日を更新する。
func (r *PostgresUserRepo) UpdateLoginStreak(ctx context.Context, userID string, streak, best int, activityDate time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users
		 SET daily_streak = $2, best_daily_streak = $3, last_activity_date = $4, updated_at = now()
		 WHERE id = $1`,
		userID, streak, best, activityDate,
	)
	if err != nil {
		return fmt.Errorf("ログインストリークの更新に失敗しました: %w", err)
	}
	return nil
}

// DeleteByID は指定IDのユーザーを削除する。
// xp_events、game_sessions、user_achievements、sessionsはFKのCASCADEで削除される。
func (r *PostgresUserRepo) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
