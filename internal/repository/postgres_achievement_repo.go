package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/goalquiz/internal/model"
)

// PostgresAchievementRepo はPostgreSQLを使用した実績カタログリポジトリ。
// カタログは読み取り専用で、シードSQLにより投入される。
type PostgresAchievementRepo struct {
	db *sql.DB
}

// NewPostgresAchievementRepo はPostgresAchievementRepoを生成する。
func NewPostgresAchievementRepo(db *sql.DB) *PostgresAchievementRepo {
	return &PostgresAchievementRepo{db: db}
}

// ListAll は実績カタログ全件をcode昇順で返す。
func (r *PostgresAchievementRepo) ListAll(ctx context.Context) ([]*model.Achievement, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, code, name, description, points, difficulty, created_at
		 FROM achievements ORDER BY code ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("実績カタログの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var achievements []*model.Achievement
	for rows.Next() {
		a := &model.Achievement{}
		if err := rows.Scan(&a.ID, &a.Code, &a.Name, &a.Description, &a.Points, &a.Difficulty, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("実績の読み取りに失敗しました: %w", err)
		}
		achievements = append(achievements, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("実績カタログの走査に失敗しました: %w", err)
	}

	return achievements, nil
}

// FindByCode は指定コードの実績を取得する。見つからない場合はnilを返す。
func (r *PostgresAchievementRepo) FindByCode(ctx context.Context, code string) (*model.Achievement, error) {
	a := &model.Achievement{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, code, name, description, points, difficulty, created_at
		 FROM achievements WHERE code = $1`,
		code,
	).Scan(&a.ID, &a.Code, &a.Name, &a.Description, &a.Points, &a.Difficulty, &a.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("実績の取得に失敗しました: %w", err)
	}

	return a, nil
}

// compile-time interface check
var _ AchievementRepository = (*PostgresAchievementRepo)(nil)
