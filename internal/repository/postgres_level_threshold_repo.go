package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/goalquiz/internal/model"
)

// PostgresLevelThresholdRepo はPostgreSQLを使用したレベル閾値リポジトリ。
// 閾値テーブルは読み取り専用の参照データで、シードSQLにより投入される。
type PostgresLevelThresholdRepo struct {
	db *sql.DB
}

// NewPostgresLevelThresholdRepo はPostgresLevelThresholdRepoを生成する。
func NewPostgresLevelThresholdRepo(db *sql.DB) *PostgresLevelThresholdRepo {
	return &PostgresLevelThresholdRepo{db: db}
}

// ListAll は全閾値をlevel昇順で返す。
func (r *PostgresLevelThresholdRepo) ListAll(ctx context.Context) ([]model.LevelThreshold, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT level, xp_required FROM level_thresholds ORDER BY level ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("レベル閾値の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var thresholds []model.LevelThreshold
	for rows.Next() {
		var t model.LevelThreshold
		if err := rows.Scan(&t.Level, &t.XpRequired); err != nil {
			return nil, fmt.Errorf("レベル閾値の読み取りに失敗しました: %w", err)
		}
		thresholds = append(thresholds, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("レベル閾値の走査に失敗しました: %w", err)
	}

	return thresholds, nil
}

// compile-time interface check
var _ LevelThresholdRepository = (*PostgresLevelThresholdRepo)(nil)
