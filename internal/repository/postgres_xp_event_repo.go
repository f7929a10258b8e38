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

// PostgresXpEventRepo はPostgreSQLを使用したXP台帳リポジトリ。
type PostgresXpEventRepo struct {
	db *sql.DB
}

// NewPostgresXpEventRepo はPostgresXpEventRepoを生成する。
func NewPostgresXpEventRepo(db *sql.DB) *PostgresXpEventRepo {
	return &PostgresXpEventRepo{db: db}
}

// Append はXPイベントを台帳に追記し、採番したイベントIDを返す。
// Amountが負の場合はVALIDATION_ERRORを返す。テーブル側のCHECK制約(amount >= 0)が
// 最終防衛線となる。
func (r *PostgresXpEventRepo) Append(ctx context.Context, event *model.XpEvent) (string, error) {
	if event.Amount < 0 {
		return "", model.NewNegativeXpError(event.Amount)
	}
	if event.UserID == "" {
		return "", model.NewValidationError("user_idは必須です")
	}
	if !event.Reason.Valid() {
		return "", model.NewValidationError(fmt.Sprintf("不明なreasonです: %s", event.Reason))
	}

	id := event.ID
	if id == "" {
		id = uuid.New().String()
	}
	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	metaJSON, err := json.Marshal(event.Meta)
	if err != nil {
		return "", fmt.Errorf("metaのJSON変換に失敗しました: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO xp_events (id, user_id, amount, reason, game_id, session_id, meta, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, event.UserID, event.Amount, string(event.Reason),
		event.GameID, event.SessionID, metaJSON, createdAt,
	)
	if err != nil {
		return "", fmt.Errorf("XPイベントの追記に失敗しました: %w", err)
	}

	return id, nil
}

// SumByUser はユーザーの全XPイベントの合計を返す。
func (r *PostgresXpEventRepo) SumByUser(ctx context.Context, userID string) (int, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM xp_events WHERE user_id = $1`,
		userID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("XP合計の取得に失敗しました: %w", err)
	}
	return total, nil
}

// SumByUserPerGame はユーザーのXP合計をゲームIDごとに集計して返す。
// 実績ボーナス（reason = 'achievement'）は特定ゲームに帰属しないため除外する。
func (r *PostgresXpEventRepo) SumByUserPerGame(ctx context.Context, userID string) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT game_id, COALESCE(SUM(amount), 0)
		 FROM xp_events
		 WHERE user_id = $1 AND game_id IS NOT NULL AND reason <> 'achievement'
		 GROUP BY game_id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("ゲーム別XP集計の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	totals := make(map[string]int)
	for rows.Next() {
		var gameID string
		var sum int
		if err := rows.Scan(&gameID, &sum); err != nil {
			return nil, fmt.Errorf("ゲーム別XP集計の読み取りに失敗しました: %w", err)
		}
		totals[gameID] = sum
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ゲーム別XP集計の走査に失敗しました: %w", err)
	}

	return totals, nil
}

// compile-time interface check
var _ XpEventRepository = (*PostgresXpEventRepo)(nil)
