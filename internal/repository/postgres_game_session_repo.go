package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/goalquiz/internal/model"
	"github.com/lib/pq"
)

// ErrDuplicateFinish は同一(user, game, UTC日)で確定済みチャレンジが
// 既に存在する場合にCompleteが返すエラー。
// 部分ユニークインデックスuq_game_sessions_daily_finishが検知する。
var ErrDuplicateFinish = errors.New("本日の確定済みチャレンジセッションが既に存在します")

// PostgresGameSessionRepo はPostgreSQLを使用したゲームセッションリポジトリ。
type PostgresGameSessionRepo struct {
	db *sql.DB
}

// NewPostgresGameSessionRepo はPostgresGameSessionRepoを生成する。
func NewPostgresGameSessionRepo(db *sql.DB) *PostgresGameSessionRepo {
	return &PostgresGameSessionRepo{db: db}
}

const sessionColumns = `id, user_id, game_id, started_at, ended_at, score_final, xp_earned, metadata`

// scanSession は1行分のゲームセッションを読み取る。
func scanSession(scan func(dest ...any) error) (*model.GameSession, error) {
	s := &model.GameSession{}
	var endedAt sql.NullTime
	var scoreFinal, xpEarned sql.NullInt64
	var metaJSON []byte

	if err := scan(
		&s.ID, &s.UserID, &s.GameID, &s.StartedAt,
		&endedAt, &scoreFinal, &xpEarned, &metaJSON,
	); err != nil {
		return nil, err
	}

	if endedAt.Valid {
		s.EndedAt = &endedAt.Time
	}
	if scoreFinal.Valid {
		v := int(scoreFinal.Int64)
		s.ScoreFinal = &v
	}
	if xpEarned.Valid {
		v := int(xpEarned.Int64)
		s.XpEarned = &v
	}
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &s.Metadata); err != nil {
			return nil, fmt.Errorf("metadataの解析に失敗しました: %w", err)
		}
	}

	return s, nil
}

// Create は新規セッションを作成する（ended_atはnil）。
func (r *PostgresGameSessionRepo) Create(ctx context.Context, session *model.GameSession) error {
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	if session.StartedAt.IsZero() {
		session.StartedAt = time.Now().UTC()
	}

	metaJSON, err := json.Marshal(session.Metadata)
	if err != nil {
		return fmt.Errorf("metadataのJSON変換に失敗しました: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO game_sessions (id, user_id, game_id, started_at, metadata)
		 VALUES ($1, $2, $3, $4, $5)`,
		session.ID, session.UserID, session.GameID, session.StartedAt, metaJSON,
	)
	if err != nil {
		return fmt.Errorf("ゲームセッションの作成に失敗しました: %w", err)
	}

	return nil
}

// FindByID は指定IDのセッションを取得する。見つからない場合はnilを返す。
func (r *PostgresGameSessionRepo) FindByID(ctx context.Context, id string) (*model.GameSession, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM game_sessions WHERE id = $1`, id)

	s, err := scanSession(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ゲームセッションの取得に失敗しました: %w", err)
	}
	return s, nil
}

// Complete はセッションを確定する。確定は1回限りで、既に確定済みの行は
// WHERE ended_at IS NULL により更新対象から外れる（冪等）。
// 同日の2件目の確定は部分ユニークインデックスに衝突しErrDuplicateFinishを返す。
func (r *PostgresGameSessionRepo) Complete(ctx context.Context, id string, score, xp int, endedAt time.Time, metadata model.Meta) error {
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("metadataのJSON変換に失敗しました: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`UPDATE game_sessions
		 SET score_final = $2, xp_earned = $3, ended_at = $4, metadata = $5
		 WHERE id = $1 AND ended_at IS NULL`,
		id, score, xp, endedAt, metaJSON,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateFinish
		}
		return fmt.Errorf("ゲームセッションの確定に失敗しました: %w", err)
	}

	return nil
}

// ListByUserAndGameSince は指定日時以降に開始されたセッションをstarted_at降順で返す。
func (r *PostgresGameSessionRepo) ListByUserAndGameSince(ctx context.Context, userID, gameID string, since time.Time) ([]*model.GameSession, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM game_sessions
		 WHERE user_id = $1 AND game_id = $2 AND started_at >= $3
		 ORDER BY started_at DESC`,
		userID, gameID, since,
	)
	if err != nil {
		return nil, fmt.Errorf("セッション一覧の取得に失敗しました: %w", err)
	}
	return collectSessions(rows)
}

// ListByUserAndGame はユーザー＋ゲームのセッションをstarted_at降順で最大limit件返す。
func (r *PostgresGameSessionRepo) ListByUserAndGame(ctx context.Context, userID, gameID string, limit int) ([]*model.GameSession, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM game_sessions
		 WHERE user_id = $1 AND game_id = $2
		 ORDER BY started_at DESC
		 LIMIT $3`,
		userID, gameID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("セッション一覧の取得に失敗しました: %w", err)
	}
	return collectSessions(rows)
}

// 勝利として数えるのは確定済みチャレンジセッションのみ。
// 未確定の行や通常・練習プレイの行はmetadataにresultがあっても対象外。
const wonSessionFilter = ` AND ended_at IS NOT NULL
		   AND metadata->>'mode' = 'challenge'
		   AND metadata->>'result' = 'win'`

// ListWonSince は指定日時以降に開始された勝利セッションをstarted_at降順で返す。
func (r *PostgresGameSessionRepo) ListWonSince(ctx context.Context, userID string, since time.Time) ([]*model.GameSession, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM game_sessions
		 WHERE user_id = $1 AND started_at >= $2`+wonSessionFilter+`
		 ORDER BY started_at DESC`,
		userID, since,
	)
	if err != nil {
		return nil, fmt.Errorf("勝利セッション一覧の取得に失敗しました: %w", err)
	}
	return collectSessions(rows)
}

// CountWins はユーザーの通算勝利セッション数を返す。
func (r *PostgresGameSessionRepo) CountWins(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM game_sessions
		 WHERE user_id = $1`+wonSessionFilter,
		userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("勝利数の取得に失敗しました: %w", err)
	}
	return n, nil
}

// CountWinsByGame はユーザーの特定ゲームでの勝利セッション数を返す。
func (r *PostgresGameSessionRepo) CountWinsByGame(ctx context.Context, userID, gameID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM game_sessions
		 WHERE user_id = $1 AND game_id = $2`+wonSessionFilter,
		userID, gameID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("ゲーム別勝利数の取得に失敗しました: %w", err)
	}
	return n, nil
}

// SumCorrectsByGame は特定ゲームの全セッションのmetadata.correctsの合計を返す。
func (r *PostgresGameSessionRepo) SumCorrectsByGame(ctx context.Context, userID, gameID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(COALESCE((metadata->>'corrects')::int, 0)), 0)
		 FROM game_sessions
		 WHERE user_id = $1 AND game_id = $2
		   AND metadata->>'corrects' ~ '^[0-9]+$'`,
		userID, gameID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("正解数合計の取得に失敗しました: %w", err)
	}
	return n, nil
}

// MaxMetaStreakPerGame はセッションmetadata.maxStreakのゲームごとの最大値を返す。
func (r *PostgresGameSessionRepo) MaxMetaStreakPerGame(ctx context.Context, userID string) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT game_id, MAX((metadata->>'maxStreak')::int)
		 FROM game_sessions
		 WHERE user_id = $1 AND metadata->>'maxStreak' ~ '^[0-9]+$'
		 GROUP BY game_id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("ゲーム別最大ストリークの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	result := make(map[string]int)
	for rows.Next() {
		var gameID string
		var maxStreak int
		if err := rows.Scan(&gameID, &maxStreak); err != nil {
			return nil, fmt.Errorf("ゲーム別最大ストリークの読み取りに失敗しました: %w", err)
		}
		result[gameID] = maxStreak
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ゲーム別最大ストリークの走査に失敗しました: %w", err)
	}

	return result, nil
}

// CountFirstTrySessions は初手正解のセッション数を返す。
func (r *PostgresGameSessionRepo) CountFirstTrySessions(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM game_sessions
		 WHERE user_id = $1
		   AND (metadata->>'firstTryCorrect' = 'true' OR metadata->>'attempts' = '1')`,
		userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("初手正解セッション数の取得に失敗しました: %w", err)
	}
	return n, nil
}

// collectSessions はクエリ結果を全件読み取る。
func collectSessions(rows *sql.Rows) ([]*model.GameSession, error) {
	defer rows.Close()

	var sessions []*model.GameSession
	for rows.Next() {
		s, err := scanSession(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("セッションの読み取りに失敗しました: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("セッション一覧の走査に失敗しました: %w", err)
	}

	return sessions, nil
}

// compile-time interface check
var _ GameSessionRepository = (*PostgresGameSessionRepo)(nil)
