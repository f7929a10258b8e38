package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/goalquiz/internal/model"
)

// PostgresGameRepo はPostgreSQLを使用したゲームカタログリポジトリ。
type PostgresGameRepo struct {
	db *sql.DB
}

// NewPostgresGameRepo はPostgresGameRepoを生成する。
func NewPostgresGameRepo(db *sql.DB) *PostgresGameRepo {
	return &PostgresGameRepo{db: db}
}

const gameColumns = `id, slug, name, description, has_daily, created_at`

// FindBySlug は指定スラッグのゲームを取得する。見つからない場合はnilを返す。
func (r *PostgresGameRepo) FindBySlug(ctx context.Context, slug string) (*model.Game, error) {
	g := &model.Game{}
	err := r.db.QueryRowContext(ctx,
		`SELECT `+gameColumns+` FROM games WHERE slug = $1`, slug,
	).Scan(&g.ID, &g.Slug, &g.Name, &g.Description, &g.HasDaily, &g.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ゲームの取得に失敗しました: %w", err)
	}

	return g, nil
}

// FindByID は指定IDのゲームを取得する。見つからない場合はnilを返す。
func (r *PostgresGameRepo) FindByID(ctx context.Context, id string) (*model.Game, error) {
	g := &model.Game{}
	err := r.db.QueryRowContext(ctx,
		`SELECT `+gameColumns+` FROM games WHERE id = $1`, id,
	).Scan(&g.ID, &g.Slug, &g.Name, &g.Description, &g.HasDaily, &g.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ゲームの取得に失敗しました: %w", err)
	}

	return g, nil
}

// ListDaily はデイリーチャレンジ対象のゲーム一覧をslug昇順で返す。
func (r *PostgresGameRepo) ListDaily(ctx context.Context) ([]*model.Game, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+gameColumns+` FROM games WHERE has_daily = true ORDER BY slug ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("デイリーゲーム一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var games []*model.Game
	for rows.Next() {
		g := &model.Game{}
		if err := rows.Scan(&g.ID, &g.Slug, &g.Name, &g.Description, &g.HasDaily, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("ゲームの読み取りに失敗しました: %w", err)
		}
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("デイリーゲーム一覧の走査に失敗しました: %w", err)
	}

	return games, nil
}

// compile-time interface check
var _ GameRepository = (*PostgresGameRepo)(nil)
