// Package games はゲームカタログのスラッグ解決を提供する。
package games

import (
	"context"
	"fmt"
	"sync"
	"time"

	gosimpleslug "github.com/gosimple/slug"
	"github.com/hitoshi/goalquiz/internal/model"
	"github.com/hitoshi/goalquiz/internal/repository"
)

// cacheTTL はスラッグ→ゲームのキャッシュ保持時間。
// ゲームカタログは読み取り中心の参照データのため、分単位の陳腐化は許容される。
const cacheTTL = 5 * time.Minute

type cachedGame struct {
	game     *model.Game
	cachedAt time.Time
}

// Resolver はスラッグからゲームを解決するキャッシュ付きサービス。
// クライアント入力のスラッグは正規化（小文字化・アクセント除去）してから照合する。
type Resolver struct {
	gameRepo repository.GameRepository

	mu    sync.RWMutex
	cache map[string]cachedGame
}

// NewResolver はResolverの新しいインスタンスを生成する。
func NewResolver(gameRepo repository.GameRepository) *Resolver {
	return &Resolver{
		gameRepo: gameRepo,
		cache:    make(map[string]cachedGame),
	}
}

// Normalize はクライアント入力のスラッグを正規形に変換する。
// 例: "Guess-Player" → "guess-player"
func Normalize(raw string) string {
	return gosimpleslug.Make(raw)
}

// ResolveSlug は指定スラッグのゲームを返す。
// カタログに存在しない場合はnilを返す（エラーではない。ゲームカタログは
// 静的リストと結果整合であり、未登録ゲームの操作は呼び出し側が縮退させる）。
func (r *Resolver) ResolveSlug(ctx context.Context, rawSlug string) (*model.Game, error) {
	slug := Normalize(rawSlug)
	if slug == "" {
		return nil, nil
	}

	r.mu.RLock()
	if c, ok := r.cache[slug]; ok && time.Since(c.cachedAt) < cacheTTL {
		r.mu.RUnlock()
		return c.game, nil
	}
	r.mu.RUnlock()

	game, err := r.gameRepo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("ゲームの解決に失敗しました: %w", err)
	}

	r.mu.Lock()
	r.cache[slug] = cachedGame{game: game, cachedAt: time.Now()}
	r.mu.Unlock()

	return game, nil
}

// ResolveID は指定IDのゲームを返す。存在しない場合はnilを返す。
func (r *Resolver) ResolveID(ctx context.Context, id string) (*model.Game, error) {
	game, err := r.gameRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ゲームの解決に失敗しました: %w", err)
	}
	return game, nil
}

// ListDaily はデイリーチャレンジ対象ゲームの一覧を返す。
func (r *Resolver) ListDaily(ctx context.Context) ([]*model.Game, error) {
	return r.gameRepo.ListDaily(ctx)
}
