// Package achievement は実績カタログの提供と解除判定を行う。
package achievement

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hitoshi/goalquiz/internal/model"
	"github.com/hitoshi/goalquiz/internal/repository"
)

// catalogCacheTTL は実績カタログのキャッシュ保持時間。
// カタログはマイグレーションでシードされる静的データのため、長めに保持する。
const catalogCacheTTL = 5 * time.Minute

// Catalog は実績カタログのキャッシュ付き読み取りサービス。
type Catalog struct {
	repo repository.AchievementRepository

	mu       sync.RWMutex
	cached   []*model.Achievement
	byCode   map[string]*model.Achievement
	cachedAt time.Time
}

// NewCatalog はCatalogの新しいインスタンスを生成する。
func NewCatalog(repo repository.AchievementRepository) *Catalog {
	return &Catalog{repo: repo}
}

// List は実績カタログ全件をcode昇順で返す。
func (c *Catalog) List(ctx context.Context) ([]*model.Achievement, error) {
	c.mu.RLock()
	if c.cached != nil && time.Since(c.cachedAt) < catalogCacheTTL {
		defer c.mu.RUnlock()
		return c.cached, nil
	}
	c.mu.RUnlock()

	return c.refresh(ctx)
}

// ByCode は指定コードの実績を返す。カタログに存在しない場合はnilを返す。
func (c *Catalog) ByCode(ctx context.Context, code string) (*model.Achievement, error) {
	c.mu.RLock()
	if c.byCode != nil && time.Since(c.cachedAt) < catalogCacheTTL {
		ach := c.byCode[code]
		c.mu.RUnlock()
		return ach, nil
	}
	c.mu.RUnlock()

	if _, err := c.refresh(ctx); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.byCode[code], nil
}

// refresh はカタログをストアから読み直してキャッシュを差し替える。
func (c *Catalog) refresh(ctx context.Context) ([]*model.Achievement, error) {
	achievements, err := c.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("実績カタログの取得に失敗しました: %w", err)
	}

	byCode := make(map[string]*model.Achievement, len(achievements))
	for _, a := range achievements {
		byCode[a.Code] = a
	}

	c.mu.Lock()
	c.cached = achievements
	c.byCode = byCode
	c.cachedAt = time.Now()
	c.mu.Unlock()

	return achievements, nil
}
