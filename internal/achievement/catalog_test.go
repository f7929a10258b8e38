package achievement

import (
	"context"
	"fmt"
	"testing"

	"github.com/hitoshi/goalquiz/internal/model"
)

// TestCatalog_List はカタログ取得とキャッシュを検証する。
func TestCatalog_List(t *testing.T) {
	calls := 0
	repo := &mockAchievementRepo{
		listAllFn: func(ctx context.Context) ([]*model.Achievement, error) {
			calls++
			return defaultCatalogRows(), nil
		},
	}
	catalog := NewCatalog(repo)
	ctx := context.Background()

	first, err := catalog.List(ctx)
	if err != nil {
		t.Fatalf("List() returned error: %v", err)
	}
	if len(first) == 0 {
		t.Fatal("expected non-empty catalog")
	}

	// 2回目はキャッシュから返りストアには行かない
	if _, err := catalog.List(ctx); err != nil {
		t.Fatalf("second List() returned error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 store call, got %d", calls)
	}
}

// TestCatalog_ByCode はコード検索を検証する。
func TestCatalog_ByCode(t *testing.T) {
	catalog := NewCatalog(&mockAchievementRepo{})
	ctx := context.Background()

	ach, err := catalog.ByCode(ctx, model.AchHatTrick)
	if err != nil {
		t.Fatalf("ByCode() returned error: %v", err)
	}
	if ach == nil {
		t.Fatal("expected achievement, got nil")
	}
	if ach.Code != model.AchHatTrick {
		t.Errorf("expected code %s, got %s", model.AchHatTrick, ach.Code)
	}
}

// TestCatalog_ByCode_Unknown は未登録コードでnilを返すことを検証する。
func TestCatalog_ByCode_Unknown(t *testing.T) {
	catalog := NewCatalog(&mockAchievementRepo{})

	ach, err := catalog.ByCode(context.Background(), "no_such_code")
	if err != nil {
		t.Fatalf("ByCode() returned error: %v", err)
	}
	if ach != nil {
		t.Errorf("expected nil for unknown code, got %+v", ach)
	}
}

// TestCatalog_List_StoreError はストア障害時のエラー伝播を検証する。
func TestCatalog_List_StoreError(t *testing.T) {
	repo := &mockAchievementRepo{
		listAllFn: func(ctx context.Context) ([]*model.Achievement, error) {
			return nil, fmt.Errorf("db down")
		},
	}
	catalog := NewCatalog(repo)

	if _, err := catalog.List(context.Background()); err == nil {
		t.Fatal("expected error, got nil")
	}
}
