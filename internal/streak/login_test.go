package streak

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/goalquiz/internal/model"
)

type mockUserRepo struct {
	findByIDFn func(ctx context.Context, id string) (*model.User, error)

	updatedStreak int
	updatedBest   int
	updateCalls   int
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return &model.User{ID: id}, nil
}

func (m *mockUserRepo) UpdateLastLevel(ctx context.Context, userID string, level int) error {
	return nil
}

func (m *mockUserRepo) UpdateLoginStreak(ctx context.Context, userID string, streak, best int, activityDate time.Time) error {
	m.updateCalls++
	m.updatedStreak = streak
	m.updatedBest = best
	return nil
}

func (m *mockUserRepo) DeleteByID(ctx context.Context, id string) error { return nil }

type mockUnlocker struct {
	unlocked []string
}

func (m *mockUnlocker) Unlock(ctx context.Context, userID, code string, meta model.Meta) (bool, error) {
	m.unlocked = append(m.unlocked, code)
	return true, nil
}

func userWithActivity(streak, best, daysAgo int, now time.Time) *model.User {
	last := now.Truncate(24 * time.Hour).AddDate(0, 0, -daysAgo)
	return &model.User{
		ID:               "user-1",
		DailyStreak:      streak,
		BestDailyStreak:  best,
		LastActivityDate: &last,
	}
}

func TestLoginUpdate_FirstPlayEver(t *testing.T) {
	now := time.Date(2026, 3, 20, 10, 0, 0, 0, time.UTC)
	repo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id}, nil
		},
	}
	svc := NewLoginService(repo, nil)

	result, err := svc.updateAt(context.Background(), "user-1", now)
	if err != nil {
		t.Fatalf("updateAtに失敗: %v", err)
	}

	if !result.Updated || result.Streak != 1 || !result.IsBest {
		t.Errorf("result = %+v, want Updated/Streak 1/IsBest", result)
	}
	if repo.updatedStreak != 1 || repo.updatedBest != 1 {
		t.Errorf("保存値 streak=%d best=%d, want 1/1", repo.updatedStreak, repo.updatedBest)
	}
}

func TestLoginUpdate_ConsecutiveDayExtends(t *testing.T) {
	now := time.Date(2026, 3, 20, 10, 0, 0, 0, time.UTC)
	repo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return userWithActivity(4, 10, 1, now), nil
		},
	}
	svc := NewLoginService(repo, nil)

	result, err := svc.updateAt(context.Background(), "user-1", now)
	if err != nil {
		t.Fatalf("updateAtに失敗: %v", err)
	}

	if result.Streak != 5 {
		t.Errorf("Streak = %d, want 5", result.Streak)
	}
	if result.IsBest {
		t.Error("過去最高10に届いていないのにIsBestがtrue")
	}
	if repo.updatedBest != 10 {
		t.Errorf("best = %d, want 10（維持される）", repo.updatedBest)
	}
}

func TestLoginUpdate_GapResetsToOne(t *testing.T) {
	now := time.Date(2026, 3, 20, 10, 0, 0, 0, time.UTC)
	repo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return userWithActivity(7, 7, 3, now), nil
		},
	}
	svc := NewLoginService(repo, nil)

	result, err := svc.updateAt(context.Background(), "user-1", now)
	if err != nil {
		t.Fatalf("updateAtに失敗: %v", err)
	}

	if result.Streak != 1 {
		t.Errorf("Streak = %d, want 1（2日以上空いたらリセット）", result.Streak)
	}
}

func TestLoginUpdate_SameDayIsNoOp(t *testing.T) {
	now := time.Date(2026, 3, 20, 22, 0, 0, 0, time.UTC)
	repo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return userWithActivity(5, 5, 0, now), nil
		},
	}
	svc := NewLoginService(repo, nil)

	result, err := svc.updateAt(context.Background(), "user-1", now)
	if err != nil {
		t.Fatalf("updateAtに失敗: %v", err)
	}

	if result.Updated {
		t.Error("同日2回目の更新でUpdatedがtrue")
	}
	if result.Streak != 5 {
		t.Errorf("Streak = %d, want 5", result.Streak)
	}
	if repo.updateCalls != 0 {
		t.Errorf("同日2回目で書き込みが発生した: %d回", repo.updateCalls)
	}
}

func TestLoginUpdate_NewBestIsFlagged(t *testing.T) {
	now := time.Date(2026, 3, 20, 10, 0, 0, 0, time.UTC)
	repo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return userWithActivity(9, 9, 1, now), nil
		},
	}
	svc := NewLoginService(repo, nil)

	result, err := svc.updateAt(context.Background(), "user-1", now)
	if err != nil {
		t.Fatalf("updateAtに失敗: %v", err)
	}

	if !result.IsBest || result.Streak != 10 {
		t.Errorf("result = %+v, want Streak 10 / IsBest", result)
	}
	if repo.updatedBest != 10 {
		t.Errorf("best = %d, want 10", repo.updatedBest)
	}
}

func TestLoginUpdate_UnlocksMilestones(t *testing.T) {
	now := time.Date(2026, 3, 20, 10, 0, 0, 0, time.UTC)
	repo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return userWithActivity(6, 6, 1, now), nil
		},
	}
	unlocker := &mockUnlocker{}
	svc := NewLoginService(repo, unlocker)

	if _, err := svc.updateAt(context.Background(), "user-1", now); err != nil {
		t.Fatalf("updateAtに失敗: %v", err)
	}

	// ストリーク7到達で3日・7日の実績が解除対象になる（30日は未到達）
	want := []string{model.AchStreakRookie, model.AchStreakVeteran}
	if len(unlocker.unlocked) != len(want) {
		t.Fatalf("unlocked = %v, want %v", unlocker.unlocked, want)
	}
	for i, code := range want {
		if unlocker.unlocked[i] != code {
			t.Errorf("unlocked[%d] = %q, want %q", i, unlocker.unlocked[i], code)
		}
	}
}

func TestLoginUpdate_UserNotFound(t *testing.T) {
	repo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return nil, nil
		},
	}
	svc := NewLoginService(repo, nil)

	_, err := svc.Update(context.Background(), "missing-user")
	if err == nil {
		t.Fatal("存在しないユーザーでエラーが返らない")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeUserNotFound {
		t.Errorf("err = %v, want USER_NOT_FOUND", err)
	}
}
