package level

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/goalquiz/internal/model"
	"github.com/hitoshi/goalquiz/internal/notify"
	"github.com/hitoshi/goalquiz/internal/repository"
)

// thresholdCacheTTL は閾値テーブルのキャッシュ保持時間。
// 閾値は追記のみの参照データであり、短時間の陳腐化は許容される。
const thresholdCacheTTL = 60 * time.Second

// Info はユーザーのレベル情報を表す。
type Info struct {
	Level         int
	XpTotal       int
	XpToNextLevel int
}

// Service はレベル導出とレベルアップ検知のサービス層。
type Service struct {
	thresholdRepo repository.LevelThresholdRepository
	xpRepo        repository.XpEventRepository
	userRepo      repository.UserRepository
	notifier      notify.Notifier

	mu       sync.RWMutex
	cached   []model.LevelThreshold
	cachedAt time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	thresholdRepo repository.LevelThresholdRepository,
	xpRepo repository.XpEventRepository,
	userRepo repository.UserRepository,
	notifier notify.Notifier,
) *Service {
	return &Service{
		thresholdRepo: thresholdRepo,
		xpRepo:        xpRepo,
		userRepo:      userRepo,
		notifier:      notifier,
	}
}

// Thresholds は閾値テーブルをキャッシュ付きで返す。
func (s *Service) Thresholds(ctx context.Context) ([]model.LevelThreshold, error) {
	s.mu.RLock()
	if s.cached != nil && time.Since(s.cachedAt) < thresholdCacheTTL {
		defer s.mu.RUnlock()
		return s.cached, nil
	}
	s.mu.RUnlock()

	thresholds, err := s.thresholdRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("レベル閾値の取得に失敗しました: %w", err)
	}

	s.mu.Lock()
	s.cached = thresholds
	s.cachedAt = time.Now()
	s.mu.Unlock()

	return thresholds, nil
}

// UserLevel はユーザーの現在レベル情報を返す。
// 読み取り系のためUI表示を壊さないよう、取得失敗時は安全なデフォルト
// （レベル1、XP 0）を返しエラーはログのみに残す。
func (s *Service) UserLevel(ctx context.Context, userID string) Info {
	thresholds, err := s.Thresholds(ctx)
	if err != nil {
		slog.Error("レベル閾値の取得に失敗したためデフォルトを返します",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return Info{Level: 1}
	}

	xpTotal, err := s.xpRepo.SumByUser(ctx, userID)
	if err != nil {
		slog.Error("XP合計の取得に失敗したためデフォルトを返します",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return Info{Level: 1}
	}

	return Info{
		Level:         Compute(xpTotal, thresholds),
		XpTotal:       xpTotal,
		XpToNextLevel: NextThreshold(xpTotal, thresholds),
	}
}

// DetectLevelUp はXP付与後のレベルアップを検知し、上昇していれば
// 通知を1回発行して最終観測レベルを更新する。
// 比較は差分ではなく最終観測レベルに対して行うため、XP付与の重複や
// 順序逆転に対しても冪等に振る舞う。レベルが上昇した場合はtrueを返す。
func (s *Service) DetectLevelUp(ctx context.Context, userID string) (bool, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return false, model.NewUserNotFoundError()
	}

	thresholds, err := s.Thresholds(ctx)
	if err != nil {
		return false, err
	}

	xpTotal, err := s.xpRepo.SumByUser(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("XP合計の取得に失敗しました: %w", err)
	}

	newLevel := Compute(xpTotal, thresholds)
	if newLevel <= user.LastLevel {
		return false, nil
	}

	// UpdateLastLevelはlast_level < newLevelの場合のみ書き込むため、
	// 並行する検知が同じ上昇を二重に通知する窓は最小化される。
	if err := s.userRepo.UpdateLastLevel(ctx, userID, newLevel); err != nil {
		return false, err
	}

	s.notifier.NotifyLevelUp(ctx, notify.LevelUpEvent{UserID: userID, Level: newLevel})

	slog.Info("レベルアップを検知しました",
		slog.String("user_id", userID),
		slog.Int("from", user.LastLevel),
		slog.Int("to", newLevel),
	)

	return true, nil
}
