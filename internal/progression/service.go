// Package progression はXP付与・チャレンジ確定・リーダーボードを束ねる
// 進行状況のファサードを提供する。
//
// ハンドラーはこのパッケージだけを通して進行系の書き込みを行う。
// 実績評価・ログインストリーク・レベルアップ検知といった副作用は
// すべてここで配線され、個々の失敗はXP付与そのものを失敗させない。
package progression

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/goalquiz/internal/level"
	"github.com/hitoshi/goalquiz/internal/metrics"
	"github.com/hitoshi/goalquiz/internal/model"
	"github.com/hitoshi/goalquiz/internal/repository"
	"github.com/hitoshi/goalquiz/internal/security"
	"github.com/hitoshi/goalquiz/internal/streak"
)

// 難易度別のXP報酬テーブル。クライアント申告額はこの値を上限とする。
const (
	rewardEasy   = 5
	rewardNormal = 10
	rewardHard   = 20
)

// leaderboardDefaultLimit とleaderboardMaxLimitはリーダーボードの既定・上限行数。
const (
	leaderboardDefaultLimit = 10
	leaderboardMaxLimit     = 100
)

// GameResolver はゲームカタログ参照のインターフェース。games.Resolverが実装する。
type GameResolver interface {
	ResolveSlug(ctx context.Context, slug string) (*model.Game, error)
}

// LevelService はレベル導出・レベルアップ検知のインターフェース。
// level.Serviceが実装する。
type LevelService interface {
	UserLevel(ctx context.Context, userID string) level.Info
	DetectLevelUp(ctx context.Context, userID string) (bool, error)
	Thresholds(ctx context.Context) ([]model.LevelThreshold, error)
}

// AchievementEvaluator は実績評価のインターフェース。achievement.Engineが実装する。
type AchievementEvaluator interface {
	EvaluateAfterAnswer(ctx context.Context, userID string, meta model.Meta)
	EvaluateAfterChallenge(ctx context.Context, userID string, session *model.GameSession)
}

// ChallengeCompleter はチャレンジ確定のインターフェース。challenge.Managerが実装する。
type ChallengeCompleter interface {
	Complete(ctx context.Context, userID, sessionID string, score, xp int, patch model.Meta) (*model.GameSession, error)
}

// LoginStreakUpdater はログインストリーク更新のインターフェース。
// streak.LoginServiceが実装する。
type LoginStreakUpdater interface {
	Update(ctx context.Context, userID string) (streak.LoginResult, error)
}

// AwardRequest はXP付与の要求を表す。
type AwardRequest struct {
	UserID    string
	GameSlug  string
	Amount    int    // クライアント申告額（参考値。報酬テーブルが上限）
	SessionID string // 進行中のゲームセッション（任意）
	Meta      model.Meta
}

// AwardResult はXP付与の結果を表す。
type AwardResult struct {
	EventID string
	Amount  int
	Level   level.Info
}

// Service は進行状況のファサード。
type Service struct {
	xpRepo          repository.XpEventRepository
	leaderboardRepo repository.LeaderboardRepository
	resolver        GameResolver
	levels          LevelService
	evaluator       AchievementEvaluator
	completer       ChallengeCompleter
	loginStreak     LoginStreakUpdater
	sanitizer       security.MetaSanitizer
	metrics         metrics.MetricsCollector
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	xpRepo repository.XpEventRepository,
	leaderboardRepo repository.LeaderboardRepository,
	resolver GameResolver,
	levels LevelService,
	evaluator AchievementEvaluator,
	completer ChallengeCompleter,
	loginStreak LoginStreakUpdater,
	sanitizer security.MetaSanitizer,
	collector metrics.MetricsCollector,
) *Service {
	return &Service{
		xpRepo:          xpRepo,
		leaderboardRepo: leaderboardRepo,
		resolver:        resolver,
		levels:          levels,
		evaluator:       evaluator,
		completer:       completer,
		loginStreak:     loginStreak,
		sanitizer:       sanitizer,
		metrics:         collector,
	}
}

// rewardFor は難易度に対応するXP報酬を返す。未知の難易度はnormal扱い。
func rewardFor(difficulty string) int {
	switch difficulty {
	case "easy":
		return rewardEasy
	case "hard":
		return rewardHard
	default:
		return rewardNormal
	}
}

// AwardXpForCorrectAnswer は正解1問に対するXPを付与する。
// 付与額はサーバーが難易度報酬テーブルから決定し、クライアント申告額は
// テーブル値を上限として縮められるだけで増やすことはできない。
// 台帳への追記が成功すれば、ログインストリーク更新・実績チェック・
// レベルアップ検知の失敗があっても付与自体は成功として返す。
func (s *Service) AwardXpForCorrectAnswer(ctx context.Context, req AwardRequest) (AwardResult, error) {
	if req.UserID == "" {
		return AwardResult{}, model.NewValidationError("ユーザーIDが指定されていません")
	}
	if req.Amount < 0 {
		return AwardResult{}, model.NewNegativeXpError(req.Amount)
	}

	meta := s.sanitizer.SanitizeMeta(req.Meta)
	if meta == nil {
		meta = model.Meta{}
	}

	amount := rewardFor(meta.String("difficulty"))
	if req.Amount > 0 && req.Amount < amount {
		amount = req.Amount
	}

	var gameID *string
	if req.GameSlug != "" {
		game, err := s.resolver.ResolveSlug(ctx, req.GameSlug)
		if err != nil {
			return AwardResult{}, fmt.Errorf("XPの付与に失敗しました: %w", err)
		}
		if game != nil {
			gameID = &game.ID
			meta["game"] = game.Slug
		}
	}

	var sessionID *string
	if req.SessionID != "" {
		sessionID = &req.SessionID
	}

	start := time.Now()
	eventID, err := s.xpRepo.Append(ctx, &model.XpEvent{
		UserID:    req.UserID,
		Amount:    amount,
		Reason:    model.XpReasonCorrectAnswer,
		GameID:    gameID,
		SessionID: sessionID,
		Meta:      meta,
	})
	s.metrics.RecordStoreLatency("xp_append", time.Since(start))
	if err != nil {
		return AwardResult{}, fmt.Errorf("XPの付与に失敗しました: %w", err)
	}
	s.metrics.RecordXpAwarded(amount)

	// ここから先は付随する副作用。失敗してもXP付与は巻き戻さない。
	if _, err := s.loginStreak.Update(ctx, req.UserID); err != nil {
		slog.Error("ログインストリークの更新に失敗しました",
			slog.String("user_id", req.UserID),
			slog.String("error", err.Error()),
		)
	}

	s.evaluator.EvaluateAfterAnswer(ctx, req.UserID, meta)

	leveledUp, err := s.levels.DetectLevelUp(ctx, req.UserID)
	if err != nil {
		slog.Error("レベルアップ検知に失敗しました",
			slog.String("user_id", req.UserID),
			slog.String("error", err.Error()),
		)
	}
	if leveledUp {
		s.metrics.RecordLevelUp()
	}

	return AwardResult{
		EventID: eventID,
		Amount:  amount,
		Level:   s.levels.UserLevel(ctx, req.UserID),
	}, nil
}

// CompleteChallenge はチャレンジセッションを確定し、確定後の実績評価と
// レベルアップ検知を行う。
func (s *Service) CompleteChallenge(ctx context.Context, userID, sessionID string, score, xp int, patch model.Meta) (*model.GameSession, error) {
	start := time.Now()
	session, err := s.completer.Complete(ctx, userID, sessionID, score, xp, patch)
	s.metrics.RecordStoreLatency("session_complete", time.Since(start))
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}

	s.metrics.RecordSessionCompleted(string(session.Result()))
	s.evaluator.EvaluateAfterChallenge(ctx, userID, session)

	leveledUp, err := s.levels.DetectLevelUp(ctx, userID)
	if err != nil {
		slog.Error("レベルアップ検知に失敗しました",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
	if leveledUp {
		s.metrics.RecordLevelUp()
	}

	return session, nil
}

// GetUserLevel はユーザーの現在レベル情報を返す。
func (s *Service) GetUserLevel(ctx context.Context, userID string) level.Info {
	return s.levels.UserLevel(ctx, userID)
}

// GetLeaderboard はXP上位ユーザーをランク付きで返す。
// 各行のLevelはXP合計と閾値テーブルから導出して埋める。
func (s *Service) GetLeaderboard(ctx context.Context, period string, gameSlug string, limit, offset int) ([]repository.LeaderboardEntry, error) {
	p := model.LeaderboardPeriod(period)
	if period == "" {
		p = model.PeriodAllTime
	}
	if !p.Valid() {
		return nil, model.NewInvalidPeriodError(period)
	}

	if limit <= 0 {
		limit = leaderboardDefaultLimit
	}
	if limit > leaderboardMaxLimit {
		limit = leaderboardMaxLimit
	}
	if offset < 0 {
		offset = 0
	}

	var gameID *string
	if gameSlug != "" {
		game, err := s.resolver.ResolveSlug(ctx, gameSlug)
		if err != nil {
			return nil, fmt.Errorf("リーダーボードの取得に失敗しました: %w", err)
		}
		if game == nil {
			return nil, model.NewGameNotFoundError(gameSlug)
		}
		gameID = &game.ID
	}

	entries, err := s.leaderboardRepo.Top(ctx, p, gameID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("リーダーボードの取得に失敗しました: %w", err)
	}

	thresholds, err := s.levels.Thresholds(ctx)
	if err != nil {
		slog.Error("レベル閾値の取得に失敗したためレベル1で返します",
			slog.String("error", err.Error()),
		)
		thresholds = nil
	}
	for i := range entries {
		entries[i].Level = level.Compute(entries[i].Xp, thresholds)
	}

	return entries, nil
}
