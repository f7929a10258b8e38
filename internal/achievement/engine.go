package achievement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/goalquiz/internal/model"
	"github.com/hitoshi/goalquiz/internal/notify"
	"github.com/hitoshi/goalquiz/internal/repository"
)

// 実績判定の閾値。
const (
	centurionWins      = 100
	weekendWins        = 10
	luckyFirstSessions = 10
	guessMasterWins    = 20
	masteryCorrects    = 50
	comebackErrors     = 3
	superStreak        = 100
	superGameXp        = 5000
	superStreakDays    = 5
	connectionsTarget  = 10
	messagesTarget     = 100
)

// GameSource はゲームカタログ参照のインターフェース。games.Resolverが実装する。
type GameSource interface {
	ResolveSlug(ctx context.Context, slug string) (*model.Game, error)
	ListDaily(ctx context.Context) ([]*model.Game, error)
}

// StreakSource はデイリー勝利ストリーク計算のインターフェース。
// streak.Trackerが実装する。
type StreakSource interface {
	DailyWinStreak(ctx context.Context, userID, gameID string) int
}

// SocialCounterSource はソーシャル系実績の判定材料を提供する外部コラボレータの
// ポート。コネクション数・メッセージ数の管理はこのサービスの責務外。
type SocialCounterSource interface {
	ConnectionCount(ctx context.Context, userID string) (int, error)
	MessageCount(ctx context.Context, userID string) (int, error)
}

// Engine は実績の解除と解除条件の評価を行う。
//
// 評価は常にベストエフォートで、個々のチェックの失敗は他のチェックにも
// 呼び出し元にも波及させない（進行は止めず、ログに残すのみ）。
// 解除の冪等性はUserAchievementRepository.Unlockのユニーク制約が保証する。
type Engine struct {
	catalog     *Catalog
	unlockRepo  repository.UserAchievementRepository
	sessionRepo repository.GameSessionRepository
	xpRepo      repository.XpEventRepository
	gameSource  GameSource
	streaks     StreakSource
	social      SocialCounterSource // 未接続ならnil
	notifier    notify.Notifier

	// nowはテストから差し替えるための現在時刻取得関数。
	now func() time.Time
}

// NewEngine はEngineの新しいインスタンスを生成する。
// socialは外部コラボレータ未接続の環境ではnilでよい（ソーシャル実績は判定されない）。
func NewEngine(
	catalog *Catalog,
	unlockRepo repository.UserAchievementRepository,
	sessionRepo repository.GameSessionRepository,
	xpRepo repository.XpEventRepository,
	gameSource GameSource,
	streaks StreakSource,
	social SocialCounterSource,
	notifier notify.Notifier,
) *Engine {
	return &Engine{
		catalog:     catalog,
		unlockRepo:  unlockRepo,
		sessionRepo: sessionRepo,
		xpRepo:      xpRepo,
		gameSource:  gameSource,
		streaks:     streaks,
		social:      social,
		notifier:    notifier,
		now:         time.Now,
	}
}

// Unlock は指定コードの実績を解除する。
// 既に解除済みの場合はfalseを返し、記録は一切変更しない（冪等）。
// 新規解除の場合のみ通知を1回発火する。
func (e *Engine) Unlock(ctx context.Context, userID, code string, meta model.Meta) (bool, error) {
	if userID == "" {
		return false, model.NewValidationError("ユーザーIDが指定されていません")
	}

	ach, err := e.catalog.ByCode(ctx, code)
	if err != nil {
		return false, fmt.Errorf("実績の解除に失敗しました: %w", err)
	}
	if ach == nil {
		return false, model.NewAchievementNotFoundError(code)
	}

	newlyUnlocked, err := e.unlockRepo.Unlock(ctx, userID, ach.ID, meta)
	if err != nil {
		return false, fmt.Errorf("実績の解除に失敗しました: %w", err)
	}

	if newlyUnlocked {
		e.notifier.NotifyAchievement(ctx, notify.AchievementEvent{
			UserID: userID,
			Code:   ach.Code,
			Name:   ach.Name,
			Points: ach.Points,
		})
	}

	return newlyUnlocked, nil
}

// ListUnlocked はユーザーの解除済み実績を返す。
func (e *Engine) ListUnlocked(ctx context.Context, userID string) ([]repository.UserAchievementWithDetail, error) {
	unlocked, err := e.unlockRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("解除済み実績の取得に失敗しました: %w", err)
	}
	return unlocked, nil
}

// unlockIf は条件を満たす場合に実績を解除する。失敗はログに記録するのみ。
func (e *Engine) unlockIf(ctx context.Context, userID, code string, cond bool, meta model.Meta) {
	if !cond {
		return
	}
	if _, err := e.Unlock(ctx, userID, code, meta); err != nil {
		slog.Error("実績チェックに失敗しました",
			slog.String("user_id", userID),
			slog.String("code", code),
			slog.String("error", err.Error()),
		)
	}
}

// EvaluateAfterAnswer は正解1問ごとの軽量チェックを実行する。
// XP付与のホットパスから呼ばれるため、ストア集計を伴う重いチェックは
// EvaluateAfterChallengeに寄せてある。
// metaには進行中セッションのcorrects・streakスナップショットが入る。
func (e *Engine) EvaluateAfterAnswer(ctx context.Context, userID string, meta model.Meta) {
	// 正解そのものが条件なので無条件に試みる（冪等なので初回のみ記録される）
	e.unlockIf(ctx, userID, model.AchFirstCorrect, true, meta)
	e.unlockIf(ctx, userID, model.AchTenCorrect, meta.Int("corrects") >= 10, meta)

	streak := meta.Int("streak")
	e.unlockIf(ctx, userID, model.AchStreak3, streak >= 3, meta)
	e.unlockIf(ctx, userID, model.AchStreak5, streak >= 5, meta)
	e.unlockIf(ctx, userID, model.AchStreak10, streak >= 10, meta)
	e.unlockIf(ctx, userID, model.AchStreak15, streak >= 15, meta)

	total, err := e.xpRepo.SumByUser(ctx, userID)
	if err != nil {
		slog.Error("累計XPの取得に失敗しました",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return
	}
	e.unlockIf(ctx, userID, model.AchXp100, total >= 100, nil)
	e.unlockIf(ctx, userID, model.AchXp1000, total >= 1000, nil)
}

// EvaluateAfterChallenge はチャレンジ確定後の実績チェックを一括で実行する。
// sessionはカタログ未登録ゲームの場合nilになり、その場合は何もしない。
func (e *Engine) EvaluateAfterChallenge(ctx context.Context, userID string, session *model.GameSession) {
	if session == nil || userID == "" {
		return
	}

	won := session.Result() == model.GameResultWin
	meta := model.Meta{"session_id": session.ID}

	e.checkSessionLocal(ctx, userID, session, won, meta)
	e.checkDailyCounts(ctx, userID, won, meta)
	e.checkGameStreaks(ctx, userID, session, meta)
	e.checkLifetimeCounts(ctx, userID, won, meta)
	e.checkMastery(ctx, userID, meta)
	e.checkSuper(ctx, userID, meta)
	e.checkSocial(ctx, userID, meta)
}

// checkSessionLocal は確定したセッション自身の内容だけで判定できる実績。
func (e *Engine) checkSessionLocal(ctx context.Context, userID string, session *model.GameSession, won bool, meta model.Meta) {
	e.unlockIf(ctx, userID, model.AchFirstWin, won, meta)

	// ミスゼロ勝利。errorsキーを記録しない旧クライアントは対象外。
	_, tracked := session.Metadata["errors"]
	e.unlockIf(ctx, userID, model.AchPerfectionist, won && tracked && session.Metadata.Int("errors") == 0, meta)
	e.unlockIf(ctx, userID, model.AchComebackKing, won && session.Metadata.Int("consecutiveErrors") >= comebackErrors, meta)

	endedAt := e.now().UTC()
	if session.EndedAt != nil {
		endedAt = session.EndedAt.UTC()
	}
	hour := endedAt.Hour()
	e.unlockIf(ctx, userID, model.AchNightOwl, won && hour < 5, meta)
	e.unlockIf(ctx, userID, model.AchEarlyBird, won && hour < 7 && hour >= 5, meta)
}

// checkDailyCounts は「同じ日のうちに」系の実績。
func (e *Engine) checkDailyCounts(ctx context.Context, userID string, won bool, meta model.Meta) {
	if !won {
		return
	}

	now := e.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	todayWins, err := e.sessionRepo.ListWonSince(ctx, userID, today)
	if err != nil {
		slog.Error("本日の勝利セッション取得に失敗しました",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return
	}

	gamesWon := distinctGames(todayWins)
	e.unlockIf(ctx, userID, model.AchDailyWins3, len(todayWins) >= 3, meta)
	e.unlockIf(ctx, userID, model.AchDailyWins5, len(todayWins) >= 5, meta)
	e.unlockIf(ctx, userID, model.AchDailyWins10, len(todayWins) >= 10, meta)
	e.unlockIf(ctx, userID, model.AchHatTrick, len(gamesWon) >= 3, meta)

	daily, err := e.gameSource.ListDaily(ctx)
	if err != nil {
		slog.Error("デイリーゲーム一覧の取得に失敗しました",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return
	}
	e.unlockIf(ctx, userID, model.AchDailyWinsAll, coversAll(gamesWon, daily), meta)

	// 1週間で全デイリーゲーム勝利
	weekWins, err := e.sessionRepo.ListWonSince(ctx, userID, now.AddDate(0, 0, -7))
	if err != nil {
		slog.Error("直近1週間の勝利セッション取得に失敗しました",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return
	}
	e.unlockIf(ctx, userID, model.AchGrandSlam, coversAll(distinctGames(weekWins), daily), meta)
}

// checkGameStreaks は連続勝利日数の実績。
func (e *Engine) checkGameStreaks(ctx context.Context, userID string, session *model.GameSession, meta model.Meta) {
	streak := e.streaks.DailyWinStreak(ctx, userID, session.GameID)
	e.unlockIf(ctx, userID, model.AchDailyStreak3, streak >= 3, meta)
	e.unlockIf(ctx, userID, model.AchDailyStreak5, streak >= 5, meta)
	e.unlockIf(ctx, userID, model.AchDailyStreak10, streak >= 10, meta)
}

// checkLifetimeCounts は通算カウントの実績。
func (e *Engine) checkLifetimeCounts(ctx context.Context, userID string, won bool, meta model.Meta) {
	wins, err := e.sessionRepo.CountWins(ctx, userID)
	if err != nil {
		slog.Error("通算勝利数の取得に失敗しました",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	} else {
		e.unlockIf(ctx, userID, model.AchCenturion, wins >= centurionWins, meta)
	}

	firstTries, err := e.sessionRepo.CountFirstTrySessions(ctx, userID)
	if err != nil {
		slog.Error("初手正解セッション数の取得に失敗しました",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	} else {
		e.unlockIf(ctx, userID, model.AchLuckyFirst, firstTries >= luckyFirstSessions, meta)
	}

	if !won {
		return
	}
	allWins, err := e.sessionRepo.ListWonSince(ctx, userID, time.Time{})
	if err != nil {
		slog.Error("勝利セッション一覧の取得に失敗しました",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return
	}
	weekend := 0
	for _, s := range allWins {
		switch s.StartedAt.UTC().Weekday() {
		case time.Saturday, time.Sunday:
			weekend++
		}
	}
	e.unlockIf(ctx, userID, model.AchWeekendWarrior, weekend >= weekendWins, meta)
}

// checkMastery はゲーム別マスタリーの実績。
func (e *Engine) checkMastery(ctx context.Context, userID string, meta model.Meta) {
	if game := e.resolveGame(ctx, userID, "guess-player"); game != nil {
		wins, err := e.sessionRepo.CountWinsByGame(ctx, userID, game.ID)
		if err != nil {
			slog.Error("ゲーム別勝利数の取得に失敗しました",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
		} else {
			e.unlockIf(ctx, userID, model.AchGuessMaster, wins >= guessMasterWins, meta)
		}
	}

	e.checkCorrectsMastery(ctx, userID, "nationality", model.AchNationalityExpert, meta)
	e.checkCorrectsMastery(ctx, userID, "player-position", model.AchPositionGuru, meta)
}

// checkCorrectsMastery は特定ゲームの通算正解数による実績を判定する。
func (e *Engine) checkCorrectsMastery(ctx context.Context, userID, slug, code string, meta model.Meta) {
	game := e.resolveGame(ctx, userID, slug)
	if game == nil {
		return
	}
	corrects, err := e.sessionRepo.SumCorrectsByGame(ctx, userID, game.ID)
	if err != nil {
		slog.Error("通算正解数の取得に失敗しました",
			slog.String("user_id", userID),
			slog.String("game", slug),
			slog.String("error", err.Error()),
		)
		return
	}
	e.unlockIf(ctx, userID, code, corrects >= masteryCorrects, meta)
}

// checkSuper は複数ゲーム横断のスーパー実績。
func (e *Engine) checkSuper(ctx context.Context, userID string, meta model.Meta) {
	maxStreaks, err := e.sessionRepo.MaxMetaStreakPerGame(ctx, userID)
	if err != nil {
		slog.Error("ゲーム別最大ストリークの取得に失敗しました",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	} else {
		count := 0
		for _, s := range maxStreaks {
			if s >= superStreak {
				count++
			}
		}
		e.unlockIf(ctx, userID, model.AchStreakDual100, count >= 2, meta)
	}

	xpPerGame, err := e.xpRepo.SumByUserPerGame(ctx, userID)
	if err != nil {
		slog.Error("ゲーム別XP合計の取得に失敗しました",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	} else {
		count := 0
		for _, xp := range xpPerGame {
			if xp >= superGameXp {
				count++
			}
		}
		e.unlockIf(ctx, userID, model.AchXpMulti5k3, count >= 3, meta)
	}

	daily, err := e.gameSource.ListDaily(ctx)
	if err != nil {
		slog.Error("デイリーゲーム一覧の取得に失敗しました",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return
	}
	hot := 0
	for _, g := range daily {
		if e.streaks.DailyWinStreak(ctx, userID, g.ID) >= superStreakDays {
			hot++
		}
	}
	e.unlockIf(ctx, userID, model.AchDailySuper5x3, hot >= 3, meta)
}

// checkSocial は外部コラボレータのカウンタによるソーシャル実績。
func (e *Engine) checkSocial(ctx context.Context, userID string, meta model.Meta) {
	if e.social == nil {
		return
	}

	connections, err := e.social.ConnectionCount(ctx, userID)
	if err != nil {
		slog.Error("コネクション数の取得に失敗しました",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	} else {
		e.unlockIf(ctx, userID, model.AchSocialButterfly, connections >= connectionsTarget, meta)
	}

	messages, err := e.social.MessageCount(ctx, userID)
	if err != nil {
		slog.Error("メッセージ数の取得に失敗しました",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	} else {
		e.unlockIf(ctx, userID, model.AchChatMaster, messages >= messagesTarget, meta)
	}
}

// resolveGame はスラッグからゲームを解決する。失敗・未登録はnil。
func (e *Engine) resolveGame(ctx context.Context, userID, slug string) *model.Game {
	game, err := e.gameSource.ResolveSlug(ctx, slug)
	if err != nil {
		slog.Error("ゲームの解決に失敗しました",
			slog.String("user_id", userID),
			slog.String("game", slug),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return game
}

// distinctGames は勝利セッション一覧からゲームIDの集合を作る。
func distinctGames(sessions []*model.GameSession) map[string]bool {
	games := make(map[string]bool)
	for _, s := range sessions {
		games[s.GameID] = true
	}
	return games
}

// coversAll はデイリーゲーム全種を勝ち切ったかを判定する。
func coversAll(won map[string]bool, daily []*model.Game) bool {
	if len(daily) == 0 {
		return false
	}
	for _, g := range daily {
		if !won[g.ID] {
			return false
		}
	}
	return true
}
