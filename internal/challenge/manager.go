// Package challenge はデイリーチャレンジセッションのライフサイクルを管理する。
//
// チャレンジは (ユーザー, ゲーム, UTC暦日) につき確定済みセッションを
// 高々1件しか持てない。開始のみで確定されなかったセッション（中断）は
// 「プレイ済み」には数えず、同日の再挑戦を妨げない。
package challenge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/goalquiz/internal/model"
	"github.com/hitoshi/goalquiz/internal/repository"
	"github.com/hitoshi/goalquiz/internal/security"
)

// GameResolver はゲームカタログ参照のインターフェースを定義する。
// games.Resolverが実装する。
type GameResolver interface {
	// ResolveSlug は指定スラッグのゲームを返す。未登録の場合はnilを返す。
	ResolveSlug(ctx context.Context, slug string) (*model.Game, error)
	// ResolveID は指定IDのゲームを返す。存在しない場合はnilを返す。
	ResolveID(ctx context.Context, id string) (*model.Game, error)
}

// Manager はデイリーチャレンジの利用可否判定・開始・確定を提供する。
type Manager struct {
	sessionRepo repository.GameSessionRepository
	resolver    GameResolver
	sanitizer   security.MetaSanitizer

	// nowはテストから差し替えるための現在時刻取得関数。
	now func() time.Time
}

// NewManager はManagerの新しいインスタンスを生成する。
func NewManager(sessionRepo repository.GameSessionRepository, resolver GameResolver, sanitizer security.MetaSanitizer) *Manager {
	return &Manager{
		sessionRepo: sessionRepo,
		resolver:    resolver,
		sanitizer:   sanitizer,
		now:         time.Now,
	}
}

// InferResult はセッションメタデータから勝敗を判定する。
// metadataに明示的なresultがあればそれを信頼する。
// 無い場合は旧クライアント互換のため、ゲーム系統ごとのルールで推定する:
//   - 並べ替え系: スコア50以上で勝ち
//   - ライフ制: 推定しない（明示記録のみ）
//   - 時間制限付き選択式: 正解10問以上、またはスコア100以上で勝ち
func InferResult(gameSlug string, meta model.Meta) model.GameResult {
	if r := model.GameResult(meta.String("result")); r == model.GameResultWin || r == model.GameResultLoss {
		return r
	}

	switch model.FamilyForSlug(gameSlug) {
	case model.GameFamilyOrdering:
		if meta.Int("score") >= 50 {
			return model.GameResultWin
		}
		return model.GameResultLoss
	case model.GameFamilyLives:
		return ""
	default: // timed_mcq
		if meta.Int("corrects") >= 10 || meta.Int("score") >= 100 {
			return model.GameResultWin
		}
		return model.GameResultLoss
	}
}

// IsAvailable は本日（UTC）のチャレンジ可否を返す。
// 本日分を確定済みの場合はそのセッションの勝敗をLastResultとして添える。
// 確定済みセッションに明示的なresultが無い旧データは系統ルールで推定する。
// カタログ未登録のゲームは常に利用可能として扱う（記録対象外のため）。
func (m *Manager) IsAvailable(ctx context.Context, userID, gameSlug string) (model.ChallengeAvailability, error) {
	if userID == "" {
		return model.ChallengeAvailability{}, model.NewValidationError("ユーザーIDが指定されていません")
	}

	game, err := m.resolver.ResolveSlug(ctx, gameSlug)
	if err != nil {
		return model.ChallengeAvailability{}, fmt.Errorf("チャレンジ可否の判定に失敗しました: %w", err)
	}
	if game == nil {
		return model.ChallengeAvailability{Available: true}, nil
	}

	sessions, err := m.sessionRepo.ListByUserAndGameSince(ctx, userID, game.ID, startOfDayUTC(m.now()))
	if err != nil {
		return model.ChallengeAvailability{}, fmt.Errorf("本日のセッション取得に失敗しました: %w", err)
	}

	for _, s := range sessions {
		if !s.Finished() || s.Mode() != model.GameModeChallenge {
			continue
		}
		result := s.Result()
		if result != model.GameResultWin && result != model.GameResultLoss {
			result = InferResult(game.Slug, s.Metadata)
		}
		return model.ChallengeAvailability{
			Reason:     model.ReasonAlreadyPlayed,
			LastResult: result,
		}, nil
	}
	return model.ChallengeAvailability{Available: true}, nil
}

// isAvailableForGame は本日分の確定済みチャレンジセッションの有無を調べる。
func (m *Manager) isAvailableForGame(ctx context.Context, userID, gameID string) (bool, error) {
	sessions, err := m.sessionRepo.ListByUserAndGameSince(ctx, userID, gameID, startOfDayUTC(m.now()))
	if err != nil {
		return false, fmt.Errorf("本日のセッション取得に失敗しました: %w", err)
	}

	for _, s := range sessions {
		if s.Finished() && s.Mode() == model.GameModeChallenge {
			return false, nil
		}
	}
	return true, nil
}

// Start はチャレンジセッションを開始する。
// 本日分を既に確定している場合はALREADY_PLAYEDを返す。
// カタログ未登録のゲームは記録対象外のため、セッションを作らずnilを返す
// （呼び出し側はセッションIDなしでプレイを続行できる）。
func (m *Manager) Start(ctx context.Context, userID, gameSlug string, mode model.GameMode, meta model.Meta) (*model.GameSession, error) {
	if userID == "" {
		return nil, model.NewValidationError("ユーザーIDが指定されていません")
	}
	if mode == "" {
		mode = model.GameModeChallenge
	}

	game, err := m.resolver.ResolveSlug(ctx, gameSlug)
	if err != nil {
		return nil, fmt.Errorf("チャレンジの開始に失敗しました: %w", err)
	}
	if game == nil {
		return nil, nil
	}

	if mode == model.GameModeChallenge {
		available, err := m.isAvailableForGame(ctx, userID, game.ID)
		if err != nil {
			return nil, err
		}
		if !available {
			return nil, model.NewAlreadyPlayedError(game.Slug)
		}
	}

	metadata := m.sanitizer.SanitizeMeta(meta)
	if metadata == nil {
		metadata = model.Meta{}
	}
	// modeはサーバーが決定する。クライアント指定のmodeは上書きする。
	// 勝敗は確定時にのみ記録されるため、開始時の申告は破棄する。
	delete(metadata, "result")
	metadata["mode"] = string(mode)

	session := &model.GameSession{
		ID:        uuid.New().String(),
		UserID:    userID,
		GameID:    game.ID,
		StartedAt: m.now().UTC(),
		Metadata:  metadata,
	}
	if err := m.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("チャレンジセッションの作成に失敗しました: %w", err)
	}

	return session, nil
}

// Complete はチャレンジセッションを確定する。
// score・xp・終了時刻・マージ済みmetadataを1回だけ書き込む。
// チャレンジで勝敗が未記録の場合はゲーム系統のルールで推定して補完する。
// 通常・練習プレイには勝敗を記録しない。
// セッションIDが空の場合（カタログ未登録ゲーム）は何もせずnilを返す。
// 他ユーザーのセッションはSESSION_NOT_FOUNDとして扱う（存在を漏らさない）。
func (m *Manager) Complete(ctx context.Context, userID, sessionID string, score, xp int, patch model.Meta) (*model.GameSession, error) {
	if sessionID == "" {
		return nil, nil
	}
	if xp < 0 {
		return nil, model.NewNegativeXpError(xp)
	}
	if score < 0 {
		return nil, model.NewValidationError("スコアに負の値は指定できません")
	}

	session, err := m.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("チャレンジの確定に失敗しました: %w", err)
	}
	if session == nil || (userID != "" && session.UserID != userID) {
		return nil, model.NewSessionNotFoundError(sessionID)
	}
	if session.Finished() {
		// 再送などによる二重確定は冪等に扱う
		return session, nil
	}

	merged := m.mergeMetadata(session.Metadata, patch)
	merged["score"] = score

	// 勝敗が意味を持つのはチャレンジのみ。通常・練習プレイの申告は破棄する。
	if model.GameMode(merged.String("mode")) != model.GameModeChallenge {
		delete(merged, "result")
	} else if r := model.GameResult(merged.String("result")); r != model.GameResultWin && r != model.GameResultLoss {
		slug := ""
		if game, err := m.resolver.ResolveID(ctx, session.GameID); err == nil && game != nil {
			slug = game.Slug
		}
		if inferred := InferResult(slug, merged); inferred != "" {
			merged["result"] = string(inferred)
		}
	}

	endedAt := m.now().UTC()
	if err := m.sessionRepo.Complete(ctx, sessionID, score, xp, endedAt, merged); err != nil {
		if errors.Is(err, repository.ErrDuplicateFinish) {
			return nil, model.NewAlreadyPlayedError(merged.String("game"))
		}
		return nil, fmt.Errorf("チャレンジの確定に失敗しました: %w", err)
	}

	session.EndedAt = &endedAt
	session.ScoreFinal = &score
	session.XpEarned = &xp
	session.Metadata = merged
	return session, nil
}

// mergeMetadata は確定時のパッチを開始時のmetadataに重ねる。
// サーバーが管理するmodeはパッチでは変更できない。
func (m *Manager) mergeMetadata(base, patch model.Meta) model.Meta {
	merged := make(model.Meta, len(base)+len(patch))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range m.sanitizer.SanitizeMeta(patch) {
		if k == "mode" {
			continue
		}
		merged[k] = v
	}
	if merged.String("mode") == "" {
		merged["mode"] = string(model.GameModeChallenge)
	}
	return merged
}

// startOfDayUTC は指定時刻のUTC暦日の開始時刻を返す。
func startOfDayUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
