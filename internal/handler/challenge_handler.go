package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/goalquiz/internal/middleware"
	"github.com/hitoshi/goalquiz/internal/model"
)

// ChallengeServiceInterface はチャレンジハンドラーが必要とするサービスインターフェース。
type ChallengeServiceInterface interface {
	// IsAvailable は本日のチャレンジの可否と、確定済みの場合はその勝敗を返す。
	IsAvailable(ctx context.Context, userID, gameSlug string) (model.ChallengeAvailability, error)
	// Start は新しいゲームセッションを開始する。未知のゲームはnilを返す。
	Start(ctx context.Context, userID, gameSlug string, mode model.GameMode, meta model.Meta) (*model.GameSession, error)
}

// ChallengeCompleterInterface はセッション確定のインターフェース。
// 実績評価とレベルアップ検知を含むため、progression層のファサードを経由する。
type ChallengeCompleterInterface interface {
	CompleteChallenge(ctx context.Context, userID, sessionID string, score, xp int, patch model.Meta) (*model.GameSession, error)
}

// StreakReaderInterface はゲームごとの勝利ストリーク読み取りインターフェース。
type StreakReaderInterface interface {
	DailyWinStreak(ctx context.Context, userID, gameID string) int
	MaxDailyWinStreak(ctx context.Context, userID, gameID string) int
	LifetimeMaxStreak(ctx context.Context, userID, gameID string) int
}

// GameResolverInterface はスラグからゲームを解決するインターフェース。
type GameResolverInterface interface {
	ResolveSlug(ctx context.Context, rawSlug string) (*model.Game, error)
}

// ChallengeHandler はデイリーチャレンジのHTTPハンドラー。
type ChallengeHandler struct {
	service   ChallengeServiceInterface
	completer ChallengeCompleterInterface
	streaks   StreakReaderInterface
	resolver  GameResolverInterface
}

// NewChallengeHandler はChallengeHandlerを生成する。
func NewChallengeHandler(service ChallengeServiceInterface, completer ChallengeCompleterInterface, streaks StreakReaderInterface, resolver GameResolverInterface) *ChallengeHandler {
	return &ChallengeHandler{
		service:   service,
		completer: completer,
		streaks:   streaks,
		resolver:  resolver,
	}
}

// startChallengeRequest はセッション開始リクエストのボディ。
type startChallengeRequest struct {
	Mode     string     `json:"mode"`
	Metadata model.Meta `json:"metadata"`
}

// completeChallengeRequest はセッション確定リクエストのボディ。
type completeChallengeRequest struct {
	Score    int        `json:"score"`
	Xp       int        `json:"xp"`
	Metadata model.Meta `json:"metadata"`
}

// sessionResponse はゲームセッションのAPIレスポンス。
type sessionResponse struct {
	ID        string     `json:"id"`
	GameID    string     `json:"game_id"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Score     *int       `json:"score,omitempty"`
	XpEarned  *int       `json:"xp_earned,omitempty"`
	Metadata  model.Meta `json:"metadata,omitempty"`
}

// availabilityResponse はプレイ可否のAPIレスポンス。
// reasonとlast_resultは本日分を確定済みの場合にのみ含まれる。
type availabilityResponse struct {
	Game       string `json:"game"`
	Available  bool   `json:"available"`
	Reason     string `json:"reason,omitempty"`
	LastResult string `json:"last_result,omitempty"`
}

// streakResponse はゲームごとのストリーク情報のAPIレスポンス。
type streakResponse struct {
	Game         string `json:"game"`
	Current      int    `json:"current"`
	MaxDaily     int    `json:"max_daily"`
	LifetimeBest int    `json:"lifetime_best"`
}

// GetAvailability は本日のチャレンジのプレイ可否を返す。
// GET /api/challenges/{slug}/availability
func (h *ChallengeHandler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	slug := chi.URLParam(r, "slug")
	availability, err := h.service.IsAvailable(r.Context(), userID, slug)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, availabilityResponse{
		Game:       slug,
		Available:  availability.Available,
		Reason:     availability.Reason,
		LastResult: string(availability.LastResult),
	})
}

// Start は新しいゲームセッションを開始する。
// POST /api/challenges/{slug}/start
func (h *ChallengeHandler) Start(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req startChallengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}

	slug := chi.URLParam(r, "slug")
	session, err := h.service.Start(r.Context(), userID, slug, model.GameMode(req.Mode), req.Metadata)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if session == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewGameNotFoundError(slug))
		return
	}

	writeJSON(w, http.StatusCreated, toSessionResponse(session))
}

// Complete はゲームセッションを確定する。確定済みセッションへの再実行は冪等。
// POST /api/challenges/sessions/{id}/complete
func (h *ChallengeHandler) Complete(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req completeChallengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}

	sessionID := chi.URLParam(r, "id")
	session, err := h.completer.CompleteChallenge(r.Context(), userID, sessionID, req.Score, req.Xp, req.Metadata)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if session == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewSessionNotFoundError(sessionID))
		return
	}

	writeJSON(w, http.StatusOK, toSessionResponse(session))
}

// GetStreak はゲームごとの勝利ストリーク情報を返す。
// GET /api/challenges/{slug}/streak
func (h *ChallengeHandler) GetStreak(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	slug := chi.URLParam(r, "slug")
	game, err := h.resolver.ResolveSlug(r.Context(), slug)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if game == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewGameNotFoundError(slug))
		return
	}

	ctx := r.Context()
	writeJSON(w, http.StatusOK, streakResponse{
		Game:         game.Slug,
		Current:      h.streaks.DailyWinStreak(ctx, userID, game.ID),
		MaxDaily:     h.streaks.MaxDailyWinStreak(ctx, userID, game.ID),
		LifetimeBest: h.streaks.LifetimeMaxStreak(ctx, userID, game.ID),
	})
}

// toSessionResponse はmodel.GameSessionからAPIレスポンスに変換する。
func toSessionResponse(session *model.GameSession) sessionResponse {
	return sessionResponse{
		ID:        session.ID,
		GameID:    session.GameID,
		StartedAt: session.StartedAt,
		EndedAt:   session.EndedAt,
		Score:     session.ScoreFinal,
		XpEarned:  session.XpEarned,
		Metadata:  session.Metadata,
	}
}
