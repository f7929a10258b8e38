package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/hitoshi/goalquiz/internal/level"
	"github.com/hitoshi/goalquiz/internal/middleware"
	"github.com/hitoshi/goalquiz/internal/model"
	"github.com/hitoshi/goalquiz/internal/progression"
	"github.com/hitoshi/goalquiz/internal/repository"
)

// ProgressionServiceInterface は進行状況ハンドラーが必要とするサービスインターフェース。
type ProgressionServiceInterface interface {
	// AwardXpForCorrectAnswer は正解1問分のXPを付与する。
	AwardXpForCorrectAnswer(ctx context.Context, req progression.AwardRequest) (progression.AwardResult, error)
	// GetUserLevel は現在のレベル情報を返す。
	GetUserLevel(ctx context.Context, userID string) level.Info
	// GetLeaderboard はXPランキングを返す。
	GetLeaderboard(ctx context.Context, period, gameSlug string, limit, offset int) ([]repository.LeaderboardEntry, error)
}

// ProgressionHandler はXP付与・レベル・リーダーボードのHTTPハンドラー。
type ProgressionHandler struct {
	service ProgressionServiceInterface
}

// NewProgressionHandler はProgressionHandlerを生成する。
func NewProgressionHandler(service ProgressionServiceInterface) *ProgressionHandler {
	return &ProgressionHandler{service: service}
}

// awardXpRequest はXP付与リクエストのボディ。
type awardXpRequest struct {
	Game      string     `json:"game"`
	Amount    int        `json:"amount"`
	SessionID string     `json:"session_id"`
	Metadata  model.Meta `json:"metadata"`
}

// levelResponse はレベル情報のAPIレスポンス。
type levelResponse struct {
	Level         int `json:"level"`
	XpTotal       int `json:"xp_total"`
	XpToNextLevel int `json:"xp_to_next_level"`
}

// awardXpResponse はXP付与結果のAPIレスポンス。
type awardXpResponse struct {
	EventID string        `json:"event_id"`
	Amount  int           `json:"amount"`
	Level   levelResponse `json:"level"`
}

// leaderboardEntryResponse はリーダーボード1行のAPIレスポンス。
type leaderboardEntryResponse struct {
	Rank        int    `json:"rank"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Xp          int    `json:"xp"`
	Level       int    `json:"level"`
}

// AwardXp は正解1問分のXP付与を処理する。
// POST /api/progression/xp
func (h *ProgressionHandler) AwardXp(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req awardXpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}

	result, err := h.service.AwardXpForCorrectAnswer(r.Context(), progression.AwardRequest{
		UserID:    userID,
		GameSlug:  req.Game,
		Amount:    req.Amount,
		SessionID: req.SessionID,
		Meta:      req.Metadata,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, awardXpResponse{
		EventID: result.EventID,
		Amount:  result.Amount,
		Level:   toLevelResponse(result.Level),
	})
}

// GetLevel は現在のレベル情報を返す。
// GET /api/progression/level
func (h *ProgressionHandler) GetLevel(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	info := h.service.GetUserLevel(r.Context(), userID)
	writeJSON(w, http.StatusOK, toLevelResponse(info))
}

// GetLeaderboard はXPランキングを返す。
// GET /api/leaderboard?period=weekly&game=guess-player&limit=10&offset=0
func (h *ProgressionHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := parseIntParam(q.Get("limit"), 0)
	offset := parseIntParam(q.Get("offset"), 0)

	entries, err := h.service.GetLeaderboard(r.Context(), q.Get("period"), q.Get("game"), limit, offset)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]leaderboardEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, leaderboardEntryResponse{
			Rank:        e.Rank,
			UserID:      e.UserID,
			DisplayName: e.DisplayName,
			Xp:          e.Xp,
			Level:       e.Level,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// toLevelResponse はlevel.InfoからAPIレスポンスに変換する。
func toLevelResponse(info level.Info) levelResponse {
	return levelResponse{
		Level:         info.Level,
		XpTotal:       info.XpTotal,
		XpToNextLevel: info.XpToNextLevel,
	}
}

// parseIntParam はクエリパラメータを整数として解析する。解析失敗時はfallbackを返す。
func parseIntParam(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
