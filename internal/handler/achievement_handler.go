package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/goalquiz/internal/middleware"
	"github.com/hitoshi/goalquiz/internal/model"
	"github.com/hitoshi/goalquiz/internal/repository"
)

// AchievementServiceInterface は実績ハンドラーが必要とするサービスインターフェース。
type AchievementServiceInterface interface {
	// Unlock は実績を解除する。既に解除済みの場合はfalseを返す（冪等）。
	Unlock(ctx context.Context, userID, code string, meta model.Meta) (bool, error)
	// ListUnlocked はユーザーの解除済み実績一覧を返す。
	ListUnlocked(ctx context.Context, userID string) ([]repository.UserAchievementWithDetail, error)
}

// AchievementCatalogInterface は実績カタログの読み取りインターフェース。
type AchievementCatalogInterface interface {
	List(ctx context.Context) ([]*model.Achievement, error)
}

// AchievementHandler は実績のHTTPハンドラー。
type AchievementHandler struct {
	service AchievementServiceInterface
	catalog AchievementCatalogInterface
}

// NewAchievementHandler はAchievementHandlerを生成する。
func NewAchievementHandler(service AchievementServiceInterface, catalog AchievementCatalogInterface) *AchievementHandler {
	return &AchievementHandler{
		service: service,
		catalog: catalog,
	}
}

// achievementResponse は実績カタログ1件のAPIレスポンス。
type achievementResponse struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Points      int    `json:"points"`
	Difficulty  string `json:"difficulty"`
}

// unlockedAchievementResponse は解除済み実績1件のAPIレスポンス。
type unlockedAchievementResponse struct {
	Code       string    `json:"code"`
	Name       string    `json:"name"`
	Points     int       `json:"points"`
	Difficulty string    `json:"difficulty"`
	EarnedAt   time.Time `json:"earned_at"`
}

// unlockRequest は明示的解除リクエストのボディ。
type unlockRequest struct {
	Metadata model.Meta `json:"metadata"`
}

// unlockResponse は明示的解除のAPIレスポンス。
type unlockResponse struct {
	Code     string `json:"code"`
	Unlocked bool   `json:"unlocked"` // falseは既に解除済みだったことを示す
}

// ListCatalog は実績カタログ全件を返す。
// GET /api/achievements
func (h *AchievementHandler) ListCatalog(w http.ResponseWriter, r *http.Request) {
	achievements, err := h.catalog.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]achievementResponse, 0, len(achievements))
	for _, a := range achievements {
		resp = append(resp, achievementResponse{
			Code:        a.Code,
			Name:        a.Name,
			Description: a.Description,
			Points:      a.Points,
			Difficulty:  a.Difficulty,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListMine は自分の解除済み実績一覧を返す。
// GET /api/achievements/me
func (h *AchievementHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	unlocked, err := h.service.ListUnlocked(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]unlockedAchievementResponse, 0, len(unlocked))
	for _, u := range unlocked {
		resp = append(resp, unlockedAchievementResponse{
			Code:       u.Code,
			Name:       u.Name,
			Points:     u.Points,
			Difficulty: u.Difficulty,
			EarnedAt:   u.EarnedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// Unlock はクライアント判定型の実績を明示的に解除する。
// POST /api/achievements/{code}/unlock
func (h *AchievementHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req unlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}

	code := chi.URLParam(r, "code")
	unlocked, err := h.service.Unlock(r.Context(), userID, code, req.Metadata)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, unlockResponse{Code: code, Unlocked: unlocked})
}
