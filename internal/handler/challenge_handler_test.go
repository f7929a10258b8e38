package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/goalquiz/internal/model"
)

// --- モック ---

type mockChallengeService struct {
	isAvailableFn func(ctx context.Context, userID, gameSlug string) (model.ChallengeAvailability, error)
	startFn       func(ctx context.Context, userID, gameSlug string, mode model.GameMode, meta model.Meta) (*model.GameSession, error)
}

func (m *mockChallengeService) IsAvailable(ctx context.Context, userID, gameSlug string) (model.ChallengeAvailability, error) {
	if m.isAvailableFn != nil {
		return m.isAvailableFn(ctx, userID, gameSlug)
	}
	return model.ChallengeAvailability{Available: true}, nil
}

func (m *mockChallengeService) Start(ctx context.Context, userID, gameSlug string, mode model.GameMode, meta model.Meta) (*model.GameSession, error) {
	if m.startFn != nil {
		return m.startFn(ctx, userID, gameSlug, mode, meta)
	}
	return nil, nil
}

type mockChallengeCompleter struct {
	completeFn func(ctx context.Context, userID, sessionID string, score, xp int, patch model.Meta) (*model.GameSession, error)
}

func (m *mockChallengeCompleter) CompleteChallenge(ctx context.Context, userID, sessionID string, score, xp int, patch model.Meta) (*model.GameSession, error) {
	if m.completeFn != nil {
		return m.completeFn(ctx, userID, sessionID, score, xp, patch)
	}
	return nil, nil
}

type mockStreakReader struct {
	current  int
	maxDaily int
	lifetime int
}

func (m *mockStreakReader) DailyWinStreak(ctx context.Context, userID, gameID string) int {
	return m.current
}

func (m *mockStreakReader) MaxDailyWinStreak(ctx context.Context, userID, gameID string) int {
	return m.maxDaily
}

func (m *mockStreakReader) LifetimeMaxStreak(ctx context.Context, userID, gameID string) int {
	return m.lifetime
}

type mockGameResolver struct {
	resolveSlugFn func(ctx context.Context, rawSlug string) (*model.Game, error)
}

func (m *mockGameResolver) ResolveSlug(ctx context.Context, rawSlug string) (*model.Game, error) {
	if m.resolveSlugFn != nil {
		return m.resolveSlugFn(ctx, rawSlug)
	}
	return nil, nil
}

func newChallengeHandlerForTest(svc *mockChallengeService, completer *mockChallengeCompleter, streaks *mockStreakReader, resolver *mockGameResolver) *ChallengeHandler {
	if svc == nil {
		svc = &mockChallengeService{}
	}
	if completer == nil {
		completer = &mockChallengeCompleter{}
	}
	if streaks == nil {
		streaks = &mockStreakReader{}
	}
	if resolver == nil {
		resolver = &mockGameResolver{}
	}
	return NewChallengeHandler(svc, completer, streaks, resolver)
}

// --- GET /api/challenges/{slug}/availability テスト ---

func TestChallengeHandler_GetAvailability_Available(t *testing.T) {
	svc := &mockChallengeService{
		isAvailableFn: func(ctx context.Context, userID, gameSlug string) (model.ChallengeAvailability, error) {
			if userID != "user-123" {
				t.Errorf("userID = %q, want %q", userID, "user-123")
			}
			if gameSlug != "guess-player" {
				t.Errorf("gameSlug = %q, want %q", gameSlug, "guess-player")
			}
			return model.ChallengeAvailability{Available: true}, nil
		},
	}
	h := newChallengeHandlerForTest(svc, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/challenges/guess-player/availability", nil)
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "slug", "guess-player")
	w := httptest.NewRecorder()

	h.GetAvailability(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp availabilityResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Available {
		t.Error("Available = false, want true")
	}
	if resp.Game != "guess-player" {
		t.Errorf("Game = %q, want %q", resp.Game, "guess-player")
	}
	if resp.Reason != "" || resp.LastResult != "" {
		t.Errorf("expected empty reason and last_result while available, got %+v", resp)
	}
}

func TestChallengeHandler_GetAvailability_AlreadyPlayed(t *testing.T) {
	svc := &mockChallengeService{
		isAvailableFn: func(ctx context.Context, userID, gameSlug string) (model.ChallengeAvailability, error) {
			return model.ChallengeAvailability{
				Reason:     model.ReasonAlreadyPlayed,
				LastResult: model.GameResultWin,
			}, nil
		},
	}
	h := newChallengeHandlerForTest(svc, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/challenges/who-is/availability", nil)
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "slug", "who-is")
	w := httptest.NewRecorder()

	h.GetAvailability(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp availabilityResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Available {
		t.Error("Available = true, want false")
	}
	if resp.Reason != model.ReasonAlreadyPlayed {
		t.Errorf("Reason = %q, want %q", resp.Reason, model.ReasonAlreadyPlayed)
	}
	if resp.LastResult != "win" {
		t.Errorf("LastResult = %q, want %q", resp.LastResult, "win")
	}
}

func TestChallengeHandler_GetAvailability_Unauthorized(t *testing.T) {
	h := newChallengeHandlerForTest(nil, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/challenges/who-is/availability", nil)
	w := httptest.NewRecorder()

	h.GetAvailability(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

// --- POST /api/challenges/{slug}/start テスト ---

func TestChallengeHandler_Start_Success(t *testing.T) {
	started := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	svc := &mockChallengeService{
		startFn: func(ctx context.Context, userID, gameSlug string, mode model.GameMode, meta model.Meta) (*model.GameSession, error) {
			if mode != model.GameModeChallenge {
				t.Errorf("mode = %q, want %q", mode, model.GameModeChallenge)
			}
			return &model.GameSession{
				ID:        "session-1",
				UserID:    userID,
				GameID:    "game-1",
				StartedAt: started,
				Metadata:  model.Meta{"mode": "challenge"},
			}, nil
		},
	}
	h := newChallengeHandlerForTest(svc, nil, nil, nil)

	body := `{"mode":"challenge"}`
	req := httptest.NewRequest(http.MethodPost, "/api/challenges/guess-player/start", strings.NewReader(body))
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "slug", "guess-player")
	w := httptest.NewRecorder()

	h.Start(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", w.Code, http.StatusCreated)
	}

	var resp sessionResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ID != "session-1" {
		t.Errorf("ID = %q, want %q", resp.ID, "session-1")
	}
	if resp.EndedAt != nil {
		t.Error("EndedAt should be nil for a fresh session")
	}
}

func TestChallengeHandler_Start_UnknownGame(t *testing.T) {
	h := newChallengeHandlerForTest(&mockChallengeService{}, nil, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/challenges/unknown-game/start", strings.NewReader(`{}`))
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "slug", "unknown-game")
	w := httptest.NewRecorder()

	h.Start(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	if got := parseAPIErrorResponse(t, w)["code"]; got != model.ErrCodeGameNotFound {
		t.Errorf("code = %q, want %q", got, model.ErrCodeGameNotFound)
	}
}

func TestChallengeHandler_Start_AlreadyPlayed(t *testing.T) {
	svc := &mockChallengeService{
		startFn: func(ctx context.Context, userID, gameSlug string, mode model.GameMode, meta model.Meta) (*model.GameSession, error) {
			return nil, model.NewAlreadyPlayedError(gameSlug)
		},
	}
	h := newChallengeHandlerForTest(svc, nil, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/challenges/who-is/start", strings.NewReader(`{"mode":"challenge"}`))
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "slug", "who-is")
	w := httptest.NewRecorder()

	h.Start(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Code, http.StatusConflict)
	}
	if got := parseAPIErrorResponse(t, w)["code"]; got != model.ErrCodeAlreadyPlayed {
		t.Errorf("code = %q, want %q", got, model.ErrCodeAlreadyPlayed)
	}
}

// --- POST /api/challenges/sessions/{id}/complete テスト ---

func TestChallengeHandler_Complete_Success(t *testing.T) {
	ended := time.Date(2026, 3, 10, 15, 5, 0, 0, time.UTC)
	score := 120
	xp := 10
	completer := &mockChallengeCompleter{
		completeFn: func(ctx context.Context, userID, sessionID string, s, x int, patch model.Meta) (*model.GameSession, error) {
			if userID != "user-123" {
				t.Errorf("userID = %q, want %q", userID, "user-123")
			}
			if sessionID != "session-1" {
				t.Errorf("sessionID = %q, want %q", sessionID, "session-1")
			}
			if s != 120 || x != 10 {
				t.Errorf("score, xp = %d, %d, want 120, 10", s, x)
			}
			return &model.GameSession{
				ID:         sessionID,
				UserID:     userID,
				GameID:     "game-1",
				EndedAt:    &ended,
				ScoreFinal: &score,
				XpEarned:   &xp,
				Metadata:   model.Meta{"mode": "challenge", "result": "win"},
			}, nil
		},
	}
	h := newChallengeHandlerForTest(nil, completer, nil, nil)

	body := `{"score":120,"xp":10,"metadata":{"result":"win"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/challenges/sessions/session-1/complete", strings.NewReader(body))
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "session-1")
	w := httptest.NewRecorder()

	h.Complete(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp sessionResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.EndedAt == nil {
		t.Fatal("EndedAt should be set")
	}
	if resp.Score == nil || *resp.Score != 120 {
		t.Errorf("Score = %v, want 120", resp.Score)
	}
	if resp.Metadata.String("result") != "win" {
		t.Errorf("result = %q, want %q", resp.Metadata.String("result"), "win")
	}
}

func TestChallengeHandler_Complete_NotFound(t *testing.T) {
	h := newChallengeHandlerForTest(nil, &mockChallengeCompleter{}, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/challenges/sessions/missing/complete", strings.NewReader(`{"score":0,"xp":0}`))
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "missing")
	w := httptest.NewRecorder()

	h.Complete(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	if got := parseAPIErrorResponse(t, w)["code"]; got != model.ErrCodeSessionNotFound {
		t.Errorf("code = %q, want %q", got, model.ErrCodeSessionNotFound)
	}
}

func TestChallengeHandler_Complete_DuplicateFinish(t *testing.T) {
	completer := &mockChallengeCompleter{
		completeFn: func(ctx context.Context, userID, sessionID string, score, xp int, patch model.Meta) (*model.GameSession, error) {
			return nil, model.NewAlreadyPlayedError("guess-player")
		},
	}
	h := newChallengeHandlerForTest(nil, completer, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/challenges/sessions/session-1/complete", strings.NewReader(`{"score":50,"xp":5}`))
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "session-1")
	w := httptest.NewRecorder()

	h.Complete(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Code, http.StatusConflict)
	}
}

// --- GET /api/challenges/{slug}/streak テスト ---

func TestChallengeHandler_GetStreak_Success(t *testing.T) {
	resolver := &mockGameResolver{
		resolveSlugFn: func(ctx context.Context, rawSlug string) (*model.Game, error) {
			return &model.Game{ID: "game-1", Slug: "guess-player", HasDaily: true}, nil
		},
	}
	streaks := &mockStreakReader{current: 4, maxDaily: 12, lifetime: 37}
	h := newChallengeHandlerForTest(nil, nil, streaks, resolver)

	req := httptest.NewRequest(http.MethodGet, "/api/challenges/guess-player/streak", nil)
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "slug", "guess-player")
	w := httptest.NewRecorder()

	h.GetStreak(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp streakResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Current != 4 || resp.MaxDaily != 12 || resp.LifetimeBest != 37 {
		t.Errorf("resp = %+v, want {guess-player 4 12 37}", resp)
	}
}

func TestChallengeHandler_GetStreak_UnknownGame(t *testing.T) {
	h := newChallengeHandlerForTest(nil, nil, nil, &mockGameResolver{})

	req := httptest.NewRequest(http.MethodGet, "/api/challenges/unknown/streak", nil)
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "slug", "unknown")
	w := httptest.NewRecorder()

	h.GetStreak(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}
