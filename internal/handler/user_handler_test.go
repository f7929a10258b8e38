package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/goalquiz/internal/model"
)

type mockUserService struct {
	withdrawFn func(ctx context.Context, userID string) error

	withdrawnUserID string
}

func (m *mockUserService) Withdraw(ctx context.Context, userID string) error {
	m.withdrawnUserID = userID
	if m.withdrawFn != nil {
		return m.withdrawFn(ctx, userID)
	}
	return nil
}

func TestUserHandler_Withdraw_Success(t *testing.T) {
	svc := &mockUserService{}
	h := NewUserHandler(svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/users/me", nil)
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	h.Withdraw(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if svc.withdrawnUserID != "user-123" {
		t.Errorf("withdrawnUserID = %q, want %q", svc.withdrawnUserID, "user-123")
	}

	// セッションCookieが失効されること
	cookies := w.Result().Cookies()
	var found bool
	for _, c := range cookies {
		if c.Name == "session_id" && c.MaxAge < 0 {
			found = true
		}
	}
	if !found {
		t.Error("session_id Cookieが失効されていない")
	}
}

func TestUserHandler_Withdraw_Unauthorized(t *testing.T) {
	svc := &mockUserService{}
	h := NewUserHandler(svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/users/me", nil)
	w := httptest.NewRecorder()

	h.Withdraw(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	if svc.withdrawnUserID != "" {
		t.Error("未認証リクエストで退会処理が呼ばれた")
	}
}

func TestUserHandler_Withdraw_UserNotFound(t *testing.T) {
	svc := &mockUserService{
		withdrawFn: func(ctx context.Context, userID string) error {
			return model.NewUserNotFoundError()
		},
	}
	h := NewUserHandler(svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/users/me", nil)
	req = withUserID(req, "missing-user")
	w := httptest.NewRecorder()

	h.Withdraw(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}

	resp := parseAPIErrorResponse(t, w)
	if resp["code"] != model.ErrCodeUserNotFound {
		t.Errorf("code = %q, want %q", resp["code"], model.ErrCodeUserNotFound)
	}
}

func TestUserHandler_Withdraw_InternalError(t *testing.T) {
	svc := &mockUserService{
		withdrawFn: func(ctx context.Context, userID string) error {
			return errors.New("db down")
		},
	}
	h := NewUserHandler(svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/users/me", nil)
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	h.Withdraw(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}
