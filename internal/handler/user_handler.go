package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/goalquiz/internal/middleware"
)

// UserServiceInterface はユーザー管理サービスのインターフェース。user.Serviceが実装する。
type UserServiceInterface interface {
	// Withdraw はユーザーの退会処理を実行する。進行状況データもすべて削除される。
	Withdraw(ctx context.Context, userID string) error
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{service: service}
}

// Withdraw は退会エンドポイント。
// DELETE /api/users/me
// 成功時は204を返し、セッションCookieを失効させる。
func (h *UserHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	if err := h.service.Withdraw(r.Context(), userID); err != nil {
		handleServiceError(w, err)
		return
	}

	// サーバー側の全セッションは削除済み。クライアント側のCookieも失効させる。
	http.SetCookie(w, &http.Cookie{
		Name:     "session_id",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	w.WriteHeader(http.StatusNoContent)
}
