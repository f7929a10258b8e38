package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// webhookTimeout は通知配送の上限時間。コア操作をブロックしないよう短く保つ。
const webhookTimeout = 3 * time.Second

// webhookMaxResponseSize は応答ボディの読み取り上限。応答内容は使わないため最小限。
const webhookMaxResponseSize = 4096

// SafeClientFactory はSSRF防止機能付きHTTPクライアントの生成インターフェース。
// security.SSRFGuardServiceの部分集合として定義する。
type SafeClientFactory interface {
	NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client
	ValidateURL(rawURL string) error
}

// WebhookNotifier は外部の配送チャネル（トースト配信サービス等）へ
// イベントをHTTP POSTするNotifier実装。
// 配送先URLは運用者が設定するため、SSRF防止クライアントで送信する。
// すべての失敗はログに記録するのみで呼び出し元へは伝播しない。
type WebhookNotifier struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

// NewWebhookNotifier はWebhookNotifierを生成する。
// URLが検証に失敗した場合はエラーを返す（起動時に弾く）。
func NewWebhookNotifier(rawURL string, guard SafeClientFactory, logger *slog.Logger) (*WebhookNotifier, error) {
	if err := guard.ValidateURL(rawURL); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookNotifier{
		url:    rawURL,
		client: guard.NewSafeClient(webhookTimeout, webhookMaxResponseSize),
		logger: logger,
	}, nil
}

// NotifyLevelUp はレベルアップイベントをwebhookへ配送する。
func (n *WebhookNotifier) NotifyLevelUp(ctx context.Context, event LevelUpEvent) {
	n.post(ctx, "level_up", event)
}

// NotifyAchievement は実績解除イベントをwebhookへ配送する。
func (n *WebhookNotifier) NotifyAchievement(ctx context.Context, event AchievementEvent) {
	n.post(ctx, "achievement_unlocked", event)
}

// post はイベントをJSONで送信する。失敗はログのみ。
func (n *WebhookNotifier) post(ctx context.Context, eventType string, payload any) {
	body, err := json.Marshal(map[string]any{
		"type":  eventType,
		"event": payload,
	})
	if err != nil {
		n.logger.Error("通知ペイロードのJSON変換に失敗しました",
			slog.String("type", eventType),
			slog.String("error", err.Error()),
		)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		n.logger.Error("通知リクエストの生成に失敗しました",
			slog.String("type", eventType),
			slog.String("error", err.Error()),
		)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Warn("通知の配送に失敗しました",
			slog.String("type", eventType),
			slog.String("error", err.Error()),
		)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		n.logger.Warn("通知先がエラーステータスを返しました",
			slog.String("type", eventType),
			slog.Int("status", resp.StatusCode),
		)
	}
}

// compile-time interface check
var _ Notifier = (*WebhookNotifier)(nil)
