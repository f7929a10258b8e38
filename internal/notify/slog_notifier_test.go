package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func newTestLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, nil)), &buf
}

func TestSlogNotifier_NotifyLevelUp(t *testing.T) {
	logger, buf := newTestLogger()
	n := NewSlogNotifier(logger)

	n.NotifyLevelUp(context.Background(), LevelUpEvent{UserID: "user-1", Level: 5})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("JSONログの解析に失敗: %v\nraw: %s", err, buf.String())
	}
	if entry["user_id"] != "user-1" {
		t.Errorf("user_id = %v, want user-1", entry["user_id"])
	}
	if entry["level"] != float64(5) {
		t.Errorf("level = %v, want 5", entry["level"])
	}
}

func TestSlogNotifier_NotifyAchievement(t *testing.T) {
	logger, buf := newTestLogger()
	n := NewSlogNotifier(logger)

	n.NotifyAchievement(context.Background(), AchievementEvent{
		UserID: "user-1",
		Code:   "hat_trick",
		Name:   "Hat-trick",
		Points: 30,
	})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("JSONログの解析に失敗: %v\nraw: %s", err, buf.String())
	}
	if entry["code"] != "hat_trick" {
		t.Errorf("code = %v, want hat_trick", entry["code"])
	}
	if entry["points"] != float64(30) {
		t.Errorf("points = %v, want 30", entry["points"])
	}
}

func TestNewSlogNotifier_NilLoggerUsesDefault(t *testing.T) {
	n := NewSlogNotifier(nil)
	if n == nil {
		t.Fatal("NewSlogNotifier(nil)がnilを返した")
	}

	// パニックしないことの確認
	n.NotifyLevelUp(context.Background(), LevelUpEvent{UserID: "user-1", Level: 2})
}
