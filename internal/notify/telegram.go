// Package notify delivers best-effort moderator notifications through the
// Telegram Bot API and declares the webhook payload types. Failures are
// logged and never surfaced to callers; nothing here is retried.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// TelegramNotifier posts messages to a moderator chat.
type TelegramNotifier struct {
	botToken string
	chatID   string
	client   *http.Client
	logger   *slog.Logger
}

// NewTelegramNotifier returns a notifier for the given bot and chat.
func NewTelegramNotifier(botToken, chatID string, logger *slog.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: 5 * time.Second},
		logger:   logger,
	}
}

// NotifyModerators sends one message to the moderator chat. Best-effort.
func (n *TelegramNotifier) NotifyModerators(ctx context.Context, text string) {
	payload, err := json.Marshal(map[string]string{
		"chat_id": n.chatID,
		"text":    text,
	})
	if err != nil {
		n.logger.Warn("telegram payload encode failed", "error", err)
		return
	}
	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		n.logger.Warn("telegram request build failed", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Warn("telegram send failed", "error", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		n.logger.Warn("telegram send rejected", "status", resp.StatusCode)
	}
}

// WebhookUpdate is the subset of the Bot API update the link flow needs.
type WebhookUpdate struct {
	UpdateID int64            `json:"update_id"`
	Message  *WebhookMessage  `json:"message"`
}

// WebhookMessage is an incoming chat message.
type WebhookMessage struct {
	Text string       `json:"text"`
	From *WebhookUser `json:"from"`
	Chat *WebhookChat `json:"chat"`
}

// WebhookUser identifies the sender.
type WebhookUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// WebhookChat identifies the chat a message arrived in.
type WebhookChat struct {
	ID int64 `json:"id"`
}
