package service

import (
	"context"
	"log/slog"
	"time"

	"aitookmyjob/internal/idgen"
	"aitookmyjob/internal/models"
	"aitookmyjob/internal/store"
)

// Audit action names. The transparency report and anomaly heuristics key on
// these, so they are fixed strings rather than free text.
const (
	ActionAuthRegister     = "auth.register"
	ActionAuthLogin        = "auth.login"
	ActionAuthLogout       = "auth.logout"
	ActionPhoneStart       = "auth.phone.start"
	ActionPhoneVerified    = "auth.phone.verified"
	ActionTelegramStart    = "telegram.link.start"
	ActionTelegramComplete = "telegram.link.complete"
	ActionStorySubmit      = "story.submit"
	ActionTopicCreate      = "forum.topic.create"
	ActionReplyCreate      = "forum.reply.create"
	ActionModeration       = "moderation.action"
	ActionSanctionCreate   = "sanction.create"
)

// Auditor appends audit entries. Recording is best-effort: a storage failure
// is logged and swallowed, never propagated to the primary operation.
type Auditor struct {
	store  store.AuditStore
	logger *slog.Logger
}

// NewAuditor returns an auditor writing through the given store.
func NewAuditor(s store.AuditStore, logger *slog.Logger) *Auditor {
	return &Auditor{store: s, logger: logger}
}

// Record appends one audit entry.
func (a *Auditor) Record(ctx context.Context, action string, actorID *string, targetType, targetID, ip string, metadata map[string]any) {
	entry := &models.AuditEntry{
		ID:         idgen.EntityID(),
		Action:     action,
		ActorID:    actorID,
		TargetType: targetType,
		TargetID:   targetID,
		Metadata:   metadata,
		IP:         ip,
		CreatedAt:  time.Now().UTC(),
	}
	if err := a.store.AppendAudit(ctx, entry); err != nil {
		a.logger.Warn("audit append failed", "action", action, "error", err)
	}
}

// Transparency appends a public transparency event, also best-effort.
func (a *Auditor) Transparency(ctx context.Context, eventType, status string, details map[string]any) {
	event := &models.TransparencyEvent{
		ID:        idgen.EntityID(),
		EventType: eventType,
		Status:    status,
		Details:   details,
		CreatedAt: time.Now().UTC(),
	}
	if err := a.store.AppendTransparencyEvent(ctx, event); err != nil {
		a.logger.Warn("transparency append failed", "event_type", eventType, "error", err)
	}
}

// Notifier delivers best-effort out-of-band messages to moderators.
type Notifier interface {
	NotifyModerators(ctx context.Context, text string)
}

// NopNotifier discards notifications. Used when Telegram is not configured.
type NopNotifier struct{}

func (NopNotifier) NotifyModerators(context.Context, string) {}
