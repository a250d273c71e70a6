package models

import "time"

// Sanction types.
const (
	SanctionWarn    = "warn"
	SanctionMute    = "mute"
	SanctionSuspend = "suspend"
	SanctionBan     = "ban"
)

// Sanction is an immutable record of an administrative action against a user.
// Applying one also mutates the target user's MutedUntil/BannedUntil.
type Sanction struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	TargetUserID string    `gorm:"not null;index" json:"targetUserId"`
	Type         string    `gorm:"not null" json:"type"`
	Reason       string    `gorm:"not null" json:"reason"`
	DurationDays *int      `json:"durationDays,omitempty"`
	CreatedBy    string    `gorm:"not null" json:"createdBy"`
	CreatedAt    time.Time `json:"createdAt"`
}

// AuditEntry is an append-only record of a named action. It is the source of
// truth for transparency reports and anomaly heuristics.
type AuditEntry struct {
	ID         string         `gorm:"primaryKey" json:"id"`
	Action     string         `gorm:"not null;index" json:"action"`
	ActorID    *string        `json:"actorId"`
	TargetType string         `json:"targetType,omitempty"`
	TargetID   string         `json:"targetId,omitempty"`
	Metadata   map[string]any `gorm:"serializer:json" json:"metadata"`
	IP         string         `json:"ip,omitempty"`
	CreatedAt  time.Time      `gorm:"index" json:"createdAt"`
}

// TransparencyEvent is a public-facing record emitted on moderation
// decisions, sanctions and takedown requests.
type TransparencyEvent struct {
	ID        string         `gorm:"primaryKey" json:"id"`
	EventType string         `gorm:"not null" json:"eventType"`
	Status    string         `gorm:"not null" json:"status"`
	Details   map[string]any `gorm:"serializer:json" json:"details"`
	CreatedAt time.Time      `json:"createdAt"`
}
