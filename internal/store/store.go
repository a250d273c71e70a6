// Package store provides persistence for the application behind a single
// interface with two implementations: a flat-file JSON store for small
// deployments and a GORM-backed SQL store selected when DATABASE_URL is set.
package store

import (
	"context"
	"errors"
	"time"

	"aitookmyjob/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrConflict is returned on unique-constraint violations (email, phone,
// telegram user id).
var ErrConflict = errors.New("record conflict")

// StoryFilter narrows ListStories. Zero values mean "no constraint";
// Limit <= 0 returns everything after Offset.
type StoryFilter struct {
	Status      string
	Country     string
	Language    string
	SubmittedBy string
	Limit       int
	Offset      int
}

// AuditFilter narrows ListAudit. Entries are returned newest first.
type AuditFilter struct {
	Action string
	Since  time.Time
	Until  time.Time
	Limit  int
}

// Store is the persistence contract shared by the file and SQL backends.
// All reads return copies; callers never observe shared mutable state.
type Store interface {
	StoryStore
	UserStore
	ForumStore
	AuditStore

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error
	// Close releases backend resources.
	Close() error
}

// StoryStore persists stories and their append-only version history.
type StoryStore interface {
	InsertStory(ctx context.Context, story *models.Story) error
	GetStory(ctx context.Context, id string) (*models.Story, error)
	// UpdateStory replaces the stored record wholesale (last writer wins).
	UpdateStory(ctx context.Context, story *models.Story) error
	ListStories(ctx context.Context, filter StoryFilter) ([]models.Story, error)
	CountStories(ctx context.Context, filter StoryFilter) (int, error)
	// DeleteStoriesBySubmitter removes every story a user submitted; used
	// only by account deletion.
	DeleteStoriesBySubmitter(ctx context.Context, userID string) error

	AppendStoryVersion(ctx context.Context, version *models.StoryVersion) error
	ListStoryVersions(ctx context.Context, storyID string) ([]models.StoryVersion, error)
}

// UserStore persists accounts, their auth identities and Telegram links.
type UserStore interface {
	InsertUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByPhone(ctx context.Context, phone string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	// DeleteUser removes the account and its identity and telegram link.
	DeleteUser(ctx context.Context, id string) error
	ListUsers(ctx context.Context) ([]models.User, error)

	GetIdentity(ctx context.Context, userID string) (*models.AuthIdentity, error)
	UpsertIdentity(ctx context.Context, identity *models.AuthIdentity) error
	GetIdentityByLinkCode(ctx context.Context, code string) (*models.AuthIdentity, error)

	UpsertTelegramLink(ctx context.Context, link *models.TelegramLink) error
	GetTelegramLinkByUser(ctx context.Context, userID string) (*models.TelegramLink, error)
}

// ForumStore persists topics and replies. Reply counts are always derived
// by aggregation at read time, never stored.
type ForumStore interface {
	InsertTopic(ctx context.Context, topic *models.ForumTopic) error
	GetTopic(ctx context.Context, id string) (*models.ForumTopic, error)
	UpdateTopic(ctx context.Context, topic *models.ForumTopic) error
	ListTopics(ctx context.Context, categoryID string) ([]models.ForumTopic, error)

	InsertReply(ctx context.Context, reply *models.ForumReply) error
	ListReplies(ctx context.Context, topicID string) ([]models.ForumReply, error)
	ListAllReplies(ctx context.Context) ([]models.ForumReply, error)
}

// AuditStore persists sanctions, the audit log and transparency events.
type AuditStore interface {
	InsertSanction(ctx context.Context, sanction *models.Sanction) error
	ListSanctions(ctx context.Context, targetUserID string) ([]models.Sanction, error)

	AppendAudit(ctx context.Context, entry *models.AuditEntry) error
	ListAudit(ctx context.Context, filter AuditFilter) ([]models.AuditEntry, error)

	AppendTransparencyEvent(ctx context.Context, event *models.TransparencyEvent) error
	ListTransparencyEvents(ctx context.Context) ([]models.TransparencyEvent, error)
}
