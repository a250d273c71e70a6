package models

import "time"

// Forum content statuses.
const (
	ForumStatusPublished = "published"
	ForumStatusPending   = "pending"
	ForumStatusDeleted   = "deleted"
)

// ForumTopic is a discussion thread in a fixed category.
// Replies and LastUpdate are always recomputed by aggregation over replies,
// never incrementally maintained, so both storage backends agree.
type ForumTopic struct {
	ID         string    `gorm:"primaryKey" json:"id"`
	CategoryID string    `gorm:"not null;index" json:"categoryId"`
	Title      string    `gorm:"not null" json:"title"`
	Body       string    `gorm:"not null" json:"body"`
	Country    string    `gorm:"not null;default:'global'" json:"country"`
	Language   string    `gorm:"not null;default:'en'" json:"language"`
	Status     string    `gorm:"not null;default:'published'" json:"status"`
	CreatedBy  string    `gorm:"not null" json:"createdBy"`
	CreatedAt  time.Time `json:"createdAt"`

	Replies    int       `gorm:"-" json:"replies"`
	LastUpdate time.Time `gorm:"-" json:"lastUpdate"`
}

// ForumReply is a reply within a topic.
type ForumReply struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	TopicID   string    `gorm:"not null;index" json:"topicId"`
	Body      string    `gorm:"not null" json:"body"`
	Country   string    `gorm:"not null;default:'global'" json:"country"`
	Language  string    `gorm:"not null;default:'en'" json:"language"`
	Status    string    `gorm:"not null;default:'published'" json:"status"`
	CreatedBy string    `gorm:"not null" json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}
