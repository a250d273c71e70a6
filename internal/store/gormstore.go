package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"aitookmyjob/internal/models"
)

// GormStore implements Store on a relational database via GORM. Production
// runs Postgres; tests run the sqlite driver against an in-memory database.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens a Postgres connection, tunes the pool and migrates
// the schema.
func NewGormStore(databaseURL string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("accessing connection pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	return NewGormStoreWithDB(db)
}

// NewGormStoreWithDB wraps an already-open GORM handle and migrates the
// schema. Used by tests with the sqlite driver.
func NewGormStoreWithDB(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(
		&models.Story{},
		&models.StoryVersion{},
		&models.User{},
		&models.AuthIdentity{},
		&models.TelegramLink{},
		&models.ForumTopic{},
		&models.ForumReply{},
		&models.Sanction{},
		&models.AuditEntry{},
		&models.TransparencyEvent{},
	); err != nil {
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func translateErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey),
		strings.Contains(strings.ToLower(err.Error()), "unique"):
		return ErrConflict
	default:
		return err
	}
}

// --- stories ---

func (s *GormStore) InsertStory(ctx context.Context, story *models.Story) error {
	return translateErr(s.db.WithContext(ctx).Create(story).Error)
}

func (s *GormStore) GetStory(ctx context.Context, id string) (*models.Story, error) {
	var story models.Story
	if err := s.db.WithContext(ctx).First(&story, "id = ?", id).Error; err != nil {
		return nil, translateErr(err)
	}
	return &story, nil
}

func (s *GormStore) UpdateStory(ctx context.Context, story *models.Story) error {
	result := s.db.WithContext(ctx).Model(&models.Story{}).Where("id = ?", story.ID).
		Select("*").Omit("id", "created_at").Updates(story)
	if result.Error != nil {
		return translateErr(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) storyQuery(ctx context.Context, filter StoryFilter) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.Story{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Country != "" {
		query = query.Where("LOWER(country) = LOWER(?)", filter.Country)
	}
	if filter.Language != "" {
		query = query.Where("language = ?", filter.Language)
	}
	if filter.SubmittedBy != "" {
		query = query.Where("submitted_by = ?", filter.SubmittedBy)
	}
	return query
}

func (s *GormStore) ListStories(ctx context.Context, filter StoryFilter) ([]models.Story, error) {
	query := s.storyQuery(ctx, filter).Order("created_at DESC")
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	var stories []models.Story
	if err := query.Find(&stories).Error; err != nil {
		return nil, translateErr(err)
	}
	return stories, nil
}

func (s *GormStore) CountStories(ctx context.Context, filter StoryFilter) (int, error) {
	var count int64
	if err := s.storyQuery(ctx, filter).Count(&count).Error; err != nil {
		return 0, translateErr(err)
	}
	return int(count), nil
}

func (s *GormStore) DeleteStoriesBySubmitter(ctx context.Context, userID string) error {
	return translateErr(s.db.WithContext(ctx).Delete(&models.Story{}, "submitted_by = ?", userID).Error)
}

func (s *GormStore) AppendStoryVersion(ctx context.Context, version *models.StoryVersion) error {
	return translateErr(s.db.WithContext(ctx).Create(version).Error)
}

func (s *GormStore) ListStoryVersions(ctx context.Context, storyID string) ([]models.StoryVersion, error) {
	var versions []models.StoryVersion
	err := s.db.WithContext(ctx).
		Where("story_id = ?", storyID).
		Order("version_no ASC").
		Find(&versions).Error
	if err != nil {
		return nil, translateErr(err)
	}
	return versions, nil
}

// --- users ---

func (s *GormStore) InsertUser(ctx context.Context, user *models.User) error {
	return translateErr(s.db.WithContext(ctx).Create(user).Error)
}

func (s *GormStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translateErr(err)
	}
	return &user, nil
}

func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "LOWER(email) = LOWER(?)", email).Error; err != nil {
		return nil, translateErr(err)
	}
	return &user, nil
}

func (s *GormStore) GetUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "phone = ?", phone).Error; err != nil {
		return nil, translateErr(err)
	}
	return &user, nil
}

func (s *GormStore) UpdateUser(ctx context.Context, user *models.User) error {
	result := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).
		Select("*").Omit("id", "created_at").Updates(user)
	if result.Error != nil {
		return translateErr(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) DeleteUser(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&models.User{}, "id = ?", id)
		if result.Error != nil {
			return translateErr(result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Delete(&models.AuthIdentity{}, "user_id = ?", id).Error; err != nil {
			return translateErr(err)
		}
		return translateErr(tx.Delete(&models.TelegramLink{}, "user_id = ?", id).Error)
	})
}

func (s *GormStore) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, translateErr(err)
	}
	return users, nil
}

// --- identities ---

func (s *GormStore) GetIdentity(ctx context.Context, userID string) (*models.AuthIdentity, error) {
	var identity models.AuthIdentity
	if err := s.db.WithContext(ctx).First(&identity, "user_id = ?", userID).Error; err != nil {
		return nil, translateErr(err)
	}
	return &identity, nil
}

func (s *GormStore) UpsertIdentity(ctx context.Context, identity *models.AuthIdentity) error {
	return translateErr(s.db.WithContext(ctx).Save(identity).Error)
}

func (s *GormStore) GetIdentityByLinkCode(ctx context.Context, code string) (*models.AuthIdentity, error) {
	var identity models.AuthIdentity
	if err := s.db.WithContext(ctx).First(&identity, "telegram_link_code = ?", code).Error; err != nil {
		return nil, translateErr(err)
	}
	return &identity, nil
}

// --- telegram links ---

func (s *GormStore) UpsertTelegramLink(ctx context.Context, link *models.TelegramLink) error {
	var existing models.TelegramLink
	err := s.db.WithContext(ctx).First(&existing, "telegram_user_id = ?", link.TelegramUserID).Error
	if err == nil && existing.UserID != link.UserID {
		return ErrConflict
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return translateErr(err)
	}
	var current models.TelegramLink
	err = s.db.WithContext(ctx).First(&current, "user_id = ?", link.UserID).Error
	if err == nil {
		link.ID = current.ID
		return translateErr(s.db.WithContext(ctx).Save(link).Error)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return translateErr(err)
	}
	return translateErr(s.db.WithContext(ctx).Create(link).Error)
}

func (s *GormStore) GetTelegramLinkByUser(ctx context.Context, userID string) (*models.TelegramLink, error) {
	var link models.TelegramLink
	if err := s.db.WithContext(ctx).First(&link, "user_id = ?", userID).Error; err != nil {
		return nil, translateErr(err)
	}
	return &link, nil
}

// --- forum ---

func (s *GormStore) InsertTopic(ctx context.Context, topic *models.ForumTopic) error {
	return translateErr(s.db.WithContext(ctx).Create(topic).Error)
}

func (s *GormStore) GetTopic(ctx context.Context, id string) (*models.ForumTopic, error) {
	var topic models.ForumTopic
	if err := s.db.WithContext(ctx).First(&topic, "id = ?", id).Error; err != nil {
		return nil, translateErr(err)
	}
	return &topic, nil
}

func (s *GormStore) UpdateTopic(ctx context.Context, topic *models.ForumTopic) error {
	result := s.db.WithContext(ctx).Model(&models.ForumTopic{}).Where("id = ?", topic.ID).
		Select("*").Omit("id", "created_at").Updates(topic)
	if result.Error != nil {
		return translateErr(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) ListTopics(ctx context.Context, categoryID string) ([]models.ForumTopic, error) {
	query := s.db.WithContext(ctx).Model(&models.ForumTopic{}).Order("created_at DESC")
	if categoryID != "" {
		query = query.Where("category_id = ?", categoryID)
	}
	var topics []models.ForumTopic
	if err := query.Find(&topics).Error; err != nil {
		return nil, translateErr(err)
	}
	return topics, nil
}

func (s *GormStore) InsertReply(ctx context.Context, reply *models.ForumReply) error {
	return translateErr(s.db.WithContext(ctx).Create(reply).Error)
}

func (s *GormStore) ListReplies(ctx context.Context, topicID string) ([]models.ForumReply, error) {
	var replies []models.ForumReply
	err := s.db.WithContext(ctx).
		Where("topic_id = ?", topicID).
		Order("created_at ASC").
		Find(&replies).Error
	if err != nil {
		return nil, translateErr(err)
	}
	return replies, nil
}

func (s *GormStore) ListAllReplies(ctx context.Context) ([]models.ForumReply, error) {
	var replies []models.ForumReply
	if err := s.db.WithContext(ctx).Find(&replies).Error; err != nil {
		return nil, translateErr(err)
	}
	return replies, nil
}

// --- sanctions, audit, transparency ---

func (s *GormStore) InsertSanction(ctx context.Context, sanction *models.Sanction) error {
	return translateErr(s.db.WithContext(ctx).Create(sanction).Error)
}

func (s *GormStore) ListSanctions(ctx context.Context, targetUserID string) ([]models.Sanction, error) {
	query := s.db.WithContext(ctx).Model(&models.Sanction{}).Order("created_at DESC")
	if targetUserID != "" {
		query = query.Where("target_user_id = ?", targetUserID)
	}
	var sanctions []models.Sanction
	if err := query.Find(&sanctions).Error; err != nil {
		return nil, translateErr(err)
	}
	return sanctions, nil
}

func (s *GormStore) AppendAudit(ctx context.Context, entry *models.AuditEntry) error {
	return translateErr(s.db.WithContext(ctx).Create(entry).Error)
}

func (s *GormStore) ListAudit(ctx context.Context, filter AuditFilter) ([]models.AuditEntry, error) {
	query := s.db.WithContext(ctx).Model(&models.AuditEntry{}).Order("created_at DESC")
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if !filter.Since.IsZero() {
		query = query.Where("created_at >= ?", filter.Since)
	}
	if !filter.Until.IsZero() {
		query = query.Where("created_at < ?", filter.Until)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	var entries []models.AuditEntry
	if err := query.Find(&entries).Error; err != nil {
		return nil, translateErr(err)
	}
	return entries, nil
}

func (s *GormStore) AppendTransparencyEvent(ctx context.Context, event *models.TransparencyEvent) error {
	return translateErr(s.db.WithContext(ctx).Create(event).Error)
}

func (s *GormStore) ListTransparencyEvents(ctx context.Context) ([]models.TransparencyEvent, error) {
	var events []models.TransparencyEvent
	err := s.db.WithContext(ctx).Order("created_at DESC").Find(&events).Error
	if err != nil {
		return nil, translateErr(err)
	}
	return events, nil
}

var _ Store = (*GormStore)(nil)
