package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"aitookmyjob/internal/idgen"
	"aitookmyjob/internal/models"
	"aitookmyjob/internal/store"
	"aitookmyjob/internal/validation"
)

// Company discussion boards live in the forum under synthetic categories.
const companyCategoryPrefix = "company:"

// ForumService handles topics and replies. Reply counts and last-update
// are always recomputed by aggregation over replies, never stored.
type ForumService struct {
	store          store.Store
	auditor        *Auditor
	logger         *slog.Logger
	defaultCountry string
	defaultLang    string
}

// NewForumService returns a new ForumService.
func NewForumService(s store.Store, auditor *Auditor, logger *slog.Logger, defaultCountry, defaultLang string) *ForumService {
	return &ForumService{store: s, auditor: auditor, logger: logger, defaultCountry: defaultCountry, defaultLang: defaultLang}
}

// Categories returns the fixed category list.
func (s *ForumService) Categories() []models.ForumCategory {
	return models.ForumCategories
}

// ListTopics returns published topics in a category (all when empty),
// decorated with reply counts and last update.
func (s *ForumService) ListTopics(ctx context.Context, categoryID string) ([]models.ForumTopic, error) {
	topics, err := s.store.ListTopics(ctx, categoryID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	replies, err := s.store.ListAllReplies(ctx)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	published := make([]models.ForumTopic, 0, len(topics))
	for _, topic := range topics {
		if topic.Status != models.ForumStatusPublished {
			continue
		}
		decorateTopic(&topic, replies)
		published = append(published, topic)
	}
	return published, nil
}

// TopicDetail is a topic with its replies.
type TopicDetail struct {
	Topic   models.ForumTopic   `json:"topic"`
	Replies []models.ForumReply `json:"replies"`
}

// GetTopic returns one published topic and its replies, oldest first.
func (s *ForumService) GetTopic(ctx context.Context, id string) (*TopicDetail, error) {
	topic, err := s.store.GetTopic(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, models.NewNotFoundError("Topic", id)
		}
		return nil, models.NewInternalError(err)
	}
	if topic.Status != models.ForumStatusPublished {
		return nil, models.NewNotFoundError("Topic", id)
	}
	replies, err := s.store.ListReplies(ctx, id)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	decorateTopic(topic, replies)
	return &TopicDetail{Topic: *topic, Replies: replies}, nil
}

// CreateTopicInput carries the topic creation fields.
type CreateTopicInput struct {
	CategoryID string `json:"categoryId"`
	Title      string `json:"title"`
	Body       string `json:"body"`
	Country    string `json:"country"`
	Language   string `json:"language"`
}

// CreateTopic creates a topic. Requires a verified phone and a clean
// sanction state.
func (s *ForumService) CreateTopic(ctx context.Context, in CreateTopicInput, actor *Actor, ip string) (*models.ForumTopic, error) {
	if actor == nil {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	if err := requireActiveUser(ctx, s.store, actor.ID, true); err != nil {
		return nil, err
	}

	in.Title = validation.SanitizeText(in.Title)
	in.Body = validation.SanitizeText(in.Body)
	var fields []models.FieldError
	requireLength(&fields, "title", in.Title, 8, 200)
	requireLength(&fields, "body", in.Body, 20, 5000)
	if !knownCategory(in.CategoryID) {
		fields = append(fields, models.FieldError{Field: "categoryId", Message: "Unknown category"})
	}
	if len(fields) > 0 {
		return nil, models.NewFieldValidationError(fields)
	}

	topic := &models.ForumTopic{
		ID:         idgen.EntityID(),
		CategoryID: in.CategoryID,
		Title:      in.Title,
		Body:       in.Body,
		Country:    models.NormalizeCountry(in.Country, s.defaultCountry),
		Language:   models.NormalizeLanguage(in.Language, s.defaultLang),
		Status:     models.ForumStatusPublished,
		CreatedBy:  actor.ID,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.store.InsertTopic(ctx, topic); err != nil {
		return nil, models.NewInternalError(err)
	}
	s.auditor.Record(ctx, ActionTopicCreate, &actor.ID, "topic", topic.ID, ip, map[string]any{"categoryId": topic.CategoryID})
	topic.LastUpdate = topic.CreatedAt
	return topic, nil
}

// CreateReplyInput carries the reply fields.
type CreateReplyInput struct {
	Body     string `json:"body"`
	Country  string `json:"country"`
	Language string `json:"language"`
}

// CreateReply adds a reply to a published topic. Requires authentication
// and a clean sanction state; no phone gate for replies.
func (s *ForumService) CreateReply(ctx context.Context, topicID string, in CreateReplyInput, actor *Actor, ip string) (*models.ForumReply, error) {
	if actor == nil {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	if err := requireActiveUser(ctx, s.store, actor.ID, false); err != nil {
		return nil, err
	}
	topic, err := s.store.GetTopic(ctx, topicID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, models.NewNotFoundError("Topic", topicID)
		}
		return nil, models.NewInternalError(err)
	}
	if topic.Status != models.ForumStatusPublished {
		return nil, models.NewNotFoundError("Topic", topicID)
	}

	in.Body = validation.SanitizeText(in.Body)
	var fields []models.FieldError
	requireLength(&fields, "body", in.Body, 2, 3000)
	if len(fields) > 0 {
		return nil, models.NewFieldValidationError(fields)
	}

	reply := &models.ForumReply{
		ID:        idgen.EntityID(),
		TopicID:   topicID,
		Body:      in.Body,
		Country:   models.NormalizeCountry(in.Country, s.defaultCountry),
		Language:  models.NormalizeLanguage(in.Language, s.defaultLang),
		Status:    models.ForumStatusPublished,
		CreatedBy: actor.ID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.InsertReply(ctx, reply); err != nil {
		return nil, models.NewInternalError(err)
	}
	s.auditor.Record(ctx, ActionReplyCreate, &actor.ID, "reply", reply.ID, ip, map[string]any{"topicId": topicID})
	return reply, nil
}

// CompanyBoard returns the topics of a company's discussion board.
func (s *ForumService) CompanyBoard(ctx context.Context, slug string) ([]models.ForumTopic, error) {
	return s.ListTopics(ctx, companyCategoryPrefix+strings.ToLower(slug))
}

// CreateCompanyBoardTopic posts a topic on a company board.
func (s *ForumService) CreateCompanyBoardTopic(ctx context.Context, slug string, in CreateTopicInput, actor *Actor, ip string) (*models.ForumTopic, error) {
	in.CategoryID = companyCategoryPrefix + strings.ToLower(slug)
	return s.CreateTopic(ctx, in, actor, ip)
}

func knownCategory(id string) bool {
	if models.KnownForumCategory(id) {
		return true
	}
	return strings.HasPrefix(id, companyCategoryPrefix) && len(id) > len(companyCategoryPrefix)
}

func decorateTopic(topic *models.ForumTopic, replies []models.ForumReply) {
	topic.Replies = 0
	topic.LastUpdate = topic.CreatedAt
	for _, reply := range replies {
		if reply.TopicID != topic.ID || reply.Status != models.ForumStatusPublished {
			continue
		}
		topic.Replies++
		if reply.CreatedAt.After(topic.LastUpdate) {
			topic.LastUpdate = reply.CreatedAt
		}
	}
}
