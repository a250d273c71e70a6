package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"aitookmyjob/internal/idgen"
	"aitookmyjob/internal/models"
	"aitookmyjob/internal/moderation"
	"aitookmyjob/internal/store"
	"aitookmyjob/internal/validation"
)

// Actor identifies the authenticated requester. A nil *Actor means the
// request is anonymous.
type Actor struct {
	ID   string
	Role string
}

// SubmitStoryInput carries the raw submission fields.
type SubmitStoryInput struct {
	Name             string              `json:"name"`
	Country          string              `json:"country"`
	Language         string              `json:"language"`
	Profession       string              `json:"profession"`
	Company          string              `json:"company"`
	LaidOffAt        string              `json:"laidOffAt"`
	FoundNewJob      bool                `json:"foundNewJob"`
	Reason           string              `json:"reason"`
	Story            string              `json:"story"`
	EstimatedLayoffs int                 `json:"estimatedLayoffs"`
	NDAConfirmed     bool                `json:"ndaConfirmed"`
	Visibility       Visibility          `json:"visibility"`
	Details          models.StoryDetails `json:"details"`
}

// SubmitResult distinguishes queued submissions from auto-rejected ones.
type SubmitResult struct {
	Story        *models.Story
	AutoRejected bool
}

// StoryService orchestrates the story lifecycle: submission, masking,
// engagement counters and self-service updates.
type StoryService struct {
	store          store.Store
	auditor        *Auditor
	notifier       Notifier
	logger         *slog.Logger
	defaultCountry string
	defaultLang    string
}

// NewStoryService returns a new StoryService.
func NewStoryService(s store.Store, auditor *Auditor, notifier Notifier, logger *slog.Logger, defaultCountry, defaultLang string) *StoryService {
	return &StoryService{
		store:          s,
		auditor:        auditor,
		notifier:       notifier,
		logger:         logger,
		defaultCountry: defaultCountry,
		defaultLang:    defaultLang,
	}
}

// Submit validates, scores and persists a story. Actor is nil on the
// anonymous path; the authenticated path additionally requires a verified
// phone and a clean sanction state.
func (s *StoryService) Submit(ctx context.Context, in SubmitStoryInput, actor *Actor, ip string) (*SubmitResult, error) {
	if actor != nil {
		if err := requireActiveUser(ctx, s.store, actor.ID, true); err != nil {
			return nil, err
		}
	}

	in.Name = validation.SanitizeText(in.Name)
	in.Profession = validation.SanitizeText(in.Profession)
	in.Company = validation.SanitizeText(in.Company)
	in.LaidOffAt = validation.SanitizeText(in.LaidOffAt)
	in.Reason = validation.SanitizeText(in.Reason)
	in.Story = validation.SanitizeText(in.Story)
	in.Details.City = validation.SanitizeText(in.Details.City)
	in.Details.AITool = validation.SanitizeText(in.Details.AITool)
	in.Details.LayoffType = validation.SanitizeText(in.Details.LayoffType)
	in.Details.NewField = validation.SanitizeText(in.Details.NewField)
	if in.Company == "" {
		in.Company = "Undisclosed"
	}

	var fields []models.FieldError
	requireLength(&fields, "name", in.Name, 2, 80)
	requireLength(&fields, "profession", in.Profession, 2, 80)
	requireLength(&fields, "company", in.Company, 1, 120)
	requireLength(&fields, "laidOffAt", in.LaidOffAt, 4, 20)
	requireLength(&fields, "reason", in.Reason, 8, 240)
	requireLength(&fields, "story", in.Story, 40, 3000)
	if !in.NDAConfirmed {
		fields = append(fields, models.FieldError{Field: "ndaConfirmed", Message: "You must confirm the NDA acknowledgement"})
	}
	if len(fields) > 0 {
		return nil, models.NewFieldValidationError(fields)
	}

	if in.EstimatedLayoffs < 1 {
		in.EstimatedLayoffs = 1
	}
	if in.Details.MoodScore < 0 {
		in.Details.MoodScore = 0
	}
	if in.Details.MoodScore > 10 {
		in.Details.MoodScore = 10
	}
	switch in.Details.EvidenceTier {
	case models.EvidenceSelfReport, models.EvidenceDocVerified, models.EvidenceMultiSource:
	default:
		in.Details.EvidenceTier = models.EvidenceSelfReport
	}

	risk := moderation.Score(moderation.Input{Reason: in.Reason, Body: in.Story})
	status := models.StoryStatusPending
	if risk.RiskBand == models.RiskBandHigh {
		status = models.StoryStatusRejected
	}

	story := &models.Story{
		ID:               idgen.StoryID(),
		Name:             in.Name,
		Country:          models.NormalizeCountry(in.Country, s.defaultCountry),
		Language:         models.NormalizeLanguage(in.Language, s.defaultLang),
		Profession:       in.Profession,
		Company:          in.Company,
		LaidOffAt:        in.LaidOffAt,
		FoundNewJob:      in.FoundNewJob,
		Reason:           in.Reason,
		Body:             in.Story,
		Status:           status,
		EstimatedLayoffs: in.EstimatedLayoffs,
		Privacy:          PrivacyFromVisibility(in.Visibility),
		Moderation:       risk,
		Details:          in.Details,
		CreatedAt:        time.Now().UTC(),
	}
	if actor != nil {
		id := actor.ID
		story.SubmittedBy = &id
	}

	if err := s.store.InsertStory(ctx, story); err != nil {
		return nil, models.NewInternalError(err)
	}
	s.appendVersion(ctx, story, 1, story.SubmittedBy)

	var actorID *string
	if actor != nil {
		actorID = &actor.ID
	}
	s.auditor.Record(ctx, ActionStorySubmit, actorID, "story", story.ID, ip, map[string]any{
		"riskBand": risk.RiskBand,
		"status":   status,
	})
	if risk.RiskBand != models.RiskBandLow {
		s.notifier.NotifyModerators(ctx, fmt.Sprintf(
			"Story %s (%s) flagged %s risk, status %s", story.ID, story.Country, risk.RiskBand, status))
	}

	return &SubmitResult{Story: story, AutoRejected: status == models.StoryStatusRejected}, nil
}

// ListPublicInput narrows the public story listing.
type ListPublicInput struct {
	Country  string
	Language string
	Limit    int
	Offset   int
}

// PublicListing is the response shape for the public story feed.
type PublicListing struct {
	Country         string                  `json:"country"`
	Total           int                     `json:"total"`
	Stories         []StoryView             `json:"stories"`
	CrisisResources []models.CrisisResource `json:"crisisResources"`
}

// ListPublic returns published stories, masked, newest first.
func (s *StoryService) ListPublic(ctx context.Context, in ListPublicInput) (*PublicListing, error) {
	if in.Limit <= 0 || in.Limit > 100 {
		in.Limit = 50
	}
	// Unknown country values clamp to the global listing; the raw query
	// value is never echoed back.
	country := ""
	if in.Country != "" && in.Country != "global" {
		country = models.NormalizeCountry(in.Country, "")
	}
	listingCountry := country
	if listingCountry == "" {
		listingCountry = "global"
	}
	filter := store.StoryFilter{
		Status:   models.StoryStatusPublished,
		Country:  country,
		Language: in.Language,
		Limit:    in.Limit,
		Offset:   in.Offset,
	}
	stories, err := s.store.ListStories(ctx, filter)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	total, err := s.store.CountStories(ctx, store.StoryFilter{Status: filter.Status, Country: filter.Country, Language: filter.Language})
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	views := make([]StoryView, 0, len(stories))
	for _, story := range stories {
		views = append(views, MaskStory(story))
	}
	return &PublicListing{
		Country:         listingCountry,
		Total:           total,
		Stories:         views,
		CrisisResources: models.CrisisResources,
	}, nil
}

// GetPublic returns one published story, masked.
func (s *StoryService) GetPublic(ctx context.Context, id string) (*StoryView, error) {
	story, err := s.publishedStory(ctx, id)
	if err != nil {
		return nil, err
	}
	view := MaskStory(*story)
	return &view, nil
}

// RecordView increments the view counter on a published story.
func (s *StoryService) RecordView(ctx context.Context, id string) (*models.StoryMetrics, error) {
	return s.bumpMetric(ctx, id, func(m *models.StoryMetrics) { m.Views++ })
}

// RecordMeToo increments the me-too counter on a published story.
func (s *StoryService) RecordMeToo(ctx context.Context, id string) (*models.StoryMetrics, error) {
	return s.bumpMetric(ctx, id, func(m *models.StoryMetrics) { m.MeToo++ })
}

// RecordComment increments the comment counter on a published story.
func (s *StoryService) RecordComment(ctx context.Context, id string) (*models.StoryMetrics, error) {
	return s.bumpMetric(ctx, id, func(m *models.StoryMetrics) { m.CommentsCount++ })
}

func (s *StoryService) bumpMetric(ctx context.Context, id string, bump func(*models.StoryMetrics)) (*models.StoryMetrics, error) {
	story, err := s.publishedStory(ctx, id)
	if err != nil {
		return nil, err
	}
	bump(&story.Metrics)
	if err := s.store.UpdateStory(ctx, story); err != nil {
		return nil, models.NewInternalError(err)
	}
	metrics := story.Metrics
	return &metrics, nil
}

// UpdateStoryInput is the self-service update: the submitter reports the
// outcome of their search.
type UpdateStoryInput struct {
	FoundNewJob bool   `json:"foundNewJob"`
	UpdateLabel string `json:"updateLabel"`
}

// Update applies a self-service update, gated to the original submitter or
// a moderator.
func (s *StoryService) Update(ctx context.Context, id string, in UpdateStoryInput, actor *Actor) (*models.Story, error) {
	if actor == nil {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	// The update label is public text, so muted and banned accounts are
	// blocked here too.
	if err := requireActiveUser(ctx, s.store, actor.ID, false); err != nil {
		return nil, err
	}
	story, err := s.publishedStory(ctx, id)
	if err != nil {
		return nil, err
	}
	owner := story.SubmittedBy != nil && *story.SubmittedBy == actor.ID
	if !owner && !models.IsModeratorRole(actor.Role) {
		return nil, models.NewForbiddenError("You can only update your own story")
	}
	story.FoundNewJob = in.FoundNewJob
	if label := validation.SanitizeText(in.UpdateLabel); label != "" {
		if len(label) > 240 {
			label = label[:240]
		}
		story.UpdateLabel = label
	}
	if err := s.store.UpdateStory(ctx, story); err != nil {
		return nil, models.NewInternalError(err)
	}
	return story, nil
}

func (s *StoryService) publishedStory(ctx context.Context, id string) (*models.Story, error) {
	story, err := s.store.GetStory(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, models.NewNotFoundError("Story", id)
		}
		return nil, models.NewInternalError(err)
	}
	if story.Status != models.StoryStatusPublished {
		return nil, models.NewNotFoundError("Story", id)
	}
	return story, nil
}

// appendVersion writes an append-only snapshot. Best-effort, like the other
// side-effects of a submission.
func (s *StoryService) appendVersion(ctx context.Context, story *models.Story, versionNo int, createdBy *string) {
	version := &models.StoryVersion{
		ID:        idgen.EntityID(),
		StoryID:   story.ID,
		VersionNo: versionNo,
		Payload: map[string]any{
			"status":   story.Status,
			"riskBand": story.Moderation.RiskBand,
			"reason":   story.ModerationReason,
		},
		CreatedBy: createdBy,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.AppendStoryVersion(ctx, version); err != nil {
		s.logger.Warn("story version append failed", "story_id", story.ID, "error", err)
	}
}

func requireLength(fields *[]models.FieldError, name, value string, min, max int) {
	length := len([]rune(value))
	if length < min {
		*fields = append(*fields, models.FieldError{Field: name, Message: fmt.Sprintf("Must be at least %d characters", min)})
		return
	}
	if length > max {
		*fields = append(*fields, models.FieldError{Field: name, Message: fmt.Sprintf("Must be at most %d characters", max)})
	}
}
