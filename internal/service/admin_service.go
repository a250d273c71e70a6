package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"aitookmyjob/internal/idgen"
	"aitookmyjob/internal/models"
	"aitookmyjob/internal/store"
	"aitookmyjob/internal/validation"
)

// Anomaly heuristic thresholds over the trailing 24 hours of audit events.
const (
	anomalyWindow        = 24 * time.Hour
	anomalyIPThreshold   = 20
	anomalyUserThreshold = 15
	anomalyHighThreshold = 50
)

// AdminService handles the moderation queue, sanctions, anomaly signals and
// the admin overview.
type AdminService struct {
	store    store.Store
	auditor  *Auditor
	notifier Notifier
	logger   *slog.Logger
}

// NewAdminService returns a new AdminService.
func NewAdminService(s store.Store, auditor *Auditor, notifier Notifier, logger *slog.Logger) *AdminService {
	return &AdminService{store: s, auditor: auditor, notifier: notifier, logger: logger}
}

// QueueEntry is one item awaiting human review. The entry id doubles as the
// idempotency key for moderation actions.
type QueueEntry struct {
	EntryID     string    `json:"entryId"`
	Type        string    `json:"type"`
	RiskBand    string    `json:"riskBand,omitempty"`
	Preview     string    `json:"preview"`
	Country     string    `json:"country"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// ModerationQueue lists pending stories and forum topics, oldest first.
func (s *AdminService) ModerationQueue(ctx context.Context) ([]QueueEntry, error) {
	stories, err := s.store.ListStories(ctx, store.StoryFilter{Status: models.StoryStatusPending})
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	topics, err := s.store.ListTopics(ctx, "")
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	entries := make([]QueueEntry, 0, len(stories)+len(topics))
	for _, story := range stories {
		entries = append(entries, QueueEntry{
			EntryID:     "story:" + story.ID,
			Type:        "story",
			RiskBand:    story.Moderation.RiskBand,
			Preview:     preview(story.Reason),
			Country:     story.Country,
			SubmittedAt: story.CreatedAt,
		})
	}
	for _, topic := range topics {
		if topic.Status != models.ForumStatusPending {
			continue
		}
		entries = append(entries, QueueEntry{
			EntryID:     "topic:" + topic.ID,
			Type:        "topic",
			Preview:     preview(topic.Title),
			Country:     topic.Country,
			SubmittedAt: topic.CreatedAt,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].SubmittedAt.Before(entries[j].SubmittedAt)
	})
	return entries, nil
}

// DecisionInput is a moderator's verdict on a queue entry.
type DecisionInput struct {
	Action string `json:"action"`
	Reason string `json:"reason"`
}

// Decide applies approve/reject to a queue entry. Repeating a decision on
// an entry already in the target state is a no-op, not an error.
func (s *AdminService) Decide(ctx context.Context, entryID string, in DecisionInput, actor Actor, ip string) error {
	if in.Action != "approve" && in.Action != "reject" {
		return models.NewValidationError("Action must be approve or reject")
	}
	kind, id, ok := strings.Cut(entryID, ":")
	if !ok || id == "" {
		return models.NewValidationError("Entry id must be story:<id> or topic:<id>")
	}

	var err error
	switch kind {
	case "story":
		err = s.decideStory(ctx, id, in, actor)
	case "topic":
		err = s.decideTopic(ctx, id, in)
	default:
		return models.NewValidationError("Entry id must be story:<id> or topic:<id>")
	}
	if err != nil {
		return err
	}

	s.auditor.Record(ctx, ActionModeration, &actor.ID, kind, id, ip, map[string]any{
		"action": in.Action,
		"reason": in.Reason,
	})
	s.auditor.Transparency(ctx, "moderation.action", "resolved", map[string]any{
		"entry":  entryID,
		"action": in.Action,
	})
	return nil
}

func (s *AdminService) decideStory(ctx context.Context, id string, in DecisionInput, actor Actor) error {
	story, err := s.store.GetStory(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.NewNotFoundError("Story", id)
		}
		return models.NewInternalError(err)
	}
	target := models.StoryStatusPublished
	if in.Action == "reject" {
		target = models.StoryStatusRejected
	}
	if story.Status == target {
		return nil
	}
	story.Status = target
	if in.Action == "reject" {
		story.ModerationReason = validation.SanitizeText(in.Reason)
	}
	if err := s.store.UpdateStory(ctx, story); err != nil {
		return models.NewInternalError(err)
	}

	versions, err := s.store.ListStoryVersions(ctx, id)
	versionNo := 2
	if err == nil && len(versions) > 0 {
		versionNo = versions[len(versions)-1].VersionNo + 1
	}
	version := &models.StoryVersion{
		ID:        idgen.EntityID(),
		StoryID:   id,
		VersionNo: versionNo,
		Payload: map[string]any{
			"status":   story.Status,
			"riskBand": story.Moderation.RiskBand,
			"reason":   story.ModerationReason,
		},
		CreatedBy: &actor.ID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.AppendStoryVersion(ctx, version); err != nil {
		s.logger.Warn("story version append failed", "story_id", id, "error", err)
	}
	return nil
}

func (s *AdminService) decideTopic(ctx context.Context, id string, in DecisionInput) error {
	topic, err := s.store.GetTopic(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.NewNotFoundError("Topic", id)
		}
		return models.NewInternalError(err)
	}
	target := models.ForumStatusPublished
	if in.Action == "reject" {
		target = models.ForumStatusDeleted
	}
	if topic.Status == target {
		return nil
	}
	topic.Status = target
	if err := s.store.UpdateTopic(ctx, topic); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// SanctionInput carries the fields of a new sanction.
type SanctionInput struct {
	TargetUserID string `json:"targetUserId"`
	Type         string `json:"type"`
	Reason       string `json:"reason"`
	DurationDays *int   `json:"durationDays,omitempty"`
}

// ApplySanction records a sanction and patches the target's mute/ban state.
// A ban with no duration uses the far-future permanent sentinel.
func (s *AdminService) ApplySanction(ctx context.Context, in SanctionInput, actor Actor, ip string) (*models.Sanction, error) {
	var fields []models.FieldError
	switch in.Type {
	case models.SanctionWarn, models.SanctionMute, models.SanctionSuspend, models.SanctionBan:
	default:
		fields = append(fields, models.FieldError{Field: "type", Message: "Must be warn, mute, suspend or ban"})
	}
	in.Reason = validation.SanitizeText(in.Reason)
	requireLength(&fields, "reason", in.Reason, 2, 400)
	if in.DurationDays != nil && (*in.DurationDays < 1 || *in.DurationDays > 3650) {
		fields = append(fields, models.FieldError{Field: "durationDays", Message: "Must be between 1 and 3650"})
	}
	if in.DurationDays == nil && (in.Type == models.SanctionMute || in.Type == models.SanctionSuspend) {
		fields = append(fields, models.FieldError{Field: "durationDays", Message: "Required for mute and suspend"})
	}
	if len(fields) > 0 {
		return nil, models.NewFieldValidationError(fields)
	}

	user, err := s.store.GetUser(ctx, in.TargetUserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, models.NewNotFoundError("User", in.TargetUserID)
		}
		return nil, models.NewInternalError(err)
	}

	now := time.Now().UTC()
	switch in.Type {
	case models.SanctionMute:
		until := now.AddDate(0, 0, *in.DurationDays)
		user.MutedUntil = &until
	case models.SanctionSuspend:
		until := now.AddDate(0, 0, *in.DurationDays)
		user.BannedUntil = &until
	case models.SanctionBan:
		until := models.BannedForever
		if in.DurationDays != nil {
			until = now.AddDate(0, 0, *in.DurationDays)
		}
		user.BannedUntil = &until
	}
	if in.Type != models.SanctionWarn {
		if err := s.store.UpdateUser(ctx, user); err != nil {
			return nil, models.NewInternalError(err)
		}
	}

	sanction := &models.Sanction{
		ID:           idgen.EntityID(),
		TargetUserID: in.TargetUserID,
		Type:         in.Type,
		Reason:       in.Reason,
		DurationDays: in.DurationDays,
		CreatedBy:    actor.ID,
		CreatedAt:    now,
	}
	if err := s.store.InsertSanction(ctx, sanction); err != nil {
		return nil, models.NewInternalError(err)
	}
	s.auditor.Record(ctx, ActionSanctionCreate, &actor.ID, "user", in.TargetUserID, ip, map[string]any{
		"type": in.Type,
	})
	s.auditor.Transparency(ctx, "sanction", "applied", map[string]any{"type": in.Type})
	s.notifier.NotifyModerators(ctx, fmt.Sprintf("Sanction %s applied to user %s", in.Type, in.TargetUserID))
	return sanction, nil
}

// ListSanctions returns sanctions, optionally filtered to one user.
func (s *AdminService) ListSanctions(ctx context.Context, targetUserID string) ([]models.Sanction, error) {
	sanctions, err := s.store.ListSanctions(ctx, targetUserID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return sanctions, nil
}

// ListUsers returns all accounts for the admin surface.
func (s *AdminService) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

// AnomalySignal is a fixed-threshold count of audit events per IP or actor
// within the trailing 24-hour window.
type AnomalySignal struct {
	Kind     string `json:"kind"`
	Key      string `json:"key"`
	Count    int    `json:"count"`
	Severity string `json:"severity"`
}

// Anomalies scans the recent audit log for suspicious volumes.
func (s *AdminService) Anomalies(ctx context.Context) ([]AnomalySignal, error) {
	since := time.Now().UTC().Add(-anomalyWindow)
	entries, err := s.store.ListAudit(ctx, store.AuditFilter{Since: since})
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	byIP := map[string]int{}
	byActor := map[string]int{}
	for _, entry := range entries {
		if entry.IP != "" {
			byIP[entry.IP]++
		}
		if entry.ActorID != nil {
			byActor[*entry.ActorID]++
		}
	}

	var signals []AnomalySignal
	for ip, count := range byIP {
		if count >= anomalyIPThreshold {
			signals = append(signals, AnomalySignal{Kind: "ip", Key: ip, Count: count, Severity: severityFor(count)})
		}
	}
	for actor, count := range byActor {
		if count >= anomalyUserThreshold {
			signals = append(signals, AnomalySignal{Kind: "actor", Key: actor, Count: count, Severity: severityFor(count)})
		}
	}
	sort.SliceStable(signals, func(i, j int) bool {
		if signals[i].Count != signals[j].Count {
			return signals[i].Count > signals[j].Count
		}
		return signals[i].Key < signals[j].Key
	})
	return signals, nil
}

// Overview aggregates the headline numbers for the admin dashboard.
type Overview struct {
	PendingStories   int `json:"pendingStories"`
	PublishedStories int `json:"publishedStories"`
	RejectedStories  int `json:"rejectedStories"`
	Users            int `json:"users"`
	Sanctions        int `json:"sanctions"`
	QueueSize        int `json:"queueSize"`
	AnomalySignals   int `json:"anomalySignals"`
}

// GetOverview computes the admin overview on read.
func (s *AdminService) GetOverview(ctx context.Context) (*Overview, error) {
	overview := &Overview{}
	for status, target := range map[string]*int{
		models.StoryStatusPending:   &overview.PendingStories,
		models.StoryStatusPublished: &overview.PublishedStories,
		models.StoryStatusRejected:  &overview.RejectedStories,
	} {
		count, err := s.store.CountStories(ctx, store.StoryFilter{Status: status})
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		*target = count
	}
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	overview.Users = len(users)
	sanctions, err := s.store.ListSanctions(ctx, "")
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	overview.Sanctions = len(sanctions)
	queue, err := s.ModerationQueue(ctx)
	if err != nil {
		return nil, err
	}
	overview.QueueSize = len(queue)
	signals, err := s.Anomalies(ctx)
	if err != nil {
		return nil, err
	}
	overview.AnomalySignals = len(signals)
	return overview, nil
}

func severityFor(count int) string {
	if count >= anomalyHighThreshold {
		return "high"
	}
	return "medium"
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) > 120 {
		return string(runes[:120]) + "…"
	}
	return text
}
