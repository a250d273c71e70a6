package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aitookmyjob/internal/models"
)

// runStoreSuite exercises the Store contract against a backend. Both
// implementations must pass it unchanged.
func runStoreSuite(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("story lifecycle", func(t *testing.T) {
		s := newStore(t)
		story := &models.Story{
			ID:               "st001",
			Name:             "J. Doe",
			Country:          "de",
			Language:         "en",
			Profession:       "QA Engineer",
			Company:          "Acme",
			LaidOffAt:        "2025-04",
			Reason:           "Automated test generation replaced the team",
			Body:             "We were told the new tooling covered our work end to end.",
			Status:           models.StoryStatusPending,
			EstimatedLayoffs: 4,
			Moderation:       models.Moderation{RiskBand: models.RiskBandLow},
			CreatedAt:        time.Now().UTC().Truncate(time.Second),
		}
		require.NoError(t, s.InsertStory(ctx, story))

		got, err := s.GetStory(ctx, "st001")
		require.NoError(t, err)
		assert.Equal(t, "Acme", got.Company)
		assert.Equal(t, models.RiskBandLow, got.Moderation.RiskBand)

		got.Status = models.StoryStatusPublished
		got.Metrics.Views = 3
		require.NoError(t, s.UpdateStory(ctx, got))

		updated, err := s.GetStory(ctx, "st001")
		require.NoError(t, err)
		assert.Equal(t, models.StoryStatusPublished, updated.Status)
		assert.Equal(t, 3, updated.Metrics.Views)

		_, err = s.GetStory(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("story filters and counts", func(t *testing.T) {
		s := newStore(t)
		base := time.Now().UTC().Truncate(time.Second)
		seedStories := []models.Story{
			{ID: "a1", Country: "de", Language: "en", Status: models.StoryStatusPublished, CreatedAt: base.Add(-3 * time.Hour)},
			{ID: "a2", Country: "DE", Language: "de", Status: models.StoryStatusPublished, CreatedAt: base.Add(-2 * time.Hour)},
			{ID: "a3", Country: "fr", Language: "fr", Status: models.StoryStatusPending, CreatedAt: base.Add(-1 * time.Hour)},
		}
		for i := range seedStories {
			require.NoError(t, s.InsertStory(ctx, &seedStories[i]))
		}

		published, err := s.ListStories(ctx, StoryFilter{Status: models.StoryStatusPublished})
		require.NoError(t, err)
		require.Len(t, published, 2)
		assert.Equal(t, "a2", published[0].ID, "newest first")

		german, err := s.ListStories(ctx, StoryFilter{Country: "de"})
		require.NoError(t, err)
		assert.Len(t, german, 2, "country match is case-insensitive")

		count, err := s.CountStories(ctx, StoryFilter{Status: models.StoryStatusPending})
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		page, err := s.ListStories(ctx, StoryFilter{Limit: 1, Offset: 1})
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, "a2", page[0].ID)
	})

	t.Run("delete stories by submitter", func(t *testing.T) {
		s := newStore(t)
		owner := "u7"
		other := "u8"
		now := time.Now().UTC()
		for _, story := range []models.Story{
			{ID: "d1", SubmittedBy: &owner, CreatedAt: now},
			{ID: "d2", SubmittedBy: &other, CreatedAt: now},
			{ID: "d3", CreatedAt: now},
		} {
			st := story
			require.NoError(t, s.InsertStory(ctx, &st))
		}
		require.NoError(t, s.DeleteStoriesBySubmitter(ctx, owner))

		remaining, err := s.ListStories(ctx, StoryFilter{})
		require.NoError(t, err)
		assert.Len(t, remaining, 2)
		_, err = s.GetStory(ctx, "d1")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("story versions ordered", func(t *testing.T) {
		s := newStore(t)
		for _, v := range []models.StoryVersion{
			{ID: "v2", StoryID: "st9", VersionNo: 2, Payload: map[string]any{"status": "published"}, CreatedAt: time.Now().UTC()},
			{ID: "v1", StoryID: "st9", VersionNo: 1, Payload: map[string]any{"status": "pending"}, CreatedAt: time.Now().UTC()},
			{ID: "vx", StoryID: "other", VersionNo: 1, CreatedAt: time.Now().UTC()},
		} {
			version := v
			require.NoError(t, s.AppendStoryVersion(ctx, &version))
		}
		versions, err := s.ListStoryVersions(ctx, "st9")
		require.NoError(t, err)
		require.Len(t, versions, 2)
		assert.Equal(t, 1, versions[0].VersionNo)
		assert.Equal(t, "published", versions[1].Payload["status"])
	})

	t.Run("user uniqueness and lookup", func(t *testing.T) {
		s := newStore(t)
		phone := "+4915112345678"
		user := &models.User{ID: "u1", Email: "a@example.com", Phone: &phone, Role: "user", PasswordHash: "x", CreatedAt: time.Now().UTC()}
		require.NoError(t, s.InsertUser(ctx, user))

		err := s.InsertUser(ctx, &models.User{ID: "u2", Email: "A@example.com", PasswordHash: "x"})
		if err == nil {
			// The SQL backend enforces exact-match uniqueness only; the
			// service normalizes email to lowercase before insert.
			err = s.InsertUser(ctx, &models.User{ID: "u3", Email: "a@example.com", PasswordHash: "x"})
		}
		assert.ErrorIs(t, err, ErrConflict)

		byEmail, err := s.GetUserByEmail(ctx, "a@example.com")
		require.NoError(t, err)
		assert.Equal(t, "u1", byEmail.ID)

		byPhone, err := s.GetUserByPhone(ctx, phone)
		require.NoError(t, err)
		assert.Equal(t, "u1", byPhone.ID)

		until := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second)
		byEmail.MutedUntil = &until
		require.NoError(t, s.UpdateUser(ctx, byEmail))
		reloaded, err := s.GetUser(ctx, "u1")
		require.NoError(t, err)
		require.NotNil(t, reloaded.MutedUntil)
	})

	t.Run("delete user cascades", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.InsertUser(ctx, &models.User{ID: "u9", Email: "gone@example.com", PasswordHash: "x"}))
		require.NoError(t, s.UpsertIdentity(ctx, &models.AuthIdentity{UserID: "u9", EmailVerified: true, UpdatedAt: time.Now().UTC()}))
		require.NoError(t, s.UpsertTelegramLink(ctx, &models.TelegramLink{ID: "tl1", UserID: "u9", TelegramUserID: "tg42", Status: "linked", LinkedAt: time.Now().UTC()}))

		require.NoError(t, s.DeleteUser(ctx, "u9"))

		_, err := s.GetUser(ctx, "u9")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.GetIdentity(ctx, "u9")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.GetTelegramLinkByUser(ctx, "u9")
		assert.ErrorIs(t, err, ErrNotFound)

		assert.ErrorIs(t, s.DeleteUser(ctx, "u9"), ErrNotFound)
	})

	t.Run("identity upsert and link code", func(t *testing.T) {
		s := newStore(t)
		code := "ABCD1234"
		identity := &models.AuthIdentity{UserID: "u5", TelegramLinkCode: &code, UpdatedAt: time.Now().UTC()}
		require.NoError(t, s.UpsertIdentity(ctx, identity))

		identity.PhoneVerified = true
		require.NoError(t, s.UpsertIdentity(ctx, identity))

		got, err := s.GetIdentityByLinkCode(ctx, "ABCD1234")
		require.NoError(t, err)
		assert.Equal(t, "u5", got.UserID)
		assert.True(t, got.PhoneVerified)

		_, err = s.GetIdentityByLinkCode(ctx, "ZZZZ0000")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("telegram link conflict", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.UpsertTelegramLink(ctx, &models.TelegramLink{ID: "tl2", UserID: "ua", TelegramUserID: "tg1", Status: "linked", LinkedAt: time.Now().UTC()}))
		err := s.UpsertTelegramLink(ctx, &models.TelegramLink{ID: "tl3", UserID: "ub", TelegramUserID: "tg1", Status: "linked", LinkedAt: time.Now().UTC()})
		assert.ErrorIs(t, err, ErrConflict)

		// Relinking the same user replaces the record.
		require.NoError(t, s.UpsertTelegramLink(ctx, &models.TelegramLink{ID: "tl2", UserID: "ua", TelegramUserID: "tg1", Status: "linked", LinkedAt: time.Now().UTC()}))
	})

	t.Run("forum topics and replies", func(t *testing.T) {
		s := newStore(t)
		base := time.Now().UTC().Truncate(time.Second)
		require.NoError(t, s.InsertTopic(ctx, &models.ForumTopic{ID: "t1", CategoryID: "cop", Title: "Coping after the layoff", Body: "How did you handle the first weeks?", CreatedBy: "u1", Status: models.ForumStatusPublished, CreatedAt: base.Add(-time.Hour)}))
		require.NoError(t, s.InsertTopic(ctx, &models.ForumTopic{ID: "t2", CategoryID: "dev", Title: "Retraining into data work", Body: "Sharing my bootcamp notes here.", CreatedBy: "u2", Status: models.ForumStatusPublished, CreatedAt: base}))

		all, err := s.ListTopics(ctx, "")
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "t2", all[0].ID)

		coping, err := s.ListTopics(ctx, "cop")
		require.NoError(t, err)
		require.Len(t, coping, 1)

		require.NoError(t, s.InsertReply(ctx, &models.ForumReply{ID: "r2", TopicID: "t1", Body: "It got better after a month.", CreatedBy: "u2", Status: models.ForumStatusPublished, CreatedAt: base.Add(2 * time.Minute)}))
		require.NoError(t, s.InsertReply(ctx, &models.ForumReply{ID: "r1", TopicID: "t1", Body: "Same here.", CreatedBy: "u3", Status: models.ForumStatusPublished, CreatedAt: base.Add(time.Minute)}))

		replies, err := s.ListReplies(ctx, "t1")
		require.NoError(t, err)
		require.Len(t, replies, 2)
		assert.Equal(t, "r1", replies[0].ID, "oldest first")

		everything, err := s.ListAllReplies(ctx)
		require.NoError(t, err)
		assert.Len(t, everything, 2)
	})

	t.Run("sanctions audit transparency", func(t *testing.T) {
		s := newStore(t)
		now := time.Now().UTC().Truncate(time.Second)
		days := 7
		require.NoError(t, s.InsertSanction(ctx, &models.Sanction{ID: "sa1", TargetUserID: "u1", Type: models.SanctionMute, Reason: "repeated spam in forum replies", DurationDays: &days, CreatedBy: "admin", CreatedAt: now}))
		require.NoError(t, s.InsertSanction(ctx, &models.Sanction{ID: "sa2", TargetUserID: "u2", Type: models.SanctionWarn, Reason: "tone warning after reports", CreatedBy: "admin", CreatedAt: now.Add(time.Minute)}))

		forU1, err := s.ListSanctions(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, forU1, 1)
		assert.Equal(t, models.SanctionMute, forU1[0].Type)

		all, err := s.ListSanctions(ctx, "")
		require.NoError(t, err)
		assert.Len(t, all, 2)

		actor := "u1"
		require.NoError(t, s.AppendAudit(ctx, &models.AuditEntry{ID: "e1", Action: "auth.login", ActorID: &actor, IP: "10.0.0.1", CreatedAt: now.Add(-48 * time.Hour)}))
		require.NoError(t, s.AppendAudit(ctx, &models.AuditEntry{ID: "e2", Action: "story.submit", ActorID: &actor, IP: "10.0.0.1", CreatedAt: now}))

		recent, err := s.ListAudit(ctx, AuditFilter{Since: now.Add(-24 * time.Hour)})
		require.NoError(t, err)
		require.Len(t, recent, 1)
		assert.Equal(t, "story.submit", recent[0].Action)

		logins, err := s.ListAudit(ctx, AuditFilter{Action: "auth.login"})
		require.NoError(t, err)
		assert.Len(t, logins, 1)

		require.NoError(t, s.AppendTransparencyEvent(ctx, &models.TransparencyEvent{ID: "tev1", EventType: "moderation.action", Status: "resolved", Details: map[string]any{"decision": "approve"}, CreatedAt: now}))
		events, err := s.ListTransparencyEvents(ctx)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, "moderation.action", events[0].EventType)
	})
}
