// Package seed fills an empty store with demo content for local
// development. It never runs in production.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"aitookmyjob/internal/idgen"
	"aitookmyjob/internal/models"
	"aitookmyjob/internal/moderation"
	"aitookmyjob/internal/store"
)

var professions = []string{
	"Copywriter", "Software Engineer", "QA Engineer", "Graphic Designer",
	"Customer Support Agent", "Translator", "Data Entry Clerk",
	"Content Moderator", "Paralegal", "Voice Actor",
}

var aiTools = []string{
	"ChatGPT", "Claude", "Midjourney", "GitHub Copilot", "Whisper", "Gemini",
}

var countries = []string{"us", "de", "fr", "ru", "es", "gb", "in", "br"}

var topics = []struct {
	category string
	title    string
	body     string
}{
	{"cop", "Clients replacing us with generated copy", "My two biggest clients cancelled their retainers this quarter and told me they switched to generated drafts. How are other writers repositioning?"},
	{"dev", "Did anyone survive an automation-driven restructure?", "Our whole QA department was dissolved after the test suite was automated. Curious what roles people moved into afterwards."},
	{"up", "Free resources for switching to data annotation work", "Collecting links to free courses and communities that helped people retrain after a layoff. Post what actually worked for you."},
	{"law", "Severance terms when the stated reason is automation", "In some countries the stated reason for termination changes what severance you can claim. Sharing what I learned from my case."},
	{"succ", "Six months later: freelancing worked out", "I was let go in January and was sure my career was over. Writing this for anyone in their first week after the news."},
}

// Run populates the store with demo stories and forum topics. It is a
// no-op when stories already exist.
func Run(ctx context.Context, st store.Store, count int, logger *slog.Logger) error {
	existing, err := st.CountStories(ctx, store.StoryFilter{})
	if err != nil {
		return fmt.Errorf("checking existing data: %w", err)
	}
	if existing > 0 {
		logger.Info("seed skipped, store not empty", "stories", existing)
		return nil
	}

	faker := gofakeit.New(42)
	for i := 0; i < count; i++ {
		if err := st.InsertStory(ctx, demoStory(faker, i)); err != nil {
			return fmt.Errorf("seeding story %d: %w", i, err)
		}
	}

	for i, t := range topics {
		topic := &models.ForumTopic{
			ID:         fmt.Sprintf("t%d", i+1),
			CategoryID: t.category,
			Title:      t.title,
			Body:       t.body,
			Country:    "global",
			Language:   "en",
			Status:     models.ForumStatusPublished,
			CreatedBy:  "seed",
			CreatedAt:  time.Now().UTC().Add(-time.Duration(len(topics)-i) * 24 * time.Hour),
		}
		if err := st.InsertTopic(ctx, topic); err != nil {
			return fmt.Errorf("seeding topic %s: %w", topic.ID, err)
		}
	}

	logger.Info("seeded demo data", "stories", count, "topics", len(topics))
	return nil
}

func demoStory(faker *gofakeit.Faker, i int) *models.Story {
	profession := professions[i%len(professions)]
	laidOffAt := faker.DateRange(
		time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
	).Format("2006-01-02")
	body := fmt.Sprintf(
		"I worked as a %s for %d years before the whole function was handed to an automated pipeline. %s %s",
		profession, faker.Number(2, 15), faker.Sentence(12), faker.Sentence(10),
	)
	reason := fmt.Sprintf("Role automated with %s", aiTools[i%len(aiTools)])

	story := &models.Story{
		ID:               idgen.StoryID(),
		Name:             faker.FirstName() + " " + faker.LastName(),
		Country:          countries[i%len(countries)],
		Language:         "en",
		Profession:       profession,
		Company:          faker.Company(),
		LaidOffAt:        laidOffAt,
		FoundNewJob:      i%3 == 0,
		Reason:           reason,
		Body:             body,
		Status:           models.StoryStatusPublished,
		EstimatedLayoffs: faker.Number(1, 40),
		Privacy: models.Privacy{
			NameDisplay:    models.NameDisplayInitials,
			CompanyDisplay: models.CompanyDisplayIndustryOnly,
			GeoDisplay:     models.GeoDisplayCountry,
			DateDisplay:    models.DateDisplayMonth,
		},
		Moderation: moderation.Score(moderation.Input{Reason: reason, Body: body}),
		Details: models.StoryDetails{
			TenureYears:     float64(faker.Number(1, 15)),
			AITool:          aiTools[i%len(aiTools)],
			LayoffType:      []string{"full_team", "partial", "individual"}[i%3],
			MonthsSearching: faker.Number(0, 14),
			MoodScore:       faker.Number(1, 9),
			EvidenceTier:    models.EvidenceSelfReport,
		},
		Metrics: models.StoryMetrics{
			Views: faker.Number(0, 900),
			MeToo: faker.Number(0, 80),
		},
		CreatedAt: time.Now().UTC().Add(-time.Duration(i) * 6 * time.Hour),
	}
	return story
}
