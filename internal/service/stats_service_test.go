package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aitookmyjob/internal/idgen"
	"aitookmyjob/internal/models"
	"aitookmyjob/internal/store"
)

func seedPublished(t *testing.T, st store.Store, stories ...models.Story) {
	t.Helper()
	ctx := context.Background()
	for i := range stories {
		story := stories[i]
		if story.ID == "" {
			story.ID = fmt.Sprintf("stat-%d", i)
		}
		if story.Status == "" {
			story.Status = models.StoryStatusPublished
		}
		if story.CreatedAt.IsZero() {
			story.CreatedAt = time.Now().UTC()
		}
		require.NoError(t, st.InsertStory(ctx, &story))
	}
}

func TestCountersAfterOnePublishedStory(t *testing.T) {
	st := newTestStore(t)
	adminSvc := newAdminService(st)
	storySvc := newStoryService(st)
	statsSvc := NewStatsService(st)
	ctx := context.Background()

	in := validSubmission()
	in.EstimatedLayoffs = 12
	in.FoundNewJob = true
	result, err := storySvc.Submit(ctx, in, nil, "1.2.3.4")
	require.NoError(t, err)

	// Pending stories do not count.
	counters, err := statsSvc.GetCounters(ctx, "")
	require.NoError(t, err)
	assert.Zero(t, counters.Stories)

	require.NoError(t, adminSvc.Decide(ctx, "story:"+result.Story.ID, DecisionInput{Action: "approve"}, Actor{ID: "mod", Role: "moderator"}, "9.9.9.9"))

	counters, err = statsSvc.GetCounters(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 1, counters.Stories)
	assert.Equal(t, 12, counters.LaidOff)
	assert.Equal(t, 1, counters.FoundJob)
}

func TestStatsBreakdownsAndTrend(t *testing.T) {
	st := newTestStore(t)
	statsSvc := NewStatsService(st)
	ctx := context.Background()

	seedPublished(t, st,
		models.Story{Country: "us", Profession: "Copywriter", Company: "A", LaidOffAt: "2025-01-10", EstimatedLayoffs: 3, Details: models.StoryDetails{AITool: "ChatGPT", LayoffType: "full_team"}},
		models.Story{Country: "us", Profession: "Copywriter", Company: "B", LaidOffAt: "2025-01-20", EstimatedLayoffs: 2, Details: models.StoryDetails{AITool: "ChatGPT"}},
		models.Story{Country: "de", Profession: "QA Engineer", Company: "C", LaidOffAt: "2025-02-01", EstimatedLayoffs: 5, Details: models.StoryDetails{AITool: "Copilot"}},
	)

	stats, err := statsSvc.GetStats(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "global", stats.Country)
	assert.Equal(t, 2, stats.ByProfession["Copywriter"])
	assert.Equal(t, 2, stats.ByAITool["ChatGPT"])
	assert.Equal(t, 1, stats.ByLayoffType["full_team"])
	require.Len(t, stats.MonthlyTrend, 2)
	assert.Equal(t, "2025-01", stats.MonthlyTrend[0].Month)
	assert.Equal(t, 5, stats.MonthlyTrend[0].LaidOff)

	german, err := statsSvc.GetStats(ctx, "de")
	require.NoError(t, err)
	assert.Equal(t, 1, german.Counters.Stories)
}

func TestDashboardAverages(t *testing.T) {
	st := newTestStore(t)
	statsSvc := NewStatsService(st)
	ctx := context.Background()

	seedPublished(t, st,
		models.Story{Profession: "Designer", Company: "A", LaidOffAt: "2025-01-05", EstimatedLayoffs: 1,
			Moderation: models.Moderation{RiskBand: models.RiskBandLow},
			Details:    models.StoryDetails{MoodScore: 4, MonthsSearching: 2, SalaryBefore: 100, SalaryAfter: 80}},
		models.Story{Profession: "Designer", Company: "B", LaidOffAt: "2025-01-15", EstimatedLayoffs: 1,
			Moderation: models.Moderation{RiskBand: models.RiskBandMedium},
			Details:    models.StoryDetails{MoodScore: 6, MonthsSearching: 4, SalaryBefore: 100, SalaryAfter: 120}},
	)

	dashboard, err := statsSvc.GetDashboard(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 1, dashboard.RiskBands[models.RiskBandLow])
	assert.Equal(t, 1, dashboard.RiskBands[models.RiskBandMedium])
	assert.InDelta(t, 5.0, dashboard.AvgMoodScore, 1e-9)
	assert.InDelta(t, 3.0, dashboard.AvgMonthsSearching, 1e-9)
	assert.InDelta(t, 0.0, dashboard.AvgSalaryChangePct, 1e-9)
	require.NotEmpty(t, dashboard.TopProfessions)
	assert.Equal(t, "Designer", dashboard.TopProfessions[0].Key)
}

func TestResearchAggregateSuppressesSmallGroups(t *testing.T) {
	st := newTestStore(t)
	statsSvc := NewStatsService(st)
	ctx := context.Background()

	var stories []models.Story
	for i := 0; i < 3; i++ {
		stories = append(stories, models.Story{Profession: "Translator", Company: "A", LaidOffAt: "2025-01",
			FoundNewJob: i == 0, Details: models.StoryDetails{TenureYears: 4}})
	}
	stories = append(stories, models.Story{Profession: "Paralegal", Company: "B", LaidOffAt: "2025-01"})
	seedPublished(t, st, stories...)

	rows, err := statsSvc.GetResearchAggregate(ctx, "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Translator", rows[0].Profession)
	assert.Equal(t, 3, rows[0].Stories)
	assert.InDelta(t, 1.0/3.0, rows[0].FoundJobRate, 1e-9)
	assert.InDelta(t, 4.0, rows[0].AvgTenureYears, 1e-9)
}

func TestTopCompaniesExcludesUndisclosed(t *testing.T) {
	st := newTestStore(t)
	statsSvc := NewStatsService(st)
	ctx := context.Background()

	seedPublished(t, st,
		models.Story{Profession: "P", Company: "Acme Corp", LaidOffAt: "2025-01", EstimatedLayoffs: 10},
		models.Story{Profession: "P", Company: "Acme Corp", LaidOffAt: "2025-02", EstimatedLayoffs: 5},
		models.Story{Profession: "P", Company: "Globex", LaidOffAt: "2025-01", EstimatedLayoffs: 8},
		models.Story{Profession: "P", Company: "Undisclosed", LaidOffAt: "2025-01", EstimatedLayoffs: 100},
	)

	companies, err := statsSvc.GetTopCompanies(ctx, 0)
	require.NoError(t, err)
	require.Len(t, companies, 2)
	assert.Equal(t, "acme-corp", companies[0].Slug)
	assert.Equal(t, 15, companies[0].EstimatedLayoffs)
	assert.Equal(t, "globex", companies[1].Slug)
}

func TestCompanyProfileAndTimeline(t *testing.T) {
	st := newTestStore(t)
	statsSvc := NewStatsService(st)
	ctx := context.Background()

	seedPublished(t, st,
		models.Story{Name: "Jane Doe", Profession: "Copywriter", Company: "Acme Corp", LaidOffAt: "2025-01-02", EstimatedLayoffs: 4, FoundNewJob: true,
			Privacy: models.Privacy{NameDisplay: models.NameDisplayAnonymous}},
		models.Story{Name: "John Roe", Profession: "Designer", Company: "Acme Corp", LaidOffAt: "2025-02-02", EstimatedLayoffs: 2},
	)

	profile, err := statsSvc.GetCompanyProfile(ctx, "acme-corp")
	require.NoError(t, err)
	assert.Equal(t, 2, profile.Stories)
	assert.Equal(t, 6, profile.EstimatedLayoffs)
	assert.Equal(t, 1, profile.FoundJob)
	require.Len(t, profile.RecentStories, 2)
	assert.Equal(t, "Anonymous", profile.RecentStories[0].Name)

	timeline, err := statsSvc.GetCompanyTimeline(ctx, "acme-corp")
	require.NoError(t, err)
	require.Len(t, timeline, 2)
	assert.Equal(t, "2025-01", timeline[0].Month)

	_, err = statsSvc.GetCompanyProfile(ctx, "no-such-company")
	assertCode(t, err, "NOT_FOUND")
}

func TestCompanySlug(t *testing.T) {
	assert.Equal(t, "acme-corp", CompanySlug(" Acme Corp "))
	assert.Equal(t, "o-reilly-co", CompanySlug("O'Reilly & Co."))
	assert.Equal(t, "", CompanySlug("!!!"))
}

func TestTransparencyReportPeriods(t *testing.T) {
	st := newTestStore(t)
	statsSvc := NewStatsService(st)
	ctx := context.Background()

	appendAudit := func(action string, at time.Time) {
		require.NoError(t, st.AppendAudit(ctx, &models.AuditEntry{
			ID: idgen.EntityID(), Action: action, CreatedAt: at,
		}))
	}
	appendAudit(ActionModeration, time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC))
	appendAudit(ActionModeration, time.Date(2025, 7, 10, 0, 0, 0, 0, time.UTC))
	appendAudit(ActionSanctionCreate, time.Date(2025, 2, 12, 0, 0, 0, 0, time.UTC))
	appendAudit(ActionModeration, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))

	require.NoError(t, st.AppendTransparencyEvent(ctx, &models.TransparencyEvent{
		ID: idgen.EntityID(), EventType: "takedown", Status: "received",
		CreatedAt: time.Date(2025, 2, 20, 0, 0, 0, 0, time.UTC),
	}))

	all, err := statsSvc.GetTransparencyReport(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 3, all.Totals[ActionModeration])
	assert.Equal(t, 1, all.Sanctions)
	assert.Equal(t, 1, all.EventsPublic)

	year, err := statsSvc.GetTransparencyReport(ctx, "2025")
	require.NoError(t, err)
	assert.Equal(t, 2, year.Totals[ActionModeration])

	quarter, err := statsSvc.GetTransparencyReport(ctx, "2025-Q1")
	require.NoError(t, err)
	assert.Equal(t, 1, quarter.Totals[ActionModeration])
	assert.Equal(t, 1, quarter.Sanctions)
	assert.Equal(t, 1, quarter.EventsPublic)

	q3, err := statsSvc.GetTransparencyReport(ctx, "2025-Q3")
	require.NoError(t, err)
	assert.Equal(t, 1, q3.Totals[ActionModeration])
	assert.Zero(t, q3.EventsPublic)

	_, err = statsSvc.GetTransparencyReport(ctx, "last-year")
	assertCode(t, err, "VALIDATION_ERROR")
}
