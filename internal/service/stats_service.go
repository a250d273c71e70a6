package service

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"aitookmyjob/internal/models"
	"aitookmyjob/internal/store"
)

// StatsService derives every read-only aggregate by scanning the current
// story and audit data on each request. No materialized views, no caches.
type StatsService struct {
	store store.Store
}

// NewStatsService returns a new StatsService.
func NewStatsService(s store.Store) *StatsService {
	return &StatsService{store: s}
}

// Counters are the headline numbers.
type Counters struct {
	Stories  int `json:"stories"`
	LaidOff  int `json:"laidOff"`
	FoundJob int `json:"foundJob"`
}

// publishedStories loads the published set, optionally narrowed by country.
func (s *StatsService) publishedStories(ctx context.Context, country string) ([]models.Story, error) {
	filter := store.StoryFilter{Status: models.StoryStatusPublished}
	if country != "" && country != "global" {
		filter.Country = models.NormalizeCountry(country, "")
	}
	stories, err := s.store.ListStories(ctx, filter)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return stories, nil
}

// GetCounters computes the headline counters for a country.
func (s *StatsService) GetCounters(ctx context.Context, country string) (*Counters, error) {
	stories, err := s.publishedStories(ctx, country)
	if err != nil {
		return nil, err
	}
	counters := countersFor(stories)
	return &counters, nil
}

func countersFor(stories []models.Story) Counters {
	c := Counters{Stories: len(stories)}
	for _, story := range stories {
		c.LaidOff += story.EstimatedLayoffs
		if story.FoundNewJob {
			c.FoundJob++
		}
	}
	return c
}

// Stats is the public statistics payload.
type Stats struct {
	Country      string         `json:"country"`
	Counters     Counters       `json:"counters"`
	ByProfession map[string]int `json:"byProfession"`
	ByAITool     map[string]int `json:"byAiTool"`
	ByLayoffType map[string]int `json:"byLayoffType"`
	MonthlyTrend []MonthCount   `json:"monthlyTrend"`
}

// MonthCount is one month of the trend line.
type MonthCount struct {
	Month   string `json:"month"`
	Stories int    `json:"stories"`
	LaidOff int    `json:"laidOff"`
}

// GetStats computes the public statistics for a country.
func (s *StatsService) GetStats(ctx context.Context, country string) (*Stats, error) {
	stories, err := s.publishedStories(ctx, country)
	if err != nil {
		return nil, err
	}
	stats := &Stats{
		Country:      countryOrGlobal(country),
		Counters:     countersFor(stories),
		ByProfession: map[string]int{},
		ByAITool:     map[string]int{},
		ByLayoffType: map[string]int{},
		MonthlyTrend: monthlyTrend(stories),
	}
	for _, story := range stories {
		stats.ByProfession[story.Profession]++
		if story.Details.AITool != "" {
			stats.ByAITool[story.Details.AITool]++
		}
		if story.Details.LayoffType != "" {
			stats.ByLayoffType[story.Details.LayoffType]++
		}
	}
	return stats, nil
}

// Dashboard extends the public stats with risk distribution and averaged
// structured details.
type Dashboard struct {
	Country            string         `json:"country"`
	Counters           Counters       `json:"counters"`
	RiskBands          map[string]int `json:"riskBands"`
	AvgMoodScore       float64        `json:"avgMoodScore"`
	AvgMonthsSearching float64        `json:"avgMonthsSearching"`
	AvgSalaryChangePct float64        `json:"avgSalaryChangePct"`
	TopProfessions     []KeyCount     `json:"topProfessions"`
	MonthlyTrend       []MonthCount   `json:"monthlyTrend"`
}

// KeyCount is a ranked group.
type KeyCount struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// GetDashboard computes the dashboard for a country.
func (s *StatsService) GetDashboard(ctx context.Context, country string) (*Dashboard, error) {
	stories, err := s.publishedStories(ctx, country)
	if err != nil {
		return nil, err
	}
	dashboard := &Dashboard{
		Country:      countryOrGlobal(country),
		Counters:     countersFor(stories),
		RiskBands:    map[string]int{models.RiskBandLow: 0, models.RiskBandMedium: 0, models.RiskBandHigh: 0},
		MonthlyTrend: monthlyTrend(stories),
	}
	professions := map[string]int{}
	var moodSum, moodN, searchSum, searchN int
	var salarySum float64
	var salaryN int
	for _, story := range stories {
		dashboard.RiskBands[story.Moderation.RiskBand]++
		professions[story.Profession]++
		if story.Details.MoodScore > 0 {
			moodSum += story.Details.MoodScore
			moodN++
		}
		if story.Details.MonthsSearching > 0 {
			searchSum += story.Details.MonthsSearching
			searchN++
		}
		if story.Details.SalaryBefore > 0 && story.Details.SalaryAfter > 0 {
			salarySum += (story.Details.SalaryAfter - story.Details.SalaryBefore) / story.Details.SalaryBefore * 100
			salaryN++
		}
	}
	if moodN > 0 {
		dashboard.AvgMoodScore = float64(moodSum) / float64(moodN)
	}
	if searchN > 0 {
		dashboard.AvgMonthsSearching = float64(searchSum) / float64(searchN)
	}
	if salaryN > 0 {
		dashboard.AvgSalaryChangePct = salarySum / float64(salaryN)
	}
	dashboard.TopProfessions = rankTop(professions, 10)
	return dashboard, nil
}

// ResearchRow is one anonymized aggregate group for researchers.
type ResearchRow struct {
	Profession      string  `json:"profession"`
	Stories         int     `json:"stories"`
	AvgTenureYears  float64 `json:"avgTenureYears"`
	FoundJobRate    float64 `json:"foundJobRate"`
	AvgSalaryBefore float64 `json:"avgSalaryBefore"`
	AvgSalaryAfter  float64 `json:"avgSalaryAfter"`
}

// GetResearchAggregate groups published stories by profession. Groups with
// fewer than three stories are suppressed so rows stay non-identifying.
func (s *StatsService) GetResearchAggregate(ctx context.Context, country string) ([]ResearchRow, error) {
	stories, err := s.publishedStories(ctx, country)
	if err != nil {
		return nil, err
	}
	type acc struct {
		n            int
		found        int
		tenure       float64
		tenureN      int
		salaryBefore float64
		salaryAfter  float64
		salaryN      int
	}
	groups := map[string]*acc{}
	for _, story := range stories {
		g := groups[story.Profession]
		if g == nil {
			g = &acc{}
			groups[story.Profession] = g
		}
		g.n++
		if story.FoundNewJob {
			g.found++
		}
		if story.Details.TenureYears > 0 {
			g.tenure += story.Details.TenureYears
			g.tenureN++
		}
		if story.Details.SalaryBefore > 0 {
			g.salaryBefore += story.Details.SalaryBefore
			g.salaryAfter += story.Details.SalaryAfter
			g.salaryN++
		}
	}
	rows := make([]ResearchRow, 0, len(groups))
	for profession, g := range groups {
		if g.n < 3 {
			continue
		}
		row := ResearchRow{
			Profession:   profession,
			Stories:      g.n,
			FoundJobRate: float64(g.found) / float64(g.n),
		}
		if g.tenureN > 0 {
			row.AvgTenureYears = g.tenure / float64(g.tenureN)
		}
		if g.salaryN > 0 {
			row.AvgSalaryBefore = g.salaryBefore / float64(g.salaryN)
			row.AvgSalaryAfter = g.salaryAfter / float64(g.salaryN)
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Stories != rows[j].Stories {
			return rows[i].Stories > rows[j].Stories
		}
		return rows[i].Profession < rows[j].Profession
	})
	return rows, nil
}

// CompanySummary is one company's aggregate.
type CompanySummary struct {
	Slug             string `json:"slug"`
	Name             string `json:"name"`
	Stories          int    `json:"stories"`
	EstimatedLayoffs int    `json:"estimatedLayoffs"`
}

var slugNonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// CompanySlug derives a URL-safe identifier from a company name.
func CompanySlug(name string) string {
	slug := slugNonAlnum.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
	return strings.Trim(slug, "-")
}

// GetTopCompanies ranks companies by estimated layoffs. Undisclosed
// companies are excluded.
func (s *StatsService) GetTopCompanies(ctx context.Context, limit int) ([]CompanySummary, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	stories, err := s.publishedStories(ctx, "")
	if err != nil {
		return nil, err
	}
	bySlug := map[string]*CompanySummary{}
	for _, story := range stories {
		slug := CompanySlug(story.Company)
		if slug == "" || slug == "undisclosed" {
			continue
		}
		summary := bySlug[slug]
		if summary == nil {
			summary = &CompanySummary{Slug: slug, Name: story.Company}
			bySlug[slug] = summary
		}
		summary.Stories++
		summary.EstimatedLayoffs += story.EstimatedLayoffs
	}
	ranked := make([]CompanySummary, 0, len(bySlug))
	for _, summary := range bySlug {
		ranked = append(ranked, *summary)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].EstimatedLayoffs != ranked[j].EstimatedLayoffs {
			return ranked[i].EstimatedLayoffs > ranked[j].EstimatedLayoffs
		}
		return ranked[i].Slug < ranked[j].Slug
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// CompanyProfile is the detail view for one company.
type CompanyProfile struct {
	CompanySummary
	FoundJob      int            `json:"foundJob"`
	ByProfession  map[string]int `json:"byProfession"`
	ByAITool      map[string]int `json:"byAiTool"`
	RecentStories []StoryView    `json:"recentStories"`
}

// GetCompanyProfile aggregates the published stories naming one company.
func (s *StatsService) GetCompanyProfile(ctx context.Context, slug string) (*CompanyProfile, error) {
	matched, err := s.companyStories(ctx, slug)
	if err != nil {
		return nil, err
	}
	if len(matched) == 0 {
		return nil, models.NewNotFoundError("Company", slug)
	}
	profile := &CompanyProfile{
		CompanySummary: CompanySummary{Slug: slug, Name: matched[0].Company},
		ByProfession:   map[string]int{},
		ByAITool:       map[string]int{},
	}
	for _, story := range matched {
		profile.Stories++
		profile.EstimatedLayoffs += story.EstimatedLayoffs
		if story.FoundNewJob {
			profile.FoundJob++
		}
		profile.ByProfession[story.Profession]++
		if story.Details.AITool != "" {
			profile.ByAITool[story.Details.AITool]++
		}
	}
	recent := matched
	if len(recent) > 5 {
		recent = recent[:5]
	}
	for _, story := range recent {
		profile.RecentStories = append(profile.RecentStories, MaskStory(story))
	}
	return profile, nil
}

// GetCompanyTimeline groups one company's stories by month.
func (s *StatsService) GetCompanyTimeline(ctx context.Context, slug string) ([]MonthCount, error) {
	matched, err := s.companyStories(ctx, slug)
	if err != nil {
		return nil, err
	}
	if len(matched) == 0 {
		return nil, models.NewNotFoundError("Company", slug)
	}
	return monthlyTrend(matched), nil
}

func (s *StatsService) companyStories(ctx context.Context, slug string) ([]models.Story, error) {
	stories, err := s.publishedStories(ctx, "")
	if err != nil {
		return nil, err
	}
	matched := make([]models.Story, 0)
	for _, story := range stories {
		if CompanySlug(story.Company) == slug {
			matched = append(matched, story)
		}
	}
	return matched, nil
}

// TransparencyReport sums audited actions for a period.
type TransparencyReport struct {
	Period       string         `json:"period"`
	Totals       map[string]int `json:"totals"`
	Sanctions    int            `json:"sanctions"`
	EventsPublic int            `json:"eventsPublic"`
}

var quarterRe = regexp.MustCompile(`^(\d{4})-Q([1-4])$`)
var yearRe = regexp.MustCompile(`^\d{4}$`)

// GetTransparencyReport sums audit actions for a period given as "YYYY",
// "YYYY-Q[1-4]" or empty for all time.
func (s *StatsService) GetTransparencyReport(ctx context.Context, period string) (*TransparencyReport, error) {
	var since, until time.Time
	switch {
	case period == "":
	case yearRe.MatchString(period):
		var year int
		fmt.Sscanf(period, "%d", &year)
		since = time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
		until = since.AddDate(1, 0, 0)
	case quarterRe.MatchString(period):
		m := quarterRe.FindStringSubmatch(period)
		var year, quarter int
		fmt.Sscanf(m[1], "%d", &year)
		fmt.Sscanf(m[2], "%d", &quarter)
		since = time.Date(year, time.Month((quarter-1)*3+1), 1, 0, 0, 0, 0, time.UTC)
		until = since.AddDate(0, 3, 0)
	default:
		return nil, models.NewValidationError("Period must be YYYY or YYYY-Q1..Q4")
	}

	entries, err := s.store.ListAudit(ctx, store.AuditFilter{Since: since, Until: until})
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	report := &TransparencyReport{
		Period: periodOrAllTime(period),
		Totals: map[string]int{},
	}
	for _, entry := range entries {
		report.Totals[entry.Action]++
		if entry.Action == ActionSanctionCreate {
			report.Sanctions++
		}
	}
	events, err := s.store.ListTransparencyEvents(ctx)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, event := range events {
		if !since.IsZero() && event.CreatedAt.Before(since) {
			continue
		}
		if !until.IsZero() && !event.CreatedAt.Before(until) {
			continue
		}
		report.EventsPublic++
	}
	return report, nil
}

var monthPrefixRe = regexp.MustCompile(`^\d{4}-\d{2}`)

func monthlyTrend(stories []models.Story) []MonthCount {
	byMonth := map[string]*MonthCount{}
	for _, story := range stories {
		month := monthPrefixRe.FindString(story.LaidOffAt)
		if month == "" {
			month = story.CreatedAt.UTC().Format("2006-01")
		}
		entry := byMonth[month]
		if entry == nil {
			entry = &MonthCount{Month: month}
			byMonth[month] = entry
		}
		entry.Stories++
		entry.LaidOff += story.EstimatedLayoffs
	}
	trend := make([]MonthCount, 0, len(byMonth))
	for _, entry := range byMonth {
		trend = append(trend, *entry)
	}
	sort.SliceStable(trend, func(i, j int) bool { return trend[i].Month < trend[j].Month })
	return trend
}

func rankTop(counts map[string]int, limit int) []KeyCount {
	ranked := make([]KeyCount, 0, len(counts))
	for key, count := range counts {
		ranked = append(ranked, KeyCount{Key: key, Count: count})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Key < ranked[j].Key
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func countryOrGlobal(country string) string {
	if country == "" {
		return "global"
	}
	return country
}

func periodOrAllTime(period string) string {
	if period == "" {
		return "all-time"
	}
	return period
}
