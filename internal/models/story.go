// Package models contains data structures for the application's domain models.
package models

import "time"

// Story statuses.
const (
	StoryStatusPending   = "pending"
	StoryStatusPublished = "published"
	StoryStatusRejected  = "rejected"
)

// Risk bands summarizing moderation scores.
const (
	RiskBandLow    = "low"
	RiskBandMedium = "medium"
	RiskBandHigh   = "high"
)

// Evidence tiers, used only to weight the read-time confidence score.
const (
	EvidenceSelfReport  = "self_report"
	EvidenceDocVerified = "doc_verified"
	EvidenceMultiSource = "multi_source"
)

// Privacy display modes per field.
const (
	NameDisplayAlias     = "alias"
	NameDisplayInitials  = "initials"
	NameDisplayFirstName = "first_name"
	NameDisplayAnonymous = "anonymous"

	CompanyDisplayExact        = "exact"
	CompanyDisplayIndustryOnly = "industry_only"
	CompanyDisplayMasked       = "masked"

	GeoDisplayCity    = "city"
	GeoDisplayRegion  = "region"
	GeoDisplayCountry = "country"
	GeoDisplayHidden  = "hidden"

	DateDisplayExact  = "exact"
	DateDisplayMonth  = "month"
	DateDisplayYear   = "year"
	DateDisplayHidden = "hidden"
)

// Privacy controls how much of a story's identifying detail is shown publicly.
// Masking is a view-time projection; the stored record is never mutated by it.
type Privacy struct {
	NameDisplay    string `json:"nameDisplay,omitempty"`
	CompanyDisplay string `json:"companyDisplay,omitempty"`
	GeoDisplay     string `json:"geoDisplay,omitempty"`
	DateDisplay    string `json:"dateDisplay,omitempty"`
}

// Moderation is the risk profile computed for submitted text.
type Moderation struct {
	Toxicity        float64  `json:"toxicity"`
	Spam            float64  `json:"spam"`
	PII             float64  `json:"pii"`
	Deanonymization float64  `json:"deanonymization"`
	Crisis          float64  `json:"crisis"`
	RiskBand        string   `json:"riskBand"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// MaxScore returns the highest individual risk score.
func (m Moderation) MaxScore() float64 {
	max := m.Toxicity
	for _, v := range []float64{m.Spam, m.PII, m.Deanonymization, m.Crisis} {
		if v > max {
			max = v
		}
	}
	return max
}

// StoryDetails holds the optional structured fields of a submission.
type StoryDetails struct {
	City               string  `json:"city,omitempty"`
	TenureYears        float64 `json:"tenureYears,omitempty"`
	SalaryBefore       float64 `json:"salaryBefore,omitempty"`
	SalaryAfter        float64 `json:"salaryAfter,omitempty"`
	LayoffType         string  `json:"layoffType,omitempty"`
	AITool             string  `json:"aiTool,omitempty"`
	WarnedAhead        bool    `json:"warnedAhead,omitempty"`
	CompensationMonths int     `json:"compensationMonths,omitempty"`
	MonthsSearching    int     `json:"monthsSearching,omitempty"`
	NewField           string  `json:"newField,omitempty"`
	MoodScore          int     `json:"moodScore,omitempty"`
	EvidenceTier       string  `json:"evidenceTier,omitempty"`
}

// StoryMetrics are engagement counters, all starting at zero.
type StoryMetrics struct {
	Views         int `json:"views"`
	MeToo         int `json:"meToo"`
	CommentsCount int `json:"commentsCount"`
}

// Story is a layoff account submitted by a user or anonymously.
type Story struct {
	ID               string       `gorm:"primaryKey" json:"id"`
	Name             string       `gorm:"not null" json:"name"`
	Country          string       `gorm:"not null;index:idx_stories_status_country" json:"country"`
	Language         string       `gorm:"not null" json:"language"`
	Profession       string       `gorm:"not null" json:"profession"`
	Company          string       `gorm:"not null" json:"company"`
	LaidOffAt        string       `gorm:"not null" json:"laidOffAt"`
	FoundNewJob      bool         `gorm:"not null;default:false" json:"foundNewJob"`
	Reason           string       `gorm:"not null" json:"reason"`
	Body             string       `gorm:"not null" json:"story"`
	Status           string       `gorm:"not null;default:'pending';index:idx_stories_status_country" json:"status"`
	EstimatedLayoffs int          `gorm:"not null;default:1" json:"estimatedLayoffs"`
	Privacy          Privacy      `gorm:"serializer:json" json:"privacy"`
	Moderation       Moderation   `gorm:"serializer:json" json:"moderation"`
	Details          StoryDetails `gorm:"serializer:json" json:"details"`
	Metrics          StoryMetrics `gorm:"serializer:json" json:"metrics"`
	ModerationReason string       `json:"moderationReason,omitempty"`
	UpdateLabel      string       `json:"updateLabel,omitempty"`
	SubmittedBy      *string      `gorm:"index" json:"submittedBy"`
	CreatedAt        time.Time    `json:"createdAt"`
}

// StoryVersion is an append-only snapshot of a story submission or decision.
type StoryVersion struct {
	ID        string         `gorm:"primaryKey" json:"id"`
	StoryID   string         `gorm:"not null;index" json:"storyId"`
	VersionNo int            `gorm:"not null" json:"versionNo"`
	Payload   map[string]any `gorm:"serializer:json" json:"payload"`
	CreatedBy *string        `json:"createdBy"`
	CreatedAt time.Time      `json:"createdAt"`
}
