// Package service contains the business logic between the HTTP handlers and
// the store: story lifecycle, auth, forum, administration and read-time
// aggregation.
package service

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"aitookmyjob/internal/models"
)

// Coarse visibility levels accepted on submission. They map to the finer
// internal display modes; the mapping is lossy on purpose.
const (
	VisibilityPublic = "public"
	VisibilityCoarse = "coarse"
	VisibilityHidden = "hidden"
)

// Visibility is the per-field selection a submitter makes.
type Visibility struct {
	Name    string `json:"name"`
	Company string `json:"company"`
	Geo     string `json:"geo"`
	Date    string `json:"date"`
}

// PrivacyFromVisibility translates the coarse selection into display modes.
// Unknown or empty levels fall back to the most protective mode for name
// and company and to coarse modes for geo and date.
func PrivacyFromVisibility(v Visibility) models.Privacy {
	p := models.Privacy{
		NameDisplay:    models.NameDisplayAnonymous,
		CompanyDisplay: models.CompanyDisplayMasked,
		GeoDisplay:     models.GeoDisplayCountry,
		DateDisplay:    models.DateDisplayYear,
	}
	switch v.Name {
	case VisibilityPublic:
		p.NameDisplay = models.NameDisplayAlias
	case VisibilityCoarse:
		p.NameDisplay = models.NameDisplayInitials
	case VisibilityHidden:
		p.NameDisplay = models.NameDisplayAnonymous
	}
	switch v.Company {
	case VisibilityPublic:
		p.CompanyDisplay = models.CompanyDisplayExact
	case VisibilityCoarse:
		p.CompanyDisplay = models.CompanyDisplayIndustryOnly
	case VisibilityHidden:
		p.CompanyDisplay = models.CompanyDisplayMasked
	}
	switch v.Geo {
	case VisibilityPublic:
		p.GeoDisplay = models.GeoDisplayCity
	case VisibilityCoarse:
		p.GeoDisplay = models.GeoDisplayCountry
	case VisibilityHidden:
		p.GeoDisplay = models.GeoDisplayHidden
	}
	switch v.Date {
	case VisibilityPublic:
		p.DateDisplay = models.DateDisplayExact
	case VisibilityCoarse:
		p.DateDisplay = models.DateDisplayYear
	case VisibilityHidden:
		p.DateDisplay = models.DateDisplayHidden
	}
	return p
}

// StoryView is the public projection of a story: masked fields plus the
// read-time confidence score. The stored record is never mutated.
type StoryView struct {
	models.Story
	ConfidenceScore float64 `json:"confidenceScore"`
}

// MaskStory applies the story's privacy settings and computes confidence.
func MaskStory(story models.Story) StoryView {
	masked := story
	masked.Name = maskName(story.Name, story.Privacy.NameDisplay)
	masked.Company = maskCompany(story.Company, story.Privacy.CompanyDisplay)
	masked.LaidOffAt = maskDate(story.LaidOffAt, story.Privacy.DateDisplay)
	switch story.Privacy.GeoDisplay {
	case models.GeoDisplayCity:
		// city stays visible
	default:
		masked.Details.City = ""
	}
	masked.ModerationReason = ""
	masked.SubmittedBy = nil
	return StoryView{Story: masked, ConfidenceScore: Confidence(story)}
}

func maskName(name, mode string) string {
	name = strings.TrimSpace(name)
	words := strings.Fields(name)
	switch mode {
	case models.NameDisplayAnonymous:
		return "Anonymous"
	case models.NameDisplayInitials:
		var initials []string
		for _, w := range words {
			initials = append(initials, initialOf(w))
		}
		if len(initials) == 0 {
			return "Anonymous"
		}
		return strings.Join(initials, " ")
	case models.NameDisplayFirstName:
		if len(words) == 0 {
			return "Anonymous"
		}
		return words[0]
	case models.NameDisplayAlias:
		if len(words) == 0 {
			return "Anonymous"
		}
		if len(words) == 1 {
			return words[0]
		}
		return words[0] + " " + initialOf(words[len(words)-1])
	default:
		return "Anonymous"
	}
}

// initialOf abbreviates a word to its first rune, so multibyte names
// (Cyrillic in particular) keep a valid initial.
func initialOf(word string) string {
	r, _ := utf8.DecodeRuneInString(word)
	return string(unicode.ToUpper(r)) + "."
}

func maskCompany(company, mode string) string {
	switch mode {
	case models.CompanyDisplayExact:
		return company
	case models.CompanyDisplayIndustryOnly:
		return "Technology company"
	default:
		return "Undisclosed company"
	}
}

func maskDate(date, mode string) string {
	switch mode {
	case models.DateDisplayExact:
		return date
	case models.DateDisplayMonth:
		if len(date) >= 7 {
			return date[:7]
		}
		return date
	case models.DateDisplayYear:
		if len(date) >= 4 {
			return date[:4]
		}
		return date
	case models.DateDisplayHidden:
		return "Hidden"
	default:
		return date
	}
}

// Confidence derives the read-time confidence score from evidence tier,
// moderation risk and engagement. Never stored.
func Confidence(story models.Story) float64 {
	base := 0.2
	switch story.Details.EvidenceTier {
	case models.EvidenceDocVerified:
		base = 0.32
	case models.EvidenceMultiSource:
		base = 0.45
	}
	engagement := 0.001*float64(story.Metrics.Views) + 0.01*float64(story.Metrics.MeToo)
	if engagement > 0.15 {
		engagement = 0.15
	}
	score := base - 0.3*story.Moderation.MaxScore() + engagement
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
