// Package moderation scores submitted text for publication risk. Scoring is
// pure and deterministic: the same input always yields the same profile, and
// no I/O happens here.
package moderation

import (
	"regexp"
	"strings"

	"aitookmyjob/internal/models"
)

// Risk band thresholds over the maximum individual score.
const (
	highThreshold   = 0.85
	mediumThreshold = 0.45
)

var toxicTokens = []string{"idiot", "kill", "hate", "stupid", "loser", "trash"}

var spamTokens = []string{"buy now", "promo", "discount", "http://", "https://", "telegram.me/", "affiliate"}

// piiRe matches phone-like and email-like substrings.
var piiRe = regexp.MustCompile(`(?i)(\+?\d[\d\-\s]{7,}\d)|([A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,})`)

// deanonMarkers are structural patterns implying unique identifiability.
var deanonMarkers = []*regexp.Regexp{
	regexp.MustCompile(`(?i)only\s+\d+\s+people`),
	regexp.MustCompile(`(?i)exactly\s+\d+\s+people`),
	regexp.MustCompile(`(?i)\bmy manager\b`),
	regexp.MustCompile(`(?i)\bthe only\b`),
	regexp.MustCompile(`(?i)\bon\s+\d{4}-\d{2}-\d{2}\b`),
}

// crisisPhrases cover self-harm language across the supported languages.
var crisisPhrases = []string{
	// en
	"kill myself", "end my life", "no reason to live", "suicide",
	// ru
	"покончить с собой", "не хочу жить",
	// de
	"mich umbringen", "nicht mehr leben",
	// fr
	"me suicider", "en finir avec la vie",
	// es
	"quitarme la vida", "no quiero vivir",
}

// recommendations shown when deanonymization risk is significant.
var recommendations = []string{
	"Generalize exact dates to month/year.",
	"Avoid unique team size and project details.",
	"Prefer masked company visibility.",
}

// Input carries the free-text fields considered by the scorer.
type Input struct {
	Reason string
	Body   string
}

// Score maps submitted text to a risk profile and band.
func Score(in Input) models.Moderation {
	text := strings.ToLower(in.Reason + " " + in.Body)

	var toxicity float64
	for _, token := range toxicTokens {
		if strings.Contains(text, token) {
			toxicity += 0.2
		}
	}
	toxicity = clamp01(toxicity)

	var spam float64
	for _, token := range spamTokens {
		if strings.Contains(text, token) {
			spam += 0.2
		}
	}
	spam = clamp01(spam)

	var pii float64
	if hits := len(piiRe.FindAllString(text, -1)); hits > 0 {
		pii = clamp01(0.3 + float64(hits)*0.2)
	}

	var deanonMatches int
	for _, re := range deanonMarkers {
		if re.MatchString(text) {
			deanonMatches++
		}
	}
	deanonymization := clamp01(float64(deanonMatches) * 0.25)

	var crisis float64
	for _, phrase := range crisisPhrases {
		if strings.Contains(text, phrase) {
			crisis = 1
			break
		}
	}

	result := models.Moderation{
		Toxicity:        toxicity,
		Spam:            spam,
		PII:             pii,
		Deanonymization: deanonymization,
		Crisis:          crisis,
	}
	result.RiskBand = bandFor(result.MaxScore())
	if deanonymization >= 0.5 {
		result.Recommendations = append([]string(nil), recommendations...)
	}
	return result
}

func bandFor(risk float64) string {
	switch {
	case risk >= highThreshold:
		return models.RiskBandHigh
	case risk >= mediumThreshold:
		return models.RiskBandMedium
	default:
		return models.RiskBandLow
	}
}

func clamp01(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < 0 {
		return 0
	}
	return v
}
