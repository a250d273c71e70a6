package models

import "strings"

// Country is a supported country with its display name and region grouping.
type Country struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Region string `json:"region"`
}

// ForumCategory is a fixed discussion category.
type ForumCategory struct {
	ID  string `json:"id"`
	Key string `json:"key"`
}

// Languages lists the supported content languages.
var Languages = []string{"en", "ru", "de", "fr", "es"}

// Countries lists the supported countries. "global" aggregates everything.
var Countries = []Country{
	{Code: "global", Name: "Global", Region: "Global"},
	{Code: "us", Name: "United States", Region: "North America"},
	{Code: "de", Name: "Germany", Region: "Europe"},
	{Code: "fr", Name: "France", Region: "Europe"},
	{Code: "es", Name: "Spain", Region: "Europe"},
	{Code: "ru", Name: "Russia", Region: "Europe/Asia"},
	{Code: "gb", Name: "United Kingdom", Region: "Europe"},
	{Code: "ca", Name: "Canada", Region: "North America"},
	{Code: "mx", Name: "Mexico", Region: "North America"},
	{Code: "br", Name: "Brazil", Region: "South America"},
	{Code: "ar", Name: "Argentina", Region: "South America"},
	{Code: "in", Name: "India", Region: "Asia"},
	{Code: "jp", Name: "Japan", Region: "Asia"},
	{Code: "kr", Name: "South Korea", Region: "Asia"},
	{Code: "au", Name: "Australia", Region: "Oceania"},
	{Code: "za", Name: "South Africa", Region: "Africa"},
	{Code: "ae", Name: "United Arab Emirates", Region: "Middle East"},
	{Code: "it", Name: "Italy", Region: "Europe"},
	{Code: "nl", Name: "Netherlands", Region: "Europe"},
	{Code: "se", Name: "Sweden", Region: "Europe"},
}

// Roles enumerates account roles ordered roughly by privilege.
var Roles = []string{
	"guest",
	"user",
	"verified_user",
	"expert",
	"community_lead",
	"journalist",
	"moderator",
	"admin",
	"superadmin",
	"data_analyst",
}

// ForumCategories lists the fixed forum categories.
var ForumCategories = []ForumCategory{
	{ID: "cop", Key: "copywriters"},
	{ID: "dev", Key: "developers-qa"},
	{ID: "des", Key: "designers-artists"},
	{ID: "hr", Key: "hr-recruiting"},
	{ID: "sup", Key: "support-call-centers"},
	{ID: "law", Key: "legal-rights"},
	{ID: "up", Key: "reskilling-job-search"},
	{ID: "reg", Key: "regional-groups"},
	{ID: "succ", Key: "success-stories"},
}

// CrisisResource is a support hotline shown next to story listings.
type CrisisResource struct {
	Name     string `json:"name"`
	Contact  string `json:"contact"`
	Language string `json:"language"`
}

// CrisisResources are attached to every public story listing.
var CrisisResources = []CrisisResource{
	{Name: "988 Suicide & Crisis Lifeline", Contact: "988", Language: "en"},
	{Name: "Samaritans", Contact: "116 123", Language: "en"},
	{Name: "Telefonseelsorge", Contact: "0800 111 0 111", Language: "de"},
	{Name: "SOS Amitié", Contact: "09 72 39 40 50", Language: "fr"},
	{Name: "Teléfono de la Esperanza", Contact: "717 003 717", Language: "es"},
	{Name: "Телефон доверия", Contact: "8-800-2000-122", Language: "ru"},
}

// NormalizeCountry lowercases the input and clamps it to a known country
// code, falling back to the given default when unrecognized.
func NormalizeCountry(input, fallback string) string {
	normalized := strings.ToLower(strings.TrimSpace(input))
	for _, c := range Countries {
		if c.Code == normalized {
			return normalized
		}
	}
	return fallback
}

// NormalizeLanguage lowercases the input and clamps it to a supported
// language, falling back to the given default when unrecognized.
func NormalizeLanguage(input, fallback string) string {
	normalized := strings.ToLower(strings.TrimSpace(input))
	for _, l := range Languages {
		if l == normalized {
			return normalized
		}
	}
	return fallback
}

// CountryName resolves a country code to its display name.
func CountryName(code string) string {
	for _, c := range Countries {
		if c.Code == code {
			return c.Name
		}
	}
	return code
}

// KnownForumCategory reports whether the category id exists.
func KnownForumCategory(id string) bool {
	for _, c := range ForumCategories {
		if c.ID == id {
			return true
		}
	}
	return false
}

// IsModeratorRole reports whether the role can act on the moderation queue.
func IsModeratorRole(role string) bool {
	switch role {
	case "moderator", "admin", "superadmin":
		return true
	}
	return false
}
