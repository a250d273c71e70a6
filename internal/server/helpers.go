package server

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"aitookmyjob/internal/models"
)

// respondErr maps an application error to its HTTP status and writes the
// standard error body.
func respondErr(c *fiber.Ctx, err error) error {
	return models.RespondWithError(c, models.StatusForError(err), err)
}

// pagination reads limit/offset query params with sane bounds.
func pagination(c *fiber.Ctx, defaultLimit, maxLimit int) (limit, offset int) {
	limit = defaultLimit
	if raw := c.Query("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if raw := c.Query("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			offset = v
		}
	}
	return limit, offset
}

// detectLocale picks country and language for a request: explicit query
// params win, then Accept-Language, then the configured defaults.
func (s *Server) detectLocale(c *fiber.Ctx) (country, language string) {
	country = models.NormalizeCountry(c.Query("country"), s.config.DefaultCountry)
	language = c.Query("lang")
	if language == "" {
		if accepted := c.Get("Accept-Language"); len(accepted) >= 2 {
			language = accepted[:2]
		}
	}
	language = models.NormalizeLanguage(language, s.config.DefaultLang)
	return country, language
}
