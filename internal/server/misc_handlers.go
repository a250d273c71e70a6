package server

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"aitookmyjob/internal/models"
	"aitookmyjob/internal/moderation"
	"aitookmyjob/internal/notify"
	"aitookmyjob/internal/validation"
)

// GetMeta returns the static catalogs clients need to render forms.
func (s *Server) GetMeta(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"countries":       models.Countries,
		"languages":       models.Languages,
		"roles":           models.Roles,
		"forumCategories": models.ForumCategories,
		"crisisResources": models.CrisisResources,
	})
}

// GetLocale reports the country and language resolved for this request.
func (s *Server) GetLocale(c *fiber.Ctx) error {
	country, language := s.detectLocale(c)
	return c.JSON(fiber.Map{"country": country, "language": language})
}

// RedactionAssistant scores text without persisting anything, so authors
// can check their draft before submitting.
func (s *Server) RedactionAssistant(c *fiber.Ctx) error {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respondErr(c, models.NewValidationError("Invalid request body"))
	}
	text := validation.SanitizeText(req.Text)
	if text == "" {
		return respondErr(c, models.NewFieldValidationError([]models.FieldError{
			{Field: "text", Message: "Text is required"},
		}))
	}
	result := moderation.Score(moderation.Input{Body: text})
	return c.JSON(result)
}

// SubmitTakedown records a takedown request as a transparency event.
// Requests are reviewed out of band; nothing is deleted here.
func (s *Server) SubmitTakedown(c *fiber.Ctx) error {
	var req struct {
		StoryID string `json:"storyId"`
		Contact string `json:"contact"`
		Reason  string `json:"reason"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respondErr(c, models.NewValidationError("Invalid request body"))
	}
	var fields []models.FieldError
	req.Contact = validation.SanitizeText(req.Contact)
	req.Reason = validation.SanitizeText(req.Reason)
	if l := len([]rune(req.Contact)); l < 3 || l > 200 {
		fields = append(fields, models.FieldError{Field: "contact", Message: "Must be between 3 and 200 characters"})
	}
	if l := len([]rune(req.Reason)); l < 10 || l > 2000 {
		fields = append(fields, models.FieldError{Field: "reason", Message: "Must be between 10 and 2000 characters"})
	}
	if len(fields) > 0 {
		return respondErr(c, models.NewFieldValidationError(fields))
	}
	s.auditor.Transparency(c.UserContext(), "takedown", "received", map[string]any{
		"storyId": req.StoryID,
		"reason":  req.Reason,
	})
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"ok": true, "status": "received"})
}

// GetMethodology describes how the public aggregates are computed.
func (s *Server) GetMethodology(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"dataSource":       "self-reported layoff stories, published after moderation review",
		"masking":          "names, companies and dates are projected through per-story privacy settings before display",
		"confidence":       "evidence tier base score adjusted by moderation risk and community engagement",
		"smallGroups":      "research aggregates suppress professions with fewer than 3 stories",
		"moderation":       "heuristic risk scoring (toxicity, spam, pii, deanonymization, crisis) with human review of the pending queue",
		"transparencyData": "moderation decisions, sanctions and takedown requests are counted in periodic transparency reports",
	})
}

// TelegramWebhook receives bot updates. A "/link CODE" message completes
// an account link; everything else is acknowledged and dropped.
func (s *Server) TelegramWebhook(c *fiber.Ctx) error {
	if secret := s.config.TelegramWebhookSecret; secret != "" {
		if c.Get("X-Telegram-Bot-Api-Secret-Token") != secret {
			return respondErr(c, models.NewUnauthorizedError("Invalid webhook secret"))
		}
	}
	var update notify.WebhookUpdate
	if err := c.BodyParser(&update); err != nil {
		return respondErr(c, models.NewValidationError("Invalid request body"))
	}
	if update.Message == nil || update.Message.From == nil {
		return c.JSON(fiber.Map{"ok": true})
	}

	text := update.Message.Text
	const linkCmd = "/link "
	if len(text) <= len(linkCmd) || text[:len(linkCmd)] != linkCmd {
		return c.JSON(fiber.Map{"ok": true})
	}
	code := validation.SanitizeText(text[len(linkCmd):])

	var username *string
	if update.Message.From.Username != "" {
		u := update.Message.From.Username
		username = &u
	}
	telegramUserID := strconv.FormatInt(update.Message.From.ID, 10)
	if err := s.authService.CompleteTelegramLink(c.UserContext(), code, telegramUserID, username); err != nil {
		// Telegram retries non-200 responses, so report failures in the
		// body instead of the status.
		s.logger.Warn("telegram link failed", "error", err)
		return c.JSON(fiber.Map{"ok": false})
	}
	return c.JSON(fiber.Map{"ok": true})
}
