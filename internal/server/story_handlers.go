package server

import (
	"github.com/gofiber/fiber/v2"

	"aitookmyjob/internal/middleware"
	"aitookmyjob/internal/models"
	"aitookmyjob/internal/service"
)

// ListStories returns published stories, masked, with crisis resources.
func (s *Server) ListStories(c *fiber.Ctx) error {
	limit, offset := pagination(c, 50, 100)
	listing, err := s.storyService.ListPublic(c.UserContext(), service.ListPublicInput{
		Country:  c.Query("country"),
		Language: c.Query("lang"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(listing)
}

// GetStory returns one published story, masked.
func (s *Server) GetStory(c *fiber.Ctx) error {
	view, err := s.storyService.GetPublic(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(view)
}

// SubmitStory handles the authenticated submission path.
func (s *Server) SubmitStory(c *fiber.Ctx) error {
	return s.submitStory(c, localActor(c))
}

// SubmitAnonymousStory handles the anonymous path. Same validation and
// moderation; the per-IP rate limit is the abuse gate.
func (s *Server) SubmitAnonymousStory(c *fiber.Ctx) error {
	return s.submitStory(c, nil)
}

func (s *Server) submitStory(c *fiber.Ctx, actor *service.Actor) error {
	var req service.SubmitStoryInput
	if err := c.BodyParser(&req); err != nil {
		return respondErr(c, models.NewValidationError("Invalid request body"))
	}
	result, err := s.storyService.Submit(c.UserContext(), req, actor, c.IP())
	if err != nil {
		return respondErr(c, err)
	}
	middleware.StoriesSubmitted.WithLabelValues(result.Story.Moderation.RiskBand).Inc()

	status := fiber.StatusCreated
	if result.AutoRejected {
		// Auto-rejection is a successful submission with a terminal
		// status, not an error.
		status = fiber.StatusAccepted
	}
	return c.Status(status).JSON(fiber.Map{
		"id":              result.Story.ID,
		"status":          result.Story.Status,
		"riskBand":        result.Story.Moderation.RiskBand,
		"recommendations": result.Story.Moderation.Recommendations,
	})
}

// RecordView bumps the view counter.
func (s *Server) RecordView(c *fiber.Ctx) error {
	metrics, err := s.storyService.RecordView(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(metrics)
}

// RecordMeToo bumps the me-too counter.
func (s *Server) RecordMeToo(c *fiber.Ctx) error {
	metrics, err := s.storyService.RecordMeToo(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(metrics)
}

// RecordComment bumps the comment counter.
func (s *Server) RecordComment(c *fiber.Ctx) error {
	metrics, err := s.storyService.RecordComment(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(metrics)
}

// UpdateStory applies a self-service update to a published story.
func (s *Server) UpdateStory(c *fiber.Ctx) error {
	var req service.UpdateStoryInput
	if err := c.BodyParser(&req); err != nil {
		return respondErr(c, models.NewValidationError("Invalid request body"))
	}
	story, err := s.storyService.Update(c.UserContext(), c.Params("id"), req, localActor(c))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{
		"id":          story.ID,
		"foundNewJob": story.FoundNewJob,
		"updateLabel": story.UpdateLabel,
	})
}
