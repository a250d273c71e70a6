package server

import (
	"github.com/gofiber/fiber/v2"

	"aitookmyjob/internal/models"
	"aitookmyjob/internal/service"
)

// GetForumCategories returns the fixed category catalog.
func (s *Server) GetForumCategories(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"categories": s.forumService.Categories()})
}

// ListForumTopics returns published topics, optionally for one category.
func (s *Server) ListForumTopics(c *fiber.Ctx) error {
	topics, err := s.forumService.ListTopics(c.UserContext(), c.Query("category"))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{"topics": topics, "total": len(topics)})
}

// CreateForumTopic creates a topic for the authenticated user.
func (s *Server) CreateForumTopic(c *fiber.Ctx) error {
	var req service.CreateTopicInput
	if err := c.BodyParser(&req); err != nil {
		return respondErr(c, models.NewValidationError("Invalid request body"))
	}
	topic, err := s.forumService.CreateTopic(c.UserContext(), req, localActor(c), c.IP())
	if err != nil {
		return respondErr(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(topic)
}

// GetForumTopic returns one topic with its replies.
func (s *Server) GetForumTopic(c *fiber.Ctx) error {
	detail, err := s.forumService.GetTopic(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(detail)
}

// ListForumReplies returns a topic's replies, oldest first.
func (s *Server) ListForumReplies(c *fiber.Ctx) error {
	detail, err := s.forumService.GetTopic(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{"replies": detail.Replies, "total": len(detail.Replies)})
}

// CreateForumReply adds a reply to a published topic.
func (s *Server) CreateForumReply(c *fiber.Ctx) error {
	var req service.CreateReplyInput
	if err := c.BodyParser(&req); err != nil {
		return respondErr(c, models.NewValidationError("Invalid request body"))
	}
	reply, err := s.forumService.CreateReply(c.UserContext(), c.Params("id"), req, localActor(c), c.IP())
	if err != nil {
		return respondErr(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(reply)
}

// GetCompanyBoard lists the discussion topics for one company slug.
func (s *Server) GetCompanyBoard(c *fiber.Ctx) error {
	topics, err := s.forumService.CompanyBoard(c.UserContext(), c.Params("slug"))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{"slug": c.Params("slug"), "topics": topics, "total": len(topics)})
}

// CreateCompanyBoardTopic creates a topic on a company board.
func (s *Server) CreateCompanyBoardTopic(c *fiber.Ctx) error {
	var req service.CreateTopicInput
	if err := c.BodyParser(&req); err != nil {
		return respondErr(c, models.NewValidationError("Invalid request body"))
	}
	topic, err := s.forumService.CreateCompanyBoardTopic(c.UserContext(), c.Params("slug"), req, localActor(c), c.IP())
	if err != nil {
		return respondErr(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(topic)
}
