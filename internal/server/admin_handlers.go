package server

import (
	"github.com/gofiber/fiber/v2"

	"aitookmyjob/internal/middleware"
	"aitookmyjob/internal/models"
	"aitookmyjob/internal/service"
)

// AdminOverview returns the moderation dashboard summary.
func (s *Server) AdminOverview(c *fiber.Ctx) error {
	overview, err := s.adminService.GetOverview(c.UserContext())
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(overview)
}

// AdminListUsers lists all accounts with their sanction state.
func (s *Server) AdminListUsers(c *fiber.Ctx) error {
	users, err := s.adminService.ListUsers(c.UserContext())
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{"users": users, "total": len(users)})
}

// ModerationQueue returns pending stories and topics, oldest first.
func (s *Server) ModerationQueue(c *fiber.Ctx) error {
	queue, err := s.adminService.ModerationQueue(c.UserContext())
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{"queue": queue, "total": len(queue)})
}

// ModerationAction applies an approve/reject decision to a queue entry.
func (s *Server) ModerationAction(c *fiber.Ctx) error {
	if err := s.requirePolicy(c, ActModerate); err != nil {
		return respondErr(c, err)
	}
	var req service.DecisionInput
	if err := c.BodyParser(&req); err != nil {
		return respondErr(c, models.NewValidationError("Invalid request body"))
	}
	actor := localActor(c)
	if actor == nil {
		return respondErr(c, models.NewUnauthorizedError("Authentication required"))
	}
	if err := s.adminService.Decide(c.UserContext(), c.Params("id"), req, *actor, c.IP()); err != nil {
		return respondErr(c, err)
	}
	middleware.ModerationActions.WithLabelValues(req.Action).Inc()
	return c.JSON(fiber.Map{"ok": true})
}

// ListSanctions lists sanctions, optionally for one target user.
func (s *Server) ListSanctions(c *fiber.Ctx) error {
	sanctions, err := s.adminService.ListSanctions(c.UserContext(), c.Query("targetUserId"))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{"sanctions": sanctions, "total": len(sanctions)})
}

// CreateSanction applies a sanction. Restricted to admin roles, not the
// broader moderator set.
func (s *Server) CreateSanction(c *fiber.Ctx) error {
	if err := s.requirePolicy(c, ActSanction); err != nil {
		return respondErr(c, err)
	}
	var req service.SanctionInput
	if err := c.BodyParser(&req); err != nil {
		return respondErr(c, models.NewValidationError("Invalid request body"))
	}
	actor := localActor(c)
	if actor == nil {
		return respondErr(c, models.NewUnauthorizedError("Authentication required"))
	}
	sanction, err := s.adminService.ApplySanction(c.UserContext(), req, *actor, c.IP())
	if err != nil {
		return respondErr(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(sanction)
}

// Anomalies reports audit-log activity spikes.
func (s *Server) Anomalies(c *fiber.Ctx) error {
	signals, err := s.adminService.Anomalies(c.UserContext())
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{"anomalies": signals, "total": len(signals)})
}
