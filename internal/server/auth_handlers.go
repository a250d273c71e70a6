package server

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"aitookmyjob/internal/models"
	"aitookmyjob/internal/service"
)

// Register creates an account and starts a session.
func (s *Server) Register(c *fiber.Ctx) error {
	var req service.RegisterInput
	if err := c.BodyParser(&req); err != nil {
		return respondErr(c, models.NewValidationError("Invalid request body"))
	}
	user, err := s.authService.Register(c.UserContext(), req, c.IP())
	if err != nil {
		return respondErr(c, err)
	}
	token, expires, err := s.issueToken(user)
	if err != nil {
		return respondErr(c, models.NewInternalError(err))
	}
	s.setSessionCookie(c, token, expires)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":    user.ID,
		"email": user.Email,
		"role":  user.Role,
	})
}

// Login verifies credentials and starts a session.
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respondErr(c, models.NewValidationError("Invalid request body"))
	}
	user, err := s.authService.Login(c.UserContext(), req.Email, req.Password, c.IP())
	if err != nil {
		return respondErr(c, err)
	}
	token, expires, err := s.issueToken(user)
	if err != nil {
		return respondErr(c, models.NewInternalError(err))
	}
	s.setSessionCookie(c, token, expires)
	return c.JSON(fiber.Map{
		"id":    user.ID,
		"email": user.Email,
		"role":  user.Role,
	})
}

// Logout clears the session cookie and revokes the token when Redis is
// available.
func (s *Server) Logout(c *fiber.Ctx) error {
	if session, err := s.parseSession(c); err == nil {
		if session.JTI != "" && s.redis != nil {
			ttl := time.Duration(s.config.SessionTTLHours) * time.Hour
			s.redis.Set(c.UserContext(), "revoked:"+session.JTI, "1", ttl)
		}
		s.auditor.Record(c.UserContext(), service.ActionAuthLogout, &session.UserID, "user", session.UserID, c.IP(), nil)
	}
	s.clearSessionCookie(c)
	return c.JSON(fiber.Map{"ok": true})
}

// Me returns the requester's profile.
func (s *Server) Me(c *fiber.Ctx) error {
	actor := localActor(c)
	profile, err := s.authService.Me(c.UserContext(), actor.ID)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(profile)
}

// DeleteAccount removes the requester's account after confirmation.
func (s *Server) DeleteAccount(c *fiber.Ctx) error {
	var req struct {
		Confirm string `json:"confirm"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respondErr(c, models.NewValidationError("Invalid request body"))
	}
	actor := localActor(c)
	if err := s.authService.DeleteAccount(c.UserContext(), actor.ID, req.Confirm, c.IP()); err != nil {
		return respondErr(c, err)
	}
	s.clearSessionCookie(c)
	return c.JSON(fiber.Map{"ok": true})
}

// RequestOTP starts a phone verification challenge.
func (s *Server) RequestOTP(c *fiber.Ctx) error {
	var req struct {
		Phone string `json:"phone"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respondErr(c, models.NewValidationError("Invalid request body"))
	}
	actor := localActor(c)
	challenge, err := s.authService.StartPhoneOTP(c.UserContext(), actor.ID, req.Phone, c.IP())
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(challenge)
}

// VerifyOTP completes a phone verification challenge.
func (s *Server) VerifyOTP(c *fiber.Ctx) error {
	var req struct {
		Phone string `json:"phone"`
		Code  string `json:"code"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respondErr(c, models.NewValidationError("Invalid request body"))
	}
	actor := localActor(c)
	if err := s.authService.VerifyPhoneOTP(c.UserContext(), actor.ID, req.Phone, req.Code, c.IP()); err != nil {
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{"ok": true, "phoneVerified": true})
}

// StartTelegramLink issues a Telegram link code for the requester.
func (s *Server) StartTelegramLink(c *fiber.Ctx) error {
	actor := localActor(c)
	challenge, err := s.authService.StartTelegramLink(c.UserContext(), actor.ID, c.IP())
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(challenge)
}
