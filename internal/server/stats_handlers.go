package server

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// GetCounters returns the landing-page counters.
func (s *Server) GetCounters(c *fiber.Ctx) error {
	counters, err := s.statsService.GetCounters(c.UserContext(), c.Query("country"))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(counters)
}

// GetStats returns the public aggregate breakdowns.
func (s *Server) GetStats(c *fiber.Ctx) error {
	stats, err := s.statsService.GetStats(c.UserContext(), c.Query("country"))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(stats)
}

// GetDashboard returns the richer analytics view.
func (s *Server) GetDashboard(c *fiber.Ctx) error {
	dashboard, err := s.statsService.GetDashboard(c.UserContext(), c.Query("country"))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(dashboard)
}

// GetResearchAggregate returns anonymized per-profession rows. Groups
// too small to be anonymous are suppressed by the service.
func (s *Server) GetResearchAggregate(c *fiber.Ctx) error {
	rows, err := s.statsService.GetResearchAggregate(c.UserContext(), c.Query("country"))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{"rows": rows, "total": len(rows)})
}

// GetTopCompanies ranks companies by reported layoffs.
func (s *Server) GetTopCompanies(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit"))
	companies, err := s.statsService.GetTopCompanies(c.UserContext(), limit)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{"companies": companies, "total": len(companies)})
}

// GetCompanyProfile returns aggregates and recent masked stories for one
// company slug.
func (s *Server) GetCompanyProfile(c *fiber.Ctx) error {
	profile, err := s.statsService.GetCompanyProfile(c.UserContext(), c.Params("slug"))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(profile)
}

// GetCompanyTimeline returns a company's monthly layoff counts.
func (s *Server) GetCompanyTimeline(c *fiber.Ctx) error {
	timeline, err := s.statsService.GetCompanyTimeline(c.UserContext(), c.Params("slug"))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{"slug": c.Params("slug"), "months": timeline})
}

// GetTransparencyReport returns moderation activity for a period
// ("", YYYY or YYYY-Qn).
func (s *Server) GetTransparencyReport(c *fiber.Ctx) error {
	report, err := s.statsService.GetTransparencyReport(c.UserContext(), c.Query("period"))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(report)
}
