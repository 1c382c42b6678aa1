package api

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/CiviTrack/civitrack-back/models"
)

func (s *Server) handleListStaff(c *fiber.Ctx) error {
	staff, err := s.staff.List(c.Context())
	if err != nil {
		return fail(c, err)
	}
	return ok(c, staff)
}

type createStaffPayload struct {
	Name                 string   `json:"name"`
	Specialization       string   `json:"specialization"`
	AdditionalCategories []string `json:"additional_categories,omitempty"`
	IsActive             *bool    `json:"is_active,omitempty"`
	Email                string   `json:"email,omitempty"`
	PhoneNumber          string   `json:"phone_number,omitempty"`
}

func (s *Server) handleCreateStaff(c *fiber.Ctx) error {
	var p createStaffPayload
	if err := c.BodyParser(&p); err != nil {
		return badReq(c, "invalid JSON body")
	}
	if p.Name == "" {
		return badReq(c, "name must not be empty")
	}
	if p.Specialization == "" {
		return badReq(c, "specialization must not be empty")
	}

	active := true
	if p.IsActive != nil {
		active = *p.IsActive
	}
	st := &models.Staff{
		Name:                 p.Name,
		Specialization:       p.Specialization,
		AdditionalCategories: p.AdditionalCategories,
		IsActive:             active,
		Email:                p.Email,
		PhoneNumber:          p.PhoneNumber,
	}
	if err := s.staff.Insert(c.Context(), st); err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"ok": true, "data": st})
}

// rankedStaff is the wire form of one ranked candidate.
type rankedStaff struct {
	StaffID         string `json:"staff_id"`
	Name            string `json:"name"`
	Specialization  string `json:"specialization"`
	Match           string `json:"match"`
	OpenAssignments int    `json:"open_assignments"`
}

func (s *Server) handleRankings(c *fiber.Ctx) error {
	category := c.Query("category")
	cacheKey := fmt.Sprintf("rankings:%s", models.NormalizeCategory(category))

	var cached []rankedStaff
	if s.cache.GetJSON(c.Context(), cacheKey, &cached) {
		return ok(c, cached)
	}

	candidates, err := s.engine.RankStaff(c.Context(), category)
	if err != nil {
		return fail(c, err)
	}

	out := make([]rankedStaff, 0, len(candidates))
	for _, cand := range candidates {
		out = append(out, rankedStaff{
			StaffID:         cand.Staff.ID.Hex(),
			Name:            cand.Staff.Name,
			Specialization:  cand.Staff.Specialization,
			Match:           cand.Tier.String(),
			OpenAssignments: cand.OpenAssignments,
		})
	}
	// Empty means "no staff available"; the client surfaces that explicitly
	// rather than falling back to anyone.
	s.cache.CacheJSON(c.Context(), cacheKey, out, s.rankingTTL)
	return ok(c, out)
}
