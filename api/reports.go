package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/CiviTrack/civitrack-back/middleware"
	"github.com/CiviTrack/civitrack-back/models"
	"github.com/CiviTrack/civitrack-back/services/views"
)

func reportID(c *fiber.Ctx) (primitive.ObjectID, error) {
	return primitive.ObjectIDFromHex(c.Params("id"))
}

// actorName identifies the caller in audit entries and events.
func actorName(c *fiber.Ctx) string {
	if claims := middleware.Actor(c); claims != nil {
		if claims.Name != "" {
			return claims.Name
		}
		return claims.ActorID
	}
	return "anonymous"
}

type submitReportPayload struct {
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Category     string          `json:"category"`
	Location     models.Location `json:"location"`
	Priority     string          `json:"priority"`
	ReporterName string          `json:"reporter_name"`
}

func (s *Server) handleSubmitReport(c *fiber.Ctx) error {
	var p submitReportPayload
	if err := c.BodyParser(&p); err != nil {
		return badReq(c, "invalid JSON body")
	}

	r := &models.Report{
		Title:        p.Title,
		Description:  p.Description,
		Category:     models.Category(p.Category),
		Location:     p.Location,
		Priority:     models.Priority(p.Priority),
		ReporterName: p.ReporterName,
	}
	if claims := middleware.Actor(c); claims != nil && r.ReporterName == "" {
		r.ReporterName = claims.Name
	}

	created, err := s.engine.Submit(c.Context(), r)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"ok": true, "data": created})
}

func (s *Server) handleQueryReports(c *fiber.Ctx) error {
	spec := views.FilterSpec{
		Name:        views.Named(c.Query("filter")),
		Search:      c.Query("search"),
		Category:    c.Query("category"),
		Priority:    models.Priority(c.Query("priority")),
		OldestFirst: c.QueryBool("oldest_first"),
		Limit:       int64(c.QueryInt("limit")),
		Skip:        int64(c.QueryInt("skip")),
	}

	reports, err := s.engine.Query(c.Context(), spec)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, reports)
}

func (s *Server) handleGetReport(c *fiber.Ctx) error {
	id, err := reportID(c)
	if err != nil {
		return badReq(c, "invalid report id")
	}
	report, err := s.engine.Get(c.Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, report)
}

func (s *Server) handleProgressHistory(c *fiber.Ctx) error {
	id, err := reportID(c)
	if err != nil {
		return badReq(c, "invalid report id")
	}
	report, err := s.engine.Get(c.Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, report.ProgressUpdates)
}

type assignPayload struct {
	StaffID string     `json:"staff_id"`
	DueDate *time.Time `json:"due_date,omitempty"`
	Notes   string     `json:"notes,omitempty"`
}

func (s *Server) handleAssign(c *fiber.Ctx) error {
	id, err := reportID(c)
	if err != nil {
		return badReq(c, "invalid report id")
	}
	var p assignPayload
	if err := c.BodyParser(&p); err != nil {
		return badReq(c, "invalid JSON body")
	}
	staffID, err := primitive.ObjectIDFromHex(p.StaffID)
	if err != nil {
		return badReq(c, "invalid staff id")
	}

	report, err := s.engine.Assign(c.Context(), models.Assignment{
		ReportID: id,
		StaffID:  staffID,
		DueDate:  p.DueDate,
		Notes:    p.Notes,
	}, actorName(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, report)
}

type progressPayload struct {
	Percentage     int    `json:"percentage"`
	Description    string `json:"description"`
	ExpectedStatus string `json:"expected_status"`
}

func (s *Server) handleUpdateProgress(c *fiber.Ctx) error {
	id, err := reportID(c)
	if err != nil {
		return badReq(c, "invalid report id")
	}
	var p progressPayload
	if err := c.BodyParser(&p); err != nil {
		return badReq(c, "invalid JSON body")
	}

	report, err := s.engine.UpdateProgress(c.Context(), id, p.Percentage, p.Description,
		models.ReportStatus(p.ExpectedStatus), actorName(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, report)
}

type completePayload struct {
	CompletionNotes string `json:"completion_notes"`
	ExpectedStatus  string `json:"expected_status"`
}

func (s *Server) handleComplete(c *fiber.Ctx) error {
	id, err := reportID(c)
	if err != nil {
		return badReq(c, "invalid report id")
	}
	var p completePayload
	if err := c.BodyParser(&p); err != nil {
		return badReq(c, "invalid JSON body")
	}

	report, err := s.engine.Complete(c.Context(), id, p.CompletionNotes,
		models.ReportStatus(p.ExpectedStatus), actorName(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, report)
}

type reviewPayload struct {
	AdminNotes      string `json:"admin_notes,omitempty"`
	RejectionReason string `json:"rejection_reason,omitempty"`
}

func (s *Server) handleApprove(c *fiber.Ctx) error {
	id, err := reportID(c)
	if err != nil {
		return badReq(c, "invalid report id")
	}
	var p reviewPayload
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&p); err != nil {
			return badReq(c, "invalid JSON body")
		}
	}

	report, err := s.engine.Approve(c.Context(), id, p.AdminNotes, actorName(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, report)
}

func (s *Server) handleReject(c *fiber.Ctx) error {
	id, err := reportID(c)
	if err != nil {
		return badReq(c, "invalid report id")
	}
	var p reviewPayload
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&p); err != nil {
			return badReq(c, "invalid JSON body")
		}
	}

	report, err := s.engine.Reject(c.Context(), id, p.RejectionReason, actorName(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, report)
}

type forceStatusPayload struct {
	Status string `json:"status"`
	Notes  string `json:"notes,omitempty"`
}

func (s *Server) handleForceStatus(c *fiber.Ctx) error {
	id, err := reportID(c)
	if err != nil {
		return badReq(c, "invalid report id")
	}
	var p forceStatusPayload
	if err := c.BodyParser(&p); err != nil {
		return badReq(c, "invalid JSON body")
	}

	report, err := s.engine.ForceStatus(c.Context(), id, models.ReportStatus(p.Status), p.Notes, actorName(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, report)
}
