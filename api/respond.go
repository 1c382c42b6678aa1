package api

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/CiviTrack/civitrack-back/services/workflow"
)

type errorResp struct {
	OK    bool   `json:"ok"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

// fail maps the workflow error taxonomy onto distinct HTTP statuses so
// clients can tell a race (retry with fresh state) from a logical error
// (do not retry) from bad input.
func fail(c *fiber.Ctx, err error) error {
	var ve *workflow.ValidationError

	switch {
	case errors.Is(err, workflow.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(errorResp{Code: "not_found", Error: err.Error()})
	case errors.Is(err, workflow.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(errorResp{Code: "conflict", Error: err.Error()})
	case errors.Is(err, workflow.ErrPreconditionFailed):
		return c.Status(fiber.StatusPreconditionFailed).JSON(errorResp{Code: "precondition_failed", Error: err.Error()})
	case errors.Is(err, workflow.ErrInvalidStaff):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(errorResp{Code: "invalid_staff", Error: err.Error()})
	case errors.Is(err, workflow.ErrInvalidReportStatus):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(errorResp{Code: "invalid_report_status", Error: err.Error()})
	case errors.As(err, &ve):
		return c.Status(fiber.StatusBadRequest).JSON(errorResp{Code: "validation_error", Error: ve.Error()})
	default:
		log.Printf("api: %s %s failed: %v", c.Method(), c.Path(), err)
		return c.Status(fiber.StatusInternalServerError).JSON(errorResp{Code: "internal", Error: "internal error"})
	}
}

func badReq(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(errorResp{Code: "validation_error", Error: msg})
}

func ok(c *fiber.Ctx, payload interface{}) error {
	return c.JSON(fiber.Map{"ok": true, "data": payload})
}
