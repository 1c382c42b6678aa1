package api

import (
	"io"
	"log"
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/CiviTrack/civitrack-back/middleware"
	"github.com/CiviTrack/civitrack-back/models"
)

func galleryID(c *fiber.Ctx) (primitive.ObjectID, error) {
	return primitive.ObjectIDFromHex(c.Params("id"))
}

func (s *Server) handleListGallery(c *fiber.Ctx) error {
	var reportID *primitive.ObjectID
	if raw := c.Query("report_id"); raw != "" {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			return badReq(c, "invalid report id")
		}
		reportID = &id
	}

	subs, err := s.gallery.List(c.Context(), models.GalleryStatus(c.Query("status")), reportID)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, subs)
}

// handleSubmitGallery accepts multipart form data with before/after image
// files, stores the blobs, and records the pending submission. With JSON it
// expects pre-uploaded object keys instead.
func (s *Server) handleSubmitGallery(c *fiber.Ctx) error {
	claims := middleware.Actor(c)
	staffID, err := primitive.ObjectIDFromHex(claims.ActorID)
	if err != nil {
		return badReq(c, "actor id is not a staff id")
	}

	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		return s.submitGalleryMultipart(c, staffID)
	}

	var p struct {
		ReportID       string `json:"report_id"`
		BeforeImageKey string `json:"before_image_key"`
		AfterImageKey  string `json:"after_image_key"`
		Caption        string `json:"caption,omitempty"`
	}
	if err := c.BodyParser(&p); err != nil {
		return badReq(c, "invalid JSON body")
	}
	reportID, err := primitive.ObjectIDFromHex(p.ReportID)
	if err != nil {
		return badReq(c, "invalid report id")
	}

	// Pre-uploaded keys must point at real objects when storage is wired.
	if s.images != nil {
		for _, key := range []string{p.BeforeImageKey, p.AfterImageKey} {
			if key == "" {
				continue
			}
			found, err := s.images.Exists(c.Context(), key)
			if err != nil {
				return fail(c, err)
			}
			if !found {
				return badReq(c, "unknown image key "+key)
			}
		}
	}

	sub, err := s.gallery.Submit(c.Context(), reportID, p.BeforeImageKey, p.AfterImageKey, p.Caption, staffID)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"ok": true, "data": sub})
}

func (s *Server) submitGalleryMultipart(c *fiber.Ctx, staffID primitive.ObjectID) error {
	if s.images == nil {
		return badReq(c, "image uploads are not configured; submit object keys as JSON")
	}

	reportID, err := primitive.ObjectIDFromHex(c.FormValue("report_id"))
	if err != nil {
		return badReq(c, "invalid report id")
	}

	beforeKey, err := s.storeFormImage(c, "before_image")
	if err != nil {
		return badReq(c, err.Error())
	}
	afterKey, err := s.storeFormImage(c, "after_image")
	if err != nil {
		return badReq(c, err.Error())
	}

	sub, err := s.gallery.Submit(c.Context(), reportID, beforeKey, afterKey, c.FormValue("caption"), staffID)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"ok": true, "data": sub})
}

func (s *Server) storeFormImage(c *fiber.Ctx, field string) (string, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return "", fiber.NewError(fiber.StatusBadRequest, field+" file is required")
	}
	content, contentType, err := readMultipartFile(header)
	if err != nil {
		return "", err
	}
	return s.images.UploadImage(c.Context(), header.Filename, content, contentType)
}

func readMultipartFile(header *multipart.FileHeader) ([]byte, string, error) {
	f, err := header.Open()
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, "", err
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return content, contentType, nil
}

func (s *Server) handleGalleryImage(c *fiber.Ctx) error {
	if s.images == nil {
		return c.Status(fiber.StatusNotFound).JSON(errorResp{Code: "not_found", Error: "image storage not configured"})
	}
	id, err := galleryID(c)
	if err != nil {
		return badReq(c, "invalid submission id")
	}
	sub, err := s.gallery.Get(c.Context(), id)
	if err != nil {
		return fail(c, err)
	}

	var key string
	switch c.Params("which") {
	case "before":
		key = sub.BeforeImageKey
	case "after":
		key = sub.AfterImageKey
	default:
		return badReq(c, "image selector must be before or after")
	}

	content, err := s.images.Download(c.Context(), key)
	if err != nil {
		return fail(c, err)
	}
	return c.Send(content)
}

type galleryReviewPayload struct {
	AdminNotes      string `json:"admin_notes,omitempty"`
	RejectionReason string `json:"rejection_reason,omitempty"`
	Featured        bool   `json:"featured,omitempty"`
}

func (s *Server) handleApproveGallery(c *fiber.Ctx) error {
	id, err := galleryID(c)
	if err != nil {
		return badReq(c, "invalid submission id")
	}
	var p galleryReviewPayload
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&p); err != nil {
			return badReq(c, "invalid JSON body")
		}
	}

	sub, err := s.gallery.Approve(c.Context(), id, p.AdminNotes, p.Featured, actorName(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, sub)
}

func (s *Server) handleRejectGallery(c *fiber.Ctx) error {
	id, err := galleryID(c)
	if err != nil {
		return badReq(c, "invalid submission id")
	}
	var p galleryReviewPayload
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&p); err != nil {
			return badReq(c, "invalid JSON body")
		}
	}

	sub, err := s.gallery.Reject(c.Context(), id, p.RejectionReason, p.AdminNotes, actorName(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, sub)
}

func (s *Server) handleFeatureGallery(c *fiber.Ctx) error {
	id, err := galleryID(c)
	if err != nil {
		return badReq(c, "invalid submission id")
	}
	var p struct {
		Featured bool `json:"featured"`
	}
	if err := c.BodyParser(&p); err != nil {
		return badReq(c, "invalid JSON body")
	}

	sub, err := s.gallery.SetFeatured(c.Context(), id, p.Featured, actorName(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, sub)
}

func (s *Server) handleDeleteGallery(c *fiber.Ctx) error {
	id, err := galleryID(c)
	if err != nil {
		return badReq(c, "invalid submission id")
	}
	sub, err := s.gallery.Get(c.Context(), id)
	if err != nil {
		return fail(c, err)
	}
	if err := s.gallery.Delete(c.Context(), id); err != nil {
		return fail(c, err)
	}

	// The record is gone; blob removal is best effort and never fails the
	// request.
	if s.images != nil {
		for _, key := range []string{sub.BeforeImageKey, sub.AfterImageKey} {
			if err := s.images.Delete(c.Context(), key); err != nil {
				log.Printf("api: delete gallery blob %s failed: %v", key, err)
			}
		}
	}
	return ok(c, fiber.Map{"deleted": id.Hex()})
}
