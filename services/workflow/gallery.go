package workflow

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/CiviTrack/civitrack-back/models"
)

// GalleryWorkflow governs before/after image pairs. It runs beside the
// lifecycle engine: once a report is completed, gallery state moves
// independently of the report's own review.
type GalleryWorkflow struct {
	gallery GalleryStore
	reports ReportStore
	events  EventPublisher
}

func NewGalleryWorkflow(gallery GalleryStore, reports ReportStore, events EventPublisher) *GalleryWorkflow {
	return &GalleryWorkflow{gallery: gallery, reports: reports, events: events}
}

func (w *GalleryWorkflow) publish(ctx context.Context, eventType string, g *models.GallerySubmission, actor, detail string) {
	if w.events == nil {
		return
	}
	_ = w.events.Publish(ctx, Event{
		Type:      eventType,
		ReportID:  g.ReportID.Hex(),
		SubjectID: g.ID.Hex(),
		Actor:     actor,
		Detail:    detail,
		At:        time.Now().UTC(),
	})
}

// Submit creates a pending submission. Only completed reports (any review
// state) can produce gallery material.
func (w *GalleryWorkflow) Submit(ctx context.Context, reportID primitive.ObjectID, beforeKey, afterKey, caption string, staffID primitive.ObjectID) (*models.GallerySubmission, error) {
	if beforeKey == "" {
		return nil, validationErr("before_image", "must not be empty")
	}
	if afterKey == "" {
		return nil, validationErr("after_image", "must not be empty")
	}

	report, err := w.reports.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if report.Status != models.StatusCompleted {
		return nil, fmt.Errorf("%w: report %s is %s", ErrInvalidReportStatus, reportID.Hex(), report.Status)
	}

	g := &models.GallerySubmission{
		ReportID:          reportID,
		BeforeImageKey:    beforeKey,
		AfterImageKey:     afterKey,
		Caption:           caption,
		UploadedByStaffID: staffID,
		Status:            models.GalleryPending,
		CreatedAt:         time.Now().UTC(),
	}
	if err := w.gallery.Insert(ctx, g); err != nil {
		return nil, fmt.Errorf("failed to create gallery submission: %w", err)
	}
	w.publish(ctx, "gallery.submitted", g, staffID.Hex(), caption)
	return g, nil
}

// Approve moves a pending submission to its terminal approved state. The
// featured flag may be set in the same decision.
func (w *GalleryWorkflow) Approve(ctx context.Context, id primitive.ObjectID, adminNotes string, featured bool, actor string) (*models.GallerySubmission, error) {
	current, err := w.gallery.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status != models.GalleryPending {
		return nil, fmt.Errorf("%w: submission is %s, not pending", ErrPreconditionFailed, current.Status)
	}

	now := time.Now().UTC()
	status := models.GalleryApproved
	ch := GalleryChange{
		Status:     &status,
		Featured:   &featured,
		AdminNotes: &adminNotes,
		ReviewedAt: &now,
	}
	updated, err := w.gallery.ApplyTransition(ctx, id, models.GalleryPending, ch)
	if err != nil {
		return nil, err
	}
	w.publish(ctx, "gallery.approved", updated, actor, adminNotes)
	return updated, nil
}

// Reject moves a pending submission to its terminal rejected state. The
// reason is mandatory.
func (w *GalleryWorkflow) Reject(ctx context.Context, id primitive.ObjectID, reason, adminNotes, actor string) (*models.GallerySubmission, error) {
	if reason == "" {
		return nil, validationErr("rejection_reason", "must not be empty")
	}

	current, err := w.gallery.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status != models.GalleryPending {
		return nil, fmt.Errorf("%w: submission is %s, not pending", ErrPreconditionFailed, current.Status)
	}

	now := time.Now().UTC()
	status := models.GalleryRejected
	featured := false
	ch := GalleryChange{
		Status:          &status,
		Featured:        &featured,
		RejectionReason: &reason,
		AdminNotes:      &adminNotes,
		ReviewedAt:      &now,
	}
	updated, err := w.gallery.ApplyTransition(ctx, id, models.GalleryPending, ch)
	if err != nil {
		return nil, err
	}
	w.publish(ctx, "gallery.rejected", updated, actor, reason)
	return updated, nil
}

// SetFeatured toggles the featured flag of an approved submission. The flag
// never changes a submission's status.
func (w *GalleryWorkflow) SetFeatured(ctx context.Context, id primitive.ObjectID, featured bool, actor string) (*models.GallerySubmission, error) {
	current, err := w.gallery.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status != models.GalleryApproved {
		return nil, fmt.Errorf("%w: only approved submissions can be featured", ErrPreconditionFailed)
	}

	ch := GalleryChange{Featured: &featured}
	updated, err := w.gallery.ApplyTransition(ctx, id, models.GalleryApproved, ch)
	if err != nil {
		return nil, err
	}
	w.publish(ctx, "gallery.featured", updated, actor, fmt.Sprintf("featured=%t", featured))
	return updated, nil
}

// Delete removes a submission outright, at any status.
func (w *GalleryWorkflow) Delete(ctx context.Context, id primitive.ObjectID) error {
	return w.gallery.Delete(ctx, id)
}

// Get fetches one submission.
func (w *GalleryWorkflow) Get(ctx context.Context, id primitive.ObjectID) (*models.GallerySubmission, error) {
	return w.gallery.GetByID(ctx, id)
}

// List returns submissions, optionally narrowed by status and report.
func (w *GalleryWorkflow) List(ctx context.Context, status models.GalleryStatus, reportID *primitive.ObjectID) ([]*models.GallerySubmission, error) {
	if status != "" && !status.IsValid() {
		return nil, validationErr("status", fmt.Sprintf("unknown gallery status %q", status))
	}
	return w.gallery.List(ctx, status, reportID)
}
