package workflow

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/CiviTrack/civitrack-back/models"
	"github.com/CiviTrack/civitrack-back/services/match"
	"github.com/CiviTrack/civitrack-back/services/views"
)

// Progress checkpoints the lifecycle pins on certain transitions.
const (
	progressOnAssign = 25
	progressOnReject = 75
)

// Engine enforces the report lifecycle: every status change flows through one
// of its methods, commits via a compare-and-set guard, and appends exactly
// one audit entry.
type Engine struct {
	reports    ReportStore
	staff      StaffStore
	variations match.Variations
	events     EventPublisher
}

func NewEngine(reports ReportStore, staff StaffStore, variations match.Variations, events EventPublisher) *Engine {
	return &Engine{reports: reports, staff: staff, variations: variations, events: events}
}

func (e *Engine) publish(ctx context.Context, eventType string, reportID primitive.ObjectID, actor, detail string) {
	if e.events == nil {
		return
	}
	ev := Event{
		Type:     eventType,
		ReportID: reportID.Hex(),
		Actor:    actor,
		Detail:   detail,
		At:       time.Now().UTC(),
	}
	if err := e.events.Publish(ctx, ev); err != nil {
		log.Printf("workflow: publish %s for %s failed: %v", eventType, reportID.Hex(), err)
	}
}

// Submit records a citizen-originated report in the pending state.
func (e *Engine) Submit(ctx context.Context, r *models.Report) (*models.Report, error) {
	if r.Title == "" {
		return nil, validationErr("title", "must not be empty")
	}
	if !models.Category(models.NormalizeCategory(string(r.Category))).IsValid() {
		return nil, validationErr("category", fmt.Sprintf("unknown category %q", r.Category))
	}
	r.Category = models.Category(models.NormalizeCategory(string(r.Category)))
	if r.Priority == "" {
		r.Priority = models.PriorityMedium
	}
	if !r.Priority.IsValid() {
		return nil, validationErr("priority", fmt.Sprintf("unknown priority %q", r.Priority))
	}

	now := time.Now().UTC()
	r.Status = models.StatusPending
	r.Progress = 0
	r.ReviewState = models.ReviewNotApplicable
	r.AssignedStaffID = nil
	r.CreatedAt = now
	r.ProgressUpdates = []models.ProgressUpdate{{
		Percentage:  0,
		Description: "Report submitted",
		Actor:       r.ReporterName,
		Timestamp:   now,
	}}

	if err := e.reports.Insert(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to create report: %w", err)
	}
	e.publish(ctx, "report.submitted", r.ID, r.ReporterName, string(r.Category))
	return r, nil
}

// Assign routes a pending report to an active staff member. The admin picks
// the staff id; the matcher only ranks candidates, it never assigns.
func (e *Engine) Assign(ctx context.Context, a models.Assignment, actor string) (*models.Report, error) {
	st, err := e.staff.GetByID(ctx, a.StaffID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStaff, err)
	}
	if !st.IsActive {
		return nil, fmt.Errorf("%w: %s is inactive", ErrInvalidStaff, st.Name)
	}

	now := time.Now().UTC()
	status := models.StatusAssigned
	progress := progressOnAssign
	review := models.ReviewNotApplicable

	ch := ReportChange{
		Status:          &status,
		Progress:        &progress,
		ReviewState:     &review,
		AssignedStaffID: &a.StaffID,
		DueDate:         a.DueDate,
		AssignmentNotes: &a.Notes,
		AssignedAt:      &now,
		Append: &models.ProgressUpdate{
			Percentage:  progressOnAssign,
			Description: "Assigned to " + st.Name,
			Actor:       actor,
			Timestamp:   now,
		},
	}

	updated, err := e.reports.ApplyTransition(ctx, a.ReportID, Guard{Status: models.StatusPending}, ch)
	if err != nil {
		return nil, err
	}
	e.publish(ctx, "report.assigned", updated.ID, actor, st.Name)
	return updated, nil
}

// UpdateProgress advances a report within an assignment cycle. A percentage
// of 100 always completes the report and queues it for review, regardless of
// the declared target.
func (e *Engine) UpdateProgress(ctx context.Context, reportID primitive.ObjectID, percentage int, description string, expected models.ReportStatus, actor string) (*models.Report, error) {
	if percentage < 0 || percentage > 100 {
		return nil, validationErr("percentage", "must be between 0 and 100")
	}
	if expected != models.StatusAssigned && expected != models.StatusInProgress {
		return nil, fmt.Errorf("%w: progress updates require an assigned or in_progress report, got %q", ErrPreconditionFailed, expected)
	}

	current, err := e.reports.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	// Monotonic within a cycle; only rejection resets progress, and it does
	// so explicitly.
	if percentage < current.Progress {
		return nil, validationErr("percentage", fmt.Sprintf("%d is below the recorded progress of %d", percentage, current.Progress))
	}

	now := time.Now().UTC()
	ch := ReportChange{
		Progress: &percentage,
		Append: &models.ProgressUpdate{
			Percentage:  percentage,
			Description: description,
			Actor:       actor,
			Timestamp:   now,
		},
	}

	eventType := "report.progress"
	if percentage == 100 {
		status := models.StatusCompleted
		review := models.ReviewAwaiting
		ch.Status = &status
		ch.ReviewState = &review
		ch.CompletionNotes = &description
		ch.CompletedAt = &now
		eventType = "report.completed"
	} else {
		status := models.StatusInProgress
		ch.Status = &status
	}

	// The pre-read check above gives a precise error in the common case; the
	// guard re-asserts the bound at commit time so a racing update can never
	// slip a lower percentage over a higher one.
	guard := Guard{Status: expected, ProgressAtMost: &percentage}
	updated, err := e.reports.ApplyTransition(ctx, reportID, guard, ch)
	if err != nil {
		return nil, err
	}
	e.publish(ctx, eventType, updated.ID, actor, description)
	return updated, nil
}

// Complete marks a report finished. It is the percentage=100 form of
// UpdateProgress with the description recorded as completion notes.
func (e *Engine) Complete(ctx context.Context, reportID primitive.ObjectID, completionNotes string, expected models.ReportStatus, actor string) (*models.Report, error) {
	return e.UpdateProgress(ctx, reportID, 100, completionNotes, expected, actor)
}

// Approve resolves a completed report's review cycle in its favor. The
// report becomes terminal.
func (e *Engine) Approve(ctx context.Context, reportID primitive.ObjectID, adminNotes, actor string) (*models.Report, error) {
	current, err := e.reports.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if !current.AwaitingReview() {
		return nil, fmt.Errorf("%w: report is not awaiting review", ErrPreconditionFailed)
	}

	now := time.Now().UTC()
	review := models.ReviewApproved
	ch := ReportChange{
		ReviewState: &review,
		AdminNotes:  &adminNotes,
		ReviewedAt:  &now,
		Append: &models.ProgressUpdate{
			Percentage:  100,
			Description: "Completion approved",
			Actor:       actor,
			Timestamp:   now,
		},
	}

	guard := Guard{Status: models.StatusCompleted, Review: reviewGuard(models.ReviewAwaiting)}
	updated, err := e.reports.ApplyTransition(ctx, reportID, guard, ch)
	if err != nil {
		return nil, err
	}
	e.publish(ctx, "report.approved", updated.ID, actor, adminNotes)
	return updated, nil
}

// Reject sends a completed report back to work: progress resets to 75 and the
// review state reverts to not_applicable so a later completion starts a fresh
// review cycle. An empty reason is rejected before any state is touched.
func (e *Engine) Reject(ctx context.Context, reportID primitive.ObjectID, reason, actor string) (*models.Report, error) {
	if reason == "" {
		return nil, validationErr("rejection_reason", "must not be empty")
	}

	current, err := e.reports.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if !current.AwaitingReview() {
		return nil, fmt.Errorf("%w: report is not awaiting review", ErrPreconditionFailed)
	}

	now := time.Now().UTC()
	status := models.StatusInProgress
	progress := progressOnReject
	review := models.ReviewNotApplicable
	ch := ReportChange{
		Status:          &status,
		Progress:        &progress,
		ReviewState:     &review,
		RejectionReason: &reason,
		RejectedAt:      &now,
		Append: &models.ProgressUpdate{
			Percentage:  progressOnReject,
			Description: "Completion rejected: " + reason,
			Actor:       actor,
			Timestamp:   now,
		},
	}

	guard := Guard{Status: models.StatusCompleted, Review: reviewGuard(models.ReviewAwaiting)}
	updated, err := e.reports.ApplyTransition(ctx, reportID, guard, ch)
	if err != nil {
		return nil, err
	}
	e.publish(ctx, "report.rejected", updated.ID, actor, reason)
	return updated, nil
}

// ForceStatus is the administrative override. It refuses terminal records but
// otherwise moves the report to any valid status, keeping the derived fields
// consistent with the target, and always leaves an audit entry.
func (e *Engine) ForceStatus(ctx context.Context, reportID primitive.ObjectID, newStatus models.ReportStatus, notes, actor string) (*models.Report, error) {
	if !newStatus.IsValid() {
		return nil, validationErr("status", fmt.Sprintf("unknown status %q", newStatus))
	}

	current, err := e.reports.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if current.IsTerminal() {
		return nil, fmt.Errorf("%w: report is terminal", ErrPreconditionFailed)
	}

	now := time.Now().UTC()
	review := models.ReviewNotApplicable
	progress := current.Progress
	ch := ReportChange{
		Status:      &newStatus,
		ReviewState: &review,
	}
	switch newStatus {
	case models.StatusPending:
		progress = 0
		ch.ClearAssignee = true
	case models.StatusAssigned:
		progress = progressOnAssign
	case models.StatusCompleted:
		progress = 100
		review = models.ReviewAwaiting
		ch.CompletedAt = &now
	}
	ch.Progress = &progress
	ch.Append = &models.ProgressUpdate{
		Percentage:  progress,
		Description: "Status forced to " + string(newStatus) + ": " + notes,
		Actor:       actor,
		Timestamp:   now,
	}

	// On a completed report the review state is part of the guard: a force
	// racing an approval must lose rather than overwrite the review decision.
	guard := Guard{Status: current.Status}
	if current.Status == models.StatusCompleted {
		guard.Review = reviewGuard(current.ReviewState)
	}
	updated, err := e.reports.ApplyTransition(ctx, reportID, guard, ch)
	if err != nil {
		return nil, err
	}
	log.Printf("workflow: status of %s forced to %s by %s", reportID.Hex(), newStatus, actor)
	e.publish(ctx, "report.forced", updated.ID, actor, string(newStatus))
	return updated, nil
}

// RankStaff ranks active staff for a report category, best candidate first.
// Ranking is pure; this wrapper only gathers the staff snapshot and the
// current open-assignment counts.
func (e *Engine) RankStaff(ctx context.Context, category string) ([]match.Candidate, error) {
	if models.NormalizeCategory(category) == "" {
		return nil, validationErr("category", "must not be empty")
	}

	active, err := e.staff.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active staff: %w", err)
	}
	if len(active) == 0 {
		return nil, nil
	}
	load, err := e.reports.CountOpenByStaff(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count open assignments: %w", err)
	}
	counts := make(map[string]int, len(load))
	for id, n := range load {
		counts[id.Hex()] = n
	}
	return match.Rank(category, active, counts, e.variations), nil
}

// Query evaluates a named view filter. Read-only.
func (e *Engine) Query(ctx context.Context, spec views.FilterSpec) ([]*models.Report, error) {
	if err := spec.Validate(); err != nil {
		return nil, validationErr("filter", err.Error())
	}
	return e.reports.List(ctx, spec)
}

// Get fetches one report.
func (e *Engine) Get(ctx context.Context, reportID primitive.ObjectID) (*models.Report, error) {
	return e.reports.GetByID(ctx, reportID)
}
