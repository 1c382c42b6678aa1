package workflow_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/CiviTrack/civitrack-back/models"
	"github.com/CiviTrack/civitrack-back/services/match"
	"github.com/CiviTrack/civitrack-back/services/memstore"
	"github.com/CiviTrack/civitrack-back/services/views"
	"github.com/CiviTrack/civitrack-back/services/workflow"
)

type recordingPublisher struct {
	events []workflow.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e workflow.Event) error {
	p.events = append(p.events, e)
	return nil
}

type fixture struct {
	store  *memstore.Store
	engine *workflow.Engine
	pub    *recordingPublisher
	staff  *models.Staff
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	pub := &recordingPublisher{}
	engine := workflow.NewEngine(store.Reports(), store.Staff(),
		match.Variations{"pothole": {"road_repair"}}, pub)

	st := &models.Staff{Name: "Amira", Specialization: "pothole", IsActive: true}
	require.NoError(t, store.Staff().Insert(context.Background(), st))
	return &fixture{store: store, engine: engine, pub: pub, staff: st}
}

func (f *fixture) submit(t *testing.T) *models.Report {
	t.Helper()
	r, err := f.engine.Submit(context.Background(), &models.Report{
		Title:        "Pothole on Main",
		Description:  "Deep pothole near the crosswalk",
		Category:     models.CategoryPothole,
		Priority:     models.PriorityHigh,
		ReporterName: "Dana",
	})
	require.NoError(t, err)
	return r
}

func (f *fixture) assign(t *testing.T, r *models.Report) *models.Report {
	t.Helper()
	updated, err := f.engine.Assign(context.Background(), models.Assignment{
		ReportID: r.ID,
		StaffID:  f.staff.ID,
	}, "admin")
	require.NoError(t, err)
	return updated
}

func TestSubmitStartsPending(t *testing.T) {
	f := newFixture(t)
	r := f.submit(t)

	assert.Equal(t, models.StatusPending, r.Status)
	assert.Equal(t, 0, r.Progress)
	assert.Equal(t, models.ReviewNotApplicable, r.ReviewState)
	assert.Nil(t, r.AssignedStaffID)
	require.Len(t, r.ProgressUpdates, 1)
}

func TestSubmitRejectsUnknownCategory(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Submit(context.Background(), &models.Report{
		Title:    "Mystery",
		Category: "quantum_flux",
	})
	assert.True(t, workflow.IsValidation(err))
}

func TestAssignMovesToAssigned(t *testing.T) {
	f := newFixture(t)
	r := f.submit(t)

	due := time.Now().UTC().Add(72 * time.Hour)
	updated, err := f.engine.Assign(context.Background(), models.Assignment{
		ReportID: r.ID,
		StaffID:  f.staff.ID,
		DueDate:  &due,
		Notes:    "high priority",
	}, "admin")
	require.NoError(t, err)

	assert.Equal(t, models.StatusAssigned, updated.Status)
	assert.Equal(t, 25, updated.Progress)
	assert.Equal(t, models.ReviewNotApplicable, updated.ReviewState)
	require.NotNil(t, updated.AssignedStaffID)
	assert.Equal(t, f.staff.ID, *updated.AssignedStaffID)
	assert.NotNil(t, updated.AssignedAt)
	assert.Len(t, updated.ProgressUpdates, 2)
}

func TestAssignRejectsInactiveStaff(t *testing.T) {
	f := newFixture(t)
	r := f.submit(t)

	inactive := &models.Staff{Name: "Ghost", Specialization: "pothole", IsActive: false}
	require.NoError(t, f.store.Staff().Insert(context.Background(), inactive))

	_, err := f.engine.Assign(context.Background(), models.Assignment{ReportID: r.ID, StaffID: inactive.ID}, "admin")
	assert.ErrorIs(t, err, workflow.ErrInvalidStaff)
}

func TestAssignRejectsUnknownStaff(t *testing.T) {
	f := newFixture(t)
	r := f.submit(t)

	_, err := f.engine.Assign(context.Background(), models.Assignment{ReportID: r.ID, StaffID: primitive.NewObjectID()}, "admin")
	assert.ErrorIs(t, err, workflow.ErrInvalidStaff)
}

func TestAssignNonPendingConflicts(t *testing.T) {
	f := newFixture(t)
	r := f.submit(t)
	f.assign(t, r)

	_, err := f.engine.Assign(context.Background(), models.Assignment{ReportID: r.ID, StaffID: f.staff.ID}, "admin")
	assert.ErrorIs(t, err, workflow.ErrConflict)
}

func TestProgressFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.submit(t)
	f.assign(t, r)

	// assigned -> in_progress
	updated, err := f.engine.UpdateProgress(ctx, r.ID, 60, "half done", models.StatusAssigned, "staff")
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, updated.Status)
	assert.Equal(t, 60, updated.Progress)

	// in_progress stays in_progress below 100
	updated, err = f.engine.UpdateProgress(ctx, r.ID, 80, "nearly there", models.StatusInProgress, "staff")
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, updated.Status)

	// 100 forces completion and queues review
	updated, err = f.engine.UpdateProgress(ctx, r.ID, 100, "finished", models.StatusInProgress, "staff")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, updated.Status)
	assert.Equal(t, 100, updated.Progress)
	assert.Equal(t, models.ReviewAwaiting, updated.ReviewState)
	assert.Equal(t, "finished", updated.CompletionNotes)
	assert.NotNil(t, updated.CompletedAt)
}

func TestProgressValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.submit(t)
	f.assign(t, r)

	_, err := f.engine.UpdateProgress(ctx, r.ID, 101, "", models.StatusAssigned, "staff")
	assert.True(t, workflow.IsValidation(err))

	_, err = f.engine.UpdateProgress(ctx, r.ID, -1, "", models.StatusAssigned, "staff")
	assert.True(t, workflow.IsValidation(err))

	// Monotonic: assignment pinned progress at 25.
	_, err = f.engine.UpdateProgress(ctx, r.ID, 10, "going backwards", models.StatusAssigned, "staff")
	assert.True(t, workflow.IsValidation(err))

	// Progress against a pending expectation is a logical error.
	_, err = f.engine.UpdateProgress(ctx, r.ID, 50, "", models.StatusPending, "staff")
	assert.ErrorIs(t, err, workflow.ErrPreconditionFailed)
}

func TestProgressStaleExpectationConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.submit(t)
	f.assign(t, r)

	_, err := f.engine.UpdateProgress(ctx, r.ID, 60, "", models.StatusAssigned, "staff")
	require.NoError(t, err)

	// A second caller still believing the report is assigned loses the race.
	_, err = f.engine.UpdateProgress(ctx, r.ID, 70, "", models.StatusAssigned, "staff")
	assert.ErrorIs(t, err, workflow.ErrConflict)
}

func TestApproveTerminal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.submit(t)
	f.assign(t, r)
	_, err := f.engine.Complete(ctx, r.ID, "done", models.StatusAssigned, "staff")
	require.NoError(t, err)

	updated, err := f.engine.Approve(ctx, r.ID, "good work", "admin")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, updated.Status)
	assert.Equal(t, models.ReviewApproved, updated.ReviewState)
	assert.NotNil(t, updated.ReviewedAt)
	assert.True(t, updated.IsTerminal())

	// Replay fails cleanly instead of double-recording the review.
	before := len(updated.ProgressUpdates)
	_, err = f.engine.Approve(ctx, r.ID, "again", "admin")
	assert.ErrorIs(t, err, workflow.ErrPreconditionFailed)

	current, err := f.engine.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Len(t, current.ProgressUpdates, before)
}

func TestRejectResetsCycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.submit(t)
	f.assign(t, r)
	_, err := f.engine.Complete(ctx, r.ID, "done", models.StatusAssigned, "staff")
	require.NoError(t, err)

	updated, err := f.engine.Reject(ctx, r.ID, "photo missing", "admin")
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, updated.Status)
	assert.Equal(t, 75, updated.Progress)
	assert.Equal(t, models.ReviewNotApplicable, updated.ReviewState)
	assert.Equal(t, "photo missing", updated.RejectionReason)
	assert.NotNil(t, updated.RejectedAt)

	// A redo re-enters review and can then be approved: the two decisions
	// never coexist within one completion cycle.
	updated, err = f.engine.UpdateProgress(ctx, r.ID, 100, "redone", models.StatusInProgress, "staff")
	require.NoError(t, err)
	assert.Equal(t, models.ReviewAwaiting, updated.ReviewState)

	updated, err = f.engine.Approve(ctx, r.ID, "good", "admin")
	require.NoError(t, err)
	assert.Equal(t, models.ReviewApproved, updated.ReviewState)
}

func TestRejectRequiresReason(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.submit(t)
	f.assign(t, r)
	_, err := f.engine.Complete(ctx, r.ID, "done", models.StatusAssigned, "staff")
	require.NoError(t, err)

	before, err := f.engine.Get(ctx, r.ID)
	require.NoError(t, err)

	_, err = f.engine.Reject(ctx, r.ID, "", "admin")
	assert.True(t, workflow.IsValidation(err))

	// Nothing moved.
	after, err := f.engine.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, before.ReviewState, after.ReviewState)
	assert.Len(t, after.ProgressUpdates, len(before.ProgressUpdates))
}

func TestReviewRequiresAwaitingState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.submit(t)

	_, err := f.engine.Approve(ctx, r.ID, "", "admin")
	assert.ErrorIs(t, err, workflow.ErrPreconditionFailed)

	_, err = f.engine.Reject(ctx, r.ID, "reason", "admin")
	assert.ErrorIs(t, err, workflow.ErrPreconditionFailed)
}

func TestReviewStateInvariant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.submit(t)
	f.assign(t, r)

	check := func() {
		current, err := f.engine.Get(ctx, r.ID)
		require.NoError(t, err)
		awaiting := current.ReviewState == models.ReviewAwaiting
		completedUndecided := current.Status == models.StatusCompleted &&
			current.ReviewState != models.ReviewApproved && current.ReviewState != models.ReviewRejected
		assert.Equal(t, completedUndecided, awaiting,
			"status=%s review=%s", current.Status, current.ReviewState)
	}

	check()
	_, err := f.engine.UpdateProgress(ctx, r.ID, 50, "", models.StatusAssigned, "staff")
	require.NoError(t, err)
	check()
	_, err = f.engine.Complete(ctx, r.ID, "done", models.StatusInProgress, "staff")
	require.NoError(t, err)
	check()
	_, err = f.engine.Reject(ctx, r.ID, "redo", "admin")
	require.NoError(t, err)
	check()
}

func TestForceStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.submit(t)
	f.assign(t, r)

	updated, err := f.engine.ForceStatus(ctx, r.ID, models.StatusPending, "reopening for triage", "admin")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, updated.Status)
	assert.Equal(t, 0, updated.Progress)
	assert.Nil(t, updated.AssignedStaffID)

	updated, err = f.engine.ForceStatus(ctx, r.ID, models.StatusCompleted, "verified offline", "admin")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, updated.Status)
	assert.Equal(t, 100, updated.Progress)
	assert.Equal(t, models.ReviewAwaiting, updated.ReviewState)

	_, err = f.engine.ForceStatus(ctx, r.ID, models.ReportStatus("limbo"), "", "admin")
	assert.True(t, workflow.IsValidation(err))
}

func TestForceStatusRefusesTerminal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.submit(t)
	f.assign(t, r)
	_, err := f.engine.Complete(ctx, r.ID, "done", models.StatusAssigned, "staff")
	require.NoError(t, err)
	_, err = f.engine.Approve(ctx, r.ID, "", "admin")
	require.NoError(t, err)

	_, err = f.engine.ForceStatus(ctx, r.ID, models.StatusPending, "", "admin")
	assert.ErrorIs(t, err, workflow.ErrPreconditionFailed)
}

// tappedReports runs a callback after the first read, exposing the window
// between an engine's pre-read and its commit to a concurrent writer.
type tappedReports struct {
	workflow.ReportStore
	once      sync.Once
	afterRead func()
}

func (s *tappedReports) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Report, error) {
	r, err := s.ReportStore.GetByID(ctx, id)
	s.once.Do(s.afterRead)
	return r, err
}

func TestProgressRaceCannotRegress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.submit(t)
	f.assign(t, r)
	_, err := f.engine.UpdateProgress(ctx, r.ID, 40, "", models.StatusAssigned, "staff")
	require.NoError(t, err)

	// A second staff member pushes progress to 80 between this caller's read
	// (which saw 40) and its commit of 50.
	tapped := &tappedReports{ReportStore: f.store.Reports(), afterRead: func() {
		_, err := f.engine.UpdateProgress(ctx, r.ID, 80, "", models.StatusInProgress, "staff")
		require.NoError(t, err)
	}}
	racer := workflow.NewEngine(tapped, f.store.Staff(), nil, nil)

	_, err = racer.UpdateProgress(ctx, r.ID, 50, "stale writer", models.StatusInProgress, "staff")
	assert.ErrorIs(t, err, workflow.ErrConflict)

	current, err := f.engine.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 80, current.Progress)
}

func TestForceStatusRaceWithApproval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.submit(t)
	f.assign(t, r)
	_, err := f.engine.Complete(ctx, r.ID, "done", models.StatusAssigned, "staff")
	require.NoError(t, err)

	// The approval lands between the force's terminality check (which saw
	// awaiting_review) and its commit; the force must lose, not erase the
	// review decision.
	tapped := &tappedReports{ReportStore: f.store.Reports(), afterRead: func() {
		_, err := f.engine.Approve(ctx, r.ID, "good", "admin")
		require.NoError(t, err)
	}}
	racer := workflow.NewEngine(tapped, f.store.Staff(), nil, nil)

	_, err = racer.ForceStatus(ctx, r.ID, models.StatusPending, "reopen", "admin")
	assert.ErrorIs(t, err, workflow.ErrConflict)

	current, err := f.engine.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReviewApproved, current.ReviewState)
	assert.True(t, current.IsTerminal())
}

func TestQueryRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.submit(t)
	f.assign(t, r)

	pending, err := f.engine.Query(ctx, views.FilterSpec{Name: views.PendingAssignment})
	require.NoError(t, err)
	for _, p := range pending {
		assert.NotEqual(t, r.ID, p.ID)
	}

	inProgress, err := f.engine.Query(ctx, views.FilterSpec{Name: views.InProgress})
	require.NoError(t, err)
	require.Len(t, inProgress, 1)
	assert.Equal(t, r.ID, inProgress[0].ID)
}

func TestRankStaffUsesLoadCounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	second := &models.Staff{Name: "Zoe", Specialization: "pothole", IsActive: true}
	require.NoError(t, f.store.Staff().Insert(ctx, second))

	// Load Amira with one open assignment.
	r := f.submit(t)
	f.assign(t, r)

	ranked, err := f.engine.RankStaff(ctx, "pothole")
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, "Zoe", ranked[0].Staff.Name)
	assert.Equal(t, 0, ranked[0].OpenAssignments)
	assert.Equal(t, "Amira", ranked[1].Staff.Name)
	assert.Equal(t, 1, ranked[1].OpenAssignments)
}

func TestRankStaffEmptyDirectory(t *testing.T) {
	store := memstore.New()
	engine := workflow.NewEngine(store.Reports(), store.Staff(), nil, nil)

	ranked, err := engine.RankStaff(context.Background(), "pothole")
	require.NoError(t, err)
	assert.Empty(t, ranked)
}

func TestEventsPublishedPerTransition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.submit(t)
	f.assign(t, r)
	_, err := f.engine.Complete(ctx, r.ID, "done", models.StatusAssigned, "staff")
	require.NoError(t, err)
	_, err = f.engine.Approve(ctx, r.ID, "", "admin")
	require.NoError(t, err)

	var types []string
	for _, e := range f.pub.events {
		types = append(types, e.Type)
	}
	assert.Equal(t, []string{"report.submitted", "report.assigned", "report.completed", "report.approved"}, types)
}
